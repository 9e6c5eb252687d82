// Package rerank 提供重排节点：ALS 因子个性化重排与 Top-N 截断。
package rerank

import (
	"context"
	"sort"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/mf"
	"github.com/filmy/reco/pipeline"
	"github.com/filmy/reco/pkg/utils"
)

// Rerank 用 ALS 因子对候选序列做个性化重排：
//   - 模型为空或用户不在训练索引空间：原样返回（恒等回退），
//     绝不报错，绝不丢候选
//   - 可打分候选按 dot(用户向量, 物品向量) 降序排列
//   - 不可打分候选（不在索引空间/超出已训练因子行数）按原始
//     相对顺序整体追加在尾部
//
// 输出恒为输入的一个排列。
func Rerank(model *mf.Model, userID int64, items []*core.Item) []*core.Item {
	if model == nil || len(items) == 0 {
		return items
	}
	userVec, ok := model.UserVector(userID)
	if !ok {
		return items
	}

	type scored struct {
		item  *core.Item
		score float64
	}
	scoreable := make([]scored, 0, len(items))
	unscoreable := make([]*core.Item, 0)
	for _, it := range items {
		if it == nil {
			continue
		}
		itemVec, ok := model.ItemVector(it.ID)
		if !ok {
			unscoreable = append(unscoreable, it)
			continue
		}
		scoreable = append(scoreable, scored{item: it, score: mf.Score(userVec, itemVec)})
	}

	sort.SliceStable(scoreable, func(i, j int) bool {
		return scoreable[i].score > scoreable[j].score
	})

	out := make([]*core.Item, 0, len(scoreable)+len(unscoreable))
	for _, s := range scoreable {
		s.item.Score = s.score
		out = append(out, s.item)
	}
	out = append(out, unscoreable...)
	return out
}

// ModelProvider 提供当前可用的模型快照（通常是 modelcache.Cache）。
type ModelProvider interface {
	Current() (*mf.Model, error)
}

// FactorsNode 是 ALS 因子重排的 Pipeline 节点封装。
// 每次请求从 Provider 取当前模型快照；取不到模型时恒等通过。
type FactorsNode struct {
	Provider ModelProvider
}

func (n *FactorsNode) Name() string {
	return "rerank.factors"
}

func (n *FactorsNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *FactorsNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Provider == nil || rctx == nil {
		return items, nil
	}
	model, err := n.Provider.Current()
	if err != nil {
		// 没有 production 模型：恒等回退
		return items, nil
	}
	out := Rerank(model, rctx.UserID, items)
	if model != nil {
		if _, ok := model.UserVector(rctx.UserID); ok {
			for _, it := range out {
				it.PutLabel("rerank_model", utils.Label{Value: "als_factors", Source: "rerank"})
			}
		}
	}
	return out, nil
}
