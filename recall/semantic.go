package recall

import (
	"context"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/pipeline"
	"github.com/filmy/reco/vector"
)

// Semantic 是语义召回源：把查询文本向量化后在电影索引中检索近邻。
// 查询文本与过滤条件从请求级 Params 读取，TopK 为召回池大小
// （通常远大于最终 limit，给下游排序留出空间）。
type Semantic struct {
	Index *vector.MovieIndex
	TopK  int
}

func (r *Semantic) Name() string        { return "recall.semantic" }
func (r *Semantic) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Semantic) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Semantic) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	query := ParamString(rctx, ParamQuery)
	if query == "" {
		return nil, core.ErrInvalidQuery
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 100
	}

	var filter map[string]core.FilterClause
	if rctx != nil && rctx.Params != nil {
		filter, _ = rctx.Params[ParamFilter].(map[string]core.FilterClause)
	}

	hits, err := r.Index.Search(ctx, query, topK, filter)
	if err != nil {
		return nil, err
	}
	return itemsFromHits(hits), nil
}

// itemsFromHits 把向量检索命中转成候选 Item，payload 进 Meta。
func itemsFromHits(hits []core.VectorSearchItem) []*core.Item {
	out := make([]*core.Item, 0, len(hits))
	for _, h := range hits {
		it := core.NewItem(h.ID)
		it.Score = h.Score
		if h.Payload != nil {
			it.Meta = h.Payload
		}
		out = append(out, it)
	}
	return out
}
