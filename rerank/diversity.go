package rerank

import (
	"context"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/pipeline"
)

// Diversity 是一个简单的多样性 ReRank：限制同一主类型（首个 genre）
// 连续霸榜，每个主类型最多保留 MaxPerGenre 部。
// 缺失 genres 的候选不受限制直接保留。
type Diversity struct {
	MaxPerGenre int // 默认 3
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	max := n.MaxPerGenre
	if max <= 0 {
		max = 3
	}

	count := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		genres := it.MetaStrings("genres")
		if len(genres) == 0 {
			out = append(out, it)
			continue
		}
		primary := genres[0]
		if count[primary] >= max {
			continue
		}
		count[primary]++
		out = append(out, it)
	}

	return out, nil
}
