package filter

import (
	"context"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/filmy/reco/core"
)

// WatchedFilter 过滤用户生命周期内已交互过的电影。
// 数据源优先级：
//  1. rctx.Watched 精确集合（编排层从反馈表一次性装载）
//  2. 可选的布隆过滤器（超大观影史用户的近似兜底；
//     布隆的误判只会多滤不会漏滤，推荐场景可接受）
type WatchedFilter struct {
	// Bloom 按用户预构建的布隆过滤器（可选）
	Bloom *bloom.BloomFilter
}

func (f *WatchedFilter) Name() string {
	return "filter.watched"
}

func (f *WatchedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx != nil && rctx.HasWatched(item.ID) {
		return true, nil
	}
	if f.Bloom != nil && f.Bloom.TestString(strconv.FormatInt(item.ID, 10)) {
		return true, nil
	}
	return false, nil
}

// BuildWatchedBloom 从反馈历史构建观影史布隆过滤器，
// 误判率固定 1%，容量按历史条数取整。
func BuildWatchedBloom(feedbacks []*core.Feedback) *bloom.BloomFilter {
	n := uint(len(feedbacks))
	if n < 128 {
		n = 128
	}
	bf := bloom.NewWithEstimates(n, 0.01)
	for _, fb := range feedbacks {
		bf.AddString(strconv.FormatInt(fb.MovieID, 10))
	}
	return bf
}
