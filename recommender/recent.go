package recommender

import (
	"context"
	"sort"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/recall"
)

// RecentActivity 根据最近观影推荐："看了 X 也会喜欢"。
//   - 取最近 lastN 部 watched 电影做种子（默认 3）
//   - 每个种子并发做向量近邻（各取 limit*2），重复命中保留最高相似度
//   - 过滤生命周期内已看，按相似度降序截断
//
// 没有 watched 记录时返回空列表（不兜底，调用方自行决定展示与否）。
func (e *Engine) RecentActivity(ctx context.Context, userID int64, limit, lastN int) ([]*core.Movie, error) {
	if limit <= 0 {
		limit = 12
	}
	if lastN <= 0 {
		lastN = 3
	}

	src := &recall.History{
		Index:       e.index,
		Movies:      e.movies,
		Feedback:    e.feedback,
		LastN:       lastN,
		PerSeedTopK: limit * 2,
	}
	items, err := src.Recall(ctx, &core.RecommendContext{UserID: userID, Scene: "recent"})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	feedbacks, err := e.feedback.ListUserFeedback(ctx, userID)
	if err != nil {
		return nil, err
	}
	watched := e.watchedSet(feedbacks)

	kept := items[:0:0]
	for _, it := range items {
		if _, seen := watched[it.ID]; seen {
			continue
		}
		kept = append(kept, it)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	return e.resolveMovies(ctx, itemIDs(kept), limit)
}
