package recall

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/pipeline"
	"github.com/filmy/reco/vector"
)

// History 是近期行为召回源：取用户最近 watched 的 LastN 部电影做种子，
// 并发地对每个种子做向量近邻查询（每个种子取 PerSeedTopK 条），
// 重复命中的电影保留最高相似度。种子电影自身不出现在结果里。
type History struct {
	Index    *vector.MovieIndex
	Movies   core.MovieStore
	Feedback core.FeedbackStore

	LastN       int // 种子数量，默认 3
	PerSeedTopK int // 每个种子的近邻数，默认 24
}

func (r *History) Name() string        { return "recall.history" }
func (r *History) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *History) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。没有 watched 记录的用户返回空结果。
func (r *History) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == 0 {
		return nil, nil
	}
	lastN := r.LastN
	if lastN <= 0 {
		lastN = 3
	}
	perSeed := ParamInt(rctx, ParamLimit, 0) * 2
	if perSeed <= 0 {
		perSeed = r.PerSeedTopK
	}
	if perSeed <= 0 {
		perSeed = 24
	}

	seeds, err := r.recentWatched(ctx, rctx.UserID, lastN)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, nil
	}
	seedSet := make(map[int64]struct{}, len(seeds))
	for _, id := range seeds {
		seedSet[id] = struct{}{}
	}

	var (
		mu     sync.Mutex
		scores = make(map[int64]float64)
		metas  = make(map[int64]map[string]any)
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for _, seedID := range seeds {
		id := seedID
		eg.Go(func() error {
			movie, err := r.Movies.GetMovie(egCtx, id)
			if err != nil {
				if core.IsStoreNotFound(err) {
					return nil // 种子电影已下架，跳过
				}
				return err
			}
			hits, err := r.Index.SearchByMovie(egCtx, movie, perSeed, nil)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, h := range hits {
				if h.Score > scores[h.ID] {
					scores[h.ID] = h.Score
					metas[h.ID] = h.Payload
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(scores))
	for id, score := range scores {
		if _, isSeed := seedSet[id]; isSeed {
			continue
		}
		it := core.NewItem(id)
		it.Score = score
		if m := metas[id]; m != nil {
			it.Meta = m
		}
		out = append(out, it)
	}
	return out, nil
}

// recentWatched 返回用户最近 watched 的 n 部电影 ID（新到旧）。
func (r *History) recentWatched(ctx context.Context, userID int64, n int) ([]int64, error) {
	feedbacks, err := r.Feedback.ListUserFeedback(ctx, userID)
	if err != nil {
		return nil, err
	}
	// ListUserFeedback 按 CreatedAt 升序，从尾部取 watched
	seen := make(map[int64]struct{}, n)
	out := make([]int64, 0, n)
	for i := len(feedbacks) - 1; i >= 0 && len(out) < n; i-- {
		fb := feedbacks[i]
		if fb.Status != core.FeedbackStatusWatched {
			continue
		}
		if _, dup := seen[fb.MovieID]; dup {
			continue
		}
		seen[fb.MovieID] = struct{}{}
		out = append(out, fb.MovieID)
	}
	return out, nil
}
