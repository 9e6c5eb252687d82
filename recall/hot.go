package recall

import (
	"context"
	"strconv"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/pipeline"
)

// Hot 是热门召回源：按 popularity 降序兜底。
//   - 配置了 KV + Key 时优先读有序集合（离线任务维护的热榜）
//   - 否则回退到电影目录的 popularity 排序分页
//
// 冷启动无偏好、个性化候选不足时都靠它补位。
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Hot struct {
	KV     core.KeyValueStore
	Key    string // 热榜 zset key，例如 "hot:movies"
	Movies core.MovieStore
	Limit  int
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Hot) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	limit := ParamInt(rctx, ParamLimit, r.Limit)
	if limit <= 0 {
		limit = 100
	}

	// 优先读离线热榜
	if r.KV != nil && r.Key != "" {
		members, err := r.KV.ZRange(ctx, r.Key, 0, int64(limit)-1)
		if err == nil && len(members) > 0 {
			out := make([]*core.Item, 0, len(members))
			for rank, m := range members {
				id, err := strconv.ParseInt(m, 10, 64)
				if err != nil {
					continue
				}
				it := core.NewItem(id)
				it.Score = float64(len(members) - rank) // 名次越靠前分越高
				out = append(out, it)
			}
			return out, nil
		}
	}

	if r.Movies == nil {
		return nil, nil
	}
	movies, err := r.Movies.ListMovies(ctx, 0, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Item, 0, len(movies))
	for _, m := range movies {
		it := core.NewItem(m.ID)
		it.Score = m.Popularity
		it.Meta["title"] = m.Title
		it.Meta["genres"] = m.Genres
		it.Meta["popularity"] = m.Popularity
		out = append(out, it)
	}
	return out, nil
}
