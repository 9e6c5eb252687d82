package recommender

import (
	"context"

	"github.com/filmy/reco/core"
)

// guest 推荐复用条件检索与相似检索两条链路，没有独立的召回形态。

// Guest 是匿名访客推荐（落地页 onboarding）：
//   - 给了示例电影标题：按示例找相似（示例自身剔除）
//   - 只给了类型：条件检索限定类型
//   - 什么都没给：popularity 兜底
func (e *Engine) Guest(ctx context.Context, genres, examples []string, limit int) ([]*core.Movie, error) {
	if limit <= 0 {
		limit = 10
	}

	if len(examples) > 0 {
		ids, err := e.searchByExamples(ctx, examples, limit*2)
		if err != nil {
			return nil, err
		}
		return e.resolveMovies(ctx, ids, limit)
	}

	if len(genres) > 0 {
		return e.FilteredSearch(ctx, &SearchRequest{Genres: genres, Limit: limit})
	}

	return e.popularMovies(ctx, limit)
}
