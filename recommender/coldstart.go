package recommender

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/filter"
	"github.com/filmy/reco/pipeline"
	"github.com/filmy/reco/recall"
)

// coldStartOversample 冷启动语义召回的过采样倍数：
// 类型过滤会淘汰大量候选，召回池必须远大于 limit。
const coldStartOversample = 50

// ColdStart 为没有行为数据的用户推荐：
//   - 用户声明了类型偏好：用偏好构造语义查询，候选限定在偏好类型内，
//     按 popularity 降序返回
//   - 没有偏好（或用户不存在）：直接按 popularity 兜底
func (e *Engine) ColdStart(ctx context.Context, userID int64, limit int) ([]*core.Movie, error) {
	if limit <= 0 {
		limit = 10
	}

	var genres []string
	user, err := e.users.GetUser(ctx, userID)
	if err != nil && !core.IsStoreNotFound(err) {
		return nil, err
	}
	if user != nil {
		for _, g := range user.GenrePreferences {
			if g = strings.TrimSpace(g); g != "" {
				genres = append(genres, g)
			}
		}
	}
	if len(genres) == 0 {
		return e.popularMovies(ctx, limit)
	}

	query := fmt.Sprintf("Movies in genres: %s. Recommend good movies.", strings.Join(genres, ", "))
	rctx := &core.RecommendContext{
		UserID: userID,
		Scene:  "cold_start",
		User:   user,
		Params: map[string]any{recall.ParamQuery: query},
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.Semantic{Index: e.index, TopK: limit * coldStartOversample},
		&filter.FilterNode{Filters: []filter.Filter{
			&filter.GenreFilter{Genres: genres},
		}},
	}}
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	// 类型过滤后的候选按 popularity 降序
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].MetaFloat("popularity") > items[j].MetaFloat("popularity")
	})

	movies, err := e.resolveMovies(ctx, itemIDs(items), limit)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("cold start served",
		zap.Int64("user", userID), zap.Strings("genres", genres), zap.Int("results", len(movies)))
	return movies, nil
}

// popularMovies 按 popularity 降序返回前 limit 部电影。
func (e *Engine) popularMovies(ctx context.Context, limit int) ([]*core.Movie, error) {
	items, err := e.hot.Recall(ctx, &core.RecommendContext{
		Params: map[string]any{recall.ParamLimit: limit * 3},
	})
	if err != nil {
		return nil, err
	}
	return e.resolveMovies(ctx, itemIDs(items), limit)
}
