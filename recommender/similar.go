package recommender

import (
	"context"

	"github.com/filmy/reco/core"
)

// similarExtra 相似检索多取的候选数：目录缺失的命中需要余量补齐
const similarExtra = 10

// SimilarMovies 返回与目标电影最相似的电影（详情页"相似推荐"）。
// 用目标电影自身的规范化文本做近邻查询，目标自身不出现在结果里。
// 电影不存在时返回空列表：调用方传入的未知 ID 视为"无结果"而非错误。
func (e *Engine) SimilarMovies(ctx context.Context, movieID int64, limit int) ([]*core.Movie, error) {
	if limit <= 0 {
		limit = 10
	}
	movie, err := e.movies.GetMovie(ctx, movieID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return []*core.Movie{}, nil
		}
		return nil, err
	}

	hits, err := e.index.SearchByMovie(ctx, movie, limit+similarExtra, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return e.resolveMovies(ctx, ids, limit)
}
