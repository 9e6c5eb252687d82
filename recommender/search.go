package recommender

import (
	"context"
	"strings"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/rerank"
	"github.com/filmy/reco/vector"
)

// searchOversample 条件检索召回池倍数
const searchOversample = 40

// fallbackSearchQuery 纯过滤模式使用的中性查询文本：
// 没有任何语义信号时仍需要一个查询向量来驱动检索。
const fallbackSearchQuery = "movies recommended to watch"

// SearchRequest 是条件检索请求。
type SearchRequest struct {
	// UserID 已登录用户（0 表示匿名）；登录用户享受 ALS 重排与已看过滤
	UserID int64

	// QueryMovies 示例电影标题（相似模式：按这些电影找相似）
	QueryMovies []string

	// Genres / Languages 过滤条件（任一匹配）
	Genres    []string
	Languages []string

	// YearMin / YearMax 上映年份闭区间（nil 表示该侧无界）
	YearMin *int
	YearMax *int

	// Limit 返回条数，默认 20
	Limit int
}

// FilteredSearch 是条件检索："给我这类电影"。
// 两种模式：
//   - 相似模式（给了示例电影标题）：示例电影文本合并做语义查询
//   - 过滤模式：中性查询 + payload 过滤条件
//
// 登录用户的结果会做 ALS 重排并过滤已看。
func (e *Engine) FilteredSearch(ctx context.Context, req *SearchRequest) ([]*core.Movie, error) {
	if req == nil {
		return nil, core.ErrInvalidQuery
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	var candidateIDs []int64
	if len(req.QueryMovies) > 0 {
		ids, err := e.searchByExamples(ctx, req.QueryMovies, limit*searchOversample)
		if err != nil {
			return nil, err
		}
		candidateIDs = ids
	} else {
		hits, err := e.index.Search(ctx, fallbackSearchQuery, limit*searchOversample, buildSearchFilter(req))
		if err != nil {
			return nil, err
		}
		candidateIDs = make([]int64, 0, len(hits))
		for _, h := range hits {
			candidateIDs = append(candidateIDs, h.ID)
		}
	}

	if req.UserID != 0 {
		if model := e.currentModel(); model != nil {
			items := make([]*core.Item, 0, len(candidateIDs))
			for _, id := range candidateIDs {
				items = append(items, core.NewItem(id))
			}
			candidateIDs = itemIDs(rerank.Rerank(model, req.UserID, items))
		}

		feedbacks, err := e.feedback.ListUserFeedback(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		watched := e.watchedSet(feedbacks)
		kept := candidateIDs[:0:0]
		for _, id := range candidateIDs {
			if _, seen := watched[id]; seen {
				continue
			}
			kept = append(kept, id)
		}
		candidateIDs = kept
	}

	return e.resolveMovies(ctx, candidateIDs, limit)
}

// searchByExamples 相似模式：示例电影的规范化文本（找不到的标题按
// 原文参与）拼成一个查询，示例电影自身从结果中剔除。
func (e *Engine) searchByExamples(ctx context.Context, titles []string, topK int) ([]int64, error) {
	var (
		docs    []string
		exclude = make(map[int64]struct{}, len(titles))
	)
	for _, title := range titles {
		m, err := e.movies.GetMovieByTitle(ctx, title)
		if err != nil {
			if core.IsStoreNotFound(err) {
				docs = append(docs, title)
				continue
			}
			return nil, err
		}
		exclude[m.ID] = struct{}{}
		docs = append(docs, vector.EmbeddingText(m))
	}

	hits, err := e.index.Search(ctx, strings.Join(docs, " "), topK, nil)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(hits))
	for _, h := range hits {
		if _, isExample := exclude[h.ID]; isExample {
			continue
		}
		out = append(out, h.ID)
	}
	return out, nil
}

// buildSearchFilter 把检索条件翻译成向量库过滤条件（多字段 AND）。
func buildSearchFilter(req *SearchRequest) map[string]core.FilterClause {
	filter := make(map[string]core.FilterClause)
	if len(req.Genres) > 0 {
		filter["genres"] = core.AnyOf(req.Genres...)
	}
	if len(req.Languages) > 0 {
		filter["language"] = core.AnyOf(req.Languages...)
	}
	if req.YearMin != nil || req.YearMax != nil {
		var gte, lte *float64
		if req.YearMin != nil {
			v := float64(*req.YearMin)
			gte = &v
		}
		if req.YearMax != nil {
			v := float64(*req.YearMax)
			lte = &v
		}
		filter["release_year"] = core.Range(gte, lte)
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}
