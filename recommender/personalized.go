package recommender

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/recall"
	"github.com/filmy/reco/rerank"
)

const (
	// personalizedOversample 个性化召回池倍数：给 ALS 重排留出空间
	personalizedOversample = 200

	// personalizedSeedCount 兴趣画像使用的最近交互条数
	personalizedSeedCount = 10

	// padPoolOversample 候选不足时热门补位池的倍数
	padPoolOversample = 50
)

// Personalized 是主路径推荐：
//  1. 没有任何反馈、没有可用模型、或用户不在训练索引空间 → 冷启动
//  2. 用最近 10 条交互的电影文本拼出兴趣查询做语义召回（limit*200 大池）
//  3. ALS 因子重排
//  4. 过滤生命周期内已看
//  5. 不足 limit 时按 popularity 补位（同样排除已看与已入选）
func (e *Engine) Personalized(ctx context.Context, userID int64, limit int) ([]*core.Movie, error) {
	if limit <= 0 {
		limit = 10
	}

	feedbacks, err := e.feedback.ListUserFeedback(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(feedbacks) == 0 {
		return e.ColdStart(ctx, userID, limit)
	}

	model := e.currentModel()
	if model == nil {
		e.logger.Debug("no production model, falling back to cold start", zap.Int64("user", userID))
		return e.ColdStart(ctx, userID, limit)
	}
	if _, ok := model.UserVector(userID); !ok {
		// 模型训练后才活跃的新用户
		return e.ColdStart(ctx, userID, limit)
	}

	candidates, err := e.personalizedCandidates(ctx, feedbacks, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return e.ColdStart(ctx, userID, limit)
	}

	ranked := rerank.Rerank(model, userID, candidates)

	watched := e.watchedSet(feedbacks)
	finalIDs := make([]int64, 0, len(ranked))
	for _, it := range ranked {
		if _, seen := watched[it.ID]; seen {
			continue
		}
		finalIDs = append(finalIDs, it.ID)
	}

	// 过滤后不足：热门补位
	if len(finalIDs) < limit {
		exclude := make(map[int64]struct{}, len(watched)+len(finalIDs))
		for id := range watched {
			exclude[id] = struct{}{}
		}
		for _, id := range finalIDs {
			exclude[id] = struct{}{}
		}
		pad, err := e.popularIDs(ctx, limit*padPoolOversample, exclude)
		if err != nil {
			return nil, err
		}
		need := limit - len(finalIDs)
		if len(pad) > need {
			pad = pad[:need]
		}
		finalIDs = append(finalIDs, pad...)
	}

	return e.resolveMovies(ctx, finalIDs, limit)
}

// personalizedCandidates 生成个性化候选池：
// 最近交互电影的文本拼接 → 语义召回；文本拼不出来时退化为热门池。
func (e *Engine) personalizedCandidates(ctx context.Context, feedbacks []*core.Feedback, limit int) ([]*core.Item, error) {
	recent := feedbacks
	if len(recent) > personalizedSeedCount {
		recent = recent[len(recent)-personalizedSeedCount:]
	}

	var parts []string
	for _, fb := range recent {
		m, err := e.movies.GetMovie(ctx, fb.MovieID)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		parts = append(parts,
			fmt.Sprintf("%s. %s. Genres: %s", m.Title, m.Overview, strings.Join(m.Genres, ", ")))
	}

	if len(parts) == 0 {
		items, err := e.hot.Recall(ctx, &core.RecommendContext{
			Params: map[string]any{recall.ParamLimit: limit * personalizedOversample},
		})
		if err != nil {
			return nil, err
		}
		return items, nil
	}

	src := &recall.Semantic{Index: e.index, TopK: limit * personalizedOversample}
	return src.Recall(ctx, &core.RecommendContext{
		Scene:  "personalized",
		Params: map[string]any{recall.ParamQuery: strings.Join(parts, " ")},
	})
}
