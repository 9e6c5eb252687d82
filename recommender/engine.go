// Package recommender 是推荐引擎的编排层：五种请求形态
// （冷启动/个性化/近期行为/条件检索/相似电影）各自组合
// 召回 → 过滤 → 重排 → 截断的流水线并解析最终电影列表。
package recommender

import (
	"context"

	"go.uber.org/zap"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/mf"
	"github.com/filmy/reco/recall"
	"github.com/filmy/reco/vector"
)

// ModelProvider 提供当前可用的模型快照（通常是 modelcache.Cache）。
type ModelProvider interface {
	Current() (*mf.Model, error)
}

// Engine 是推荐编排器。所有依赖都是领域接口，
// 生产装配 Redis/Qdrant/OpenAI，测试装配内存实现。
type Engine struct {
	movies   core.MovieStore
	users    core.UserStore
	feedback core.FeedbackStore
	index    *vector.MovieIndex
	models   ModelProvider
	hot      *recall.Hot
	logger   *zap.Logger
}

// Option 配置 Engine。
type Option func(*Engine)

// WithModels 注入模型快照来源；不注入时所有个性化重排恒等回退。
func WithModels(p ModelProvider) Option {
	return func(e *Engine) { e.models = p }
}

// WithHotSource 注入热门召回源（带离线热榜的场合）；
// 不注入时直接按目录 popularity 兜底。
func WithHotSource(h *recall.Hot) Option {
	return func(e *Engine) { e.hot = h }
}

// WithLogger 注入日志器。
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(
	movies core.MovieStore,
	users core.UserStore,
	feedback core.FeedbackStore,
	index *vector.MovieIndex,
	opts ...Option,
) *Engine {
	e := &Engine{
		movies:   movies,
		users:    users,
		feedback: feedback,
		index:    index,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.hot == nil {
		e.hot = &recall.Hot{Movies: movies}
	}
	return e
}

// currentModel 返回当前模型快照；没有 production 模型时返回 nil。
func (e *Engine) currentModel() *mf.Model {
	if e.models == nil {
		return nil
	}
	model, err := e.models.Current()
	if err != nil {
		return nil
	}
	return model
}

// watchedSet 返回用户生命周期内交互过的全部电影 ID。
func (e *Engine) watchedSet(feedbacks []*core.Feedback) map[int64]struct{} {
	watched := make(map[int64]struct{}, len(feedbacks))
	for _, fb := range feedbacks {
		watched[fb.MovieID] = struct{}{}
	}
	return watched
}

// resolveMovies 把 ID 序列解析为电影对象，目录缺失的 ID 静默跳过。
func (e *Engine) resolveMovies(ctx context.Context, ids []int64, limit int) ([]*core.Movie, error) {
	out := make([]*core.Movie, 0, limit)
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		m, err := e.movies.GetMovie(ctx, id)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// popularIDs 返回 popularity 降序的电影 ID 池，排除 exclude 中的 ID。
func (e *Engine) popularIDs(ctx context.Context, pool int, exclude map[int64]struct{}) ([]int64, error) {
	movies, err := e.movies.ListMovies(ctx, 0, pool)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(movies))
	for _, m := range movies {
		if _, skip := exclude[m.ID]; skip {
			continue
		}
		out = append(out, m.ID)
	}
	return out, nil
}

func itemIDs(items []*core.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
