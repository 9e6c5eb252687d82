// Package modelcache 持有服务进程内的 production 模型快照，
// 并按固定时刻的每日调度自动刷新。
//
// 读路径完全无锁：快照通过 atomic.Pointer 整体换入换出，
// 请求拿到的模型在其生命周期内不会被修改。
package modelcache

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/mf"
)

// snapshot 是一次加载的成果：版本号 + 解码后的模型。
type snapshot struct {
	version int64
	model   *mf.Model
}

// Cache 是 production 模型的进程内缓存。
type Cache struct {
	registry core.ModelRegistry
	model    string
	logger   *zap.Logger

	cur atomic.Pointer[snapshot]
}

// Option 配置 Cache。
type Option func(*Cache)

// WithLogger 注入日志器。
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New 创建模型缓存；model 是注册表中的模型名。
func New(registry core.ModelRegistry, model string, opts ...Option) *Cache {
	c := &Cache{
		registry: registry,
		model:    model,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current 返回当前快照中的模型；尚未加载过时返回 ErrNoProductionModel。
// 返回的模型是不可变快照，调用方可跨请求安全持有。
func (c *Cache) Current() (*mf.Model, error) {
	s := c.cur.Load()
	if s == nil {
		return nil, core.ErrNoProductionModel
	}
	return s.model, nil
}

// CurrentVersion 返回当前快照的版本号；未加载时返回 0。
func (c *Cache) CurrentVersion() int64 {
	s := c.cur.Load()
	if s == nil {
		return 0
	}
	return s.version
}

// Reload 无条件从注册表加载 production 版本并换入快照。
func (c *Cache) Reload(ctx context.Context) error {
	prod, err := c.registry.ProductionVersion(ctx, c.model)
	if err != nil {
		return err
	}
	artifact, err := c.registry.LoadArtifact(ctx, c.model, prod.Version)
	if err != nil {
		return err
	}
	model, err := mf.Decode(artifact)
	if err != nil {
		return err
	}
	c.cur.Store(&snapshot{version: prod.Version, model: model})
	c.logger.Info("model snapshot loaded",
		zap.String("model", c.model),
		zap.Int64("version", prod.Version),
		zap.Int("users", model.Map.NumUsers()),
		zap.Int("items", model.Map.NumItems()),
	)
	return nil
}

// CheckAndReload 比较注册表中 production 版本号与当前快照，
// 仅在版本变化时才加载（避免每日调度重复解码同一 artifact）。
// 返回是否发生了加载。
func (c *Cache) CheckAndReload(ctx context.Context) (bool, error) {
	prod, err := c.registry.ProductionVersion(ctx, c.model)
	if err != nil {
		return false, err
	}
	if s := c.cur.Load(); s != nil && s.version == prod.Version {
		return false, nil
	}
	if err := c.Reload(ctx); err != nil {
		return false, err
	}
	return true, nil
}
