// Package trainer 是离线训练作业：拉取全量反馈 → 构建置信度矩阵 →
// ALS 训练 → leave-one-out 评估 → 登记版本 → 择优晋升 → 清理旧版本。
// 作业对注册表只做追加与阶段流转，任何一步失败都不影响线上 production 版本。
package trainer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/dataset"
	"github.com/filmy/reco/mf"
)

// Config 是一次训练作业的全部参数。
type Config struct {
	// ModelName 注册表中的模型名，默认 "implicit_als"
	ModelName string `yaml:"model_name"`

	// Factors / Regularization / Epochs ALS 超参数
	Factors        int     `yaml:"factors"`
	Regularization float64 `yaml:"regularization"`
	Epochs         int     `yaml:"epochs"`

	// Alpha 置信度系数：confidence = 1 + alpha*rating
	Alpha float64 `yaml:"alpha"`

	// EvalSampleSize / EvalSeed 评估抽样参数
	EvalSampleSize int   `yaml:"eval_sample_size"`
	EvalSeed       int64 `yaml:"eval_seed"`

	// ArchiveKeep 归档时保留的最近版本数
	ArchiveKeep int `yaml:"archive_keep"`

	// DeleteKeep 物理删除时保留的最近版本数
	DeleteKeep int `yaml:"delete_keep"`

	// MinNewFeedback 触发重训所需的新增反馈条数
	MinNewFeedback int64 `yaml:"min_new_feedback"`
}

// DefaultConfig 返回生产基线参数。
func DefaultConfig() Config {
	return Config{
		ModelName:      "implicit_als",
		Factors:        64,
		Regularization: 0.01,
		Epochs:         20,
		Alpha:          10,
		EvalSampleSize: 2000,
		EvalSeed:       7,
		ArchiveKeep:    3,
		DeleteKeep:     5,
		MinNewFeedback: 50,
	}
}

// normalize 把零值字段补成基线默认。
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.ModelName == "" {
		c.ModelName = def.ModelName
	}
	if c.Factors <= 0 {
		c.Factors = def.Factors
	}
	if c.Regularization <= 0 {
		c.Regularization = def.Regularization
	}
	if c.Epochs <= 0 {
		c.Epochs = def.Epochs
	}
	if c.Alpha <= 0 {
		c.Alpha = def.Alpha
	}
	if c.EvalSampleSize <= 0 {
		c.EvalSampleSize = def.EvalSampleSize
	}
	if c.ArchiveKeep <= 0 {
		c.ArchiveKeep = def.ArchiveKeep
	}
	if c.DeleteKeep <= 0 {
		c.DeleteKeep = def.DeleteKeep
	}
	if c.MinNewFeedback <= 0 {
		c.MinNewFeedback = def.MinNewFeedback
	}
	return c
}

// Result 是一次成功训练的摘要。
type Result struct {
	Version  *core.ModelVersion
	Promoted bool
	Metrics  core.EvalMetrics

	Users        int
	Items        int
	Interactions int
}

// Trainer 执行训练作业。
type Trainer struct {
	feedback core.FeedbackStore
	registry core.ModelRegistry
	config   Config
	logger   *zap.Logger
}

// Option 配置 Trainer。
type Option func(*Trainer)

// WithLogger 注入日志器。
func WithLogger(l *zap.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

func New(feedback core.FeedbackStore, registry core.ModelRegistry, cfg Config, opts ...Option) *Trainer {
	t := &Trainer{
		feedback: feedback,
		registry: registry,
		config:   cfg.normalize(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ShouldRetrain 判断自 since 以来的新增反馈是否达到重训阈值。
func (t *Trainer) ShouldRetrain(ctx context.Context, since time.Time) (bool, error) {
	n, err := t.feedback.CountFeedbackSince(ctx, since)
	if err != nil {
		return false, fmt.Errorf("trainer: count feedback: %w", err)
	}
	return n >= t.config.MinNewFeedback, nil
}

// Run 执行一次完整的训练作业。
// 数据集为空时返回 core.ErrEmptyDataset；任何失败路径都不会写入
// production 指针，线上继续用旧版本服务。
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	feedbacks, err := t.feedback.ListAllFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("trainer: load feedback: %w", err)
	}

	dm, m, err := dataset.Build(feedbacks, t.config.Alpha)
	if err != nil {
		return nil, err
	}
	t.logger.Info("dataset built",
		zap.Int("users", dm.NumUsers()),
		zap.Int("items", dm.NumItems()),
		zap.Int("interactions", m.NNZ()))

	model, err := mf.Fit(m, dm, mf.Options{
		Factors:        t.config.Factors,
		Regularization: t.config.Regularization,
		Epochs:         t.config.Epochs,
	})
	if err != nil {
		return nil, fmt.Errorf("trainer: fit: %w", err)
	}

	p10, r10 := mf.Evaluate(model, m, mf.EvalOptions{
		SampleSize: t.config.EvalSampleSize,
		Seed:       t.config.EvalSeed,
	})
	metrics := core.EvalMetrics{PrecisionAt10: p10, RecallAt10: r10}

	artifact, err := model.Encode()
	if err != nil {
		return nil, fmt.Errorf("trainer: encode artifact: %w", err)
	}

	version, err := t.registry.CreateVersion(ctx, t.config.ModelName, metrics, artifact)
	if err != nil {
		return nil, fmt.Errorf("trainer: register version: %w", err)
	}
	promoted, err := t.registry.PromoteIfBetter(ctx, t.config.ModelName, version.Version)
	if err != nil {
		return nil, fmt.Errorf("trainer: promote: %w", err)
	}

	// 清理失败不影响本次训练结果，只记日志
	if err := t.registry.Archive(ctx, t.config.ModelName, t.config.ArchiveKeep); err != nil {
		t.logger.Warn("archive old versions failed", zap.Error(err))
	}
	if err := t.registry.DeleteOld(ctx, t.config.ModelName, t.config.DeleteKeep); err != nil {
		t.logger.Warn("delete old versions failed", zap.Error(err))
	}

	t.logger.Info("training run finished",
		zap.String("model", t.config.ModelName),
		zap.Int64("version", version.Version),
		zap.Bool("promoted", promoted),
		zap.Float64("precision_at_10", p10),
		zap.Float64("recall_at_10", r10),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Version:      version,
		Promoted:     promoted,
		Metrics:      metrics,
		Users:        dm.NumUsers(),
		Items:        dm.NumItems(),
		Interactions: m.NNZ(),
	}, nil
}
