package core

import (
	"context"
	"time"
)

// ModelStage 是模型版本的生命周期阶段。
// 状态机：trained → evaluated → {production | rejected} → archived/删除。
// 同一命名模型下至多一个版本处于 production。
type ModelStage string

const (
	StageTrained    ModelStage = "trained"
	StageEvaluated  ModelStage = "evaluated"
	StageProduction ModelStage = "production"
	StageRejected   ModelStage = "rejected"
	StageArchived   ModelStage = "archived"
)

// EvalMetrics 是离线评估指标（leave-one-out 排序质量）。
type EvalMetrics struct {
	PrecisionAt10 float64 `json:"precision_at_10"`
	RecallAt10    float64 `json:"recall_at_10"`
}

// ModelVersion 是一个不可变的版本记录。
type ModelVersion struct {
	Model     string      `json:"model"`   // 模型名称（如 "implicit_als"）
	Version   int64       `json:"version"` // 单调递增的版本号
	Stage     ModelStage  `json:"stage"`
	Metrics   EvalMetrics `json:"metrics"`
	CreatedAt time.Time   `json:"created_at"`
}

// ModelRegistry 是模型注册表的领域接口：版本化存储、指标挂载、
// 阶段流转、按阶段查询。
//
// 实现：
//   - registry.KVRegistry 实现此接口（基于 core.KeyValueStore，
//     生产环境用 Redis 后端，测试用内存后端）
type ModelRegistry interface {
	// CreateVersion 登记一个已评估的新版本（阶段为 evaluated），
	// 同时保存序列化的模型 artifact，返回分配的版本记录
	CreateVersion(ctx context.Context, model string, metrics EvalMetrics, artifact []byte) (*ModelVersion, error)

	// GetVersion 按版本号读取版本记录
	GetVersion(ctx context.Context, model string, version int64) (*ModelVersion, error)

	// ListVersions 返回全部版本记录，按版本号降序
	ListVersions(ctx context.Context, model string) ([]*ModelVersion, error)

	// ProductionVersion 返回当前 production 版本；
	// 不存在时返回 ErrNoProductionModel
	ProductionVersion(ctx context.Context, model string) (*ModelVersion, error)

	// LoadArtifact 读取某版本的模型 artifact
	LoadArtifact(ctx context.Context, model string, version int64) ([]byte, error)

	// PromoteIfBetter 比较候选版本与当前 production 版本的指标：
	// 无 production 时无条件晋升；否则要求 precision 严格更优且
	// recall 不回退。晋升是单次状态流转：旧 production 摘除阶段标签
	// 与新版本获得标签发生在同一逻辑操作内。落选版本转为 rejected。
	// 返回是否发生了晋升。
	PromoteIfBetter(ctx context.Context, model string, version int64) (bool, error)

	// Archive 将最近 keepLastN 个版本之外的版本转为 archived；
	// 不触碰 production 版本
	Archive(ctx context.Context, model string, keepLastN int) error

	// DeleteOld 物理删除最近 keepLastN 个版本之外的版本（含 artifact）；
	// 不触碰 production 版本
	DeleteOld(ctx context.Context, model string, keepLastN int) error
}
