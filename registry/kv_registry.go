// Package registry 实现基于 KeyValueStore 的模型注册表：
// 版本化存储、指标挂载、阶段流转与保留策略。
//
// 存储布局（以模型名 m、版本号 v 为例）：
//
//	model:{m}:seq          版本号计数器
//	model:{m}:versions     版本时间线（zset，score = 版本号）
//	model:{m}:version:{v}  版本记录（JSON）
//	model:{m}:artifact:{v} 模型 artifact（序列化字节）
//	model:{m}:production   当前 production 版本号指针
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/filmy/reco/core"
)

// KVRegistry 是 core.ModelRegistry 的 KV 实现。
// 生产环境配 RedisStore 后端，测试配 MemoryStore 后端。
//
// 写入方假定为单个训练任务（版本号分配不做跨进程互斥），
// 读取方可以任意并发。
type KVRegistry struct {
	kv core.KeyValueStore

	mu sync.Mutex // 保护 seq 分配与 production 指针流转
}

var _ core.ModelRegistry = (*KVRegistry)(nil)

func NewKVRegistry(kv core.KeyValueStore) *KVRegistry {
	return &KVRegistry{kv: kv}
}

func keySeq(model string) string        { return "model:" + model + ":seq" }
func keyTimeline(model string) string   { return "model:" + model + ":versions" }
func keyProduction(model string) string { return "model:" + model + ":production" }
func keyVersion(model string, v int64) string {
	return "model:" + model + ":version:" + strconv.FormatInt(v, 10)
}
func keyArtifact(model string, v int64) string {
	return "model:" + model + ":artifact:" + strconv.FormatInt(v, 10)
}

func (r *KVRegistry) CreateVersion(ctx context.Context, model string, metrics core.EvalMetrics, artifact []byte) (*core.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.nextVersion(ctx, model)
	if err != nil {
		return nil, err
	}

	mv := &core.ModelVersion{
		Model:     model,
		Version:   next,
		Stage:     core.StageEvaluated,
		Metrics:   metrics,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.putVersion(ctx, mv); err != nil {
		return nil, err
	}
	if err := r.kv.Set(ctx, keyArtifact(model, next), artifact); err != nil {
		return nil, fmt.Errorf("registry: save artifact v%d: %w", next, err)
	}
	if err := r.kv.ZAdd(ctx, keyTimeline(model), float64(next), strconv.FormatInt(next, 10)); err != nil {
		return nil, fmt.Errorf("registry: index version v%d: %w", next, err)
	}
	return mv, nil
}

func (r *KVRegistry) nextVersion(ctx context.Context, model string) (int64, error) {
	var cur int64
	raw, err := r.kv.Get(ctx, keySeq(model))
	switch {
	case err == nil:
		cur, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("registry: corrupt version counter: %w", err)
		}
	case core.IsStoreNotFound(err):
		cur = 0
	default:
		return 0, err
	}
	next := cur + 1
	if err := r.kv.Set(ctx, keySeq(model), []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *KVRegistry) putVersion(ctx context.Context, mv *core.ModelVersion) error {
	data, err := json.Marshal(mv)
	if err != nil {
		return fmt.Errorf("registry: marshal version: %w", err)
	}
	return r.kv.Set(ctx, keyVersion(mv.Model, mv.Version), data)
}

func (r *KVRegistry) GetVersion(ctx context.Context, model string, version int64) (*core.ModelVersion, error) {
	raw, err := r.kv.Get(ctx, keyVersion(model, version))
	if err != nil {
		return nil, err
	}
	var mv core.ModelVersion
	if err := json.Unmarshal(raw, &mv); err != nil {
		return nil, fmt.Errorf("registry: unmarshal version v%d: %w", version, err)
	}
	return &mv, nil
}

func (r *KVRegistry) ListVersions(ctx context.Context, model string) ([]*core.ModelVersion, error) {
	// 时间线按 score（版本号）降序
	members, err := r.kv.ZRange(ctx, keyTimeline(model), 0, -1)
	if err != nil {
		return nil, err
	}
	versions := make([]*core.ModelVersion, 0, len(members))
	for _, m := range members {
		v, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		mv, err := r.GetVersion(ctx, model, v)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		versions = append(versions, mv)
	}
	return versions, nil
}

func (r *KVRegistry) ProductionVersion(ctx context.Context, model string) (*core.ModelVersion, error) {
	raw, err := r.kv.Get(ctx, keyProduction(model))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.ErrNoProductionModel
		}
		return nil, err
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("registry: corrupt production pointer: %w", err)
	}
	mv, err := r.GetVersion(ctx, model, v)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.ErrNoProductionModel
		}
		return nil, err
	}
	return mv, nil
}

func (r *KVRegistry) LoadArtifact(ctx context.Context, model string, version int64) ([]byte, error) {
	return r.kv.Get(ctx, keyArtifact(model, version))
}

// PromoteIfBetter 执行晋升判定：
//   - 无 production 版本：无条件晋升
//   - 有 production 版本：要求 precision@10 严格更优且 recall@10 不回退
//
// 晋升时旧 production 转为 archived，落选候选转为 rejected。
// 整个流转在注册表写锁内完成，读取方不会观察到双 production。
func (r *KVRegistry) PromoteIfBetter(ctx context.Context, model string, version int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cand, err := r.GetVersion(ctx, model, version)
	if err != nil {
		return false, err
	}

	prod, err := r.ProductionVersion(ctx, model)
	if err != nil && !core.IsNoProductionModel(err) {
		return false, err
	}

	if prod != nil {
		better := cand.Metrics.PrecisionAt10 > prod.Metrics.PrecisionAt10 &&
			cand.Metrics.RecallAt10 >= prod.Metrics.RecallAt10
		if !better {
			cand.Stage = core.StageRejected
			if err := r.putVersion(ctx, cand); err != nil {
				return false, err
			}
			return false, nil
		}
		prod.Stage = core.StageArchived
		if err := r.putVersion(ctx, prod); err != nil {
			return false, err
		}
	}

	cand.Stage = core.StageProduction
	if err := r.putVersion(ctx, cand); err != nil {
		return false, err
	}
	if err := r.kv.Set(ctx, keyProduction(model), []byte(strconv.FormatInt(version, 10))); err != nil {
		return false, err
	}
	return true, nil
}

func (r *KVRegistry) Archive(ctx context.Context, model string, keepLastN int) error {
	versions, err := r.ListVersions(ctx, model)
	if err != nil {
		return err
	}
	for i, mv := range versions {
		if i < keepLastN || mv.Stage == core.StageProduction || mv.Stage == core.StageArchived {
			continue
		}
		mv.Stage = core.StageArchived
		if err := r.putVersion(ctx, mv); err != nil {
			return err
		}
	}
	return nil
}

func (r *KVRegistry) DeleteOld(ctx context.Context, model string, keepLastN int) error {
	versions, err := r.ListVersions(ctx, model)
	if err != nil {
		return err
	}
	for i, mv := range versions {
		if i < keepLastN || mv.Stage == core.StageProduction {
			continue
		}
		if err := r.kv.Delete(ctx, keyVersion(model, mv.Version)); err != nil {
			return err
		}
		if err := r.kv.Delete(ctx, keyArtifact(model, mv.Version)); err != nil {
			return err
		}
		if err := r.kv.ZRem(ctx, keyTimeline(model), strconv.FormatInt(mv.Version, 10)); err != nil {
			return err
		}
	}
	return nil
}
