package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/filmy/reco/pipeline"
)

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
// 扩展节点在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type NodeBuilder = pipeline.NodeBuilder

// builtinTypes 是 NewFactory 内置注册的节点类型。
var builtinTypes = map[string]struct{}{
	"recall.fanout":    {},
	"recall.semantic":  {},
	"recall.hot":       {},
	"recall.history":   {},
	"filter":           {},
	"rerank.factors":   {},
	"rerank.topn":      {},
	"rerank.diversity": {},
}

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种扩展 Node 的构建逻辑，供 NewFactory 与配置校验使用。
// 与内置节点同名时扩展覆盖内置。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回全部可用的 Node 类型（内置 + 扩展，排序）。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(builtinTypes)+len(defaultBuilders))
	for t := range builtinTypes {
		types = append(types, t)
	}
	for t := range defaultBuilders {
		if _, ok := builtinTypes[t]; !ok {
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均可构建；
// 有未支持类型时返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	for _, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			continue
		}
		if _, ok := builtinTypes[nc.Type]; ok {
			continue
		}
		defaultBuildersMu.RLock()
		_, ok := defaultBuilders[nc.Type]
		defaultBuildersMu.RUnlock()
		if !ok {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, SupportedTypes())
		}
	}
	return nil
}
