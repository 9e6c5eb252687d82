package config

import (
	"fmt"
	"time"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/filter"
	"github.com/filmy/reco/pipeline"
	"github.com/filmy/reco/pkg/conv"
	"github.com/filmy/reco/recall"
	"github.com/filmy/reco/rerank"
	"github.com/filmy/reco/vector"
)

// Deps 是配置驱动装配所需的运行时依赖。
// 配置文件只描述节点的形态参数，索引/存储/模型这类句柄从这里注入。
type Deps struct {
	Index    *vector.MovieIndex
	Movies   core.MovieStore
	Feedback core.FeedbackStore
	KV       core.KeyValueStore
	Models   rerank.ModelProvider
}

// NewFactory 返回绑定了依赖的 NodeFactory：内置节点 + 通过 Register
// 注册的扩展节点。
func NewFactory(deps Deps) *pipeline.NodeFactory {
	f := pipeline.NewNodeFactory()

	f.Register("recall.fanout", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFanoutNode(deps, cfg)
	})
	f.Register("recall.semantic", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildSemanticNode(deps, cfg)
	})
	f.Register("recall.hot", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildHotNode(deps, cfg)
	})
	f.Register("recall.history", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildHistoryNode(deps, cfg)
	})
	f.Register("filter", buildFilterNode)
	f.Register("rerank.factors", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &rerank.FactorsNode{Provider: deps.Models}, nil
	})
	f.Register("rerank.topn", buildTopNNode)
	f.Register("rerank.diversity", buildDiversityNode)

	// 扩展节点（Register 注册的）可覆盖同名内置节点
	defaultBuildersMu.RLock()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	defaultBuildersMu.RUnlock()

	return f
}

func buildSemanticNode(deps Deps, cfg map[string]interface{}) (pipeline.Node, error) {
	if deps.Index == nil {
		return nil, fmt.Errorf("recall.semantic requires a movie index")
	}
	return &recall.Semantic{
		Index: deps.Index,
		TopK:  int(conv.ConfigGetInt64(cfg, "top_k", 0)),
	}, nil
}

func buildHotNode(deps Deps, cfg map[string]interface{}) (pipeline.Node, error) {
	return &recall.Hot{
		KV:     deps.KV,
		Key:    conv.ConfigGet(cfg, "key", ""),
		Movies: deps.Movies,
		Limit:  int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}, nil
}

func buildHistoryNode(deps Deps, cfg map[string]interface{}) (pipeline.Node, error) {
	if deps.Index == nil || deps.Movies == nil || deps.Feedback == nil {
		return nil, fmt.Errorf("recall.history requires index, movie and feedback stores")
	}
	return &recall.History{
		Index:       deps.Index,
		Movies:      deps.Movies,
		Feedback:    deps.Feedback,
		LastN:       int(conv.ConfigGetInt64(cfg, "last_n", 0)),
		PerSeedTopK: int(conv.ConfigGetInt64(cfg, "per_seed_top_k", 0)),
	}, nil
}

func buildFanoutNode(deps Deps, cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}

	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		sourceType := conv.ConfigGet(sourceMap, "type", "")
		var (
			node pipeline.Node
			err  error
		)
		switch sourceType {
		case "semantic":
			node, err = buildSemanticNode(deps, sourceMap)
		case "hot":
			node, err = buildHotNode(deps, sourceMap)
		case "history":
			node, err = buildHistoryNode(deps, sourceMap)
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
		if err != nil {
			return nil, err
		}
		src, ok := node.(recall.Source)
		if !ok {
			return nil, fmt.Errorf("source type %s is not a recall source", sourceType)
		}
		sources = append(sources, src)
	}

	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		MergeStrategy: conv.ConfigGet(cfg, "merge_strategy", ""),
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	return fanout, nil
}

func buildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "watched":
			filters = append(filters, &filter.WatchedFilter{})

		case "genre":
			genres := conv.SliceAnyToString(filterMap["genres"])
			filters = append(filters, &filter.GenreFilter{Genres: genres})

		case "rule":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule filter requires expr")
			}
			filters = append(filters, &filter.RuleFilter{Expr: expr})

		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func buildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func buildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.Diversity{
		MaxPerGenre: int(conv.ConfigGetInt64(cfg, "max_per_genre", 0)),
	}, nil
}
