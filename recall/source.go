// Package recall 提供候选生成：语义召回、热门召回、近期行为召回，
// 以及把多个召回源并发编排的 Fanout 节点。
package recall

import (
	"context"

	"github.com/filmy/reco/core"
)

// Source 表示一个可复用的召回源（语义/热门/近期行为/...）。
// 可以把它理解为"可并发 fan-out 的策略单元"。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// 请求级 Params 的约定 key（由编排层写入，召回源读取）
const (
	// ParamQuery 查询文本（语义召回）
	ParamQuery = "query"
	// ParamLimit 召回条数上限
	ParamLimit = "limit"
	// ParamFilter 向量库过滤条件（map[string]core.FilterClause）
	ParamFilter = "filter"
)

// ParamInt 读取 Params 中的整型参数；缺失或类型不符时返回 def。
func ParamInt(rctx *core.RecommendContext, key string, def int) int {
	if rctx == nil || rctx.Params == nil {
		return def
	}
	switch v := rctx.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// ParamString 读取 Params 中的字符串参数。
func ParamString(rctx *core.RecommendContext, key string) string {
	if rctx == nil || rctx.Params == nil {
		return ""
	}
	s, _ := rctx.Params[key].(string)
	return s
}
