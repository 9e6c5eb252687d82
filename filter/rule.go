package filter

import (
	"context"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/pkg/dsl"
)

// RuleFilter 是规则过滤器：用 CEL 表达式描述"保留条件"，
// 表达式求值为 false 的候选被过滤。
//
// 示例：
//   - `item.meta.release_year >= 2000`
//   - `item.score > 0.2 || label.recall_source == "recall.hot"`
type RuleFilter struct {
	// Expr CEL 表达式，空表达式不过滤任何候选
	Expr string
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	keep, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
