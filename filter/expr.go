package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式筛选候选：表达式为 true 的商品保留，false 的被过滤。
//
// 示例：`product.price < 300.0`、`product.rating >= 4.0 && "s1" in product.spaces`
type ExprFilter struct {
	expr *dsl.Expr
}

// NewExprFilter 编译表达式；空表达式返回 (nil, nil)。
func NewExprFilter(expr string) (*ExprFilter, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.Validation(core.ModuleRecommend, fmt.Sprintf("invalid filter expression %q: %v", expr, err), nil)
	}
	if e == nil {
		return nil, nil
	}
	return &ExprFilter{expr: e}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	keep, err := f.expr.Match(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
