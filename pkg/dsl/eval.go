package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/decorec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("product", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("rctx", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Expr 是编译后的候选过滤表达式，使用 CEL (Common Expression Language)。
// 编译一次，可在多个 goroutine 中并发 Match。
//
// 可用变量：
//   - product.id / name / description / price / category / spaces / styles / rating / review_count
//   - item.score / item.features
//   - rctx.user_id / space / style / params
//
// 示例：
//   - `product.price < 300.0`
//   - `product.category == "lighting" && product.rating >= 4.0`
//   - `"s1" in product.spaces`
type Expr struct {
	source string
	prg    cel.Program
}

// Compile 编译表达式。空表达式返回 (nil, nil)，表示不过滤。
func Compile(expr string) (*Expr, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Expr{source: expr, prg: prg}, nil
}

// String 返回表达式源码
func (e *Expr) String() string { return e.source }

// Match 对单个候选求值，表达式必须返回布尔值。
func (e *Expr) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if e == nil {
		return true, nil
	}
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	product := map[string]any{}
	itemMap := map[string]any{"score": 0.0, "features": map[string]float64{}}
	if item != nil {
		itemMap["score"] = item.Score
		if item.Features != nil {
			itemMap["features"] = item.Features
		}
		if p := item.Product; p != nil {
			product = map[string]any{
				"id":           p.ID,
				"name":         p.Name,
				"description":  p.Description,
				"price":        p.Price,
				"category":     p.Category,
				"spaces":       nonNil(p.Spaces),
				"styles":       nonNil(p.Styles),
				"rating":       p.Rating,
				"review_count": int64(p.ReviewCount),
			}
		}
	}

	rc := map[string]any{"user_id": "", "space": "", "style": "", "params": map[string]any{}}
	if rctx != nil {
		rc["user_id"] = rctx.UserID
		rc["space"] = rctx.Space
		rc["style"] = rctx.Style
		if rctx.Params != nil {
			rc["params"] = rctx.Params
		}
	}

	return map[string]any{
		"product": product,
		"item":    itemMap,
		"rctx":    rc,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
