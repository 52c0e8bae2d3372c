// Package builders 注册内置 Node 的配置构建器，通过空导入启用：
//
//	import _ "github.com/rushteam/decorec/config/builders"
//
// 配置错误（缺字段、类型不符、取值越界）统一返回 config 模块的 VALIDATION 错误。
package builders

import (
	"fmt"

	"github.com/rushteam/decorec/config"
	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/filter"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/pkg/conv"
	"github.com/rushteam/decorec/rank"
	"github.com/rushteam/decorec/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("filter.expr", BuildExprFilterNode)
	config.Register("rank.quality", BuildQualityNode)
	config.Register("rank.blend", BuildBlendNode)
	config.Register("rerank.page", BuildPageNode)
}

// filterTypes 是 filter 节点内 filters[].type 的可选值。
var filterTypes = []string{"exclude", "expr"}

func invalid(node string, err error) error {
	return core.Validation(core.ModuleConfig, fmt.Sprintf("node %s: %v", node, err), nil)
}

// BuildExprFilterNode: {expr: "product.price < 300.0", strict: true}
func BuildExprFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	r := conv.NewReader(cfg)
	expr := r.String("expr", "")
	strict := r.Bool("strict", true)
	if err := r.Err(); err != nil {
		return nil, invalid("filter.expr", err)
	}
	if expr == "" {
		return nil, invalid("filter.expr", fmt.Errorf("expr is required"))
	}
	f, err := filter.NewExprFilter(expr)
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}, Strict: strict}, nil
}

// BuildFilterNode: {filters: [{type: exclude, product_ids: [...]}, {type: expr, expr: "..."}], strict: false}
func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	r := conv.NewReader(cfg)
	entries := r.Maps("filters")
	strict := r.Bool("strict", false)
	if err := r.Err(); err != nil {
		return nil, invalid("filter", err)
	}
	if len(entries) == 0 {
		return nil, invalid("filter", fmt.Errorf("filters is required"))
	}

	filters := make([]filter.Filter, 0, len(entries))
	for i, entry := range entries {
		fr := conv.NewReader(entry)
		switch typ := fr.String("type", ""); typ {
		case "exclude":
			filters = append(filters, filter.NewExcludeFilter(fr.Strings("product_ids")...))
		case "expr":
			f, err := filter.NewExprFilter(fr.String("expr", ""))
			if err != nil {
				return nil, err
			}
			if f != nil {
				filters = append(filters, f)
			}
		default:
			return nil, core.Validation(core.ModuleConfig,
				fmt.Sprintf("node filter: filters[%d] has unknown type %q", i, typ), filterTypes)
		}
		if err := fr.Err(); err != nil {
			return nil, invalid("filter", fmt.Errorf("filters[%d]: %w", i, err))
		}
	}
	return &filter.FilterNode{Filters: filters, Strict: strict}, nil
}

// BuildQualityNode: {sort: true}
func BuildQualityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	r := conv.NewReader(cfg)
	n := &rank.QualityNode{Sort: r.Bool("sort", false)}
	if err := r.Err(); err != nil {
		return nil, invalid("rank.quality", err)
	}
	return n, nil
}

// BuildBlendNode: {alpha: 0.7, beta: 0.4}
func BuildBlendNode(cfg map[string]interface{}) (pipeline.Node, error) {
	r := conv.NewReader(cfg)
	alpha := r.Float("alpha", rank.DefaultAlpha)
	beta := r.Float("beta", rank.DefaultBeta)
	if err := r.Err(); err != nil {
		return nil, invalid("rank.blend", err)
	}
	if alpha < 0 || beta < 0 {
		return nil, invalid("rank.blend", fmt.Errorf("alpha and beta must be non-negative"))
	}
	return &rank.BlendNode{Alpha: alpha, Beta: beta}, nil
}

// BuildPageNode: {default_limit: 10}
func BuildPageNode(cfg map[string]interface{}) (pipeline.Node, error) {
	r := conv.NewReader(cfg)
	limit := r.Int("default_limit", rerank.DefaultLimit)
	if err := r.Err(); err != nil {
		return nil, invalid("rerank.page", err)
	}
	if limit <= 0 {
		return nil, invalid("rerank.page", fmt.Errorf("default_limit must be positive"))
	}
	return &rerank.PageNode{DefaultLimit: limit}, nil
}
