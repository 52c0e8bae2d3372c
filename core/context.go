package core

import "github.com/rushteam/decorec/pkg/utils"

// Mode 是推荐状态机的状态。
type Mode string

const (
	ModeColdStart    Mode = "cold_start"
	ModePersonalized Mode = "personalized"
)

// RecommendContext 承载用户/场景/分页信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// UserID 为空表示匿名调用方，始终走冷启动
	UserID string

	// Space / Style 是调用方传入的名称；SpaceID / StyleID 是解析后的目录 id
	Space   string
	Style   string
	SpaceID string
	StyleID string

	// Categories 类别白名单（可选）
	Categories []string

	// Expr 可选的 CEL 候选过滤表达式，例如 `product.price < 300.0`
	Expr string

	Limit  int
	Offset int

	// Mode 由编排器决定
	Mode Mode

	// Labels 是请求级标签，用于解释与观测
	Labels map[string]utils.Label

	// Params 请求级参数，透传给 DSL
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
