package recommend

import (
	"github.com/rushteam/decorec/core"
)

// Request 是一次列表推荐请求。UserID 为空表示匿名调用方。
type Request struct {
	UserID     string   `json:"user_id,omitempty"`
	Space      string   `json:"space" validate:"required"`
	Style      string   `json:"style" validate:"required"`
	Categories []string `json:"categories,omitempty"`

	// Expr 可选的 CEL 候选过滤表达式
	Expr string `json:"expr,omitempty"`

	Limit  int `json:"limit" validate:"gte=0"`
	Offset int `json:"offset" validate:"gte=0"`
}

// Response 是推荐结果。Total 为分页前（过滤后）的候选数，供外层设置分页头。
type Response struct {
	Mode     core.Mode       `json:"mode"`
	Products []*core.Product `json:"products"`
	Total    int             `json:"total"`

	// Items 保留打分特征与标签，便于解释
	Items []*core.Item `json:"-"`

	// DroppedLiked 历史中已无法解析的商品数（仅个性化）
	DroppedLiked int `json:"dropped_liked,omitempty"`
}
