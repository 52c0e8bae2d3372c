package rerank

import (
	"context"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pipeline"
)

// DefaultLimit 是未指定 limit 时的页大小。
const DefaultLimit = 10

// PageNode 按 offset/limit 截取排序后的结果，通常是 Pipeline 的最后一个节点。
//
// 取值优先使用 RecommendContext 中的 Offset/Limit：
//   - Limit <= 0 时使用 DefaultLimit（节点字段，未设置则为包级 DefaultLimit）
//   - Offset < 0 视为 0；Offset 超过结果数时返回空页
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.BlendNode{Alpha: 0.7, Beta: 0.4}, // 融合排序
//	        &rerank.PageNode{},                     // 分页
//	    },
//	}
type PageNode struct {
	DefaultLimit int
}

func (n *PageNode) Name() string {
	return "rerank.page"
}

func (n *PageNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *PageNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	var offset, limit int
	if rctx != nil {
		offset, limit = rctx.Offset, rctx.Limit
	}
	return Page(items, offset, limit, n.defaultLimit()), nil
}

func (n *PageNode) defaultLimit() int {
	if n.DefaultLimit > 0 {
		return n.DefaultLimit
	}
	return DefaultLimit
}

// Page 返回 items[offset:offset+limit]，越界部分自动截断。
func Page[T any](items []T, offset, limit, defaultLimit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
