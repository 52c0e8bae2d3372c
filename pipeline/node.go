package pipeline

import (
	"context"

	"github.com/rushteam/decorec/core"
)

// Kind 标记 Node 所处的阶段，用于日志与配置校验。
type Kind string

const (
	KindRecall Kind = "recall" // 从目录取候选（空间 + 风格 + 类别白名单）
	KindFilter Kind = "filter" // 剔除候选（排除列表、CEL 表达式）
	KindRank   Kind = "rank"   // 写入 sim / quality 特征并排序
	KindReRank Kind = "rerank" // 分页等排序后处理
)

// Node 接收候选并返回新的候选序列，可以删减、重排或写入特征。
// 实现不应保留请求间状态；请求级数据放在 RecommendContext 或节点字段里按请求构造。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// Stages 返回节点阶段序列，便于日志中输出链路形态。
func Stages(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = string(n.Kind()) + ":" + n.Name()
	}
	return out
}
