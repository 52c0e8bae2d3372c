package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/logging"
)

// Pipeline 把一次推荐拆成可组合的 Node 链：过滤 → 打分 → 融合排序 → 分页。
// Pipeline 本身无状态，可在请求间复用；请求级节点（如画像相似度）按请求拼装。
type Pipeline struct {
	Nodes []Node
}

// With 返回追加了节点的新 Pipeline，不修改原 Pipeline。
func (p *Pipeline) With(nodes ...Node) *Pipeline {
	out := make([]Node, 0, len(p.Nodes)+len(nodes))
	out = append(out, p.Nodes...)
	out = append(out, nodes...)
	return &Pipeline{Nodes: out}
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	log := logging.Ctx(ctx)
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := len(cur)
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		log.Trace().Str("node", node.Name()).Str("kind", string(node.Kind())).
			Int("in", in).Int("out", len(next)).Msg("pipeline node")
		cur = next
	}
	return cur, nil
}
