package filter

import (
	"context"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
	"github.com/rushteam/decorec/pkg/utils"
)

// Filter 判断候选商品是否应被剔除：返回 true 表示剔除。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// FilterNode 依次应用 Filters，第一个命中的过滤器决定剔除，其名字写入候选的 "filtered" 标签。
// 保留的候选维持原有顺序。
//
// Strict 为 false 时过滤器出错只记录日志、视为未命中；为 true 时中断请求。
type FilterNode struct {
	Filters []Filter
	Strict  bool
}

func (n *FilterNode) Name() string        { return "filter.node" }
func (n *FilterNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *FilterNode) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	kept := make([]*core.Item, 0, len(items))
	removed := make(map[string]int)
	for _, item := range items {
		if item == nil {
			continue
		}
		by, err := n.match(ctx, rctx, item)
		if err != nil {
			return nil, err
		}
		if by == "" {
			kept = append(kept, item)
			continue
		}
		removed[by]++
		item.PutLabel("filtered", utils.Label{Value: "true", Source: by})
	}

	for name, cnt := range removed {
		metrics.FilteredCandidates.WithLabelValues(name).Add(float64(cnt))
	}
	if len(removed) > 0 {
		logging.Ctx(ctx).Debug().Int("kept", len(kept)).Int("removed", len(items)-len(kept)).Msg("candidates filtered")
	}
	return kept, nil
}

// match 返回命中的过滤器名，未命中返回空串。
func (n *FilterNode) match(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (string, error) {
	for _, f := range n.Filters {
		hit, err := f.ShouldFilter(ctx, rctx, item)
		if err != nil {
			if n.Strict {
				return "", err
			}
			logging.Ctx(ctx).Warn().Err(err).Str("filter", f.Name()).Str("product_id", item.ID).
				Msg("filter failed, keeping candidate")
			continue
		}
		if hit {
			return f.Name(), nil
		}
	}
	return "", nil
}
