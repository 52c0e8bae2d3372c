package recall

import (
	"context"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/pkg/utils"
)

// Source 是召回源：根据请求上下文从目录生成有序候选集。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// Candidates 按空间 id、风格 id（及可选类别白名单）从目录召回候选，保持目录顺序。
// 需要 rctx.SpaceID / rctx.StyleID 已解析；候选集为空时返回 NOT_FOUND。
type Candidates struct {
	Catalog core.CatalogStore
}

func (r *Candidates) Name() string {
	return "recall.candidates"
}

func (r *Candidates) Kind() pipeline.Kind {
	return pipeline.KindRecall
}

func (r *Candidates) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Candidates) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	products, err := r.Catalog.FindProductsBySpaceAndStyle(ctx, rctx.SpaceID, rctx.StyleID, rctx.Categories)
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}
	if len(products) == 0 {
		return nil, core.NotFound(core.ModuleRecommend, "no products found for space %q and style %q", rctx.Space, rctx.Style)
	}
	items := core.NewItems(products)
	for _, it := range items {
		it.PutLabel("recall_source", utils.Label{Value: "space_style", Source: "recall"})
	}
	return items, nil
}

var _ Source = (*Candidates)(nil)
