// Package categorize 根据商品描述的语义嵌入自动标注类别、空间与风格。
package categorize

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/label"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
	"github.com/rushteam/decorec/vector"
)

// DefaultK 是空间/风格默认返回的候选数量。
const DefaultK = 3

// Result 是一次分类的结果。SpaceIDs/StyleIDs 按相似度降序，长度不超过 k；
// 名称无法解析为目录 id 时被丢弃，Dropped 记录丢弃数。
type Result struct {
	Category   string
	SpaceIDs   []string
	StyleIDs   []string
	SpaceNames []string
	StyleNames []string
	Dropped    int
}

// Categorizer 负责自动标注。嵌入模型与标签集合通过构造注入。
type Categorizer struct {
	embedder core.Embedder
	registry *label.Registry
	resolver *Resolver

	KSpaces int
	KStyles int

	logger zerolog.Logger
}

// Option Categorizer 配置选项
type Option func(*Categorizer)

// WithK 设置空间/风格的 top-k
func WithK(kSpaces, kStyles int) Option {
	return func(c *Categorizer) {
		c.KSpaces = kSpaces
		c.KStyles = kStyles
	}
}

// WithLogger 设置 logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Categorizer) { c.logger = l }
}

func New(embedder core.Embedder, registry *label.Registry, catalog core.CatalogStore, opts ...Option) *Categorizer {
	c := &Categorizer{
		embedder: embedder,
		registry: registry,
		resolver: NewResolver(catalog),
		KSpaces:  DefaultK,
		KStyles:  DefaultK,
		logger:   logging.Component("categorize"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolver 返回名称解析器
func (c *Categorizer) Resolver() *Resolver { return c.resolver }

// Categorize 对描述做一次嵌入，并在给定标签集合上打分：
//   - 类别：余弦相似度最高者，平局取目标顺序中第一个
//   - 空间/风格：余弦相似度 top-k 降序，平局保持目标顺序，再按名称精确解析为 id
//
// 空描述也会被编码，得到无阈值的最佳猜测。任一目标集合为空时返回 INVALID_CATALOG_STATE。
func (c *Categorizer) Categorize(ctx context.Context, description string, set *label.Set, kSpaces, kStyles int) (*Result, error) {
	start := time.Now()
	defer func() { metrics.CategorizeDuration.Observe(time.Since(start).Seconds()) }()

	if set == nil {
		return nil, core.InvalidCatalogState(core.ModuleCategorize, "no label set")
	}
	switch {
	case len(set.CategoryEmb) == 0:
		return nil, core.InvalidCatalogState(core.ModuleCategorize, "category target set is empty")
	case len(set.SpaceEmb) == 0:
		return nil, core.InvalidCatalogState(core.ModuleCategorize, "space target set is empty")
	case len(set.StyleEmb) == 0:
		return nil, core.InvalidCatalogState(core.ModuleCategorize, "style target set is empty")
	}

	query, err := c.embedder.Embed(ctx, description)
	if err != nil {
		return nil, core.Propagate(core.ModuleCategorize, err)
	}

	res := &Result{
		Category:   set.Categories[vector.Argmax(vector.CosineAll(query, set.CategoryEmb))],
		SpaceNames: pick(set.SpaceNames(), vector.TopK(vector.CosineAll(query, set.SpaceEmb), kSpaces)),
		StyleNames: pick(set.StyleNames(), vector.TopK(vector.CosineAll(query, set.StyleEmb), kStyles)),
	}

	var dropped int
	if res.SpaceIDs, dropped, err = c.resolver.ResolveSpaces(ctx, res.SpaceNames); err != nil {
		return nil, err
	}
	res.Dropped += dropped
	if res.StyleIDs, dropped, err = c.resolver.ResolveStyles(ctx, res.StyleNames); err != nil {
		return nil, err
	}
	res.Dropped += dropped

	logging.With(ctx, c.logger).Debug().
		Str("category", res.Category).
		Strs("spaces", res.SpaceNames).
		Strs("styles", res.StyleNames).
		Uint64("generation", set.Generation).
		Msg("categorized")
	return res, nil
}

// CategorizeText 使用注册表当前的标签集合与默认 k 进行分类。
func (c *Categorizer) CategorizeText(ctx context.Context, description string) (*Result, error) {
	set, err := c.registry.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	return c.Categorize(ctx, description, set, c.KSpaces, c.KStyles)
}

// Tag 补全商品的类别、空间与风格：
//   - Category 为空时自动分类；否则必须属于固定类别集合
//   - Spaces / Styles 为空时分别用分类结果填充
//
// 返回是否调用了分类器。
func (c *Categorizer) Tag(ctx context.Context, p *core.Product) (bool, error) {
	if p.Category != "" {
		if err := label.ValidateCategory(p.Category); err != nil {
			return false, err
		}
	}
	if p.Category != "" && len(p.Spaces) > 0 && len(p.Styles) > 0 {
		return false, nil
	}

	res, err := c.CategorizeText(ctx, p.Description)
	if err != nil {
		return false, err
	}
	if p.Category == "" {
		p.Category = res.Category
	}
	if len(p.Spaces) == 0 {
		p.Spaces = res.SpaceIDs
	}
	if len(p.Styles) == 0 {
		p.Styles = res.StyleIDs
	}
	return true, nil
}

func pick(names []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = names[j]
	}
	return out
}
