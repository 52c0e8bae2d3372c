// Package label 维护分类目标：固定类别标签，以及从目录动态加载的空间/风格标签及其嵌入。
package label

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/decorec/core"
)

// Set 是一代不可变的标签嵌入集合。构建完成后只读，可被并发的分类请求共享。
type Set struct {
	Model      string
	Generation uint64
	BuiltAt    time.Time

	Categories  []string
	CategoryEmb [][]float32

	Spaces   []core.Space
	SpaceEmb [][]float32

	Styles   []core.Style
	StyleEmb [][]float32
}

// SpaceNames 按目标顺序返回空间名称。
func (s *Set) SpaceNames() []string { return names(s.Spaces) }

// StyleNames 按目标顺序返回风格名称。
func (s *Set) StyleNames() []string { return names(s.Styles) }

func names(ts []core.Taxon) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

// TargetText 构造空间/风格的嵌入目标文本："{name} {description}" 小写。
func TargetText(t core.Taxon) string {
	return strings.ToLower(strings.TrimSpace(t.Name + " " + t.Description))
}

// Load 从目录读取空间/风格并与固定类别一起编码，返回新的标签集合。
// 结果只取决于当前目录内容与固定类别列表。
func Load(ctx context.Context, catalog core.CatalogStore, embedder core.Embedder) (*Set, error) {
	return build(ctx, catalog, embedder, nil)
}

// build 构建标签集合；categoryEmb 非空时复用已有的类别嵌入。
func build(ctx context.Context, catalog core.CatalogStore, embedder core.Embedder, categoryEmb [][]float32) (*Set, error) {
	spaces, err := catalog.ListSpaces(ctx)
	if err != nil {
		return nil, core.Propagate(core.ModuleLabel, err)
	}
	styles, err := catalog.ListStyles(ctx)
	if err != nil {
		return nil, core.Propagate(core.ModuleLabel, err)
	}

	set := &Set{
		Model:       embedder.Model(),
		BuiltAt:     time.Now(),
		Categories:  append([]string(nil), Categories...),
		CategoryEmb: categoryEmb,
		Spaces:      spaces,
		Styles:      styles,
	}

	g, gctx := errgroup.WithContext(ctx)
	if set.CategoryEmb == nil {
		g.Go(func() error {
			var err error
			set.CategoryEmb, err = embedAll(gctx, embedder, set.Categories)
			return err
		})
	}
	g.Go(func() error {
		var err error
		set.SpaceEmb, err = embedAll(gctx, embedder, targetTexts(spaces))
		return err
	})
	g.Go(func() error {
		var err error
		set.StyleEmb, err = embedAll(gctx, embedder, targetTexts(styles))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

func targetTexts(ts []core.Taxon) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = TargetText(t)
	}
	return out
}

func embedAll(ctx context.Context, embedder core.Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, core.Unavailable(core.ModuleLabel, "label: embedder returned wrong batch size", nil)
	}
	return vecs, nil
}
