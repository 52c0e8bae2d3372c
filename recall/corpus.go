package recall

import (
	"context"

	"github.com/rushteam/decorec/core"
)

// Corpus 构造商品的 TF-IDF 语料文本：name + description + category，
// IncludeTaxonomy 为 true 时再追加已解析的空间与风格名称。无法解析的 id 被忽略。
type Corpus struct {
	IncludeTaxonomy bool

	spaces map[string]string
	styles map[string]string
}

// NewCorpus 创建 Corpus；includeTaxonomy 为 true 时读取一次空间/风格名称快照。
func NewCorpus(ctx context.Context, catalog core.CatalogStore, includeTaxonomy bool) (*Corpus, error) {
	c := &Corpus{IncludeTaxonomy: includeTaxonomy}
	if !includeTaxonomy {
		return c, nil
	}
	spaces, err := catalog.ListSpaces(ctx)
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}
	styles, err := catalog.ListStyles(ctx)
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}
	c.spaces = nameIndex(spaces)
	c.styles = nameIndex(styles)
	return c, nil
}

func nameIndex(ts []core.Taxon) map[string]string {
	m := make(map[string]string, len(ts))
	for _, t := range ts {
		m[t.ID] = t.Name
	}
	return m
}

// Text 返回商品的小写语料文本。
func (c *Corpus) Text(p *core.Product) string {
	if c == nil || !c.IncludeTaxonomy {
		return p.Text()
	}
	extra := make([]string, 0, len(p.Spaces)+len(p.Styles))
	for _, id := range p.Spaces {
		if name, ok := c.spaces[id]; ok {
			extra = append(extra, name)
		}
	}
	for _, id := range p.Styles {
		if name, ok := c.styles[id]; ok {
			extra = append(extra, name)
		}
	}
	return p.Text(extra...)
}

// Texts 按顺序构造多个商品的语料文本。
func (c *Corpus) Texts(products []*core.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = c.Text(p)
	}
	return out
}
