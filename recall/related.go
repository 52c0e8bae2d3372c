package recall

import (
	"slices"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/tfidf"
	"github.com/rushteam/decorec/vector"
)

// Related 在 products 上拟合一个共享的 TF-IDF 语料，返回与 productID 最相似的至多 topN 个商品。
// 源商品自身总是被排除；相似度相同时保持 products 中的顺序。
// productID 不在 products 中时返回 NOT_FOUND。
func Related(productID string, products []*core.Product, topN int, lang tfidf.Language, corpus *Corpus) ([]*core.Product, error) {
	src := slices.IndexFunc(products, func(p *core.Product) bool { return p != nil && p.ID == productID })
	if src < 0 {
		return nil, core.NotFound(core.ModuleRecommend, "product %s not found", productID)
	}
	if topN <= 0 {
		return []*core.Product{}, nil
	}

	m, _, err := tfidf.Fit(lang, corpus.Texts(products))
	if err != nil {
		return nil, core.Validation(core.ModuleRecommend, err.Error(), nil)
	}
	scores := tfidf.CosineRows(m[src], m)
	// 按下标排除自身，避免与其它 1.0 相似度的商品打平时误删
	scores[src] = -1

	order := vector.TopK(scores, len(scores)-1)
	if topN < len(order) {
		order = order[:topN]
	}
	out := make([]*core.Product, 0, len(order))
	for _, i := range order {
		out = append(out, products[i])
	}
	return out, nil
}
