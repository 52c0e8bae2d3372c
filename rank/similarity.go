package rank

import (
	"context"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/tfidf"
)

// TextFunc 构造商品的语料文本。
type TextFunc func(p *core.Product) string

// SimilarityNode 用画像所在特征空间的向量化器变换候选文本，并写入画像与每个候选的余弦相似度。
// Vectorizer 必须是拟合画像语料时得到的同一个实例（不重新拟合）。
//   - 写入 features：sim
type SimilarityNode struct {
	Vectorizer *tfidf.Vectorizer
	Profile    tfidf.Vector
	Text       TextFunc
}

func (n *SimilarityNode) Name() string        { return "rank.similarity" }
func (n *SimilarityNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *SimilarityNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Vectorizer == nil || len(items) == 0 {
		return items, nil
	}
	text := n.Text
	if text == nil {
		text = func(p *core.Product) string { return p.Text() }
	}
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = text(it.Product)
	}
	sims := tfidf.CosineRows(n.Profile, n.Vectorizer.Transform(texts))
	for i, it := range items {
		it.Features[core.FeatureSimilarity] = sims[i]
	}
	return items, nil
}
