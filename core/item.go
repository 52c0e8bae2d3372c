package core

import "github.com/rushteam/decorec/pkg/utils"

// 常用特征 key
const (
	FeatureSimilarity   = "sim"          // 用户画像与商品的 TF-IDF 余弦相似度
	FeatureQuality      = "quality"      // rating × review_count（原始值）
	FeatureQualityNorm  = "quality_norm" // 归一化后的质量分 [0,1]
	FeatureRelatedScore = "related_sim"  // 相关商品相似度
)

// Item 是推荐链路中的统一承载结构：商品、分数、特征、标签。
// Labels 用于解释与观测；Score 用于排序决策。
type Item struct {
	ID       string
	Product  *Product
	Score    float64
	Features map[string]float64
	Labels   map[string]utils.Label
}

func NewItem(p *Product) *Item {
	return &Item{
		ID:       p.ID,
		Product:  p,
		Features: make(map[string]float64),
		Labels:   make(map[string]utils.Label),
	}
}

// NewItems 按顺序把商品包装为 Item。
func NewItems(products []*Product) []*Item {
	out := make([]*Item, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		out = append(out, NewItem(p))
	}
	return out
}

// Products 按顺序取回 Item 承载的商品。
func Products(items []*Item) []*Product {
	out := make([]*Product, 0, len(items))
	for _, it := range items {
		if it == nil || it.Product == nil {
			continue
		}
		out = append(out, it.Product)
	}
	return out
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
