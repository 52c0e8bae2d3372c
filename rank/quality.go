package rank

import (
	"context"
	"strconv"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/pkg/utils"
)

// QualityScore 返回商品的原始质量分：rating × review_count（≥0，无上界）。
func QualityScore(p *core.Product) float64 {
	if p == nil {
		return 0
	}
	return p.Rating * float64(p.ReviewCount)
}

// Normalize 做 min-max 归一化到 [0,1]。
// 所有值相等（包括只有一个值）时每个结果都定义为 0。输入不被修改。
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// QualityNode 为每个候选写入原始质量分与候选集内的归一化质量分。
// Sort 为 true 时以原始质量分作为 Score 稳定降序排序（冷启动排序）。
//   - 写入 features：quality、quality_norm
//   - 写入 labels：rank_quality
type QualityNode struct {
	Sort bool
}

func (n *QualityNode) Name() string        { return "rank.quality" }
func (n *QualityNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *QualityNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	raw := make([]float64, len(items))
	for i, it := range items {
		raw[i] = QualityScore(it.Product)
	}
	norm := Normalize(raw)
	for i, it := range items {
		it.Features[core.FeatureQuality] = raw[i]
		it.Features[core.FeatureQualityNorm] = norm[i]
		if n.Sort {
			it.Score = raw[i]
			it.PutLabel("rank_quality", utils.Label{Value: strconv.FormatFloat(raw[i], 'f', 2, 64), Source: "rank"})
		}
	}
	if n.Sort {
		sortByScore(items)
	}
	return items, nil
}
