package rank

import (
	"context"
	"sort"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/pkg/utils"
)

// 默认融合权重。Alpha + Beta 不等于 1：偏向相似度，同时不完全折损质量分。
const (
	DefaultAlpha = 0.70
	DefaultBeta  = 0.40
)

// BlendNode 融合相似度与归一化质量分：Score = Alpha·sim + Beta·quality_norm，
// 按 Score 稳定降序排序（分数相同保持候选原始顺序）。
// 依赖上游写入的 sim（SimilarityNode）与 quality_norm（QualityNode）特征，缺失按 0 处理。
type BlendNode struct {
	Alpha float64
	Beta  float64
}

func (n *BlendNode) Name() string        { return "rank.blend" }
func (n *BlendNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *BlendNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	for _, it := range items {
		it.Score = n.Alpha*it.Features[core.FeatureSimilarity] + n.Beta*it.Features[core.FeatureQualityNorm]
		it.PutLabel("rank_model", utils.Label{Value: "blend", Source: "rank"})
	}
	sortByScore(items)
	return items, nil
}

func sortByScore(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
}
