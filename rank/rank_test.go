package rank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/tfidf"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"single", []float64{5}, []float64{0}},
		{"ascending", []float64{1, 2, 3}, []float64{0, 0.5, 1}},
		{"flat", []float64{7, 7, 7}, []float64{0, 0, 0}},
		{"unordered", []float64{10, 50, 5}, []float64{5.0 / 45, 1, 0}},
		{"empty", nil, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
				assert.GreaterOrEqual(t, got[i], 0.0)
				assert.LessOrEqual(t, got[i], 1.0)
			}
		})
	}
}

func TestQualityScore_Idempotent(t *testing.T) {
	products := []*core.Product{
		{ID: "a", Rating: 4.5, ReviewCount: 10},
		{ID: "b", Rating: 3, ReviewCount: 2},
		{ID: "c"},
	}
	score := func() []float64 {
		raw := make([]float64, len(products))
		for i, p := range products {
			raw[i] = QualityScore(p)
		}
		return Normalize(raw)
	}
	first := score()
	assert.Equal(t, first, score())
	assert.Equal(t, 45.0, QualityScore(products[0]))
	assert.Equal(t, 0.0, QualityScore(nil))
	assert.Equal(t, 4.5, products[0].Rating)
}

func TestQualityNode_SortsColdStart(t *testing.T) {
	items := core.NewItems([]*core.Product{
		{ID: "ten", Rating: 5, ReviewCount: 2},
		{ID: "fifty", Rating: 5, ReviewCount: 10},
		{ID: "five", Rating: 5, ReviewCount: 1},
	})
	out, err := (&QualityNode{Sort: true}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"fifty", "ten", "five"}, ids(out))
	assert.Equal(t, 1.0, out[0].Features[core.FeatureQualityNorm])
	assert.Equal(t, 0.0, out[2].Features[core.FeatureQualityNorm])
}

func TestBlendNode_EqualSimilarityPrefersQuality(t *testing.T) {
	items := core.NewItems([]*core.Product{
		{ID: "low", Rating: 2, ReviewCount: 1},
		{ID: "high", Rating: 5, ReviewCount: 20},
		{ID: "mid", Rating: 4, ReviewCount: 3},
	})
	for _, it := range items {
		it.Features[core.FeatureSimilarity] = 0.4
	}
	ctx := context.Background()
	out, err := (&QualityNode{}).Process(ctx, nil, items)
	require.NoError(t, err)
	out, err = (&BlendNode{Alpha: 0.65, Beta: 0.35}).Process(ctx, nil, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "mid", "low"}, ids(out))
}

func TestBlendNode_StableOnTies(t *testing.T) {
	items := core.NewItems([]*core.Product{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	out, err := (&BlendNode{Alpha: DefaultAlpha, Beta: DefaultBeta}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
}

func TestSimilarityAndBlend_RusticChairBeatsLamp(t *testing.T) {
	liked, vec, err := tfidf.Fit(tfidf.English, []string{"wooden dining table rustic"})
	require.NoError(t, err)

	items := core.NewItems([]*core.Product{
		{ID: "lamp", Name: "plastic outdoor lamp", Rating: 5, ReviewCount: 20},
		{ID: "chair", Name: "rustic wood dining chair", Rating: 5, ReviewCount: 1},
	})
	ctx := context.Background()
	sim := &SimilarityNode{Vectorizer: vec, Profile: liked.Mean()}
	out, err := sim.Process(ctx, nil, items)
	require.NoError(t, err)
	out, err = (&QualityNode{}).Process(ctx, nil, out)
	require.NoError(t, err)
	out, err = (&BlendNode{Alpha: 0.65, Beta: 0.35}).Process(ctx, nil, out)
	require.NoError(t, err)

	// chair: 0.65·0.7071 + 0.35·0 ≈ 0.4596；lamp: 0.65·0 + 0.35·1 = 0.35
	assert.Equal(t, []string{"chair", "lamp"}, ids(out))
	assert.InDelta(t, 0.65*0.70710678, out[0].Score, 1e-6)
	assert.InDelta(t, 0.35, out[1].Score, 1e-12)
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
