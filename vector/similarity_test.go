package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestArgmax_FirstWins(t *testing.T) {
	assert.Equal(t, -1, Argmax(nil))
	assert.Equal(t, 1, Argmax([]float64{0.1, 0.9, 0.9, 0.2}))
	assert.Equal(t, 0, Argmax([]float64{0.5, 0.5}))
}

func TestTopK(t *testing.T) {
	scores := []float64{0.2, 0.8, 0.5, 0.8, 0.1}

	assert.Equal(t, []int{1, 3, 2}, TopK(scores, 3))
	assert.Equal(t, []int{1, 3, 2, 0, 4}, TopK(scores, 10))
	assert.Empty(t, TopK(scores, 0))
	assert.Empty(t, TopK(nil, 3))
	// 输入不被修改
	assert.Equal(t, []float64{0.2, 0.8, 0.5, 0.8, 0.1}, scores)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	assert.InDelta(t, 1, math.Sqrt(norm), 1e-6)
}
