package embedding

import (
	"context"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/vector"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashingEmbedder 是离线、确定性的 Embedder：词与相邻词对经 xxhash 散列到定长桶，
// 带符号累加后做 L2 归一化。用于测试、开发以及推理服务不可用的离线任务。
type HashingEmbedder struct {
	Dimension int
}

// NewHashingEmbedder 创建 HashingEmbedder，dimension <= 0 时取 256。
func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashingEmbedder{Dimension: dimension}
}

func (h *HashingEmbedder) Model() string { return "hashing-v1" }

func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

func (h *HashingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashingEmbedder) embed(text string) []float32 {
	dim := h.Dimension
	if dim <= 0 {
		dim = 256
	}
	v := make([]float32, dim)
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	add := func(feature string, weight float32) {
		sum := xxhash.Sum64String(feature)
		idx := int(sum % uint64(dim))
		if sum>>63 == 1 {
			weight = -weight
		}
		v[idx] += weight
	}
	for i, w := range words {
		add(w, 1)
		if i > 0 {
			add(words[i-1]+" "+w, 0.5)
		}
	}
	return vector.Normalize(v)
}

var _ core.Embedder = (*HashingEmbedder)(nil)
