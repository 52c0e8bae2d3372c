// Package vector 提供稠密向量的相似度与选择算子。
//
// 平局规则固定为"目标顺序中第一个出现者优先"：Argmax 返回第一个最大下标，
// TopK 为稳定排序，分数相同时保持原始下标顺序。
package vector

import (
	"math"
	"sort"
)

// Cosine 计算两个向量的余弦相似度。任一向量模为 0 时返回 0。
// 长度不一致时按较短者计算。
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineAll 计算 query 与每个 target 的余弦相似度，顺序与 targets 一致。
func CosineAll(query []float32, targets [][]float32) []float64 {
	out := make([]float64, len(targets))
	for i, t := range targets {
		out[i] = Cosine(query, t)
	}
	return out
}

// Argmax 返回最大值下标，平局取第一个；空输入返回 -1。
func Argmax(scores []float64) int {
	if len(scores) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// TopK 返回分数最高的 k 个下标（降序），平局保持原始顺序。
// k <= 0 返回空；k 大于长度时返回全部。
func TopK(scores []float64, k int) []int {
	if k <= 0 || len(scores) == 0 {
		return []int{}
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})
	if k > len(idx) {
		k = len(idx)
	}
	return idx[:k]
}

// Normalize 返回 L2 归一化后的副本；零向量原样复制。
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		copy(out, v)
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
