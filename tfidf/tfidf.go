// Package tfidf 提供请求级的 TF-IDF 文本向量化。
//
// 与常见实现保持一致：
//   - 词元：连续 2 个及以上的字母/数字/下划线，统一小写
//   - idf：平滑 ln((1+n)/(1+df)) + 1
//   - 行向量：原始词频 × idf，再做 L2 归一化
//
// 向量化器只在一次 Fit 的语料快照上有效；画像与候选必须使用同一个向量化器 Transform，
// 才处在同一特征空间。
package tfidf

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vector 是稀疏行向量：特征下标 -> 权重。
type Vector map[int]float64

// Matrix 是按行排列的稀疏矩阵，行序与输入文本一致。
type Matrix []Vector

// Vectorizer 是在某个语料快照上拟合得到的 TF-IDF 变换。
type Vectorizer struct {
	lang  Language
	stop  map[string]struct{}
	vocab map[string]int
	terms []string
	idf   []float64
}

// Fit 在 corpus 上拟合向量化器并返回语料矩阵。
// 空语料与单文档语料都是合法输入：空语料得到空词表，Transform 结果均为零向量。
func Fit(lang Language, corpus []string) (Matrix, *Vectorizer, error) {
	stop, err := StopWords(lang)
	if err != nil {
		return nil, nil, err
	}
	v := &Vectorizer{lang: lang, stop: stop, vocab: make(map[string]int)}

	docs := make([][]string, len(corpus))
	df := make(map[string]int)
	for i, text := range corpus {
		docs[i] = v.Tokenize(text)
		seen := make(map[string]struct{}, len(docs[i]))
		for _, tok := range docs[i] {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	// 词表按字典序编号，保证同一语料得到同一特征空间
	v.terms = make([]string, 0, len(df))
	for term := range df {
		v.terms = append(v.terms, term)
	}
	sort.Strings(v.terms)

	n := float64(len(corpus))
	v.idf = make([]float64, len(v.terms))
	for i, term := range v.terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	m := make(Matrix, len(docs))
	for i, toks := range docs {
		m[i] = v.vectorize(toks)
	}
	return m, v, nil
}

// Language 返回拟合时使用的停用词语言。
func (v *Vectorizer) Language() Language { return v.lang }

// Vocabulary 返回按特征下标排列的词表副本。
func (v *Vectorizer) Vocabulary() []string {
	return append([]string(nil), v.terms...)
}

// Tokenize 小写、切词并移除停用词。
func (v *Vectorizer) Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, ok := v.stop[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Transform 用已拟合的词表与 idf 向量化样本外文本，不在词表中的词被忽略。
func (v *Vectorizer) Transform(texts []string) Matrix {
	m := make(Matrix, len(texts))
	for i, text := range texts {
		m[i] = v.vectorize(v.Tokenize(text))
	}
	return m
}

func (v *Vectorizer) vectorize(tokens []string) Vector {
	row := make(Vector)
	for _, tok := range tokens {
		if idx, ok := v.vocab[tok]; ok {
			row[idx]++
		}
	}
	var norm float64
	for idx, tf := range row {
		w := tf * v.idf[idx]
		row[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return row
	}
	norm = math.Sqrt(norm)
	for idx := range row {
		row[idx] /= norm
	}
	return row
}

// Mean 返回各行的逐元素均值（用户画像向量）。空矩阵返回空向量。
func (m Matrix) Mean() Vector {
	out := make(Vector)
	if len(m) == 0 {
		return out
	}
	for _, row := range m {
		for idx, w := range row {
			out[idx] += w
		}
	}
	n := float64(len(m))
	for idx := range out {
		out[idx] /= n
	}
	return out
}

// Cosine 计算两个稀疏向量的余弦相似度，任一为零向量时返回 0。
func Cosine(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for idx, x := range a {
		dot += x * b[idx]
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm() * b.norm())
}

// CosineRows 计算 q 与矩阵每一行的余弦相似度，顺序与行序一致。
func CosineRows(q Vector, m Matrix) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = Cosine(q, row)
	}
	return out
}

func (v Vector) norm() float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// String 便于调试输出。
func (v *Vectorizer) String() string {
	return fmt.Sprintf("tfidf.Vectorizer{lang=%s, terms=%d}", v.lang, len(v.terms))
}
