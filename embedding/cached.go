package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
)

// CachedEmbedder 用 core.Store 缓存文本向量，key 为 "emb:{model}:{xxhash(text)}"。
// 缓存读写失败只记录日志，不影响推理结果。
type CachedEmbedder struct {
	Next  core.Embedder
	Store core.Store
	// TTL 秒，0 表示不过期
	TTL int

	logger zerolog.Logger
}

// NewCachedEmbedder 创建缓存装饰器。
func NewCachedEmbedder(next core.Embedder, store core.Store, ttl int) *CachedEmbedder {
	return &CachedEmbedder{
		Next:   next,
		Store:  store,
		TTL:    ttl,
		logger: logging.Component("embedding.cache"),
	}
}

func (c *CachedEmbedder) Model() string { return c.Next.Model() }

func (c *CachedEmbedder) key(text string) string {
	return "emb:" + c.Next.Model() + ":" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	cached, err := c.Store.BatchGet(ctx, keys)
	if err != nil {
		c.logger.Warn().Err(err).Str("store", c.Store.Name()).Msg("embedding cache read failed")
		cached = nil
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, k := range keys {
		if raw, ok := cached[k]; ok {
			if v, err := decodeVector(raw); err == nil {
				out[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}
	metrics.EmbeddingRequests.WithLabelValues("cache_hit").Add(float64(len(texts) - len(missIdx)))
	if len(missIdx) == 0 {
		return out, nil
	}

	fresh, err := c.Next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	kvs := make(map[string][]byte, len(fresh))
	for j, i := range missIdx {
		out[i] = fresh[j]
		kvs[keys[i]] = encodeVector(fresh[j])
	}
	if err := c.Store.BatchSet(ctx, kvs, c.TTL); err != nil {
		c.logger.Warn().Err(err).Str("store", c.Store.Name()).Msg("embedding cache write failed")
	}
	return out, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding cache: corrupt value of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

var _ core.Embedder = (*CachedEmbedder)(nil)
