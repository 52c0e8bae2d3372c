// Package embedding 实现 core.Embedder：句向量推理服务客户端、离线散列实现、
// 基于 core.Store 的缓存装饰器以及带超时的保护装饰器。
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
)

// HTTPEmbedder 调用句向量推理服务（sentence-transformers 兼容的 REST 服务）。
//
// 请求：POST {Endpoint}/embed
//
//	{"model": "all-mpnet-base-v2", "inputs": ["text1", "text2"]}
//
// 响应：
//
//	{"embeddings": [[0.1, ...], [0.2, ...]]}
//
// 调用经过令牌桶限流（x/time/rate）和熔断器（gobreaker），熔断打开或请求失败时
// 返回 UNAVAILABLE 领域错误，由上层决定是否重试。
type HTTPEmbedder struct {
	Endpoint string

	// ModelName 模型标识，来自配置，调用方不可修改
	ModelName string

	// Dimension 期望的向量维度，0 表示不校验
	Dimension int

	// BatchSize 单次请求最多携带的文本数
	BatchSize int

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[][]float32]
	logger     zerolog.Logger
}

// HTTPOption HTTPEmbedder 配置选项
type HTTPOption func(*HTTPEmbedder)

// WithHTTPClient 设置自定义 HTTP 客户端
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEmbedder) { e.httpClient = c }
}

// WithRateLimit 设置每秒请求数与突发量，rps <= 0 表示不限流
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(e *HTTPEmbedder) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithDimension 设置期望维度
func WithDimension(dim int) HTTPOption {
	return func(e *HTTPEmbedder) { e.Dimension = dim }
}

// WithBatchSize 设置批大小
func WithBatchSize(n int) HTTPOption {
	return func(e *HTTPEmbedder) { e.BatchSize = n }
}

// WithLogger 设置 logger
func WithLogger(l zerolog.Logger) HTTPOption {
	return func(e *HTTPEmbedder) { e.logger = l }
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// WithBreaker 设置熔断参数
func WithBreaker(cfg BreakerConfig) HTTPOption {
	return func(e *HTTPEmbedder) { e.breaker = e.newBreaker(cfg) }
}

// NewHTTPEmbedder 创建推理服务客户端。
func NewHTTPEmbedder(endpoint, modelName string, opts ...HTTPOption) *HTTPEmbedder {
	e := &HTTPEmbedder{
		Endpoint:  strings.TrimRight(endpoint, "/"),
		ModelName: modelName,
		BatchSize: 32,
		logger:    logging.Component("embedding"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if e.breaker == nil {
		e.breaker = e.newBreaker(BreakerConfig{})
	}
	if e.BatchSize <= 0 {
		e.BatchSize = 32
	}
	return e
}

func (e *HTTPEmbedder) newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[[][]float32] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	return gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:        "embedding:" + e.ModelName,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("embedding circuit breaker state changed")
		},
	})
}

func (e *HTTPEmbedder) Model() string { return e.ModelName }

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.BatchSize {
		end := start + e.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.call(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type embedRequest struct {
	Model  string   `json:"model"`
	Inputs []string `json:"inputs"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *HTTPEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			metrics.EmbeddingRequests.WithLabelValues("timeout").Inc()
			return nil, core.Unavailable(core.ModuleEmbedding, "embedding: rate limit wait", err)
		}
	}

	vecs, err := e.breaker.Execute(func() ([][]float32, error) {
		return e.post(ctx, texts)
	})
	switch {
	case err == nil:
		metrics.EmbeddingRequests.WithLabelValues("ok").Inc()
		return vecs, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.EmbeddingRequests.WithLabelValues("rejected").Inc()
		return nil, core.Unavailable(core.ModuleEmbedding, "embedding: circuit open", err)
	case errors.Is(err, context.DeadlineExceeded):
		metrics.EmbeddingRequests.WithLabelValues("timeout").Inc()
		return nil, core.Unavailable(core.ModuleEmbedding, "embedding: inference timeout", err)
	default:
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		return nil, core.Unavailable(core.ModuleEmbedding, "embedding: inference failed", err)
	}
}

func (e *HTTPEmbedder) post(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.ModelName, Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(out.Embeddings))
	}
	if e.Dimension > 0 {
		for i, v := range out.Embeddings {
			if len(v) != e.Dimension {
				return nil, fmt.Errorf("embedding %d: dimension %d, want %d", i, len(v), e.Dimension)
			}
		}
	}
	return out.Embeddings, nil
}

var _ core.Embedder = (*HTTPEmbedder)(nil)
