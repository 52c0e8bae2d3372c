package embedding

import (
	"context"
	"time"

	"github.com/rushteam/decorec/core"
)

// Guarded 给每次嵌入调用加执行超时；超时或底层非领域错误统一转为 UNAVAILABLE。
type Guarded struct {
	Next    core.Embedder
	Timeout time.Duration
}

// NewGuarded 创建超时保护装饰器，timeout <= 0 时取 10s。
func NewGuarded(next core.Embedder, timeout time.Duration) *Guarded {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Guarded{Next: next, Timeout: timeout}
}

func (g *Guarded) Model() string { return g.Next.Model() }

func (g *Guarded) Embed(ctx context.Context, text string) ([]float32, error) {
	return guard(ctx, g.Timeout, func(ctx context.Context) ([]float32, error) {
		return g.Next.Embed(ctx, text)
	})
}

func (g *Guarded) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return guard(ctx, g.Timeout, func(ctx context.Context) ([][]float32, error) {
		return g.Next.EmbedBatch(ctx, texts)
	})
}

type result[T any] struct {
	val T
	err error
}

// guard 在独立 goroutine 中执行 fn，ctx 到期即返回，不等待阻塞的推理调用。
func guard[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- result[T]{v, err}
	}()

	var zero T
	select {
	case <-ctx.Done():
		return zero, core.Unavailable(core.ModuleEmbedding, "embedding: inference timeout", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			if core.IsDomainError(r.err) {
				return zero, r.err
			}
			return zero, core.Unavailable(core.ModuleEmbedding, "embedding: inference failed", r.err)
		}
		return r.val, nil
	}
}

var _ core.Embedder = (*Guarded)(nil)
