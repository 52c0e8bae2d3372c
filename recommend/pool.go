package recommend

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/metrics"
)

// Pool 是 CPU 密集计算（TF-IDF 拟合、打分、嵌入）的有界执行池。
//
// 任务在独立 goroutine 中执行，并发数由信号量限制；调用方在任务完成、
// ctx 结束或超时之间取先到者。超时后任务仍会执行完毕并释放名额，但结果被丢弃。
type Pool struct {
	sem     *semaphore.Weighted
	size    int64
	timeout time.Duration
}

// NewPool 创建执行池。workers <= 0 时取 GOMAXPROCS；timeout <= 0 表示不额外设置超时。
func NewPool(workers int, timeout time.Duration) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(workers)),
		size:    int64(workers),
		timeout: timeout,
	}
}

// Size 返回最大并发数。
func (p *Pool) Size() int { return int(p.size) }

type result[T any] struct {
	v   T
	err error
}

// Submit 在池中执行 fn 并等待结果。排队或执行超时返回 UNAVAILABLE。
// p 为 nil 时直接在当前 goroutine 执行。
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}
	var zero T
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, timeoutError("compute pool saturated", err)
	}

	done := make(chan result[T], 1)
	metrics.WorkerPoolInflight.Inc()
	go func() {
		defer func() {
			metrics.WorkerPoolInflight.Dec()
			p.sem.Release(1)
		}()
		v, err := fn(ctx)
		done <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, timeoutError("computation timed out", ctx.Err())
	}
}

func timeoutError(msg string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return core.Unavailable(core.ModuleRecommend, msg, err)
}
