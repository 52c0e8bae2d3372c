package label

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
)

// Registry 持有进程级的当前标签集合。
//
// 生命周期：NewRegistry → Init（计算一次类别嵌入并完成首次构建）→ 若干次 Rebuild → Shutdown。
//
// 并发模型：
//   - 读：Current 通过 atomic.Pointer 读取，永远看到一代完整的 Set
//   - 写：Rebuild 由互斥锁串行化，构建完成后原子替换；不做增量修补
//   - 空间/风格新增、改名、删除后必须调用 Rebuild，否则分类会漂移到旧标签
type Registry struct {
	catalog      core.CatalogStore
	embedder     core.Embedder
	logger       zerolog.Logger
	buildTimeout time.Duration

	current    atomic.Pointer[Set]
	generation atomic.Uint64
	closed     atomic.Bool

	mu          sync.Mutex // 单写者
	categoryEmb [][]float32
	sf          singleflight.Group
}

// DefaultBuildTimeout 是 Ensure 合并构建的超时。
const DefaultBuildTimeout = 2 * time.Minute

// RegistryOption Registry 配置选项
type RegistryOption func(*Registry)

// WithRegistryLogger 设置 logger
func WithRegistryLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithBuildTimeout 设置 Ensure 合并构建的超时，<= 0 时使用 DefaultBuildTimeout
func WithBuildTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.buildTimeout = d
		}
	}
}

func NewRegistry(catalog core.CatalogStore, embedder core.Embedder, opts ...RegistryOption) *Registry {
	r := &Registry{
		catalog:      catalog,
		embedder:     embedder,
		logger:       logging.Component("label"),
		buildTimeout: DefaultBuildTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init 完成首次构建。可重复调用，已初始化时直接返回当前集合。
func (r *Registry) Init(ctx context.Context) error {
	r.closed.Store(false)
	_, err := r.Ensure(ctx)
	return err
}

// Shutdown 释放当前集合；之后 Current 返回错误，直到再次 Init。
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed.Store(true)
	r.current.Store(nil)
	r.categoryEmb = nil
	r.logger.Info().Msg("label registry shut down")
}

// Current 返回当前标签集合。
func (r *Registry) Current() (*Set, error) {
	if s := r.current.Load(); s != nil {
		return s, nil
	}
	return nil, core.InvalidCatalogState(core.ModuleLabel, "label registry not initialized")
}

// Ensure 返回当前集合；尚未构建时触发一次构建，并发调用合并为一次。
// 合并的构建脱离发起者的取消，只受 buildTimeout 约束；调用方自己的 ctx 结束时只影响它自己的等待。
func (r *Registry) Ensure(ctx context.Context) (*Set, error) {
	if s := r.current.Load(); s != nil {
		return s, nil
	}
	ch := r.sf.DoChan("ensure", func() (any, error) {
		if s := r.current.Load(); s != nil {
			return s, nil
		}
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.buildTimeout)
		defer cancel()
		return r.Rebuild(bctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Set), nil
	}
}

// Rebuild 重新从目录加载空间/风格并编码，成功后原子替换当前集合。
// 失败时保留旧集合并返回错误。
func (r *Registry) Rebuild(ctx context.Context) (*Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return nil, core.InvalidCatalogState(core.ModuleLabel, "label registry is shut down")
	}

	set, err := build(ctx, r.catalog, r.embedder, r.categoryEmb)
	if err != nil {
		metrics.LabelRebuilds.WithLabelValues("error").Inc()
		r.logger.Error().Err(err).Msg("label rebuild failed, keeping previous generation")
		return nil, err
	}
	r.categoryEmb = set.CategoryEmb
	set.Generation = r.generation.Add(1)
	r.current.Store(set)

	metrics.LabelRebuilds.WithLabelValues("ok").Inc()
	r.logger.Info().
		Uint64("generation", set.Generation).
		Int("spaces", len(set.Spaces)).
		Int("styles", len(set.Styles)).
		Str("model", set.Model).
		Msg("label embeddings rebuilt")
	return set, nil
}
