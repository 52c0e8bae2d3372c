// Package app 根据 config.Settings 组装完整的引擎：存储、嵌入、标签注册表、分类器、
// 目录服务与推荐服务。
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/catalog"
	"github.com/rushteam/decorec/categorize"
	"github.com/rushteam/decorec/config"
	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/embedding"
	"github.com/rushteam/decorec/label"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/recommend"
	"github.com/rushteam/decorec/store"
	"github.com/rushteam/decorec/tfidf"

	_ "github.com/rushteam/decorec/config/builders"
)

// App 持有组装好的组件。用完必须 Close。
type App struct {
	Settings *config.Settings

	Store       catalog.Store
	History     core.HistoryStore
	Embedder    core.Embedder
	Registry    *label.Registry
	Categorizer *categorize.Categorizer
	Catalog     *catalog.Service
	Recommender *recommend.Service
	Pool        *recommend.Pool

	redis   *redis.Client
	logger  zerolog.Logger
	closers []func() error
}

// New 按配置组装引擎并初始化标签注册表（空目录也可以初始化，分类时才会报错）。
func New(ctx context.Context, s *config.Settings) (a *App, err error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	logging.Init(s.Logging)

	a = &App{Settings: s, logger: logging.Component("app")}
	built := a
	defer func() {
		if err != nil {
			_ = built.Close()
		}
	}()

	if err := a.initStores(ctx); err != nil {
		return nil, err
	}
	a.initEmbedder()

	a.Pool = recommend.NewPool(s.Recommend.Workers, s.Recommend.ComputeTimeout)
	a.Registry = label.NewRegistry(a.Store, a.Embedder)
	a.Categorizer = categorize.New(a.Embedder, a.Registry, a.Store,
		categorize.WithK(s.Recommend.KSpaces, s.Recommend.KStyles))

	catOpts := []catalog.Option{catalog.WithPool(a.Pool)}
	if w, ok := a.History.(core.HistoryWriter); ok {
		catOpts = append(catOpts, catalog.WithHistory(w))
	}
	a.Catalog = catalog.NewService(a.Store, a.Categorizer, a.Registry, catOpts...)

	stages, err := config.BuildPipeline(s.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	lang, err := tfidf.ParseLanguage(s.Recommend.Language)
	if err != nil {
		return nil, err
	}
	cfg := recommend.DefaultConfig(lang)
	cfg.Alpha = s.Recommend.Alpha
	cfg.Beta = s.Recommend.Beta
	cfg.IncludeTaxonomy = s.Recommend.IncludeTaxonomy
	cfg.DefaultLimit = s.Recommend.DefaultLimit
	cfg.RelatedTopN = s.Recommend.RelatedTopN
	a.Recommender, err = recommend.NewService(a.Store, a.History, cfg,
		recommend.WithPool(a.Pool), recommend.WithStages(stages))
	if err != nil {
		return nil, err
	}

	if err := a.Registry.Init(ctx); err != nil {
		return nil, fmt.Errorf("init label registry: %w", err)
	}
	a.closers = append(a.closers, func() error { a.Registry.Shutdown(); return nil })

	a.logger.Info().
		Str("store", s.Store.Driver).
		Bool("redis", s.Store.RedisAddr != "").
		Str("embedding", a.Embedder.Model()).
		Str("language", s.Recommend.Language).
		Int("workers", a.Pool.Size()).
		Strs("stages", pipeline.Stages(stages.Nodes)).
		Msg("engine ready")
	return a, nil
}

func (a *App) initStores(ctx context.Context) error {
	s := a.Settings.Store
	switch s.Driver {
	case "sqlite":
		db, err := store.NewSQLiteCatalog(s.SQLitePath, s.HistoryCap)
		if err != nil {
			return fmt.Errorf("open sqlite catalog: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.Store, a.History = db, db
	default:
		mem := store.NewMemoryCatalog()
		mem.Cap = s.HistoryCap
		a.Store, a.History = mem, mem
	}

	if s.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect redis %s: %w", s.RedisAddr, err)
	}
	a.closers = append(a.closers, client.Close)
	a.redis = client
	a.History = store.NewRedisHistory(client, s.RedisPrefix+"history:", s.HistoryCap)
	return nil
}

func (a *App) initEmbedder() {
	e := a.Settings.Embedding
	var base core.Embedder
	switch e.Provider {
	case "http":
		base = embedding.NewHTTPEmbedder(e.Endpoint, e.Model,
			embedding.WithDimension(e.Dimension),
			embedding.WithBatchSize(e.BatchSize),
			embedding.WithRateLimit(e.RatePerSec, e.Burst),
			embedding.WithBreaker(embedding.BreakerConfig{
				FailureThreshold: e.BreakerFailures,
				OpenTimeout:      e.BreakerOpenTimeout,
			}),
		)
	default:
		base = embedding.NewHashingEmbedder(e.Dimension)
	}

	if e.CacheTTL > 0 {
		var kv core.Store
		if a.redis != nil {
			kv = store.NewRedisStore(a.redis, a.Settings.Store.RedisPrefix+"embedding:")
		} else {
			kv = store.NewMemoryStore()
		}
		a.closers = append(a.closers, kv.Close)
		base = embedding.NewCachedEmbedder(base, kv, int(e.CacheTTL.Seconds()))
	}
	a.Embedder = embedding.NewGuarded(base, e.Timeout)
}

// Close 按创建的逆序释放资源。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
