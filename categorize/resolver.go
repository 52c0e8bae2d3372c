package categorize

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
)

// Resolver 把空间/风格名称解析为目录 id。
// 解析是尽力而为的：无法解析的名称被丢弃，并通过 dropped 计数返回给调用方。
type Resolver struct {
	catalog core.CatalogStore
	logger  zerolog.Logger
}

func NewResolver(catalog core.CatalogStore) *Resolver {
	return &Resolver{catalog: catalog, logger: logging.Component("categorize.resolver")}
}

// ResolveSpaces 按输入顺序把空间名称解析为 id。
func (r *Resolver) ResolveSpaces(ctx context.Context, names []string) ([]string, int, error) {
	return r.resolve(ctx, "space", names, r.catalog.FindSpaceByName)
}

// ResolveStyles 按输入顺序把风格名称解析为 id。
func (r *Resolver) ResolveStyles(ctx context.Context, names []string) ([]string, int, error) {
	return r.resolve(ctx, "style", names, r.catalog.FindStyleByName)
}

func (r *Resolver) resolve(
	ctx context.Context,
	kind string,
	names []string,
	find func(context.Context, string) (*core.Taxon, error),
) ([]string, int, error) {
	ids := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	dropped := 0
	for _, name := range names {
		t, err := find(ctx, name)
		if err != nil {
			return nil, 0, core.Propagate(core.ModuleCategorize, err)
		}
		if t == nil {
			dropped++
			continue
		}
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		ids = append(ids, t.ID)
	}
	if dropped > 0 {
		metrics.AddDropped(kind, dropped)
		r.logger.Warn().Str("kind", kind).Int("dropped", dropped).Int("resolved", len(ids)).
			Msg("unresolved names dropped")
	}
	return ids, dropped, nil
}
