package catalog

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/label"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
)

// EnrichReport 是一次批量补全的统计。
type EnrichReport struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// NeedsEnrichment 判断商品是否缺少类别、空间或风格，或类别不在固定集合内（历史数据）。
func NeedsEnrichment(p *core.Product) bool {
	return !label.IsCategory(p.Category) || len(p.Spaces) == 0 || len(p.Styles) == 0
}

// EnrichMissing 对需要补全的商品重新分类并回写，已有的合法字段保持不变；
// 不在固定集合内的类别会被清空后重新分类。
// 单个商品失败只计数并记录日志；ctx 结束时返回 ctx 错误。
// concurrency <= 0 时为 1。
func (s *Service) EnrichMissing(ctx context.Context, concurrency int) (*EnrichReport, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var updated, failed atomic.Int64
	log := logging.With(ctx, s.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, p := range products {
		if !NeedsEnrichment(p) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if p.Category != "" && !label.IsCategory(p.Category) {
				log.Info().Str("product_id", p.ID).Str("category", p.Category).Msg("enrich: replacing unknown category")
				metrics.AddDropped("category", 1)
				p.Category = ""
			}
			if err := s.tag(gctx, p); err != nil {
				failed.Add(1)
				log.Warn().Err(err).Str("product_id", p.ID).Msg("enrich: categorize failed")
				return nil
			}
			if _, err := s.store.UpdateProduct(gctx, p); err != nil {
				failed.Add(1)
				log.Warn().Err(err).Str("product_id", p.ID).Msg("enrich: update failed")
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &EnrichReport{Scanned: len(products), Updated: int(updated.Load()), Failed: int(failed.Load())}
	log.Info().Int("scanned", report.Scanned).Int("updated", report.Updated).Int("failed", report.Failed).
		Msg("enrich finished")
	return report, nil
}
