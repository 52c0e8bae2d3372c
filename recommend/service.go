// Package recommend 编排列表推荐：冷启动（按质量分）与个性化（TF-IDF 画像相似度 + 质量分融合），
// 以及基于文本相似度的相关商品。
package recommend

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/filter"
	"github.com/rushteam/decorec/label"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
	"github.com/rushteam/decorec/pkg/utils"
	"github.com/rushteam/decorec/rank"
	"github.com/rushteam/decorec/recall"
	"github.com/rushteam/decorec/rerank"
	"github.com/rushteam/decorec/tfidf"
)

// Config 推荐参数。
type Config struct {
	Alpha float64
	Beta  float64

	// Language 语料的停用词语言，必须显式配置
	Language tfidf.Language

	// IncludeTaxonomy 为 true 时语料追加空间/风格名称（画像与候选一致）
	IncludeTaxonomy bool

	DefaultLimit int
	RelatedTopN  int
}

// DefaultConfig 返回默认参数（语言除外）。
func DefaultConfig(lang tfidf.Language) Config {
	return Config{
		Alpha:        rank.DefaultAlpha,
		Beta:         rank.DefaultBeta,
		Language:     lang,
		DefaultLimit: rerank.DefaultLimit,
		RelatedTopN:  5,
	}
}

// Service 是推荐编排器，请求间无共享可变状态，可并发调用。
type Service struct {
	catalog core.CatalogStore
	history core.HistoryStore
	cfg     Config

	candidates recall.Source
	liked      *recall.Liked
	stages     *pipeline.Pipeline
	pool       *Pool
	validate   *validator.Validate
	logger     zerolog.Logger
}

// Option Service 配置选项
type Option func(*Service)

// WithPool 设置计算池；未设置时在调用方 goroutine 中计算
func WithPool(p *Pool) Option {
	return func(s *Service) { s.pool = p }
}

// WithLogger 设置 logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithStages 设置召回之后、打分之前执行的节点（通常是配置驱动的过滤器）
func WithStages(p *pipeline.Pipeline) Option {
	return func(s *Service) { s.stages = p }
}

// WithLikedActions 限定参与画像的行为类型
func WithLikedActions(actions ...core.Action) Option {
	return func(s *Service) { s.liked.Actions = actions }
}

// NewService 创建推荐编排器。cfg.Language 不受支持时返回 VALIDATION 错误。
func NewService(catalog core.CatalogStore, history core.HistoryStore, cfg Config, opts ...Option) (*Service, error) {
	lang, err := tfidf.ParseLanguage(string(cfg.Language))
	if err != nil {
		return nil, core.Validation(core.ModuleRecommend, err.Error(), languageNames())
	}
	cfg.Language = lang
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = rerank.DefaultLimit
	}
	if cfg.RelatedTopN <= 0 {
		cfg.RelatedTopN = 5
	}
	s := &Service{
		catalog:    catalog,
		history:    history,
		cfg:        cfg,
		candidates: &recall.Candidates{Catalog: catalog},
		liked:      recall.NewLiked(history, catalog),
		stages:     &pipeline.Pipeline{},
		validate:   validator.New(),
		logger:     logging.Component("recommend"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stages == nil {
		s.stages = &pipeline.Pipeline{}
	}
	s.liked.Logger = s.logger
	return s, nil
}

func languageNames() []string {
	langs := tfidf.Languages()
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return out
}

// Recommend 按状态机分派：匿名调用方走冷启动，其余走个性化（无可用历史时回退冷启动）。
func (s *Service) Recommend(ctx context.Context, req Request) (*Response, error) {
	if req.UserID == "" {
		return s.ColdStart(ctx, req)
	}
	return s.Personalized(ctx, req)
}

// ColdStart 过滤候选后按质量分降序排序并分页。
func (s *Service) ColdStart(ctx context.Context, req Request) (resp *Response, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRecommend(string(core.ModeColdStart), start, err) }()

	rctx, err := s.newContext(ctx, req, core.ModeColdStart)
	if err != nil {
		return nil, err
	}
	items, err := s.recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	ranked, err := Submit(ctx, s.pool, func(ctx context.Context) ([]*core.Item, error) {
		p := &pipeline.Pipeline{Nodes: []pipeline.Node{&rank.QualityNode{Sort: true}}}
		return p.Run(ctx, rctx, items)
	})
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}
	return s.page(ctx, rctx, ranked)
}

// Personalized 以用户偏好商品的 TF-IDF 均值向量为画像，对候选按 Alpha·sim + Beta·quality_norm 排序。
// 无可解析的偏好商品时回退 ColdStart。
func (s *Service) Personalized(ctx context.Context, req Request) (resp *Response, err error) {
	if req.UserID == "" {
		return s.ColdStart(ctx, req)
	}
	// 先校验请求与名称，保证回退前后错误语义一致
	rctx, err := s.newContext(ctx, req, core.ModePersonalized)
	if err != nil {
		return nil, err
	}

	liked, dropped, err := s.liked.Resolve(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		logging.With(ctx, s.logger).Info().Str("user_id", req.UserID).Int("dropped", dropped).
			Msg("no resolvable liked products, falling back to cold start")
		resp, err := s.ColdStart(ctx, req)
		if resp != nil {
			resp.DroppedLiked = dropped
		}
		return resp, err
	}

	start := time.Now()
	defer func() { metrics.ObserveRecommend(string(core.ModePersonalized), start, err) }()

	items, err := s.recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	corpus, err := recall.NewCorpus(ctx, s.catalog, s.cfg.IncludeTaxonomy)
	if err != nil {
		return nil, err
	}

	ranked, err := Submit(ctx, s.pool, func(ctx context.Context) ([]*core.Item, error) {
		likedMatrix, vec, err := tfidf.Fit(s.cfg.Language, corpus.Texts(liked))
		if err != nil {
			return nil, core.Validation(core.ModuleRecommend, err.Error(), languageNames())
		}
		p := &pipeline.Pipeline{Nodes: []pipeline.Node{
			&rank.SimilarityNode{Vectorizer: vec, Profile: likedMatrix.Mean(), Text: corpus.Text},
			&rank.QualityNode{},
			&rank.BlendNode{Alpha: s.cfg.Alpha, Beta: s.cfg.Beta},
		}}
		return p.Run(ctx, rctx, items)
	})
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}

	resp, err = s.page(ctx, rctx, ranked)
	if resp != nil {
		resp.DroppedLiked = dropped
	}
	return resp, err
}

// Related 返回与 productID 文本最相似的至多 topN 个商品（不含自身）；topN <= 0 时使用配置值。
func (s *Service) Related(ctx context.Context, productID string, topN int) ([]*core.Product, error) {
	if topN <= 0 {
		topN = s.cfg.RelatedTopN
	}
	all, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}
	corpus, err := recall.NewCorpus(ctx, s.catalog, s.cfg.IncludeTaxonomy)
	if err != nil {
		return nil, err
	}
	return Submit(ctx, s.pool, func(context.Context) ([]*core.Product, error) {
		return recall.Related(productID, all, topN, s.cfg.Language, corpus)
	})
}

// newContext 校验请求并把空间/风格名称解析为目录 id，任何一个无法解析都返回 NOT_FOUND。
func (s *Service) newContext(ctx context.Context, req Request, mode core.Mode) (*core.RecommendContext, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, core.Validation(core.ModuleRecommend, err.Error(), nil)
	}
	if err := label.ValidateCategories(req.Categories); err != nil {
		return nil, err
	}

	space, err := s.catalog.FindSpaceByName(ctx, req.Space)
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}
	style, err := s.catalog.FindStyleByName(ctx, req.Style)
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}
	if space == nil || style == nil {
		return nil, core.NotFound(core.ModuleRecommend, "space %q or style %q not found", req.Space, req.Style)
	}

	rctx := &core.RecommendContext{
		UserID:     req.UserID,
		Space:      req.Space,
		Style:      req.Style,
		SpaceID:    space.ID,
		StyleID:    style.ID,
		Categories: req.Categories,
		Expr:       req.Expr,
		Limit:      req.Limit,
		Offset:     req.Offset,
		Mode:       mode,
	}
	rctx.PutLabel("mode", utils.Label{Value: string(mode), Source: "recommend"})
	return rctx, nil
}

// recall 召回候选并执行召回后阶段（配置的过滤节点与请求表达式）；结果为空时返回 NOT_FOUND。
func (s *Service) recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	items, err := s.candidates.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}

	stages := s.stages
	if rctx.Expr != "" {
		f, err := filter.NewExprFilter(rctx.Expr)
		if err != nil {
			return nil, err
		}
		stages = stages.With(&filter.FilterNode{Filters: []filter.Filter{f}, Strict: true})
	}
	if len(stages.Nodes) == 0 {
		return items, nil
	}

	items, err = stages.Run(ctx, rctx, items)
	if err != nil {
		return nil, core.Propagate(core.ModuleRecommend, err)
	}
	if len(items) == 0 {
		return nil, core.NotFound(core.ModuleRecommend, "no products left for space %q and style %q after filtering", rctx.Space, rctx.Style)
	}
	return items, nil
}

func (s *Service) page(ctx context.Context, rctx *core.RecommendContext, ranked []*core.Item) (*Response, error) {
	total := len(ranked)
	paged, err := (&rerank.PageNode{DefaultLimit: s.cfg.DefaultLimit}).Process(ctx, rctx, ranked)
	if err != nil {
		return nil, err
	}
	logging.With(ctx, s.logger).Debug().Str("mode", string(rctx.Mode)).Str("space", rctx.Space).
		Str("style", rctx.Style).Int("total", total).Int("returned", len(paged)).Msg("recommendation served")
	return &Response{
		Mode:     rctx.Mode,
		Products: core.Products(paged),
		Total:    total,
		Items:    paged,
	}, nil
}
