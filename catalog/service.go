// Package catalog 实现调用核心引擎的目录侧流程：商品增改时自动分类、
// 空间/风格变更后重建标签嵌入、评论与用户行为写入。
package catalog

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/categorize"
	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/label"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
	"github.com/rushteam/decorec/recommend"
)

// Store 是目录服务需要的完整存储能力。
type Store interface {
	core.CatalogStore
	core.CatalogWriter
}

// ProductInput 是商品创建/更新的入参。Category、Spaces、Styles 为空时由分类器补全。
type ProductInput struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gte=0"`
	Category    string   `json:"category"`
	Spaces      []string `json:"spaces"`
	Styles      []string `json:"styles"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url"`
	PurchaseURL string   `json:"purchase_link" validate:"omitempty,url"`
}

// TaxonInput 是空间/风格的入参。
type TaxonInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Image       string `json:"image" validate:"omitempty,url"`
}

// ReviewInput 是评论入参。
type ReviewInput struct {
	UserID   string  `json:"user_id" validate:"required"`
	Username string  `json:"username"`
	Rating   float64 `json:"rating" validate:"gte=0,lte=5"`
	Comment  string  `json:"comment"`
}

// Service 目录侧流程。
type Service struct {
	store       Store
	history     core.HistoryWriter
	pruner      core.HistoryPruner
	categorizer *categorize.Categorizer
	registry    *label.Registry
	pool        *recommend.Pool
	validate    *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// Option Service 配置选项
type Option func(*Service)

// WithHistory 设置用户行为写入端；实现 core.HistoryPruner 时商品删除会同步清理历史
func WithHistory(h core.HistoryWriter) Option {
	return func(s *Service) {
		s.history = h
		if p, ok := h.(core.HistoryPruner); ok {
			s.pruner = p
		}
	}
}

// WithPool 设置分类（嵌入推理）使用的计算池
func WithPool(p *recommend.Pool) Option {
	return func(s *Service) { s.pool = p }
}

// WithLogger 设置 logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, categorizer *categorize.Categorizer, registry *label.Registry, opts ...Option) *Service {
	s := &Service{
		store:       store,
		categorizer: categorizer,
		registry:    registry,
		validate:    validator.New(),
		logger:      logging.Component("catalog"),
		now:         time.Now,
	}
	if h, ok := store.(core.HistoryWriter); ok {
		s.history = h
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return core.Validation(core.ModuleCatalog, err.Error(), nil)
	}
	return nil
}

// CreateProduct 创建商品；省略的类别、空间、风格由分类器补全，提供的类别必须合法。
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*core.Product, error) {
	p, err := s.prepare(ctx, "", in)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	logging.With(ctx, s.logger).Info().Str("product_id", created.ID).Str("category", created.Category).
		Msg("product created")
	return created, nil
}

// UpdateProduct 整体更新商品可编辑字段，评论与评分保持不变。
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*core.Product, error) {
	old, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	if old == nil {
		return nil, core.NotFound(core.ModuleCatalog, "product %s not found", id)
	}
	p, err := s.prepare(ctx, id, in)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	return updated, nil
}

// prepare 校验入参、丢弃不存在的空间/风格 id 并按需自动分类。
func (s *Service) prepare(ctx context.Context, id string, in ProductInput) (*core.Product, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.Category != "" {
		if err := label.ValidateCategory(in.Category); err != nil {
			return nil, err
		}
	}
	p := &core.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		PurchaseURL: in.PurchaseURL,
	}

	var err error
	if p.Spaces, err = s.knownIDs(ctx, "space", in.Spaces, s.store.ListSpaces); err != nil {
		return nil, err
	}
	if p.Styles, err = s.knownIDs(ctx, "style", in.Styles, s.store.ListStyles); err != nil {
		return nil, err
	}
	if err := s.tag(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) tag(ctx context.Context, p *core.Product) error {
	tagged, err := recommend.Submit(ctx, s.pool, func(ctx context.Context) (bool, error) {
		return s.categorizer.Tag(ctx, p)
	})
	if err != nil {
		return err
	}
	if tagged {
		logging.With(ctx, s.logger).Debug().Str("product", p.Name).Str("category", p.Category).
			Strs("spaces", p.Spaces).Strs("styles", p.Styles).Msg("product auto-tagged")
	}
	return nil
}

// knownIDs 按顺序去重并丢弃目录中不存在的 id。
func (s *Service) knownIDs(
	ctx context.Context,
	kind string,
	ids []string,
	list func(context.Context) ([]core.Taxon, error),
) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := list(ctx)
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	out := make([]string, 0, len(ids))
	dropped := 0
	for _, id := range ids {
		if slices.Contains(out, id) {
			continue
		}
		if !slices.ContainsFunc(all, func(t core.Taxon) bool { return t.ID == id }) {
			dropped++
			continue
		}
		out = append(out, id)
	}
	if dropped > 0 {
		metrics.AddDropped(kind+"_id", dropped)
		logging.With(ctx, s.logger).Warn().Str("kind", kind).Int("dropped", dropped).Msg("unknown ids dropped")
	}
	return out, nil
}

// DeleteProduct 删除商品，并从所有用户历史中移除它。
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return core.Propagate(core.ModuleCatalog, err)
	}
	if s.pruner != nil {
		if err := s.pruner.RemoveProduct(ctx, id); err != nil {
			return core.Propagate(core.ModuleCatalog, err)
		}
	}
	logging.With(ctx, s.logger).Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// CreateSpace 创建空间并重建标签嵌入。重建失败时空间已写入，返回重建错误。
func (s *Service) CreateSpace(ctx context.Context, in TaxonInput) (*core.Space, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	sp, err := s.store.CreateSpace(ctx, toTaxon("", in))
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	return sp, s.rebuild(ctx, "space created")
}

func (s *Service) UpdateSpace(ctx context.Context, id string, in TaxonInput) (*core.Space, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	sp, err := s.store.UpdateSpace(ctx, toTaxon(id, in))
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	return sp, s.rebuild(ctx, "space updated")
}

// DeleteSpace 删除空间（商品中的引用被级联移除）并重建标签嵌入。
func (s *Service) DeleteSpace(ctx context.Context, id string) error {
	if err := s.store.DeleteSpace(ctx, id); err != nil {
		return core.Propagate(core.ModuleCatalog, err)
	}
	return s.rebuild(ctx, "space deleted")
}

func (s *Service) CreateStyle(ctx context.Context, in TaxonInput) (*core.Style, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	st, err := s.store.CreateStyle(ctx, toTaxon("", in))
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	return st, s.rebuild(ctx, "style created")
}

func (s *Service) UpdateStyle(ctx context.Context, id string, in TaxonInput) (*core.Style, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	st, err := s.store.UpdateStyle(ctx, toTaxon(id, in))
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	return st, s.rebuild(ctx, "style updated")
}

func (s *Service) DeleteStyle(ctx context.Context, id string) error {
	if err := s.store.DeleteStyle(ctx, id); err != nil {
		return core.Propagate(core.ModuleCatalog, err)
	}
	return s.rebuild(ctx, "style deleted")
}

func toTaxon(id string, in TaxonInput) core.Taxon {
	return core.Taxon{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Image:       in.Image,
	}
}

func (s *Service) rebuild(ctx context.Context, reason string) error {
	if s.registry == nil {
		return nil
	}
	set, err := s.registry.Rebuild(ctx)
	if err != nil {
		return err
	}
	logging.With(ctx, s.logger).Debug().Str("reason", reason).Uint64("generation", set.Generation).
		Msg("labels rebuilt after taxonomy change")
	return nil
}

// AddReview 追加评论，评分与评论数由存储层重新计算。
func (s *Service) AddReview(ctx context.Context, productID string, in ReviewInput) (*core.Product, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	p, err := s.store.AddReview(ctx, productID, core.Review{
		UserID:    in.UserID,
		Username:  in.Username,
		Rating:    in.Rating,
		Comment:   in.Comment,
		Timestamp: s.now(),
	})
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	return p, nil
}

func (s *Service) RemoveReview(ctx context.Context, productID, reviewID string) (*core.Product, error) {
	p, err := s.store.RemoveReview(ctx, productID, reviewID)
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	return p, nil
}

// RecordInteraction 记录一次用户行为（点击/喜欢），历史超出上限时淘汰最旧的一条。
func (s *Service) RecordInteraction(ctx context.Context, userID, productID string, action core.Action) (*core.HistoryEntry, error) {
	if s.history == nil {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotSupported, "history writer not configured")
	}
	if userID == "" {
		return nil, core.Validation(core.ModuleCatalog, "user_id is required", nil)
	}
	if action != core.ActionClick && action != core.ActionLike {
		return nil, core.Validation(core.ModuleCatalog, "invalid action "+`"`+string(action)+`"`,
			[]string{string(core.ActionClick), string(core.ActionLike)})
	}
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	if p == nil {
		return nil, core.NotFound(core.ModuleCatalog, "product %s not found", productID)
	}
	e, err := s.history.AppendHistory(ctx, core.HistoryEntry{
		UserID:    userID,
		ProductID: productID,
		Action:    action,
		Timestamp: s.now(),
	})
	if err != nil {
		return nil, core.Propagate(core.ModuleCatalog, err)
	}
	return e, nil
}
