package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/decorec/core"
)

// MemoryCatalog 是内存实现的目录与用户历史，用于测试/开发。
// 目录顺序为插入顺序；读接口返回深拷贝。
type MemoryCatalog struct {
	mu sync.RWMutex

	products   map[string]*core.Product
	productIDs []string
	spaces     []core.Space
	styles     []core.Style
	history    map[string][]core.HistoryEntry

	// Cap 每用户历史上限，默认 core.HistoryCap
	Cap int

	now func() time.Time
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products: make(map[string]*core.Product),
		history:  make(map[string][]core.HistoryEntry),
		Cap:      core.HistoryCap,
		now:      time.Now,
	}
}

var (
	_ core.CatalogStore  = (*MemoryCatalog)(nil)
	_ core.CatalogWriter = (*MemoryCatalog)(nil)
	_ core.HistoryStore  = (*MemoryCatalog)(nil)
	_ core.HistoryWriter = (*MemoryCatalog)(nil)
)

func findTaxon(list []core.Taxon, pred func(core.Taxon) bool) int {
	return slices.IndexFunc(list, pred)
}

func (m *MemoryCatalog) FindSpaceByName(_ context.Context, name string) (*core.Space, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := findTaxon(m.spaces, func(t core.Taxon) bool { return t.Name == name }); i >= 0 {
		s := m.spaces[i]
		return &s, nil
	}
	return nil, nil
}

func (m *MemoryCatalog) FindStyleByName(_ context.Context, name string) (*core.Style, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := findTaxon(m.styles, func(t core.Taxon) bool { return t.Name == name }); i >= 0 {
		s := m.styles[i]
		return &s, nil
	}
	return nil, nil
}

func (m *MemoryCatalog) ListSpaces(_ context.Context) ([]core.Space, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.spaces), nil
}

func (m *MemoryCatalog) ListStyles(_ context.Context) ([]core.Style, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.styles), nil
}

func (m *MemoryCatalog) FindProductsBySpaceAndStyle(_ context.Context, spaceID, styleID string, categories []string) ([]*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Product, 0)
	for _, id := range m.productIDs {
		p := m.products[id]
		if !slices.Contains(p.Spaces, spaceID) || !slices.Contains(p.Styles, styleID) {
			continue
		}
		if len(categories) > 0 && !slices.Contains(categories, p.Category) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *MemoryCatalog) GetProduct(_ context.Context, id string) (*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.products[id]; ok {
		return p.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryCatalog) ListProducts(_ context.Context) ([]*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Product, 0, len(m.productIDs))
	for _, id := range m.productIDs {
		out = append(out, m.products[id].Clone())
	}
	return out, nil
}

func (m *MemoryCatalog) CreateProduct(_ context.Context, p *core.Product) (*core.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := p.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := m.products[c.ID]; ok {
		return nil, core.Validation(core.ModuleStore, "product "+c.ID+" already exists", nil)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	c.RecomputeRating()
	m.products[c.ID] = c
	m.productIDs = append(m.productIDs, c.ID)
	return c.Clone(), nil
}

func (m *MemoryCatalog) UpdateProduct(_ context.Context, p *core.Product) (*core.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.products[p.ID]
	if !ok {
		return nil, core.NotFound(core.ModuleStore, "product %s not found", p.ID)
	}
	c := p.Clone()
	// 评论相关字段只能经由 AddReview/RemoveReview 修改
	c.Reviews = slices.Clone(old.Reviews)
	c.Rating = old.Rating
	c.ReviewCount = old.ReviewCount
	c.CreatedAt = old.CreatedAt
	m.products[c.ID] = c
	return c.Clone(), nil
}

func (m *MemoryCatalog) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return core.NotFound(core.ModuleStore, "product %s not found", id)
	}
	delete(m.products, id)
	m.productIDs = slices.DeleteFunc(m.productIDs, func(s string) bool { return s == id })
	for uid, entries := range m.history {
		m.history[uid] = slices.DeleteFunc(entries, func(e core.HistoryEntry) bool { return e.ProductID == id })
	}
	return nil
}

func createTaxon(list *[]core.Taxon, kind string, t core.Taxon) (*core.Taxon, error) {
	if findTaxon(*list, func(x core.Taxon) bool { return x.Name == t.Name }) >= 0 {
		return nil, core.Validation(core.ModuleStore, kind+" name "+t.Name+" already exists", nil)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	*list = append(*list, t)
	return &t, nil
}

func updateTaxon(list []core.Taxon, kind string, t core.Taxon) (*core.Taxon, error) {
	i := findTaxon(list, func(x core.Taxon) bool { return x.ID == t.ID })
	if i < 0 {
		return nil, core.NotFound(core.ModuleStore, "%s %s not found", kind, t.ID)
	}
	if findTaxon(list, func(x core.Taxon) bool { return x.Name == t.Name && x.ID != t.ID }) >= 0 {
		return nil, core.Validation(core.ModuleStore, kind+" name "+t.Name+" already exists", nil)
	}
	list[i] = t
	return &t, nil
}

func (m *MemoryCatalog) CreateSpace(_ context.Context, s core.Space) (*core.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return createTaxon(&m.spaces, "space", s)
}

func (m *MemoryCatalog) UpdateSpace(_ context.Context, s core.Space) (*core.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return updateTaxon(m.spaces, "space", s)
}

func (m *MemoryCatalog) DeleteSpace(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := findTaxon(m.spaces, func(x core.Taxon) bool { return x.ID == id })
	if i < 0 {
		return core.NotFound(core.ModuleStore, "space %s not found", id)
	}
	m.spaces = slices.Delete(m.spaces, i, i+1)
	for _, p := range m.products {
		p.Spaces = slices.DeleteFunc(p.Spaces, func(s string) bool { return s == id })
	}
	return nil
}

func (m *MemoryCatalog) CreateStyle(_ context.Context, s core.Style) (*core.Style, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return createTaxon(&m.styles, "style", s)
}

func (m *MemoryCatalog) UpdateStyle(_ context.Context, s core.Style) (*core.Style, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return updateTaxon(m.styles, "style", s)
}

func (m *MemoryCatalog) DeleteStyle(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := findTaxon(m.styles, func(x core.Taxon) bool { return x.ID == id })
	if i < 0 {
		return core.NotFound(core.ModuleStore, "style %s not found", id)
	}
	m.styles = slices.Delete(m.styles, i, i+1)
	for _, p := range m.products {
		p.Styles = slices.DeleteFunc(p.Styles, func(s string) bool { return s == id })
	}
	return nil
}

func (m *MemoryCatalog) AddReview(_ context.Context, productID string, r core.Review) (*core.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, core.NotFound(core.ModuleStore, "product %s not found", productID)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = m.now()
	}
	p.Reviews = append(p.Reviews, r)
	p.RecomputeRating()
	return p.Clone(), nil
}

func (m *MemoryCatalog) RemoveReview(_ context.Context, productID, reviewID string) (*core.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, core.NotFound(core.ModuleStore, "product %s not found", productID)
	}
	i := slices.IndexFunc(p.Reviews, func(r core.Review) bool { return r.ID == reviewID })
	if i < 0 {
		return nil, core.NotFound(core.ModuleStore, "review %s not found", reviewID)
	}
	p.Reviews = slices.Delete(p.Reviews, i, i+1)
	p.RecomputeRating()
	return p.Clone(), nil
}

// GetUserHistory 按时间倒序返回。
func (m *MemoryCatalog) GetUserHistory(_ context.Context, userID string) ([]core.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.history[userID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// AppendHistory 写入一条历史；达到上限时先删除该用户时间戳最小的一条。
func (m *MemoryCatalog) AppendHistory(_ context.Context, e core.HistoryEntry) (*core.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now()
	}
	capacity := m.Cap
	if capacity <= 0 {
		capacity = core.HistoryCap
	}
	entries := m.history[e.UserID]
	for len(entries) >= capacity {
		oldest := 0
		for i := range entries {
			if entries[i].Timestamp.Before(entries[oldest].Timestamp) {
				oldest = i
			}
		}
		entries = slices.Delete(entries, oldest, oldest+1)
	}
	m.history[e.UserID] = append(entries, e)
	return &e, nil
}

func (m *MemoryCatalog) DeleteUserHistory(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, userID)
	return nil
}
