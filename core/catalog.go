package core

import (
	"context"
	"math"
	"strings"
	"time"
)

// Product 是家居目录中的商品。
//
// 不变式：Rating == round(mean(Reviews.Rating), 2)，ReviewCount == len(Reviews)；
// 无评论时二者均为 0。Rating/ReviewCount/Reviews 只能通过评论追加/删除修改。
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Spaces      []string  `json:"spaces"` // space id 列表
	Styles      []string  `json:"styles"` // style id 列表
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	Reviews     []Review  `json:"reviews"`
	ImageURL    string    `json:"image_url,omitempty"`
	PurchaseURL string    `json:"purchase_link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Review 是一条商品评论。
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RecomputeRating 根据 Reviews 重新计算 Rating 与 ReviewCount。
func (p *Product) RecomputeRating() {
	p.ReviewCount = len(p.Reviews)
	if p.ReviewCount == 0 {
		p.Rating = 0
		return
	}
	var sum float64
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = math.Round(sum/float64(p.ReviewCount)*100) / 100
}

// Text 按语料规则构造商品文本：name + description + category [+ 额外名称]，全部小写。
// extra 通常是已解析的 space/style 名称。
func (p *Product) Text(extra ...string) string {
	parts := make([]string, 0, 3+len(extra))
	parts = append(parts, p.Name, p.Description, p.Category)
	parts = append(parts, extra...)
	return strings.ToLower(strings.Join(parts, " "))
}

// Clone 深拷贝商品，避免存储实现与调用方共享切片。
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Spaces = append([]string(nil), p.Spaces...)
	c.Styles = append([]string(nil), p.Styles...)
	c.Reviews = append([]Review(nil), p.Reviews...)
	return &c
}

// Taxon 是空间（Space）或风格（Style）：既是目录实体，也是分类目标。
type Taxon struct {
	ID          string `json:"id"`
	Name        string `json:"name"` // 唯一
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

// Space 是使用空间，例如 "Living Room"。
type Space = Taxon

// Style 是装修风格，例如 "Modern"。
type Style = Taxon

// Action 是用户行为类型。
type Action string

const (
	ActionClick Action = "click"
	ActionLike  Action = "like"
)

// HistoryEntry 是用户行为历史中的一条记录（每个用户最多 HistoryCap 条，FIFO 淘汰）。
type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryCap 是每个用户保留的历史条数上限。
const HistoryCap = 50

// CatalogStore 是核心读取目录的接口（由 store 包实现）。
//
// 约定：
//   - FindSpaceByName / FindStyleByName / GetProduct 未命中时返回 (nil, nil)
//   - FindProductsBySpaceAndStyle 按目录顺序返回；categories 为空表示不过滤类别
type CatalogStore interface {
	FindSpaceByName(ctx context.Context, name string) (*Space, error)
	FindStyleByName(ctx context.Context, name string) (*Style, error)
	ListSpaces(ctx context.Context) ([]Space, error)
	ListStyles(ctx context.Context) ([]Style, error)
	FindProductsBySpaceAndStyle(ctx context.Context, spaceID, styleID string, categories []string) ([]*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
}

// HistoryStore 是用户行为历史接口。
type HistoryStore interface {
	// GetUserHistory 返回用户历史，按时间倒序（最新在前）
	GetUserHistory(ctx context.Context, userID string) ([]HistoryEntry, error)
}

// CatalogWriter 是目录写接口，供 catalog 协作方流程使用（非核心）。
//
// 引用完整性由实现负责：
//   - DeleteSpace/DeleteStyle 从所有商品的 Spaces/Styles 中移除该 id，其它字段不变
//   - DeleteProduct 从所有用户历史中移除该商品
type CatalogWriter interface {
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	UpdateProduct(ctx context.Context, p *Product) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateSpace(ctx context.Context, s Space) (*Space, error)
	UpdateSpace(ctx context.Context, s Space) (*Space, error)
	DeleteSpace(ctx context.Context, id string) error
	CreateStyle(ctx context.Context, s Style) (*Style, error)
	UpdateStyle(ctx context.Context, s Style) (*Style, error)
	DeleteStyle(ctx context.Context, id string) error

	AddReview(ctx context.Context, productID string, r Review) (*Product, error)
	RemoveReview(ctx context.Context, productID, reviewID string) (*Product, error)
}

// HistoryWriter 是历史写接口。AppendHistory 必须保证每用户不超过 HistoryCap 条，
// 超出时删除该用户时间戳最小的一条。
type HistoryWriter interface {
	AppendHistory(ctx context.Context, e HistoryEntry) (*HistoryEntry, error)
	DeleteUserHistory(ctx context.Context, userID string) error
}

// HistoryPruner 是可选接口：历史与目录分开存储时（如 Redis 历史 + SQLite 目录），
// 商品删除后由协作方调用 RemoveProduct 清理历史中的引用。
type HistoryPruner interface {
	RemoveProduct(ctx context.Context, productID string) error
}
