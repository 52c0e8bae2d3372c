package recall

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
)

// Liked 从用户行为历史解析出仍然存在的偏好商品。
//
// 历史按时间倒序读取；商品按首次出现去重；已删除（无法解析）的商品 id 被丢弃并计数。
type Liked struct {
	History core.HistoryStore
	Catalog core.CatalogStore

	// Actions 参与画像的行为类型，为空表示全部行为
	Actions []core.Action

	Logger zerolog.Logger
}

// NewLiked 创建 Liked。
func NewLiked(history core.HistoryStore, catalog core.CatalogStore, actions ...core.Action) *Liked {
	return &Liked{
		History: history,
		Catalog: catalog,
		Actions: actions,
		Logger:  logging.Component("recall.liked"),
	}
}

// Resolve 返回 (偏好商品, 被丢弃的 id 数)。无历史或全部无法解析时返回空列表，不是错误。
func (l *Liked) Resolve(ctx context.Context, userID string) ([]*core.Product, int, error) {
	entries, err := l.History.GetUserHistory(ctx, userID)
	if err != nil {
		return nil, 0, core.Propagate(core.ModuleRecommend, err)
	}

	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if len(l.Actions) > 0 && !slices.Contains(l.Actions, e.Action) {
			continue
		}
		if _, ok := seen[e.ProductID]; ok {
			continue
		}
		seen[e.ProductID] = struct{}{}
		ids = append(ids, e.ProductID)
	}

	products := make([]*core.Product, 0, len(ids))
	dropped := 0
	for _, id := range ids {
		p, err := l.Catalog.GetProduct(ctx, id)
		if err != nil {
			return nil, 0, core.Propagate(core.ModuleRecommend, err)
		}
		if p == nil {
			dropped++
			continue
		}
		products = append(products, p)
	}

	if dropped > 0 {
		metrics.AddDropped("liked_product", dropped)
		logging.With(ctx, l.Logger).Warn().Str("user_id", userID).Int("dropped", dropped).
			Int("resolved", len(products)).Msg("unresolved liked products dropped")
	}
	return products, dropped, nil
}

// LikedProducts 是 NewLiked(history, catalog).Resolve 的便捷形式，包含全部行为类型。
func LikedProducts(ctx context.Context, history core.HistoryStore, catalog core.CatalogStore, userID string) ([]*core.Product, int, error) {
	return NewLiked(history, catalog).Resolve(ctx, userID)
}
