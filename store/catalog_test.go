package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/core"
)

type catalogUnderTest interface {
	core.CatalogStore
	core.CatalogWriter
	core.HistoryStore
	core.HistoryWriter
}

func catalogs(t *testing.T) map[string]func() catalogUnderTest {
	return map[string]func() catalogUnderTest{
		"memory": func() catalogUnderTest { return NewMemoryCatalog() },
		"sqlite": func() catalogUnderTest {
			s, err := NewSQLiteCatalog(filepath.Join(t.TempDir(), "catalog.db"), 0)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestCatalog_FilterBySpaceAndStyle(t *testing.T) {
	for name, newCatalog := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()

			living, err := c.CreateSpace(ctx, core.Space{Name: "Living Room", Description: "sofas and lounging"})
			require.NoError(t, err)
			modern, err := c.CreateStyle(ctx, core.Style{Name: "Modern"})
			require.NoError(t, err)

			_, err = c.CreateProduct(ctx, &core.Product{ID: "p1", Name: "Lamp", Category: "lighting",
				Spaces: []string{living.ID}, Styles: []string{modern.ID}})
			require.NoError(t, err)
			_, err = c.CreateProduct(ctx, &core.Product{ID: "p2", Name: "Sofa", Category: "sofas and armchairs",
				Spaces: []string{living.ID}, Styles: []string{modern.ID}})
			require.NoError(t, err)
			_, err = c.CreateProduct(ctx, &core.Product{ID: "p3", Name: "Bed", Category: "beds and mattresses",
				Spaces: []string{living.ID}})
			require.NoError(t, err)

			got, err := c.FindProductsBySpaceAndStyle(ctx, living.ID, modern.ID, nil)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "p1", got[0].ID)
			assert.Equal(t, "p2", got[1].ID)

			got, err = c.FindProductsBySpaceAndStyle(ctx, living.ID, modern.ID, []string{"lighting"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "p1", got[0].ID)

			found, err := c.FindSpaceByName(ctx, "Living Room")
			require.NoError(t, err)
			assert.Equal(t, living.ID, found.ID)

			missing, err := c.FindStyleByName(ctx, "Baroque")
			require.NoError(t, err)
			assert.Nil(t, missing)

			_, err = c.CreateSpace(ctx, core.Space{Name: "Living Room"})
			assert.True(t, core.IsValidation(err))

			p, err := c.GetProduct(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, p)
		})
	}
}

func TestCatalog_DeleteTaxonCascades(t *testing.T) {
	for name, newCatalog := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()

			s1, _ := c.CreateSpace(ctx, core.Space{Name: "Kitchen"})
			s2, _ := c.CreateSpace(ctx, core.Space{Name: "Office"})
			st, _ := c.CreateStyle(ctx, core.Style{Name: "Nordic"})
			_, err := c.CreateProduct(ctx, &core.Product{ID: "p1", Name: "Stool",
				Spaces: []string{s1.ID, s2.ID}, Styles: []string{st.ID}})
			require.NoError(t, err)
			_, err = c.AddReview(ctx, "p1", core.Review{UserID: "u1", Rating: 4})
			require.NoError(t, err)

			require.NoError(t, c.DeleteSpace(ctx, s1.ID))
			require.NoError(t, c.DeleteStyle(ctx, st.ID))

			p, err := c.GetProduct(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, []string{s2.ID}, p.Spaces)
			assert.Empty(t, p.Styles)
			assert.Equal(t, 4.0, p.Rating)
			assert.Equal(t, 1, p.ReviewCount)
			require.Len(t, p.Reviews, 1)
			assert.Equal(t, "Stool", p.Name)

			assert.True(t, core.IsNotFound(c.DeleteSpace(ctx, s1.ID)))
		})
	}
}

func TestCatalog_Reviews(t *testing.T) {
	for name, newCatalog := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()
			_, err := c.CreateProduct(ctx, &core.Product{ID: "p1", Name: "Rug"})
			require.NoError(t, err)

			_, err = c.AddReview(ctx, "p1", core.Review{ID: "r1", Rating: 5})
			require.NoError(t, err)
			_, err = c.AddReview(ctx, "p1", core.Review{ID: "r2", Rating: 4})
			require.NoError(t, err)
			p, err := c.AddReview(ctx, "p1", core.Review{ID: "r3", Rating: 4})
			require.NoError(t, err)
			assert.Equal(t, 4.33, p.Rating)
			assert.Equal(t, 3, p.ReviewCount)

			p, err = c.RemoveReview(ctx, "p1", "r1")
			require.NoError(t, err)
			assert.Equal(t, 4.0, p.Rating)
			assert.Equal(t, 2, p.ReviewCount)

			// UpdateProduct 不改变评论字段
			p.Name = "Wool rug"
			p.Rating = 1
			p.Reviews = nil
			p, err = c.UpdateProduct(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, "Wool rug", p.Name)
			assert.Equal(t, 4.0, p.Rating)
			assert.Len(t, p.Reviews, 2)

			_, err = c.RemoveReview(ctx, "p1", "r1")
			assert.True(t, core.IsNotFound(err))
			_, err = c.AddReview(ctx, "nope", core.Review{Rating: 1})
			assert.True(t, core.IsNotFound(err))
		})
	}
}

func TestCatalog_HistoryCapEvictsOldest(t *testing.T) {
	for name, newCatalog := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

			// 乱序写入 50 条，最旧的一条是 i == 7
			for i := 0; i < core.HistoryCap; i++ {
				ts := base.Add(time.Duration(i+1) * time.Minute)
				if i == 7 {
					ts = base
				}
				_, err := c.AppendHistory(ctx, core.HistoryEntry{ID: fmt.Sprintf("h%d", i), UserID: "u1",
					ProductID: fmt.Sprintf("p%d", i), Action: core.ActionLike, Timestamp: ts})
				require.NoError(t, err)
			}
			_, err := c.AppendHistory(ctx, core.HistoryEntry{UserID: "u2", ProductID: "x", Action: core.ActionClick, Timestamp: base})
			require.NoError(t, err)

			_, err = c.AppendHistory(ctx, core.HistoryEntry{ID: "h50", UserID: "u1", ProductID: "p50",
				Action: core.ActionClick, Timestamp: base.Add(time.Hour)})
			require.NoError(t, err)

			hist, err := c.GetUserHistory(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, hist, core.HistoryCap)
			assert.Equal(t, "h50", hist[0].ID)
			for _, e := range hist {
				assert.NotEqual(t, "h7", e.ID)
			}

			other, err := c.GetUserHistory(ctx, "u2")
			require.NoError(t, err)
			assert.Len(t, other, 1)
		})
	}
}

func TestCatalog_DeleteProductPrunesHistory(t *testing.T) {
	for name, newCatalog := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()
			_, err := c.CreateProduct(ctx, &core.Product{ID: "p1", Name: "Desk"})
			require.NoError(t, err)
			_, err = c.CreateProduct(ctx, &core.Product{ID: "p2", Name: "Chair"})
			require.NoError(t, err)
			_, err = c.AppendHistory(ctx, core.HistoryEntry{UserID: "u1", ProductID: "p1", Action: core.ActionLike})
			require.NoError(t, err)
			_, err = c.AppendHistory(ctx, core.HistoryEntry{UserID: "u1", ProductID: "p2", Action: core.ActionLike})
			require.NoError(t, err)

			require.NoError(t, c.DeleteProduct(ctx, "p1"))

			hist, err := c.GetUserHistory(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, hist, 1)
			assert.Equal(t, "p2", hist[0].ProductID)
			assert.True(t, core.IsNotFound(c.DeleteProduct(ctx, "p1")))
		})
	}
}
