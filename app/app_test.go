package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/catalog"
	"github.com/rushteam/decorec/config"
	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/recommend"
)

func settings(t *testing.T) *config.Settings {
	t.Helper()
	s := config.Default()
	s.Recommend.Language = "english"
	s.Logging.Level = "error"
	s.Embedding.Dimension = 64
	return s
}

func seed(t *testing.T, a *App) {
	t.Helper()
	ctx := context.Background()
	_, err := a.Catalog.CreateSpace(ctx, catalog.TaxonInput{Name: "Living Room", Description: "sofa armchair"})
	require.NoError(t, err)
	_, err = a.Catalog.CreateStyle(ctx, catalog.TaxonInput{Name: "Rustic", Description: "wood farmhouse"})
	require.NoError(t, err)
}

func runScenario(t *testing.T, a *App) {
	t.Helper()
	const decor = "home decor and accessories"
	ctx := context.Background()
	seed(t, a)

	sofa, err := a.Catalog.CreateProduct(ctx, catalog.ProductInput{Name: "Rustic wooden sofa", Description: "solid wood sofa", Category: decor, Price: 700})
	require.NoError(t, err)
	lamp, err := a.Catalog.CreateProduct(ctx, catalog.ProductInput{Name: "Brass lamp", Description: "reading lamp", Category: decor, Price: 90})
	require.NoError(t, err)
	table, err := a.Catalog.CreateProduct(ctx, catalog.ProductInput{Name: "Wooden coffee table", Description: "rustic wood table", Category: decor, Price: 250})
	require.NoError(t, err)
	_, err = a.Catalog.AddReview(ctx, lamp.ID, catalog.ReviewInput{UserID: "u9", Rating: 5})
	require.NoError(t, err)

	req := recommend.Request{Space: "Living Room", Style: "Rustic"}
	resp, err := a.Recommender.Recommend(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, core.ModeColdStart, resp.Mode)
	require.Len(t, resp.Products, 3)
	assert.Equal(t, lamp.ID, resp.Products[0].ID)

	_, err = a.Catalog.RecordInteraction(ctx, "u1", sofa.ID, core.ActionLike)
	require.NoError(t, err)
	req.UserID = "u1"
	resp, err = a.Recommender.Recommend(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, core.ModePersonalized, resp.Mode)

	related, err := a.Recommender.Related(ctx, sofa.ID, 1)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, table.ID, related[0].ID)
}

func TestApp_Memory(t *testing.T) {
	a, err := New(context.Background(), settings(t))
	require.NoError(t, err)
	defer a.Close()
	runScenario(t, a)
}

func TestApp_SQLiteWithPipelineAndCache(t *testing.T) {
	dir := t.TempDir()
	pipelinePath := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(pipelinePath, []byte(`
pipeline:
  nodes:
    - type: filter.expr
      config:
        expr: "product.price < 1000.0"
`), 0o600))

	s := settings(t)
	s.Store.Driver = "sqlite"
	s.Store.SQLitePath = filepath.Join(dir, "decorec.db")
	s.Embedding.CacheTTL = time.Hour
	s.Pipeline = pipelinePath

	a, err := New(context.Background(), s)
	require.NoError(t, err)
	defer a.Close()
	runScenario(t, a)
}

func TestApp_InvalidSettings(t *testing.T) {
	_, err := New(context.Background(), config.Default())
	assert.Error(t, err)
}
