package builders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/config"
	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pipeline"
	"github.com/rushteam/decorec/rerank"
)

const pipelineYAML = `
pipeline:
  name: cold_start
  nodes:
    - type: filter
      config:
        filters:
          - type: exclude
            product_ids: ["b"]
          - type: expr
            expr: "product.price < 500.0"
    - type: rank.quality
      config:
        sort: true
    - type: rerank.page
      config:
        default_limit: 2
`

func TestBuildPipelineFromYAML(t *testing.T) {
	cfg, err := pipeline.ParseYAML([]byte(pipelineYAML))
	require.NoError(t, err)
	require.NoError(t, config.ValidatePipelineConfig(cfg))

	p, err := cfg.BuildPipeline(config.DefaultFactory())
	require.NoError(t, err)
	require.Len(t, p.Nodes, 3)

	items := core.NewItems([]*core.Product{
		{ID: "a", Price: 100, Rating: 4, ReviewCount: 1},
		{ID: "b", Price: 100, Rating: 5, ReviewCount: 9},
		{ID: "c", Price: 900, Rating: 5, ReviewCount: 9},
		{ID: "d", Price: 200, Rating: 5, ReviewCount: 2},
		{ID: "e", Price: 300, Rating: 1, ReviewCount: 1},
	})
	out, err := p.Run(context.Background(), &core.RecommendContext{}, items)
	require.NoError(t, err)
	got := make([]string, len(out))
	for i, it := range out {
		got[i] = it.ID
	}
	assert.Equal(t, []string{"d", "a"}, got)
}

func TestBuildPipeline_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipelineYAML), 0o600))
	p, err := config.BuildPipeline(path)
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 3)

	p, err = config.BuildPipeline("")
	require.NoError(t, err)
	assert.Empty(t, p.Nodes)
}

func TestValidatePipelineConfig_UnknownType(t *testing.T) {
	cfg, err := pipeline.ParseYAML([]byte("pipeline:\n  nodes:\n    - type: rank.dnn\n"))
	require.NoError(t, err)
	err = config.ValidatePipelineConfig(cfg)
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Contains(t, err.Error(), "rank.dnn")
	assert.Contains(t, core.GetDomainError(err).Allowed, "rank.blend")
}

func TestBuilders(t *testing.T) {
	_, err := BuildExprFilterNode(map[string]interface{}{})
	assert.Error(t, err)
	_, err = BuildExprFilterNode(map[string]interface{}{"expr": "product.price <"})
	assert.True(t, core.IsValidation(err))

	n, err := BuildBlendNode(map[string]interface{}{"alpha": 1, "beta": 0.5})
	require.NoError(t, err)
	assert.Equal(t, "rank.blend", n.Name())
	_, err = BuildBlendNode(map[string]interface{}{"alpha": -1})
	assert.Error(t, err)

	_, err = BuildFilterNode(map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "blacklist"}}})
	require.Error(t, err)
	assert.Equal(t, []string{"exclude", "expr"}, core.GetDomainError(err).Allowed)

	_, err = BuildFilterNode(map[string]interface{}{})
	assert.True(t, core.IsValidation(err))

	_, err = BuildQualityNode(map[string]interface{}{"sort": "yes"})
	assert.True(t, core.IsValidation(err))

	_, err = BuildPageNode(map[string]interface{}{"default_limit": 0})
	assert.True(t, core.IsValidation(err))
	n, err = BuildPageNode(map[string]interface{}{"default_limit": 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n.(*rerank.PageNode).DefaultLimit)
}
