package label

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/embedding"
	"github.com/rushteam/decorec/store"
)

func TestValidateCategory(t *testing.T) {
	assert.NoError(t, ValidateCategory("lighting"))
	err := ValidateCategory("chairs")
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, Categories, core.GetDomainError(err).Allowed)
	assert.Contains(t, err.Error(), "kitchen and tableware")

	assert.NoError(t, ValidateCategories(nil))
	assert.Error(t, ValidateCategories([]string{"outdoor", "garage"}))
	assert.Len(t, Categories, 13)
}

func TestTargetText(t *testing.T) {
	assert.Equal(t, "living room a place to relax", TargetText(core.Space{Name: "Living Room", Description: "A place to relax"}))
	assert.Equal(t, "modern", TargetText(core.Style{Name: "Modern"}))
}

func seedCatalog(t *testing.T) *store.MemoryCatalog {
	ctx := context.Background()
	c := store.NewMemoryCatalog()
	for _, s := range []core.Space{{Name: "Living Room", Description: "sofa and tv"}, {Name: "Kitchen", Description: "cooking"}} {
		_, err := c.CreateSpace(ctx, s)
		require.NoError(t, err)
	}
	_, err := c.CreateStyle(ctx, core.Style{Name: "Modern", Description: "clean lines"})
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	c := seedCatalog(t)
	set, err := Load(context.Background(), c, embedding.NewHashingEmbedder(32))
	require.NoError(t, err)

	assert.Equal(t, Categories, set.Categories)
	assert.Len(t, set.CategoryEmb, len(Categories))
	assert.Equal(t, []string{"Living Room", "Kitchen"}, set.SpaceNames())
	assert.Len(t, set.SpaceEmb, 2)
	assert.Equal(t, []string{"Modern"}, set.StyleNames())
	assert.Len(t, set.StyleEmb, 1)
	assert.Equal(t, "hashing-v1", set.Model)
}

type countingEmbedder struct {
	core.Embedder
	texts atomic.Int32
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts.Add(int32(len(texts)))
	return c.Embedder.EmbedBatch(ctx, texts)
}

func TestRegistry_RebuildSwapsGenerations(t *testing.T) {
	ctx := context.Background()
	c := seedCatalog(t)
	emb := &countingEmbedder{Embedder: embedding.NewHashingEmbedder(32)}
	r := NewRegistry(c, emb)

	_, err := r.Current()
	assert.True(t, core.IsInvalidCatalogState(err))

	require.NoError(t, r.Init(ctx))
	first, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Generation)
	initial := len(first.Spaces) + len(first.Styles)
	assert.Equal(t, int32(len(Categories)+initial), emb.texts.Load())

	_, err = c.CreateStyle(ctx, core.Style{Name: "Rustic"})
	require.NoError(t, err)
	second, err := r.Rebuild(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), second.Generation)
	assert.Equal(t, []string{"Modern", "Rustic"}, second.StyleNames())
	// 类别嵌入只计算一次，重建只编码当前的空间与风格
	rebuilt := len(second.Spaces) + len(second.Styles)
	assert.Equal(t, 4, rebuilt)
	assert.Equal(t, int32(len(Categories)+initial+rebuilt), emb.texts.Load())
	// 旧的一代不受影响
	assert.Equal(t, []string{"Modern"}, first.StyleNames())
}

func TestRegistry_ConcurrentReadsDuringRebuild(t *testing.T) {
	ctx := context.Background()
	c := seedCatalog(t)
	r := NewRegistry(c, embedding.NewHashingEmbedder(16))
	require.NoError(t, r.Init(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.Rebuild(ctx)
		}()
		go func() {
			defer wg.Done()
			s, err := r.Current()
			if assert.NoError(t, err) {
				assert.Len(t, s.SpaceEmb, len(s.Spaces))
				assert.Len(t, s.StyleEmb, len(s.Styles))
			}
		}()
	}
	wg.Wait()
	s, _ := r.Current()
	assert.Equal(t, uint64(9), s.Generation)
}

func TestRegistry_Shutdown(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(seedCatalog(t), embedding.NewHashingEmbedder(16))
	require.NoError(t, r.Init(ctx))
	r.Shutdown()

	_, err := r.Current()
	assert.True(t, core.IsInvalidCatalogState(err))
	_, err = r.Rebuild(ctx)
	assert.True(t, core.IsInvalidCatalogState(err))

	require.NoError(t, r.Init(ctx))
	_, err = r.Current()
	assert.NoError(t, err)
}

// gatedEmbedder 阻塞在 gate 上，首次进入时关闭 entered，之后遵守 ctx。
type gatedEmbedder struct {
	core.Embedder
	entered chan struct{}
	once    sync.Once
	gate    chan struct{}
}

func (g *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.gate
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Embedder.EmbedBatch(ctx, texts)
}

func TestRegistry_EnsureSurvivesFirstCallerCancel(t *testing.T) {
	emb := &gatedEmbedder{
		Embedder: embedding.NewHashingEmbedder(16),
		entered:  make(chan struct{}),
		gate:     make(chan struct{}),
	}
	r := NewRegistry(seedCatalog(t), emb, WithBuildTimeout(time.Minute))

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Ensure(firstCtx)
		firstErr <- err
	}()
	<-emb.entered

	type result struct {
		set *Set
		err error
	}
	second := make(chan result, 1)
	go func() {
		s, err := r.Ensure(context.Background())
		second <- result{s, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(emb.gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, uint64(1), got.set.Generation)
	cur, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, got.set, cur)
}
