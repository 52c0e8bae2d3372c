package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	got, err := s.BatchGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.Error(t, err)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	v := []byte("vec")
	require.NoError(t, s.Set(ctx, "k", v))
	v[0] = 'x'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("vec"), got)

	got[0] = 'y'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("vec"), again)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "short", []byte("1"), 5))
	require.NoError(t, s.Set(ctx, "forever", []byte("2")))

	now = now.Add(6 * time.Second)
	_, err := s.Get(ctx, "short")
	assert.True(t, core.IsStoreNotFound(err))
	got, err := s.BatchGet(ctx, []string{"short", "forever"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"forever": []byte("2")}, got)

	assert.Equal(t, 2, s.Len())
	s.sweep()
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
