package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader(t *testing.T) {
	r := NewReader(map[string]any{
		"expr":   "product.price < 300.0",
		"alpha":  1,
		"beta":   0.4,
		"limit":  float64(20),
		"strict": true,
		"ids":    []any{"p-1", 42},
		"filters": []any{
			map[string]any{"type": "exclude"},
		},
	})

	assert.Equal(t, "product.price < 300.0", r.String("expr", ""))
	assert.Equal(t, "x", r.String("missing", "x"))
	assert.Equal(t, 1.0, r.Float("alpha", 0.7))
	assert.Equal(t, 0.4, r.Float("beta", 0))
	assert.Equal(t, 20, r.Int("limit", 10))
	assert.True(t, r.Bool("strict", false))
	assert.Equal(t, []string{"p-1", "42"}, r.Strings("ids"))
	assert.Len(t, r.Maps("filters"), 1)
	require.NoError(t, r.Err())
}

func TestReader_TypeErrors(t *testing.T) {
	r := NewReader(map[string]any{
		"alpha":  "high",
		"limit":  2.5,
		"strict": "yes",
		"ids":    []any{"p-1", 1.5},
	})

	assert.Equal(t, 0.7, r.Float("alpha", 0.7))
	assert.Equal(t, 10, r.Int("limit", 10))
	assert.False(t, r.Bool("strict", false))
	assert.Equal(t, []string{"p-1"}, r.Strings("ids"))

	err := r.Err()
	require.Error(t, err)
	for _, key := range []string{"alpha", "limit", "strict", "ids[1]"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestReader_Nil(t *testing.T) {
	r := NewReader(nil)
	assert.Equal(t, 3, r.Int("limit", 3))
	assert.Nil(t, r.Strings("ids"))
	assert.NoError(t, r.Err())
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float32(1.5), 1.5, true},
		{int64(3), 3, true},
		{true, 0, false},
		{"1", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, got)
	}
}
