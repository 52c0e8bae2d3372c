package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/core"
)

func TestPage(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}
	tests := []struct {
		name          string
		offset, limit int
		want          []int
	}{
		{"first page", 0, 2, []int{0, 1}},
		{"middle", 2, 2, []int{2, 3}},
		{"tail", 4, 2, []int{4}},
		{"past end", 5, 2, []int{}},
		{"negative offset", -3, 1, []int{0}},
		{"default limit", 1, 0, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Page(items, tt.offset, tt.limit, 3))
		})
	}
}

func TestPageNode(t *testing.T) {
	items := core.NewItems([]*core.Product{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	out, err := (&PageNode{}).Process(context.Background(), &core.RecommendContext{Offset: 1, Limit: 1}, items)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)

	out, err = (&PageNode{DefaultLimit: 2}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
