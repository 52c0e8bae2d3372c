package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/core"
)

func TestExpr_Match(t *testing.T) {
	item := core.NewItem(&core.Product{
		ID:          "p1",
		Name:        "Arc lamp",
		Price:       120,
		Category:    "lighting",
		Spaces:      []string{"s1"},
		Rating:      4.5,
		ReviewCount: 10,
	})
	rctx := &core.RecommendContext{UserID: "u1", Space: "Living Room"}

	tests := []struct {
		expr string
		want bool
	}{
		{`product.price < 300.0`, true},
		{`product.price < 100`, false},
		{`product.category == "lighting" && product.rating >= 4.0`, true},
		{`"s1" in product.spaces`, true},
		{`product.review_count > 20`, false},
		{`rctx.space == "Living Room"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := e.Match(item, rctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_EmptyAndInvalid(t *testing.T) {
	e, err := Compile("")
	require.NoError(t, err)
	ok, err := e.Match(nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Compile("product.price <")
	assert.Error(t, err)
}

func TestExpr_NonBoolean(t *testing.T) {
	e, err := Compile(`product.price`)
	require.NoError(t, err)
	_, err = e.Match(core.NewItem(&core.Product{Price: 1}), nil)
	assert.Error(t, err)
}
