package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProduct_RecomputeRating(t *testing.T) {
	p := &Product{}
	p.RecomputeRating()
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, 0, p.ReviewCount)

	p.Reviews = []Review{{Rating: 5}, {Rating: 4}, {Rating: 4}}
	p.RecomputeRating()
	assert.Equal(t, 4.33, p.Rating)
	assert.Equal(t, 3, p.ReviewCount)
}

func TestProduct_Text(t *testing.T) {
	p := &Product{Name: "Oak Table", Description: "Solid WOOD", Category: "tables and chairs"}
	assert.Equal(t, "oak table solid wood tables and chairs", p.Text())
	assert.Equal(t, "oak table solid wood tables and chairs dining room rustic", p.Text("Dining Room", "Rustic"))
}

func TestProduct_CloneIsDeep(t *testing.T) {
	p := &Product{ID: "p1", Spaces: []string{"s1"}, Reviews: []Review{{ID: "r1"}}}
	c := p.Clone()
	c.Spaces[0] = "s2"
	c.Reviews[0].ID = "r2"
	assert.Equal(t, "s1", p.Spaces[0])
	assert.Equal(t, "r1", p.Reviews[0].ID)
}
