package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRecommend(t *testing.T) {
	before := testutil.ToFloat64(RecommendRequests.WithLabelValues("cold_start", "error"))
	ObserveRecommend("cold_start", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(RecommendRequests.WithLabelValues("cold_start", "error"))
	assert.Equal(t, before+1, after)
}

func TestAddDropped(t *testing.T) {
	before := testutil.ToFloat64(ResolverDropped.WithLabelValues("space"))
	AddDropped("space", 0)
	AddDropped("space", 2)
	assert.Equal(t, before+2, testutil.ToFloat64(ResolverDropped.WithLabelValues("space")))
}
