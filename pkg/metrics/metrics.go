// Package metrics 定义推荐引擎的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendRequests 推荐请求数，按最终 mode 与结果分类
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decorec_recommend_requests_total",
			Help: "Total recommendation requests",
		},
		[]string{"mode", "status"},
	)

	// RecommendDuration 推荐请求耗时
	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "decorec_recommend_duration_seconds",
			Help:    "Recommendation latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"mode"},
	)

	// CategorizeDuration 单次自动分类耗时（含嵌入推理）
	CategorizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "decorec_categorize_duration_seconds",
			Help:    "Categorization latency",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 10},
		},
	)

	// EmbeddingRequests 嵌入请求数（ok / error / timeout / cache_hit）
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decorec_embedding_requests_total",
			Help: "Total embedding provider calls",
		},
		[]string{"status"},
	)

	// LabelRebuilds 标签嵌入重建次数
	LabelRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decorec_label_rebuilds_total",
			Help: "Total label embedding rebuilds",
		},
		[]string{"status"},
	)

	// ResolverDropped 解析时被丢弃的 id / 名称数量
	ResolverDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decorec_resolver_dropped_total",
			Help: "Unresolved ids or names dropped during best-effort resolution",
		},
		[]string{"kind"},
	)

	// FilteredCandidates 被过滤节点剔除的候选数，按命中的过滤器分类
	FilteredCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decorec_filtered_candidates_total",
			Help: "Candidates removed by filter nodes",
		},
		[]string{"filter"},
	)

	// WorkerPoolInflight 计算池当前执行中的任务数
	WorkerPoolInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "decorec_worker_pool_inflight",
			Help: "Tasks currently running in the compute pool",
		},
	)
)

// ObserveRecommend 记录一次推荐请求
func ObserveRecommend(mode string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RecommendRequests.WithLabelValues(mode, status).Inc()
	RecommendDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

// AddDropped 累加被丢弃的解析项
func AddDropped(kind string, n int) {
	if n > 0 {
		ResolverDropped.WithLabelValues(kind).Add(float64(n))
	}
}
