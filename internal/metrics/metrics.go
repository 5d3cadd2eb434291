package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	RunCount       prometheus.Counter
	PostsFetched   prometheus.Counter
	PostsProcessed prometheus.Counter
	FetchFailures  prometheus.Counter
	ItemFailures   prometheus.Counter
	NotifyFailures prometheus.Counter
	RunDuration    prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RunCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tiktok_monitor_run_count",
			Help: "Total number of monitoring cycles started",
		}),
		PostsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tiktok_monitor_posts_fetched",
			Help: "Total number of posts returned by the fetcher",
		}),
		PostsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tiktok_monitor_posts_processed",
			Help: "Total number of posts newly recorded in the ledger",
		}),
		FetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tiktok_monitor_fetch_failures",
			Help: "Total number of account-level fetch failures",
		}),
		ItemFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tiktok_monitor_item_failures",
			Help: "Total number of download or archive failures",
		}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tiktok_monitor_notify_failures",
			Help: "Total number of notification failures after commit",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tiktok_monitor_run_duration_seconds",
			Help:    "Time spent per monitoring cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
