package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tiktok-monitor-go/internal/ledger"
	"tiktok-monitor-go/internal/metrics"
	"tiktok-monitor-go/internal/scheduler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	ledger    *ledger.Ledger
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
}

// NewHandlers creates new HTTP handlers
func NewHandlers(l *ledger.Ledger, s *scheduler.Scheduler, m *metrics.Metrics) *Handlers {
	return &Handlers{ledger: l, scheduler: s, metrics: m}
}

// SetupRoutes registers all routes on the router
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/posts/recent", h.RecentPosts)
		api.POST("/run", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
	}
}
