package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tiktok-monitor-go/internal/archive"
	"tiktok-monitor-go/internal/config"
	"tiktok-monitor-go/internal/download"
	"tiktok-monitor-go/internal/fetcher"
	"tiktok-monitor-go/internal/handlers"
	"tiktok-monitor-go/internal/ledger"
	"tiktok-monitor-go/internal/metrics"
	"tiktok-monitor-go/internal/monitor"
	"tiktok-monitor-go/internal/notify"
	"tiktok-monitor-go/internal/scheduler"
	"tiktok-monitor-go/internal/server"
	"tiktok-monitor-go/internal/source"
)

// Run initializes the application and either executes one monitoring cycle
// (the default, for external schedulers) or starts the long-lived service.
// It returns an error only for fatal conditions; per-item and per-account
// failures are reported but leave the exit status untouched.
func Run(serve bool) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting TikTok Monitor")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	lgr, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer lgr.Close()

	ctx := context.Background()

	var accounts source.AccountSource
	if cfg.Sheets.SpreadsheetID != "" {
		accounts, err = source.NewSheetsSource(ctx, &cfg.Sheets)
		if err != nil {
			return fmt.Errorf("failed to create sheets source: %w", err)
		}
		logrus.Info("Using Google Sheets account source")
	} else {
		accounts = source.NewStaticSource(cfg.Sheets.FallbackHandles)
		logrus.Info("Using static account list")
	}

	var archiver archive.Archiver
	if cfg.Drive.FolderID != "" {
		archiver, err = archive.NewDriveArchiver(ctx, &cfg.Drive)
		if err != nil {
			return fmt.Errorf("failed to create drive archiver: %w", err)
		}
		logrus.Info("Google Drive archiving enabled")
	} else {
		logrus.Warn("Google Drive not configured, media will not be archived")
	}

	var notifier notify.Notifier
	if cfg.Slack.WebhookURL != "" {
		notifier = notify.NewSlackNotifier(cfg.Slack.WebhookURL)
		logrus.Info("Slack notifications enabled")
	} else {
		logrus.Warn("Slack not configured, notifications disabled")
	}

	m := metrics.NewMetrics()
	mon := monitor.New(
		accounts,
		fetcher.NewApifyFetcher(&cfg.Apify),
		download.NewHTTPDownloader(),
		archiver,
		notifier,
		lgr,
		m,
	)

	if !serve {
		return runOnce(ctx, mon)
	}
	return runService(cfg, lgr, mon, m)
}

// runOnce executes one full pipeline run for an external scheduler.
func runOnce(ctx context.Context, mon *monitor.Monitor) error {
	report, err := mon.Run(ctx)
	if err != nil {
		return fmt.Errorf("monitoring cycle aborted: %w", err)
	}

	for _, failure := range report.Failures {
		logrus.Warnf("Run failure [%s] account=%s post=%s: %s",
			failure.Scope, failure.Account, failure.PostID, failure.Err)
	}

	logrus.Infof("Run finished: accounts=%d fetched=%d new=%d failures=%d",
		report.Accounts, report.PostsFetched, report.NewlyProcessed, len(report.Failures))
	return nil
}

// runService starts the cron scheduler and the HTTP surface, then blocks
// until SIGINT/SIGTERM.
func runService(cfg *config.Config, lgr *ledger.Ledger, mon *monitor.Monitor, m *metrics.Metrics) error {
	sched := scheduler.New(&cfg.Scheduler, mon)

	h := handlers.NewHandlers(lgr, sched, m)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Stopped gracefully")
	return nil
}
