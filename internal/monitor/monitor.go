package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tiktok-monitor-go/internal/archive"
	"tiktok-monitor-go/internal/download"
	"tiktok-monitor-go/internal/fetcher"
	"tiktok-monitor-go/internal/ledger"
	"tiktok-monitor-go/internal/metrics"
	"tiktok-monitor-go/internal/model"
	"tiktok-monitor-go/internal/notify"
	"tiktok-monitor-go/internal/source"
)

// LedgerStore is the slice of the ledger the pipeline consumes.
type LedgerStore interface {
	HasProcessed(handle, postID string) (bool, error)
	MarkProcessed(handle, postID string, rec ledger.Record) error
	MarkNotified(handle, postID string) error
}

// Monitor drives the polling pipeline: for each enabled account it fetches
// posts, filters them against the ledger, and runs the per-item sequence
// download -> archive -> record -> notify. Processing is strictly sequential;
// the caller guarantees no two runs execute concurrently against one ledger.
type Monitor struct {
	accounts   source.AccountSource
	fetcher    fetcher.PostFetcher
	downloader download.MediaDownloader
	archiver   archive.Archiver
	notifier   notify.Notifier
	ledger     LedgerStore
	metrics    *metrics.Metrics
}

// New creates a Monitor. The archiver and notifier may be nil when not
// configured; the corresponding step is skipped with a warning, matching
// the behaviour of an unconfigured deployment.
func New(accounts source.AccountSource, f fetcher.PostFetcher, d download.MediaDownloader, a archive.Archiver, n notify.Notifier, l LedgerStore, m *metrics.Metrics) *Monitor {
	return &Monitor{
		accounts:   accounts,
		fetcher:    f,
		downloader: d,
		archiver:   a,
		notifier:   n,
		ledger:     l,
		metrics:    m,
	}
}

// Run executes one full polling cycle and returns its report. It returns an
// error only for fatal conditions: the account source or the ledger being
// unreachable. All other failures are collected in the report.
func (m *Monitor) Run(ctx context.Context) (*RunReport, error) {
	logrus.Info("Starting monitoring cycle")
	report := &RunReport{StartedAt: time.Now().UTC()}

	if m.metrics != nil {
		m.metrics.RunCount.Inc()
	}

	accounts, err := m.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	for _, account := range accounts {
		if !account.Enabled {
			logrus.Debugf("Skipping disabled account @%s", account.Handle)
			continue
		}
		report.Accounts++

		if err := m.processAccount(ctx, account, report); err != nil {
			report.finish()
			return report, err
		}
	}

	report.finish()
	if m.metrics != nil {
		m.metrics.RunDuration.Observe(report.Duration.Seconds())
	}

	logrus.Infof("Monitoring cycle complete: accounts=%d fetched=%d new=%d failures=%d in %v",
		report.Accounts, report.PostsFetched, report.NewlyProcessed, len(report.Failures), report.Duration)
	return report, nil
}

// processAccount fetches and processes all posts of one account. A fetch
// failure is isolated to the account; a ledger failure is fatal and returned.
func (m *Monitor) processAccount(ctx context.Context, account model.Account, report *RunReport) error {
	logrus.Infof("Processing @%s", account.Handle)

	posts, err := m.fetcher.FetchPosts(ctx, account.Handle)
	if err != nil {
		logrus.Errorf("Failed to fetch posts for @%s: %v", account.Handle, err)
		report.addFailure(ScopeAccount, account.Handle, "", err)
		if m.metrics != nil {
			m.metrics.FetchFailures.Inc()
		}
		return nil
	}

	for _, post := range posts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		report.PostsFetched++
		if m.metrics != nil {
			m.metrics.PostsFetched.Inc()
		}

		processed, err := m.ledger.HasProcessed(post.AccountHandle, post.PostID)
		if err != nil {
			return fmt.Errorf("ledger lookup for %s/%s: %w", post.AccountHandle, post.PostID, err)
		}
		if processed {
			logrus.Debugf("Skipping already processed post %s/%s", post.AccountHandle, post.PostID)
			continue
		}

		if err := m.processPost(ctx, post, report); err != nil {
			return err
		}
	}

	return nil
}

// processPost runs the per-item sequence for one new post. Download and
// archive failures leave the item unmarked so the next run retries it; once
// MarkProcessed commits, a notify failure no longer rolls the item back.
// The returned error is non-nil only for fatal ledger failures.
func (m *Monitor) processPost(ctx context.Context, post model.FetchedPost, report *RunReport) error {
	logrus.Infof("Processing new post %s/%s", post.AccountHandle, post.PostID)

	var archiveRef *string
	if m.archiver != nil {
		data, err := m.downloader.Download(ctx, post.MediaURL)
		if err != nil {
			logrus.Errorf("Failed to download %s/%s: %v", post.AccountHandle, post.PostID, err)
			report.addFailure(ScopeItem, post.AccountHandle, post.PostID, err)
			if m.metrics != nil {
				m.metrics.ItemFailures.Inc()
			}
			return nil
		}

		name := fmt.Sprintf("tiktok_%s_%s%s", post.AccountHandle, post.PostID, download.FileExtension(post.MediaURL))
		description := fmt.Sprintf("TikTok video from @%s", post.AccountHandle)
		if post.Caption != "" {
			description += "\n\n" + post.Caption
		}

		ref, err := m.archiver.Store(ctx, data, name, description)
		if err != nil {
			logrus.Errorf("Failed to archive %s/%s: %v", post.AccountHandle, post.PostID, err)
			report.addFailure(ScopeItem, post.AccountHandle, post.PostID, err)
			if m.metrics != nil {
				m.metrics.ItemFailures.Inc()
			}
			return nil
		}
		archiveRef = &ref
	} else {
		logrus.Warn("Archiver not configured, skipping media archive")
	}

	rec := ledger.Record{
		PostURL:     post.PostURL,
		Caption:     post.Caption,
		Hashtags:    post.Hashtags,
		ArchiveRef:  archiveRef,
		PublishedAt: post.PublishedAt,
	}
	if post.Transcript != "" {
		transcript := post.Transcript
		rec.Transcript = &transcript
	}

	if err := m.ledger.MarkProcessed(post.AccountHandle, post.PostID, rec); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			// HasProcessed said no, the insert said yes. Treat the row
			// as authoritative and move on.
			logrus.Warnf("Post %s/%s already in ledger, skipping", post.AccountHandle, post.PostID)
			return nil
		}
		return fmt.Errorf("marking %s/%s processed: %w", post.AccountHandle, post.PostID, err)
	}

	report.NewlyProcessed++
	if m.metrics != nil {
		m.metrics.PostsProcessed.Inc()
	}

	m.notifyPost(ctx, post, archiveRef, report)
	return nil
}

// notifyPost sends the alert for a committed item. Failures are reported but
// never undo the ledger write; re-running would duplicate the download and
// archive for a post that is already safely stored.
func (m *Monitor) notifyPost(ctx context.Context, post model.FetchedPost, archiveRef *string, report *RunReport) {
	if m.notifier == nil {
		logrus.Warn("Notifier not configured, skipping alert")
		return
	}

	summary := model.Summary{
		AccountHandle: post.AccountHandle,
		PostURL:       post.PostURL,
		Caption:       post.Caption,
		Transcript:    post.Transcript,
		Hashtags:      post.Hashtags,
		PublishedAt:   post.PublishedAt,
	}
	if archiveRef != nil {
		summary.ArchiveRef = *archiveRef
	}

	if err := m.notifier.Send(ctx, summary); err != nil {
		logrus.Errorf("Failed to notify for %s/%s: %v", post.AccountHandle, post.PostID, err)
		report.addFailure(ScopeNotify, post.AccountHandle, post.PostID, err)
		if m.metrics != nil {
			m.metrics.NotifyFailures.Inc()
		}
		return
	}

	if err := m.ledger.MarkNotified(post.AccountHandle, post.PostID); err != nil {
		logrus.Errorf("Failed to record notification for %s/%s: %v", post.AccountHandle, post.PostID, err)
	}
}

func (r *RunReport) finish() {
	r.FinishedAt = time.Now().UTC()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}
