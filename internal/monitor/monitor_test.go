package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tiktok-monitor-go/internal/fetcher"
	"tiktok-monitor-go/internal/ledger"
	"tiktok-monitor-go/internal/model"
	"tiktok-monitor-go/internal/source"
)

type mockSource struct {
	accounts []model.Account
	err      error
}

func (m *mockSource) ListAccounts(_ context.Context) ([]model.Account, error) {
	return m.accounts, m.err
}

type mockFetcher struct {
	posts map[string][]model.FetchedPost
	errs  map[string]error
	calls []string
}

func (m *mockFetcher) FetchPosts(_ context.Context, handle string) ([]model.FetchedPost, error) {
	m.calls = append(m.calls, handle)
	if err := m.errs[handle]; err != nil {
		return nil, err
	}
	return m.posts[handle], nil
}

type mockDownloader struct {
	err   error
	calls int
}

func (m *mockDownloader) Download(_ context.Context, _ string) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []byte("media"), nil
}

type mockArchiver struct {
	errs  []error // consumed call by call, last one sticks
	calls int
}

func (m *mockArchiver) Store(_ context.Context, _ []byte, name, _ string) (string, error) {
	idx := m.calls
	m.calls++
	if idx >= len(m.errs) {
		if len(m.errs) == 0 {
			return "https://drive.example/" + name, nil
		}
		idx = len(m.errs) - 1
	}
	if err := m.errs[idx]; err != nil {
		return "", err
	}
	return "https://drive.example/" + name, nil
}

type mockNotifier struct {
	err       error
	summaries []model.Summary
}

func (m *mockNotifier) Send(_ context.Context, summary model.Summary) error {
	if m.err != nil {
		return m.err
	}
	m.summaries = append(m.summaries, summary)
	return nil
}

// memLedger is an in-memory LedgerStore with the same duplicate semantics as
// the sqlite implementation.
type memLedger struct {
	rows      map[string]ledger.Record
	notified  map[string]bool
	lookupErr error
	markErr   error
}

func newMemLedger() *memLedger {
	return &memLedger{
		rows:     make(map[string]ledger.Record),
		notified: make(map[string]bool),
	}
}

func key(handle, postID string) string { return handle + "/" + postID }

func (l *memLedger) HasProcessed(handle, postID string) (bool, error) {
	if l.lookupErr != nil {
		return false, l.lookupErr
	}
	_, ok := l.rows[key(handle, postID)]
	return ok, nil
}

func (l *memLedger) MarkProcessed(handle, postID string, rec ledger.Record) error {
	if l.markErr != nil {
		return l.markErr
	}
	k := key(handle, postID)
	if _, ok := l.rows[k]; ok {
		return fmt.Errorf("%w: %s", ledger.ErrDuplicate, k)
	}
	l.rows[k] = rec
	return nil
}

func (l *memLedger) MarkNotified(handle, postID string) error {
	l.notified[key(handle, postID)] = true
	return nil
}

func post(handle, id string) model.FetchedPost {
	return model.FetchedPost{
		PostID:        id,
		AccountHandle: handle,
		PostURL:       fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", handle, id),
		MediaURL:      fmt.Sprintf("https://cdn.example/%s.mp4", id),
		Caption:       "caption " + id,
		Hashtags:      []string{"fyp"},
		PublishedAt:   time.Date(2026, 2, 6, 10, 0, 0, 0, time.UTC),
	}
}

func enabled(handles ...string) []model.Account {
	accounts := make([]model.Account, 0, len(handles))
	for _, h := range handles {
		accounts = append(accounts, model.Account{Handle: h, Enabled: true})
	}
	return accounts
}

type fixture struct {
	src      *mockSource
	fetch    *mockFetcher
	dl       *mockDownloader
	arch     *mockArchiver
	notifier *mockNotifier
	ledger   *memLedger
	mon      *Monitor
}

func newFixture(src *mockSource, fetch *mockFetcher) *fixture {
	f := &fixture{
		src:      src,
		fetch:    fetch,
		dl:       &mockDownloader{},
		arch:     &mockArchiver{},
		notifier: &mockNotifier{},
		ledger:   newMemLedger(),
	}
	f.mon = New(f.src, f.fetch, f.dl, f.arch, f.notifier, f.ledger, nil)
	return f
}

func TestRunProcessesNewPost(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, report.Accounts)
	require.Equal(t, 1, report.PostsFetched)
	require.Equal(t, 1, report.NewlyProcessed)
	require.Empty(t, report.Failures)

	rec, ok := f.ledger.rows["alice/1"]
	require.True(t, ok)
	require.NotNil(t, rec.ArchiveRef)
	require.Contains(t, *rec.ArchiveRef, "tiktok_alice_1.mp4")

	require.Len(t, f.notifier.summaries, 1)
	require.Equal(t, "alice", f.notifier.summaries[0].AccountHandle)
	require.Equal(t, *rec.ArchiveRef, f.notifier.summaries[0].ArchiveRef)
	require.True(t, f.ledger.notified["alice/1"])
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)

	_, err := f.mon.Run(context.Background())
	require.NoError(t, err)

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)

	// Second run sees the post again but performs no side effects.
	require.Equal(t, 1, report.PostsFetched)
	require.Equal(t, 0, report.NewlyProcessed)
	require.Equal(t, 1, f.dl.calls)
	require.Equal(t, 1, f.arch.calls)
	require.Len(t, f.notifier.summaries, 1)
	require.Len(t, f.ledger.rows, 1)
}

func TestArchiveFailureRetriedNextRun(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)
	f.arch.errs = []error{errors.New("drive quota exceeded"), nil}

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.NewlyProcessed)
	require.Len(t, report.Failures, 1)
	require.Equal(t, ScopeItem, report.Failures[0].Scope)
	require.Empty(t, f.ledger.rows, "failed item must not be marked processed")
	require.Empty(t, f.notifier.summaries)

	// Next run retries the expensive steps and lands exactly one row.
	report, err = f.mon.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.NewlyProcessed)
	require.Empty(t, report.Failures)
	require.Len(t, f.ledger.rows, 1)
}

func TestDownloadFailureNotMarked(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)
	f.dl.err = errors.New("connection reset")

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.NewlyProcessed)
	require.Len(t, report.Failures, 1)
	require.Equal(t, ScopeItem, report.Failures[0].Scope)
	require.Equal(t, 0, f.arch.calls)
	require.Empty(t, f.ledger.rows)
}

func TestFetchFailureIsolatedToAccount(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice", "bob")},
		&mockFetcher{
			posts: map[string][]model.FetchedPost{"bob": {post("bob", "7")}},
			errs:  map[string]error{"alice": fetcher.ErrFetch},
		},
	)

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.Accounts)
	require.Equal(t, []string{"alice", "bob"}, f.fetch.calls, "account order must follow source order")
	require.Len(t, report.Failures, 1)
	require.Equal(t, ScopeAccount, report.Failures[0].Scope)
	require.Equal(t, "alice", report.Failures[0].Account)

	// bob's post went through the full sequence.
	require.Equal(t, 1, report.NewlyProcessed)
	require.Contains(t, f.ledger.rows, "bob/7")
	require.Len(t, f.notifier.summaries, 1)
}

func TestNotifyFailureAfterCommitKeepsRow(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)
	f.notifier.err = errors.New("webhook returned 500")

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, report.NewlyProcessed, "item counts as processed despite notify failure")
	require.Len(t, report.Failures, 1)
	require.Equal(t, ScopeNotify, report.Failures[0].Scope)
	require.Contains(t, f.ledger.rows, "alice/1")
	require.False(t, f.ledger.notified["alice/1"])

	// A re-run must not touch download or archive again.
	f.notifier.err = nil
	report, err = f.mon.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.NewlyProcessed)
	require.Equal(t, 1, f.dl.calls)
	require.Equal(t, 1, f.arch.calls)
	require.Empty(t, f.notifier.summaries)
}

func TestReportCompleteness(t *testing.T) {
	// Two accounts, four fetched posts: three new (one failing at archive)
	// and one already processed.
	f := newFixture(
		&mockSource{accounts: enabled("alice", "bob")},
		&mockFetcher{posts: map[string][]model.FetchedPost{
			"alice": {post("alice", "1"), post("alice", "2")},
			"bob":   {post("bob", "3"), post("bob", "4")},
		}},
	)
	require.NoError(t, f.ledger.MarkProcessed("alice", "2", ledger.Record{}))
	// Second archive attempt in the run fails (bob/3).
	f.arch.errs = []error{nil, errors.New("upload timeout"), nil}

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.Accounts)
	require.Equal(t, 4, report.PostsFetched)
	require.Equal(t, 2, report.NewlyProcessed)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "bob", report.Failures[0].Account)
	require.Equal(t, "3", report.Failures[0].PostID)
}

func TestSourceFailureIsFatal(t *testing.T) {
	f := newFixture(
		&mockSource{err: source.ErrSourceUnavailable},
		&mockFetcher{},
	)

	report, err := f.mon.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
	require.Nil(t, report)
}

func TestLedgerLookupFailureIsFatal(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)
	f.ledger.lookupErr = ledger.ErrStorageUnavailable

	_, err := f.mon.Run(context.Background())
	require.ErrorIs(t, err, ledger.ErrStorageUnavailable)
	require.Equal(t, 0, f.dl.calls)
}

func TestLedgerInsertFailureIsFatal(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)
	f.ledger.markErr = ledger.ErrStorageUnavailable

	_, err := f.mon.Run(context.Background())
	require.ErrorIs(t, err, ledger.ErrStorageUnavailable)
	require.Empty(t, f.notifier.summaries, "notify must not run without a committed row")
}

func TestDuplicateInsertTreatedAsProcessed(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)
	f.ledger.markErr = fmt.Errorf("%w: alice/1", ledger.ErrDuplicate)

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.NewlyProcessed)
	require.Empty(t, report.Failures)
	require.Empty(t, f.notifier.summaries)
}

func TestDisabledAccountsSkipped(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: []model.Account{
			{Handle: "alice", Enabled: true},
			{Handle: "mallory", Enabled: false},
		}},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)

	report, err := f.mon.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Accounts)
	require.Equal(t, []string{"alice"}, f.fetch.calls)
}

func TestUnconfiguredArchiverAndNotifier(t *testing.T) {
	src := &mockSource{accounts: enabled("alice")}
	fetch := &mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}}
	lgr := newMemLedger()
	mon := New(src, fetch, &mockDownloader{}, nil, nil, lgr, nil)

	report, err := mon.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.NewlyProcessed)

	rec := lgr.rows["alice/1"]
	require.Nil(t, rec.ArchiveRef)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(
		&mockSource{accounts: enabled("alice")},
		&mockFetcher{posts: map[string][]model.FetchedPost{"alice": {post("alice", "1")}}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.mon.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	require.Equal(t, 0, report.NewlyProcessed)
}
