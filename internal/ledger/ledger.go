package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tiktok-monitor-go/internal/model"
)

var (
	// ErrDuplicate is returned when a (account, post) key is inserted twice.
	ErrDuplicate = errors.New("ledger: duplicate post")
	// ErrStorageUnavailable is returned when the backing store cannot be
	// opened, read, or written.
	ErrStorageUnavailable = errors.New("ledger: storage unavailable")
)

// Record carries the metadata persisted alongside a processed post.
type Record struct {
	PostURL     string
	Caption     string
	Hashtags    []string
	Transcript  *string
	ArchiveRef  *string
	PublishedAt time.Time
}

// Ledger is the durable idempotency store keyed by (account_handle, post_id).
// It is opened once per run and accessed sequentially; cross-run mutual
// exclusion is the caller's responsibility.
type Ledger struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the sqlite ledger at path and runs the
// schema migration. The store is a single relocatable file.
func Open(path string) (*Ledger, error) {
	gormLogger := gormlogger.New(
		logrus.StandardLogger(),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrStorageUnavailable, path, err)
	}

	// A committed row must survive the process being killed right after
	// MarkProcessed returns; the next run has no other memory of it.
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("%w: failed to set journal mode: %v", ErrStorageUnavailable, err)
	}
	if err := db.Exec("PRAGMA synchronous=FULL").Error; err != nil {
		return nil, fmt.Errorf("%w: failed to set synchronous mode: %v", ErrStorageUnavailable, err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
		return nil, fmt.Errorf("%w: failed to set busy timeout: %v", ErrStorageUnavailable, err)
	}

	if err := db.AutoMigrate(&model.ProcessedPost{}); err != nil {
		return nil, fmt.Errorf("%w: failed to run migrations: %v", ErrStorageUnavailable, err)
	}

	return &Ledger{db: db}, nil
}

// HasProcessed reports whether the (handle, postID) pair has already been
// fully processed. Pure lookup, no side effect.
func (l *Ledger) HasProcessed(handle, postID string) (bool, error) {
	var post model.ProcessedPost
	result := l.db.Where("account_handle = ? AND post_id = ?", handle, postID).First(&post)
	if result.Error == nil {
		return true, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("%w: checking processed post: %v", ErrStorageUnavailable, result.Error)
}

// MarkProcessed inserts the ledger row for (handle, postID). It returns
// ErrDuplicate if the key already exists; callers are expected to have checked
// HasProcessed first, so a duplicate indicates a logic error or a lost race.
func (l *Ledger) MarkProcessed(handle, postID string, rec Record) error {
	hashtags, err := json.Marshal(rec.Hashtags)
	if err != nil {
		return fmt.Errorf("failed to encode hashtags: %w", err)
	}

	post := model.ProcessedPost{
		AccountHandle: handle,
		PostID:        postID,
		PostURL:       rec.PostURL,
		Caption:       rec.Caption,
		Hashtags:      string(hashtags),
		Transcript:    rec.Transcript,
		ArchiveRef:    rec.ArchiveRef,
		PublishedAt:   rec.PublishedAt,
		ProcessedAt:   time.Now().UTC(),
	}

	result := l.db.Create(&post)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s/%s", ErrDuplicate, handle, postID)
		}
		return fmt.Errorf("%w: marking post processed: %v", ErrStorageUnavailable, result.Error)
	}
	return nil
}

// MarkNotified records that the notification for a post was delivered.
// Best effort; the ledger row itself is what prevents reprocessing.
func (l *Ledger) MarkNotified(handle, postID string) error {
	result := l.db.Model(&model.ProcessedPost{}).
		Where("account_handle = ? AND post_id = ?", handle, postID).
		Update("notified", true)
	if result.Error != nil {
		return fmt.Errorf("%w: marking post notified: %v", ErrStorageUnavailable, result.Error)
	}
	return nil
}

// RecentPosts returns the most recently processed posts, optionally filtered
// by account handle.
func (l *Ledger) RecentPosts(handle string, limit int) ([]model.ProcessedPost, error) {
	if limit <= 0 {
		limit = 100
	}

	query := l.db.Order("processed_at DESC").Limit(limit)
	if handle != "" {
		query = query.Where("account_handle = ?", handle)
	}

	var posts []model.ProcessedPost
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("%w: listing recent posts: %v", ErrStorageUnavailable, err)
	}
	return posts, nil
}

// DB exposes the underlying gorm handle for health checks.
func (l *Ledger) DB() *gorm.DB {
	return l.db
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
