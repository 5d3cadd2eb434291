package notify

import (
	"context"
	"errors"

	"tiktok-monitor-go/internal/model"
)

// ErrNotify is returned when an alert cannot be delivered. A notify failure
// after the ledger write does not roll the item back; the notification is
// reported as lost instead of risking a duplicate download and archive.
var ErrNotify = errors.New("notify: failed to send alert")

// Notifier emits a human-readable alert for one processed post.
type Notifier interface {
	Send(ctx context.Context, summary model.Summary) error
}
