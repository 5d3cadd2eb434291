package source

import (
	"context"
	"errors"

	"tiktok-monitor-go/internal/model"
)

// ErrSourceUnavailable is returned when the account list cannot be read.
// The pipeline treats it as fatal; nothing can proceed without accounts.
var ErrSourceUnavailable = errors.New("source: account source unavailable")

// AccountSource yields the current set of accounts to monitor. The list is
// re-read on every run.
type AccountSource interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
}
