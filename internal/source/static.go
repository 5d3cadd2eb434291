package source

import (
	"context"
	"strings"

	"tiktok-monitor-go/internal/model"
)

// StaticSource serves a fixed list of handles, typically parsed from the
// MONITORED_ACCOUNTS environment variable. Used when no spreadsheet is
// configured.
type StaticSource struct {
	accounts []model.Account
}

// NewStaticSource parses a comma-separated list of handles.
func NewStaticSource(handles string) *StaticSource {
	var accounts []model.Account
	for _, h := range strings.Split(handles, ",") {
		h = strings.TrimPrefix(strings.TrimSpace(h), "@")
		if h == "" {
			continue
		}
		accounts = append(accounts, model.Account{Handle: h, Enabled: true})
	}
	return &StaticSource{accounts: accounts}
}

// ListAccounts returns the configured accounts in source order.
func (s *StaticSource) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return s.accounts, nil
}
