package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"tiktok-monitor-go/internal/config"
	"tiktok-monitor-go/internal/model"
)

// SheetsSource reads the monitored-accounts list from a Google Sheet.
//
// Expected sheet layout, first worksheet:
//
//	| Username | Notes | Enabled |
//	| user1    | ...   | TRUE    |
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
}

// NewSheetsSource creates an account source backed by the configured
// spreadsheet, authenticated with a service account.
func NewSheetsSource(ctx context.Context, cfg *config.SheetsConfig) (*SheetsSource, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	readRange := cfg.Range
	if readRange == "" {
		readRange = "A:C"
	}

	return &SheetsSource{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     readRange,
	}, nil
}

// ListAccounts fetches and parses the sheet rows in sheet order.
func (s *SheetsSource) ListAccounts(ctx context.Context) ([]model.Account, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: reading spreadsheet: %v", ErrSourceUnavailable, err)
	}

	accounts := parseRows(resp.Values)
	logrus.Infof("Loaded %d accounts from spreadsheet", len(accounts))
	return accounts, nil
}

// parseRows converts raw sheet values into accounts, skipping the header row
// and blank usernames. A missing Enabled cell counts as enabled.
func parseRows(rows [][]interface{}) []model.Account {
	var accounts []model.Account
	for i, row := range rows {
		handle := cellString(row, 0)
		if handle == "" {
			continue
		}
		if i == 0 && strings.EqualFold(handle, "username") {
			continue
		}

		enabledCell := cellString(row, 2)
		enabled := enabledCell == "" || strings.EqualFold(enabledCell, "true")

		accounts = append(accounts, model.Account{
			Handle:  strings.TrimPrefix(handle, "@"),
			Notes:   cellString(row, 1),
			Enabled: enabled,
		})
	}
	return accounts
}

func cellString(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	s, ok := row[idx].(string)
	if !ok {
		return fmt.Sprintf("%v", row[idx])
	}
	return strings.TrimSpace(s)
}
