// Package google implements the sheets ports against the Google Sheets API
// with service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "vela/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	summarySheet  string
}

var (
	_ ports.LedgerWriter  = (*Client)(nil)
	_ ports.SummaryWriter = (*Client)(nil)
)

// NewClient creates a Sheets client. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func NewClient(ctx context.Context, spreadsheetID, ledgerSheet, summarySheet string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerSheet:   ledgerSheet,
		summarySheet:  summarySheet,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		credentialsJSON = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AppendLedgerRow appends one exported transaction:
// date, username, action, kind, amount, description, category, exported_at.
func (c *Client) AppendLedgerRow(ctx context.Context, row ports.LedgerRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	t := row.Transaction
	values := &gsheet.ValueRange{Values: [][]any{{
		t.StartDate.String(),
		row.Username,
		row.Action,
		string(t.Kind),
		t.Amount,
		t.Description,
		row.Category,
		row.ExportedAt.UTC().Format("2006-01-02 15:04:05"),
	}}}

	rng := fmt.Sprintf("%s!A:H", c.ledgerSheet)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append ledger row to %s: %w", c.ledgerSheet, err)
	}

	slog.InfoContext(ctx, "Appended ledger row",
		"transaction_id", t.ID,
		"user", row.Username,
		"sheet", c.ledgerSheet)
	return nil
}

// AppendSummaryRows appends the daily snapshot, one row per user:
// date, username, current_total_balance, long_term_balance, day_capacity.
func (c *Client) AppendSummaryRows(ctx context.Context, rows []ports.SummaryRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{
			row.Date.String(),
			row.Username,
			row.CurrentTotalBalance,
			row.LongTermBalance,
			row.DayCapacity,
		})
	}

	rng := fmt.Sprintf("%s!A:E", c.summarySheet)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append summary rows to %s: %w", c.summarySheet, err)
	}

	slog.InfoContext(ctx, "Appended summary rows",
		"rows", len(rows),
		"sheet", c.summarySheet)
	return nil
}
