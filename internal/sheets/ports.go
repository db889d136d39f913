// Package sheets defines the outbound ports for spreadsheet export.
package sheets

import (
	"context"
	"time"

	"vela/internal/core"
)

// LedgerRow is one exported transaction with its denormalized context.
type LedgerRow struct {
	Transaction core.Transaction
	Username    string
	Category    string
	Action      string
	ExportedAt  time.Time
}

// SummaryRow is one user's daily snapshot.
type SummaryRow struct {
	Date                core.Date
	Username            string
	CurrentTotalBalance float64
	LongTermBalance     float64
	DayCapacity         float64
}

type (
	// LedgerWriter appends exported transactions to the ledger sheet.
	LedgerWriter interface {
		AppendLedgerRow(ctx context.Context, row LedgerRow) error
	}

	// SummaryWriter appends the daily per-user summary rows.
	SummaryWriter interface {
		AppendSummaryRows(ctx context.Context, rows []SummaryRow) error
	}
)
