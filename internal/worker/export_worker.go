// Package worker exports ledger changes and daily summaries to the
// spreadsheet. It consumes transaction events and runs a cron-scheduled
// snapshot; neither path affects API correctness.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"vela/internal/amqp"
	"vela/internal/core"
	"vela/internal/services"
	"vela/internal/sheets"
	"vela/internal/storage"
)

// EventSource is the slice of the AMQP client the worker consumes from.
type EventSource interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(*amqp.TransactionEventMessage) error) error
}

type ExportWorker struct {
	storage *storage.SQLiteRepository
	reports *services.ReportService
	events  EventSource
	ledger  sheets.LedgerWriter
	summary sheets.SummaryWriter

	schedule string // cron spec for the daily summary
	now      func() time.Time
}

func NewExportWorker(
	st *storage.SQLiteRepository,
	reports *services.ReportService,
	events EventSource,
	ledger sheets.LedgerWriter,
	summary sheets.SummaryWriter,
	schedule string,
) *ExportWorker {
	return &ExportWorker{
		storage:  st,
		reports:  reports,
		events:   events,
		ledger:   ledger,
		summary:  summary,
		schedule: schedule,
		now:      time.Now,
	}
}

// Run consumes events and drives the summary schedule until ctx is
// cancelled.
func (w *ExportWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.events.ConsumeTransactionEvents(ctx, func(msg *amqp.TransactionEventMessage) error {
			return w.HandleEvent(ctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return w.runSummarySchedule(ctx)
	})

	return g.Wait()
}

// HandleEvent exports one transaction change to the ledger sheet. Deleted
// transactions no longer exist in storage, so only the event itself is
// logged for them.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID,
		"action", msg.Action)

	if msg.Action == amqp.ActionDeleted {
		slog.InfoContext(ctx, "Transaction deleted, nothing to export",
			"transaction_id", msg.TransactionID)
		return nil
	}

	tx, err := w.storage.GetTransaction(ctx, msg.UserID, msg.TransactionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted between the event and now; drop the message.
			slog.WarnContext(ctx, "Transaction vanished before export",
				"transaction_id", msg.TransactionID)
			return nil
		}
		return fmt.Errorf("load transaction: %w", err)
	}

	user, err := w.storage.GetUserByID(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	categoryName := ""
	if tx.CategoryID != nil {
		if cat, err := w.storage.GetCategory(ctx, msg.UserID, *tx.CategoryID); err == nil {
			categoryName = cat.Name
		}
	}

	row := sheets.LedgerRow{
		Transaction: *tx,
		Username:    user.Username,
		Category:    categoryName,
		Action:      msg.Action,
		ExportedAt:  w.now(),
	}
	if err := w.ledger.AppendLedgerRow(ctx, row); err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	return nil
}

func (w *ExportWorker) runSummarySchedule(ctx context.Context) error {
	if w.summary == nil || w.schedule == "" {
		slog.InfoContext(ctx, "Summary export disabled")
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(w.schedule, func() {
		if err := w.ExportDailySummary(ctx); err != nil {
			slog.ErrorContext(ctx, "Daily summary export failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid summary schedule %q: %w", w.schedule, err)
	}

	c.Start()
	slog.InfoContext(ctx, "Summary schedule started", "schedule", w.schedule)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

// ExportDailySummary writes one snapshot row per user: both balances and
// today's day capacity.
func (w *ExportWorker) ExportDailySummary(ctx context.Context) error {
	users, err := w.storage.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	today := core.DateOf(w.now())
	rows := make([]sheets.SummaryRow, 0, len(users))
	for _, u := range users {
		balances, err := w.reports.Balances(ctx, u.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping user in summary export",
				"user_id", u.ID, "error", err)
			continue
		}
		capacity, err := w.reports.DayCapacity(ctx, u.ID, today)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping user in summary export",
				"user_id", u.ID, "error", err)
			continue
		}
		rows = append(rows, sheets.SummaryRow{
			Date:                today,
			Username:            u.Username,
			CurrentTotalBalance: balances.CurrentTotal,
			LongTermBalance:     balances.LongTerm,
			DayCapacity:         capacity,
		})
	}

	if err := w.summary.AppendSummaryRows(ctx, rows); err != nil {
		return fmt.Errorf("append summary rows: %w", err)
	}

	slog.InfoContext(ctx, "Daily summary exported", "users", len(rows), "date", today.String())
	return nil
}
