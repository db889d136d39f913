// Package services orchestrates storage, the balance engine and event
// publishing behind the HTTP handlers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vela/internal/amqp"
	"vela/internal/core"
	"vela/internal/storage"
)

// EventPublisher is the slice of the AMQP client the service needs; nil
// disables publishing.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error
}

// TransactionService validates and persists ledger entries and emits change
// events. Publish failures are logged and swallowed: the row is already
// durable and every balance is recomputed from storage on read.
type TransactionService struct {
	storage *storage.SQLiteRepository
	events  EventPublisher
	now     func() time.Time
}

func NewTransactionService(st *storage.SQLiteRepository, events EventPublisher) *TransactionService {
	return &TransactionService{
		storage: st,
		events:  events,
		now:     time.Now,
	}
}

// Create validates and stores a new transaction. A missing start date
// defaults to the creation date; the derived end date is always recomputed.
func (s *TransactionService) Create(ctx context.Context, t *core.Transaction) error {
	if t.StartDate.IsZero() {
		t.StartDate = core.DateOf(s.now())
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.checkCategory(ctx, t); err != nil {
		return err
	}
	t.DeriveEndDate()

	if err := s.storage.CreateTransaction(ctx, t); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, t.ID, t.UserID, amqp.ActionCreated)

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", t.ID,
		"user_id", t.UserID,
		"transaction_kind", string(t.Kind),
		"amount", t.Amount)
	return nil
}

// Get returns one of the user's transactions.
func (s *TransactionService) Get(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	return s.storage.GetTransaction(ctx, userID, id)
}

// List returns the user's transactions, optionally narrowed by start-date
// range and category.
func (s *TransactionService) List(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, userID, f)
}

// Update persists field-level changes to an already-loaded transaction.
// Callers mutate the struct returned by Get; end_date is rederived here so
// it can never drift from start_date and duration_days.
func (s *TransactionService) Update(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.checkCategory(ctx, t); err != nil {
		return err
	}
	t.DeriveEndDate()

	if err := s.storage.UpdateTransaction(ctx, t); err != nil {
		return err
	}

	s.publish(ctx, t.ID, t.UserID, amqp.ActionUpdated)
	return nil
}

// Delete removes one of the user's transactions.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, id, userID, amqp.ActionDeleted)
	return nil
}

// SetCategory moves a transaction into a category (or clears it with nil).
func (s *TransactionService) SetCategory(ctx context.Context, userID, id int64, categoryID *int64) (*core.Transaction, error) {
	t, err := s.storage.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t.CategoryID = categoryID
	if err := s.checkCategory(ctx, t); err != nil {
		return nil, err
	}
	if err := s.storage.UpdateTransaction(ctx, t); err != nil {
		return nil, err
	}
	s.publish(ctx, t.ID, t.UserID, amqp.ActionUpdated)
	return t, nil
}

// checkCategory enforces that a referenced category exists and belongs to
// the same user.
func (s *TransactionService) checkCategory(ctx context.Context, t *core.Transaction) error {
	if t.CategoryID == nil {
		return nil
	}
	if _, err := s.storage.GetCategory(ctx, t.UserID, *t.CategoryID); err != nil {
		if err == storage.ErrNotFound {
			return fmt.Errorf("category %d: %w", *t.CategoryID, storage.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *TransactionService) publish(ctx context.Context, txID, userID int64, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(txID, userID, action)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", txID,
			"action", action,
			"error", err)
	}
}
