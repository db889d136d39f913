package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

type (
	// Kind is the canonical lowercase transaction type.
	Kind string

	// Date is a calendar date pinned to UTC midnight. All day arithmetic in
	// the engine goes through it so that elapsed-day counts are exact.
	Date struct {
		time.Time
	}

	// Transaction is an immutable snapshot of a ledger entry as read from
	// storage. Amount is a non-negative, currency-agnostic value; the sign is
	// carried by Kind.
	Transaction struct {
		ID          int64
		UserID      int64
		CategoryID  *int64
		Amount      float64
		Kind        Kind
		Description string

		// IsRecurring with CycleDays marks income that repeats every
		// CycleDays days. DurationDays marks an expense spread over a
		// bounded window starting at StartDate.
		IsRecurring  bool
		CycleDays    int
		DurationDays int

		StartDate Date
		EndDate   *Date // derived: StartDate + DurationDays, nil otherwise
		CreatedAt time.Time
	}

	Category struct {
		ID          int64
		UserID      int64
		Name        string
		Description string
	}

	User struct {
		ID             int64
		Username       string
		PasswordHash   string
		InitialBalance float64
		CreatedAt      time.Time
	}
)

var (
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAmount    = errors.New("amount must be non-negative")
	ErrInvalidCycle     = errors.New("cycle_days must be positive for recurring income")
	ErrInvalidDuration  = errors.New("duration_days must be positive")
	ErrRecurringExpense = errors.New("recurring is only valid for income")
	ErrAmbiguousShape   = errors.New("cycle_days and duration_days are mutually exclusive")
	ErrMissingStartDate = errors.New("start date is required")
)

// ParseKind normalizes a transaction type string into the closed income/expense
// set. Matching is case-insensitive; the canonical form is lowercase.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIncome:
		return KindIncome, nil
	case KindExpense:
		return KindExpense, nil
	default:
		return "", ErrInvalidKind
	}
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysSince returns the whole number of days from o to d; negative when d
// precedes o.
func (d Date) DaysSince(o Date) int {
	return int(d.Time.Sub(o.Time) / (24 * time.Hour))
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

// Validate checks the invariants a transaction must satisfy at creation or
// update time. It rejects the ambiguous field combinations the engine would
// otherwise resolve arbitrarily: a recurring expense, a recurring flag without
// a cycle, a stray cycle on a non-recurring entry, and a cycle combined with a
// duration. Records already in storage are never revalidated; the engine stays
// total for any field combination.
func (t Transaction) Validate() error {
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return err
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	if t.IsRecurring {
		if t.Kind != KindIncome {
			return ErrRecurringExpense
		}
		if t.CycleDays <= 0 {
			return ErrInvalidCycle
		}
	} else if t.CycleDays != 0 {
		return ErrInvalidCycle
	}
	if t.DurationDays < 0 {
		return ErrInvalidDuration
	}
	if t.DurationDays > 0 {
		if t.Kind != KindExpense {
			return ErrInvalidDuration
		}
		if t.IsRecurring || t.CycleDays != 0 {
			return ErrAmbiguousShape
		}
	}
	if t.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	return nil
}

// DeriveEndDate recomputes the derived EndDate from StartDate and
// DurationDays. Callers must invoke it whenever either field changes.
func (t *Transaction) DeriveEndDate() {
	if t.DurationDays > 0 {
		end := t.StartDate.AddDays(t.DurationDays)
		t.EndDate = &end
	} else {
		t.EndDate = nil
	}
}
