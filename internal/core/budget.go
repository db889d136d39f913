package core

// Shape is the resolved form of a transaction for projection purposes.
type Shape int

const (
	// ShapeSingle is a one-off lump sum. It affects balances only, never the
	// daily-rate view.
	ShapeSingle Shape = iota
	// ShapeRecurringIncome repeats every CycleDays days, open-ended.
	ShapeRecurringIncome
	// ShapeContinuousExpense is spread over DurationDays days from StartDate.
	ShapeContinuousExpense
)

// Classify resolves a transaction into exactly one shape. The recurring flag
// wins over a duration so that a malformed record stored with both fields
// still resolves deterministically; Transaction.Validate keeps such records
// out of storage in the first place.
func Classify(t Transaction) Shape {
	if t.IsRecurring && t.CycleDays > 0 {
		return ShapeRecurringIncome
	}
	if t.DurationDays > 0 {
		return ShapeContinuousExpense
	}
	return ShapeSingle
}

// IsActive reports whether t contributes to the daily-rate view on date.
// Single transactions never do; they only move lump-sum balances. A
// continuous expense is active on [StartDate, StartDate+DurationDays), end
// exclusive. Recurring income is active from StartDate onward with no upper
// bound; the cycle length shapes the allocation rate, not activity.
func IsActive(t Transaction, date Date) bool {
	switch Classify(t) {
	case ShapeSingle:
		return false
	case ShapeContinuousExpense:
		if date.DaysSince(t.StartDate) < 0 {
			return false
		}
		return date.DaysSince(t.StartDate) < t.DurationDays
	case ShapeRecurringIncome:
		return date.DaysSince(t.StartDate) >= 0
	}
	return false
}

// DailyAllocation returns t's per-day contribution while active: amount
// spread over one cycle for recurring income, over the whole window for a
// continuous expense, zero otherwise. Divisors are guarded; a zero or
// missing divisor yields 0 rather than a fault.
func DailyAllocation(t Transaction) float64 {
	if t.IsRecurring && t.CycleDays > 0 {
		return t.Amount / float64(t.CycleDays)
	}
	if t.DurationDays > 0 {
		return t.Amount / float64(t.DurationDays)
	}
	return 0
}

// DayCapacity is the net daily-rate budget on date: the sum of daily
// allocations of active income minus active expense, rounded to 2dp.
func DayCapacity(txs []Transaction, date Date) float64 {
	var income, expense float64
	for _, t := range txs {
		if !IsActive(t, date) {
			continue
		}
		alloc := DailyAllocation(t)
		if t.Kind == KindIncome {
			income += alloc
		} else {
			expense += alloc
		}
	}
	return Round2(income - expense)
}

// CurrentTotalBalance is the lump-sum balance: the user's initial balance
// plus single incomes minus single expenses. Recurring and continuous
// transactions are excluded entirely, regardless of date.
func CurrentTotalBalance(initial float64, txs []Transaction) float64 {
	balance := initial
	for _, t := range txs {
		if Classify(t) != ShapeSingle {
			continue
		}
		if t.Kind == KindIncome {
			balance += t.Amount
		} else {
			balance -= t.Amount
		}
	}
	return Round2(balance)
}

// LongTermBalance projects the balance to today across all transactions.
// Recurring income that has started contributes one full payment per elapsed
// cycle, counting the first cycle as soon as the start date has passed. A
// continuous expense that has started is subtracted in full, not prorated;
// one not yet started contributes nothing.
func LongTermBalance(initial float64, txs []Transaction, today Date) float64 {
	balance := initial
	for _, t := range txs {
		if t.Kind == KindIncome {
			if t.IsRecurring && t.CycleDays > 0 {
				days := today.DaysSince(t.StartDate)
				if days >= 0 {
					cycles := days/t.CycleDays + 1
					balance += t.Amount * float64(cycles)
				}
			} else {
				balance += t.Amount
			}
			continue
		}
		if t.DurationDays > 0 {
			if today.DaysSince(t.StartDate) >= 0 {
				balance -= t.Amount
			}
		} else {
			balance -= t.Amount
		}
	}
	return Round2(balance)
}
