package core

import "sort"

// UncategorizedName buckets transactions without a category reference.
const UncategorizedName = "Uncategorized"

// CategoryStat is one category's share of a range total.
type CategoryStat struct {
	Name       string
	Amount     float64 // 2dp rounded
	Percentage float64 // share of the respective total, 2dp, 0 when total is 0
}

// RangeStats is the per-category breakdown of a date range.
type RangeStats struct {
	IncomeCategories  []CategoryStat
	ExpenseCategories []CategoryStat
	TotalIncome       float64
	TotalExpense      float64
}

// CategoryStats folds transactions into per-category prorated totals over
// [start, end]. Callers pre-filter txs to those with StartDate inside the
// range; that filtering lives at the storage boundary. names maps category
// ids to display names; unknown or absent ids fall into the Uncategorized
// bucket.
//
// Per-transaction contribution:
//   - single: full amount;
//   - recurring income: one full payment per cycle that fits in
//     [max(start, StartDate), min(end, today)], never fewer than one. This
//     is a generous heuristic rather than a day-prorated figure;
//   - continuous expense: the daily rate times the day count of the overlap
//     between the range and the [StartDate, StartDate+DurationDays) window.
func CategoryStats(txs []Transaction, start, end, today Date, names map[int64]string) RangeStats {
	income := make(map[string]float64)
	expense := make(map[string]float64)
	var totalIncome, totalExpense float64

	for _, t := range txs {
		amount := rangeContribution(t, start, end, today)
		if amount == 0 {
			continue
		}
		name := UncategorizedName
		if t.CategoryID != nil {
			if n, ok := names[*t.CategoryID]; ok {
				name = n
			}
		}
		if t.Kind == KindIncome {
			income[name] += amount
			totalIncome += amount
		} else {
			expense[name] += amount
			totalExpense += amount
		}
	}

	return RangeStats{
		IncomeCategories:  breakdown(income, totalIncome),
		ExpenseCategories: breakdown(expense, totalExpense),
		TotalIncome:       Round2(totalIncome),
		TotalExpense:      Round2(totalExpense),
	}
}

// rangeContribution is a transaction's monetary weight inside [start, end].
func rangeContribution(t Transaction, start, end, today Date) float64 {
	switch Classify(t) {
	case ShapeRecurringIncome:
		if t.StartDate.DaysSince(end) > 0 {
			return 0
		}
		from := start
		if t.StartDate.DaysSince(from) > 0 {
			from = t.StartDate
		}
		to := end
		if today.DaysSince(to) < 0 {
			to = today
		}
		rangeDays := to.DaysSince(from) + 1
		cycles := rangeDays / t.CycleDays
		if cycles < 1 {
			cycles = 1
		}
		return t.Amount * float64(cycles)

	case ShapeContinuousExpense:
		// Window is end-exclusive: last active day is StartDate+DurationDays-1.
		winEnd := t.StartDate.AddDays(t.DurationDays - 1)
		from := start
		if t.StartDate.DaysSince(from) > 0 {
			from = t.StartDate
		}
		to := end
		if winEnd.DaysSince(to) < 0 {
			to = winEnd
		}
		overlapDays := to.DaysSince(from) + 1
		if overlapDays <= 0 {
			return 0
		}
		return t.Amount / float64(t.DurationDays) * float64(overlapDays)

	default:
		return t.Amount
	}
}

func breakdown(byName map[string]float64, total float64) []CategoryStat {
	stats := make([]CategoryStat, 0, len(byName))
	for name, amount := range byName {
		pct := 0.0
		if total != 0 {
			pct = Round2(amount / total * 100)
		}
		stats = append(stats, CategoryStat{
			Name:       name,
			Amount:     Round2(amount),
			Percentage: pct,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Amount != stats[j].Amount {
			return stats[i].Amount > stats[j].Amount
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}
