package services

import (
	"context"
	"fmt"
	"time"

	"vela/internal/core"
	"vela/internal/storage"
)

// Balances is the pair of lump-sum and projected balances.
type Balances struct {
	CurrentTotal float64
	LongTerm     float64
}

// DayCapacityPoint is one day of a capacity trend.
type DayCapacityPoint struct {
	Date     core.Date
	Capacity float64
}

// Summary aggregates a date range: single-transaction totals plus the
// day-by-day capacity trend.
type Summary struct {
	Start               core.Date
	End                 core.Date
	TotalIncome         float64
	TotalExpense        float64
	NetChange           float64
	CurrentTotalBalance float64
	Trend               []DayCapacityPoint
}

// ReportService evaluates the balance engine against storage snapshots.
// "today" is wherever the injected clock points, which keeps every
// computation reproducible in tests.
type ReportService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time
}

func NewReportService(st *storage.SQLiteRepository) *ReportService {
	return &ReportService{storage: st, now: time.Now}
}

func (s *ReportService) today() core.Date {
	return core.DateOf(s.now())
}

// Balances computes both balances fresh from the user's full transaction
// set. Nothing is cached by design.
func (s *ReportService) Balances(ctx context.Context, userID int64) (Balances, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return Balances{}, fmt.Errorf("load user: %w", err)
	}
	txs, err := s.storage.ListTransactions(ctx, userID, storage.TransactionFilter{})
	if err != nil {
		return Balances{}, fmt.Errorf("load transactions: %w", err)
	}
	return Balances{
		CurrentTotal: core.CurrentTotalBalance(user.InitialBalance, txs),
		LongTerm:     core.LongTermBalance(user.InitialBalance, txs, s.today()),
	}, nil
}

// CurrentTotalBalance is the lump-sum balance alone; several endpoints echo
// it alongside their payload.
func (s *ReportService) CurrentTotalBalance(ctx context.Context, userID int64) (float64, error) {
	b, err := s.Balances(ctx, userID)
	if err != nil {
		return 0, err
	}
	return b.CurrentTotal, nil
}

// DayCapacity computes the net daily-rate budget for one date.
func (s *ReportService) DayCapacity(ctx context.Context, userID int64, date core.Date) (float64, error) {
	txs, err := s.storage.ListTransactions(ctx, userID, storage.TransactionFilter{})
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}
	return core.DayCapacity(txs, date), nil
}

// RangeSummary builds the summary payload for [start, end]: totals over
// single transactions starting in the range and a per-day capacity trend
// across the whole user ledger.
func (s *ReportService) RangeSummary(ctx context.Context, userID int64, start, end core.Date) (*Summary, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	all, err := s.storage.ListTransactions(ctx, userID, storage.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	var totalIncome, totalExpense float64
	for _, t := range all {
		if core.Classify(t) != core.ShapeSingle {
			continue
		}
		if t.StartDate.DaysSince(start) < 0 || end.DaysSince(t.StartDate) < 0 {
			continue
		}
		if t.Kind == core.KindIncome {
			totalIncome += t.Amount
		} else {
			totalExpense += t.Amount
		}
	}

	days := end.DaysSince(start) + 1
	trend := make([]DayCapacityPoint, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDays(i)
		trend = append(trend, DayCapacityPoint{Date: d, Capacity: core.DayCapacity(all, d)})
	}

	return &Summary{
		Start:               start,
		End:                 end,
		TotalIncome:         core.Round2(totalIncome),
		TotalExpense:        core.Round2(totalExpense),
		NetChange:           core.Round2(totalIncome - totalExpense),
		CurrentTotalBalance: core.CurrentTotalBalance(user.InitialBalance, all),
		Trend:               trend,
	}, nil
}

// CategoryStatsRange computes the per-category breakdown of [start, end].
// Transactions are pre-filtered by start date at the storage boundary.
func (s *ReportService) CategoryStatsRange(ctx context.Context, userID int64, start, end core.Date) (core.RangeStats, error) {
	txs, err := s.storage.ListTransactions(ctx, userID, storage.TransactionFilter{Start: &start, End: &end})
	if err != nil {
		return core.RangeStats{}, fmt.Errorf("load transactions: %w", err)
	}
	cats, err := s.storage.ListCategories(ctx, userID)
	if err != nil {
		return core.RangeStats{}, fmt.Errorf("load categories: %w", err)
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return core.CategoryStats(txs, start, end, s.today(), names), nil
}

// CategoryStatsDay is the single-day breakdown.
func (s *ReportService) CategoryStatsDay(ctx context.Context, userID int64, date core.Date) (core.RangeStats, error) {
	return s.CategoryStatsRange(ctx, userID, date, date)
}

// CategoryStatsMonth is the breakdown for one calendar month.
func (s *ReportService) CategoryStatsMonth(ctx context.Context, userID int64, year, month int) (core.RangeStats, error) {
	start := core.NewDate(year, month, 1)
	end := start.AddDays(daysInMonth(year, month) - 1)
	return s.CategoryStatsRange(ctx, userID, start, end)
}

func daysInMonth(year, month int) int {
	return core.NewDate(year, month+1, 1).AddDays(-1).Day()
}
