package http

import (
	"net/http"
	"strconv"

	"vela/internal/auth"
	"vela/internal/core"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	balances, err := s.reports.Balances(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]float64{
		"current_total_balance": balances.CurrentTotal,
		"long_term_balance":     balances.LongTerm,
	})
}

func (s *Server) handleDayCapacity(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	date, err := parseDateParam(r, "date")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	capacity, err := s.reports.DayCapacity(r.Context(), userID, date)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":         date.String(),
		"day_capacity": capacity,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	start, err := parseDateParam(r, "start")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if end.DaysSince(start) < 0 {
		respondMessage(w, http.StatusBadRequest, "'end' must not precede 'start'")
		return
	}

	summary, err := s.reports.RangeSummary(r.Context(), userID, start, end)
	if err != nil {
		respondError(w, r, err)
		return
	}

	trend := make([]map[string]any, 0, len(summary.Trend))
	for _, p := range summary.Trend {
		trend = append(trend, map[string]any{
			"date":         p.Date.String(),
			"day_capacity": p.Capacity,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"start":                 summary.Start.String(),
		"end":                   summary.End.String(),
		"total_income":          summary.TotalIncome,
		"total_expense":         summary.TotalExpense,
		"net_change":            summary.NetChange,
		"current_total_balance": summary.CurrentTotalBalance,
		"day_capacity_trend":    trend,
	})
}

func (s *Server) handleCategoryStatsDaily(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	date, err := parseDateParam(r, "date")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.reports.CategoryStatsDay(r.Context(), userID, date)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toStatsPayload(stats))
}

func (s *Server) handleCategoryStatsMonthly(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		respondMessage(w, http.StatusBadRequest, "Invalid 'year' parameter")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		respondMessage(w, http.StatusBadRequest, "Invalid 'month' parameter, expected 1-12")
		return
	}

	stats, err := s.reports.CategoryStatsMonth(r.Context(), userID, year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toStatsPayload(stats))
}

type categoryStatPayload struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

func toStatsPayload(stats core.RangeStats) map[string]any {
	toRows := func(in []core.CategoryStat) []categoryStatPayload {
		out := make([]categoryStatPayload, 0, len(in))
		for _, s := range in {
			out = append(out, categoryStatPayload{Name: s.Name, Amount: s.Amount, Percentage: s.Percentage})
		}
		return out
	}
	return map[string]any{
		"income_categories":  toRows(stats.IncomeCategories),
		"expense_categories": toRows(stats.ExpenseCategories),
		"total_income":       stats.TotalIncome,
		"total_expense":      stats.TotalExpense,
	}
}
