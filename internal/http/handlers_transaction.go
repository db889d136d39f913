package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"vela/internal/auth"
	"vela/internal/core"
	"vela/internal/storage"
)

type transactionPayload struct {
	ID           int64   `json:"id"`
	CategoryID   *int64  `json:"category_id"`
	Amount       float64 `json:"amount"`
	Kind         string  `json:"kind"`
	Description  string  `json:"description"`
	IsRecurring  bool    `json:"is_recurring"`
	CycleDays    int     `json:"cycle_days,omitempty"`
	DurationDays int     `json:"duration_days,omitempty"`
	StartDate    string  `json:"start_date"`
	EndDate      *string `json:"end_date"`
	CreatedAt    string  `json:"created_at"`
}

func toTransactionPayload(t *core.Transaction) transactionPayload {
	return transactionPayload{
		ID:           t.ID,
		CategoryID:   t.CategoryID,
		Amount:       t.Amount,
		Kind:         string(t.Kind),
		Description:  t.Description,
		IsRecurring:  t.IsRecurring,
		CycleDays:    t.CycleDays,
		DurationDays: t.DurationDays,
		StartDate:    t.StartDate.String(),
		EndDate:      formatDatePtr(t.EndDate),
		CreatedAt:    formatTimestamp(t.CreatedAt),
	}
}

type createTransactionRequest struct {
	CategoryID   *int64  `json:"category_id"`
	Amount       float64 `json:"amount"`
	Kind         string  `json:"kind"`
	Description  string  `json:"description"`
	IsRecurring  bool    `json:"is_recurring"`
	CycleDays    int     `json:"cycle_days"`
	DurationDays int     `json:"duration_days"`
	StartDate    string  `json:"start_date"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid transaction kind, expected 'income' or 'expense'")
		return
	}

	tx := &core.Transaction{
		UserID:       userID,
		CategoryID:   req.CategoryID,
		Amount:       req.Amount,
		Kind:         kind,
		Description:  req.Description,
		IsRecurring:  req.IsRecurring,
		CycleDays:    req.CycleDays,
		DurationDays: req.DurationDays,
	}
	if req.StartDate != "" {
		d, err := core.ParseDate(req.StartDate)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid 'start_date', expected YYYY-MM-DD")
			return
		}
		tx.StartDate = d
	}

	if err := s.transactions.Create(r.Context(), tx); err != nil {
		respondError(w, r, err)
		return
	}

	balance, err := s.reports.CurrentTotalBalance(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"transaction":           toTransactionPayload(tx),
		"current_total_balance": balance,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var filter storage.TransactionFilter
	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid 'start' date, expected YYYY-MM-DD")
			return
		}
		filter.Start = &d
	}
	if v := q.Get("end"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid 'end' date, expected YYYY-MM-DD")
			return
		}
		filter.End = &d
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid 'category_id'")
			return
		}
		filter.CategoryID = &id
	}

	txs, err := s.transactions.List(r.Context(), userID, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	balance, err := s.reports.CurrentTotalBalance(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	payload := make([]transactionPayload, 0, len(txs))
	for i := range txs {
		payload = append(payload, toTransactionPayload(&txs[i]))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"transactions":          payload,
		"current_total_balance": balance,
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := pathID(r)

	tx, err := s.transactions.Get(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionPayload(tx))
}

// updateTransactionRequest carries field-level changes: only fields present
// in the body are applied. Clearing the category goes through the dedicated
// category endpoint.
type updateTransactionRequest struct {
	CategoryID   *int64   `json:"category_id"`
	Amount       *float64 `json:"amount"`
	Kind         *string  `json:"kind"`
	Description  *string  `json:"description"`
	IsRecurring  *bool    `json:"is_recurring"`
	CycleDays    *int     `json:"cycle_days"`
	DurationDays *int     `json:"duration_days"`
	StartDate    *string  `json:"start_date"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := pathID(r)

	tx, err := s.transactions.Get(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.CategoryID != nil {
		tx.CategoryID = req.CategoryID
	}
	if req.Amount != nil {
		tx.Amount = *req.Amount
	}
	if req.Kind != nil {
		kind, err := core.ParseKind(*req.Kind)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid transaction kind, expected 'income' or 'expense'")
			return
		}
		tx.Kind = kind
	}
	if req.Description != nil {
		tx.Description = *req.Description
	}
	if req.IsRecurring != nil {
		tx.IsRecurring = *req.IsRecurring
	}
	if req.CycleDays != nil {
		tx.CycleDays = *req.CycleDays
	}
	if req.DurationDays != nil {
		tx.DurationDays = *req.DurationDays
	}
	if req.StartDate != nil {
		d, err := core.ParseDate(*req.StartDate)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid 'start_date', expected YYYY-MM-DD")
			return
		}
		tx.StartDate = d
	}

	if err := s.transactions.Update(r.Context(), tx); err != nil {
		respondError(w, r, err)
		return
	}

	balance, err := s.reports.CurrentTotalBalance(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"transaction":           toTransactionPayload(tx),
		"current_total_balance": balance,
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := pathID(r)

	if err := s.transactions.Delete(r.Context(), userID, id); err != nil {
		respondError(w, r, err)
		return
	}

	balance, err := s.reports.CurrentTotalBalance(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":               "Transaction deleted",
		"current_total_balance": balance,
	})
}

type setCategoryRequest struct {
	CategoryID *int64 `json:"category_id"`
}

func (s *Server) handleSetTransactionCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := pathID(r)

	var req setCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := s.transactions.SetCategory(r.Context(), userID, id, req.CategoryID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toTransactionPayload(tx))
}

// pathID reads the {id} route variable; the route pattern guarantees it is
// numeric.
func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}
