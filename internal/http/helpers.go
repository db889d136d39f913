package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"vela/internal/core"
	"vela/internal/storage"
)

const timestampFormat = "2006-01-02 15:04:05"

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}

// respondError maps service errors onto status codes: unknown rows are 404,
// validation failures 400, everything else 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondMessage(w, http.StatusNotFound, "Not found")
	case isValidationError(err):
		respondMessage(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		respondMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidKind,
		core.ErrInvalidAmount,
		core.ErrInvalidCycle,
		core.ErrInvalidDuration,
		core.ErrRecurringExpense,
		core.ErrAmbiguousShape,
		core.ErrMissingStartDate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseDateParam parses a required YYYY-MM-DD query parameter. Malformed
// dates never reach the engine.
func parseDateParam(r *http.Request, name string) (core.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return core.Date{}, errors.New("missing '" + name + "' parameter")
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, errors.New("invalid '" + name + "' date, expected YYYY-MM-DD")
	}
	return d, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func formatDatePtr(d *core.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
