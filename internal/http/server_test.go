package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"vela/internal/auth"
	"vela/internal/services"
	"vela/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "vela.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	srv := NewServer(":0", repo, tokens,
		services.NewTransactionService(repo, nil),
		services.NewReportService(repo))
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

// registerAndLogin creates a user and returns a valid bearer token.
func registerAndLogin(t *testing.T, srv *Server, username string, initialBalance float64) string {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/register", "", map[string]any{
		"username":        username,
		"password":        "hunter2",
		"initial_balance": initialBalance,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/login", "", map[string]any{
		"username": username,
		"password": "hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["token"].(string)
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/register", "", map[string]any{
		"username":        "alice",
		"password":        "hunter2",
		"initial_balance": 500.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate registration conflicts.
	rec = doJSON(t, srv, http.MethodPost, "/register", "", map[string]any{
		"username": "alice",
		"password": "other",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/login", "", map[string]any{
		"username": "alice",
		"password": "hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["token"] == "" {
		t.Error("login response missing token")
	}
	if body["username"] != "alice" {
		t.Errorf("username = %v", body["username"])
	}
	if body["current_total_balance"] != 500.0 {
		t.Errorf("current_total_balance = %v, want 500", body["current_total_balance"])
	}

	rec = doJSON(t, srv, http.MethodPost, "/login", "", map[string]any{
		"username": "alice",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/balance", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/balance", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", 1000)

	rec := doJSON(t, srv, http.MethodPost, "/transactions", token, map[string]any{
		"amount":      200.0,
		"kind":        "Income",
		"description": "bonus",
		"start_date":  "2025-03-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["current_total_balance"] != 1200.0 {
		t.Errorf("current_total_balance = %v, want 1200", body["current_total_balance"])
	}
	created := body["transaction"].(map[string]any)
	if created["kind"] != "income" {
		t.Errorf("kind = %v, want normalized 'income'", created["kind"])
	}
	txID := int64(created["id"].(float64))

	// Field-level update.
	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/transactions/%d", txID), token, map[string]any{
		"amount": 300.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if body["current_total_balance"] != 1300.0 {
		t.Errorf("after update balance = %v, want 1300", body["current_total_balance"])
	}

	rec = doJSON(t, srv, http.MethodGet, "/transactions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if n := len(body["transactions"].([]any)); n != 1 {
		t.Errorf("list returned %d transactions, want 1", n)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/transactions/%d", txID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["current_total_balance"] != 1000.0 {
		t.Errorf("after delete balance = %v, want 1000", body["current_total_balance"])
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/transactions/%d", txID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", 0)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown kind", map[string]any{"amount": 10.0, "kind": "loan"}},
		{"recurring expense", map[string]any{
			"amount": 10.0, "kind": "expense", "is_recurring": true, "cycle_days": 30,
		}},
		{"cycle with duration", map[string]any{
			"amount": 10.0, "kind": "expense", "cycle_days": 30, "duration_days": 5,
		}},
		{"bad start date", map[string]any{
			"amount": 10.0, "kind": "income", "start_date": "03/01/2025",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/transactions", token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSetTransactionCategory(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", 0)

	rec := doJSON(t, srv, http.MethodGet, "/categories", token, nil)
	cats := decodeBody(t, rec)["categories"].([]any)
	if len(cats) != 8 {
		t.Fatalf("seeded categories = %d, want 8", len(cats))
	}
	catID := int64(cats[0].(map[string]any)["id"].(float64))

	rec = doJSON(t, srv, http.MethodPost, "/transactions", token, map[string]any{
		"amount": 50.0, "kind": "expense", "start_date": "2025-03-01",
	})
	txID := int64(decodeBody(t, rec)["transaction"].(map[string]any)["id"].(float64))

	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/transactions/%d/category", txID), token, map[string]any{
		"category_id": catID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set category status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["category_id"]; got != float64(catID) {
		t.Errorf("category_id = %v, want %d", got, catID)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", 0)

	rec := doJSON(t, srv, http.MethodPost, "/categories", token, map[string]any{
		"name": "Travel", "description": "Trips",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category status = %d", rec.Code)
	}
	catID := int64(decodeBody(t, rec)["id"].(float64))

	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/categories/%d", catID), token, map[string]any{
		"name": "Trips",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update category status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["name"]; got != "Trips" {
		t.Errorf("name = %v, want Trips", got)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/categories/%d", catID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete category status = %d", rec.Code)
	}

	// The fallback category refuses deletion.
	rec = doJSON(t, srv, http.MethodGet, "/categories", token, nil)
	for _, c := range decodeBody(t, rec)["categories"].([]any) {
		cat := c.(map[string]any)
		if cat["name"] == "Other" {
			rec = doJSON(t, srv, http.MethodDelete,
				fmt.Sprintf("/categories/%d", int64(cat["id"].(float64))), token, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("delete fallback status = %d, want 400", rec.Code)
			}
		}
	}
}

func TestBalanceEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", 1000)

	doJSON(t, srv, http.MethodPost, "/transactions", token, map[string]any{
		"amount": 200.0, "kind": "income", "start_date": "2025-03-01",
	})

	rec := doJSON(t, srv, http.MethodGet, "/balance", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["current_total_balance"] != 1200.0 {
		t.Errorf("current_total_balance = %v, want 1200", body["current_total_balance"])
	}
	if _, ok := body["long_term_balance"]; !ok {
		t.Error("response missing long_term_balance")
	}
}

func TestReportEndpointsRejectBadParams(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", 0)

	tests := []struct {
		name string
		path string
	}{
		{"day capacity missing date", "/reports/day_capacity"},
		{"day capacity bad date", "/reports/day_capacity?date=yesterday"},
		{"summary missing range", "/reports/summary?start=2025-03-01"},
		{"summary inverted range", "/reports/summary?start=2025-03-10&end=2025-03-01"},
		{"daily stats bad date", "/reports/categories/daily?date=2025-3-1x"},
		{"monthly stats bad month", "/reports/categories/monthly?year=2025&month=13"},
		{"monthly stats missing year", "/reports/categories/monthly?month=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodGet, tt.path, token, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", 0)

	doJSON(t, srv, http.MethodPost, "/transactions", token, map[string]any{
		"amount": 100.0, "kind": "income", "start_date": "2025-03-02",
	})
	doJSON(t, srv, http.MethodPost, "/transactions", token, map[string]any{
		"amount": 40.0, "kind": "expense", "start_date": "2025-03-03",
	})

	rec := doJSON(t, srv, http.MethodGet, "/reports/summary?start=2025-03-01&end=2025-03-05", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["total_income"] != 100.0 || body["total_expense"] != 40.0 {
		t.Errorf("totals = %v / %v, want 100 / 40", body["total_income"], body["total_expense"])
	}
	if body["net_change"] != 60.0 {
		t.Errorf("net_change = %v, want 60", body["net_change"])
	}
	if n := len(body["day_capacity_trend"].([]any)); n != 5 {
		t.Errorf("trend days = %d, want 5", n)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	aliceToken := registerAndLogin(t, srv, "alice", 0)
	bobToken := registerAndLogin(t, srv, "bob", 0)

	rec := doJSON(t, srv, http.MethodPost, "/transactions", aliceToken, map[string]any{
		"amount": 100.0, "kind": "income", "start_date": "2025-03-01",
	})
	txID := int64(decodeBody(t, rec)["transaction"].(map[string]any)["id"].(float64))

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/transactions/%d", txID), bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want 404", rec.Code)
	}
}
