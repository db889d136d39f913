// Package http exposes the JSON API: registration and login, transaction
// and category CRUD, and the balance and report endpoints.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"vela/internal/auth"
	"vela/internal/middleware/ratelimit"
	"vela/internal/middleware/security"
	"vela/internal/middleware/trace"
	"vela/internal/services"
	"vela/internal/storage"
)

type Server struct {
	http.Server

	storage      *storage.SQLiteRepository
	tokens       *auth.TokenManager
	transactions *services.TransactionService
	reports      *services.ReportService

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer wires the router: /register and /login are public, everything
// else sits behind the token middleware. Security headers, rate limiting
// and request tracing wrap the whole tree.
func NewServer(
	addr string,
	st *storage.SQLiteRepository,
	tokens *auth.TokenManager,
	transactions *services.TransactionService,
	reports *services.ReportService,
) *Server {
	s := &Server{
		storage:      st,
		tokens:       tokens,
		transactions: transactions,
		reports:      reports,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	r := mux.NewRouter()

	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limiter.Middleware(trace.ClientIP, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Retry-After", "60")
		respondMessage(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	}))
	r.Use(trace.NewMiddleware().Handler)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/").Subrouter()
	api.Use(auth.Middleware(tokens))

	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)
	api.HandleFunc("/transactions/{id:[0-9]+}/category", s.handleSetTransactionCategory).Methods(http.MethodPut)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id:[0-9]+}", s.handleUpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id:[0-9]+}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/reports/day_capacity", s.handleDayCapacity).Methods(http.MethodGet)
	api.HandleFunc("/reports/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/reports/categories/daily", s.handleCategoryStatsDaily).Methods(http.MethodGet)
	api.HandleFunc("/reports/categories/monthly", s.handleCategoryStatsMonthly).Methods(http.MethodGet)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

// Shutdown stops the HTTP server and the rate limiter sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
