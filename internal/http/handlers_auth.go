package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"vela/internal/auth"
	"vela/internal/config"
	"vela/internal/core"
	"vela/internal/storage"
)

type registerRequest struct {
	Username       string  `json:"username"`
	Password       string  `json:"password"`
	InitialBalance float64 `json:"initial_balance"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token               string  `json:"token"`
	UserID              int64   `json:"user_id"`
	Username            string  `json:"username"`
	CurrentTotalBalance float64 `json:"current_total_balance"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user := &core.User{
		Username:       req.Username,
		PasswordHash:   hash,
		InitialBalance: req.InitialBalance,
	}

	cats := make([]core.Category, 0, len(config.DefaultCategories))
	for _, c := range config.DefaultCategories {
		cats = append(cats, core.Category{Name: c.Name, Description: c.Description})
	}

	if err := s.storage.CreateUser(r.Context(), user, cats); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			respondMessage(w, http.StatusConflict, "Username already exists")
			return
		}
		respondError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User registered",
		"user_id", user.ID,
		"username", user.Username)

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.storage.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondError(w, r, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	balance, err := s.reports.CurrentTotalBalance(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID)

	respondJSON(w, http.StatusOK, loginResponse{
		Token:               token,
		UserID:              user.ID,
		Username:            user.Username,
		CurrentTotalBalance: balance,
	})
}
