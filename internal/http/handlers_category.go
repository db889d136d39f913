package http

import (
	"errors"
	"net/http"
	"strings"

	"vela/internal/auth"
	"vela/internal/config"
	"vela/internal/core"
	"vela/internal/storage"
)

type categoryPayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	cats, err := s.storage.ListCategories(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	payload := make([]categoryPayload, 0, len(cats))
	for _, c := range cats {
		payload = append(payload, categoryPayload{ID: c.ID, Name: c.Name, Description: c.Description})
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": payload})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondMessage(w, http.StatusBadRequest, "Category name is required")
		return
	}

	c := &core.Category{UserID: userID, Name: req.Name, Description: req.Description}
	if err := s.storage.CreateCategory(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, categoryPayload{ID: c.ID, Name: c.Name, Description: c.Description})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := pathID(r)

	existing, err := s.storage.GetCategory(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		existing.Name = name
	}
	if req.Description != "" {
		existing.Description = req.Description
	}

	if err := s.storage.UpdateCategory(r.Context(), existing); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, categoryPayload{ID: existing.ID, Name: existing.Name, Description: existing.Description})
}

// handleDeleteCategory removes a category after moving its transactions to
// the fallback bucket. The fallback itself is protected.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := pathID(r)

	err := s.storage.DeleteCategory(r.Context(), userID, id, config.FallbackCategory)
	if err != nil {
		if errors.Is(err, storage.ErrFallbackCategory) {
			respondMessage(w, http.StatusBadRequest, "The '"+config.FallbackCategory+"' category cannot be deleted")
			return
		}
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Category deleted, its transactions were moved to '" + config.FallbackCategory + "'",
	})
}
