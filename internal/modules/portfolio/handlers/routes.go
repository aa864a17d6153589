package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}/totals", h.HandleGetTotals)
	r.Get("/users/{userID}/positions", h.HandleGetPositions)
	r.Post("/users/{userID}/refresh", h.HandleRefresh) // ?class=crypto limits the refresh
	r.Post("/users/{userID}/snapshot", h.HandleSnapshot)
}
