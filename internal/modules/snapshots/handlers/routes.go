package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all snapshot routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}/history", h.HandleGetHistory)
	r.Get("/users/{userID}/snapshots/previous", h.HandleGetPrevious)
}
