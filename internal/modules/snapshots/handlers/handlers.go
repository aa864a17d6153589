// Package handlers provides HTTP handlers for snapshot history.
package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/snapshots"
	"github.com/aristath/holdings/internal/utils"
)

// History reads recorded snapshots.
type History interface {
	History(ctx context.Context, userID int64, days int) ([]domain.Snapshot, error)
	Previous(ctx context.Context, userID int64) (*domain.Snapshot, error)
}

// Handler handles snapshot HTTP requests
type Handler struct {
	history     History
	defaultDays int
	log         zerolog.Logger
}

// NewHandler creates a new snapshot handler. A non-positive defaultDays
// selects snapshots.DefaultHistoryDays.
func NewHandler(history History, defaultDays int, log zerolog.Logger) *Handler {
	if defaultDays <= 0 {
		defaultDays = snapshots.DefaultHistoryDays
	}
	return &Handler{
		history:     history,
		defaultDays: defaultDays,
		log:         log.With().Str("handler", "snapshots").Logger(),
	}
}

type historyResponse struct {
	Days      int                      `json:"days"`
	Snapshots []domain.Snapshot        `json:"snapshots"`
	Summary   snapshots.HistorySummary `json:"summary"`
}

// HandleGetHistory returns the snapshots of the last ?days= days with statistics.
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.UserIDParam(r)
	if err != nil {
		utils.WriteError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}
	days, err := utils.IntQuery(r, "days", h.defaultDays)
	if err != nil || days == 0 {
		utils.WriteError(w, h.log, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	history, err := h.history.History(r.Context(), userID, days)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to read history")
		utils.WriteError(w, h.log, utils.ErrorStatus(err), err.Error())
		return
	}
	if history == nil {
		history = []domain.Snapshot{}
	}

	utils.WriteJSON(w, h.log, http.StatusOK, historyResponse{
		Days:      days,
		Snapshots: history,
		Summary:   snapshots.Summarize(history),
	})
}

// HandleGetPrevious returns the latest snapshot before today, or 404.
func (h *Handler) HandleGetPrevious(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.UserIDParam(r)
	if err != nil {
		utils.WriteError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.history.Previous(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, h.log, utils.ErrorStatus(err), err.Error())
		return
	}
	if snap == nil {
		utils.WriteError(w, h.log, http.StatusNotFound, "no snapshot recorded yet")
		return
	}
	utils.WriteJSON(w, h.log, http.StatusOK, snap)
}
