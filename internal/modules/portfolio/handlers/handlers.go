// Package handlers provides HTTP handlers for portfolio valuation and refresh.
package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/portfolio"
	"github.com/aristath/holdings/internal/modules/valuation"
	"github.com/aristath/holdings/internal/utils"
)

// Service is the portfolio pipeline used by the handlers.
type Service interface {
	GetLiveTotals(ctx context.Context, userID int64) (*domain.Summary, error)
	RefreshPrices(ctx context.Context, userID int64, class *domain.AssetClass) (portfolio.RefreshResult, error)
	RefreshAndSnapshot(ctx context.Context, userID int64) (portfolio.RefreshResult, *domain.Snapshot, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service   Service
	positions domain.PositionReader
	log       zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service Service, positions domain.PositionReader, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		positions: positions,
		log:       log.With().Str("handler", "portfolio").Logger(),
	}
}

type classView struct {
	domain.ClassTotals
	Label          string `json:"label"`
	ValueFormatted string `json:"total_formatted"`
}

type totalsResponse struct {
	*domain.Summary
	Classes        []classView `json:"classes"`
	TotalFormatted string      `json:"total_formatted"`
	USDFormatted   string      `json:"us_total_usd_formatted"`
	DayChangeText  string      `json:"day_change_rate_formatted"`
}

// HandleGetTotals returns live per-class and aggregate totals.
func (h *Handler) HandleGetTotals(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.UserIDParam(r)
	if err != nil {
		utils.WriteError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.GetLiveTotals(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to compute totals")
		utils.WriteError(w, h.log, utils.ErrorStatus(err), err.Error())
		return
	}

	resp := totalsResponse{
		Summary:        summary,
		Classes:        make([]classView, 0, len(domain.AllAssetClasses)),
		TotalFormatted: valuation.FormatJPY(summary.Total),
		USDFormatted:   valuation.FormatUSD(summary.USDTotal),
		DayChangeText:  valuation.FormatRate(summary.DayChangeRate),
	}
	for _, c := range domain.AllAssetClasses {
		t := summary.Class(c)
		resp.Classes = append(resp.Classes, classView{
			ClassTotals:    t,
			Label:          c.Label(),
			ValueFormatted: valuation.FormatJPY(t.Value),
		})
	}
	utils.WriteJSON(w, h.log, http.StatusOK, resp)
}

// HandleGetPositions lists the user's stored positions.
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.UserIDParam(r)
	if err != nil {
		utils.WriteError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	positions, err := h.positions.ListPositions(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, h.log, http.StatusInternalServerError, err.Error())
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	utils.WriteJSON(w, h.log, http.StatusOK, positions)
}

type refreshResponse struct {
	portfolio.RefreshResult
	Message  string           `json:"message"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
}

// HandleRefresh fetches fresh quotes, optionally for one ?class=.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.UserIDParam(r)
	if err != nil {
		utils.WriteError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	var class *domain.AssetClass
	if raw := r.URL.Query().Get("class"); raw != "" {
		c, err := domain.ParseAssetClass(raw)
		if err != nil {
			utils.WriteError(w, h.log, http.StatusBadRequest, err.Error())
			return
		}
		class = &c
	}

	result, err := h.service.RefreshPrices(r.Context(), userID, class)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Refresh failed")
		utils.WriteError(w, h.log, utils.ErrorStatus(err), err.Error())
		return
	}
	utils.WriteJSON(w, h.log, http.StatusOK, refreshResponse{RefreshResult: result, Message: result.Message()})
}

// HandleSnapshot refreshes every quotable position and records today's snapshot.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.UserIDParam(r)
	if err != nil {
		utils.WriteError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	result, snap, err := h.service.RefreshAndSnapshot(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Refresh and snapshot failed")
		utils.WriteError(w, h.log, utils.ErrorStatus(err), err.Error())
		return
	}
	utils.WriteJSON(w, h.log, http.StatusOK, refreshResponse{
		RefreshResult: result,
		Message:       result.Message(),
		Snapshot:      snap,
	})
}
