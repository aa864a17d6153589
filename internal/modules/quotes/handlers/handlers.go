// Package handlers exposes single quote and exchange-rate lookups over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/utils"
)

// Lookuper resolves one quote, cache first.
type Lookuper interface {
	Lookup(ctx context.Context, class domain.AssetClass, symbol string) (domain.Quote, error)
}

// RateProvider returns the USD/JPY rate.
type RateProvider interface {
	USDJPY(ctx context.Context) decimal.Decimal
}

// Handler handles quote HTTP requests
type Handler struct {
	lookup Lookuper
	fx     RateProvider
	log    zerolog.Logger
}

// NewHandler creates a new quote handler
func NewHandler(lookup Lookuper, fx RateProvider, log zerolog.Logger) *Handler {
	return &Handler{
		lookup: lookup,
		fx:     fx,
		log:    log.With().Str("handler", "quotes").Logger(),
	}
}

// RegisterRoutes registers all quote routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/quotes/{class}/{symbol}", h.HandleGetQuote)
	r.Get("/fx/usdjpy", h.HandleGetUSDJPY)
}

// HandleGetQuote looks up a single quote.
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	class, err := domain.ParseAssetClass(chi.URLParam(r, "class"))
	if err != nil {
		utils.WriteError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}
	symbol := strings.TrimSpace(chi.URLParam(r, "symbol"))
	if symbol == "" {
		utils.WriteError(w, h.log, http.StatusBadRequest, "symbol is required")
		return
	}

	quote, err := h.lookup.Lookup(r.Context(), class, symbol)
	if err != nil {
		h.log.Warn().Err(err).Str("asset_type", string(class)).Str("symbol", symbol).Msg("Quote lookup failed")
		utils.WriteError(w, h.log, utils.ErrorStatus(err), err.Error())
		return
	}
	utils.WriteJSON(w, h.log, http.StatusOK, quote)
}

// HandleGetUSDJPY returns the current conversion rate.
func (h *Handler) HandleGetUSDJPY(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"pair": domain.FXSymbol,
		"rate": h.fx.USDJPY(r.Context()),
	})
}
