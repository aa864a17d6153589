package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/domain"
)

// WriteJSON encodes data with the given status.
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError writes {"error": message}.
func WriteError(w http.ResponseWriter, log zerolog.Logger, status int, message string) {
	WriteJSON(w, log, status, map[string]string{"error": message})
}

// ErrorStatus maps pipeline errors to HTTP status codes.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedSymbol),
		errors.Is(err, domain.ErrNotQuoted),
		errors.Is(err, domain.ErrInvalidAssetClass):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UserIDParam reads the positive {userID} route parameter.
func UserIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

// IntQuery reads a non-negative integer query parameter, or def when absent.
func IntQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}
