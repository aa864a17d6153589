package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings/internal/domain"
)

// MockLookuper is a mock quote lookup for testing
type MockLookuper struct {
	mock.Mock
}

func (m *MockLookuper) Lookup(ctx context.Context, class domain.AssetClass, symbol string) (domain.Quote, error) {
	args := m.Called(ctx, class, symbol)
	return args.Get(0).(domain.Quote), args.Error(1)
}

type fixedRate string

func (r fixedRate) USDJPY(context.Context) decimal.Decimal {
	return decimal.RequireFromString(string(r))
}

func setupRouter(lookup *MockLookuper) chi.Router {
	r := chi.NewRouter()
	NewHandler(lookup, fixedRate("152.34"), zerolog.Nop()).RegisterRoutes(r)
	return r
}

func get(r chi.Router, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestHandleGetQuote(t *testing.T) {
	lookup := &MockLookuper{}
	lookup.On("Lookup", mock.Anything, domain.AssetClassCrypto, "BTC").Return(domain.Quote{
		Class: domain.AssetClassCrypto, Symbol: "BTC", Price: decimal.NewFromInt(10500000), Name: "ビットコイン",
	}, nil)

	rec := get(setupRouter(lookup), "/quotes/crypto/BTC")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":"10500000"`)
	assert.Contains(t, rec.Body.String(), `"name":"ビットコイン"`)
}

func TestHandleGetQuote_ErrorMapping(t *testing.T) {
	lookup := &MockLookuper{}
	lookup.On("Lookup", mock.Anything, domain.AssetClassCrypto, "XYZ").
		Return(domain.Quote{}, domain.NewQuoteError(domain.AssetClassCrypto, "XYZ", domain.ErrUnsupportedSymbol))
	lookup.On("Lookup", mock.Anything, domain.AssetClassPreciousMetal, "GOLD").
		Return(domain.Quote{}, domain.NewQuoteError(domain.AssetClassPreciousMetal, "GOLD", domain.ErrQuoteUnavailable))
	r := setupRouter(lookup)

	assert.Equal(t, http.StatusBadRequest, get(r, "/quotes/crypto/XYZ").Code)
	assert.Equal(t, http.StatusBadGateway, get(r, "/quotes/gold/GOLD").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/quotes/bonds/X").Code)
}

func TestHandleGetUSDJPY(t *testing.T) {
	rec := get(setupRouter(&MockLookuper{}), "/fx/usdjpy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pair":"USDJPY","rate":"152.34"}`, rec.Body.String())
}
