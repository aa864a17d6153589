package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/aristath/holdings/internal/modules/portfolio"
	"github.com/aristath/holdings/internal/modules/valuation"
	testutil "github.com/aristath/holdings/internal/testing"
)

// MockService is a mock portfolio service for testing
type MockService struct {
	mock.Mock
}

func (m *MockService) GetLiveTotals(ctx context.Context, userID int64) (*domain.Summary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Summary), args.Error(1)
}

func (m *MockService) RefreshPrices(ctx context.Context, userID int64, class *domain.AssetClass) (portfolio.RefreshResult, error) {
	args := m.Called(ctx, userID, class)
	return args.Get(0).(portfolio.RefreshResult), args.Error(1)
}

func (m *MockService) RefreshAndSnapshot(ctx context.Context, userID int64) (portfolio.RefreshResult, *domain.Snapshot, error) {
	args := m.Called(ctx, userID)
	var snap *domain.Snapshot
	if args.Get(1) != nil {
		snap = args.Get(1).(*domain.Snapshot)
	}
	return args.Get(0).(portfolio.RefreshResult), snap, args.Error(2)
}

func setupRouter(svc *MockService, store *testutil.MemoryStore) chi.Router {
	h := NewHandler(svc, store, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func serve(r chi.Router, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandleGetTotals(t *testing.T) {
	svc := &MockService{}
	positions := []domain.Position{
		{Class: domain.AssetClassDomesticEquity, Quantity: decimal.NewFromInt(100),
			Price: decimal.NewFromInt(3000), AvgCost: decimal.NewFromInt(2000)},
	}
	summary := valuation.NewEngine().Summarize(1, positions, decimal.NewFromInt(150), nil)
	svc.On("GetLiveTotals", mock.Anything, int64(1)).Return(&summary, nil)

	rec := serve(setupRouter(svc, testutil.NewMemoryStore()), "GET", "/users/1/totals")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "300000", body["total"])
	assert.Equal(t, "¥300,000", body["total_formatted"])
	classes := body["classes"].([]interface{})
	require.Len(t, classes, len(domain.AllAssetClasses))
	first := classes[0].(map[string]interface{})
	assert.Equal(t, "jp_stock", first["asset_type"])
	assert.Equal(t, "日本株", first["label"])
	svc.AssertExpectations(t)
}

func TestHandleGetTotals_StorageDown(t *testing.T) {
	svc := &MockService{}
	svc.On("GetLiveTotals", mock.Anything, int64(1)).
		Return(nil, fmt.Errorf("%w: locked", domain.ErrStorageUnavailable))

	rec := serve(setupRouter(svc, testutil.NewMemoryStore()), "GET", "/users/1/totals")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleRefresh_WithClass(t *testing.T) {
	svc := &MockService{}
	svc.On("RefreshPrices", mock.Anything, int64(2), mock.MatchedBy(func(c *domain.AssetClass) bool {
		return c != nil && *c == domain.AssetClassCrypto
	})).Return(portfolio.RefreshResult{Requested: 3, Updated: 2}, nil)

	rec := serve(setupRouter(svc, testutil.NewMemoryStore()), "POST", "/users/2/refresh?class=crypto")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"requested":3,"updated":2,"message":"2 of 3 updated"}`, rec.Body.String())
}

func TestHandleRefresh_BadInput(t *testing.T) {
	r := setupRouter(&MockService{}, testutil.NewMemoryStore())
	assert.Equal(t, http.StatusBadRequest, serve(r, "POST", "/users/2/refresh?class=bonds").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, "POST", "/users/abc/refresh").Code)
}

func TestHandleSnapshot(t *testing.T) {
	svc := &MockService{}
	snap := domain.NewSnapshot(1, "2024-05-01")
	snap.Total = decimal.NewFromInt(350000)
	svc.On("RefreshAndSnapshot", mock.Anything, int64(1)).
		Return(portfolio.RefreshResult{Requested: 1, Updated: 1}, &snap, nil)

	rec := serve(setupRouter(svc, testutil.NewMemoryStore()), "POST", "/users/1/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Message  string          `json:"message"`
		Snapshot domain.Snapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1 of 1 updated", body.Message)
	assert.Equal(t, domain.Date("2024-05-01"), body.Snapshot.Date)
}

func TestHandleSnapshot_Failure(t *testing.T) {
	svc := &MockService{}
	svc.On("RefreshAndSnapshot", mock.Anything, int64(1)).
		Return(portfolio.RefreshResult{}, nil, errors.New("boom"))

	rec := serve(setupRouter(svc, testutil.NewMemoryStore()), "POST", "/users/1/snapshot")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleGetPositions(t *testing.T) {
	store := testutil.NewMemoryStore()
	userID := store.AddUser("taro")
	store.AddPositions(testutil.NewPositionFixtures(userID)...)
	r := setupRouter(&MockService{}, store)

	rec := serve(r, "GET", fmt.Sprintf("/users/%d/positions", userID))
	require.Equal(t, http.StatusOK, rec.Code)
	var positions []domain.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	assert.Len(t, positions, len(domain.AllAssetClasses))

	rec = serve(r, "GET", "/users/99/positions")
	assert.JSONEq(t, `[]`, rec.Body.String())
}
