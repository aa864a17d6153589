package handlers

import (
	"context"
	"encoding/json"
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

// MockHistory is a mock snapshot reader for testing
type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) History(ctx context.Context, userID int64, days int) ([]domain.Snapshot, error) {
	args := m.Called(ctx, userID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Snapshot), args.Error(1)
}

func (m *MockHistory) Previous(ctx context.Context, userID int64) (*domain.Snapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func setupRouter(history *MockHistory) chi.Router {
	r := chi.NewRouter()
	NewHandler(history, 0, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func get(r chi.Router, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestHandleGetHistory(t *testing.T) {
	history := &MockHistory{}
	var snaps []domain.Snapshot
	for i, total := range []int64{100, 120} {
		s := domain.NewSnapshot(1, domain.Date("2024-05-01").AddDays(i))
		s.Total = decimal.NewFromInt(total)
		snaps = append(snaps, s)
	}
	history.On("History", mock.Anything, int64(1), 30).Return(snaps, nil)

	rec := get(setupRouter(history), "/users/1/history?days=30")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Days      int               `json:"days"`
		Snapshots []domain.Snapshot `json:"snapshots"`
		Summary   struct {
			Count  int    `json:"count"`
			Change string `json:"change"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 30, body.Days)
	assert.Len(t, body.Snapshots, 2)
	assert.Equal(t, 2, body.Summary.Count)
	assert.Equal(t, "20", body.Summary.Change)
}

func TestHandleGetHistory_DefaultDays(t *testing.T) {
	history := &MockHistory{}
	history.On("History", mock.Anything, int64(1), 365).Return(nil, nil)

	rec := get(setupRouter(history), "/users/1/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"snapshots":[]`)
	history.AssertExpectations(t)
}

func TestHandleGetHistory_RejectsBadDays(t *testing.T) {
	r := setupRouter(&MockHistory{})
	assert.Equal(t, http.StatusBadRequest, get(r, "/users/1/history?days=0").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/users/1/history?days=x").Code)
}

func TestHandleGetPrevious(t *testing.T) {
	history := &MockHistory{}
	snap := domain.NewSnapshot(1, "2024-04-30")
	history.On("Previous", mock.Anything, int64(1)).Return(&snap, nil)
	history.On("Previous", mock.Anything, int64(2)).Return(nil, nil)
	r := setupRouter(history)

	rec := get(r, "/users/1/snapshots/previous")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"record_date":"2024-04-30"`)

	assert.Equal(t, http.StatusNotFound, get(r, "/users/2/snapshots/previous").Code)
}
