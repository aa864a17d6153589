package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/domain"
)

const toyotaChart = `{"chart":{"result":[{"meta":{"currency":"JPY","symbol":"7203.T",
"regularMarketPrice":3456.789,"previousClose":3400,"shortName":"TOYOTA MOTOR CORP","longName":"Toyota Motor Corporation"}}],"error":null}}`

const appleChart = `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"AAPL",
"previousClose":189.955,"longName":"Apple Inc."}}],"error":null}}`

const fxChart = `{"chart":{"result":[{"meta":{"symbol":"USDJPY=X","regularMarketPrice":151.23}}],"error":null}}`

func newTestClient(t *testing.T, bodies map[string]string) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		symbol := strings.TrimPrefix(r.URL.Path, "/chart/")
		body, ok := bodies[symbol]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	session := scrape.NewSession(5*time.Second, zerolog.Nop())
	return NewClient(session, scrape.NoDelay{}, srv.URL+"/chart/", zerolog.Nop()), &calls
}

func TestDomesticSource_Fetch(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{"7203.T": toyotaChart})
	src := NewDomesticSource(client)

	q, err := src.Fetch(context.Background(), "7203")
	require.NoError(t, err)
	assert.Equal(t, domain.AssetClassDomesticEquity, q.Class)
	assert.Equal(t, "7203", q.Symbol)
	assert.Equal(t, "3456.79", q.Price.String())
	assert.Equal(t, "TOYOTA MOTOR", q.Name)
}

func TestForeignSource_FallsBackToPreviousCloseAndLongName(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{"AAPL": appleChart})
	src := NewForeignSource(client)

	q, err := src.Fetch(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "189.96", q.Price.String())
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.Equal(t, "aapl", q.Symbol)
}

func TestDomesticSource_DefaultName(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{
		"9999.T": `{"chart":{"result":[{"meta":{"regularMarketPrice":100}}],"error":null}}`,
	})
	q, err := NewDomesticSource(client).Fetch(context.Background(), "9999")
	require.NoError(t, err)
	assert.Equal(t, "Stock 9999", q.Name)
}

func TestFetch_NoPositivePrice(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{
		"ZERO": `{"chart":{"result":[{"meta":{"regularMarketPrice":0}}],"error":null}}`,
	})
	_, err := NewForeignSource(client).Fetch(context.Background(), "ZERO")
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
}

func TestFetch_APIError(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{
		"BAD": `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`,
	})
	_, err := NewForeignSource(client).Fetch(context.Background(), "BAD")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
	assert.Contains(t, err.Error(), "delisted")
}

func TestFetch_HTTPFailure(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{})
	_, err := NewForeignSource(client).Fetch(context.Background(), "MSFT")
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
}

func TestFetch_EmptySymbol(t *testing.T) {
	client, calls := newTestClient(t, map[string]string{})
	_, err := NewForeignSource(client).Fetch(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedSymbol))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestRate(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{"USDJPY=X": fxChart})
	rate, err := client.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "151.23", rate.String())
}
