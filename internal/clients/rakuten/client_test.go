package rakuten

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

var testFunds = map[string]string{
	"S&P500": "JP90C000GKC6",
	"オルカン":   "JP90C000H1T1",
}

func newSource(t *testing.T, body string) (*Source, *atomic.Value, *atomic.Int32) {
	t.Helper()
	lastID := &atomic.Value{}
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		lastID.Store(r.URL.Query().Get("ID"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	session := scrape.NewSession(5*time.Second, zerolog.Nop())
	return NewSource(session, scrape.NoDelay{}, srv.URL+"/web/fund/detail/", testFunds, zerolog.Nop()), lastID, hits
}

func TestFetch_HeaderCell(t *testing.T) {
	src, lastID, _ := newSource(t, `<html><body><table>
<tr><th>基準価額</th><td>32,145円</td></tr>
<tr><th>純資産</th><td>5,000,000百万円</td></tr>
</table></body></html>`)

	q, err := src.Fetch(context.Background(), "S&P500")
	require.NoError(t, err)
	assert.Equal(t, "32145", q.Price.String())
	assert.Equal(t, "S&P500", q.Name)
	assert.Equal(t, domain.AssetClassFund, q.Class)
	assert.Equal(t, "JP90C000GKC6", lastID.Load())
}

func TestFetch_SelectorSkipsImplausibleValues(t *testing.T) {
	src, _, _ := newSource(t, `<html><body>
<span class="value">+0.52%</span>
<span class="value">24,001</span>
</body></html>`)

	q, err := src.Fetch(context.Background(), "オルカン")
	require.NoError(t, err)
	assert.Equal(t, "24001", q.Price.String())
}

func TestFetch_AdjacentDataCells(t *testing.T) {
	src, _, _ := newSource(t, `<html><body><table>
<tr><td>基準価額(前日比)</td><td>28,990円</td></tr>
</table></body></html>`)

	q, err := src.Fetch(context.Background(), "S&P500")
	require.NoError(t, err)
	assert.Equal(t, "28990", q.Price.String())
}

func TestFetch_TextWindow(t *testing.T) {
	src, _, _ := newSource(t, `<html><body><p>本日の基準価額は 31,000円 です。</p></body></html>`)

	q, err := src.Fetch(context.Background(), "S&P500")
	require.NoError(t, err)
	assert.Equal(t, "31000", q.Price.String())
}

func TestFetch_TextWindowCountsCharacters(t *testing.T) {
	tests := []struct {
		name    string
		filler  int
		want    string
		wantErr bool
	}{
		{"within 500 characters", 200, "15234", false},
		{"beyond 500 characters", 600, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _, _ := newSource(t, "<html><body><div>基準価額 "+strings.Repeat("前", tt.filler)+" 15,234円</div></body></html>")

			q, err := src.Fetch(context.Background(), "S&P500")
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Price.String())
		})
	}
}

func TestFetch_RoundsToTwoPlaces(t *testing.T) {
	src, _, _ := newSource(t, `<html><body><table>
<tr><th>基準価額</th><td>15,234.567円</td></tr>
</table></body></html>`)

	q, err := src.Fetch(context.Background(), "S&P500")
	require.NoError(t, err)
	assert.Equal(t, "15234.57", q.Price.String())
}

func TestFetch_OutOfRangeIsUnavailable(t *testing.T) {
	src, _, _ := newSource(t, `<html><body><p>基準価額 500円</p></body></html>`)

	_, err := src.Fetch(context.Background(), "S&P500")
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
}

func TestFetch_UnsupportedFundMakesNoRequest(t *testing.T) {
	src, _, hits := newSource(t, `<html></html>`)

	assert.False(t, src.Supports("NASDAQ100"))
	_, err := src.Fetch(context.Background(), "NASDAQ100")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedSymbol))
	assert.Equal(t, int32(0), hits.Load())
}
