package tanaka

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/domain"
)

const pricePage = `<html><body><table class="price">
<tr><th>Item</th><th>Retail</th><th>Buying</th></tr>
<tr><td class="retail_tax">GOLD</td><td class="retail_tax">14,512 yen</td><td>14,301 yen</td></tr>
<tr><td>PLATINUM</td><td>5,120 yen</td><td>4,980 yen</td></tr>
</table></body></html>`

const headerLabelPage = `<html><body><table>
<tr><th>GOLD</th><td>(+25)</td><td>13,998 yen</td></tr>
</table></body></html>`

const textOnlyPage = `<html><body><p>Today's GOLD retail price is 15,001 yen per gram.</p></body></html>`

func serve(t *testing.T, body string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewSource(scrape.NewSession(5*time.Second, zerolog.Nop()), scrape.NoDelay{}, srv.URL, zerolog.Nop())
}

func TestFetch_GoldRow(t *testing.T) {
	q, err := serve(t, pricePage).Fetch(context.Background(), "金")
	require.NoError(t, err)
	assert.Equal(t, "14512", q.Price.String())
	assert.Equal(t, DisplayName, q.Name)
	assert.Equal(t, domain.AssetClassPreciousMetal, q.Class)
	assert.Equal(t, "金", q.Symbol)
}

func TestFetch_FallsBackToHeaderLabel(t *testing.T) {
	q, err := serve(t, headerLabelPage).Fetch(context.Background(), "gold")
	require.NoError(t, err)
	assert.Equal(t, "13998", q.Price.String())
}

func TestFetch_FallsBackToText(t *testing.T) {
	q, err := serve(t, textOnlyPage).Fetch(context.Background(), "gold")
	require.NoError(t, err)
	assert.Equal(t, "15001", q.Price.String())
}

func TestFetch_NotFound(t *testing.T) {
	_, err := serve(t, `<html><body>maintenance</body></html>`).Fetch(context.Background(), "gold")
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
}
