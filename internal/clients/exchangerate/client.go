// Package exchangerate fetches USD/JPY from exchangerate-api.com. It backs up
// the chart API when that one is unavailable.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/domain"
)

// DefaultBaseURL is the latest-rates endpoint; the base currency is appended.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Client for exchangerate-api.com
type Client struct {
	session   *scrape.Session
	humanizer scrape.Humanizer
	baseURL   string
	log       zerolog.Logger
}

// NewClient creates a new exchangerate-api.com client. An empty baseURL
// selects DefaultBaseURL.
func NewClient(session *scrape.Session, humanizer scrape.Humanizer, baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		session:   session,
		humanizer: humanizer,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		log:       log.With().Str("client", "exchangerate-api").Logger(),
	}
}

// Rate returns the current USD/JPY rate.
func (c *Client) Rate(ctx context.Context) (decimal.Decimal, error) {
	body, err := c.session.Get(ctx, c.baseURL+"/USD", c.humanizer.UserAgent(), scrape.AcceptJSON)
	if err != nil {
		return decimal.Zero, err
	}

	doc := scrape.NewPage(body).JSON()
	if doc == nil {
		return decimal.Zero, fmt.Errorf("%w: rates response is not JSON", domain.ErrQuoteUnavailable)
	}
	v, err := jsonpath.Get("$.rates.JPY", doc)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: JPY missing from rates", domain.ErrQuoteUnavailable)
	}

	var rate decimal.Decimal
	switch n := v.(type) {
	case json.Number:
		rate, err = decimal.NewFromString(n.String())
	case float64:
		rate = decimal.NewFromFloat(n)
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: invalid JPY rate %v", domain.ErrQuoteUnavailable, v)
	}

	c.log.Debug().Str("rate", rate.String()).Msg("Fetched rate")
	return rate, nil
}
