// Package yahoo reads equity prices and the USD/JPY rate from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/domain"
)

// DefaultBaseURL is the chart endpoint; the symbol is appended.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// USDJPYSymbol is the chart symbol of the USD/JPY rate.
const USDJPYSymbol = "USDJPY=X"

var metaPrice = []string{
	"$.chart.result[0].meta.regularMarketPrice",
	"$.chart.result[0].meta.previousClose",
	"$.chart.result[0].meta.chartPreviousClose",
}

var metaName = []string{
	"$.chart.result[0].meta.shortName",
	"$.chart.result[0].meta.longName",
}

// priceChain reads the first positive meta price.
var priceChain = scrape.Chain{
	Strategies: pathStrategies(metaPrice),
	Sane:       scrape.Positive,
}

// Client is a Yahoo Finance chart API client
type Client struct {
	session   *scrape.Session
	humanizer scrape.Humanizer
	baseURL   string
	log       zerolog.Logger
}

// NewClient creates a new chart client. An empty baseURL selects DefaultBaseURL.
func NewClient(session *scrape.Session, humanizer scrape.Humanizer, baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		session:   session,
		humanizer: humanizer,
		baseURL:   baseURL,
		log:       log.With().Str("client", "yahoo").Logger(),
	}
}

// chartResult is the part of a chart response the sources need.
type chartResult struct {
	Price decimal.Decimal
	Name  string
}

// chart fetches one chart document and extracts price and name.
func (c *Client) chart(ctx context.Context, symbol string) (chartResult, error) {
	body, err := c.session.Get(ctx, c.baseURL+url.PathEscape(symbol), c.humanizer.UserAgent(), scrape.AcceptJSON)
	if err != nil {
		return chartResult{}, err
	}

	page := scrape.NewPage(body)
	doc := page.JSON()
	if doc == nil {
		return chartResult{}, fmt.Errorf("%w: chart response for %s is not JSON", domain.ErrQuoteUnavailable, symbol)
	}
	if apiErr, err := jsonpath.Get("$.chart.error.description", doc); err == nil && apiErr != nil {
		return chartResult{}, fmt.Errorf("%w: chart API error for %s: %v", domain.ErrQuoteUnavailable, symbol, apiErr)
	}

	price, strategy, ok := priceChain.ExtractPage(page)
	if !ok {
		return chartResult{}, fmt.Errorf("%w: no price in chart for %s", domain.ErrQuoteUnavailable, symbol)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("strategy", strategy).
		Str("price", price.String()).
		Msg("Parsed chart price")

	return chartResult{Price: price, Name: firstString(doc, metaName)}, nil
}

// Rate returns the current USD/JPY rate.
func (c *Client) Rate(ctx context.Context) (decimal.Decimal, error) {
	res, err := c.chart(ctx, USDJPYSymbol)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Price, nil
}

// DomesticSource quotes Tokyo-listed equities by their four-digit code.
type DomesticSource struct {
	client *Client
}

// NewDomesticSource creates the domestic equity source.
func NewDomesticSource(client *Client) *DomesticSource {
	return &DomesticSource{client: client}
}

// Class implements quotes.Source.
func (s *DomesticSource) Class() domain.AssetClass {
	return domain.AssetClassDomesticEquity
}

// Fetch returns the JPY price and the cleaned company name.
func (s *DomesticSource) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	code := strings.TrimSpace(symbol)
	if code == "" {
		return domain.Quote{}, fmt.Errorf("%w: empty symbol", domain.ErrUnsupportedSymbol)
	}
	if !strings.Contains(code, ".") {
		code += ".T"
	}

	res, err := s.client.chart(ctx, code)
	if err != nil {
		return domain.Quote{}, err
	}

	name := scrape.CleanCompanyName(res.Name)
	if name == "" {
		name = "Stock " + symbol
	}
	return domain.Quote{
		Class:  domain.AssetClassDomesticEquity,
		Symbol: symbol,
		Price:  res.Price.Round(2),
		Name:   name,
	}, nil
}

// ForeignSource quotes US-listed equities; prices stay in USD.
type ForeignSource struct {
	client *Client
}

// NewForeignSource creates the foreign equity source.
func NewForeignSource(client *Client) *ForeignSource {
	return &ForeignSource{client: client}
}

// Class implements quotes.Source.
func (s *ForeignSource) Class() domain.AssetClass {
	return domain.AssetClassForeignEquity
}

// Fetch returns the USD price and the listed name.
func (s *ForeignSource) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	ticker := strings.ToUpper(strings.TrimSpace(symbol))
	if ticker == "" {
		return domain.Quote{}, fmt.Errorf("%w: empty symbol", domain.ErrUnsupportedSymbol)
	}

	res, err := s.client.chart(ctx, ticker)
	if err != nil {
		return domain.Quote{}, err
	}

	name := strings.TrimSpace(res.Name)
	if name == "" {
		name = ticker
	}
	return domain.Quote{
		Class:  domain.AssetClassForeignEquity,
		Symbol: symbol,
		Price:  res.Price.Round(2),
		Name:   name,
	}, nil
}

func pathStrategies(paths []string) []scrape.Strategy {
	out := make([]scrape.Strategy, 0, len(paths))
	for _, path := range paths {
		path := path
		out = append(out, scrape.Strategy{
			Name: path,
			Extract: func(p *scrape.Page) []decimal.Decimal {
				doc := p.JSON()
				if doc == nil {
					return nil
				}
				v, err := jsonpath.Get(path, doc)
				if err != nil {
					return nil
				}
				if d, ok := toDecimal(v); ok {
					return []decimal.Decimal{d}
				}
				return nil
			},
		})
	}
	return out
}

func firstString(doc interface{}, paths []string) string {
	for _, path := range paths {
		v, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		return scrape.ParseNumber(n)
	default:
		return decimal.Zero, false
	}
}
