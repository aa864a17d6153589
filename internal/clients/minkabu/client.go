// Package minkabu scrapes JPY crypto prices from Minkabu's pair pages.
package minkabu

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/domain"
)

// DefaultBaseURL is the pair page root; the pair path is {SYMBOL}_JPY.
const DefaultBaseURL = "https://cc.minkabu.jp/pair"

var (
	jsonFieldPattern  = regexp.MustCompile(`"(?:last|price|lastPrice|close|current|ltp)"\s*:\s*"?([0-9\.,Ee+\-]+)"?`)
	yenAmountPattern  = regexp.MustCompile(`([0-9]{1,3}(?:,[0-9]{3})*(?:\.\d+)?)\s*円`)
	anyYenPattern     = regexp.MustCompile(`([0-9][0-9,]*(?:\.\d+)?)\s*円`)
	dataPricePattern  = regexp.MustCompile(`data-price=["']([0-9\.,Ee+\-]+)["']`)
	scientificPattern = regexp.MustCompile(`([0-9\.,]+[eE][+-]?\d+)`)
)

// priceSelectors are tried in order; the first number in each element's text
// is a candidate.
var priceSelectors = []string{
	"div.pairPrice", ".pairPrice", ".pair_price", "div.priceWrap", "div.kv",
	"span.yen", "div.stock_price span.yen", "p.price", "span.price", "div.price",
	"span.value", "div.value", "strong", "b",
}

const currentPriceLabel = "現在値"

var priceChain = scrape.Chain{
	Strategies: []scrape.Strategy{
		{Name: "json_field", Extract: func(p *scrape.Page) []decimal.Decimal {
			return scrape.Submatches(jsonFieldPattern, string(p.Body))
		}},
		{Name: "current_price_label", Extract: func(p *scrape.Page) []decimal.Decimal {
			window, ok := scrape.Window(rawText(p), currentPriceLabel, 700)
			if !ok {
				return nil
			}
			return scrape.Submatches(yenAmountPattern, window)
		}},
		{Name: "data_price", Extract: func(p *scrape.Page) []decimal.Decimal {
			return scrape.Submatches(dataPricePattern, string(p.Body))
		}},
		{Name: "selectors", Extract: selectorCandidates},
		{Name: "any_yen", Extract: func(p *scrape.Page) []decimal.Decimal {
			return scrape.Submatches(anyYenPattern, rawText(p))
		}},
		{Name: "scientific", Extract: func(p *scrape.Page) []decimal.Decimal {
			return scrape.Submatches(scientificPattern, string(p.Body))
		}},
	},
	Sane: scrape.Positive,
}

// rawText is the decoded HTML, markup included, with digits normalized. The
// label window spans tags, so prices split across elements stay reachable.
func rawText(p *scrape.Page) string {
	return scrape.NormalizeWidth(string(p.Body))
}

func selectorCandidates(p *scrape.Page) []decimal.Decimal {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	var out []decimal.Decimal
	for _, sel := range priceSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := scrape.ExtractNumber(scrape.NormalizeWidth(s.Text())); ok {
				out = append(out, v)
			}
		})
	}
	return out
}

// Source quotes crypto assets against JPY. Only allow-listed symbols are fetched.
type Source struct {
	session   *scrape.Session
	humanizer scrape.Humanizer
	baseURL   string
	names     map[string]string
	log       zerolog.Logger
}

// NewSource creates the crypto source. names maps upper-case symbols to
// display names and doubles as the allow-list.
func NewSource(session *scrape.Session, humanizer scrape.Humanizer, baseURL string, names map[string]string, log zerolog.Logger) *Source {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	allow := make(map[string]string, len(names))
	for sym, name := range names {
		allow[strings.ToUpper(strings.TrimSpace(sym))] = name
	}
	return &Source{
		session:   session,
		humanizer: humanizer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		names:     allow,
		log:       log.With().Str("client", "minkabu").Logger(),
	}
}

// Class implements quotes.Source.
func (s *Source) Class() domain.AssetClass {
	return domain.AssetClassCrypto
}

// Supports reports whether symbol is on the allow-list.
func (s *Source) Supports(symbol string) bool {
	_, ok := s.names[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// Fetch scrapes the JPY price of symbol. Unsupported symbols fail without a request.
func (s *Source) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	name, ok := s.names[sym]
	if !ok {
		return domain.Quote{}, domain.NewQuoteError(domain.AssetClassCrypto, symbol, domain.ErrUnsupportedSymbol)
	}

	url := fmt.Sprintf("%s/%s_JPY", s.baseURL, sym)
	body, err := s.session.Get(ctx, url, s.humanizer.UserAgent(), scrape.AcceptHTML)
	if err != nil {
		return domain.Quote{}, err
	}

	price, strategy, ok := priceChain.Extract(body)
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: no price found for %s", domain.ErrQuoteUnavailable, sym)
	}

	s.log.Debug().
		Str("symbol", sym).
		Str("strategy", strategy).
		Str("price", price.String()).
		Msg("Parsed crypto price")

	return domain.Quote{
		Class:  domain.AssetClassCrypto,
		Symbol: sym,
		Price:  price.Round(2),
		Name:   name,
	}, nil
}
