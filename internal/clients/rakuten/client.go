// Package rakuten scrapes investment trust base prices (基準価額) from
// Rakuten Securities fund detail pages.
package rakuten

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/domain"
)

// DefaultBaseURL is the fund detail page; the fund is selected by ?ID=.
const DefaultBaseURL = "https://www.rakuten-sec.co.jp/web/fund/detail/"

const navLabel = "基準価額"

// Base prices are quoted per 10,000 units and stay within this band.
var (
	minNAV = decimal.NewFromInt(1000)
	maxNAV = decimal.NewFromInt(100000)
)

var navPattern = regexp.MustCompile(`([0-9,]+(?:\.[0-9]+)?)\s*円`)

var navSelectors = []string{
	"span.value", "dd.fund-detail-nav", `span[class*="nav"]`,
	`div[class*="price"] span`, "td.alR", ".price", ".nav",
}

var navChain = scrape.Chain{
	Strategies: []scrape.Strategy{
		{Name: "nav_header", Extract: navHeader},
		{Name: "selectors", Extract: navSelectorCandidates},
		{Name: "nav_cell", Extract: navCell},
		{Name: "nav_text", Extract: func(p *scrape.Page) []decimal.Decimal {
			window, ok := scrape.Window(scrape.NormalizeWidth(p.Text()), navLabel, 500)
			if !ok {
				return nil
			}
			return scrape.Submatches(navPattern, window)
		}},
	},
	Sane: scrape.Between(minNAV, maxNAV),
}

func cellNumber(s *goquery.Selection) (decimal.Decimal, bool) {
	return scrape.ExtractNumber(scrape.NormalizeWidth(s.Text()))
}

// navHeader reads the td following a th labelled 基準価額.
func navHeader(p *scrape.Page) []decimal.Decimal {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	var out []decimal.Decimal
	doc.Find("th").Each(func(_ int, th *goquery.Selection) {
		if !strings.Contains(th.Text(), navLabel) {
			return
		}
		if v, ok := cellNumber(th.NextAllFiltered("td").First()); ok {
			out = append(out, v)
		}
	})
	return out
}

func navSelectorCandidates(p *scrape.Page) []decimal.Decimal {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	var out []decimal.Decimal
	for _, sel := range navSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := cellNumber(s); ok {
				out = append(out, v)
			}
		})
	}
	return out
}

// navCell handles layouts where the label and value are both td cells.
func navCell(p *scrape.Page) []decimal.Decimal {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	var out []decimal.Decimal
	doc.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		if !strings.Contains(cell.Text(), navLabel) {
			return
		}
		if v, ok := cellNumber(cell.Next()); ok {
			out = append(out, v)
		}
	})
	return out
}

// Source quotes allow-listed funds by their Rakuten fund ID.
type Source struct {
	session   *scrape.Session
	humanizer scrape.Humanizer
	baseURL   string
	funds     map[string]string
	log       zerolog.Logger
}

// NewSource creates the fund source. funds maps a position's symbol to its
// Rakuten fund ID and doubles as the allow-list.
func NewSource(session *scrape.Session, humanizer scrape.Humanizer, baseURL string, funds map[string]string, log zerolog.Logger) *Source {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	allow := make(map[string]string, len(funds))
	for sym, id := range funds {
		allow[strings.TrimSpace(sym)] = id
	}
	return &Source{
		session:   session,
		humanizer: humanizer,
		baseURL:   baseURL,
		funds:     allow,
		log:       log.With().Str("client", "rakuten").Logger(),
	}
}

// Class implements quotes.Source.
func (s *Source) Class() domain.AssetClass {
	return domain.AssetClassFund
}

// Supports reports whether symbol maps to a known fund ID.
func (s *Source) Supports(symbol string) bool {
	_, ok := s.funds[strings.TrimSpace(symbol)]
	return ok
}

func (s *Source) detailURL(id string) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid fund base url: %w", err)
	}
	q := u.Query()
	q.Set("ID", id)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch returns the fund's base price per 10,000 units, rounded to 2 places.
// The quote name is the symbol.
func (s *Source) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	sym := strings.TrimSpace(symbol)
	id, ok := s.funds[sym]
	if !ok {
		return domain.Quote{}, domain.NewQuoteError(domain.AssetClassFund, symbol, domain.ErrUnsupportedSymbol)
	}

	target, err := s.detailURL(id)
	if err != nil {
		return domain.Quote{}, err
	}

	body, err := s.session.Get(ctx, target, s.humanizer.UserAgent(), scrape.AcceptHTML)
	if err != nil {
		return domain.Quote{}, err
	}

	price, strategy, ok := navChain.Extract(body)
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: no base price for fund %s", domain.ErrQuoteUnavailable, id)
	}

	s.log.Debug().
		Str("symbol", sym).
		Str("fund_id", id).
		Str("strategy", strategy).
		Str("price", price.String()).
		Msg("Parsed fund base price")

	return domain.Quote{
		Class:  domain.AssetClassFund,
		Symbol: sym,
		Price:  price.Round(2),
		Name:   sym,
	}, nil
}
