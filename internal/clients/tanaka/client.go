// Package tanaka reads the retail gold price (JPY per gram) from Tanaka Kikinzoku.
package tanaka

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

// DefaultURL is the English retail price page.
const DefaultURL = "https://gold.tanaka.co.jp/commodity/souba/english/index.php"

// DisplayName is the name stored on gold positions.
const DisplayName = "金(Gold)"

var yenPattern = regexp.MustCompile(`([0-9,]+)\s*yen`)

var goldChain = scrape.Chain{
	Strategies: []scrape.Strategy{
		{Name: "gold_row", Extract: goldRow},
		{Name: "gold_row_any_cell", Extract: goldRowAnyCell},
		{Name: "gold_text", Extract: goldText},
	},
	Sane: scrape.Positive,
}

// goldRow reads the second cell of the row whose first cell is GOLD.
func goldRow(p *scrape.Page) []decimal.Decimal {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	var out []decimal.Decimal
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		if !strings.EqualFold(strings.TrimSpace(cells.Eq(0).Text()), "GOLD") {
			return
		}
		out = append(out, scrape.Submatches(yenPattern, cells.Eq(1).Text())...)
	})
	return out
}

// goldRowAnyCell accepts a GOLD label in a th and a price in any later cell.
func goldRowAnyCell(p *scrape.Page) []decimal.Decimal {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	var out []decimal.Decimal
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("th, td")
		if cells.Length() < 2 || !strings.EqualFold(strings.TrimSpace(cells.Eq(0).Text()), "GOLD") {
			return
		}
		cells.Slice(1, cells.Length()).Each(func(_ int, cell *goquery.Selection) {
			out = append(out, scrape.Submatches(yenPattern, cell.Text())...)
		})
	})
	return out
}

// goldText searches the page text following the first GOLD label.
func goldText(p *scrape.Page) []decimal.Decimal {
	window, ok := scrape.Window(p.Text(), "GOLD", 300)
	if !ok {
		return nil
	}
	return scrape.Submatches(yenPattern, window)
}

// Source quotes the gold retail price. The symbol only names the position.
type Source struct {
	session   *scrape.Session
	humanizer scrape.Humanizer
	url       string
	log       zerolog.Logger
}

// NewSource creates the precious metal source. An empty url selects DefaultURL.
func NewSource(session *scrape.Session, humanizer scrape.Humanizer, url string, log zerolog.Logger) *Source {
	if url == "" {
		url = DefaultURL
	}
	return &Source{
		session:   session,
		humanizer: humanizer,
		url:       url,
		log:       log.With().Str("client", "tanaka").Logger(),
	}
}

// Class implements quotes.Source.
func (s *Source) Class() domain.AssetClass {
	return domain.AssetClassPreciousMetal
}

// Fetch returns the retail gold price per gram.
func (s *Source) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	body, err := s.session.Get(ctx, s.url, s.humanizer.UserAgent(), scrape.AcceptHTML)
	if err != nil {
		return domain.Quote{}, err
	}

	price, strategy, ok := goldChain.Extract(body)
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: gold price element not found", domain.ErrQuoteUnavailable)
	}

	s.log.Debug().Str("strategy", strategy).Str("price", price.String()).Msg("Parsed gold price")

	return domain.Quote{
		Class:  domain.AssetClassPreciousMetal,
		Symbol: symbol,
		Price:  price,
		Name:   DisplayName,
	}, nil
}
