package scrape

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Page is a fetched response body. The HTML document and the JSON value are
// each decoded at most once, on first use, and shared by every strategy of a chain.
type Page struct {
	Body []byte

	once sync.Once
	doc  *goquery.Document
	err  error

	jsonOnce sync.Once
	json     interface{}
	jsonErr  error
}

// NewPage wraps a response body.
func NewPage(body []byte) *Page {
	return &Page{Body: body}
}

// Doc returns the parsed HTML document, or nil if the body is not parseable.
func (p *Page) Doc() *goquery.Document {
	p.once.Do(func() {
		p.doc, p.err = goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	})
	if p.err != nil {
		return nil
	}
	return p.doc
}

// JSON returns the body decoded as JSON with numbers kept as json.Number,
// or nil if the body is not valid JSON.
func (p *Page) JSON() interface{} {
	p.jsonOnce.Do(func() {
		dec := json.NewDecoder(bytes.NewReader(p.Body))
		dec.UseNumber()
		p.jsonErr = dec.Decode(&p.json)
	})
	if p.jsonErr != nil {
		return nil
	}
	return p.json
}

// Text returns the visible text of the document, or the raw body if it does not parse.
func (p *Page) Text() string {
	if doc := p.Doc(); doc != nil {
		return doc.Text()
	}
	return string(p.Body)
}

// Strategy extracts candidate prices from a page, in the order it trusts them.
// Strategies must not mutate the page.
type Strategy struct {
	Name    string
	Extract func(p *Page) []decimal.Decimal
}

// Filter decides whether an extracted value is plausible.
type Filter func(decimal.Decimal) bool

// Positive accepts values greater than zero.
func Positive(v decimal.Decimal) bool {
	return v.IsPositive()
}

// Between accepts values in [lo, hi].
func Between(lo, hi decimal.Decimal) Filter {
	return func(v decimal.Decimal) bool {
		return v.GreaterThanOrEqual(lo) && v.LessThanOrEqual(hi)
	}
}

// Chain tries strategies in order; the first candidate passing Sane wins.
type Chain struct {
	Strategies []Strategy
	Sane       Filter
}

// Extract runs the chain against body. It returns the value and the name of
// the strategy that produced it.
func (c Chain) Extract(body []byte) (decimal.Decimal, string, bool) {
	return c.ExtractPage(NewPage(body))
}

// ExtractPage runs the chain against an already wrapped page.
func (c Chain) ExtractPage(page *Page) (decimal.Decimal, string, bool) {
	sane := c.Sane
	if sane == nil {
		sane = Positive
	}

	for _, s := range c.Strategies {
		for _, v := range s.Extract(page) {
			if sane(v) {
				return v, s.Name, true
			}
		}
	}
	return decimal.Zero, "", false
}
