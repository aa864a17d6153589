// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass identifies one of the seven portfolio categories.
// The string values are the identifiers used in storage and on the wire.
type AssetClass string

const (
	AssetClassDomesticEquity AssetClass = "jp_stock"
	AssetClassForeignEquity  AssetClass = "us_stock"
	AssetClassCash           AssetClass = "cash"
	AssetClassPreciousMetal  AssetClass = "gold"
	AssetClassCrypto         AssetClass = "crypto"
	AssetClassFund           AssetClass = "investment_trust"
	AssetClassInsurance      AssetClass = "insurance"
)

// AllAssetClasses lists every asset class in display order.
var AllAssetClasses = []AssetClass{
	AssetClassDomesticEquity,
	AssetClassForeignEquity,
	AssetClassCash,
	AssetClassPreciousMetal,
	AssetClassCrypto,
	AssetClassFund,
	AssetClassInsurance,
}

var assetClassLabels = map[AssetClass]string{
	AssetClassDomesticEquity: "日本株",
	AssetClassForeignEquity:  "米国株",
	AssetClassCash:           "現金",
	AssetClassPreciousMetal:  "金 (Gold)",
	AssetClassCrypto:         "暗号資産",
	AssetClassFund:           "投資信託",
	AssetClassInsurance:      "保険",
}

// ParseAssetClass validates an asset class identifier.
func ParseAssetClass(s string) (AssetClass, error) {
	c := AssetClass(strings.TrimSpace(s))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetClass, s)
	}
	return c, nil
}

// Valid reports whether c is a known asset class.
func (c AssetClass) Valid() bool {
	_, ok := assetClassLabels[c]
	return ok
}

// Quoted reports whether positions of this class have an external quote.
// Cash and insurance carry their own valuation and are never fetched.
func (c AssetClass) Quoted() bool {
	return c.Valid() && c != AssetClassCash && c != AssetClassInsurance
}

// Label returns the display label for the class.
func (c AssetClass) Label() string {
	if l, ok := assetClassLabels[c]; ok {
		return l
	}
	return string(c)
}

// User is a portfolio owner.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Position is a single holding owned by a user.
// Price holds the last stored unit price; for insurance it holds the lump valuation.
type Position struct {
	ID       int64           `json:"id"`
	UserID   int64           `json:"user_id"`
	Class    AssetClass      `json:"asset_type"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
}

// Quote is an externally sourced unit price plus display name.
type Quote struct {
	Class     AssetClass      `json:"asset_type"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// The USD/JPY rate travels as a Quote under a pseudo class that is not a
// portfolio asset class (Valid reports false for it).
const (
	FXClass    AssetClass = "fx"
	FXSymbol              = "USDJPY"
	FXCacheKey            = "fx:USDJPY"
)

// CacheKey returns the quote cache key for a class and symbol.
func CacheKey(class AssetClass, symbol string) string {
	return string(class) + ":" + symbol
}

// CacheKey returns the quote cache key for q.
func (q Quote) CacheKey() string {
	return CacheKey(q.Class, q.Symbol)
}

// PriceUpdate pairs a fetched quote with the position it was requested for.
type PriceUpdate struct {
	PositionID int64 `json:"position_id"`
	Quote      Quote `json:"quote"`
}

// ClassTotals are the derived valuation figures for one asset class,
// expressed in the reporting currency.
type ClassTotals struct {
	Class         AssetClass      `json:"asset_type"`
	Value         decimal.Decimal `json:"total"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitRate    decimal.Decimal `json:"profit_rate"`
	DayChange     decimal.Decimal `json:"day_change"`
	DayChangeRate decimal.Decimal `json:"day_change_rate"`
}

// Summary is the live valuation of a user's whole portfolio.
type Summary struct {
	UserID  int64                      `json:"user_id"`
	Classes map[AssetClass]ClassTotals `json:"classes"`

	// Total includes cash.
	Total         decimal.Decimal `json:"total"`
	DayChange     decimal.Decimal `json:"day_change"`
	DayChangeRate decimal.Decimal `json:"day_change_rate"`

	// Investment figures exclude cash, which has no cost basis.
	InvestmentValue  decimal.Decimal `json:"investment_value"`
	InvestmentCost   decimal.Decimal `json:"investment_cost"`
	InvestmentProfit decimal.Decimal `json:"investment_profit"`
	ProfitRate       decimal.Decimal `json:"profit_rate"`

	USDJPY   decimal.Decimal `json:"usd_jpy"`
	USDTotal decimal.Decimal `json:"us_total_usd"`
	AsOf     time.Time       `json:"as_of"`
}

// Class returns the totals for c, or zero totals if c is absent.
func (s Summary) Class(c AssetClass) ClassTotals {
	if t, ok := s.Classes[c]; ok {
		return t
	}
	return ClassTotals{Class: c}
}
