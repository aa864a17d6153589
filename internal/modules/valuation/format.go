package valuation

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatJPY renders a yen amount rounded to whole yen, e.g. "¥1,234,567".
func FormatJPY(v decimal.Decimal) string {
	return money.New(v.Round(0).IntPart(), money.JPY).Display()
}

// FormatUSD renders a dollar amount with cents, e.g. "$1,234.56".
func FormatUSD(v decimal.Decimal) string {
	return money.New(v.Shift(2).Round(0).IntPart(), money.USD).Display()
}

// FormatRate renders a percentage with a sign, e.g. "+1.23%".
func FormatRate(v decimal.Decimal) string {
	s := v.StringFixed(2) + "%"
	if v.IsPositive() {
		return "+" + s
	}
	return s
}
