package testing

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/domain"
)

// NewPositionFixtures returns one or more positions of every asset class for
// userID. IDs are left zero.
func NewPositionFixtures(userID int64) []domain.Position {
	d := decimal.RequireFromString
	return []domain.Position{
		{UserID: userID, Class: domain.AssetClassDomesticEquity, Symbol: "7203", Name: "トヨタ自動車",
			Quantity: d("100"), Price: d("2850"), AvgCost: d("2000")},
		{UserID: userID, Class: domain.AssetClassForeignEquity, Symbol: "AAPL", Name: "Apple Inc.",
			Quantity: d("10"), Price: d("200"), AvgCost: d("150")},
		{UserID: userID, Class: domain.AssetClassCash, Symbol: "JPY", Name: "普通預金",
			Quantity: d("500000")},
		{UserID: userID, Class: domain.AssetClassPreciousMetal, Symbol: "金", Name: "金(Gold)",
			Quantity: d("10"), Price: d("14500"), AvgCost: d("9000")},
		{UserID: userID, Class: domain.AssetClassCrypto, Symbol: "BTC", Name: "ビットコイン",
			Quantity: d("0.05"), Price: d("10000000"), AvgCost: d("8000000")},
		{UserID: userID, Class: domain.AssetClassFund, Symbol: "S&P500", Name: "S&P500",
			Quantity: d("100000"), Price: d("30000"), AvgCost: d("25000")},
		{UserID: userID, Class: domain.AssetClassInsurance, Symbol: "終身保険", Name: "終身保険",
			Quantity: d("1"), Price: d("1200000"), AvgCost: d("1000000")},
	}
}
