package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage format of snapshot dates.
const DateLayout = "2006-01-02"

// Date is a calendar date in the reporting timezone.
type Date string

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	return Date(t.In(loc).Format(DateLayout))
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date(d.Time().AddDate(0, 0, n).Format(DateLayout))
}

func (d Date) String() string {
	return string(d)
}

// Snapshot is the persisted per-user-per-day valuation record.
// Prev fields hold the preceding day's totals as fixed by the first write of the day.
type Snapshot struct {
	UserID     int64                          `json:"user_id"`
	Date       Date                           `json:"record_date"`
	Values     map[AssetClass]decimal.Decimal `json:"values"`
	Total      decimal.Decimal                `json:"total_value"`
	PrevValues map[AssetClass]decimal.Decimal `json:"prev_values"`
	PrevTotal  decimal.Decimal                `json:"prev_total_value"`
	CreatedAt  time.Time                      `json:"created_at"`
	UpdatedAt  time.Time                      `json:"updated_at"`
}

// NewSnapshot returns an empty snapshot with initialized value maps.
func NewSnapshot(userID int64, date Date) Snapshot {
	return Snapshot{
		UserID:     userID,
		Date:       date,
		Values:     make(map[AssetClass]decimal.Decimal, len(AllAssetClasses)),
		PrevValues: make(map[AssetClass]decimal.Decimal, len(AllAssetClasses)),
	}
}

// Value returns the current-day value for c.
func (s Snapshot) Value(c AssetClass) decimal.Decimal {
	return s.Values[c]
}

// PrevValue returns the previous-day value for c.
func (s Snapshot) PrevValue(c AssetClass) decimal.Decimal {
	return s.PrevValues[c]
}

// DayChange returns the change and change rate (percent) of class c against the prev fields.
func (s Snapshot) DayChange(c AssetClass) (decimal.Decimal, decimal.Decimal) {
	return Change(s.Value(c), s.PrevValue(c))
}

// TotalDayChange returns the change and change rate of the overall total.
func (s Snapshot) TotalDayChange() (decimal.Decimal, decimal.Decimal) {
	return Change(s.Total, s.PrevTotal)
}

var hundred = decimal.NewFromInt(100)

// Rate returns part / base * 100, or zero when base is not positive.
func Rate(part, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return part.Div(base).Mul(hundred)
}

// Change returns current - previous and its rate against previous.
func Change(current, previous decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	diff := current.Sub(previous)
	return diff, Rate(diff, previous)
}
