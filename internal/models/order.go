package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used by query params, signals and JSON.
const DateLayout = "2006-01-02"

// Amount is a decimal cell that may be absent from the source row.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

func NewAmount(v float64) Amount {
	return Amount{Value: decimal.NewFromFloat(v), Valid: true}
}

// OrderItem is one row of the pre-joined transactions dataset.
// One order spans many item rows.
type OrderItem struct {
	OrderID       string
	CustomerID    string
	CustomerState string
	Category      string
	ItemValue     Amount
	Price         Amount
	PurchasedAt   time.Time
	DeliveredAt   time.Time // zero when undelivered
}

func (o OrderItem) PurchaseDate() time.Time {
	return DateOf(o.PurchasedAt)
}

func (o OrderItem) Delivered() bool {
	return !o.DeliveredAt.IsZero()
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: DateOf(start), End: DateOf(end)}
}

// Contains compares the date portion of t against the bounds.
func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) Empty() bool {
	return r.Start.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
