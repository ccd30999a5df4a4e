package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/models"
)

func ts(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func item(order, customer, state, category string, value, price float64, purchased time.Time) models.OrderItem {
	return models.OrderItem{
		OrderID:       order,
		CustomerID:    customer,
		CustomerState: state,
		Category:      category,
		ItemValue:     models.NewAmount(value),
		Price:         models.NewAmount(price),
		PurchasedAt:   purchased,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDailyOrders_ThreeOrdersOneDay(t *testing.T) {
	items := []models.OrderItem{
		item("o1", "c1", "SP", "toys", 10, 10, ts(2018, 1, 1, 8)),
		item("o2", "c2", "SP", "toys", 20, 20, ts(2018, 1, 1, 12)),
		item("o3", "c3", "RJ", "toys", 30, 30, ts(2018, 1, 1, 23)),
	}

	got := DailyOrders(items)
	require.Len(t, got, 1)
	require.Equal(t, ts(2018, 1, 1, 0), got[0].Date)
	require.Equal(t, 3, got[0].OrderCount)
	require.True(t, got[0].Revenue.Equal(dec("60")))
}

func TestDailyOrders_DistinctOrdersAndGapDays(t *testing.T) {
	items := []models.OrderItem{
		item("o1", "c1", "SP", "toys", 10, 10, ts(2018, 1, 1, 8)),
		item("o1", "c1", "SP", "toys", 5, 5, ts(2018, 1, 1, 8)), // second item of o1
		item("o2", "c2", "SP", "toys", 7, 7, ts(2018, 1, 3, 9)),
	}
	missing := item("", "c3", "SP", "toys", 1, 1, ts(2018, 1, 3, 10))
	missing.Price = models.Amount{}
	items = append(items, missing)

	got := DailyOrders(items)
	require.Len(t, got, 3)

	require.Equal(t, 1, got[0].OrderCount)
	require.True(t, got[0].Revenue.Equal(dec("15")))

	require.Equal(t, ts(2018, 1, 2, 0), got[1].Date)
	require.Equal(t, 0, got[1].OrderCount, "days without orders are zero-filled")
	require.True(t, got[1].Revenue.IsZero())

	require.Equal(t, 1, got[2].OrderCount, "empty order id is not counted")
	require.True(t, got[2].Revenue.Equal(dec("7")), "absent price is not summed")
}

func TestCategorySales(t *testing.T) {
	items := []models.OrderItem{
		item("o1", "c1", "SP", "toys", 10, 0, ts(2018, 1, 1, 0)),
		item("o2", "c1", "SP", "garden", 25, 0, ts(2018, 1, 1, 0)),
		item("o3", "c1", "SP", "books", 10, 0, ts(2018, 1, 1, 0)),
		item("o4", "c1", "SP", "garden", 0.1, 0, ts(2018, 1, 1, 0)),
		item("o5", "c1", "SP", "", 99, 0, ts(2018, 1, 1, 0)),
	}

	got := CategorySales(items)
	require.Len(t, got, 3)
	require.Equal(t, "garden", got[0].Category)
	require.True(t, got[0].ItemValue.Equal(dec("25.1")))
	require.Equal(t, "toys", got[1].Category, "ties keep first-seen order")
	require.Equal(t, "books", got[2].Category)

	for i := 1; i < len(got); i++ {
		require.True(t, got[i-1].ItemValue.GreaterThanOrEqual(got[i].ItemValue))
	}

	total := decimal.Zero
	for _, c := range got {
		total = total.Add(c.ItemValue)
	}
	require.True(t, total.Equal(dec("45.1")), "sum over categories equals sum over categorized rows")
}

func TestCustomersByState(t *testing.T) {
	items := []models.OrderItem{
		item("o1", "c1", "SP", "toys", 1, 1, ts(2018, 1, 1, 0)),
		item("o2", "c1", "SP", "toys", 1, 1, ts(2018, 1, 2, 0)),
		item("o3", "c2", "SP", "toys", 1, 1, ts(2018, 1, 2, 0)),
		item("o4", "c3", "RJ", "toys", 1, 1, ts(2018, 1, 2, 0)),
		item("o5", "", "MG", "toys", 1, 1, ts(2018, 1, 2, 0)),
	}

	got := CustomersByState(items)
	require.Equal(t, []models.StateCustomers{
		{State: "RJ", CustomerCount: 1},
		{State: "SP", CustomerCount: 2},
	}, got)

	require.Equal(t, "SP", StatesByCount(got)[0].State)
}

func TestRFM(t *testing.T) {
	items := []models.OrderItem{
		item("o1", "c1", "SP", "toys", 10, 10, ts(2018, 1, 1, 9)),
		item("o2", "c1", "SP", "toys", 15, 15, ts(2018, 1, 5, 9)),
		item("o2", "c1", "SP", "toys", 5, 5, ts(2018, 1, 5, 9)),
		item("o3", "c2", "RJ", "toys", 100, 100, ts(2018, 1, 10, 22)),
		item("o4", "c3", "MG", "toys", 1, 1, ts(2018, 1, 10, 1)),
	}

	got := RFM(items)
	require.Len(t, got, 3)

	require.Equal(t, "c1", got[0].CustomerID)
	require.Equal(t, 5, got[0].Recency)
	require.Equal(t, 2, got[0].Frequency)
	require.True(t, got[0].Monetary.Equal(dec("30")))

	require.Equal(t, 0, got[1].Recency, "customer on the latest date has zero recency")
	require.Equal(t, 0, got[2].Recency, "time of day does not matter")

	for _, r := range got {
		require.GreaterOrEqual(t, r.Recency, 0)
	}

	require.Equal(t, "c2", TopByMonetary(got, 1)[0].CustomerID)
	require.Equal(t, "c1", TopByFrequency(got, 1)[0].CustomerID)
	require.Equal(t, "c2", TopByRecency(got, 1)[0].CustomerID)
}

func TestRFM_SingleLatestCustomer(t *testing.T) {
	items := []models.OrderItem{
		item("o1", "c1", "SP", "toys", 1, 1, ts(2018, 3, 1, 0)),
		item("o2", "c2", "SP", "toys", 1, 1, ts(2018, 2, 1, 0)),
		item("o3", "c3", "SP", "toys", 1, 1, ts(2018, 1, 1, 0)),
	}

	zero := 0
	for _, r := range RFM(items) {
		if r.Recency == 0 {
			zero++
			require.Equal(t, "c1", r.CustomerID)
		}
	}
	require.Equal(t, 1, zero)
}

func TestMonthlyDeliveryTime(t *testing.T) {
	delivered := func(purchased, deliveredAt time.Time) models.OrderItem {
		it := item("o", "c", "SP", "toys", 1, 1, purchased)
		it.DeliveredAt = deliveredAt
		return it
	}

	items := []models.OrderItem{
		delivered(ts(2018, 1, 1, 10), ts(2018, 1, 5, 9)),       // 3 days 23h -> 3
		delivered(ts(2018, 1, 10, 0), ts(2018, 1, 15, 0)),      // 5
		delivered(ts(2018, 1, 5, 0), ts(2018, 1, 2, 0)),        // negative, dropped
		item("o", "c", "SP", "toys", 1, 1, ts(2018, 1, 20, 0)), // undelivered
		delivered(ts(2017, 12, 31, 0), ts(2018, 1, 10, 0)),     // 10, counts for December
	}

	got := MonthlyDeliveryTime(items)
	require.Len(t, got, 2)
	require.Equal(t, ts(2017, 12, 1, 0), got[0].Month)
	require.InDelta(t, 10.0, got[0].DeliveryTime, 1e-9)
	require.Equal(t, ts(2018, 1, 1, 0), got[1].Month)
	require.InDelta(t, 4.0, got[1].DeliveryTime, 1e-9)
}

func TestAggregators_EmptyInput(t *testing.T) {
	for _, items := range [][]models.OrderItem{nil, {}} {
		require.NotNil(t, DailyOrders(items))
		require.Empty(t, DailyOrders(items))
		require.NotNil(t, CategorySales(items))
		require.Empty(t, CategorySales(items))
		require.NotNil(t, CustomersByState(items))
		require.NotNil(t, RFM(items))
		require.NotNil(t, MonthlyDeliveryTime(items))
		require.Empty(t, MonthlyDeliveryTime(items))

		s := Summarize(DailyOrders(items))
		require.Zero(t, s.TotalOrders)
		require.True(t, s.TotalRevenue.IsZero())
	}
}

func TestAggregators_DoNotMutateInput(t *testing.T) {
	items := []models.OrderItem{
		item("o2", "c2", "RJ", "b", 1, 1, ts(2018, 1, 2, 0)),
		item("o1", "c1", "SP", "a", 2, 2, ts(2018, 1, 1, 0)),
	}
	before := append([]models.OrderItem(nil), items...)

	DailyOrders(items)
	CategorySales(items)
	CustomersByState(items)
	RFM(items)
	MonthlyDeliveryTime(items)

	require.Equal(t, before, items)
}

func TestTopAndBottomCategories(t *testing.T) {
	sales := []models.CategorySales{
		{Category: "a", ItemValue: dec("50")},
		{Category: "b", ItemValue: dec("40")},
		{Category: "c", ItemValue: dec("30")},
	}

	require.Equal(t, []string{"a", "b"}, categoryNames(TopCategories(sales, 2)))
	require.Equal(t, []string{"c", "b"}, categoryNames(BottomCategories(sales, 2)))
	require.Len(t, TopCategories(sales, 10), 3)
	require.NotNil(t, TopCategories(nil, 5))
}

func categoryNames(s []models.CategorySales) []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Category
	}
	return out
}

func TestFormatters(t *testing.T) {
	require.Equal(t, "$1,234.50", FormatCurrency(dec("1234.5")))
	require.Equal(t, "$0.00", FormatCurrency(decimal.Zero))
	require.Equal(t, "$0.01", FormatCurrency(dec("0.005")))
	require.Equal(t, "-$12.30", FormatCurrency(dec("-12.3")))
	require.Equal(t, "$123,456,789,012,345,678.91", FormatCurrency(dec("123456789012345678.905")))
	require.Equal(t, "12,345", FormatCount(12345))
}
