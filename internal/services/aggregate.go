package services

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

const oneDay = 24 * time.Hour

// DailyOrders resamples rows per calendar day of purchase. Every day from
// the first to the last purchase day gets a row; days without rows are zero.
func DailyOrders(items []models.OrderItem) []models.DailyOrders {
	type dayAgg struct {
		orders  map[string]struct{}
		revenue decimal.Decimal
	}

	groups := make(map[time.Time]*dayAgg)
	var first, last time.Time
	for _, it := range items {
		d := it.PurchaseDate()
		if len(groups) == 0 || d.Before(first) {
			first = d
		}
		if len(groups) == 0 || d.After(last) {
			last = d
		}
		g := groups[d]
		if g == nil {
			g = &dayAgg{orders: make(map[string]struct{})}
			groups[d] = g
		}
		if it.OrderID != "" {
			g.orders[it.OrderID] = struct{}{}
		}
		if it.Price.Valid {
			g.revenue = g.revenue.Add(it.Price.Value)
		}
	}

	result := make([]models.DailyOrders, 0, len(groups))
	if len(groups) == 0 {
		return result
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		row := models.DailyOrders{Date: d, Revenue: decimal.Zero}
		if g := groups[d]; g != nil {
			row.OrderCount = len(g.orders)
			row.Revenue = g.revenue
		}
		result = append(result, row)
	}
	return result
}

// CategorySales sums item value per category, largest first.
// Equal sums keep the order in which categories were first seen.
func CategorySales(items []models.OrderItem) []models.CategorySales {
	index := make(map[string]int)
	result := make([]models.CategorySales, 0)
	for _, it := range items {
		if it.Category == "" || !it.ItemValue.Valid {
			continue
		}
		i, ok := index[it.Category]
		if !ok {
			i = len(result)
			index[it.Category] = i
			result = append(result, models.CategorySales{Category: it.Category, ItemValue: decimal.Zero})
		}
		result[i].ItemValue = result[i].ItemValue.Add(it.ItemValue.Value)
	}

	slices.SortStableFunc(result, func(a, b models.CategorySales) int {
		return b.ItemValue.Cmp(a.ItemValue)
	})
	return result
}

// CustomersByState counts distinct customers per state, ordered by state code.
func CustomersByState(items []models.OrderItem) []models.StateCustomers {
	groups := make(map[string]map[string]struct{})
	for _, it := range items {
		if it.CustomerState == "" || it.CustomerID == "" {
			continue
		}
		customers := groups[it.CustomerState]
		if customers == nil {
			customers = make(map[string]struct{})
			groups[it.CustomerState] = customers
		}
		customers[it.CustomerID] = struct{}{}
	}

	result := make([]models.StateCustomers, 0, len(groups))
	for state, customers := range groups {
		result = append(result, models.StateCustomers{State: state, CustomerCount: len(customers)})
	}
	slices.SortFunc(result, func(a, b models.StateCustomers) int {
		return cmp.Compare(a.State, b.State)
	})
	return result
}

// RFM computes recency, frequency and monetary value per customer. Recency
// is measured in days from the latest purchase date across all of items.
func RFM(items []models.OrderItem) []models.CustomerRFM {
	type customerAgg struct {
		last     time.Time
		orders   map[string]struct{}
		monetary decimal.Decimal
	}

	var latest time.Time
	groups := make(map[string]*customerAgg)
	for _, it := range items {
		d := it.PurchaseDate()
		if d.After(latest) {
			latest = d
		}
		if it.CustomerID == "" {
			continue
		}
		g := groups[it.CustomerID]
		if g == nil {
			g = &customerAgg{last: d, orders: make(map[string]struct{})}
			groups[it.CustomerID] = g
		}
		if d.After(g.last) {
			g.last = d
		}
		if it.OrderID != "" {
			g.orders[it.OrderID] = struct{}{}
		}
		if it.ItemValue.Valid {
			g.monetary = g.monetary.Add(it.ItemValue.Value)
		}
	}

	result := make([]models.CustomerRFM, 0, len(groups))
	for id, g := range groups {
		result = append(result, models.CustomerRFM{
			CustomerID: id,
			Recency:    daysBetween(g.last, latest),
			Frequency:  len(g.orders),
			Monetary:   g.monetary,
		})
	}
	slices.SortFunc(result, func(a, b models.CustomerRFM) int {
		return cmp.Compare(a.CustomerID, b.CustomerID)
	})
	return result
}

// MonthlyDeliveryTime averages whole delivery days per purchase month.
// Undelivered rows and rows delivered before purchase are ignored.
func MonthlyDeliveryTime(items []models.OrderItem) []models.MonthlyDelivery {
	type monthAgg struct {
		total int
		count int
	}

	groups := make(map[time.Time]*monthAgg)
	for _, it := range items {
		if !it.Delivered() || it.DeliveredAt.Before(it.PurchasedAt) {
			continue
		}
		days := int(it.DeliveredAt.Sub(it.PurchasedAt) / oneDay)

		y, m, _ := it.PurchasedAt.Date()
		month := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		g := groups[month]
		if g == nil {
			g = &monthAgg{}
			groups[month] = g
		}
		g.total += days
		g.count++
	}

	result := make([]models.MonthlyDelivery, 0, len(groups))
	for month, g := range groups {
		result = append(result, models.MonthlyDelivery{
			Month:        month,
			DeliveryTime: float64(g.total) / float64(g.count),
		})
	}
	slices.SortFunc(result, func(a, b models.MonthlyDelivery) int {
		return a.Month.Compare(b.Month)
	})
	return result
}

// Summarize produces the two headline metrics from the daily table.
func Summarize(daily []models.DailyOrders) models.Summary {
	s := models.Summary{TotalRevenue: decimal.Zero}
	for _, d := range daily {
		s.TotalOrders += d.OrderCount
		s.TotalRevenue = s.TotalRevenue.Add(d.Revenue)
	}
	return s
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / oneDay)
}
