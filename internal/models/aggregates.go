// Package models holds the dataset row and aggregate table types.
//
// Money fields are decimal.Decimal and marshal as quoted JSON strings
// ("1109.97") so API clients get the exact sum.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DailyOrders struct {
	Date       time.Time       `json:"date"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type CategorySales struct {
	Category  string          `json:"product_category_name_english"`
	ItemValue decimal.Decimal `json:"item_value"`
}

type StateCustomers struct {
	State         string `json:"customer_state"`
	CustomerCount int    `json:"customer_count"`
}

type CustomerRFM struct {
	CustomerID string          `json:"customer_id"`
	Recency    int             `json:"recency"`
	Frequency  int             `json:"frequency"`
	Monetary   decimal.Decimal `json:"monetary"`
}

type MonthlyDelivery struct {
	Month        time.Time `json:"order_date"`
	DeliveryTime float64   `json:"delivery_time"`
}

type Summary struct {
	TotalOrders  int             `json:"total_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// Report is every aggregate table for one filtered range.
type Report struct {
	Range            DateRange         `json:"range"`
	Rows             int               `json:"rows"`
	Summary          Summary           `json:"summary"`
	DailyOrders      []DailyOrders     `json:"daily_orders"`
	CategorySales    []CategorySales   `json:"category_sales"`
	CustomersByState []StateCustomers  `json:"customers_by_state"`
	RFM              []CustomerRFM     `json:"rfm"`
	DeliveryTime     []MonthlyDelivery `json:"monthly_delivery_time"`
}
