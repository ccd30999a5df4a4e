package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "all_data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietAnalytics() *Analytics {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAnalytics(dataset.NewLoader(dataset.LoaderOptions{Logger: logger}), logger)
}

func testItems() []models.OrderItem {
	delivered := item("T001", "U001", "SP", "electronics", 999.99, 999.99, ts(2023, 1, 15, 10))
	delivered.DeliveredAt = ts(2023, 1, 20, 12)
	return []models.OrderItem{
		delivered,
		item("T002", "U002", "RJ", "electronics", 59.98, 29.99, ts(2023, 1, 16, 9)),
		item("T003", "U003", "MG", "toys", 79.99, 79.99, ts(2023, 2, 5, 18)),
	}
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics(nil, nil)
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.loader == nil {
		t.Error("loader should be initialized")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
}

func TestAnalytics_SetData(t *testing.T) {
	a := quietAnalytics()
	a.SetData(testItems())

	if got := a.Dataset().Len(); got != 3 {
		t.Errorf("Expected 3 rows, got %d", got)
	}

	bounds, ok := a.Bounds()
	if !ok {
		t.Fatal("Bounds() should report a range")
	}
	if !bounds.Start.Equal(ts(2023, 1, 15, 0)) || !bounds.End.Equal(ts(2023, 2, 5, 0)) {
		t.Errorf("unexpected bounds %s", bounds)
	}

	report, err := a.Report(context.Background(), "test", bounds)
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}
	if report.Summary.TotalOrders != 3 {
		t.Errorf("Expected 3 orders, got %d", report.Summary.TotalOrders)
	}
	if !report.Summary.TotalRevenue.Equal(dec("1109.97")) {
		t.Errorf("Expected revenue 1109.97, got %s", report.Summary.TotalRevenue)
	}
	if len(report.CategorySales) != 2 || report.CategorySales[0].Category != "electronics" {
		t.Errorf("unexpected category sales %+v", report.CategorySales)
	}
	if len(report.DeliveryTime) != 1 || report.DeliveryTime[0].DeliveryTime != 5 {
		t.Errorf("unexpected delivery time %+v", report.DeliveryTime)
	}
}

func TestAnalytics_LoadFromCSV_ValidData(t *testing.T) {
	validCSV := `order_id,customer_id,customer_state,product_category_name_english,item_value,price,order_purchase_timestamp,order_delivered_customer_date
T001,U001,SP,electronics,999.99,999.99,2023-01-15 10:00:00,2023-01-20 12:00:00
T002,U002,RJ,toys,59.98,29.99,2023-01-16 09:30:00,`

	a := quietAnalytics()
	if err := a.LoadFromCSV(context.Background(), createTempCSV(t, validCSV)); err != nil {
		t.Fatalf("LoadFromCSV() with valid data should not error, got: %v", err)
	}

	if a.Dataset().Len() != 2 {
		t.Errorf("Should have loaded 2 rows, got %d", a.Dataset().Len())
	}
}

func TestAnalytics_LoadFromCSV_InvalidData(t *testing.T) {
	const h = "order_id,customer_id,customer_state,product_category_name_english,item_value,price,order_purchase_timestamp,order_delivered_customer_date"

	tests := []struct {
		name    string
		csv     string
		wantErr bool
	}{
		{
			name:    "empty file",
			csv:     "",
			wantErr: true,
		},
		{
			name:    "header only",
			csv:     h,
			wantErr: false,
		},
		{
			name:    "missing columns",
			csv:     "h1,h2,h3\n1,2,3",
			wantErr: true,
		},
		{
			name:    "invalid purchase timestamp",
			csv:     h + "\nT1,U1,SP,toys,10,10,invalid-date,",
			wantErr: true,
		},
		{
			name:    "invalid item value",
			csv:     h + "\nT1,U1,SP,toys,invalid,10,2023-01-01 00:00:00,",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := quietAnalytics()
			err := a.LoadFromCSV(context.Background(), createTempCSV(t, tt.csv))

			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFromCSV() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalytics_Report_NotLoaded(t *testing.T) {
	a := quietAnalytics()
	_, err := a.Report(context.Background(), "test", models.DateRange{})
	if !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
	if loaded := a.Stats()["loaded"]; loaded != false {
		t.Errorf("expected loaded=false, got %v", loaded)
	}
}

func TestAnalytics_Report_EmptyRange(t *testing.T) {
	a := quietAnalytics()
	a.SetData(testItems())

	r := models.NewDateRange(ts(2024, 1, 1, 0), ts(2024, 12, 31, 0))
	report, err := a.Report(context.Background(), "test", r)
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}

	if report.Rows != 0 || report.Summary.TotalOrders != 0 || !report.Summary.TotalRevenue.IsZero() {
		t.Errorf("expected zero metrics, got %+v", report.Summary)
	}
	if report.DailyOrders == nil || report.CategorySales == nil || report.CustomersByState == nil ||
		report.RFM == nil || report.DeliveryTime == nil {
		t.Error("empty tables should be non-nil")
	}
}

func TestRender_Deterministic(t *testing.T) {
	ds := dataset.New(testItems())
	bounds, _ := ds.Bounds()

	first, err := json.Marshal(Render(ds, bounds))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(Render(ds, bounds))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("renders differ:\n%s\n%s", first, second)
	}
}

func TestRender_SingleDay(t *testing.T) {
	ds := dataset.New(testItems())
	report := Render(ds, models.NewDateRange(ts(2023, 1, 16, 0), ts(2023, 1, 16, 0)))

	if report.Rows != 1 {
		t.Fatalf("expected 1 row, got %d", report.Rows)
	}
	if len(report.DailyOrders) != 1 || !report.DailyOrders[0].Date.Equal(ts(2023, 1, 16, 0)) {
		t.Errorf("unexpected daily orders %+v", report.DailyOrders)
	}
	if len(report.RFM) != 1 || report.RFM[0].Recency != 0 {
		t.Errorf("unexpected rfm %+v", report.RFM)
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := quietAnalytics()
	a.SetData(testItems())
	bounds, _ := a.Bounds()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			if _, err := a.Report(context.Background(), "test", bounds); err != nil {
				t.Errorf("Report() error: %v", err)
			}
			_ = a.Stats()
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func BenchmarkRender(b *testing.B) {
	items := make([]models.OrderItem, 10000)
	start := ts(2017, 1, 1, 0)
	for i := range items {
		items[i] = item(
			fmt.Sprintf("o%d", i/3),
			fmt.Sprintf("c%d", i%500),
			[]string{"SP", "RJ", "MG", "RS"}[i%4],
			fmt.Sprintf("cat%d", i%70),
			float64(i%200)+0.99,
			float64(i%150)+0.49,
			start.Add(time.Duration(i)*time.Hour),
		)
		items[i].DeliveredAt = items[i].PurchasedAt.Add(time.Duration(i%20) * 24 * time.Hour)
	}
	ds := dataset.New(items)
	bounds, _ := ds.Bounds()

	b.ResetTimer()
	for b.Loop() {
		_ = Render(ds, bounds)
	}
}
