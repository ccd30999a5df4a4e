package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			EnableRateLimit: false,
			AllowedOrigins:  []string{"*"},
		},
		Dashboard: config.DashboardConfig{TopN: 5},
	}
}

// Test helper to create analytics with test data
func newTestAnalytics() *services.Analytics {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := services.NewAnalytics(nil, logger)
	testData := []models.OrderItem{
		{
			OrderID:       "T001",
			CustomerID:    "U001",
			CustomerState: "SP",
			Category:      "electronics",
			ItemValue:     models.NewAmount(999.99),
			Price:         models.NewAmount(999.99),
			PurchasedAt:   time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC),
			DeliveredAt:   time.Date(2023, 1, 20, 9, 0, 0, 0, time.UTC),
		},
		{
			OrderID:       "T002",
			CustomerID:    "U002",
			CustomerState: "RJ",
			Category:      "bed_bath_table",
			ItemValue:     models.NewAmount(59.98),
			Price:         models.NewAmount(29.99),
			PurchasedAt:   time.Date(2023, 2, 10, 14, 0, 0, 0, time.UTC),
		},
		{
			OrderID:       "T003",
			CustomerID:    "U003",
			CustomerState: "MG",
			Category:      "toys",
			ItemValue:     models.NewAmount(79.99),
			Price:         models.NewAmount(79.99),
			PurchasedAt:   time.Date(2023, 3, 5, 8, 0, 0, 0, time.UTC),
			DeliveredAt:   time.Date(2023, 3, 15, 8, 0, 0, 0, time.UTC),
		},
	}
	a.SetData(testData)
	return a
}

func newTestHandler() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newHandler(testConfig(), newTestAnalytics(), logger)
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	srv := newTestHandler()

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/api/range", http.StatusOK, "application/json"},
		{"/api/report", http.StatusOK, "application/json"},
		{"/api/daily-orders", http.StatusOK, "application/json"},
		{"/api/category-sales", http.StatusOK, "application/json"},
		{"/api/customers-by-state", http.StatusOK, "application/json"},
		{"/api/rfm", http.StatusOK, "application/json"},
		{"/api/delivery-time?start=2023-01-01&end=2023-12-31", http.StatusOK, "application/json"},
		{"/api/report?start=2023-03-01&end=2023-01-01", http.StatusBadRequest, "application/json"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/metrics", http.StatusOK, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			// Validate JSON responses
			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

// Test JSON API responses
func TestServer_JSONResponse(t *testing.T) {
	srv := newTestHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/category-sales?start=2023-01-01&end=2023-02-28", nil)
	srv.ServeHTTP(w, r)

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	data, ok := response["data"].([]interface{})
	if !ok {
		t.Fatalf("expected data array in response")
	}

	if len(data) != 2 {
		t.Fatalf("expected 2 categories in range, got %d", len(data))
	}

	// Verify structure of first item
	if item, ok := data[0].(map[string]interface{}); ok {
		if name := item["product_category_name_english"]; name != "electronics" {
			t.Errorf("first category = %v, want electronics", name)
		}
		if value := item["item_value"]; value != "999.99" {
			t.Errorf("item_value = %v, want 999.99", value)
		}
	} else {
		t.Error("invalid category structure")
	}
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	srv := newTestHandler()

	sseRoutes := []string{
		"/sse/metrics",
		"/sse/daily-orders",
		"/sse/categories",
		"/sse/states",
		"/sse/rfm",
		"/sse/delivery",
		"/sse/refresh-all",
	}

	for _, route := range sseRoutes {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route, nil)

			srv.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			// Check for SSE headers
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("cache-control = %q, want 'no-cache'", cc)
			}
		})
	}
}

func TestServer_Middleware(t *testing.T) {
	srv := newTestHandler()

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

// Test error handling for invalid methods
func TestServer_ErrorHandling(t *testing.T) {
	srv := newTestHandler()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/report", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"PATCH", "/api/rfm", http.StatusMethodNotAllowed},
		{"GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

// Test dashboard template rendering
func TestDashboardTemplate(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	dashboardHandler(newTestAnalytics(), 5)(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	if !strings.Contains(body, "E-Commerce Dashboard") {
		t.Error("dashboard should contain title")
	}

	if !strings.Contains(body, `min="2023-01-15"`) || !strings.Contains(body, `max="2023-03-05"`) {
		t.Error("date inputs should be bounded by the dataset")
	}

	expectedComponents := []string{
		"Daily Orders",
		"Top 5 Best Selling Categories",
		"Customer Demographics",
		"Best Customer Based on RFM Parameters",
		"Monthly Average Delivery Time Trend",
	}

	for _, component := range expectedComponents {
		if !strings.Contains(body, component) {
			t.Errorf("dashboard should contain '%s'", component)
		}
	}
}
