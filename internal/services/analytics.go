package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

// ErrNotLoaded is returned by queries made before a dataset is available.
var ErrNotLoaded = errors.New("dataset not loaded")

// Render runs filter -> aggregate -> summarize for one date range.
// It holds no state: the same dataset and range always give the same report.
func Render(ds *dataset.Dataset, r models.DateRange) *models.Report {
	rows := ds.Filter(r)
	daily := DailyOrders(rows)

	return &models.Report{
		Range:            r,
		Rows:             len(rows),
		Summary:          Summarize(daily),
		DailyOrders:      daily,
		CategorySales:    CategorySales(rows),
		CustomersByState: CustomersByState(rows),
		RFM:              RFM(rows),
		DeliveryTime:     MonthlyDeliveryTime(rows),
	}
}

// Analytics owns the dataset loaded at startup and renders reports from it.
type Analytics struct {
	mu      sync.RWMutex
	dataset *dataset.Dataset
	loader  *dataset.Loader
	logger  *slog.Logger
}

func NewAnalytics(loader *dataset.Loader, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = dataset.NewLoader(dataset.LoaderOptions{Logger: logger})
	}
	return &Analytics{
		loader: loader,
		logger: logger,
	}
}

// SetData replaces the dataset with in-memory rows.
func (a *Analytics) SetData(items []models.OrderItem) {
	a.SetDataset(dataset.New(items))
}

func (a *Analytics) SetDataset(ds *dataset.Dataset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dataset = ds
}

func (a *Analytics) Dataset() *dataset.Dataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dataset
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	start := time.Now()
	a.logger.Info("loading dataset", "filename", filename)

	ds, err := a.loader.Load(ctx, filename)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	a.SetDataset(ds)

	duration := time.Since(start)
	a.logger.Info("dataset ready",
		"records", ds.Len(),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(ds.Len())/duration.Seconds()))

	return nil
}

// Bounds is the full purchase-date range of the dataset.
func (a *Analytics) Bounds() (models.DateRange, bool) {
	return a.Dataset().Bounds()
}

// Report renders the aggregates for r. surface labels the caller in metrics.
func (a *Analytics) Report(ctx context.Context, surface string, r models.DateRange) (*models.Report, error) {
	ds := a.Dataset()
	if ds == nil {
		return nil, ErrNotLoaded
	}

	_, span := observability.StartSpan(ctx, "analytics.render")
	defer span.Finish()
	span.SetTag("range", r.String())
	span.SetTag("surface", surface)

	start := time.Now()
	report := Render(ds, r)
	metrics.RecordRender(surface, report.Rows, time.Since(start))

	a.logger.Debug("report rendered",
		"range", r.String(),
		"rows", report.Rows,
		"request_id", observability.GetRequestID(ctx),
	)
	return report, nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	ds := a.Dataset()
	if ds == nil {
		return map[string]any{"loaded": false}
	}

	stats := map[string]any{
		"loaded":         true,
		"record_count":   ds.Len(),
		"dropped":        ds.Dropped(),
		"fallback_parse": ds.UsedFallback(),
		"source":         ds.Source(),
		"last_processed": ds.LoadedAt(),
	}
	if r, ok := ds.Bounds(); ok {
		stats["min_date"] = r.Start.Format(models.DateLayout)
		stats["max_date"] = r.End.Format(models.DateLayout)
	}
	return stats
}
