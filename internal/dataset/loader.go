package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

const (
	defaultBatchSize  = 10000
	defaultMaxWorkers = 10
	utf8BOM           = "\ufeff"
)

const (
	ColOrderID     = "order_id"
	ColCustomerID  = "customer_id"
	ColState       = "customer_state"
	ColCategory    = "product_category_name_english"
	ColItemValue   = "item_value"
	ColPrice       = "price"
	ColPurchasedAt = "order_purchase_timestamp"
	ColDeliveredAt = "order_delivered_customer_date"
)

var requiredColumns = []string{
	ColOrderID, ColCustomerID, ColState, ColCategory,
	ColItemValue, ColPrice, ColPurchasedAt, ColDeliveredAt,
}

var (
	ErrEmptyFile      = errors.New("empty file")
	ErrMissingColumns = errors.New("missing required columns")
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	models.DateLayout,
}

// ParseError reports a cell that could not be converted.
type ParseError struct {
	Record int // 1-based, header excluded
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record %d: column %s: invalid value %q: %v", e.Record, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type LoaderOptions struct {
	Fetcher   *Fetcher
	Workers   int
	BatchSize int
	Logger    *slog.Logger
}

type Loader struct {
	fetcher   *Fetcher
	workers   int
	batchSize int
	logger    *slog.Logger
}

func NewLoader(opts LoaderOptions) *Loader {
	l := &Loader{
		fetcher:   opts.Fetcher,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
	}
	if l.workers <= 0 {
		l.workers = defaultMaxWorkers
	}
	if l.batchSize <= 0 {
		l.batchSize = defaultBatchSize
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Load fetches path if absent, parses it and returns the sorted dataset.
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	ctx, span := observability.StartSpan(ctx, "dataset.load")
	defer span.Finish()
	span.SetTag("path", path)

	if err := l.fetcher.Ensure(ctx, path); err != nil {
		span.SetError(err)
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	start := time.Now()
	ds, err := l.Parse(ctx, data, path)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	metrics.RecordDatasetLoad(ds.Len(), time.Since(start), ds.fallback)
	l.logger.Info("dataset loaded",
		"path", path,
		"rows", ds.Len(),
		"dropped", ds.dropped,
		"fallback_parse", ds.fallback,
		"duration", time.Since(start),
	)
	return ds, nil
}

// Parse converts raw delimited text into a dataset. The default comma
// parse is tried first; on failure a semicolon/UTF-8 parse is attempted once.
func (l *Loader) Parse(ctx context.Context, data []byte, source string) (*Dataset, error) {
	records, cols, err := readTable(bytes.NewReader(data), ',', false)
	fallback := false
	if err != nil {
		l.logger.Warn("primary parse failed, retrying with semicolon delimiter",
			"source", source,
			"error", err,
		)
		decoded := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		var fallbackErr error
		records, cols, fallbackErr = readTable(decoded, ';', true)
		if fallbackErr != nil {
			return nil, fmt.Errorf("parse %s: %w", source, errors.Join(err, fallbackErr))
		}
		fallback = true
	}

	items, dropped, err := l.convert(ctx, records, cols)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	if dropped > 0 {
		l.logger.Warn("rows without purchase timestamp skipped", "source", source, "count", dropped)
	}

	sortByPurchase(items)

	return &Dataset{
		items:    items,
		source:   source,
		loadedAt: time.Now(),
		dropped:  dropped,
		fallback: fallback,
	}, nil
}

type columns struct {
	orderID, customerID, state, category       int
	itemValue, price, purchasedAt, deliveredAt int
}

func readTable(r io.Reader, comma rune, lazy bool) ([][]string, columns, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.LazyQuotes = lazy

	records, err := reader.ReadAll()
	if err != nil {
		return nil, columns{}, err
	}
	if len(records) == 0 {
		return nil, columns{}, ErrEmptyFile
	}

	cols, err := resolveColumns(records[0])
	if err != nil {
		return nil, columns{}, err
	}
	return records[1:], cols, nil
}

func resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, utf8BOM))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return columns{
		orderID:     index[ColOrderID],
		customerID:  index[ColCustomerID],
		state:       index[ColState],
		category:    index[ColCategory],
		itemValue:   index[ColItemValue],
		price:       index[ColPrice],
		purchasedAt: index[ColPurchasedAt],
		deliveredAt: index[ColDeliveredAt],
	}, nil
}

// convert parses records in batches across a bounded worker group.
// Output order matches input order; rows without a purchase timestamp are dropped.
func (l *Loader) convert(ctx context.Context, records [][]string, cols columns) ([]models.OrderItem, int, error) {
	parsed := make([]models.OrderItem, len(records))
	keep := make([]bool, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for start := 0; start < len(records); start += l.batchSize {
		end := min(start+l.batchSize, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				item, ok, err := parseRecord(records[i], cols)
				if err != nil {
					var pe *ParseError
					if errors.As(err, &pe) {
						pe.Record = i + 1
					}
					return err
				}
				parsed[i], keep[i] = item, ok
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	items := make([]models.OrderItem, 0, len(records))
	for i, ok := range keep {
		if ok {
			items = append(items, parsed[i])
		}
	}
	return items, len(records) - len(items), nil
}

func parseRecord(rec []string, cols columns) (models.OrderItem, bool, error) {
	purchasedRaw := strings.TrimSpace(rec[cols.purchasedAt])
	if purchasedRaw == "" {
		return models.OrderItem{}, false, nil
	}
	purchasedAt, err := parseTimestamp(purchasedRaw)
	if err != nil {
		return models.OrderItem{}, false, &ParseError{Column: ColPurchasedAt, Value: purchasedRaw, Err: err}
	}

	var deliveredAt time.Time
	if raw := strings.TrimSpace(rec[cols.deliveredAt]); raw != "" {
		deliveredAt, err = parseTimestamp(raw)
		if err != nil {
			return models.OrderItem{}, false, &ParseError{Column: ColDeliveredAt, Value: raw, Err: err}
		}
	}

	price, err := parseAmount(rec[cols.price])
	if err != nil {
		return models.OrderItem{}, false, &ParseError{Column: ColPrice, Value: rec[cols.price], Err: err}
	}
	itemValue, err := parseAmount(rec[cols.itemValue])
	if err != nil {
		return models.OrderItem{}, false, &ParseError{Column: ColItemValue, Value: rec[cols.itemValue], Err: err}
	}

	return models.OrderItem{
		OrderID:       strings.TrimSpace(rec[cols.orderID]),
		CustomerID:    strings.TrimSpace(rec[cols.customerID]),
		CustomerState: strings.TrimSpace(rec[cols.state]),
		Category:      strings.TrimSpace(rec[cols.category]),
		ItemValue:     itemValue,
		Price:         price,
		PurchasedAt:   purchasedAt,
		DeliveredAt:   deliveredAt,
	}, true, nil
}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func parseAmount(s string) (models.Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Amount{}, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return models.Amount{}, err
	}
	return models.Amount{Value: v, Valid: true}, nil
}
