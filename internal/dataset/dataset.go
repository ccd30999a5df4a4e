package dataset

import (
	"slices"
	"sort"
	"time"

	"ecommerce-dashboard/internal/models"
)

// Dataset is the loaded, purchase-time-ordered set of order items.
// It is never mutated after construction; share it by pointer.
type Dataset struct {
	items    []models.OrderItem
	source   string
	loadedAt time.Time
	dropped  int
	fallback bool
}

// New builds a dataset from in-memory rows, stable-sorting a copy by purchase
// date as written, then by purchase instant.
func New(items []models.OrderItem) *Dataset {
	sorted := slices.Clone(items)
	sortByPurchase(sorted)
	return &Dataset{items: sorted, loadedAt: time.Now()}
}

func sortByPurchase(items []models.OrderItem) {
	slices.SortStableFunc(items, func(a, b models.OrderItem) int {
		if c := a.PurchaseDate().Compare(b.PurchaseDate()); c != 0 {
			return c
		}
		return a.PurchasedAt.Compare(b.PurchasedAt)
	})
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}

// Items returns a copy of every row.
func (d *Dataset) Items() []models.OrderItem {
	if d == nil {
		return []models.OrderItem{}
	}
	out := make([]models.OrderItem, len(d.items))
	copy(out, d.items)
	return out
}

// Bounds reports the first and last purchase dates; ok is false when empty.
func (d *Dataset) Bounds() (r models.DateRange, ok bool) {
	if d.Len() == 0 {
		return models.DateRange{}, false
	}
	return models.NewDateRange(d.items[0].PurchasedAt, d.items[len(d.items)-1].PurchasedAt), true
}

// Filter returns a fresh slice of rows whose purchase date lies in r.
func (d *Dataset) Filter(r models.DateRange) []models.OrderItem {
	if d.Len() == 0 || r.Empty() {
		return []models.OrderItem{}
	}

	lo := sort.Search(len(d.items), func(i int) bool {
		return !d.items[i].PurchaseDate().Before(r.Start)
	})
	hi := sort.Search(len(d.items), func(i int) bool {
		return d.items[i].PurchaseDate().After(r.End)
	})
	if hi < lo {
		hi = lo
	}

	out := make([]models.OrderItem, hi-lo)
	copy(out, d.items[lo:hi])
	return out
}

// FilterItems is Filter for rows of arbitrary order.
func FilterItems(items []models.OrderItem, r models.DateRange) []models.OrderItem {
	out := make([]models.OrderItem, 0)
	if r.Empty() {
		return out
	}
	for _, it := range items {
		if r.Contains(it.PurchasedAt) {
			out = append(out, it)
		}
	}
	return out
}

func (d *Dataset) Source() string      { return d.source }
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Dropped is the number of source rows skipped for lacking a purchase timestamp.
func (d *Dataset) Dropped() int { return d.dropped }

// UsedFallback reports whether the semicolon fallback parse was needed.
func (d *Dataset) UsedFallback() bool { return d.fallback }
