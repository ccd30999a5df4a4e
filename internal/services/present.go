package services

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

// TopCategories returns the n best-selling categories.
func TopCategories(sales []models.CategorySales, n int) []models.CategorySales {
	out := slices.Clone(sales)
	slices.SortStableFunc(out, func(a, b models.CategorySales) int {
		return b.ItemValue.Cmp(a.ItemValue)
	})
	return head(out, n)
}

// BottomCategories returns the n worst-selling categories, smallest first.
func BottomCategories(sales []models.CategorySales, n int) []models.CategorySales {
	out := slices.Clone(sales)
	slices.SortStableFunc(out, func(a, b models.CategorySales) int {
		return a.ItemValue.Cmp(b.ItemValue)
	})
	return head(out, n)
}

// StatesByCount orders states by customer count, largest first.
func StatesByCount(states []models.StateCustomers) []models.StateCustomers {
	out := slices.Clone(states)
	slices.SortStableFunc(out, func(a, b models.StateCustomers) int {
		return cmp.Compare(b.CustomerCount, a.CustomerCount)
	})
	return out
}

func TopByRecency(rfm []models.CustomerRFM, n int) []models.CustomerRFM {
	out := slices.Clone(rfm)
	slices.SortStableFunc(out, func(a, b models.CustomerRFM) int {
		return cmp.Compare(a.Recency, b.Recency)
	})
	return head(out, n)
}

func TopByFrequency(rfm []models.CustomerRFM, n int) []models.CustomerRFM {
	out := slices.Clone(rfm)
	slices.SortStableFunc(out, func(a, b models.CustomerRFM) int {
		return cmp.Compare(b.Frequency, a.Frequency)
	})
	return head(out, n)
}

func TopByMonetary(rfm []models.CustomerRFM, n int) []models.CustomerRFM {
	out := slices.Clone(rfm)
	slices.SortStableFunc(out, func(a, b models.CustomerRFM) int {
		return b.Monetary.Cmp(a.Monetary)
	})
	return head(out, n)
}

func head[T any](s []T, n int) []T {
	if s == nil {
		s = []T{}
	}
	if n < 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

var printer = message.NewPrinter(language.English)

// FormatCurrency renders an amount as "$1,234.56" without leaving decimal
// arithmetic.
func FormatCurrency(v decimal.Decimal) string {
	s := v.Round(2).StringFixed(2)
	sign := ""
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = "-", rest
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatCount renders an integer with digit grouping.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}
