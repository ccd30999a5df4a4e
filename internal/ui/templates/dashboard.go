// Package templates renders the dashboard page. Panels are filled in by the
// datastar SSE endpoints once the page loads.
//
//go:generate templ generate
package templates

import (
	"strconv"

	"github.com/goccy/go-json"

	"ecommerce-dashboard/internal/models"
)

// DashboardProps are the values the page needs at render time.
type DashboardProps struct {
	Start string // first purchase date, empty when nothing is loaded
	End   string
	TopN  int
}

func NewDashboardProps(bounds models.DateRange, ok bool, topN int) DashboardProps {
	p := DashboardProps{TopN: topN}
	if ok {
		p.Start = bounds.Start.Format(models.DateLayout)
		p.End = bounds.End.Format(models.DateLayout)
	}
	return p
}

type series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type panel struct {
	id     string
	title  string
	signal string
	kind   string
	axis   string // "y" for horizontal bars
}

// effect is the datastar expression that redraws the chart when its signal changes.
func (c panel) effect() string {
	return "renderChart('" + c.id + "', '" + c.kind + "', '" + c.axis + "', $" + c.signal + ")"
}

func panels(topN int) []panel {
	n := strconv.Itoa(topN)
	return []panel{
		{id: "daily-chart", title: "Daily Orders", signal: "dailyOrders", kind: "line"},
		{id: "top-categories-chart", title: "Top " + n + " Best Selling Categories", signal: "topCategories", kind: "bar"},
		{id: "bottom-categories-chart", title: "Top " + n + " Least Selling Categories", signal: "bottomCategories", kind: "bar"},
		{id: "states-chart", title: "Number of Customers by State", signal: "states", kind: "bar", axis: "y"},
		{id: "rfm-recency-chart", title: "By Recency (days)", signal: "rfmRecency", kind: "bar"},
		{id: "rfm-frequency-chart", title: "By Frequency", signal: "rfmFrequency", kind: "bar"},
		{id: "rfm-monetary-chart", title: "By Monetary", signal: "rfmMonetary", kind: "bar"},
		{id: "delivery-chart", title: "Monthly Average Delivery Time (days)", signal: "deliveryTime", kind: "line"},
	}
}

// initialSignals seeds the date pickers and an empty series per chart.
func initialSignals(p DashboardProps) (string, error) {
	signals := map[string]any{
		"startDate": p.Start,
		"endDate":   p.End,
	}
	for _, pn := range panels(p.TopN) {
		signals[pn.signal] = series{Labels: []string{}, Values: []float64{}}
	}
	data, err := json.Marshal(signals)
	return string(data), err
}
