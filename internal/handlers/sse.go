package handlers

import (
	stderrors "errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

const defaultTopN = 5

var metricsTemplate = template.Must(template.New("metrics").Parse(`
<div id="metrics-content" class="metric-cards">
<div class="metric-card"><span class="metric-label">Total Orders</span><strong>{{.Orders}}</strong></div>
<div class="metric-card"><span class="metric-label">Total Revenue</span><strong>{{.Revenue}}</strong></div>
<div class="metric-range">{{.Start}} to {{.End}} ({{.Rows}} items)</div>
</div>`))

var errorTemplate = template.Must(template.New("error").Parse(
	`<div id="dashboard-error" class="error-banner">{{.}}</div>`))

const clearedError = `<div id="dashboard-error"></div>`

// dashboardSignals are the client-side signals the date selector binds to.
type dashboardSignals struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// chartSeries is the payload shape the page feeds into Chart.js.
type chartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	topN      int
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger, topN int) *SSEHandlers {
	if topN <= 0 {
		topN = defaultTopN
	}
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
		topN:      topN,
	}
}

func (h *SSEHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(sse *datastar.ServerSentEventGenerator, rep *models.Report) error {
		return h.patchMetrics(sse, rep)
	})
}

func (h *SSEHandlers) HandleDailyOrders(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(sse *datastar.ServerSentEventGenerator, rep *models.Report) error {
		return h.patchSignals(sse, map[string]any{"dailyOrders": dailySeries(rep.DailyOrders)})
	})
}

func (h *SSEHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(sse *datastar.ServerSentEventGenerator, rep *models.Report) error {
		return h.patchSignals(sse, h.categorySignals(rep))
	})
}

func (h *SSEHandlers) HandleStates(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(sse *datastar.ServerSentEventGenerator, rep *models.Report) error {
		return h.patchSignals(sse, map[string]any{"states": stateSeries(services.StatesByCount(rep.CustomersByState))})
	})
}

func (h *SSEHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(sse *datastar.ServerSentEventGenerator, rep *models.Report) error {
		return h.patchSignals(sse, h.rfmSignals(rep))
	})
}

func (h *SSEHandlers) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(sse *datastar.ServerSentEventGenerator, rep *models.Report) error {
		return h.patchSignals(sse, map[string]any{"deliveryTime": deliverySeries(rep.DeliveryTime)})
	})
}

// HandleRefreshAll re-renders every panel for the current signals in one response.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(sse *datastar.ServerSentEventGenerator, rep *models.Report) error {
		if err := h.patchMetrics(sse, rep); err != nil {
			return err
		}

		all := map[string]any{
			"dailyOrders":  dailySeries(rep.DailyOrders),
			"states":       stateSeries(services.StatesByCount(rep.CustomersByState)),
			"deliveryTime": deliverySeries(rep.DeliveryTime),
		}
		for k, v := range h.categorySignals(rep) {
			all[k] = v
		}
		for k, v := range h.rfmSignals(rep) {
			all[k] = v
		}
		return h.patchSignals(sse, all)
	})
}

// stream reads the date signals, renders the report and hands it to patch.
// Range and load errors are shown in the page's error banner.
func (h *SSEHandlers) stream(w http.ResponseWriter, r *http.Request, patch func(*datastar.ServerSentEventGenerator, *models.Report) error) {
	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.Warn("read signals", "error", err)
	}

	sse := datastar.NewSSE(w, r)

	rep, err := h.render(r, signals)
	if err != nil {
		h.patchError(sse, err)
		return
	}

	if err := sse.PatchElements(clearedError); err != nil {
		h.logger.Error("patch error banner", "error", err)
		return
	}
	if err := patch(sse, rep); err != nil {
		h.logger.Error("patch dashboard", "error", err, "range", rep.Range.String())
	}
}

func (h *SSEHandlers) render(r *http.Request, signals dashboardSignals) (*models.Report, error) {
	rng, err := resolveRange(h.analytics, signals.StartDate, signals.EndDate)
	if err != nil {
		return nil, err
	}
	return h.analytics.Report(r.Context(), "sse", rng)
}

func (h *SSEHandlers) patchMetrics(sse *datastar.ServerSentEventGenerator, rep *models.Report) error {
	var buf strings.Builder
	err := metricsTemplate.Execute(&buf, map[string]any{
		"Orders":  services.FormatCount(rep.Summary.TotalOrders),
		"Revenue": services.FormatCurrency(rep.Summary.TotalRevenue),
		"Start":   rep.Range.Start.Format(models.DateLayout),
		"End":     rep.Range.End.Format(models.DateLayout),
		"Rows":    services.FormatCount(rep.Rows),
	})
	if err != nil {
		return err
	}
	return sse.PatchElements(buf.String())
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	return sse.PatchSignals(data)
}

func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, err error) {
	msg := "Unable to render the dashboard"
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		msg = appErr.Message
	} else if stderrors.Is(err, services.ErrNotLoaded) {
		msg = "Dataset is not loaded yet"
	}
	h.logger.Warn("dashboard render failed", "error", err)

	var buf strings.Builder
	if execErr := errorTemplate.Execute(&buf, msg); execErr != nil {
		h.logger.Error("render error banner", "error", execErr)
		return
	}
	if patchErr := sse.PatchElements(buf.String()); patchErr != nil {
		h.logger.Error("patch error banner", "error", patchErr)
	}
}

func (h *SSEHandlers) categorySignals(rep *models.Report) map[string]any {
	return map[string]any{
		"topCategories":    categorySeries(services.TopCategories(rep.CategorySales, h.topN)),
		"bottomCategories": categorySeries(services.BottomCategories(rep.CategorySales, h.topN)),
	}
}

func (h *SSEHandlers) rfmSignals(rep *models.Report) map[string]any {
	return map[string]any{
		"rfmRecency": rfmSeries(services.TopByRecency(rep.RFM, h.topN), func(c models.CustomerRFM) float64 {
			return float64(c.Recency)
		}),
		"rfmFrequency": rfmSeries(services.TopByFrequency(rep.RFM, h.topN), func(c models.CustomerRFM) float64 {
			return float64(c.Frequency)
		}),
		"rfmMonetary": rfmSeries(services.TopByMonetary(rep.RFM, h.topN), func(c models.CustomerRFM) float64 {
			return c.Monetary.InexactFloat64()
		}),
	}
}

func newSeries(n int) chartSeries {
	return chartSeries{Labels: make([]string, n), Values: make([]float64, n)}
}

func dailySeries(rows []models.DailyOrders) chartSeries {
	s := newSeries(len(rows))
	for i, d := range rows {
		s.Labels[i] = d.Date.Format(models.DateLayout)
		s.Values[i] = float64(d.OrderCount)
	}
	return s
}

func categorySeries(rows []models.CategorySales) chartSeries {
	s := newSeries(len(rows))
	for i, c := range rows {
		s.Labels[i] = c.Category
		s.Values[i] = c.ItemValue.InexactFloat64()
	}
	return s
}

func stateSeries(rows []models.StateCustomers) chartSeries {
	s := newSeries(len(rows))
	for i, st := range rows {
		s.Labels[i] = st.State
		s.Values[i] = float64(st.CustomerCount)
	}
	return s
}

func deliverySeries(rows []models.MonthlyDelivery) chartSeries {
	s := newSeries(len(rows))
	for i, m := range rows {
		s.Labels[i] = m.Month.Format("2006-01")
		s.Values[i] = m.DeliveryTime
	}
	return s
}

func rfmSeries(rows []models.CustomerRFM, value func(models.CustomerRFM) float64) chartSeries {
	s := newSeries(len(rows))
	for i, c := range rows {
		s.Labels[i] = c.CustomerID
		s.Values[i] = value(c)
	}
	return s
}
