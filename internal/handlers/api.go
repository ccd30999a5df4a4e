package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type rangeResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Rows  int    `json:"rows"`
}

// HandleRange reports the selectable date range of the loaded dataset.
func (h *APIHandlers) HandleRange(w http.ResponseWriter, r *http.Request) {
	ds := h.analytics.Dataset()
	if ds == nil {
		h.fail(w, r, errors.ServiceUnavailableWrap(services.ErrNotLoaded, "Dataset is not loaded yet"))
		return
	}

	resp := rangeResponse{Rows: ds.Len()}
	if bounds, ok := ds.Bounds(); ok {
		resp.Start = bounds.Start.Format(models.DateLayout)
		resp.End = bounds.End.Format(models.DateLayout)
	}
	errors.WriteSuccess(w, resp)
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *models.Report) any { return rep })
}

func (h *APIHandlers) HandleDailyOrders(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *models.Report) any { return rep.DailyOrders })
}

func (h *APIHandlers) HandleCategorySales(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *models.Report) any { return rep.CategorySales })
}

func (h *APIHandlers) HandleCustomersByState(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *models.Report) any { return rep.CustomersByState })
}

func (h *APIHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *models.Report) any { return rep.RFM })
}

func (h *APIHandlers) HandleDeliveryTime(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *models.Report) any { return rep.DeliveryTime })
}

// serve resolves the start/end query params, renders the report and writes
// the part selected by pick.
func (h *APIHandlers) serve(w http.ResponseWriter, r *http.Request, pick func(*models.Report) any) {
	q := r.URL.Query()
	rng, err := resolveRange(h.analytics, q.Get("start"), q.Get("end"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.analytics.Report(r.Context(), "api", rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, pick(report), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, services.ErrNotLoaded) {
		var appErr *errors.AppError
		if !stderrors.As(err, &appErr) {
			err = errors.ServiceUnavailableWrap(err, "Dataset is not loaded yet")
		}
	}
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.analytics.Dataset() == nil {
		status = "loading"
	}

	healthData := map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
