package handlers

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type rangeParams struct {
	Start string `validate:"omitempty,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

// resolveRange builds the inclusive range for a request. A missing side
// falls back to the dataset bounds.
func resolveRange(analytics *services.Analytics, start, end string) (models.DateRange, error) {
	p := rangeParams{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	if err := validate.Struct(p); err != nil {
		return models.DateRange{}, errors.ValidationWrap(err, "start and end must be dates formatted as YYYY-MM-DD")
	}

	if analytics.Dataset() == nil {
		return models.DateRange{}, errors.ServiceUnavailableWrap(services.ErrNotLoaded, "Dataset is not loaded yet")
	}

	r, _ := analytics.Bounds()
	if p.Start != "" {
		r.Start, _ = time.Parse(models.DateLayout, p.Start)
	}
	if p.End != "" {
		r.End, _ = time.Parse(models.DateLayout, p.End)
	}

	if r.Empty() {
		return models.DateRange{}, errors.Validation("start must not be after end")
	}
	return r, nil
}
