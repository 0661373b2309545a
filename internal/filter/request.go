package filter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"climatescope/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		return models.Metric(fl.Field().String()).Valid()
	})
	return v
}

// Request is the wire form of a FilterSpec plus the metric selections, as
// received from query strings or CLI flags.
type Request struct {
	DateMode   string   `json:"date_mode" validate:"omitempty,oneof=range single"`
	StartDate  string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	SingleDate string   `json:"single_date" validate:"omitempty,datetime=2006-01-02"`
	Regions    []string `json:"region" validate:"dive,required"`
	Countries  []string `json:"country" validate:"dive,required"`
	Metric     string   `json:"metric" validate:"omitempty,metric"`
	ScatterX   string   `json:"scatter_x" validate:"omitempty,metric"`
	ScatterY   string   `json:"scatter_y" validate:"omitempty,metric"`
}

// Validate checks the request's shape. Errors are *models.ValidationError.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &models.ValidationError{
				Kind:    models.InvalidInput,
				Field:   fe.Field(),
				Value:   fmt.Sprint(fe.Value()),
				Message: describe(fe),
			}
		}
		return &models.ValidationError{Kind: models.InvalidInput, Message: err.Error()}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format, got %q", fe.Field(), fe.Value())
	case "metric":
		return fmt.Sprintf("%s is not a known metric: %q", fe.Field(), fe.Value())
	case "required":
		return fmt.Sprintf("%s must not contain empty values", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Spec validates the request and converts it to a FilterSpec
func (r *Request) Spec() (models.FilterSpec, error) {
	if err := r.Validate(); err != nil {
		return models.FilterSpec{}, err
	}

	spec := models.FilterSpec{
		DateMode:  models.DateMode(r.DateMode),
		Regions:   r.Regions,
		Countries: r.Countries,
	}
	if spec.DateMode == "" {
		spec.DateMode = models.DateModeRange
	}

	// datetime validation above guarantees these parse
	spec.StartDate = parseDate(r.StartDate)
	spec.EndDate = parseDate(r.EndDate)
	spec.SingleDate = parseDate(r.SingleDate)
	return spec, nil
}

// MetricOr returns the parsed primary metric or def when unset
func (r *Request) MetricOr(def models.Metric) models.Metric {
	return metricOr(r.Metric, def)
}

// ScatterMetrics returns the scatter axes, defaulting to temperature × humidity
func (r *Request) ScatterMetrics() (models.Metric, models.Metric) {
	return metricOr(r.ScatterX, models.MetricTemperature), metricOr(r.ScatterY, models.MetricHumidity)
}

func metricOr(s string, def models.Metric) models.Metric {
	if m, ok := models.ParseMetric(s); ok {
		return m
	}
	return def
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
