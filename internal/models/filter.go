package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

// DateMode selects between a date range and a single calendar date
type DateMode string

const (
	DateModeRange  DateMode = "range"
	DateModeSingle DateMode = "single"
)

// DateLayout is the calendar date format used on every external surface
const DateLayout = "2006-01-02"

// FilterSpec is the set of user selections applied to a Dataset.
// Zero dates mean "no bound"; empty slices mean "all".
type FilterSpec struct {
	DateMode   DateMode  `json:"date_mode"`
	StartDate  time.Time `json:"start_date,omitempty"`
	EndDate    time.Time `json:"end_date,omitempty"`
	SingleDate time.Time `json:"single_date,omitempty"`
	Regions    []string  `json:"regions,omitempty"`
	Countries  []string  `json:"countries,omitempty"`
}

// Mode returns the date mode, treating an unset mode as range
func (f FilterSpec) Mode() DateMode {
	if f.DateMode == "" {
		return DateModeRange
	}
	return f.DateMode
}

// Key returns a canonical string for the filter, independent of the order
// regions and countries were selected in.
func (f FilterSpec) Key() string {
	var b strings.Builder
	b.WriteString(string(f.Mode()))
	b.WriteByte('|')
	if f.Mode() == DateModeSingle {
		b.WriteString(formatDate(f.SingleDate))
	} else {
		b.WriteString(formatDate(f.StartDate))
		b.WriteByte(':')
		b.WriteString(formatDate(f.EndDate))
	}
	b.WriteString("|r=")
	b.WriteString(strings.Join(sortedCopy(f.Regions), ","))
	b.WriteString("|c=")
	b.WriteString(strings.Join(sortedCopy(f.Countries), ","))
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(DateLayout)
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// FilteredView is the subset of a Dataset that satisfies a FilterSpec.
// It may be empty.
type FilteredView struct {
	Observations []Observation
	Spec         FilterSpec
}

// Len returns the number of observations in the view
func (v *FilteredView) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Observations)
}

// Empty reports whether the view holds no observations
func (v *FilteredView) Empty() bool { return v.Len() == 0 }

// HasMetric reports whether at least one observation in the view has a
// defined value for m.
func (v *FilteredView) HasMetric(m Metric) bool {
	for i := range v.Observations {
		if !math.IsNaN(v.Observations[i].Value(m)) {
			return true
		}
	}
	return false
}

// ResultStatus tags the outcome of a pipeline computation
type ResultStatus string

const (
	StatusOK      ResultStatus = "ok"
	StatusEmpty   ResultStatus = "empty"
	StatusInvalid ResultStatus = "invalid"
)
