package filter

import (
	"fmt"
	"sort"
	"time"

	"climatescope/internal/models"
)

// Apply returns the observations of ds matching spec. Region, country and
// date predicates are combined with AND; an empty region or country list
// does not restrict. Date bounds outside the dataset and inverted ranges are
// rejected with a ValidationError, never clamped. An empty dataset yields an
// empty view for any spec.
func Apply(ds *models.Dataset, spec models.FilterSpec) (*models.FilteredView, error) {
	view := &models.FilteredView{Spec: spec, Observations: []models.Observation{}}
	if ds == nil || ds.Empty() {
		return view, nil
	}

	inDate, err := datePredicate(ds, spec)
	if err != nil {
		return nil, err
	}

	regions := toSet(spec.Regions)
	countries := toSet(spec.Countries)

	for _, obs := range ds.Observations() {
		if regions != nil {
			if _, ok := regions[obs.Region]; !ok {
				continue
			}
		}
		if countries != nil {
			if _, ok := countries[obs.Country]; !ok {
				continue
			}
		}
		if inDate != nil && !inDate(obs.Date) {
			continue
		}
		view.Observations = append(view.Observations, obs)
	}

	return view, nil
}

// Validate checks the date selections of spec against ds without filtering
func Validate(ds *models.Dataset, spec models.FilterSpec) error {
	if ds == nil || ds.Empty() {
		return nil
	}
	_, err := datePredicate(ds, spec)
	return err
}

func datePredicate(ds *models.Dataset, spec models.FilterSpec) (func(time.Time) bool, error) {
	minDate, maxDate := ds.MinDate(), ds.MaxDate()

	switch spec.Mode() {
	case models.DateModeSingle:
		if spec.SingleDate.IsZero() {
			return nil, nil
		}
		day := models.CalendarDate(spec.SingleDate)
		if day.Before(minDate) || day.After(maxDate) {
			return nil, outOfBounds("single_date", day, minDate, maxDate)
		}
		return func(d time.Time) bool { return d.Equal(day) }, nil

	case models.DateModeRange:
		if spec.StartDate.IsZero() && spec.EndDate.IsZero() {
			return nil, nil
		}
		start, end := minDate, maxDate
		if !spec.StartDate.IsZero() {
			start = models.CalendarDate(spec.StartDate)
		}
		if !spec.EndDate.IsZero() {
			end = models.CalendarDate(spec.EndDate)
		}

		if start.Before(minDate) || start.After(maxDate) {
			return nil, outOfBounds("start_date", start, minDate, maxDate)
		}
		if end.Before(minDate) || end.After(maxDate) {
			return nil, outOfBounds("end_date", end, minDate, maxDate)
		}
		if start.After(end) {
			return nil, &models.ValidationError{
				Kind:    models.RangeInverted,
				Field:   "start_date",
				Value:   start.Format(models.DateLayout),
				Message: fmt.Sprintf("start date %s is after end date %s", start.Format(models.DateLayout), end.Format(models.DateLayout)),
			}
		}
		return func(d time.Time) bool { return !d.Before(start) && !d.After(end) }, nil

	default:
		return nil, &models.ValidationError{
			Kind:    models.InvalidInput,
			Field:   "date_mode",
			Value:   string(spec.DateMode),
			Message: fmt.Sprintf("date mode must be range or single, got %q", spec.DateMode),
		}
	}
}

func outOfBounds(field string, day, minDate, maxDate time.Time) error {
	return &models.ValidationError{
		Kind:  models.DateOutOfBounds,
		Field: field,
		Value: day.Format(models.DateLayout),
		Message: fmt.Sprintf("%s %s is outside the available data (%s to %s)",
			field, day.Format(models.DateLayout), minDate.Format(models.DateLayout), maxDate.Format(models.DateLayout)),
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// CountryOptions returns the sorted distinct countries observed in the given
// regions, or every country when no region is selected.
func CountryOptions(ds *models.Dataset, regions []string) []string {
	if ds == nil {
		return []string{}
	}
	if len(regions) == 0 {
		return ds.Countries()
	}

	selected := toSet(regions)
	seen := make(map[string]struct{})
	for _, obs := range ds.Observations() {
		if _, ok := selected[obs.Region]; ok {
			seen[obs.Country] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
