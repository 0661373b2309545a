package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatescope/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
}

func testDataset() *models.Dataset {
	obs := []models.Observation{
		{LocationName: "London", Country: "United Kingdom", Region: "Europe", Date: day(16), TemperatureCelsius: 18},
		{LocationName: "Paris", Country: "France", Region: "Europe", Date: day(17), TemperatureCelsius: 21},
		{LocationName: "Nairobi", Country: "Kenya", Region: "Africa", Date: day(18), TemperatureCelsius: 25},
		{LocationName: "Lyon", Country: "France", Region: "Europe", Date: day(20), TemperatureCelsius: 19},
		{LocationName: "Mombasa", Country: "Kenya", Region: "Africa", Date: day(20), TemperatureCelsius: 29},
	}
	return models.NewDataset(obs, models.LoadStats{})
}

func names(view *models.FilteredView) []string {
	out := make([]string, 0, view.Len())
	for _, o := range view.Observations {
		out = append(out, o.LocationName)
	}
	return out
}

func TestApply(t *testing.T) {
	ds := testDataset()

	tests := []struct {
		name string
		spec models.FilterSpec
		want []string
	}{
		{"no restriction", models.FilterSpec{}, []string{"London", "Paris", "Nairobi", "Lyon", "Mombasa"}},
		{"region only", models.FilterSpec{Regions: []string{"Africa"}}, []string{"Nairobi", "Mombasa"}},
		{"region and country", models.FilterSpec{Regions: []string{"Europe"}, Countries: []string{"France"}}, []string{"Paris", "Lyon"}},
		{"country outside region", models.FilterSpec{Regions: []string{"Africa"}, Countries: []string{"France"}}, []string{}},
		{"range", models.FilterSpec{DateMode: models.DateModeRange, StartDate: day(17), EndDate: day(18)}, []string{"Paris", "Nairobi"}},
		{"open ended range", models.FilterSpec{StartDate: day(18)}, []string{"Nairobi", "Lyon", "Mombasa"}},
		{"single date", models.FilterSpec{DateMode: models.DateModeSingle, SingleDate: day(20)}, []string{"Lyon", "Mombasa"}},
		{"single date without rows", models.FilterSpec{DateMode: models.DateModeSingle, SingleDate: day(19)}, []string{}},
		{"single date ignores time of day", models.FilterSpec{DateMode: models.DateModeSingle, SingleDate: day(16).Add(13 * time.Hour)}, []string{"London"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := Apply(ds, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(view))
		})
	}
}

func TestApply_EmptyViewIsNotAnError(t *testing.T) {
	view, err := Apply(testDataset(), models.FilterSpec{DateMode: models.DateModeSingle, SingleDate: day(19)})
	require.NoError(t, err)
	assert.True(t, view.Empty())
	assert.NotNil(t, view.Observations)
}

func TestApply_ValidationErrors(t *testing.T) {
	ds := testDataset()

	tests := []struct {
		name  string
		spec  models.FilterSpec
		kind  models.ValidationErrorKind
		field string
	}{
		{"inverted range", models.FilterSpec{StartDate: day(18), EndDate: day(17)}, models.RangeInverted, "start_date"},
		{"start before data", models.FilterSpec{StartDate: day(1), EndDate: day(17)}, models.DateOutOfBounds, "start_date"},
		{"end after data", models.FilterSpec{StartDate: day(16), EndDate: day(30)}, models.DateOutOfBounds, "end_date"},
		{"bounds checked before inversion", models.FilterSpec{StartDate: day(30), EndDate: day(1)}, models.DateOutOfBounds, "start_date"},
		{"single outside data", models.FilterSpec{DateMode: models.DateModeSingle, SingleDate: day(30)}, models.DateOutOfBounds, "single_date"},
		{"unknown mode", models.FilterSpec{DateMode: "week", StartDate: day(17)}, models.InvalidInput, "date_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := Apply(ds, tt.spec)
			assert.Nil(t, view)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.kind, verr.Kind)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, verr, Validate(ds, tt.spec))
		})
	}
}

func TestApply_EmptyDataset(t *testing.T) {
	view, err := Apply(models.EmptyDataset(), models.FilterSpec{StartDate: day(30), EndDate: day(1)})
	require.NoError(t, err)
	assert.True(t, view.Empty())
}

func TestApply_DoesNotMutateDataset(t *testing.T) {
	ds := testDataset()
	view, err := Apply(ds, models.FilterSpec{Regions: []string{"Africa"}})
	require.NoError(t, err)

	view.Observations[0].TemperatureCelsius = -100
	assert.Equal(t, 25.0, ds.Observations()[2].TemperatureCelsius)
}

func TestCountryOptions(t *testing.T) {
	ds := testDataset()

	assert.Equal(t, []string{"France", "Kenya", "United Kingdom"}, CountryOptions(ds, nil))
	assert.Equal(t, []string{"France", "United Kingdom"}, CountryOptions(ds, []string{"Europe"}))
	assert.Equal(t, []string{"France", "Kenya", "United Kingdom"}, CountryOptions(ds, []string{"Europe", "Africa"}))
	assert.Equal(t, []string{}, CountryOptions(ds, []string{"Antarctica"}))
}
