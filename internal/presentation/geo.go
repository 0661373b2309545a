package presentation

import (
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"

	"climatescope/internal/models"
)

// CountryCentroids returns the spherical centroid of each country's
// observation coordinates. Antipodal point sets with no defined centroid
// fall back to the first observation of the country.
func CountryCentroids(view *models.FilteredView) map[string]s2.LatLng {
	sums := make(map[string]r3.Vector)
	first := make(map[string]s2.LatLng)

	for i := range view.Observations {
		obs := &view.Observations[i]
		ll := s2.LatLngFromDegrees(obs.Latitude, obs.Longitude)
		if !ll.IsValid() {
			continue
		}
		if _, ok := first[obs.Country]; !ok {
			first[obs.Country] = ll
		}
		sums[obs.Country] = sums[obs.Country].Add(s2.PointFromLatLng(ll).Vector)
	}

	out := make(map[string]s2.LatLng, len(sums))
	for country, sum := range sums {
		if sum.Norm() < 1e-12 {
			out[country] = first[country]
			continue
		}
		out[country] = s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	}
	return out
}
