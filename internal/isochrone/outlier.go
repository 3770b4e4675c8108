package isochrone

import (
	"math"

	"github.com/sells-group/isochroner/internal/model"
)

// DefaultStdDevs is the outlier cutoff in sample standard deviations.
const DefaultStdDevs = 2.0

// FilterOutliers removes boundary points that sit stdDevs or more sample
// standard deviations from the per-axis mean. Each set is filtered against
// its own statistics; a point survives only if both its latitude and
// longitude pass. A set with fewer than two points is returned unchanged,
// since its sample deviation is undefined. stdDevs <= 0 means
// DefaultStdDevs.
func FilterOutliers(sets [][]model.LatLng, stdDevs float64) [][]model.LatLng {
	if stdDevs <= 0 {
		stdDevs = DefaultStdDevs
	}
	out := make([][]model.LatLng, len(sets))
	for i, set := range sets {
		out[i] = filterSet(set, stdDevs)
	}
	return out
}

func filterSet(points []model.LatLng, stdDevs float64) []model.LatLng {
	if len(points) < 2 {
		return append([]model.LatLng(nil), points...)
	}

	lats := make([]float64, len(points))
	lngs := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lngs[i] = p.Lng
	}
	latMean, latSD := meanStdDev(lats)
	lngMean, lngSD := meanStdDev(lngs)

	kept := make([]model.LatLng, 0, len(points))
	for _, p := range points {
		if withinBound(p.Lat, latMean, latSD, stdDevs) && withinBound(p.Lng, lngMean, lngSD, stdDevs) {
			kept = append(kept, p)
		}
	}
	return kept
}

// meanStdDev returns the mean and sample standard deviation. len(vals) >= 2.
func meanStdDev(vals []float64) (mean, sd float64) {
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	var sum float64
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return mean, math.Sqrt(sum / float64(len(vals)-1))
}

// withinBound reports whether v lies strictly inside the cutoff. A zero
// deviation means the axis is constant and never disqualifies a point.
func withinBound(v, mean, sd, stdDevs float64) bool {
	if sd == 0 {
		return true
	}
	return math.Abs(v-mean) < stdDevs*sd
}
