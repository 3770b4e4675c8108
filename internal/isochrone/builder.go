package isochrone

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/sells-group/isochroner/internal/model"
	"github.com/sells-group/isochroner/pkg/routing"
)

const (
	// DefaultDuration is the travel time in minutes when none is given.
	DefaultDuration = 15
	// DefaultTolerance is the boundary generalization passed to the routing
	// service when none is given.
	DefaultTolerance = 2.0
)

// BuildOptions controls how input records become output rows.
type BuildOptions struct {
	// Key is the routing service credential, passed through on every request.
	Key string
	// Durations are travel times in minutes; one output row is built per
	// record per duration. Empty means [DefaultDuration].
	Durations []int
	// KeepCols are attribute columns carried into the output. Any occurrence
	// of MatchingVar is dropped.
	KeepCols []string
	// MatchingVar is the attribute column holding the record identifier.
	// Empty means model.DefaultMatchingVar.
	MatchingVar string
	// StdDevs is the outlier cutoff for boundary points. <= 0 means
	// DefaultStdDevs.
	StdDevs float64
	// Tolerance generalizes boundaries on the routing side. <= 0 means
	// DefaultTolerance.
	Tolerance float64
	// SwapXY swaps the coordinate order rendered into Coords and Geometry,
	// from lat-first to lng-first.
	SwapXY bool
}

func (o BuildOptions) withDefaults() BuildOptions {
	if len(o.Durations) == 0 {
		o.Durations = []int{DefaultDuration}
	}
	if o.MatchingVar == "" {
		o.MatchingVar = model.DefaultMatchingVar
	}
	if o.StdDevs <= 0 {
		o.StdDevs = DefaultStdDevs
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	o.KeepCols = model.KeepColumns(o.MatchingVar, o.KeepCols)
	return o
}

// BuildTable builds one output row per input record per duration. Boundary
// requests are issued strictly sequentially, and all boundaries fetched for a
// duration are outlier-filtered together before polygons are assembled. Rows
// come out duration-major: every record for the first duration, then every
// record for the next.
func BuildTable(ctx context.Context, client routing.Client, records []model.Record, opts BuildOptions) ([]model.Row, error) {
	opts = opts.withDefaults()

	ids := make([]int64, len(records))
	origins := make([]model.LatLng, len(records))
	for i, rec := range records {
		id, err := recordID(rec, opts.MatchingVar)
		if err != nil {
			return nil, eris.Wrapf(err, "isochrone: record %d", i)
		}
		origin, err := Centroid(rec.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "isochrone: record %d", i)
		}
		ids[i] = id
		origins[i] = origin
	}

	rows := make([]model.Row, 0, len(records)*len(opts.Durations))
	for _, duration := range opts.Durations {
		sets := make([][]model.LatLng, len(records))
		for i := range records {
			boundary, err := fetchBoundary(ctx, client, origins[i], duration, opts)
			if err != nil {
				return nil, eris.Wrapf(err, "isochrone: record %d duration %d", ids[i], duration)
			}
			sets[i] = boundary
		}

		filtered := FilterOutliers(sets, opts.StdDevs)
		for i, rec := range records {
			geometry, err := boundaryPolygon(filtered[i], opts.SwapXY)
			if err != nil {
				return nil, eris.Wrapf(err, "isochrone: record %d duration %d", ids[i], duration)
			}
			rows = append(rows, model.Row{
				ID:       ids[i],
				Attrs:    attrValues(rec, opts.KeepCols),
				Coords:   coordsText(origins[i], opts.SwapXY),
				Duration: duration,
				Geometry: geometry,
			})
		}
	}
	return rows, nil
}

// fetchBoundary queries the routing service for one origin and duration.
// Routing failures propagate as-is: no retry, no masking.
func fetchBoundary(ctx context.Context, client routing.Client, origin model.LatLng, duration int, opts BuildOptions) ([]model.LatLng, error) {
	raw, err := client.Isochrone(ctx, routing.Request{
		Origin:    routing.LatLng{Lat: origin.Lat, Lng: origin.Lng},
		Key:       opts.Key,
		Duration:  duration,
		Tolerance: opts.Tolerance,
	})
	if err != nil {
		return nil, err
	}

	points := make([]model.LatLng, len(raw))
	for i, p := range raw {
		points[i] = model.LatLng{Lat: p.Lat, Lng: p.Lng}
	}
	return points, nil
}

// boundaryPolygon closes the filtered boundary into a ring and renders it as
// WKT. Fewer than three distinct points cannot form a ring.
func boundaryPolygon(points []model.LatLng, swapXY bool) (string, error) {
	distinct := make(map[model.LatLng]struct{}, len(points))
	for _, p := range points {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return "", eris.Errorf("isochrone: boundary has %d distinct points, need at least 3", len(distinct))
	}

	flat := make([]float64, 0, (len(points)+1)*2)
	for _, p := range points {
		x, y := axisPair(p, swapXY)
		flat = append(flat, x, y)
	}
	if points[0] != points[len(points)-1] {
		x, y := axisPair(points[0], swapXY)
		flat = append(flat, x, y)
	}

	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
		return "", eris.Wrap(err, "isochrone: assemble polygon")
	}
	out, err := wkt.Marshal(poly)
	if err != nil {
		return "", eris.Wrap(err, "isochrone: marshal polygon")
	}
	return out, nil
}

// axisPair orders a point's coordinates for output: lat-first by default,
// lng-first when swapped.
func axisPair(p model.LatLng, swapXY bool) (x, y float64) {
	if swapXY {
		return p.Lng, p.Lat
	}
	return p.Lat, p.Lng
}

// coordsText renders the origin centroid as "lat,lng", or "lng,lat" when
// swapped.
func coordsText(p model.LatLng, swapXY bool) string {
	x, y := axisPair(p, swapXY)
	return formatCoord(x) + "," + formatCoord(y)
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// recordID parses the matching column as the record identifier.
func recordID(rec model.Record, matchingVar string) (int64, error) {
	raw, ok := rec.Attrs[matchingVar]
	if !ok {
		return 0, eris.Errorf("isochrone: missing matching column %q", matchingVar)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "isochrone: parse %s %q", matchingVar, raw)
	}
	return id, nil
}

// attrValues extracts the kept attribute columns in order; a missing column
// yields an empty string.
func attrValues(rec model.Record, keepCols []string) []string {
	out := make([]string, len(keepCols))
	for i, col := range keepCols {
		out[i] = rec.Attrs[col]
	}
	return out
}
