// Package isochrone turns input polygons into isochrone rows: it extracts
// origin centroids, queries the routing service for boundary points, filters
// outliers, and assembles long-format output rows. A batch runner drives the
// pipeline in resumable chunks against a persistent ledger.
package isochrone

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/isochroner/internal/model"
)

// Centroid computes the planar centroid of a polygon or multipolygon whose
// coordinates are in lng/lat axis order.
func Centroid(g geom.T) (model.LatLng, error) {
	var (
		c   geom.Coord
		err error
	)
	switch t := g.(type) {
	case *geom.Polygon:
		c = xy.PolygonsCentroid(t)
	case *geom.MultiPolygon:
		c = xy.MultiPolygonCentroid(t)
	default:
		return model.LatLng{}, eris.Errorf("isochrone: centroid of non-areal geometry %T", g)
	}
	if err != nil {
		return model.LatLng{}, eris.Wrap(err, "isochrone: compute centroid")
	}
	return model.LatLng{Lat: c[1], Lng: c[0]}, nil
}

// Centroids computes one centroid per record, in record order.
func Centroids(records []model.Record) ([]model.LatLng, error) {
	out := make([]model.LatLng, len(records))
	for i, rec := range records {
		c, err := Centroid(rec.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "isochrone: record %d", i)
		}
		out[i] = c
	}
	return out, nil
}
