// Package convert renders stored isochrone rows into GIS formats: ESRI
// shapefile or GeoJSON.
package convert

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/sells-group/isochroner/internal/model"
)

// Formats understood by Write.
const (
	FormatShapefile = "shapefile"
	FormatGeoJSON   = "geojson"
)

// DefaultCRS is the EPSG code recorded in formats that embed one.
const DefaultCRS = 4326

// Options controls an export.
type Options struct {
	// Format is FormatShapefile or FormatGeoJSON. Empty means inferred from
	// the target extension.
	Format string
	// CRS is an EPSG code. <= 0 means DefaultCRS. Shapefile output has no
	// embedded CRS, so the code only reaches GeoJSON.
	CRS int
}

// Write renders rows to path in the requested format. Every row carries its
// isochrone polygon plus the id, coords, and duration attributes.
func Write(rows []model.Row, path string, opts Options) error {
	format := opts.Format
	if format == "" {
		format = formatForExt(path)
	}
	crs := opts.CRS
	if crs <= 0 {
		crs = DefaultCRS
	}

	switch strings.ToLower(format) {
	case FormatShapefile:
		return writeShapefile(rows, path)
	case FormatGeoJSON:
		return writeGeoJSON(rows, path, crs)
	default:
		return eris.Errorf("convert: unsupported format %q", format)
	}
}

func formatForExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return FormatShapefile
	case ".geojson", ".json":
		return FormatGeoJSON
	default:
		return ""
	}
}

// rowPolygon parses a row's WKT geometry.
func rowPolygon(row model.Row) (*geom.Polygon, error) {
	g, err := wkt.Unmarshal(row.Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "convert: parse geometry of row %d duration %d", row.ID, row.Duration)
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("convert: row %d duration %d geometry is %T, want polygon", row.ID, row.Duration, g)
	}
	return poly, nil
}

// polygonRings unpacks a polygon into per-ring coordinate pairs.
func polygonRings(poly *geom.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, poly.NumLinearRings())
	for r := 0; r < poly.NumLinearRings(); r++ {
		coords := poly.LinearRing(r).Coords()
		ring := make([][]float64, 0, len(coords))
		for _, c := range coords {
			ring = append(ring, []float64{c[0], c[1]})
		}
		rings = append(rings, ring)
	}
	return rings
}
