// Package shapefile acquires input polygons: it reads local .shp files into
// tables and fetches zipped shapefiles from http(s) or ftp sources.
package shapefile

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/isochroner/internal/model"
)

// Options configures shapefile parsing.
type Options struct {
	// Encoding names the DBF attribute charset (for example "latin1").
	// Empty means attributes are taken as-is.
	Encoding string
}

// Load reads a shapefile into a table: DBF field names plus one record per
// shape, in file order. Records whose shape is not a polygon are skipped.
func Load(path string, opts Options) (model.Table, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return model.Table{}, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	enc, err := attrEncoding(opts.Encoding)
	if err != nil {
		return model.Table{}, err
	}

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	table := model.Table{Fields: names}
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		g := shapeGeometry(shape)
		if g == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			val := strings.TrimRight(reader.Attribute(i), "\x00")
			val = strings.TrimSpace(val)
			if enc != nil {
				decoded, decErr := enc.NewDecoder().String(val)
				if decErr != nil {
					return model.Table{}, eris.Wrapf(decErr, "shapefile: decode attribute %s", name)
				}
				val = decoded
			}
			attrs[name] = val
		}

		table.Records = append(table.Records, model.Record{Geometry: g, Attrs: attrs})
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped non-polygon records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return table, nil
}

// attrEncoding resolves a charset name. DBF attributes are commonly latin1
// rather than UTF-8.
func attrEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: unknown encoding %q", name)
	}
	return enc, nil
}

// shapeGeometry converts a shapefile polygon to a multipolygon, one polygon
// per part. Other shape types yield nil.
func shapeGeometry(shape shp.Shape) geom.T {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
