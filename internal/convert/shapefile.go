package convert

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/isochroner/internal/model"
)

// writeShapefile writes one POLYGON record per row with id, coords, and
// duration DBF attributes.
func writeShapefile(rows []model.Row, path string) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "convert: create shapefile %s", path)
	}
	defer func() { w.Close() }()

	w.SetFields([]shp.Field{
		shp.NumberField("id", 19),
		shp.StringField("coords", 64),
		shp.NumberField("duration", 9),
	})

	for i, row := range rows {
		poly, err := rowPolygon(row)
		if err != nil {
			return err
		}

		parts := make([][]shp.Point, 0, poly.NumLinearRings())
		for _, ring := range polygonRings(poly) {
			pts := make([]shp.Point, 0, len(ring))
			for _, c := range ring {
				pts = append(pts, shp.Point{X: c[0], Y: c[1]})
			}
			parts = append(parts, pts)
		}

		w.Write((*shp.Polygon)(shp.NewPolyLine(parts)))
		w.WriteAttribute(i, 0, int(row.ID))
		w.WriteAttribute(i, 1, row.Coords)
		w.WriteAttribute(i, 2, row.Duration)
	}
	return nil
}
