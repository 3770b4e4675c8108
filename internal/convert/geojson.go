package convert

import (
	"encoding/json"
	"fmt"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/rotisserie/eris"

	"github.com/sells-group/isochroner/internal/model"
)

// featureCollection is the output document. go.geojson does not model the
// legacy crs member, so the top-level object is assembled here while each
// feature still marshals through the library.
type featureCollection struct {
	Type     string             `json:"type"`
	CRS      map[string]any     `json:"crs"`
	Features []*geojson.Feature `json:"features"`
}

// writeGeoJSON writes a FeatureCollection with one polygon feature per row
// and a named crs member (EPSG:<code>).
func writeGeoJSON(rows []model.Row, path string, crs int) error {
	fc := featureCollection{
		Type: "FeatureCollection",
		CRS: map[string]any{
			"type": "name",
			"properties": map[string]any{
				"name": fmt.Sprintf("EPSG:%d", crs),
			},
		},
		Features: make([]*geojson.Feature, 0, len(rows)),
	}

	for _, row := range rows {
		poly, err := rowPolygon(row)
		if err != nil {
			return err
		}
		feature := geojson.NewPolygonFeature(polygonRings(poly))
		feature.SetProperty("id", row.ID)
		feature.SetProperty("coords", row.Coords)
		feature.SetProperty("duration", row.Duration)
		fc.Features = append(fc.Features, feature)
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "convert: marshal feature collection")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "convert: write %s", path)
	}
	return nil
}
