package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/isochroner/internal/model"
)

func sampleRows() []model.Row {
	return []model.Row{
		{ID: 17031, Attrs: []string{"Cook"}, Coords: "41.84,-87.68", Duration: 15,
			Geometry: "POLYGON ((40.75 10.5, 40.5 10.75, 40.25 10.5, 40.5 10.25, 40.75 10.5))"},
		{ID: 17043, Attrs: []string{"DuPage"}, Coords: "41.85,-88.09", Duration: 30,
			Geometry: "POLYGON ((41 11, 40.5 11.5, 40 11, 40.5 10.5, 41 11))"},
	}
}

func TestWrite_ShapefileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isochrones.shp")

	require.NoError(t, Write(sampleRows(), path, Options{}))

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "id", strings.TrimRight(fields[0].String(), "\x00"))
	assert.Equal(t, "coords", strings.TrimRight(fields[1].String(), "\x00"))
	assert.Equal(t, "duration", strings.TrimRight(fields[2].String(), "\x00"))

	var count int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		require.True(t, ok)
		assert.Len(t, poly.Points, 5)

		id := strings.TrimSpace(reader.Attribute(0))
		duration := strings.TrimSpace(reader.Attribute(2))
		switch count {
		case 0:
			assert.Equal(t, "17031", id)
			assert.Equal(t, "15", duration)
			assert.InDelta(t, 40.75, poly.Points[0].X, 1e-9)
			assert.InDelta(t, 10.5, poly.Points[0].Y, 1e-9)
		case 1:
			assert.Equal(t, "17043", id)
			assert.Equal(t, "30", duration)
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestWrite_GeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isochrones.geojson")

	require.NoError(t, Write(sampleRows(), path, Options{CRS: 4269}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc["type"])

	crs, ok := doc["crs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "name", crs["type"])
	props, ok := crs["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "EPSG:4269", props["name"])

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	require.True(t, first.Geometry.IsPolygon())
	assert.Equal(t, []float64{40.75, 10.5}, first.Geometry.Polygon[0][0])
	assert.Equal(t, float64(17031), first.Properties["id"])
	assert.Equal(t, float64(15), first.Properties["duration"])
	assert.Equal(t, "41.84,-87.68", first.Properties["coords"])
}

func TestWrite_InfersFormatFromExtension(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Write(sampleRows(), filepath.Join(dir, "out.json"), Options{}))
	data, err := os.ReadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)

	require.NoError(t, Write(sampleRows(), filepath.Join(dir, "out.shp"), Options{}))
	_, err = os.Stat(filepath.Join(dir, "out.shp"))
	require.NoError(t, err)
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	err := Write(sampleRows(), filepath.Join(t.TempDir(), "out.xyz"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestWrite_BadGeometry(t *testing.T) {
	rows := []model.Row{{ID: 1, Duration: 15, Geometry: "not wkt"}}

	err := Write(rows, filepath.Join(t.TempDir(), "out.geojson"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse geometry")
}

func TestWrite_NonPolygonGeometry(t *testing.T) {
	rows := []model.Row{{ID: 1, Duration: 15, Geometry: "POINT (1 2)"}}

	err := Write(rows, filepath.Join(t.TempDir(), "out.geojson"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want polygon")
}
