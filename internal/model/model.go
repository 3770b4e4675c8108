// Package model defines the data types shared across the isochrone pipeline:
// input geometry records and long-format output rows.
package model

import (
	"github.com/twpayne/go-geom"
)

// DefaultMatchingVar is the attribute column treated as the record identifier
// when no matching variable is configured.
const DefaultMatchingVar = "GEOID"

// LatLng is a geographic coordinate pair in decimal degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Record is one input polygon with its attribute columns.
type Record struct {
	Geometry geom.T            // polygon or multipolygon
	Attrs    map[string]string // DBF attribute values by field name
}

// Table is a parsed input shapefile: field names plus records in file order.
type Table struct {
	Fields  []string
	Records []Record
}

// Row is one output row in long format: the isochrone of a single origin
// record for a single travel duration. Rows are uniquely identified by
// (ID, Duration).
type Row struct {
	ID       int64    // identifier parsed from the matching column
	Attrs    []string // retained attribute values, in KeepColumns order
	Coords   string   // origin centroid rendered as text
	Duration int      // travel duration in minutes
	Geometry string   // isochrone polygon as WKT
}

// KeepColumns returns keep with any occurrence of matchingVar removed. The
// identifier always occupies its own leading output column, so a matching
// variable listed among the keep columns would otherwise appear twice.
func KeepColumns(matchingVar string, keep []string) []string {
	out := make([]string, 0, len(keep))
	for _, col := range keep {
		if col == matchingVar {
			continue
		}
		out = append(out, col)
	}
	return out
}
