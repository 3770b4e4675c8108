package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

const mapboxIsochroneURL = "https://api.mapbox.com/isochrone/v1/mapbox"

// mapboxResponse is the GeoJSON FeatureCollection returned by the Mapbox
// Isochrone API. Error responses carry a message instead of features.
type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
	Message  string          `json:"message"`
}

type mapboxFeature struct {
	Geometry struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
}

// Isochrone requests a single isochrone contour and returns its boundary
// points in response order. There is no retry or backoff: any transport,
// status, or decode failure is returned to the caller as-is.
func (c *mapboxClient) Isochrone(ctx context.Context, req Request) ([]LatLng, error) {
	if req.Key == "" {
		return nil, eris.New("routing: access token not set")
	}
	if req.Duration <= 0 {
		return nil, eris.Errorf("routing: invalid contour duration %d", req.Duration)
	}

	params := url.Values{
		"contours_minutes": {strconv.Itoa(req.Duration)},
		"generalize":       {formatCoord(req.Tolerance)},
		"access_token":     {req.Key},
	}

	// The endpoint expects {lng},{lat} in the path.
	reqURL := fmt.Sprintf("%s/%s/%s,%s?%s",
		mapboxIsochroneURL, c.profile,
		formatCoord(req.Origin.Lng), formatCoord(req.Origin.Lat),
		params.Encode(),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "routing: build request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "routing: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "routing: read body")
	}

	var mbResp mapboxResponse
	if resp.StatusCode != http.StatusOK {
		if jsonErr := json.Unmarshal(body, &mbResp); jsonErr == nil && mbResp.Message != "" {
			return nil, eris.Errorf("routing: mapbox returned status %d: %s", resp.StatusCode, mbResp.Message)
		}
		return nil, eris.Errorf("routing: mapbox returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, &mbResp); err != nil {
		return nil, eris.Wrap(err, "routing: parse response")
	}

	if len(mbResp.Features) == 0 {
		return nil, eris.Errorf("routing: no isochrone for %s,%s duration %d",
			formatCoord(req.Origin.Lat), formatCoord(req.Origin.Lng), req.Duration)
	}

	geometry := mbResp.Features[0].Geometry
	if geometry.Type != "LineString" {
		return nil, eris.Errorf("routing: unexpected geometry type %q", geometry.Type)
	}

	points := make([]LatLng, 0, len(geometry.Coordinates))
	for _, coord := range geometry.Coordinates {
		if len(coord) < 2 {
			return nil, eris.Errorf("routing: malformed coordinate %v", coord)
		}
		points = append(points, LatLng{Lat: coord[1], Lng: coord[0]})
	}

	return points, nil
}

// formatCoord renders a float without exponent notation or trailing zeros.
func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
