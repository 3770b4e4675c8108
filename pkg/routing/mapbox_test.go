package routing

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsochrone_Boundary(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"type": "FeatureCollection",
			"features": [{
				"type": "Feature",
				"properties": {"contour": 15},
				"geometry": {
					"type": "LineString",
					"coordinates": [[-88.25, 40.12], [-88.20, 40.15], [-88.18, 40.10]]
				}
			}]
		}`)
	}))
	defer srv.Close()

	c := &mapboxClient{
		httpClient: newRewriteClient(srv.URL, mapboxIsochroneURL),
		profile:    ProfileDriving,
	}

	points, err := c.Isochrone(context.Background(), Request{
		Origin:    LatLng{Lat: 40.11, Lng: -88.21},
		Key:       "test-token",
		Duration:  15,
		Tolerance: 2,
	})
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.InDelta(t, 40.12, points[0].Lat, 1e-9)
	assert.InDelta(t, -88.25, points[0].Lng, 1e-9)
	assert.InDelta(t, 40.10, points[2].Lat, 1e-9)

	assert.Equal(t, "/driving/-88.21,40.11", gotPath)
	assert.Equal(t, []string{"15"}, gotQuery["contours_minutes"])
	assert.Equal(t, []string{"2"}, gotQuery["generalize"])
	assert.Equal(t, []string{"test-token"}, gotQuery["access_token"])
}

func TestIsochrone_ProfileOption(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"features": [{"geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(
		WithHTTPClient(newRewriteClient(srv.URL, mapboxIsochroneURL)),
		WithProfile(ProfileWalking),
	)

	_, err := c.Isochrone(context.Background(), Request{
		Origin: LatLng{Lat: 1, Lng: 2}, Key: "k", Duration: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "/walking/2,1", gotPath)
}

func TestIsochrone_NoKey(t *testing.T) {
	c := NewClient()
	_, err := c.Isochrone(context.Background(), Request{
		Origin: LatLng{Lat: 1, Lng: 2}, Duration: 15,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token not set")
}

func TestIsochrone_InvalidDuration(t *testing.T) {
	c := NewClient()
	_, err := c.Isochrone(context.Background(), Request{
		Origin: LatLng{Lat: 1, Lng: 2}, Key: "k",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid contour duration")
}

func TestIsochrone_APIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message": "Not Authorized - Invalid Token"}`)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(newRewriteClient(srv.URL, mapboxIsochroneURL)))
	_, err := c.Isochrone(context.Background(), Request{
		Origin: LatLng{Lat: 1, Lng: 2}, Key: "bad", Duration: 15,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Invalid Token")
}

func TestIsochrone_APIErrorNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(newRewriteClient(srv.URL, mapboxIsochroneURL)))
	_, err := c.Isochrone(context.Background(), Request{
		Origin: LatLng{Lat: 1, Lng: 2}, Key: "k", Duration: 15,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestIsochrone_EmptyFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"type": "FeatureCollection", "features": []}`)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(newRewriteClient(srv.URL, mapboxIsochroneURL)))
	_, err := c.Isochrone(context.Background(), Request{
		Origin: LatLng{Lat: 1, Lng: 2}, Key: "k", Duration: 15,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no isochrone")
}

func TestIsochrone_UnexpectedGeometry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features": [{"geometry": {"type": "MultiPoint", "coordinates": [[1, 2], [3, 4]]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(newRewriteClient(srv.URL, mapboxIsochroneURL)))
	_, err := c.Isochrone(context.Background(), Request{
		Origin: LatLng{Lat: 1, Lng: 2}, Key: "k", Duration: 15,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected geometry type")
}
