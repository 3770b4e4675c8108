// Package routing provides isochrone boundary lookups via the Mapbox
// Isochrone API.
package routing

import (
	"context"
	"net/http"
	"time"
)

// Client computes isochrone boundaries around origin points.
type Client interface {
	// Isochrone returns the ordered boundary points reachable from the
	// request origin within the request duration.
	Isochrone(ctx context.Context, req Request) ([]LatLng, error)
}

// LatLng is a geographic coordinate pair in decimal degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Request describes a single isochrone lookup. The API credential travels
// with the request; the client never stores it.
type Request struct {
	Origin    LatLng
	Key       string  // API access token
	Duration  int     // contour duration in minutes
	Tolerance float64 // boundary generalization tolerance in meters
}

// Routing profiles accepted by the isochrone endpoint.
const (
	ProfileDriving = "driving"
	ProfileWalking = "walking"
	ProfileCycling = "cycling"
)

// Option configures the routing client.
type Option func(*mapboxClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *mapboxClient) {
		c.httpClient = hc
	}
}

// WithProfile sets the routing profile. The default is driving.
func WithProfile(profile string) Option {
	return func(c *mapboxClient) {
		c.profile = profile
	}
}

// WithTimeout overrides the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *mapboxClient) {
		c.timeout = d
	}
}

type mapboxClient struct {
	httpClient *http.Client
	profile    string
	timeout    time.Duration
}

// NewClient creates a routing Client with the given options.
func NewClient(opts ...Option) Client {
	c := &mapboxClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		profile:    ProfileDriving,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}
	return c
}
