// Package routing wraps the external distance service used for delivery fee
// estimation.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Route is the distance service response for a single origin/destination pair.
type Route struct {
	Meters  float64
	Seconds float64
}

// DistanceClient resolves driving distance and duration between two points.
type DistanceClient interface {
	Distance(ctx context.Context, origin, dest Point) (Route, error)
}

// HTTPClient calls an OSRM-compatible routing endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// Option customises HTTPClient construction.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// NewHTTPClient constructs a client against the given base URL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("routing: base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("routing: invalid base url: %w", err)
	}
	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Distance fetches the driving route between origin and dest. Coordinates are
// sent lng,lat per the OSRM convention.
func (c *HTTPClient) Distance(ctx context.Context, origin, dest Point) (Route, error) {
	if c == nil || c.client == nil {
		return Route{}, errors.New("routing: client not initialised")
	}

	endpoint := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, origin.Lng, origin.Lat, dest.Lng, dest.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Route{}, fmt.Errorf("routing: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("routing: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("routing: unexpected status %d", resp.StatusCode)
	}

	var payload routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Route{}, fmt.Errorf("routing: decode response: %w", err)
	}
	if payload.Code != "Ok" || len(payload.Routes) == 0 {
		return Route{}, fmt.Errorf("routing: no route (code %q)", payload.Code)
	}

	return Route{
		Meters:  payload.Routes[0].Distance,
		Seconds: payload.Routes[0].Duration,
	}, nil
}
