package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/feastly/backend-feastly/internal/resilience"
)

// ErrNoRoute indicates the provider answered but returned no usable route.
var ErrNoRoute = errors.New("delivery: no route in provider response")

// DirectionsClient talks to a LocationIQ-compatible routing and reverse
// geocoding API. All calls go through the resilience wrapper so a flapping
// provider trips the breaker instead of stalling quotes.
type DirectionsClient struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
}

// NewDirectionsClient builds a client with an instrumented transport and the
// shared breaker for the directions dependency.
func NewDirectionsClient(baseURL, apiKey string, timeout time.Duration, breaker *resilience.Breaker) *DirectionsClient {
	return &DirectionsClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP: resilience.HTTPClient{
			Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker: breaker,
			Timeout: timeout,
		},
	}
}

type directionsResponse struct {
	Routes []struct {
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// RouteKm fetches the driving distance between two points in kilometres.
func (c *DirectionsClient) RouteKm(ctx context.Context, origin, dest Point) (float64, error) {
	endpoint := fmt.Sprintf("%s/v1/directions/driving/%f,%f;%f,%f?key=%s&overview=false",
		c.BaseURL, origin.Lng, origin.Lat, dest.Lng, dest.Lat, url.QueryEscape(c.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("delivery: build directions request: %w", err)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("delivery: directions request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("delivery: directions status %d", resp.StatusCode)
	}
	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("delivery: decode directions response: %w", err)
	}
	if len(body.Routes) == 0 || body.Routes[0].Distance <= 0 {
		return 0, ErrNoRoute
	}
	return body.Routes[0].Distance / 1000, nil
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		Village       string `json:"village"`
		City          string `json:"city"`
	} `json:"address"`
}

// Locality reverse-geocodes a point into a short human label for order
// display. It never feeds pricing; failures simply yield an empty string to
// the caller.
func (c *DirectionsClient) Locality(ctx context.Context, p Point) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/reverse?key=%s&lat=%f&lon=%f&format=json",
		c.BaseURL, url.QueryEscape(c.APIKey), p.Lat, p.Lng)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("delivery: build reverse request: %w", err)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("delivery: reverse request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("delivery: reverse status %d", resp.StatusCode)
	}
	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("delivery: decode reverse response: %w", err)
	}
	for _, candidate := range []string{
		body.Address.Suburb, body.Address.Neighbourhood, body.Address.Village, body.Address.City,
	} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return body.DisplayName, nil
}
