package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/feastly/backend-feastly/internal/resilience"
)

// Connaught Place and Hauz Khas, roughly 9.5 km apart as the crow flies.
var (
	cpDelhi = Point{Lat: 28.6315, Lng: 77.2167}
	hkDelhi = Point{Lat: 28.5494, Lng: 77.2001}
)

func TestHaversineKnownDistance(t *testing.T) {
	km := Haversine(cpDelhi, hkDelhi)
	require.InDelta(t, 9.3, km, 0.5)
	require.Zero(t, Haversine(cpDelhi, cpDelhi))
}

func newTestClient(url string) *DirectionsClient {
	return NewDirectionsClient(url, "test-key", time.Second,
		resilience.NewBreaker(100, 0.99, time.Minute))
}

func TestResolvePrefersRoadDistance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/v1/directions/driving/")
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"routes":[{"distance":12345}]}`))
	}))
	defer srv.Close()

	r := &Resolver{Routes: newTestClient(srv.URL), Logger: zerolog.Nop()}
	d := r.Resolve(context.Background(), cpDelhi, hkDelhi)
	require.Equal(t, SourceRoad, d.Source)
	require.Equal(t, 12.3, d.Km)
}

func TestResolveFallsBackOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := &Resolver{Routes: newTestClient(srv.URL), Logger: zerolog.Nop()}
	d := r.Resolve(context.Background(), cpDelhi, hkDelhi)
	require.Equal(t, SourceAerial, d.Source)
	require.InDelta(t, 9.3, d.Km, 0.5)
}

func TestResolveFallsBackOnEmptyRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[]}`))
	}))
	defer srv.Close()

	r := &Resolver{Routes: newTestClient(srv.URL), Logger: zerolog.Nop()}
	d := r.Resolve(context.Background(), cpDelhi, hkDelhi)
	require.Equal(t, SourceAerial, d.Source)
}

func TestResolveWithoutProviderUsesAerial(t *testing.T) {
	r := &Resolver{Logger: zerolog.Nop()}
	d := r.Resolve(context.Background(), cpDelhi, hkDelhi)
	require.Equal(t, SourceAerial, d.Source)
	require.Greater(t, d.Km, 0.0)
}

func TestLocalityPicksFinestGrain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/v1/reverse")
		_, _ = w.Write([]byte(`{"display_name":"somewhere, Delhi, India","address":{"suburb":"Hauz Khas","city":"New Delhi"}}`))
	}))
	defer srv.Close()

	name, err := newTestClient(srv.URL).Locality(context.Background(), hkDelhi)
	require.NoError(t, err)
	require.Equal(t, "Hauz Khas", name)
}
