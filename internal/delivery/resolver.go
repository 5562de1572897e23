package delivery

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/feastly/backend-feastly/internal/obs"
)

// Distance sources.
const (
	SourceRoad   = "road"
	SourceAerial = "aerial"
)

// Distance is a resolved merchant-to-drop distance.
type Distance struct {
	Km     float64 `json:"km"`
	Source string  `json:"source"`
}

// RouteProvider yields driving distances; DirectionsClient is the production
// implementation.
type RouteProvider interface {
	RouteKm(ctx context.Context, origin, dest Point) (float64, error)
}

// Resolver turns two coordinates into a distance, preferring road routing and
// degrading to the great-circle approximation when the provider cannot answer.
type Resolver struct {
	Routes RouteProvider
	Logger zerolog.Logger
}

/// Resolve never fails: any provider error (timeout, open breaker, malformed
// body, missing or zero-length route) falls back to haversine, which always
// produces a number. The result is rounded to one decimal.
func (r *Resolver) Resolve(ctx context.Context, origin, dest Point) Distance {
	if r.Routes != nil {
		km, err := r.Routes.RouteKm(ctx, origin, dest)
		if err == nil && km > 0 {
			return Distance{Km: RoundKm(km), Source: SourceRoad}
		}
		if err != nil {
			r.Logger.Warn().Err(err).Msg("road distance unavailable, using aerial fallback")
		}
		if obs.DistanceFallbacks != nil {
			obs.DistanceFallbacks.Inc()
		}
	}
	return Distance{Km: RoundKm(Haversine(origin, dest)), Source: SourceAerial}
}
