package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	reg.MustRegister(m.ReqTotal, m.ReqDur, m.InFlight)
	return m
}

// Domain-level counters populated by the pricing surfaces.
var (
	QuotesTotal          *prometheus.CounterVec
	PromoValidations     *prometheus.CounterVec
	DistanceFallbacks    prometheus.Counter
	OrdersSubmitted      prometheus.Counter
	BreakerState         *prometheus.GaugeVec
	BreakerTransitions   *prometheus.CounterVec
	CartMutations        *prometheus.CounterVec
	CartPersistFailures  prometheus.Counter
	SettlementsProcessed *prometheus.CounterVec
)

// MustRegisterDomainMetrics registers the pricing domain collectors exactly once.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_quotes_total",
		Help:      "Pricing quotes computed, labelled by outcome.",
	}, []string{"outcome"})
	PromoValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promo_validations_total",
		Help:      "Promo code validations, labelled by result reason.",
	}, []string{"result"})
	DistanceFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "distance_haversine_fallback_total",
		Help:      "Distance resolutions that fell back to the great-circle formula.",
	})
	OrdersSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_submitted_total",
		Help:      "Orders successfully persisted.",
	})
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per target (0 closed, 1 half-open, 2 open).",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_transitions_total",
		Help:      "Circuit breaker state transitions.",
	}, []string{"target", "from", "to"})
	CartMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart store mutations by action.",
	}, []string{"action"})
	CartPersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_persist_failures_total",
		Help:      "Best-effort cart snapshot writes that failed.",
	})
	SettlementsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promo_settlements_total",
		Help:      "Promo usage settlement attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(
		QuotesTotal, PromoValidations, DistanceFallbacks, OrdersSubmitted,
		BreakerState, BreakerTransitions, CartMutations, CartPersistFailures,
		SettlementsProcessed,
	)
}

// DurationMillis converts a duration into fractional milliseconds.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
