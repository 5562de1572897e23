package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/feastly/backend-feastly/internal/common"
)

// New builds a redis-backed limiter from a formatted rate such as "20-M".
func New(rdb *redis.Client, rate string) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit"})
	if err != nil {
		return nil, fmt.Errorf("create limiter store: %w", err)
	}
	return limiter.New(store, r), nil
}

// Middleware limits requests per authenticated user, falling back to the
// remote address for unauthenticated traffic. The limiter failing is never a
// reason to reject a request.
func Middleware(l *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			key, ok := common.UserID(r.Context())
			if !ok || key == "" {
				key = r.RemoteAddr
			}
			lctx, err := l.Get(r.Context(), key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
			if lctx.Reached {
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					"too many attempts, try again shortly", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
