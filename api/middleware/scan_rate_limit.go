package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/davidkorte/freshpress-backend/api/responses"
	pkgerrors "github.com/davidkorte/freshpress-backend/pkg/errors"
	"github.com/davidkorte/freshpress-backend/pkg/logger"
)

// RateLimiterStore is the slice of the redis client the limiter needs.
type RateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// ScanRateLimitPolicy bounds how many scans a single agent may submit per window.
type ScanRateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int
}

// NewScanRateLimitPolicy builds a policy with the supplied window and limit.
func NewScanRateLimitPolicy(name string, window time.Duration, limit int) ScanRateLimitPolicy {
	return ScanRateLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		window: window,
		limit:  limit,
	}
}

func (p ScanRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

func (p ScanRateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "scan"
	}
	return p.name
}

func (p ScanRateLimitPolicy) key(userID string) string {
	if userID == "" {
		return ""
	}
	return fmt.Sprintf("rl:agent:%s:%s", p.normalizedName(), userID)
}

// ScanRateLimit enforces a per-agent counter on scan submission endpoints.
func ScanRateLimit(policy ScanRateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := policy.key(UserIDFromContext(ctx))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			count, err := store.IncrWithTTL(ctx, key, policy.window)
			if err != nil {
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if count > int64(policy.limit) {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"policy":         policy.normalizedName(),
						"attempts":       count,
						"limit":          policy.limit,
						"window_seconds": int(policy.window.Seconds()),
					})
					logg.Warn(logCtx, "scan.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
