package middleware

import (
	"fmt"
	"strconv"
	"time"

	redisStore "payuni-gateway/internal/adapter/storage/redis"
	"payuni-gateway/internal/metrics"
	"payuni-gateway/pkg/apperror"
	"payuni-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// rateLimitMetrics is process-wide because RateLimiter is constructed once
// per endpoint group at router setup and has no other place to receive
// optional metrics wiring without breaking its existing call sites.
var rateLimitMetrics *metrics.Metrics

// SetMetrics attaches the Prometheus instruments exposed at GET /metrics.
// Optional: without it, rate limit hits simply go unrecorded.
func SetMetrics(m *metrics.Metrics) {
	rateLimitMetrics = m
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the per-endpoint-group rate limits.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"create_payment": {Limit: 5, Window: time.Minute},
		"general":        {Limit: 200, Window: 15 * time.Minute},
		"result_token":   {Limit: 10, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := extractIdentifier(c)
		key := fmt.Sprintf("%s:%s", identifier, group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			if rateLimitMetrics != nil {
				rateLimitMetrics.RateLimitHitsTotal.WithLabelValues(group).Inc()
			}
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier determines the rate limit key source: the session user
// if authenticated, otherwise the caller's IP.
func extractIdentifier(c *gin.Context) string {
	if uid, exists := c.Get(CtxUserID); exists {
		return fmt.Sprintf("%v", uid)
	}
	return c.ClientIP()
}
