package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/pkg/ratelimit"
)

// RateLimiter applies fixed-window rules per client IP
type RateLimiter struct {
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

// NewRateLimiter creates a new RateLimiter
func NewRateLimiter(limiter *ratelimit.Limiter, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{limiter: limiter, logger: logger}
}

// Limit counts every request against rule and answers 429 once it is exhausted.
// Store failures let the request through.
func (rl *RateLimiter) Limit(rule ratelimit.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := rl.limiter.Allow(c.Request.Context(), rule, c.ClientIP())
		if err != nil {
			rl.logger.Warn().Err(err).Str("rule", rule.Name).Msg("Rate limit store unavailable, allowing request")
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			errorDetail := dto.NewErrorDetail(dto.ErrorCodeRateLimited, "Too many requests, please try again later").
				WithSeverity(dto.ErrorSeverityWarning).
				WithDetails(map[string]interface{}{"retryAfterSeconds": retryAfter})
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}
