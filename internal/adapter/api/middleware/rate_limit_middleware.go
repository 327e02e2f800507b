package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"firechat/internal/infrastructure/ratelimit"
	"firechat/pkg/errors"
	"firechat/pkg/logger"
	"firechat/pkg/response"
)

// RateLimit throttles requests per client IP under the given action name.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			allowed, wait := limiter.Allow(ip, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s blocked for %s (retry in %v)", action, ip, wait)
				retry := int(math.Max(1, math.Ceil(wait.Seconds())))
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}
