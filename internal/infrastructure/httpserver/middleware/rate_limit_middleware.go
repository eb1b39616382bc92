package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/perchnet/user-service/internal/infrastructure/httpserver/helpers"
)

// skipPrefixes are never rate limited: probes, metrics scrapes, static
// media and service-to-service calls.
var skipPrefixes = []string{"/health", "/metrics", "/images", "/internal"}

type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiter
	logger      *logrus.Logger
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiter, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, logger: logger}
}

func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			identity := helpers.ClientIdentity(c)
			class := classify(c.Request().Method, path)

			allowed, rlErr := r.rateLimiter.Allow(c.Request().Context(), identity, class)
			if rlErr != nil {
				if r.logger != nil {
					r.logger.WithError(rlErr).WithField("identity", identity).Warn("rate limiter error; allowing request (fail-open)")
				}
				return next(c)
			}

			remaining, _ := r.rateLimiter.Remaining(c.Request().Context(), identity, class)
			resetSeconds, _ := r.rateLimiter.ResetSeconds(c.Request().Context(), identity, class)

			c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", r.rateLimiter.Limit(class)))
			c.Response().Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			c.Response().Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Unix()+int64(resetSeconds)))

			if !allowed {
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", resetSeconds))
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Rate limit exceeded",
					"message": fmt.Sprintf("Too many requests. Please try again in %d seconds.", resetSeconds),
				})
			}
			return next(c)
		}
	}
}

// classify maps a request onto a rate-limit class: login attempts get the
// strictest budget, reads the loosest, all other mutations sit in between.
func classify(method, path string) ports.RequestClass {
	if strings.HasSuffix(path, "/auth/login") {
		return ports.ClassLogin
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ports.ClassRead
	default:
		return ports.ClassWrite
	}
}
