package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/place-intelligence/internal/config"
)

// RateLimiter applies a token bucket per route to the listed route patterns.
// Other routes pass through.
func RateLimiter(cfg config.RateLimitConfig, paths ...string) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 || len(paths) == 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	limiters := make(map[string]*rate.Limiter, len(paths))
	for _, p := range paths {
		limiters[p] = rate.NewLimiter(rate.Every(perRequest), cfg.Requests)
	}
	var mu sync.Mutex

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter, ok := limiters[c.Path()]
			if !ok {
				return next(c)
			}

			mu.Lock()
			allowed := limiter.Allow()
			mu.Unlock()

			if !allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"status": "error", "message": "query rate limit exceeded"})
			}

			return next(c)
		}
	}
}
