package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one access-log line per request. The metrics endpoint
// is skipped because scrapes would drown out real traffic.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			req := c.Request()
			log.Printf("%s %s -> %d in %s (%s)",
				req.Method,
				req.RequestURI,
				c.Response().Status,
				time.Since(start),
				req.RemoteAddr,
			)
			return err
		}
	}
}
