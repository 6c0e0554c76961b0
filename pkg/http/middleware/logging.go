package middleware

import (
	"time"

	applogger "FolioFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request at debug level, or warn for 4xx.
// 5xx and slow requests are logged by Metrics.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []applogger.Field{
				applogger.String("request_id", RequestIDFrom(c)),
				applogger.String("method", req.Method),
				applogger.String("route", c.Path()),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", status),
				applogger.Duration("duration_ms", time.Since(start)),
			}
			if status >= 400 && status < 500 {
				l.Warn("http request rejected", fields...)
			} else {
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
