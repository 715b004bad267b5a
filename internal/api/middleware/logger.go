package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger writes one access line per request. Client errors log at Warn and
// server errors at Error; health checks are logged at Debug.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		// ErrorHandler runs after this middleware returns.
		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		case isHealthCheck(c.Path()):
			level = slog.LevelDebug
		}

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
			slog.Int("bytes_in", len(c.Body())),
			slog.String("ip", c.IP()),
			slog.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		}
		if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
			attrs = append(attrs, slog.String("user_agent", ua))
		}

		logger.LogAttrs(c.Context(), level, "http request", attrs...)
		return err
	}
}

func isHealthCheck(path string) bool {
	return path == "/health" || path == "/ready"
}
