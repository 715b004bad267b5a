package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// Recover turns a panic in any later handler into a 500 with the standard
// error envelope. The stack is logged, never returned.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error("panic recovered",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
				slog.String("stack", string(debug.Stack())),
			)

			err = c.Status(fiber.StatusInternalServerError).JSON(
				errorBody(domain.ErrInternal.Code, domain.ErrInternal.Message),
			)
		}()
		return c.Next()
	}
}
