package utils

import (
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse creates a standardized error response. Server-side
// failures are additionally reported to Sentry (no-op when Sentry is
// not initialized).
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if status >= fiber.StatusInternalServerError && err != nil {
		CaptureError(err, map[string]string{
			"path":   c.Path(),
			"method": c.Method(),
		})
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// CaptureError reports an error to Sentry with contextual tags.
func CaptureError(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// ParseUint safely parses a string to uint
func ParseUint(s string) uint {
	i, _ := strconv.ParseUint(s, 10, 32)
	return uint(i)
}
