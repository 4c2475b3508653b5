package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/utils/response"
)

// MakeHTTPHandleFunc binds a handler that needs deps to a fiber route.
// Errors the handler returns become a 500 envelope.
func MakeHTTPHandleFunc[D any](handler func(c *fiber.Ctx, deps D) error, deps D) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c, deps); err != nil {
			return response.InternalServerError(c, err.Error())
		}
		return nil
	}
}
