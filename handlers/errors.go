package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/services"
	"github.com/hkbharti77/AI-Counsellor/utils/response"
	"github.com/hkbharti77/AI-Counsellor/utils/validation"
)

// RespondError maps service errors onto the response envelope.
// Anything that is not a business rule failure becomes a 500 with fallback as message.
func RespondError(c *fiber.Ctx, err error, fallback string) error {
	if selErr, ok := services.AsSelectionError(err); ok {
		switch selErr.Kind {
		case services.KindNotFound:
			return response.Error(c, fiber.StatusNotFound, selErr.Message, selErr.Code)
		case services.KindConflict:
			return response.Error(c, fiber.StatusConflict, selErr.Message, selErr.Code)
		case services.KindPrecondition:
			return response.PreconditionFailed(c, selErr.Message, selErr.Code)
		case services.KindDependency:
			return response.Error(c, fiber.StatusServiceUnavailable, selErr.Message, selErr.Code)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return response.ServiceUnavailable(c, "Another change to your selection is in progress. Please retry.")
	}

	return response.InternalServerError(c, fallback)
}

// RespondValidation renders validator failures field by field
func RespondValidation(c *fiber.Ctx, err error) error {
	fields := validation.FormatValidationErrors(err)
	if len(fields) == 0 {
		return response.ValidationFailed(c, nil, err.Error())
	}

	messages := make([]string, 0, len(fields))
	for _, msg := range fields {
		messages = append(messages, msg)
	}
	sort.Strings(messages)
	return response.ValidationFailed(c, fields, strings.Join(messages, "; "))
}
