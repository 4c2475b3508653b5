package response

import (
	"github.com/gofiber/fiber/v2"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message,omitempty"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// ErrorDetail carries a stable code the client switches on
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
}

// PaginatedResponse is the envelope of list endpoints
type PaginatedResponse struct {
	Success    bool           `json:"success"`
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
	RequestID  string         `json:"request_id,omitempty"`
}

// requestID echoes the id set by the requestid middleware so clients can quote it
func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

func send(c *fiber.Ctx, status int, body Response) error {
	body.RequestID = requestID(c)
	return c.Status(status).JSON(body)
}

// Success returns 200 with data
func Success(c *fiber.Ctx, data interface{}) error {
	return send(c, fiber.StatusOK, Response{Success: true, Data: data})
}

// SuccessWithMessage returns 200 with data and a message for the client to show
func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created returns 201
func Created(c *fiber.Ctx, data interface{}) error {
	return send(c, fiber.StatusCreated, Response{
		Success: true,
		Message: "Resource created successfully",
		Data:    data,
	})
}

// Error returns a failure with the given status and code
func Error(c *fiber.Ctx, statusCode int, message string, code string) error {
	return send(c, statusCode, Response{
		Error: &ErrorDetail{Code: code, Message: message},
	})
}

// ValidationFailed returns 422 listing the offending request fields
func ValidationFailed(c *fiber.Ctx, fields map[string]string, details string) error {
	return send(c, fiber.StatusUnprocessableEntity, Response{
		Error: &ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: "Validation failed",
			Details: details,
			Fields:  fields,
		},
	})
}

// BadRequest returns 400
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message, "BAD_REQUEST")
}

// Unauthorized returns 401
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Unauthorized access"
	}
	return Error(c, fiber.StatusUnauthorized, message, "UNAUTHORIZED")
}

// PreconditionFailed returns 412 for a request the current selection state does not allow
func PreconditionFailed(c *fiber.Ctx, message string, code string) error {
	return Error(c, fiber.StatusPreconditionFailed, message, code)
}

// InternalServerError returns 500
func InternalServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return Error(c, fiber.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// ServiceUnavailable returns 503
func ServiceUnavailable(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return Error(c, fiber.StatusServiceUnavailable, message, "SERVICE_UNAVAILABLE")
}

// Paginated returns one page of a list
func Paginated(c *fiber.Ctx, data interface{}, pagination PaginationMeta) error {
	return c.Status(fiber.StatusOK).JSON(PaginatedResponse{
		Success:    true,
		Data:       data,
		Pagination: pagination,
		RequestID:  requestID(c),
	})
}

// CalculatePagination clamps page and limit the same way the catalog query does
func CalculatePagination(page, limit int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
		TotalPages:  totalPages,
	}
}
