package http

import "github.com/gofiber/fiber/v2"

type errorBody struct {
	Code    string `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK writes a 200 response with the given payload.
func OK(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusOK).JSON(payload)
}

// Created writes a 201 response with the given payload.
func Created(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusCreated).JSON(payload)
}

// NoContent writes a bare 204 response.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// NotModified writes a bare 304, used by the watch long-poll endpoint on timeout.
func NotModified(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNotModified)
}

// BadRequest writes a 400 response with an arbitrary payload (validation
// error bodies carry their own Fields map, so the payload is passed through).
func BadRequest(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusBadRequest).JSON(payload)
}

// Unauthorized writes a 401 response.
func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Code: code, Title: title, Message: message})
}

// Forbidden writes a 403 response.
func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(errorBody{Code: code, Title: title, Message: message})
}

// NotFound writes a 404 response.
func NotFound(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(errorBody{Code: code, Title: title, Message: message})
}

// Conflict writes a 409 response.
func Conflict(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusConflict).JSON(errorBody{Code: code, Title: title, Message: message})
}

// UnprocessableEntity writes a 422 response.
func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody{Code: code, Title: title, Message: message})
}

// TooManyRequests writes a 429 response, used for QuotaExceeded.
func TooManyRequests(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{Code: code, Title: title, Message: message})
}

// ServiceUnavailable writes a 503 response, used for ReadOnly/ReplicationUnavailable.
func ServiceUnavailable(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(errorBody{Code: code, Title: title, Message: message})
}

// InternalServerError writes a 500 response.
func InternalServerError(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Code: code, Title: title, Message: message})
}

// JSONResponseError writes a ResponseError using its own embedded status code,
// defaulting to 500 when unset.
func JSONResponseError(c *fiber.Ctx, r ResponseError) error {
	status := r.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(r)
}
