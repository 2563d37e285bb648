package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by downstream handlers into the
// standard error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return ErrorHandler(ctx, err)
	}
}

// ErrorHandler is also installed as fiber's ErrorHandler for errors raised outside handlers.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		code = fiber.StatusBadRequest
	case errors.As(err, &fe):
		code = fe.Code
	}

	return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
}
