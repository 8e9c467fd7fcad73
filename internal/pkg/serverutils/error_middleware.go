package serverutils

import (
	"errors"

	"ai-gateway-be/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts typed pipeline errors into HTTP responses.
// Anything untyped becomes a 500 without leaking internals.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var pipeErr *pipeline.PipelineError
		if errors.As(err, &pipeErr) {
			return ctx.Status(statusForCode(pipeErr.Code)).
				JSON(ErrorResponse(pipeErr.Code, pipeErr.Error()))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).
				JSON(ErrorResponse("REQUEST_ERROR", fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse("INTERNAL_ERROR", "internal server error"))
	}
}

func statusForCode(code string) int {
	switch code {
	case pipeline.CodeInvalidInput:
		return fiber.StatusBadRequest
	case pipeline.CodeUnsafeQuery, pipeline.CodeValidationFailed:
		return fiber.StatusUnprocessableEntity
	case pipeline.CodeSessionBusy:
		return fiber.StatusTooManyRequests
	case pipeline.CodeSessionTimeout:
		return fiber.StatusGatewayTimeout
	case pipeline.CodeProviderUnavailable, pipeline.CodeFallbackExhausted:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
