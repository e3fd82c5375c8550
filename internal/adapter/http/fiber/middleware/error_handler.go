package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/domain"
)

// ErrorHandler maps typed domain errors onto HTTP status codes. Every error
// keeps its human-readable message; only unexpected failures are logged.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusCode(err)

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"kind":  errorKind(err),
		})
	}
}

func statusCode(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		state       *domain.InvalidStateError
		verified    *domain.AlreadyVerifiedError
		cancelled   *domain.CancelledBookingError
		conflict    *domain.ConflictError
		unavailable *domain.ChargerUnavailableError
		otp         *domain.OTPInvalidError
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.As(err, &state), errors.As(err, &verified),
		errors.As(err, &cancelled), errors.As(err, &conflict):
		return fiber.StatusConflict
	case errors.As(err, &unavailable), errors.As(err, &otp):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func errorKind(err error) string {
	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		state       *domain.InvalidStateError
		verified    *domain.AlreadyVerifiedError
		cancelled   *domain.CancelledBookingError
		conflict    *domain.ConflictError
		unavailable *domain.ChargerUnavailableError
		otp         *domain.OTPInvalidError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &state):
		return "invalid_state"
	case errors.As(err, &verified):
		return "already_verified"
	case errors.As(err, &cancelled):
		return "cancelled_booking"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &unavailable):
		return "charger_unavailable"
	case errors.As(err, &otp):
		return "otp_invalid"
	}
	return "internal"
}
