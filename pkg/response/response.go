package response

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scenereel/api/internal/apperr"
)

// Error codes
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimited      = "RATE_LIMITED"
	CodeRunInProgress    = "RUN_IN_PROGRESS"
	CodeQuotaExceeded    = "QUOTA_EXCEEDED"
	CodeGenerationFailed = "GENERATION_FAILED"
	CodePlaybackFailed   = "PLAYBACK_FAILED"
	CodeCanceled         = "CANCELED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeServiceError     = "SERVICE_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Error(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, CodeValidationError, message, details)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", nil)
}

func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, CodeRunInProgress, message, nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServiceError, message, nil)
}

func Unavailable(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusServiceUnavailable, CodeUnavailable, message, nil)
}

// FromError writes the envelope matching the kind of err. message is the
// user-facing text; the error itself is only used for classification.
func FromError(c *fiber.Ctx, err error, message string) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return ValidationError(c, message, nil)
	case apperr.KindNotFound:
		return NotFound(c, message)
	case apperr.KindRunInProgress:
		return Conflict(c, message)
	case apperr.KindQuotaExceeded:
		return Error(c, fiber.StatusTooManyRequests, CodeQuotaExceeded, message, nil)
	case apperr.KindSegmentation, apperr.KindPollingFailed, apperr.KindMissingAsset,
		apperr.KindDownload, apperr.KindSynthesis:
		return Error(c, fiber.StatusBadGateway, CodeGenerationFailed, message, nil)
	case apperr.KindPlayback:
		return Error(c, fiber.StatusBadGateway, CodePlaybackFailed, message, nil)
	case apperr.KindCanceled:
		return Error(c, fiber.StatusConflict, CodeCanceled, message, nil)
	case apperr.KindUnavailable:
		return Unavailable(c, message)
	default:
		return ServiceError(c, message)
	}
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
