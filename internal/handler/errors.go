package handler

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/i18n"
	"github.com/scenereel/api/pkg/response"
)

// language picks the message language of a request: ?lang= first, then
// Accept-Language.
func language(c *fiber.Ctx) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return c.Get(fiber.HeaderAcceptLanguage)
}

// writeError maps err to a response envelope with a localized message
func writeError(c *fiber.Ctx, messages *i18n.Catalog, err error) error {
	msgs := messages.For(language(c))

	e, ok := apperr.As(err)
	if !ok {
		log.Printf("[API] %s %s: %v", c.Method(), c.Path(), err)
		return response.ServiceError(c, msgs.ErrorMessage(err))
	}

	switch e.Kind {
	case apperr.KindSegmentation, apperr.KindQuotaExceeded, apperr.KindPollingFailed,
		apperr.KindMissingAsset, apperr.KindDownload, apperr.KindSynthesis:
		return response.FromError(c, err, msgs.ErrorMessage(err))
	case apperr.KindCanceled:
		return response.FromError(c, err, msgs.Canceled())
	default:
		return response.FromError(c, err, e.Msg)
	}
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
