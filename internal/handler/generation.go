package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/i18n"
	"github.com/scenereel/api/internal/middleware"
	"github.com/scenereel/api/internal/model"
	"github.com/scenereel/api/internal/service"
	"github.com/scenereel/api/pkg/response"
)

type GenerationHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
	messages  *i18n.Catalog
}

func NewGenerationHandler(svc *service.GenerationService, v *validator.Validate, messages *i18n.Catalog) *GenerationHandler {
	return &GenerationHandler{
		service:   svc,
		validator: v,
		messages:  messages,
	}
}

// Start handles POST /api/runs
func (h *GenerationHandler) Start(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		msgs := h.messages.For(string(req.Language))
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) == 1 && verrs[0].Field() == "Script" {
			return response.ValidationError(c, msgs.ErrorMessage(apperr.ErrValidation), formatValidationErrors(err))
		}
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartRun(c.Context(), middleware.GetSessionID(c), &req)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			return response.ValidationError(c, h.messages.For(string(req.Language)).ErrorMessage(err), nil)
		}
		return writeError(c, h.messages, err)
	}

	return response.Accepted(c, result)
}

// Get handles GET /api/runs/:runId
func (h *GenerationHandler) Get(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	run, err := h.service.GetRun(c.Context(), runID)
	if err != nil {
		return writeError(c, h.messages, err)
	}

	return response.OK(c, run)
}

// Current handles GET /api/session/run
func (h *GenerationHandler) Current(c *fiber.Ctx) error {
	run, err := h.service.SessionRun(c.Context(), middleware.GetSessionID(c))
	if err != nil {
		return writeError(c, h.messages, err)
	}

	return response.OK(c, run)
}

// Preview handles GET /api/runs/:runId/preview?index=k
func (h *GenerationHandler) Preview(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	index, err := strconv.Atoi(c.Query("index", "0"))
	if err != nil {
		return response.ValidationError(c, "index must be an integer", nil)
	}

	result, err := h.service.Preview(c.Context(), runID, index)
	if err != nil {
		return writeError(c, h.messages, err)
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/runs/:runId/cancel
func (h *GenerationHandler) Cancel(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	result, err := h.service.Cancel(c.Context(), runID)
	if err != nil {
		return writeError(c, h.messages, err)
	}

	return response.OK(c, result)
}

// Discard handles DELETE /api/runs/:runId
func (h *GenerationHandler) Discard(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	if err := h.service.Discard(c.Context(), runID); err != nil {
		return writeError(c, h.messages, err)
	}

	return response.NoContent(c)
}
