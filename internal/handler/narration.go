package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/scenereel/api/internal/i18n"
	"github.com/scenereel/api/internal/service"
	"github.com/scenereel/api/pkg/response"
)

type NarrationHandler struct {
	service  *service.NarrationService
	messages *i18n.Catalog
}

func NewNarrationHandler(svc *service.NarrationService, messages *i18n.Catalog) *NarrationHandler {
	return &NarrationHandler{
		service:  svc,
		messages: messages,
	}
}

// Speak handles POST /api/runs/:runId/clips/:index/narration. It answers
// with audio/mpeg, or with the bound utterance as JSON when the server has no
// synthesizer and the client speaks it.
func (h *NarrationHandler) Speak(c *fiber.Ctx) error {
	runID := c.Params("runId")
	index, err := strconv.Atoi(c.Params("index"))
	if runID == "" || err != nil {
		return response.ValidationError(c, "Run ID and clip index are required", nil)
	}

	audio, utterance, err := h.service.Speak(c.Context(), runID, index)
	if err != nil {
		return writeError(c, h.messages, err)
	}

	if audio == nil {
		return response.OK(c, fiber.Map{"utterance": utterance})
	}

	if utterance.Voice != nil {
		c.Set("X-Voice-Id", utterance.Voice.ID)
		c.Set("X-Voice-Name", utterance.Voice.Name)
	}
	if utterance.Fallback {
		c.Set("X-Voice-Fallback", "true")
	}
	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Send(audio)
}

// Cancel handles DELETE /api/narration
func (h *NarrationHandler) Cancel(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"canceled": h.service.Cancel()})
}
