package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scenereel/api/internal/i18n"
	"github.com/scenereel/api/internal/model"
	"github.com/scenereel/api/internal/speech"
	"github.com/scenereel/api/pkg/response"
)

type OptionsHandler struct {
	messages *i18n.Catalog
	voices   *speech.Catalog
}

func NewOptionsHandler(messages *i18n.Catalog, voices *speech.Catalog) *OptionsHandler {
	return &OptionsHandler{
		messages: messages,
		voices:   voices,
	}
}

// Options handles GET /api/options
func (h *OptionsHandler) Options(c *fiber.Ctx) error {
	msgs := h.messages.For(language(c))

	resp := model.OptionsResponse{
		Voices: make([]model.Option, 0, len(model.ValidVoiceOptions)),
		Styles: make([]model.Option, 0, len(model.ValidVideoStyles)),
		Moods:  make([]model.Option, 0, len(model.ValidMusicMoods)),
	}
	for _, v := range model.ValidVoiceOptions {
		resp.Voices = append(resp.Voices, model.Option{Value: string(v), Label: msgs.Label("voice", string(v))})
	}
	for _, s := range model.ValidVideoStyles {
		resp.Styles = append(resp.Styles, model.Option{Value: string(s), Label: msgs.Label("style", string(s))})
	}
	for _, m := range model.ValidMusicMoods {
		resp.Moods = append(resp.Moods, model.Option{Value: string(m), Label: msgs.Label("mood", string(m))})
	}

	return response.OK(c, resp)
}

// Voices handles GET /api/voices
func (h *OptionsHandler) Voices(c *fiber.Ctx) error {
	return response.OK(c, model.VoicesResponse{
		Voices:    h.voices.Voices(),
		Populated: h.voices.Populated(),
	})
}
