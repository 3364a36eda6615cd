package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/scenereel/api/internal/media"
	"github.com/scenereel/api/pkg/response"
)

type MediaHandler struct {
	store *media.Store
}

func NewMediaHandler(store *media.Store) *MediaHandler {
	return &MediaHandler{store: store}
}

// Get handles GET /media/:handle. ?download=1 asks the browser to save the
// clip as scene_<n>.mp4.
func (h *MediaHandler) Get(c *fiber.Ctx) error {
	asset, ok := h.store.Get(c.Params("handle"))
	if !ok {
		return response.NotFound(c, "Media not found")
	}

	disposition := "inline"
	if c.QueryBool("download") {
		disposition = "attachment"
	}

	c.Set(fiber.HeaderContentType, asset.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`%s; filename="%s"`, disposition, asset.DownloadName()))
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(asset.Data)
}
