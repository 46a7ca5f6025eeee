package handler

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/domain/service"
	"casalivre/pkg/errors"
	"casalivre/pkg/response"
)

// maxAttachmentSize caps chat uploads at 10 MB.
const maxAttachmentSize = 10 << 20

type AttachmentHandler struct {
	attachments service.AttachmentService
}

func NewAttachmentHandler(attachments service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachments: attachments,
	}
}

// Upload stores a chat attachment and returns its public URL. The client
// references the URL in a subsequent send.
func (h *AttachmentHandler) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("file is required", err))
	}

	if file.Size > maxAttachmentSize {
		return response.Error(c, errors.BadRequest("file exceeds the 10MB limit", nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("failed to open uploaded file", err))
	}
	defer src.Close()

	userID := c.Get("uid").(string)

	url, err := h.attachments.Upload(c.Request().Context(), userID,
		file.Filename, file.Header.Get("Content-Type"), src)
	if err != nil {
		return response.Error(c, errors.UploadFailed(err))
	}

	return response.Created(c, map[string]string{
		"url": url,
	})
}
