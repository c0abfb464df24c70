package handlers

import (
	"net/http"
	"strings"

	"shopfront/internal/common"
	"shopfront/internal/services"

	"github.com/labstack/echo/v4"
)

// StorageHandlers handles the staging upload endpoint the pipeline's
// UploadSequencer talks to.
type StorageHandlers struct {
	imageService services.ProductImageService
}

func NewStorageHandlers(imageService services.ProductImageService) *StorageHandlers {
	return &StorageHandlers{imageService: imageService}
}

// Upload handles POST /storage/upload. The multipart body carries the binary
// content under "file" plus a logical "folder" tag; the response yields the
// durable URL the commit step records.
func (h *StorageHandlers) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "a file part is required")
	}

	folder := strings.TrimSpace(c.FormValue("folder"))

	src, err := fileHeader.Open()
	if err != nil {
		return common.SendServerError(c, "failed to read uploaded file")
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	staged, err := h.imageService.StageUpload(ctx, folder, fileHeader.Filename, contentType, src, fileHeader.Size)
	if err != nil {
		return common.SendServerError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, staged)
}

// DeleteStagedObject handles DELETE /storage/objects. It exists so an
// abandoned pipeline session can clean up its own uploads without waiting
// for the sweeper.
func (h *StorageHandlers) DeleteStagedObject(c echo.Context) error {
	ctx := c.Request().Context()

	url := strings.TrimSpace(c.QueryParam("url"))
	if url == "" {
		return common.SendValidationError(c, "url", "url is required")
	}

	if err := h.imageService.DeleteStagedObject(ctx, url); err != nil {
		if err == services.ErrNotStaged {
			return common.SendClientError(c, "only unreferenced staging objects can be deleted")
		}
		return common.SendServerError(c, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
