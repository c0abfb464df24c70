package handlers

import (
	"errors"
	"io"
	"net/http"

	"shopfront/internal/common"
	"shopfront/internal/services"

	"github.com/labstack/echo/v4"
)

// EnhanceHandlers drives the non-persisting preview side path.
type EnhanceHandlers struct {
	enhanceService services.EnhanceService
}

func NewEnhanceHandlers(enhanceService services.EnhanceService) *EnhanceHandlers {
	return &EnhanceHandlers{enhanceService: enhanceService}
}

// StartRun handles POST /enhance. The multipart body carries the candidate
// images under "images"; fewer than two is a validation error and starts
// nothing.
func (h *EnhanceHandlers) StartRun(c echo.Context) error {
	ctx := c.Request().Context()

	form, err := c.MultipartForm()
	if err != nil {
		return common.SendClientError(c, "Invalid multipart form")
	}

	files := form.File["images"]
	if len(files) < 2 {
		return common.SendValidationError(c, "images", "at least two images are required")
	}

	var inputs []services.EnhanceInput
	for _, fileHeader := range files {
		src, err := fileHeader.Open()
		if err != nil {
			return common.SendServerError(c, "failed to read uploaded file")
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return common.SendServerError(c, "failed to read uploaded file")
		}
		inputs = append(inputs, services.EnhanceInput{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	runID, err := h.enhanceService.StartRun(ctx, inputs)
	if err != nil {
		if errors.Is(err, services.ErrTooFewImages) {
			return common.SendValidationError(c, "images", err.Error())
		}
		if errors.Is(err, services.ErrRunInFlight) {
			return common.SendConflictError(c, err.Error())
		}
		return common.SendServerError(c, err.Error())
	}

	return c.JSON(http.StatusAccepted, map[string]string{"run_id": runID.String()})
}

// GetRun handles GET /enhance/:id.
func (h *EnhanceHandlers) GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	runID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	run, err := h.enhanceService.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			return common.SendNotFoundError(c, "Enhancement run")
		}
		return common.SendServerError(c, err.Error())
	}
	return c.JSON(http.StatusOK, run)
}
