package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shopfront/internal/common"
	"shopfront/internal/models"
	"shopfront/internal/services"

	"github.com/labstack/echo/v4"
)

// ProductImageHandlers handles the persisted product-image records: the
// commit, fetch, and delete boundary the pipeline and carousel work against.
type ProductImageHandlers struct {
	imageService services.ProductImageService
}

func NewProductImageHandlers(imageService services.ProductImageService) *ProductImageHandlers {
	return &ProductImageHandlers{imageService: imageService}
}

// CreateImage handles POST /product-images. One request per asset; the
// caller supplies the ordering and primary flag it accumulated.
func (h *ProductImageHandlers) CreateImage(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		ProductID    string  `json:"product_id"`
		ImageURL     string  `json:"image_url"`
		AltText      *string `json:"alt_text"`
		IsPrimary    bool    `json:"is_primary"`
		DisplayOrder int     `json:"display_order"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	productID, err := common.ValidateUUID(req.ProductID, "product_id")
	if err != nil {
		return common.SendValidationError(c, "product_id", err.Error())
	}
	if req.ImageURL == "" {
		return common.SendValidationError(c, "image_url", "image_url is required")
	}
	if req.DisplayOrder < 0 {
		return common.SendValidationError(c, "display_order", "display_order cannot be negative")
	}

	image := &models.ProductImage{
		ProductID:    productID,
		ImageURL:     req.ImageURL,
		AltText:      req.AltText,
		IsPrimary:    req.IsPrimary,
		DisplayOrder: req.DisplayOrder,
	}

	if err := h.imageService.CreateImage(ctx, image); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return common.SendNotFoundError(c, "Product")
		}
		return common.SendServerError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, image)
}

// ListImages handles GET /product-images. Records come back ordered by
// display_order; skip/limit page through them.
func (h *ProductImageHandlers) ListImages(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := common.ValidateUUID(c.QueryParam("product_id"), "product_id")
	if err != nil {
		return common.SendValidationError(c, "product_id", err.Error())
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, skip = common.ValidatePaginationParams(limit, skip)

	images, err := h.imageService.ListImages(ctx, productID, limit, skip)
	if err != nil {
		return common.SendServerError(c, err.Error())
	}
	if images == nil {
		images = []*models.ProductImage{}
	}
	return c.JSON(http.StatusOK, images)
}

// GetImageURL handles GET /product-images/:id/url, returning a time-limited
// presigned URL for the stored object.
func (h *ProductImageHandlers) GetImageURL(c echo.Context) error {
	ctx := c.Request().Context()

	imageID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	expiry := 15 * time.Minute
	if minutes, err := strconv.Atoi(c.QueryParam("expiry_minutes")); err == nil && minutes > 0 {
		expiry = time.Duration(minutes) * time.Minute
	}

	url, err := h.imageService.GetImageURL(ctx, imageID, expiry)
	if err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			return common.SendNotFoundError(c, "Image")
		}
		return common.SendServerError(c, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// DeleteImage handles DELETE /product-images/:id.
func (h *ProductImageHandlers) DeleteImage(c echo.Context) error {
	ctx := c.Request().Context()

	imageID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.imageService.DeleteImage(ctx, imageID); err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			return common.SendNotFoundError(c, "Image")
		}
		return common.SendServerError(c, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
