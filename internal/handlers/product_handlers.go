package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"shopfront/internal/common"
	"shopfront/internal/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// ProductHandlers exposes the read-only catalog surface the operator screen
// selects a commit target from. Products are owned elsewhere and never
// mutated here.
type ProductHandlers struct {
	productRepo repositories.ProductRepository
}

func NewProductHandlers(productRepo repositories.ProductRepository) *ProductHandlers {
	return &ProductHandlers{productRepo: productRepo}
}

// ListProducts handles GET /products.
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, skip = common.ValidatePaginationParams(limit, skip)

	products, err := h.productRepo.List(ctx, limit, skip)
	if err != nil {
		return common.SendServerError(c, err.Error())
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct handles GET /products/:id.
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	product, err := h.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "Product")
		}
		return common.SendServerError(c, err.Error())
	}
	return c.JSON(http.StatusOK, product)
}
