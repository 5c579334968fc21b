package handlers

import (
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// InventoryHandler serves the admin inventory view and restocking.
type InventoryHandler struct {
	service  *services.InventoryService
	validate *validator.Validate
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(service *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *InventoryHandler) RegisterRoutes(r Routers) {
	r.Admin.Get("/inventory", h.HandleListInventory)
	r.Admin.Post("/variants/:id/restock", h.HandleRestock)
}

// HandleListInventory lists products with their aggregated stock.
// Query: status, category, search, active.
func (h *InventoryHandler) HandleListInventory(c *fiber.Ctx) error {
	filter := services.InventoryFilter{
		Status:     models.StockStatus(c.Query("status")),
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		ActiveOnly: c.QueryBool("active"),
	}
	switch filter.Status {
	case "", models.StockInStock, models.StockLowStock, models.StockOutOfStock:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Unknown stock status",
			"error":   string(filter.Status),
		})
	}

	items, err := h.service.ListInventory(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err, "Could not retrieve inventory")
	}
	return c.JSON(items)
}

// RestockRequest is the body of POST /admin/variants/:id/restock. Negative
// deltas correct over-counted stock.
type RestockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// HandleRestock changes the stock of a variant.
func (h *InventoryHandler) HandleRestock(c *fiber.Ctx) error {
	var req RestockRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	variant, err := h.service.Restock(c.UserContext(), c.Params("id"), req.Delta)
	if err != nil {
		return respondError(c, err, "Could not restock variant")
	}
	return c.JSON(variant)
}
