package handlers

import (
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the catalog routes. Reads are public, writes need an admin.
func (h *ProductHandler) RegisterRoutes(r Routers) {
	products := r.Public.Group("/products")
	products.Get("/", h.HandleGetProducts)
	products.Get("/:id", h.HandleGetProductByID)

	admin := r.Admin.Group("/products")
	admin.Get("/", h.HandleGetAllProducts)
	admin.Post("/", h.HandleCreateProduct)
	admin.Put("/:id", h.HandleUpdateProduct)
	admin.Delete("/:id", h.HandleDeleteProduct)
	admin.Post("/:id/variants", h.HandleAddVariant)
}

// VariantRequest is a variant in product create and add-variant requests.
type VariantRequest struct {
	SKU           string `json:"sku" validate:"required,max=64"`
	Color         string `json:"color" validate:"max=50"`
	Size          string `json:"size" validate:"max=50"`
	ImageURL      string `json:"image_url"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
}

func (r VariantRequest) toModel() models.Variant {
	return models.Variant{
		SKU:           r.SKU,
		Color:         r.Color,
		Size:          r.Size,
		ImageURL:      r.ImageURL,
		StockQuantity: r.StockQuantity,
	}
}

// ProductRequest is the body of product create and update requests.
// Variants are only read on create.
type ProductRequest struct {
	Name              string              `json:"name" validate:"required,min=3,max=100"`
	Description       string              `json:"description"`
	Price             decimal.Decimal     `json:"price"`
	CompareAtPrice    decimal.NullDecimal `json:"compare_at_price"`
	Category          string              `json:"category" validate:"max=100"`
	ImageURL          string              `json:"image_url"`
	IsActive          *bool               `json:"is_active"`
	IsFeatured        bool                `json:"is_featured"`
	LowStockThreshold *int                `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	Variants          []VariantRequest    `json:"variants" validate:"dive"`
}

func (r ProductRequest) toModel() models.Product {
	p := models.Product{
		Name:              r.Name,
		Description:       r.Description,
		Price:             r.Price,
		CompareAtPrice:    r.CompareAtPrice,
		Category:          r.Category,
		ImageURL:          r.ImageURL,
		IsActive:          r.IsActive == nil || *r.IsActive,
		IsFeatured:        r.IsFeatured,
		LowStockThreshold: r.LowStockThreshold,
	}
	for _, v := range r.Variants {
		p.Variants = append(p.Variants, v.toModel())
	}
	return p
}

// HandleGetProducts lists active products with their variants and stock.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext(), repositories.ProductFilter{
		Category:     c.Query("category"),
		Search:       c.Query("search"),
		FeaturedOnly: c.QueryBool("featured"),
		ActiveOnly:   true,
	})
	if err != nil {
		return respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single active product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve product")
	}
	if !product.IsActive {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	}
	return c.JSON(product)
}

// HandleGetAllProducts lists every product, inactive ones included.
func (h *ProductHandler) HandleGetAllProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext(), repositories.ProductFilter{
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		ActiveOnly: c.QueryBool("active"),
	})
	if err != nil {
		return respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleCreateProduct creates a product and its initial variants.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	product := req.toModel()
	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return respondError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the editable fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	product := req.toModel()
	product.ID = c.Params("id")
	if err := h.service.UpdateProduct(c.UserContext(), &product); err != nil {
		return respondError(c, err, "Could not update product")
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product and its variants.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err, "Could not delete product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAddVariant adds a variant to an existing product.
func (h *ProductHandler) HandleAddVariant(c *fiber.Ctx) error {
	var req VariantRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	variant := req.toModel()
	if err := h.service.AddVariant(c.UserContext(), c.Params("id"), &variant); err != nil {
		return respondError(c, err, "Could not add variant")
	}
	return c.Status(fiber.StatusCreated).JSON(variant)
}
