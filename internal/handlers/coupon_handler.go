package handlers

import (
	"time"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CouponHandler handles coupon previews and coupon administration.
type CouponHandler struct {
	service  *services.CouponService
	validate *validator.Validate
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(service *services.CouponService) *CouponHandler {
	return &CouponHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CouponHandler) RegisterRoutes(r Routers) {
	r.Public.Post("/coupons/preview", r.Auth, h.HandlePreview)

	admin := r.Admin.Group("/coupons")
	admin.Get("/", h.HandleGetCoupons)
	admin.Post("/", h.HandleCreateCoupon)
	admin.Patch("/:code/active", h.HandleSetActive)
}

// PreviewRequest asks what a coupon would take off a cart subtotal.
type PreviewRequest struct {
	Code     string          `json:"code" validate:"required,max=50"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// HandlePreview evaluates a coupon without redeeming it.
func (h *CouponHandler) HandlePreview(c *fiber.Ctx) error {
	var req PreviewRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	preview, err := h.service.Preview(c.UserContext(), req.Code, req.Subtotal)
	if err != nil {
		return respondError(c, err, "Coupon cannot be applied")
	}
	return c.JSON(preview)
}

func (h *CouponHandler) HandleGetCoupons(c *fiber.Ctx) error {
	coupons, err := h.service.ListCoupons(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not retrieve coupons")
	}
	return c.JSON(coupons)
}

// CreateCouponRequest is the body of POST /admin/coupons.
type CreateCouponRequest struct {
	Code              string              `json:"code" validate:"required,max=50"`
	DiscountType      models.DiscountType `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue     decimal.Decimal     `json:"discount_value"`
	MinPurchaseAmount decimal.Decimal     `json:"min_purchase_amount"`
	ExpiresAt         *time.Time          `json:"expires_at"`
	UsageLimit        *int                `json:"usage_limit" validate:"omitempty,gte=0"`
	IsActive          *bool               `json:"is_active"`
}

func (h *CouponHandler) HandleCreateCoupon(c *fiber.Ctx) error {
	var req CreateCouponRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	coupon := models.Coupon{
		Code:              req.Code,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MinPurchaseAmount: req.MinPurchaseAmount,
		ExpiresAt:         req.ExpiresAt,
		UsageLimit:        req.UsageLimit,
		IsActive:          req.IsActive == nil || *req.IsActive,
	}
	if err := h.service.CreateCoupon(c.UserContext(), &coupon); err != nil {
		return respondError(c, err, "Could not create coupon")
	}
	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// SetActiveRequest is the body of PATCH /admin/coupons/:code/active.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *CouponHandler) HandleSetActive(c *fiber.Ctx) error {
	var req SetActiveRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	coupon, err := h.service.SetActive(c.UserContext(), c.Params("code"), *req.Active)
	if err != nil {
		return respondError(c, err, "Could not update coupon")
	}
	return c.JSON(coupon)
}
