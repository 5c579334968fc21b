package handlers

import (
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers checkout, customer order and order administration routes.
func (h *OrderHandler) RegisterRoutes(r Routers) {
	r.Public.Post("/checkout", r.Auth, h.HandleCheckout)
	r.Public.Get("/orders/mine", r.Auth, h.HandleGetMyOrders)
	r.Public.Get("/orders/mine/:id", r.Auth, h.HandleGetMyOrder)

	admin := r.Admin.Group("/orders")
	admin.Get("/", h.HandleGetOrders)
	admin.Get("/:id", h.HandleGetOrderByID)
	admin.Patch("/:id/status", h.HandleUpdateOrderStatus)
	admin.Post("/:id/refund", h.HandleRefundOrder)
	admin.Post("/:id/payment", h.HandleRecordPayment)
	admin.Post("/:id/notes", h.HandleAddNote)
}

// orderResponse is an order with its display badge.
type orderResponse struct {
	*models.Order
	Badge statusBadge `json:"badge"`
}

func withBadge(o *models.Order) orderResponse {
	return orderResponse{Order: o, Badge: statusBadges[o.Status]}
}

func withBadges(orders []models.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = withBadge(&orders[i])
	}
	return out
}

// CheckoutRequest is the body of POST /checkout.
type CheckoutRequest struct {
	Items           []services.CartItem    `json:"items" validate:"required,min=1,dive"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	CouponCode      string                 `json:"coupon_code" validate:"max=50"`
}

// HandleCheckout places an order for the authenticated customer.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	order, err := h.service.PlaceOrder(c.UserContext(), services.PlaceOrderRequest{
		CustomerID:      currentUserID(c),
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		CouponCode:      req.CouponCode,
	})
	if err != nil {
		return respondError(c, err, "Could not place order")
	}
	return c.Status(fiber.StatusCreated).JSON(withBadge(order))
}

// HandleGetMyOrders lists the authenticated customer's orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), repositories.OrderFilter{CustomerID: currentUserID(c)})
	if err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(withBadges(orders))
}

// HandleGetMyOrder retrieves one of the authenticated customer's orders.
// Internal notes are not shown to customers.
func (h *OrderHandler) HandleGetMyOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrder(c.UserContext(), orderID)
	if err != nil {
		return respondError(c, err, "Could not retrieve order")
	}
	if order.CustomerID != currentUserID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Order with ID %s not found", orderID),
		})
	}
	order.Notes = nil
	return c.JSON(withBadge(order))
}

// HandleGetOrders lists all orders, optionally filtered by status or customer.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), repositories.OrderFilter{
		Status:     models.OrderStatus(c.Query("status")),
		CustomerID: c.Query("customer_id"),
	})
	if err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(withBadges(orders))
}

// HandleGetOrderByID retrieves a single order with its timeline and notes.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve order")
	}
	return c.JSON(withBadge(order))
}

// StatusUpdateRequest is the body of PATCH /admin/orders/:id/status.
type StatusUpdateRequest struct {
	Status  models.OrderStatus `json:"status" validate:"required"`
	Message string             `json:"message" validate:"max=500"`
}

// HandleUpdateOrderStatus moves an order through the status machine.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req StatusUpdateRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	order, err := h.service.TransitionOrder(c.UserContext(), c.Params("id"), req.Status, req.Message)
	if err != nil {
		return respondError(c, err, "Could not update order status")
	}
	return c.JSON(withBadge(order))
}

// RefundRequest is the optional body of POST /admin/orders/:id/refund.
type RefundRequest struct {
	Message string `json:"message" validate:"max=500"`
}

// HandleRefundOrder refunds a delivered order.
func (h *OrderHandler) HandleRefundOrder(c *fiber.Ctx) error {
	var req RefundRequest
	if len(c.Body()) > 0 {
		if ok, err := bindAndValidate(c, h.validate, &req); !ok {
			return err
		}
	}

	order, err := h.service.RefundOrder(c.UserContext(), c.Params("id"), req.Message)
	if err != nil {
		return respondError(c, err, "Could not refund order")
	}
	return c.JSON(withBadge(order))
}

// PaymentRequest is the body of POST /admin/orders/:id/payment.
type PaymentRequest struct {
	Status models.PaymentStatus `json:"status" validate:"required,oneof=paid failed"`
}

// HandleRecordPayment records the outcome of a payment.
func (h *OrderHandler) HandleRecordPayment(c *fiber.Ctx) error {
	var req PaymentRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	order, err := h.service.RecordPayment(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, err, "Could not record payment")
	}
	return c.JSON(withBadge(order))
}

// NoteRequest is the body of POST /admin/orders/:id/notes.
type NoteRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// HandleAddNote appends an internal note to an order.
func (h *OrderHandler) HandleAddNote(c *fiber.Ctx) error {
	var req NoteRequest
	if ok, err := bindAndValidate(c, h.validate, &req); !ok {
		return err
	}

	order, err := h.service.AddNote(c.UserContext(), c.Params("id"), req.Body)
	if err != nil {
		return respondError(c, err, "Could not add note")
	}
	return c.Status(fiber.StatusCreated).JSON(withBadge(order))
}
