package handlers

import (
	"errors"
	"fmt"
	"log"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Routers groups the route trees handlers register on. Customer routes are
// registered on Public with Auth in front of them; Admin already carries its guards.
type Routers struct {
	Public fiber.Router
	Admin  fiber.Router
	Auth   fiber.Handler
}

// bindAndValidate parses the request body into out and validates it.
// When it returns false the error response has already been written.
func bindAndValidate(c *fiber.Ctx, validate *validator.Validate, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		log.Printf("Error parsing request body for %s %s: %v", c.Method(), c.Path(), err)
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(out); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// respondError maps service and repository errors to HTTP responses.
func respondError(c *fiber.Ctx, err error, message string) error {
	log.Printf("%s: %v", message, err)

	var (
		stockErr      *services.InsufficientStockError
		couponErr     *services.CouponRejectedError
		transitionErr *services.TransitionError
	)
	switch {
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message":    message,
			"error":      err.Error(),
			"variant_id": stockErr.VariantID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.As(err, &couponErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
			"code":    couponErr.Code,
			"reason":  couponErr.Reason,
		})
	case errors.As(err, &transitionErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
			"from":    transitionErr.From,
			"to":      transitionErr.To,
		})
	case errors.Is(err, services.ErrInvariantViolation):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": message,
			"error":   "internal consistency error",
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, repositories.ErrDuplicate), errors.Is(err, services.ErrUserExists),
		errors.Is(err, repositories.ErrPreconditionFailed), errors.Is(err, services.ErrOrderImmutable):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidQuantity):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrProductUnavailable):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// statusBadge is how a status is shown in storefront and admin views.
type statusBadge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var statusBadges = map[models.OrderStatus]statusBadge{
	models.StatusPending:        {Label: "Pending", Color: "yellow"},
	models.StatusConfirmed:      {Label: "Confirmed", Color: "blue"},
	models.StatusProcessing:     {Label: "Processing", Color: "indigo"},
	models.StatusShipped:        {Label: "Shipped", Color: "purple"},
	models.StatusOutForDelivery: {Label: "Out for delivery", Color: "orange"},
	models.StatusDelivered:      {Label: "Delivered", Color: "green"},
	models.StatusCancelled:      {Label: "Cancelled", Color: "red"},
	models.StatusRefunded:       {Label: "Refunded", Color: "gray"},
	models.StatusReturned:       {Label: "Returned", Color: "gray"},
}
