package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductFilter narrows product listings. Zero values match everything.
type ProductFilter struct {
	Category     string
	Search       string
	ActiveOnly   bool
	FeaturedOnly bool
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}

// VariantRepository defines the interface for variant data access.
type VariantRepository interface {
	GetByID(ctx context.Context, id string) (*models.Variant, error)
	// ListByProductIDs fetches the variants of all given products in one round trip.
	ListByProductIDs(ctx context.Context, productIDs []string) ([]models.Variant, error)
	Create(ctx context.Context, variant *models.Variant) error
	DeleteByProductID(ctx context.Context, productID string) error
	// AdjustStock adds delta to the stock only if the result stays >= 0.
	// It returns ErrPreconditionFailed otherwise and leaves the stock untouched.
	AdjustStock(ctx context.Context, id string, delta int) (*models.Variant, error)
}
