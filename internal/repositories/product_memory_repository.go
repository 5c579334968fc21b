package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetAll returns the products matching filter, ordered by name.
func (r *MemoryProductRepository) GetAll(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.FeaturedOnly && !p.IsFeatured {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		productList = append(productList, p)
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].Name < productList[j].Name })
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s %w", id, ErrNotFound)
	}
	return &product, nil
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, ok := r.products[product.ID]; ok {
		return fmt.Errorf("product with ID %s %w", product.ID, ErrDuplicate)
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	stored := *product
	stored.Variants = nil
	r.products[product.ID] = stored
	return nil
}

// Update modifies an existing product.
func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s %w", product.ID, ErrNotFound)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	stored := *product
	stored.Variants = nil
	r.products[product.ID] = stored
	return nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

// MemoryVariantRepository is an in-memory implementation of VariantRepository.
type MemoryVariantRepository struct {
	variants map[string]models.Variant
	mu       sync.RWMutex
}

// NewMemoryVariantRepository creates a new instance of MemoryVariantRepository.
func NewMemoryVariantRepository() *MemoryVariantRepository {
	return &MemoryVariantRepository{
		variants: make(map[string]models.Variant),
	}
}

func (r *MemoryVariantRepository) GetByID(_ context.Context, id string) (*models.Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	variant, ok := r.variants[id]
	if !ok {
		return nil, fmt.Errorf("variant with ID %s %w", id, ErrNotFound)
	}
	return &variant, nil
}

func (r *MemoryVariantRepository) ListByProductIDs(_ context.Context, productIDs []string) ([]models.Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	variants := make([]models.Variant, 0)
	for _, v := range r.variants {
		if _, ok := wanted[v.ProductID]; ok {
			variants = append(variants, v)
		}
	}
	sort.Slice(variants, func(i, j int) bool {
		if variants[i].ProductID != variants[j].ProductID {
			return variants[i].ProductID < variants[j].ProductID
		}
		if !variants[i].CreatedAt.Equal(variants[j].CreatedAt) {
			return variants[i].CreatedAt.Before(variants[j].CreatedAt)
		}
		return variants[i].ID < variants[j].ID
	})
	return variants, nil
}

func (r *MemoryVariantRepository) Create(_ context.Context, variant *models.Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if variant.ID == "" {
		variant.ID = uuid.New().String()
	}
	if _, ok := r.variants[variant.ID]; ok {
		return fmt.Errorf("variant with ID %s %w", variant.ID, ErrDuplicate)
	}
	now := time.Now()
	variant.CreatedAt = now
	variant.UpdatedAt = now
	r.variants[variant.ID] = *variant
	return nil
}

func (r *MemoryVariantRepository) DeleteByProductID(_ context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, v := range r.variants {
		if v.ProductID == productID {
			delete(r.variants, id)
		}
	}
	return nil
}

// AdjustStock checks and writes under the same lock, mirroring a conditional UPDATE.
func (r *MemoryVariantRepository) AdjustStock(_ context.Context, id string, delta int) (*models.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	variant, ok := r.variants[id]
	if !ok {
		return nil, fmt.Errorf("variant with ID %s %w", id, ErrNotFound)
	}
	if variant.StockQuantity+delta < 0 {
		return nil, fmt.Errorf("stock of variant %s cannot change by %d: %w", id, delta, ErrPreconditionFailed)
	}
	variant.StockQuantity += delta
	variant.UpdatedAt = time.Now()
	r.variants[id] = variant
	return &variant, nil
}
