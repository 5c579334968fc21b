package services

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ProductDetail is a product with its variants and derived stock.
type ProductDetail struct {
	models.Product
	Stock models.StockLevel `json:"stock"`
}

// ProductService handles business logic related to the catalog.
type ProductService struct {
	products  repositories.ProductRepository
	variants  repositories.VariantRepository
	inventory *InventoryService
}

// NewProductService creates a new ProductService.
func NewProductService(products repositories.ProductRepository, variants repositories.VariantRepository, inventory *InventoryService) *ProductService {
	return &ProductService{
		products:  products,
		variants:  variants,
		inventory: inventory,
	}
}

func (s *ProductService) details(ctx context.Context, products []models.Product) ([]ProductDetail, error) {
	byProduct, levels, err := s.inventory.variantsAndLevels(ctx, products)
	if err != nil {
		return nil, err
	}
	details := make([]ProductDetail, len(products))
	for i, p := range products {
		p.Variants = byProduct[p.ID]
		details[i] = ProductDetail{Product: p, Stock: levels[p.ID]}
	}
	return details, nil
}

// ListProducts retrieves matching products with variants and stock.
func (s *ProductService) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]ProductDetail, error) {
	products, err := s.products.GetAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, products)
}

// GetProduct retrieves a single product with variants and stock.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*ProductDetail, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.details(ctx, []models.Product{*product})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if len(p.Name) < 3 || len(p.Name) > 100 {
		return fmt.Errorf("%w: product name must be 3 to 100 characters", ErrInvalidInput)
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("%w: product price must be greater than zero", ErrInvalidInput)
	}
	if p.CompareAtPrice.Valid && p.CompareAtPrice.Decimal.LessThan(p.Price) {
		return fmt.Errorf("%w: compare-at price must not be below the price", ErrInvalidInput)
	}
	if p.LowStockThreshold != nil && *p.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low stock threshold must not be negative", ErrInvalidInput)
	}
	return nil
}

// CreateProduct creates a product and any variants given with it.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	for _, v := range product.Variants {
		if v.StockQuantity < 0 {
			return fmt.Errorf("%w: variant stock must not be negative", ErrInvalidQuantity)
		}
	}
	variants := product.Variants
	if err := s.products.Create(ctx, product); err != nil {
		return err
	}
	for i := range variants {
		variants[i].ProductID = product.ID
		if err := s.variants.Create(ctx, &variants[i]); err != nil {
			return fmt.Errorf("failed to create variant for product %s: %w", product.ID, err)
		}
	}
	product.Variants = variants
	return nil
}

// UpdateProduct updates an existing product. Variants and stock are not touched.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	product.Variants = nil
	return s.products.Update(ctx, product)
}

// DeleteProduct deletes a product and its variants.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.variants.DeleteByProductID(ctx, id); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}

// AddVariant creates a variant under an existing product.
func (s *ProductService) AddVariant(ctx context.Context, productID string, variant *models.Variant) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}
	if variant.StockQuantity < 0 {
		return fmt.Errorf("%w: variant stock must not be negative", ErrInvalidQuantity)
	}
	variant.ProductID = productID
	return s.variants.Create(ctx, variant)
}
