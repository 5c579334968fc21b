package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"golang.org/x/sync/singleflight"
)

// AggregateStock sums the stock of the product's variants and classifies it.
// A product without variants has zero stock.
func AggregateStock(product *models.Product, variants []models.Variant, defaultThreshold int) models.StockLevel {
	total := 0
	for _, v := range variants {
		if v.ProductID == product.ID {
			total += v.StockQuantity
		}
	}

	level := models.StockLevel{TotalStock: total}
	switch {
	case total <= 0:
		level.Status = models.StockOutOfStock
	case total <= product.Threshold(defaultThreshold):
		level.Status = models.StockLowStock
	default:
		level.Status = models.StockInStock
	}
	return level
}

// InventoryFilter narrows the inventory view. Zero values match everything.
type InventoryFilter struct {
	Status     models.StockStatus
	Category   string
	Search     string
	ActiveOnly bool
}

func (f InventoryFilter) key() string {
	return fmt.Sprintf("%s|%s|%s|%t", f.Status, f.Category, f.Search, f.ActiveOnly)
}

// InventoryService derives product stock from variants and owns every stock write.
type InventoryService struct {
	products          repositories.ProductRepository
	variants          repositories.VariantRepository
	lowStockThreshold int
	group             singleflight.Group
}

// NewInventoryService creates a new InventoryService. lowStockThreshold applies to
// products that do not set their own.
func NewInventoryService(products repositories.ProductRepository, variants repositories.VariantRepository, lowStockThreshold int) *InventoryService {
	return &InventoryService{
		products:          products,
		variants:          variants,
		lowStockThreshold: lowStockThreshold,
	}
}

// ListInventory returns every matching product with its aggregated stock.
// Concurrent identical requests share a single fetch, which outlives the
// cancellation of whichever caller started it.
func (s *InventoryService) ListInventory(ctx context.Context, filter InventoryFilter) ([]models.InventoryItem, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(filter.key(), func() (interface{}, error) {
		return s.listInventory(shared, filter)
	})
	if err != nil {
		return nil, err
	}
	items := v.([]models.InventoryItem)
	return append([]models.InventoryItem(nil), items...), nil
}

func (s *InventoryService) listInventory(ctx context.Context, filter InventoryFilter) ([]models.InventoryItem, error) {
	products, err := s.products.GetAll(ctx, repositories.ProductFilter{
		Category:   filter.Category,
		Search:     filter.Search,
		ActiveOnly: filter.ActiveOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products for inventory: %w", err)
	}

	levels, err := s.StockLevels(ctx, products)
	if err != nil {
		return nil, err
	}

	items := make([]models.InventoryItem, 0, len(products))
	for _, p := range products {
		level := levels[p.ID]
		if filter.Status != "" && level.Status != filter.Status {
			continue
		}
		items = append(items, models.InventoryItem{Product: p, TotalStock: level.TotalStock, Status: level.Status})
	}
	return items, nil
}

// StockLevels aggregates the stock of all products from one variant fetch.
func (s *InventoryService) StockLevels(ctx context.Context, products []models.Product) (map[string]models.StockLevel, error) {
	_, levels, err := s.variantsAndLevels(ctx, products)
	return levels, err
}

func (s *InventoryService) variantsAndLevels(ctx context.Context, products []models.Product) (map[string][]models.Variant, map[string]models.StockLevel, error) {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	variants, err := s.variants.ListByProductIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch variants: %w", err)
	}

	byProduct := make(map[string][]models.Variant, len(products))
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}
	levels := make(map[string]models.StockLevel, len(products))
	for i := range products {
		levels[products[i].ID] = AggregateStock(&products[i], byProduct[products[i].ID], s.lowStockThreshold)
	}
	return byProduct, levels, nil
}

// Restock adds delta (which may be negative for corrections) to a variant's stock.
// Changes that would take the stock below zero fail with ErrInvalidQuantity.
func (s *InventoryService) Restock(ctx context.Context, variantID string, delta int) (*models.Variant, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: restock delta must not be zero", ErrInvalidQuantity)
	}
	variant, err := s.variants.AdjustStock(ctx, variantID, delta)
	if err != nil {
		if errors.Is(err, repositories.ErrPreconditionFailed) {
			return nil, fmt.Errorf("%w: changing variant %s by %d would make stock negative", ErrInvalidQuantity, variantID, delta)
		}
		return nil, err
	}
	log.Printf("Variant %s stock changed by %d to %d", variantID, delta, variant.StockQuantity)
	return variant, nil
}

// Decrement takes quantity units of a variant in one conditional update.
func (s *InventoryService) Decrement(ctx context.Context, variantID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: cannot take %d units of variant %s", ErrInvalidQuantity, quantity, variantID)
	}
	_, err := s.variants.AdjustStock(ctx, variantID, -quantity)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrPreconditionFailed) {
		return err
	}
	stockErr := &InsufficientStockError{VariantID: variantID, Requested: quantity}
	if v, getErr := s.variants.GetByID(ctx, variantID); getErr == nil {
		stockErr.Available = v.StockQuantity
	}
	return stockErr
}
