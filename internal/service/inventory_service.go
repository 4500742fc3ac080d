package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

var inventoryTracer = otel.Tracer("service/inventory")

// InventoryService manages products and stock levels.
type InventoryService struct {
	store             port.InventoryStore
	lowStockThreshold int
	logger            *zap.Logger
}

func NewInventoryService(store port.InventoryStore, lowStockThreshold int, logger *zap.Logger) *InventoryService {
	return &InventoryService{store: store, lowStockThreshold: lowStockThreshold, logger: logger}
}

func (s *InventoryService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.ListProducts")
	defer span.End()

	return s.store.ListProducts(ctx)
}

func (s *InventoryService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.GetProduct")
	defer span.End()

	return s.store.GetProduct(ctx, productID)
}

// CreateProduct adds a product. SKUs are unique (ErrConflict).
func (s *InventoryService) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.CreateProduct")
	defer span.End()

	sku := strings.TrimSpace(req.SKU)
	name := strings.TrimSpace(req.Name)
	if sku == "" {
		return nil, &domain.ErrValidation{Field: "sku", Message: "sku is required"}
	}
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if err := requireNonNegative("price", req.Price); err != nil {
		return nil, err
	}
	if err := requireCents("price", req.Price); err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, &domain.ErrValidation{Field: "stock", Message: "must not be negative"}
	}

	p := &domain.Product{
		ID:        uuid.NewString(),
		SKU:       sku,
		Name:      name,
		Price:     req.Price,
		Stock:     req.Stock,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		zap.String("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.Int("stock", p.Stock),
	)
	return p, nil
}

// UpdateProduct changes name and/or price. Stock only moves through AdjustStock and sales.
func (s *InventoryService) UpdateProduct(ctx context.Context, productID string, req domain.UpdateProductRequest) (*domain.Product, error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.UpdateProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &domain.ErrValidation{Field: "name", Message: "name must not be empty"}
		}
		p.Name = name
	}
	if req.Price != nil {
		if err := requireNonNegative("price", *req.Price); err != nil {
			return nil, err
		}
		if err := requireCents("price", *req.Price); err != nil {
			return nil, err
		}
		p.Price = *req.Price
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AdjustStock moves stock by delta. Stock never drops below zero (ErrInsufficientStock).
func (s *InventoryService) AdjustStock(ctx context.Context, productID string, delta int, reason string) (*domain.Product, error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.AdjustStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.Int("stock.delta", delta),
	)

	if delta == 0 {
		return nil, &domain.ErrValidation{Field: "delta", Message: "must not be zero"}
	}
	if strings.TrimSpace(reason) == "" {
		return nil, &domain.ErrValidation{Field: "reason", Message: "reason is required"}
	}

	p, err := s.store.AdjustStock(ctx, productID, delta)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", productID),
		zap.Int("delta", delta),
		zap.Int("stock", p.Stock),
		zap.String("reason", reason),
	)
	return p, nil
}

// LowStock returns products at or below the configured threshold, lowest first.
func (s *InventoryService) LowStock(ctx context.Context) ([]domain.Product, error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.LowStock")
	defer span.End()

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Product, 0)
	for _, p := range products {
		if p.Stock <= s.lowStockThreshold {
			low = append(low, p)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })
	return low, nil
}
