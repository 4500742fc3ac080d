package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stock item sold at the till.
type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CreateProductRequest is the body of POST /v1/inventory.
type CreateProductRequest struct {
	SKU   string          `json:"sku" validate:"required,max=64"`
	Name  string          `json:"name" validate:"required,max=200"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest is the body of PUT /v1/inventory/{productId}.
// Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name  *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Price *decimal.Decimal `json:"price,omitempty"`
}

// StockAdjustRequest is the body of POST /v1/inventory/{productId}/adjust.
type StockAdjustRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=200"`
}

// StockChange decrements (negative Delta) or increments a product's stock as part of a commit.
type StockChange struct {
	ProductID string `json:"productId"`
	Delta     int    `json:"delta"`
}
