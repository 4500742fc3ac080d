package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Sales
// ============================================================

// SaleItem is one line of a sale. ProductID is empty for ad-hoc items
// that do not touch inventory.
type SaleItem struct {
	ProductID string          `json:"productId,omitempty"`
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// LineTotal is quantity × unit price.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Sale is a completed POS sale.
type Sale struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Items     []SaleItem      `json:"items"`
	Payments  []Payment       `json:"payments"`
	Total     decimal.Decimal `json:"total"`
	ShiftID   string          `json:"shiftId"`
	TillID    string          `json:"tillId"`
	UserID    string          `json:"userId"`
	OrderID   string          `json:"orderId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ItemsTotal sums the line totals of items.
func ItemsTotal(items []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CompleteSaleRequest is the body of POST /v1/sales.
// An empty Reference is replaced by a generated one. OrderID is set only when a
// sales order is fulfilled and never read from the request body.
type CompleteSaleRequest struct {
	Reference string     `json:"reference" validate:"omitempty,max=64"`
	Items     []SaleItem `json:"items" validate:"required,min=1,dive"`
	Payments  []Payment  `json:"payments" validate:"required,min=1,dive"`
	OrderID   string     `json:"-"`
}

// SaleCommit is everything one sale writes, applied by the store in a single transaction.
// The store applies Sale.Payments to the till's active shift, which must be Sale.ShiftID.
// A non-empty Sale.OrderID names a pending sales order that is marked fulfilled in the same commit.
type SaleCommit struct {
	Sale         Sale
	Transactions []AccountTransaction
	StockChanges []StockChange
}

// SaleFilter narrows a sale listing. Zero values match everything.
type SaleFilter struct {
	ShiftID string
	TillID  string
	From    time.Time
	To      time.Time
	Limit   int
}

// Matches reports whether s passes the filter (Limit is applied by the caller).
func (f SaleFilter) Matches(s Sale) bool {
	if f.ShiftID != "" && s.ShiftID != f.ShiftID {
		return false
	}
	if f.TillID != "" && s.TillID != f.TillID {
		return false
	}
	if !f.From.IsZero() && s.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !s.Timestamp.Before(f.To) {
		return false
	}
	return true
}

// SaleReceipt is returned after a sale commits.
type SaleReceipt struct {
	Sale         Sale                 `json:"sale"`
	Shift        *Shift               `json:"shift"`
	Transactions []AccountTransaction `json:"transactions"`
}
