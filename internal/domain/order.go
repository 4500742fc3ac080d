package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Quotations
// ============================================================

// QuotationStatus is the lifecycle state of a quotation.
type QuotationStatus string

const (
	QuotationOpen      QuotationStatus = "open"
	QuotationAccepted  QuotationStatus = "accepted"
	QuotationDeclined  QuotationStatus = "declined"
	QuotationConverted QuotationStatus = "converted"
)

// Valid reports whether s is a known status.
func (s QuotationStatus) Valid() bool {
	switch s {
	case QuotationOpen, QuotationAccepted, QuotationDeclined, QuotationConverted:
		return true
	}
	return false
}

// CanMoveTo reports whether a manual status change from s to next is allowed.
// Conversion to a sales order is not a manual change.
func (s QuotationStatus) CanMoveTo(next QuotationStatus) bool {
	switch s {
	case QuotationOpen:
		return next == QuotationAccepted || next == QuotationDeclined
	case QuotationAccepted:
		return next == QuotationDeclined
	}
	return false
}

// Quotation is a priced offer to a customer. It moves no money and no stock.
type Quotation struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	Items         []SaleItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        QuotationStatus `json:"status"`
	ValidUntil    *time.Time      `json:"validUntil,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	SalesOrderID  string          `json:"salesOrderId,omitempty"`
	UserID        string          `json:"userId"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Expired reports whether the quotation's validity ended before now.
func (q *Quotation) Expired(now time.Time) bool {
	return q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// CreateQuotationRequest is the body of POST /v1/quotations.
type CreateQuotationRequest struct {
	CustomerName  string     `json:"customerName" validate:"required,max=100"`
	CustomerPhone string     `json:"customerPhone" validate:"omitempty,max=20"`
	Items         []SaleItem `json:"items" validate:"required,min=1,dive"`
	ValidUntil    *time.Time `json:"validUntil,omitempty"`
	Notes         string     `json:"notes" validate:"max=255"`
}

// QuotationStatusRequest is the body of POST /v1/quotations/{quotationId}/status.
type QuotationStatusRequest struct {
	Status QuotationStatus `json:"status" validate:"required,oneof=accepted declined"`
}

// ============================================================
// Sales orders
// ============================================================

// SalesOrderStatus is the lifecycle state of a sales order.
type SalesOrderStatus string

const (
	OrderPending   SalesOrderStatus = "pending"
	OrderFulfilled SalesOrderStatus = "fulfilled"
	OrderCancelled SalesOrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s SalesOrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderFulfilled, OrderCancelled:
		return true
	}
	return false
}

// SalesOrder is a customer order awaiting payment and hand-over. Fulfilling it
// completes a sale on the till; until then it moves no money and no stock.
type SalesOrder struct {
	ID            string           `json:"id"`
	Number        string           `json:"number"`
	QuotationID   string           `json:"quotationId,omitempty"`
	CustomerName  string           `json:"customerName"`
	CustomerPhone string           `json:"customerPhone,omitempty"`
	Items         []SaleItem       `json:"items"`
	Total         decimal.Decimal  `json:"total"`
	Status        SalesOrderStatus `json:"status"`
	Notes         string           `json:"notes,omitempty"`
	SaleID        string           `json:"saleId,omitempty"`
	SaleReference string           `json:"saleReference,omitempty"`
	UserID        string           `json:"userId"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	FulfilledAt   *time.Time       `json:"fulfilledAt,omitempty"`
}

// Fulfil links the order to sale. ErrConflict unless the order is pending.
func (o *SalesOrder) Fulfil(sale Sale) error {
	if o.Status != OrderPending {
		return &ErrConflict{Message: "sales order " + o.Number + " is " + string(o.Status)}
	}
	at := sale.Timestamp
	o.Status = OrderFulfilled
	o.SaleID = sale.ID
	o.SaleReference = sale.Reference
	o.FulfilledAt = &at
	o.UpdatedAt = at
	return nil
}

// Cancel drops a pending order. ErrConflict otherwise.
func (o *SalesOrder) Cancel(now time.Time) error {
	if o.Status != OrderPending {
		return &ErrConflict{Message: "sales order " + o.Number + " is " + string(o.Status)}
	}
	o.Status = OrderCancelled
	o.UpdatedAt = now
	return nil
}

// CreateSalesOrderRequest is the body of POST /v1/sales-orders.
type CreateSalesOrderRequest struct {
	CustomerName  string     `json:"customerName" validate:"required,max=100"`
	CustomerPhone string     `json:"customerPhone" validate:"omitempty,max=20"`
	Items         []SaleItem `json:"items" validate:"required,min=1,dive"`
	Notes         string     `json:"notes" validate:"max=255"`
}

// FulfilOrderRequest is the body of POST /v1/sales-orders/{orderId}/fulfil.
// Payments must cover the order total exactly.
type FulfilOrderRequest struct {
	Reference string    `json:"reference" validate:"omitempty,max=64"`
	Payments  []Payment `json:"payments" validate:"required,min=1,dive"`
}

// OrderFilter narrows a quotation or sales order listing. Status is matched
// against the string form of either status type.
type OrderFilter struct {
	Status string
	Limit  int
}
