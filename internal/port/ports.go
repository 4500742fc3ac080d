// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	SetIfAbsent(key string, value T) bool
	Delete(key string)
}

// ShiftStore owns shift state. It is the only place an active shift is loaded or saved.
type ShiftStore interface {
	// CreateShift stores a new active shift. ErrConflict if the till already has one.
	CreateShift(ctx context.Context, shift *domain.Shift) error
	// GetActiveShift returns the till's active shift or ErrNotFound.
	GetActiveShift(ctx context.Context, tillID string) (*domain.Shift, error)
	// UpdateActiveShift runs fn on the till's active shift and saves the result atomically.
	// If fn closes the shift it is moved into history. ErrNotFound if there is no active shift.
	UpdateActiveShift(ctx context.Context, tillID string, fn func(*domain.Shift) error) (*domain.Shift, error)
	// ListShiftHistory returns closed shifts of the till, most recent first.
	ListShiftHistory(ctx context.Context, tillID string, limit int) ([]domain.Shift, error)
}

// AccountStore owns account balances and the account transaction log.
type AccountStore interface {
	// SeedAccounts inserts accounts only when the collection is empty and reports whether it did.
	SeedAccounts(ctx context.Context, accounts []domain.Account) (bool, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	// ListAccountTransactions returns matching transactions in the order they were appended.
	ListAccountTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.AccountTransaction, error)
	// ApplyAccountTransactions appends txs and applies their deltas to balances in one
	// atomic step. If any referenced account is missing nothing is written (ErrNotFound).
	// It returns the resulting state of each touched account, in first-touch order.
	ApplyAccountTransactions(ctx context.Context, txs []domain.AccountTransaction) ([]domain.Account, error)
	// ReconcileAccount locks the account, passes its current state to build and applies
	// the returned transaction before releasing it. A nil transaction writes nothing.
	// It returns the account as left by the call.
	ReconcileAccount(ctx context.Context, accountID string, build func(recorded domain.Account) (*domain.AccountTransaction, error)) (*domain.Account, error)
	// ApplyTransfer records the transfer together with its legs atomically.
	ApplyTransfer(ctx context.Context, transfer domain.AccountTransfer, legs []domain.AccountTransaction) error
	ListTransfers(ctx context.Context) ([]domain.AccountTransfer, error)
}

// InventoryStore owns products and stock levels.
type InventoryStore interface {
	// CreateProduct stores a product. ErrConflict if the SKU is taken.
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product) error
	// AdjustStock adds delta to stock. ErrInsufficientStock if the result would be negative.
	AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error)
}

// SaleStore commits sales.
type SaleStore interface {
	// CommitSale writes the sale, its shift totals, account legs and stock changes atomically.
	// ErrDuplicate if the reference exists; ErrConflict if the till's active shift is not
	// commit.Sale.ShiftID. When commit.Sale.OrderID is set the order is marked fulfilled in
	// the same step (ErrNotFound if missing, ErrConflict if not pending). Returns the updated shift.
	CommitSale(ctx context.Context, commit domain.SaleCommit) (*domain.Shift, error)
	// ListSales returns matching sales, most recent first.
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
}

// OrderStore owns quotations and sales orders.
type OrderStore interface {
	CreateQuotation(ctx context.Context, q *domain.Quotation) error
	GetQuotation(ctx context.Context, quotationID string) (*domain.Quotation, error)
	// ListQuotations returns matching quotations, most recent first.
	ListQuotations(ctx context.Context, filter domain.OrderFilter) ([]domain.Quotation, error)
	// UpdateQuotation runs fn on the stored quotation and saves the result atomically.
	UpdateQuotation(ctx context.Context, quotationID string, fn func(*domain.Quotation) error) (*domain.Quotation, error)
	// ConvertQuotation runs fn on the stored quotation and saves it together with the
	// sales order fn returns, in one atomic step.
	ConvertQuotation(ctx context.Context, quotationID string, fn func(*domain.Quotation) (*domain.SalesOrder, error)) (*domain.SalesOrder, error)

	CreateSalesOrder(ctx context.Context, o *domain.SalesOrder) error
	GetSalesOrder(ctx context.Context, orderID string) (*domain.SalesOrder, error)
	// ListSalesOrders returns matching orders, most recent first.
	ListSalesOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.SalesOrder, error)
	// UpdateSalesOrder runs fn on the stored order and saves the result atomically.
	UpdateSalesOrder(ctx context.Context, orderID string, fn func(*domain.SalesOrder) error) (*domain.SalesOrder, error)
}

// UserStore owns staff accounts.
type UserStore interface {
	// CreateUser stores a user. ErrConflict if the email is taken.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// Store is the full persistence port, implemented by memstore and sqlstore.
type Store interface {
	ShiftStore
	AccountStore
	InventoryStore
	SaleStore
	OrderStore
	UserStore

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// MpesaGateway talks to the mobile-money provider.
type MpesaGateway interface {
	InitiateSTKPush(ctx context.Context, req *domain.STKPushRequest) (*domain.STKPushResponse, error)
	QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResponse, error)
}
