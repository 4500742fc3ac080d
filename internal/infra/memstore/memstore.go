// Package memstore is an in-memory implementation of port.Store.
// A single mutex serializes writers, so every multi-record operation is atomic.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

// Store keeps all ledger state in maps guarded by mu.
type Store struct {
	mu sync.RWMutex

	shiftsByID        map[string]*domain.Shift
	activeShiftByTill map[string]string
	historyByTill     map[string][]string // closed shift ids, most recent first

	accounts     map[string]domain.Account
	accountOrder []string
	transactions []domain.AccountTransaction
	transfers    []domain.AccountTransfer

	products     map[string]domain.Product
	productBySKU map[string]string

	sales     []domain.Sale
	saleByRef map[string]int

	quotations     map[string]domain.Quotation
	quotationOrder []string
	orders         map[string]domain.SalesOrder
	orderOrder     []string

	usersByID   map[string]domain.User
	userByEmail map[string]string

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		shiftsByID:        make(map[string]*domain.Shift),
		activeShiftByTill: make(map[string]string),
		historyByTill:     make(map[string][]string),
		accounts:          make(map[string]domain.Account),
		products:          make(map[string]domain.Product),
		productBySKU:      make(map[string]string),
		saleByRef:         make(map[string]int),
		quotations:        make(map[string]domain.Quotation),
		orders:            make(map[string]domain.SalesOrder),
		usersByID:         make(map[string]domain.User),
		userByEmail:       make(map[string]string),
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ============================================================
// Shifts
// ============================================================

func (s *Store) CreateShift(_ context.Context, shift *domain.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeShiftByTill[shift.TillID]; ok {
		return &domain.ErrConflict{Message: "till " + shift.TillID + " already has an active shift"}
	}
	s.shiftsByID[shift.ID] = shift.Clone()
	s.activeShiftByTill[shift.TillID] = shift.ID
	return nil
}

func (s *Store) GetActiveShift(_ context.Context, tillID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeShiftByTill[tillID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "active shift", ID: tillID}
	}
	return s.shiftsByID[id].Clone(), nil
}

func (s *Store) UpdateActiveShift(_ context.Context, tillID string, fn func(*domain.Shift) error) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.activeShiftByTill[tillID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "active shift", ID: tillID}
	}
	working := s.shiftsByID[id].Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.saveShiftLocked(working)
	return working.Clone(), nil
}

// saveShiftLocked stores shift and moves it into history once it is no longer active.
func (s *Store) saveShiftLocked(shift *domain.Shift) {
	s.shiftsByID[shift.ID] = shift.Clone()
	if !shift.IsActive() {
		delete(s.activeShiftByTill, shift.TillID)
		s.historyByTill[shift.TillID] = append([]string{shift.ID}, s.historyByTill[shift.TillID]...)
	}
}

func (s *Store) ListShiftHistory(_ context.Context, tillID string, limit int) ([]domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.historyByTill[tillID]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]domain.Shift, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.shiftsByID[id].Clone())
	}
	return out, nil
}

// ============================================================
// Accounts
// ============================================================

func (s *Store) SeedAccounts(_ context.Context, accounts []domain.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.accounts) > 0 {
		return false, nil
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
		s.accountOrder = append(s.accountOrder, a.ID)
	}
	return true, nil
}

func (s *Store) ListAccounts(context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accountOrder))
	for _, id := range s.accountOrder {
		out = append(out, s.accounts[id])
	}
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return &a, nil
}

func (s *Store) ListAccountTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.AccountTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AccountTransaction, 0)
	for _, tx := range s.transactions {
		if filter.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) ApplyAccountTransactions(_ context.Context, txs []domain.AccountTransaction) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccountsLocked(txs); err != nil {
		return nil, err
	}
	return s.applyTxsLocked(txs), nil
}

func (s *Store) checkAccountsLocked(txs []domain.AccountTransaction) error {
	for _, tx := range txs {
		if _, ok := s.accounts[tx.AccountID]; !ok {
			return &domain.ErrNotFound{Resource: "account", ID: tx.AccountID}
		}
	}
	return nil
}

// applyTxsLocked assumes every account exists.
func (s *Store) applyTxsLocked(txs []domain.AccountTransaction) []domain.Account {
	var order []string
	touched := make(map[string]bool)
	now := s.now()
	for _, tx := range txs {
		a := s.accounts[tx.AccountID]
		a.Balance = a.Balance.Add(tx.Delta())
		a.LastUpdated = now
		s.accounts[tx.AccountID] = a
		s.transactions = append(s.transactions, tx)
		if !touched[tx.AccountID] {
			touched[tx.AccountID] = true
			order = append(order, tx.AccountID)
		}
	}
	out := make([]domain.Account, 0, len(order))
	for _, id := range order {
		out = append(out, s.accounts[id])
	}
	return out
}

func (s *Store) ReconcileAccount(_ context.Context, accountID string, build func(domain.Account) (*domain.AccountTransaction, error)) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	tx, err := build(a)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return &a, nil
	}
	if tx.AccountID != accountID {
		return nil, &domain.ErrConflict{Message: "adjustment targets account " + tx.AccountID}
	}
	out := s.applyTxsLocked([]domain.AccountTransaction{*tx})
	return &out[0], nil
}

func (s *Store) ApplyTransfer(_ context.Context, transfer domain.AccountTransfer, legs []domain.AccountTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccountsLocked(legs); err != nil {
		return err
	}
	s.applyTxsLocked(legs)
	s.transfers = append(s.transfers, transfer)
	return nil
}

func (s *Store) ListTransfers(context.Context) ([]domain.AccountTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AccountTransfer{}, s.transfers...), nil
}

// ============================================================
// Inventory
// ============================================================

func (s *Store) CreateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.productBySKU[p.SKU]; ok {
		return &domain.ErrConflict{Message: "sku " + p.SKU + " already exists"}
	}
	s.products[p.ID] = *p
	s.productBySKU[p.SKU] = p.ID
	return nil
}

func (s *Store) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: productID}
	}
	return &p, nil
}

func (s *Store) ListProducts(context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return &domain.ErrNotFound{Resource: "product", ID: p.ID}
	}
	s.products[p.ID] = *p
	return nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStockLocked([]domain.StockChange{{ProductID: productID, Delta: delta}}); err != nil {
		return nil, err
	}
	s.applyStockLocked([]domain.StockChange{{ProductID: productID, Delta: delta}})
	p := s.products[productID]
	return &p, nil
}

func (s *Store) checkStockLocked(changes []domain.StockChange) error {
	pending := make(map[string]int)
	for _, c := range changes {
		p, ok := s.products[c.ProductID]
		if !ok {
			return &domain.ErrNotFound{Resource: "product", ID: c.ProductID}
		}
		if _, seen := pending[c.ProductID]; !seen {
			pending[c.ProductID] = p.Stock
		}
		available := pending[c.ProductID]
		if available+c.Delta < 0 {
			return &domain.ErrInsufficientStock{ProductID: c.ProductID, Available: available, Requested: -c.Delta}
		}
		pending[c.ProductID] = available + c.Delta
	}
	return nil
}

func (s *Store) applyStockLocked(changes []domain.StockChange) {
	now := s.now()
	for _, c := range changes {
		p := s.products[c.ProductID]
		p.Stock += c.Delta
		p.UpdatedAt = now
		s.products[c.ProductID] = p
	}
}

// ============================================================
// Sales
// ============================================================

func (s *Store) CommitSale(_ context.Context, commit domain.SaleCommit) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale := commit.Sale
	if _, ok := s.saleByRef[sale.Reference]; ok {
		return nil, &domain.ErrDuplicate{Key: sale.Reference}
	}
	activeID, ok := s.activeShiftByTill[sale.TillID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "active shift", ID: sale.TillID}
	}
	if activeID != sale.ShiftID {
		return nil, &domain.ErrConflict{Message: "shift " + sale.ShiftID + " is no longer active"}
	}
	if err := s.checkAccountsLocked(commit.Transactions); err != nil {
		return nil, err
	}
	if err := s.checkStockLocked(commit.StockChanges); err != nil {
		return nil, err
	}
	var order domain.SalesOrder
	if sale.OrderID != "" {
		o, ok := s.orders[sale.OrderID]
		if !ok {
			return nil, &domain.ErrNotFound{Resource: "sales order", ID: sale.OrderID}
		}
		order = cloneOrder(o)
		if err := order.Fulfil(sale); err != nil {
			return nil, err
		}
	}

	shift := s.shiftsByID[activeID].Clone()
	for _, p := range sale.Payments {
		shift.ApplySale(p.Method, p.Amount)
	}
	s.saveShiftLocked(shift)
	s.applyTxsLocked(commit.Transactions)
	s.applyStockLocked(commit.StockChanges)
	s.saleByRef[sale.Reference] = len(s.sales)
	s.sales = append(s.sales, sale)
	if sale.OrderID != "" {
		s.orders[sale.OrderID] = order
	}

	return shift.Clone(), nil
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0)
	for i := len(s.sales) - 1; i >= 0; i-- {
		if filter.Matches(s.sales[i]) {
			out = append(out, s.sales[i])
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
		}
	}
	return out, nil
}

// ============================================================
// Quotations & sales orders
// ============================================================

func cloneQuotation(q domain.Quotation) domain.Quotation {
	q.Items = append([]domain.SaleItem(nil), q.Items...)
	if q.ValidUntil != nil {
		v := *q.ValidUntil
		q.ValidUntil = &v
	}
	return q
}

func cloneOrder(o domain.SalesOrder) domain.SalesOrder {
	o.Items = append([]domain.SaleItem(nil), o.Items...)
	if o.FulfilledAt != nil {
		v := *o.FulfilledAt
		o.FulfilledAt = &v
	}
	return o
}

func (s *Store) CreateQuotation(_ context.Context, q *domain.Quotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotations[q.ID]; ok {
		return &domain.ErrConflict{Message: "quotation " + q.ID + " already exists"}
	}
	s.quotations[q.ID] = cloneQuotation(*q)
	s.quotationOrder = append(s.quotationOrder, q.ID)
	return nil
}

func (s *Store) GetQuotation(_ context.Context, quotationID string) (*domain.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotations[quotationID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "quotation", ID: quotationID}
	}
	q = cloneQuotation(q)
	return &q, nil
}

func (s *Store) ListQuotations(_ context.Context, filter domain.OrderFilter) ([]domain.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Quotation, 0)
	for i := len(s.quotationOrder) - 1; i >= 0; i-- {
		q := s.quotations[s.quotationOrder[i]]
		if filter.Status != "" && string(q.Status) != filter.Status {
			continue
		}
		out = append(out, cloneQuotation(q))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) UpdateQuotation(_ context.Context, quotationID string, fn func(*domain.Quotation) error) (*domain.Quotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.quotations[quotationID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "quotation", ID: quotationID}
	}
	q := cloneQuotation(stored)
	if err := fn(&q); err != nil {
		return nil, err
	}
	s.quotations[quotationID] = cloneQuotation(q)
	return &q, nil
}

func (s *Store) ConvertQuotation(_ context.Context, quotationID string, fn func(*domain.Quotation) (*domain.SalesOrder, error)) (*domain.SalesOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.quotations[quotationID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "quotation", ID: quotationID}
	}
	q := cloneQuotation(stored)
	o, err := fn(&q)
	if err != nil {
		return nil, err
	}
	if _, ok := s.orders[o.ID]; ok {
		return nil, &domain.ErrConflict{Message: "sales order " + o.ID + " already exists"}
	}
	s.quotations[quotationID] = cloneQuotation(q)
	s.orders[o.ID] = cloneOrder(*o)
	s.orderOrder = append(s.orderOrder, o.ID)
	return o, nil
}

func (s *Store) CreateSalesOrder(_ context.Context, o *domain.SalesOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; ok {
		return &domain.ErrConflict{Message: "sales order " + o.ID + " already exists"}
	}
	s.orders[o.ID] = cloneOrder(*o)
	s.orderOrder = append(s.orderOrder, o.ID)
	return nil
}

func (s *Store) GetSalesOrder(_ context.Context, orderID string) (*domain.SalesOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "sales order", ID: orderID}
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Store) ListSalesOrders(_ context.Context, filter domain.OrderFilter) ([]domain.SalesOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SalesOrder, 0)
	for i := len(s.orderOrder) - 1; i >= 0; i-- {
		o := s.orders[s.orderOrder[i]]
		if filter.Status != "" && string(o.Status) != filter.Status {
			continue
		}
		out = append(out, cloneOrder(o))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) UpdateSalesOrder(_ context.Context, orderID string, fn func(*domain.SalesOrder) error) (*domain.SalesOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[orderID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "sales order", ID: orderID}
	}
	o := cloneOrder(stored)
	if err := fn(&o); err != nil {
		return nil, err
	}
	s.orders[orderID] = cloneOrder(o)
	return &o, nil
}

// ============================================================
// Users
// ============================================================

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := s.userByEmail[email]; ok {
		return &domain.ErrConflict{Message: "email " + u.Email + " already registered"}
	}
	s.usersByID[u.ID] = *u
	s.userByEmail[email] = u.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userByEmail[strings.ToLower(email)]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: email}
	}
	u := s.usersByID[id]
	return &u, nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByID[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &u, nil
}
