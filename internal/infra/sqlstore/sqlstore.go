// Package sqlstore implements port.Store on gorm, backed by SQLite or PostgreSQL.
// Every multi-row write runs inside one database transaction.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

// Options selects and tunes the database backend.
type Options struct {
	Driver        string // "sqlite" or "postgres"
	DSN           string
	MaxOpenConns  int
	SlowThreshold time.Duration
}

// Store is the gorm-backed ledger store.
type Store struct {
	db       *gorm.DB
	postgres bool
	now      func() time.Time
}

// Open connects, migrates the schema and returns the store.
func Open(opts Options, logger *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger, opts.SlowThreshold),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{
		db:       db,
		postgres: opts.Driver == "postgres",
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// forUpdate locks selected rows on PostgreSQL. SQLite serializes writers already.
func (s *Store) forUpdate(tx *gorm.DB) *gorm.DB {
	if s.postgres {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return fmt.Errorf("loading %s %s: %w", resource, id, err)
}

// ============================================================
// Shifts
// ============================================================

func (s *Store) CreateShift(ctx context.Context, shift *domain.Shift) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&activeShiftRow{}).Where("till_id = ?", shift.TillID).Count(&n).Error; err != nil {
			return fmt.Errorf("checking active shift: %w", err)
		}
		if n > 0 {
			return &domain.ErrConflict{Message: "till " + shift.TillID + " already has an active shift"}
		}

		row := toShiftRow(shift)
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return fmt.Errorf("inserting shift: %w", err)
		}
		if err := tx.Create(&activeShiftRow{TillID: shift.TillID, ShiftID: shift.ID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.ErrConflict{Message: "till " + shift.TillID + " already has an active shift"}
			}
			return fmt.Errorf("marking shift active: %w", err)
		}
		return nil
	})
}

func (s *Store) GetActiveShift(ctx context.Context, tillID string) (*domain.Shift, error) {
	db := s.db.WithContext(ctx)
	var act activeShiftRow
	if err := db.First(&act, "till_id = ?", tillID).Error; err != nil {
		return nil, notFound(err, "active shift", tillID)
	}
	return loadShift(db, act.ShiftID)
}

func loadShift(tx *gorm.DB, id string) (*domain.Shift, error) {
	var row shiftRow
	err := tx.Preload("Expenses", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "shift", id)
	}
	return row.toDomain(), nil
}

// activeShiftTx loads and locks the till's active shift inside tx.
func (s *Store) activeShiftTx(tx *gorm.DB, tillID string) (*domain.Shift, error) {
	var act activeShiftRow
	if err := s.forUpdate(tx).First(&act, "till_id = ?", tillID).Error; err != nil {
		return nil, notFound(err, "active shift", tillID)
	}
	return loadShift(tx, act.ShiftID)
}

func saveShiftTx(tx *gorm.DB, shift *domain.Shift) error {
	row := toShiftRow(shift)
	if err := tx.Omit(clause.Associations).Save(&row).Error; err != nil {
		return fmt.Errorf("saving shift: %w", err)
	}
	if err := tx.Where("shift_id = ?", shift.ID).Delete(&expenseRow{}).Error; err != nil {
		return fmt.Errorf("clearing expenses: %w", err)
	}
	if rows := toExpenseRows(shift); len(rows) > 0 {
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("saving expenses: %w", err)
		}
	}
	if !shift.IsActive() {
		if err := tx.Where("till_id = ?", shift.TillID).Delete(&activeShiftRow{}).Error; err != nil {
			return fmt.Errorf("clearing active shift: %w", err)
		}
	}
	return nil
}

func (s *Store) UpdateActiveShift(ctx context.Context, tillID string, fn func(*domain.Shift) error) (*domain.Shift, error) {
	var out *domain.Shift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shift, err := s.activeShiftTx(tx, tillID)
		if err != nil {
			return err
		}
		if err := fn(shift); err != nil {
			return err
		}
		if err := saveShiftTx(tx, shift); err != nil {
			return err
		}
		out = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListShiftHistory(ctx context.Context, tillID string, limit int) ([]domain.Shift, error) {
	q := s.db.WithContext(ctx).
		Preload("Expenses", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("till_id = ? AND status = ?", tillID, string(domain.ShiftClosed)).
		Order("clock_out_time DESC").Order("clock_in_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []shiftRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing shift history: %w", err)
	}
	out := make([]domain.Shift, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.toDomain())
	}
	return out, nil
}

// ============================================================
// Accounts
// ============================================================

// SeedAccounts serializes concurrent seeders with a table lock on PostgreSQL; the unique
// index on type turns any seeder that still races into a no-op.
func (s *Store) SeedAccounts(ctx context.Context, accounts []domain.Account) (bool, error) {
	seeded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.postgres {
			if err := tx.Exec("LOCK TABLE accounts IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return fmt.Errorf("locking accounts: %w", err)
			}
		}
		var n int64
		if err := tx.Model(&accountRow{}).Count(&n).Error; err != nil {
			return fmt.Errorf("counting accounts: %w", err)
		}
		if n > 0 {
			return nil
		}
		rows := make([]accountRow, 0, len(accounts))
		for i, a := range accounts {
			rows = append(rows, accountRow{
				ID: a.ID, Position: i, Name: a.Name, Type: string(a.Type),
				Balance: a.Balance, LastUpdated: a.LastUpdated,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("seeding accounts: %w", err)
		}
		seeded = true
		return nil
	})
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another seeder committed first; fine as long as its accounts are there.
		var n int64
		if cerr := s.db.WithContext(ctx).Model(&accountRow{}).Count(&n).Error; cerr == nil && n > 0 {
			return false, nil
		}
	}
	return seeded, err
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var rows []accountRow
	if err := s.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	out := make([]domain.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	var row accountRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", accountID).Error; err != nil {
		return nil, notFound(err, "account", accountID)
	}
	a := row.toDomain()
	return &a, nil
}

func (s *Store) ListAccountTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.AccountTransaction, error) {
	q := s.db.WithContext(ctx).Model(&accountTxRow{})
	if filter.AccountID != "" {
		q = q.Where("account_id = ?", filter.AccountID)
	}
	if filter.ShiftID != "" {
		q = q.Where("shift_id = ?", filter.ShiftID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	var rows []accountTxRow
	if err := q.Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing account transactions: %w", err)
	}
	out := make([]domain.AccountTransaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// applyTxs locks every referenced account, applies the deltas and appends the log rows.
// Any missing account aborts before anything is written.
func (s *Store) applyTxs(tx *gorm.DB, txs []domain.AccountTransaction) ([]domain.Account, error) {
	var order []string
	rows := make(map[string]*accountRow)
	for _, t := range txs {
		if _, ok := rows[t.AccountID]; ok {
			continue
		}
		var row accountRow
		if err := s.forUpdate(tx).First(&row, "id = ?", t.AccountID).Error; err != nil {
			return nil, notFound(err, "account", t.AccountID)
		}
		rows[t.AccountID] = &row
		order = append(order, t.AccountID)
	}
	if len(txs) == 0 {
		return nil, nil
	}

	now := s.now()
	for _, t := range txs {
		row := rows[t.AccountID]
		row.Balance = row.Balance.Add(t.Delta())
		row.LastUpdated = now
	}
	out := make([]domain.Account, 0, len(order))
	for _, id := range order {
		row := rows[id]
		err := tx.Model(&accountRow{}).Where("id = ?", id).
			Updates(map[string]any{"balance": row.Balance, "last_updated": row.LastUpdated}).Error
		if err != nil {
			return nil, fmt.Errorf("updating balance of %s: %w", id, err)
		}
		out = append(out, row.toDomain())
	}

	logRows := make([]accountTxRow, 0, len(txs))
	for _, t := range txs {
		logRows = append(logRows, toAccountTxRow(t))
	}
	if err := tx.Create(&logRows).Error; err != nil {
		return nil, fmt.Errorf("appending account transactions: %w", err)
	}
	return out, nil
}

func (s *Store) ApplyAccountTransactions(ctx context.Context, txs []domain.AccountTransaction) ([]domain.Account, error) {
	var out []domain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.applyTxs(tx, txs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ReconcileAccount(ctx context.Context, accountID string, build func(domain.Account) (*domain.AccountTransaction, error)) (*domain.Account, error) {
	var out domain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row accountRow
		if err := s.forUpdate(tx).First(&row, "id = ?", accountID).Error; err != nil {
			return notFound(err, "account", accountID)
		}
		out = row.toDomain()
		adj, err := build(out)
		if err != nil || adj == nil {
			return err
		}
		if adj.AccountID != accountID {
			return &domain.ErrConflict{Message: "adjustment targets account " + adj.AccountID}
		}
		accounts, err := s.applyTxs(tx, []domain.AccountTransaction{*adj})
		if err != nil {
			return err
		}
		out = accounts[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ApplyTransfer(ctx context.Context, transfer domain.AccountTransfer, legs []domain.AccountTransaction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.applyTxs(tx, legs); err != nil {
			return err
		}
		row := transferRow{
			ID:            transfer.ID,
			FromAccountID: transfer.FromAccountID,
			ToAccountID:   transfer.ToAccountID,
			Amount:        transfer.Amount,
			Timestamp:     transfer.Timestamp,
			Description:   transfer.Description,
			UserID:        transfer.UserID,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("recording transfer: %w", err)
		}
		return nil
	})
}

func (s *Store) ListTransfers(ctx context.Context) ([]domain.AccountTransfer, error) {
	var rows []transferRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	out := make([]domain.AccountTransfer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// ============================================================
// Inventory
// ============================================================

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&productRow{}).Where("sku = ?", p.SKU).Count(&n).Error; err != nil {
			return fmt.Errorf("checking sku: %w", err)
		}
		if n > 0 {
			return &domain.ErrConflict{Message: "sku " + p.SKU + " already exists"}
		}
		row := toProductRow(p)
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.ErrConflict{Message: "sku " + p.SKU + " already exists"}
			}
			return fmt.Errorf("inserting product: %w", err)
		}
		return nil
	})
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var row productRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", productID).Error; err != nil {
		return nil, notFound(err, "product", productID)
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Order("LOWER(name)").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	res := s.db.WithContext(ctx).Model(&productRow{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":       p.Name,
		"price":      p.Price,
		"stock":      p.Stock,
		"updated_at": p.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("updating product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "product", ID: p.ID}
	}
	return nil
}

// applyStock adjusts stock inside tx; the first change that would go negative aborts.
func (s *Store) applyStock(tx *gorm.DB, changes []domain.StockChange) (map[string]productRow, error) {
	rows := make(map[string]productRow)
	now := s.now()
	for _, c := range changes {
		row, ok := rows[c.ProductID]
		if !ok {
			if err := s.forUpdate(tx).First(&row, "id = ?", c.ProductID).Error; err != nil {
				return nil, notFound(err, "product", c.ProductID)
			}
		}
		if row.Stock+c.Delta < 0 {
			return nil, &domain.ErrInsufficientStock{ProductID: c.ProductID, Available: row.Stock, Requested: -c.Delta}
		}
		row.Stock += c.Delta
		row.UpdatedAt = now
		rows[c.ProductID] = row
	}
	for id, row := range rows {
		err := tx.Model(&productRow{}).Where("id = ?", id).
			Updates(map[string]any{"stock": row.Stock, "updated_at": row.UpdatedAt}).Error
		if err != nil {
			return nil, fmt.Errorf("updating stock of %s: %w", id, err)
		}
	}
	return rows, nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	var out domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.applyStock(tx, []domain.StockChange{{ProductID: productID, Delta: delta}})
		if err != nil {
			return err
		}
		out = rows[productID].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================
// Sales
// ============================================================

func (s *Store) CommitSale(ctx context.Context, commit domain.SaleCommit) (*domain.Shift, error) {
	sale := commit.Sale
	var out *domain.Shift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&saleRow{}).Where("reference = ?", sale.Reference).Count(&n).Error; err != nil {
			return fmt.Errorf("checking sale reference: %w", err)
		}
		if n > 0 {
			return &domain.ErrDuplicate{Key: sale.Reference}
		}

		shift, err := s.activeShiftTx(tx, sale.TillID)
		if err != nil {
			return err
		}
		if shift.ID != sale.ShiftID {
			return &domain.ErrConflict{Message: "shift " + sale.ShiftID + " is no longer active"}
		}
		for _, p := range sale.Payments {
			shift.ApplySale(p.Method, p.Amount)
		}
		if err := saveShiftTx(tx, shift); err != nil {
			return err
		}
		if _, err := s.applyTxs(tx, commit.Transactions); err != nil {
			return err
		}
		if _, err := s.applyStock(tx, commit.StockChanges); err != nil {
			return err
		}
		if sale.OrderID != "" {
			order, err := s.loadSalesOrder(tx, sale.OrderID)
			if err != nil {
				return err
			}
			if err := order.Fulfil(sale); err != nil {
				return err
			}
			orow := toSalesOrderRow(order)
			if err := tx.Save(&orow).Error; err != nil {
				return fmt.Errorf("fulfilling sales order %s: %w", sale.OrderID, err)
			}
		}

		row := toSaleRow(sale)
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.ErrDuplicate{Key: sale.Reference}
			}
			return fmt.Errorf("inserting sale: %w", err)
		}
		out = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	q := s.db.WithContext(ctx).Model(&saleRow{})
	if filter.ShiftID != "" {
		q = q.Where("shift_id = ?", filter.ShiftID)
	}
	if filter.TillID != "" {
		q = q.Where("till_id = ?", filter.TillID)
	}
	if !filter.From.IsZero() {
		q = q.Where("timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("timestamp < ?", filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []saleRow
	if err := q.Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	out := make([]domain.Sale, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// ============================================================
// Quotations & sales orders
// ============================================================

// loadQuotation and loadSalesOrder lock the row for the rest of tx.
func (s *Store) loadQuotation(tx *gorm.DB, id string) (*domain.Quotation, error) {
	var row quotationRow
	if err := s.forUpdate(tx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "quotation", id)
	}
	return row.toDomain(), nil
}

func (s *Store) loadSalesOrder(tx *gorm.DB, id string) (*domain.SalesOrder, error) {
	var row salesOrderRow
	if err := s.forUpdate(tx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "sales order", id)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateQuotation(ctx context.Context, q *domain.Quotation) error {
	row := toQuotationRow(q)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &domain.ErrConflict{Message: "quotation " + q.Number + " already exists"}
		}
		return fmt.Errorf("inserting quotation: %w", err)
	}
	return nil
}

func (s *Store) GetQuotation(ctx context.Context, quotationID string) (*domain.Quotation, error) {
	var row quotationRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", quotationID).Error; err != nil {
		return nil, notFound(err, "quotation", quotationID)
	}
	return row.toDomain(), nil
}

func (s *Store) ListQuotations(ctx context.Context, filter domain.OrderFilter) ([]domain.Quotation, error) {
	q := s.db.WithContext(ctx).Model(&quotationRow{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []quotationRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing quotations: %w", err)
	}
	out := make([]domain.Quotation, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateQuotation(ctx context.Context, quotationID string, fn func(*domain.Quotation) error) (*domain.Quotation, error) {
	var out *domain.Quotation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.loadQuotation(tx, quotationID)
		if err != nil {
			return err
		}
		if err := fn(q); err != nil {
			return err
		}
		row := toQuotationRow(q)
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("saving quotation %s: %w", quotationID, err)
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ConvertQuotation(ctx context.Context, quotationID string, fn func(*domain.Quotation) (*domain.SalesOrder, error)) (*domain.SalesOrder, error) {
	var out *domain.SalesOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.loadQuotation(tx, quotationID)
		if err != nil {
			return err
		}
		order, err := fn(q)
		if err != nil {
			return err
		}
		qrow := toQuotationRow(q)
		if err := tx.Save(&qrow).Error; err != nil {
			return fmt.Errorf("saving quotation %s: %w", quotationID, err)
		}
		orow := toSalesOrderRow(order)
		if err := tx.Create(&orow).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.ErrConflict{Message: "sales order " + order.Number + " already exists"}
			}
			return fmt.Errorf("inserting sales order: %w", err)
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateSalesOrder(ctx context.Context, o *domain.SalesOrder) error {
	row := toSalesOrderRow(o)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &domain.ErrConflict{Message: "sales order " + o.Number + " already exists"}
		}
		return fmt.Errorf("inserting sales order: %w", err)
	}
	return nil
}

func (s *Store) GetSalesOrder(ctx context.Context, orderID string) (*domain.SalesOrder, error) {
	var row salesOrderRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", orderID).Error; err != nil {
		return nil, notFound(err, "sales order", orderID)
	}
	return row.toDomain(), nil
}

func (s *Store) ListSalesOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.SalesOrder, error) {
	q := s.db.WithContext(ctx).Model(&salesOrderRow{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []salesOrderRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing sales orders: %w", err)
	}
	out := make([]domain.SalesOrder, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateSalesOrder(ctx context.Context, orderID string, fn func(*domain.SalesOrder) error) (*domain.SalesOrder, error) {
	var out *domain.SalesOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadSalesOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		row := toSalesOrderRow(o)
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("saving sales order %s: %w", orderID, err)
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================
// Users
// ============================================================

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	email := strings.ToLower(u.Email)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return fmt.Errorf("checking email: %w", err)
		}
		if n > 0 {
			return &domain.ErrConflict{Message: "email " + u.Email + " already registered"}
		}
		row := userRow{
			ID: u.ID, Email: email, Name: u.Name, Role: string(u.Role),
			PasswordHash: u.PasswordHash, Active: u.Active, CreatedAt: u.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}
		return nil
	})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, "user", userID)
	}
	return row.toDomain(), nil
}
