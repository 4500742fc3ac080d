package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

// Row types mirror the domain but carry gorm tags. Money columns are numeric.

type shiftRow struct {
	ID             string `gorm:"primaryKey;size:36"`
	TillID         string `gorm:"index;size:64;not null"`
	UserID         string `gorm:"size:36;not null"`
	Date           time.Time
	Status         string              `gorm:"index;size:16;not null"`
	OpeningBalance decimal.Decimal     `gorm:"type:numeric(18,2);not null"`
	ClockInTime    time.Time           `gorm:"not null"`
	ClockOutTime   *time.Time          `gorm:"index"`
	Totals         paymentTotalsCols   `gorm:"embedded;embeddedPrefix:total_"`
	TotalSales     decimal.Decimal     `gorm:"type:numeric(18,2);not null"`
	ClosingBalance decimal.NullDecimal `gorm:"type:numeric(18,2)"`
	Expenses       []expenseRow        `gorm:"foreignKey:ShiftID"`
}

func (shiftRow) TableName() string { return "shifts" }

type paymentTotalsCols struct {
	Cash          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Mpesa         decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	MpesaTill     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	PochiBiashara decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Card          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	BankTransfer  decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Credit        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
}

type expenseRow struct {
	ID          string          `gorm:"primaryKey;size:36"`
	ShiftID     string          `gorm:"index;size:36;not null"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"size:255"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Timestamp   time.Time
}

func (expenseRow) TableName() string { return "shift_expenses" }

// activeShiftRow holds at most one row per till; the primary key is the lock.
type activeShiftRow struct {
	TillID  string `gorm:"primaryKey;size:64"`
	ShiftID string `gorm:"size:36;not null"`
}

func (activeShiftRow) TableName() string { return "active_shifts" }

type accountRow struct {
	ID          string          `gorm:"primaryKey;size:36"`
	Position    int             `gorm:"not null"`
	Name        string          `gorm:"size:100;not null"`
	Type        string          `gorm:"uniqueIndex:idx_accounts_type_unique;size:32;not null"` // one account per type
	Balance     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	LastUpdated time.Time
}

func (accountRow) TableName() string { return "accounts" }

type accountTxRow struct {
	Seq         uint64          `gorm:"primaryKey;autoIncrement"`
	ID          string          `gorm:"uniqueIndex;size:36;not null"`
	AccountID   string          `gorm:"index;size:36;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Type        string          `gorm:"index;size:16;not null"`
	Direction   string          `gorm:"size:3;not null"`
	Reference   string          `gorm:"index;size:64"`
	Description string          `gorm:"size:255"`
	Timestamp   time.Time
	UserID      string `gorm:"size:36"`
	ShiftID     string `gorm:"index;size:36"`
}

func (accountTxRow) TableName() string { return "account_transactions" }

type transferRow struct {
	Seq           uint64          `gorm:"primaryKey;autoIncrement"`
	ID            string          `gorm:"uniqueIndex;size:36;not null"`
	FromAccountID string          `gorm:"size:36;not null"`
	ToAccountID   string          `gorm:"size:36;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Timestamp     time.Time
	Description   string `gorm:"size:255"`
	UserID        string `gorm:"size:36"`
}

func (transferRow) TableName() string { return "account_transfers" }

type productRow struct {
	ID        string          `gorm:"primaryKey;size:36"`
	SKU       string          `gorm:"uniqueIndex;size:64;not null"`
	Name      string          `gorm:"size:200;not null"`
	Price     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Stock     int             `gorm:"not null"`
	UpdatedAt time.Time
}

func (productRow) TableName() string { return "products" }

type saleRow struct {
	ID        string            `gorm:"primaryKey;size:36"`
	Reference string            `gorm:"uniqueIndex;size:64;not null"`
	Items     []domain.SaleItem `gorm:"serializer:json"`
	Payments  []domain.Payment  `gorm:"serializer:json"`
	Total     decimal.Decimal   `gorm:"type:numeric(18,2);not null"`
	ShiftID   string            `gorm:"index;size:36"`
	TillID    string            `gorm:"index;size:64"`
	UserID    string            `gorm:"size:36"`
	OrderID   string            `gorm:"index;size:36"`
	Timestamp time.Time         `gorm:"index"`
}

func (saleRow) TableName() string { return "sales" }

type quotationRow struct {
	ID            string            `gorm:"primaryKey;size:36"`
	Number        string            `gorm:"uniqueIndex;size:32;not null"`
	CustomerName  string            `gorm:"size:100;not null"`
	CustomerPhone string            `gorm:"size:20"`
	Items         []domain.SaleItem `gorm:"serializer:json"`
	Total         decimal.Decimal   `gorm:"type:numeric(18,2);not null"`
	Status        string            `gorm:"index;size:16;not null"`
	ValidUntil    *time.Time
	Notes         string    `gorm:"size:255"`
	SalesOrderID  string    `gorm:"size:36"`
	UserID        string    `gorm:"size:36"`
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

func (quotationRow) TableName() string { return "quotations" }

type salesOrderRow struct {
	ID            string            `gorm:"primaryKey;size:36"`
	Number        string            `gorm:"uniqueIndex;size:32;not null"`
	QuotationID   string            `gorm:"index;size:36"`
	CustomerName  string            `gorm:"size:100;not null"`
	CustomerPhone string            `gorm:"size:20"`
	Items         []domain.SaleItem `gorm:"serializer:json"`
	Total         decimal.Decimal   `gorm:"type:numeric(18,2);not null"`
	Status        string            `gorm:"index;size:16;not null"`
	Notes         string            `gorm:"size:255"`
	SaleID        string            `gorm:"size:36"`
	SaleReference string            `gorm:"size:64"`
	UserID        string            `gorm:"size:36"`
	CreatedAt     time.Time         `gorm:"index"`
	UpdatedAt     time.Time
	FulfilledAt   *time.Time
}

func (salesOrderRow) TableName() string { return "sales_orders" }

type userRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	Name         string `gorm:"size:200"`
	Role         string `gorm:"size:16;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Active       bool
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func allModels() []any {
	return []any{
		&shiftRow{}, &expenseRow{}, &activeShiftRow{},
		&accountRow{}, &accountTxRow{}, &transferRow{},
		&productRow{}, &saleRow{}, &quotationRow{}, &salesOrderRow{},
		&userRow{},
	}
}

// ============================================================
// Conversions
// ============================================================

func toShiftRow(s *domain.Shift) shiftRow {
	row := shiftRow{
		ID:             s.ID,
		TillID:         s.TillID,
		UserID:         s.UserID,
		Date:           s.Date,
		Status:         string(s.Status),
		OpeningBalance: s.OpeningBalance,
		ClockInTime:    s.ClockInTime,
		ClockOutTime:   s.ClockOutTime,
		Totals:         paymentTotalsCols(s.PaymentTotals),
		TotalSales:     s.TotalSales,
	}
	if s.ClosingBalance != nil {
		row.ClosingBalance = decimal.NewNullDecimal(*s.ClosingBalance)
	}
	return row
}

func toExpenseRows(s *domain.Shift) []expenseRow {
	rows := make([]expenseRow, 0, len(s.Expenses))
	for i, e := range s.Expenses {
		rows = append(rows, expenseRow{
			ID:          e.ID,
			ShiftID:     s.ID,
			Position:    i,
			Description: e.Description,
			Amount:      e.Amount,
			Timestamp:   e.Timestamp,
		})
	}
	return rows
}

func (r shiftRow) toDomain() *domain.Shift {
	s := &domain.Shift{
		ID:             r.ID,
		TillID:         r.TillID,
		UserID:         r.UserID,
		Date:           r.Date,
		Status:         domain.ShiftStatus(r.Status),
		OpeningBalance: r.OpeningBalance,
		ClockInTime:    r.ClockInTime,
		ClockOutTime:   r.ClockOutTime,
		PaymentTotals:  domain.PaymentTotals(r.Totals),
		TotalSales:     r.TotalSales,
		Expenses:       make([]domain.Expense, 0, len(r.Expenses)),
	}
	if r.ClosingBalance.Valid {
		v := r.ClosingBalance.Decimal
		s.ClosingBalance = &v
	}
	for _, e := range r.Expenses {
		s.Expenses = append(s.Expenses, domain.Expense{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Timestamp:   e.Timestamp,
		})
	}
	return s
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:          r.ID,
		Name:        r.Name,
		Type:        domain.AccountType(r.Type),
		Balance:     r.Balance,
		LastUpdated: r.LastUpdated,
	}
}

func toAccountTxRow(tx domain.AccountTransaction) accountTxRow {
	return accountTxRow{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		Direction:   string(tx.Direction),
		Reference:   tx.Reference,
		Description: tx.Description,
		Timestamp:   tx.Timestamp,
		UserID:      tx.UserID,
		ShiftID:     tx.ShiftID,
	}
}

func (r accountTxRow) toDomain() domain.AccountTransaction {
	return domain.AccountTransaction{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Amount:      r.Amount,
		Type:        domain.TransactionType(r.Type),
		Direction:   domain.Direction(r.Direction),
		Reference:   r.Reference,
		Description: r.Description,
		Timestamp:   r.Timestamp,
		UserID:      r.UserID,
		ShiftID:     r.ShiftID,
	}
}

func (r transferRow) toDomain() domain.AccountTransfer {
	return domain.AccountTransfer{
		ID:            r.ID,
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Amount:        r.Amount,
		Timestamp:     r.Timestamp,
		Description:   r.Description,
		UserID:        r.UserID,
	}
}

func toProductRow(p *domain.Product) productRow {
	return productRow{ID: p.ID, SKU: p.SKU, Name: p.Name, Price: p.Price, Stock: p.Stock, UpdatedAt: p.UpdatedAt}
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{ID: r.ID, SKU: r.SKU, Name: r.Name, Price: r.Price, Stock: r.Stock, UpdatedAt: r.UpdatedAt}
}

func toSaleRow(s domain.Sale) saleRow {
	return saleRow{
		ID:        s.ID,
		Reference: s.Reference,
		Items:     s.Items,
		Payments:  s.Payments,
		Total:     s.Total,
		ShiftID:   s.ShiftID,
		TillID:    s.TillID,
		UserID:    s.UserID,
		OrderID:   s.OrderID,
		Timestamp: s.Timestamp,
	}
}

func (r saleRow) toDomain() domain.Sale {
	return domain.Sale{
		ID:        r.ID,
		Reference: r.Reference,
		Items:     r.Items,
		Payments:  r.Payments,
		Total:     r.Total,
		ShiftID:   r.ShiftID,
		TillID:    r.TillID,
		UserID:    r.UserID,
		OrderID:   r.OrderID,
		Timestamp: r.Timestamp,
	}
}

func toQuotationRow(q *domain.Quotation) quotationRow {
	return quotationRow{
		ID:            q.ID,
		Number:        q.Number,
		CustomerName:  q.CustomerName,
		CustomerPhone: q.CustomerPhone,
		Items:         q.Items,
		Total:         q.Total,
		Status:        string(q.Status),
		ValidUntil:    q.ValidUntil,
		Notes:         q.Notes,
		SalesOrderID:  q.SalesOrderID,
		UserID:        q.UserID,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func (r quotationRow) toDomain() *domain.Quotation {
	return &domain.Quotation{
		ID:            r.ID,
		Number:        r.Number,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Items:         r.Items,
		Total:         r.Total,
		Status:        domain.QuotationStatus(r.Status),
		ValidUntil:    r.ValidUntil,
		Notes:         r.Notes,
		SalesOrderID:  r.SalesOrderID,
		UserID:        r.UserID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toSalesOrderRow(o *domain.SalesOrder) salesOrderRow {
	return salesOrderRow{
		ID:            o.ID,
		Number:        o.Number,
		QuotationID:   o.QuotationID,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Items:         o.Items,
		Total:         o.Total,
		Status:        string(o.Status),
		Notes:         o.Notes,
		SaleID:        o.SaleID,
		SaleReference: o.SaleReference,
		UserID:        o.UserID,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		FulfilledAt:   o.FulfilledAt,
	}
}

func (r salesOrderRow) toDomain() *domain.SalesOrder {
	return &domain.SalesOrder{
		ID:            r.ID,
		Number:        r.Number,
		QuotationID:   r.QuotationID,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Items:         r.Items,
		Total:         r.Total,
		Status:        domain.SalesOrderStatus(r.Status),
		Notes:         r.Notes,
		SaleID:        r.SaleID,
		SaleReference: r.SaleReference,
		UserID:        r.UserID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		FulfilledAt:   r.FulfilledAt,
	}
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Role:         domain.Role(r.Role),
		PasswordHash: r.PasswordHash,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
	}
}
