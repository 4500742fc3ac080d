package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Shifts
// ============================================================

// ShiftStatus is the lifecycle state of a shift. active → closed is the only transition.
type ShiftStatus string

const (
	ShiftActive ShiftStatus = "active"
	ShiftClosed ShiftStatus = "closed"
)

// PaymentTotals holds the running total per shift payment bucket.
type PaymentTotals struct {
	Cash          decimal.Decimal `json:"cash"`
	Mpesa         decimal.Decimal `json:"mpesa"`
	MpesaTill     decimal.Decimal `json:"mpesaTill"`
	PochiBiashara decimal.Decimal `json:"pochiBiashara"`
	Card          decimal.Decimal `json:"card"`
	BankTransfer  decimal.Decimal `json:"bankTransfer"`
	Credit        decimal.Decimal `json:"credit"`
}

func (p *PaymentTotals) bucket(key ShiftPaymentKey) *decimal.Decimal {
	switch key {
	case ShiftKeyMpesa:
		return &p.Mpesa
	case ShiftKeyMpesaTill:
		return &p.MpesaTill
	case ShiftKeyPochiBiashara:
		return &p.PochiBiashara
	case ShiftKeyCard:
		return &p.Card
	case ShiftKeyBankTransfer:
		return &p.BankTransfer
	case ShiftKeyCredit:
		return &p.Credit
	default:
		return &p.Cash
	}
}

// Add increments the bucket named by key.
func (p *PaymentTotals) Add(key ShiftPaymentKey, amount decimal.Decimal) {
	b := p.bucket(key)
	*b = b.Add(amount)
}

// Get returns the running total of one bucket.
func (p PaymentTotals) Get(key ShiftPaymentKey) decimal.Decimal {
	return *p.bucket(key)
}

// Sum returns the total across all buckets.
func (p PaymentTotals) Sum() decimal.Decimal {
	return p.Cash.Add(p.Mpesa).Add(p.MpesaTill).Add(p.PochiBiashara).
		Add(p.Card).Add(p.BankTransfer).Add(p.Credit)
}

// Expense is money paid out of the till during a shift.
type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Shift is a bounded work session of one operator on one till.
type Shift struct {
	ID             string           `json:"id"`
	TillID         string           `json:"tillId"`
	UserID         string           `json:"userId"`
	Date           time.Time        `json:"date"`
	Status         ShiftStatus      `json:"status"`
	OpeningBalance decimal.Decimal  `json:"openingBalance"`
	ClockInTime    time.Time        `json:"clockInTime"`
	ClockOutTime   *time.Time       `json:"clockOutTime,omitempty"`
	PaymentTotals  PaymentTotals    `json:"paymentTotals"`
	TotalSales     decimal.Decimal  `json:"totalSales"`
	Expenses       []Expense        `json:"expenses"`
	ClosingBalance *decimal.Decimal `json:"closingBalance,omitempty"`
}

// NewShift opens a shift for the session's till at now.
func NewShift(id string, session Session, openingBalance decimal.Decimal, now time.Time) *Shift {
	return &Shift{
		ID:             id,
		TillID:         session.TillID,
		UserID:         session.UserID,
		Date:           time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		Status:         ShiftActive,
		OpeningBalance: openingBalance,
		ClockInTime:    now,
		TotalSales:     decimal.Zero,
		Expenses:       []Expense{},
	}
}

// IsActive reports whether the shift still accepts sales and expenses.
func (s *Shift) IsActive() bool {
	return s.Status == ShiftActive
}

// ApplySale adds a sale amount to the bucket of its payment method and to the
// shift's total sales. It returns the bucket that was credited.
func (s *Shift) ApplySale(method PaymentMethod, amount decimal.Decimal) ShiftPaymentKey {
	key := ShiftKeyFor(method)
	s.PaymentTotals.Add(key, amount)
	s.TotalSales = s.TotalSales.Add(amount)
	return key
}

// AddExpense appends an expense. Totals are not touched.
func (s *Shift) AddExpense(e Expense) {
	s.Expenses = append(s.Expenses, e)
}

// TotalExpenses sums all expense amounts.
func (s *Shift) TotalExpenses() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// ExpectedCash is the cash that should be in the drawer:
// opening balance + cash takings − expenses.
func (s *Shift) ExpectedCash() decimal.Decimal {
	return s.OpeningBalance.Add(s.PaymentTotals.Cash).Sub(s.TotalExpenses())
}

// Close stamps the clock-out time and fixes the closing balance.
func (s *Shift) Close(now time.Time) {
	closing := s.ExpectedCash()
	s.Status = ShiftClosed
	s.ClockOutTime = &now
	s.ClosingBalance = &closing
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *Shift) Clone() *Shift {
	c := *s
	c.Expenses = append([]Expense(nil), s.Expenses...)
	if c.Expenses == nil {
		c.Expenses = []Expense{}
	}
	if s.ClockOutTime != nil {
		t := *s.ClockOutTime
		c.ClockOutTime = &t
	}
	if s.ClosingBalance != nil {
		b := *s.ClosingBalance
		c.ClosingBalance = &b
	}
	return &c
}

// ShiftSummary is the closing report of a shift.
type ShiftSummary struct {
	Shift          *Shift          `json:"shift"`
	TotalSales     decimal.Decimal `json:"totalSales"`
	PaymentTotals  PaymentTotals   `json:"paymentTotals"`
	TotalExpenses  decimal.Decimal `json:"totalExpenses"`
	ExpenseCount   int             `json:"expenseCount"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	Duration       string          `json:"duration"`
}

// Summarize builds the closing report of a closed shift.
func (s *Shift) Summarize() *ShiftSummary {
	sum := &ShiftSummary{
		Shift:          s,
		TotalSales:     s.TotalSales,
		PaymentTotals:  s.PaymentTotals,
		TotalExpenses:  s.TotalExpenses(),
		ExpenseCount:   len(s.Expenses),
		ClosingBalance: s.ExpectedCash(),
	}
	if s.ClosingBalance != nil {
		sum.ClosingBalance = *s.ClosingBalance
	}
	if s.ClockOutTime != nil {
		sum.Duration = s.ClockOutTime.Sub(s.ClockInTime).Round(time.Second).String()
	}
	return sum
}

// StartShiftRequest is the body of POST /v1/shifts.
type StartShiftRequest struct {
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// AddExpenseRequest is the body of POST /v1/shifts/active/expenses.
type AddExpenseRequest struct {
	Description string          `json:"description" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
}

// RecordShiftSaleRequest is the body of POST /v1/shifts/active/sales.
type RecordShiftSaleRequest struct {
	Items         []SaleItem      `json:"items" validate:"dive"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
}
