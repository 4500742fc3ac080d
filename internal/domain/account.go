package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts
// ============================================================

// AccountType is the payment channel an account collects.
type AccountType string

const (
	AccountCash            AccountType = "cash"
	AccountMpesaSTK        AccountType = "mpesa-stk"
	AccountMpesaTill       AccountType = "mpesa-till"
	AccountPochiLaBiashara AccountType = "pochi-la-biashara"
	AccountBankTransfer    AccountType = "bank-transfer"
	AccountCredit          AccountType = "credit"
	AccountOtherCustom     AccountType = "other-custom"
)

// Account is a named bucket holding a running balance.
// Balance is a cached value: it must equal the signed sum of the account's transactions.
type Account struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// DefaultAccounts is the fixed set seeded into an empty ledger, one per type.
func DefaultAccounts(newID func() string, now time.Time) []Account {
	defs := []struct {
		name string
		typ  AccountType
	}{
		{"Cash", AccountCash},
		{"M-Pesa STK Push", AccountMpesaSTK},
		{"M-Pesa Till", AccountMpesaTill},
		{"Pochi la Biashara", AccountPochiLaBiashara},
		{"Bank Transfer", AccountBankTransfer},
		{"Credit", AccountCredit},
		{"Other / Custom", AccountOtherCustom},
	}
	accounts := make([]Account, 0, len(defs))
	for _, d := range defs {
		accounts = append(accounts, Account{
			ID:          newID(),
			Name:        d.name,
			Type:        d.typ,
			Balance:     decimal.Zero,
			LastUpdated: now,
		})
	}
	return accounts
}

// FindAccountByType returns the first account of the given type.
func FindAccountByType(accounts []Account, t AccountType) (*Account, bool) {
	for i := range accounts {
		if accounts[i].Type == t {
			return &accounts[i], true
		}
	}
	return nil, false
}

// ============================================================
// Account transactions
// ============================================================

// TransactionType classifies an account transaction.
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxTransfer   TransactionType = "transfer"
	TxSale       TransactionType = "sale"
	TxRefund     TransactionType = "refund"
	TxAdjustment TransactionType = "adjustment"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxTransfer, TxSale, TxRefund, TxAdjustment:
		return true
	}
	return false
}

// Direction says whether a transaction moves money into or out of its account.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// DefaultDirection is out for withdrawals and refunds and in for everything else.
func (t TransactionType) DefaultDirection() Direction {
	if t == TxWithdrawal || t == TxRefund {
		return DirectionOut
	}
	return DirectionIn
}

// AccountTransaction is an immutable entry in the account audit trail.
// Amount is always a positive magnitude; Direction carries the sign.
type AccountTransaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Direction   Direction       `json:"direction"`
	Reference   string          `json:"reference,omitempty"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	UserID      string          `json:"userId"`
	ShiftID     string          `json:"shiftId,omitempty"`
}

// Delta is the signed change the transaction applies to its account balance.
func (t AccountTransaction) Delta() decimal.Decimal {
	if t.Direction == DirectionOut {
		return t.Amount.Neg()
	}
	return t.Amount
}

// TransactionFilter narrows a transaction listing. Zero values match everything.
type TransactionFilter struct {
	AccountID string
	ShiftID   string
	Type      TransactionType
}

// Matches reports whether tx passes the filter.
func (f TransactionFilter) Matches(tx AccountTransaction) bool {
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	if f.ShiftID != "" && tx.ShiftID != f.ShiftID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	return true
}

// AccountTransfer moves money between two accounts. It is committed together
// with its two transfer legs.
type AccountTransfer struct {
	ID            string          `json:"id"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
	Description   string          `json:"description"`
	UserID        string          `json:"userId"`
}

// Reconciliation is the outcome of matching a recorded balance to a counted one.
type Reconciliation struct {
	AccountID   string              `json:"accountId"`
	Recorded    decimal.Decimal     `json:"recorded"`
	Actual      decimal.Decimal     `json:"actual"`
	Difference  decimal.Decimal     `json:"difference"`
	Adjustment  *AccountTransaction `json:"adjustment,omitempty"`
	Account     *Account            `json:"account"`
	Reconciled  bool                `json:"reconciled"`
	PerformedAt time.Time           `json:"performedAt"`
}

// BalanceDrift reports an account whose cached balance disagrees with its log.
type BalanceDrift struct {
	AccountID     string          `json:"accountId"`
	AccountName   string          `json:"accountName"`
	CachedBalance decimal.Decimal `json:"cachedBalance"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance"`
	Difference    decimal.Decimal `json:"difference"`
}

// BalanceUpdate is one manual balance change: exactly one transaction is appended.
// Direction always follows Type; a request that names the opposite direction is rejected.
// Signed adjustments come only from reconciliation and transfers.
type BalanceUpdate struct {
	AccountID   string          `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type" validate:"required"`
	Direction   Direction       `json:"direction,omitempty" validate:"omitempty,oneof=in out"`
	Description string          `json:"description" validate:"max=255"`
	Reference   string          `json:"reference,omitempty" validate:"max=64"`
	ShiftID     string          `json:"shiftId,omitempty"`
}

// BalanceUpdateResult is returned by POST /v1/accounts/{accountId}/transactions.
type BalanceUpdateResult struct {
	Account     *Account            `json:"account"`
	Transaction *AccountTransaction `json:"transaction"`
}

// RecordSaleInAccountsRequest is the body of POST /v1/accounts/sales.
type RecordSaleInAccountsRequest struct {
	Payments  []Payment `json:"payments" validate:"required,min=1,dive"`
	Reference string    `json:"reference" validate:"required,max=64"`
	ShiftID   string    `json:"shiftId,omitempty"`
}

// TransferRequest is the body of POST /v1/accounts/transfers.
type TransferRequest struct {
	FromAccountID string          `json:"fromAccountId" validate:"required"`
	ToAccountID   string          `json:"toAccountId" validate:"required,nefield=FromAccountID"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=255"`
}

// ReconcileRequest is the body of POST /v1/accounts/{accountId}/reconcile.
type ReconcileRequest struct {
	ActualBalance decimal.Decimal `json:"actualBalance"`
	Note          string          `json:"note" validate:"max=255"`
}
