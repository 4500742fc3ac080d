package domain

import "github.com/shopspring/decimal"

// ============================================================
// Payment methods
// ============================================================

// PaymentMethod is the method a customer pays with at the till.
type PaymentMethod string

const (
	PaymentCash            PaymentMethod = "cash"
	PaymentMpesaSTK        PaymentMethod = "mpesa-stk"
	PaymentMpesaTill       PaymentMethod = "mpesa-till"
	PaymentPochiLaBiashara PaymentMethod = "pochi-la-biashara"
	PaymentCard            PaymentMethod = "card"
	PaymentBankTransfer    PaymentMethod = "bank-transfer"
	PaymentCredit          PaymentMethod = "credit"
	PaymentOtherCustom     PaymentMethod = "other-custom"
)

// Payment is one leg of a sale settlement.
type Payment struct {
	Method PaymentMethod   `json:"method" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// SumPayments adds up the amounts of all legs.
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// ShiftPaymentKey names one of the fixed buckets of a shift's payment totals.
type ShiftPaymentKey string

const (
	ShiftKeyCash          ShiftPaymentKey = "cash"
	ShiftKeyMpesa         ShiftPaymentKey = "mpesa"
	ShiftKeyMpesaTill     ShiftPaymentKey = "mpesaTill"
	ShiftKeyPochiBiashara ShiftPaymentKey = "pochiBiashara"
	ShiftKeyCard          ShiftPaymentKey = "card"
	ShiftKeyBankTransfer  ShiftPaymentKey = "bankTransfer"
	ShiftKeyCredit        ShiftPaymentKey = "credit"
)

// ShiftKeyFor maps a POS payment method to its shift bucket.
// Custom and unknown methods are counted as cash.
func ShiftKeyFor(method PaymentMethod) ShiftPaymentKey {
	switch method {
	case PaymentMpesaSTK:
		return ShiftKeyMpesa
	case PaymentMpesaTill:
		return ShiftKeyMpesaTill
	case PaymentPochiLaBiashara:
		return ShiftKeyPochiBiashara
	case PaymentCard:
		return ShiftKeyCard
	case PaymentBankTransfer:
		return ShiftKeyBankTransfer
	case PaymentCredit:
		return ShiftKeyCredit
	default:
		return ShiftKeyCash
	}
}

// SettlementAccountType returns the account type a payment method settles into.
// Card payments land in the bank account; methods without an account return false.
func SettlementAccountType(method PaymentMethod) (AccountType, bool) {
	switch method {
	case PaymentCard:
		return AccountBankTransfer, true
	case PaymentCash, PaymentMpesaSTK, PaymentMpesaTill, PaymentPochiLaBiashara,
		PaymentBankTransfer, PaymentCredit, PaymentOtherCustom:
		return AccountType(method), true
	}
	return "", false
}
