package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================
// M-Pesa STK push
// ============================================================

// STKPushRequest asks the gateway to prompt a customer's phone for payment.
type STKPushRequest struct {
	PhoneNumber      string          `json:"phoneNumber" validate:"required"`
	Amount           decimal.Decimal `json:"amount"`
	AccountReference string          `json:"accountReference" validate:"required,max=12"`
	TransactionDesc  string          `json:"transactionDesc" validate:"max=13"`
}

// STKPushResponse is the gateway's acknowledgement of a push.
type STKPushResponse struct {
	Success             bool   `json:"success"`
	CheckoutRequestID   string `json:"checkoutRequestId"`
	MerchantRequestID   string `json:"merchantRequestId,omitempty"`
	ResponseDescription string `json:"responseDescription,omitempty"`
	CustomerMessage     string `json:"customerMessage,omitempty"`
}

// STKQueryResponse is the raw result of one status query.
type STKQueryResponse struct {
	Success    bool   `json:"success"`
	ResultCode string `json:"resultCode"`
	ResultDesc string `json:"resultDesc"`
}

// STKStatus is the state of a push as seen by the till.
type STKStatus string

const (
	STKPending  STKStatus = "pending"
	STKSuccess  STKStatus = "success"
	STKFailed   STKStatus = "failed"
	STKTimedOut STKStatus = "timed-out"
)

// Terminal reports whether no further polling can change the status.
func (s STKStatus) Terminal() bool {
	return s != STKPending
}

// Daraja result codes the till cares about.
const (
	STKResultSuccess         = "0"
	STKResultCancelledByUser = "1032"
	STKResultUnreachable     = "1037"
	STKResultStillProcessing = "500.001.1001"
)

// StatusFromQuery maps a query result to a till status.
// Unsuccessful queries and the "still processing" code are pending;
// "unreachable" means the prompt timed out on the handset.
func StatusFromQuery(q STKQueryResponse) STKStatus {
	if !q.Success {
		return STKPending
	}
	switch q.ResultCode {
	case "", STKResultStillProcessing:
		return STKPending
	case STKResultSuccess:
		return STKSuccess
	case STKResultUnreachable:
		return STKTimedOut
	default:
		return STKFailed
	}
}

// STKStatusResult is returned by the status and await endpoints.
type STKStatusResult struct {
	CheckoutRequestID string    `json:"checkoutRequestId"`
	Status            STKStatus `json:"status"`
	ResultCode        string    `json:"resultCode,omitempty"`
	ResultDesc        string    `json:"resultDesc,omitempty"`
	Attempts          int       `json:"attempts"`
}

// NormalizeMSISDN converts a Kenyan mobile number to 2547XXXXXXXX or 2541XXXXXXXX.
// Accepted inputs: 07…, 01…, 7…, 1…, 2547…, 2541…, +254…; spaces and dashes are ignored.
func NormalizeMSISDN(phone string) (string, bool) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+")

	switch {
	case strings.HasPrefix(p, "254") && len(p) == 12:
		p = p[3:]
	case strings.HasPrefix(p, "0") && len(p) == 10:
		p = p[1:]
	}
	if len(p) != 9 || (p[0] != '7' && p[0] != '1') {
		return "", false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return "254" + p, true
}
