package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary aggregates sales over [From, To).
type SalesSummary struct {
	From          time.Time                           `json:"from"`
	To            time.Time                           `json:"to"`
	Count         int                                 `json:"count"`
	Total         decimal.Decimal                     `json:"total"`
	AverageTicket decimal.Decimal                     `json:"averageTicket"`
	ByMethod      map[PaymentMethod]decimal.Decimal   `json:"byMethod"`
	ByShiftKey    map[ShiftPaymentKey]decimal.Decimal `json:"byShiftKey"`
}

// SummarizeSales builds a summary from a sale listing.
func SummarizeSales(from, to time.Time, sales []Sale) *SalesSummary {
	sum := &SalesSummary{
		From:          from,
		To:            to,
		Total:         decimal.Zero,
		AverageTicket: decimal.Zero,
		ByMethod:      make(map[PaymentMethod]decimal.Decimal),
		ByShiftKey:    make(map[ShiftPaymentKey]decimal.Decimal),
	}
	for _, s := range sales {
		sum.Count++
		sum.Total = sum.Total.Add(s.Total)
		for _, p := range s.Payments {
			sum.ByMethod[p.Method] = sum.ByMethod[p.Method].Add(p.Amount)
			key := ShiftKeyFor(p.Method)
			sum.ByShiftKey[key] = sum.ByShiftKey[key].Add(p.Amount)
		}
	}
	if sum.Count > 0 {
		sum.AverageTicket = sum.Total.Div(decimal.NewFromInt(int64(sum.Count))).Round(2)
	}
	return sum
}

// Dashboard is the back-office landing snapshot for one till.
type Dashboard struct {
	TillID       string          `json:"tillId"`
	Accounts     []Account       `json:"accounts"`
	TotalBalance decimal.Decimal `json:"totalBalance"`
	Today        *SalesSummary   `json:"today"`
	ActiveShift  *Shift          `json:"activeShift,omitempty"`
	RecentShifts []Shift         `json:"recentShifts"`
	LowStock     []Product       `json:"lowStock"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}
