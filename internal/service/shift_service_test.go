package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

func TestShiftService_CloseComputesClosingBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.shifts.StartShift(ctx, cashier, dec("5000")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.shifts.RecordSale(ctx, cashier, nil, domain.PaymentCash, dec("1200")); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if _, err := f.shifts.RecordSale(ctx, cashier, nil, domain.PaymentMpesaSTK, dec("800")); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if _, err := f.shifts.AddExpense(ctx, cashier, "Airtime", dec("300")); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	summary, err := f.shifts.CloseShift(ctx, cashier)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !summary.ClosingBalance.Equal(dec("5900")) {
		t.Errorf("closing balance = %s, want 5900", summary.ClosingBalance)
	}
	if !summary.TotalSales.Equal(dec("2000")) {
		t.Errorf("total sales = %s, want 2000", summary.TotalSales)
	}
	if !summary.PaymentTotals.Mpesa.Equal(dec("800")) {
		t.Errorf("mpesa bucket = %s, want 800", summary.PaymentTotals.Mpesa)
	}
	if summary.Shift.Status != domain.ShiftClosed || summary.Shift.ClockOutTime == nil {
		t.Errorf("shift not closed: %+v", summary.Shift)
	}

	var nf *domain.ErrNotFound
	if _, err := f.shifts.ActiveShift(ctx, cashier); !errors.As(err, &nf) {
		t.Errorf("expected no active shift after close, got %v", err)
	}

	history, err := f.shifts.History(ctx, cashier, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ID != summary.Shift.ID {
		t.Errorf("history = %+v, want the closed shift", history)
	}
}

func TestShiftService_StartTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.shifts.StartShift(ctx, cashier, dec("100")); err != nil {
		t.Fatalf("start: %v", err)
	}
	var conflict *domain.ErrConflict
	if _, err := f.shifts.StartShift(ctx, cashier, dec("100")); !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	other := cashier
	other.TillID = "till-2"
	if _, err := f.shifts.StartShift(ctx, other, dec("0")); err != nil {
		t.Errorf("a second till may open its own shift: %v", err)
	}
}

func TestShiftService_RequiresActiveShift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var nf *domain.ErrNotFound
	if _, err := f.shifts.AddExpense(ctx, cashier, "Fuel", dec("50")); !errors.As(err, &nf) {
		t.Errorf("AddExpense: expected ErrNotFound, got %v", err)
	}
	if _, err := f.shifts.RecordSale(ctx, cashier, nil, domain.PaymentCash, dec("50")); !errors.As(err, &nf) {
		t.Errorf("RecordSale: expected ErrNotFound, got %v", err)
	}
	if _, err := f.shifts.CloseShift(ctx, cashier); !errors.As(err, &nf) {
		t.Errorf("CloseShift: expected ErrNotFound, got %v", err)
	}
}

func TestShiftService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ve *domain.ErrValidation
	if _, err := f.shifts.StartShift(ctx, cashier, dec("-1")); !errors.As(err, &ve) {
		t.Errorf("negative opening balance: expected ErrValidation, got %v", err)
	}
	if _, err := f.shifts.StartShift(ctx, cashier, dec("10.005")); !errors.As(err, &ve) {
		t.Errorf("sub-cent opening balance: expected ErrValidation, got %v", err)
	}

	var unauth *domain.ErrUnauthorized
	if _, err := f.shifts.StartShift(ctx, domain.Session{}, dec("0")); !errors.As(err, &unauth) {
		t.Errorf("empty session: expected ErrUnauthorized, got %v", err)
	}

	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.shifts.RecordSale(ctx, cashier, nil, domain.PaymentCash, dec("0")); !errors.As(err, &ve) {
		t.Errorf("zero sale: expected ErrValidation, got %v", err)
	}
	if _, err := f.shifts.AddExpense(ctx, cashier, "", dec("5")); !errors.As(err, &ve) {
		t.Errorf("empty description: expected ErrValidation, got %v", err)
	}
}

func TestShiftService_DefaultTill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.shifts.StartShift(ctx, domain.Session{UserID: "user-9"}, dec("10"))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.TillID != domain.DefaultTillID {
		t.Errorf("till = %q, want %q", s.TillID, domain.DefaultTillID)
	}
}

func TestShiftService_ConcurrentSalesAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.shifts.RecordSale(ctx, cashier, nil, domain.PaymentCash, dec("10")); err != nil {
				t.Errorf("record sale: %v", err)
			}
		}()
	}
	wg.Wait()

	s, err := f.shifts.ActiveShift(ctx, cashier)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if !s.TotalSales.Equal(dec("500")) || !s.PaymentTotals.Cash.Equal(dec("500")) {
		t.Errorf("totals = %s / %s, want 500", s.TotalSales, s.PaymentTotals.Cash)
	}
}
