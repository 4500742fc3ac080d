package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

func TestCheckout_CompleteSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	byType := f.seeded(t)

	product, err := f.inventory.CreateProduct(ctx, domain.CreateProductRequest{
		SKU: "MILK-500", Name: "Milk 500ml", Price: dec("60"), Stock: 10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	shift, err := f.shifts.StartShift(ctx, cashier, dec("1000"))
	if err != nil {
		t.Fatalf("start shift: %v", err)
	}

	receipt, err := f.checkout.CompleteSale(ctx, cashier, domain.CompleteSaleRequest{
		Reference: "R-100",
		Items: []domain.SaleItem{
			{ProductID: product.ID, Name: product.Name, Quantity: 3, UnitPrice: dec("60")},
			{Name: "Carrier bag", Quantity: 1, UnitPrice: dec("20")},
		},
		Payments: []domain.Payment{
			{Method: domain.PaymentCash, Amount: dec("100")},
			{Method: domain.PaymentMpesaTill, Amount: dec("100")},
		},
	})
	if err != nil {
		t.Fatalf("complete sale: %v", err)
	}

	if !receipt.Sale.Total.Equal(dec("200")) {
		t.Errorf("total = %s, want 200", receipt.Sale.Total)
	}
	if receipt.Sale.ShiftID != shift.ID || receipt.Sale.TillID != cashier.TillID {
		t.Errorf("sale not tied to the shift: %+v", receipt.Sale)
	}
	if !receipt.Shift.TotalSales.Equal(dec("200")) ||
		!receipt.Shift.PaymentTotals.Cash.Equal(dec("100")) ||
		!receipt.Shift.PaymentTotals.MpesaTill.Equal(dec("100")) {
		t.Errorf("shift totals not updated: %+v", receipt.Shift.PaymentTotals)
	}
	if len(receipt.Transactions) != 2 {
		t.Errorf("expected 2 account legs, got %d", len(receipt.Transactions))
	}
	if b := f.balance(t, byType[domain.AccountCash].ID); !b.Equal(dec("100")) {
		t.Errorf("cash account = %s, want 100", b)
	}
	if b := f.balance(t, byType[domain.AccountMpesaTill].ID); !b.Equal(dec("100")) {
		t.Errorf("till account = %s, want 100", b)
	}

	p, _ := f.inventory.GetProduct(ctx, product.ID)
	if p.Stock != 7 {
		t.Errorf("stock = %d, want 7", p.Stock)
	}

	sales, err := f.checkout.ListSales(ctx, domain.SaleFilter{ShiftID: shift.ID})
	if err != nil || len(sales) != 1 {
		t.Fatalf("list sales = %v, %v", sales, err)
	}
}

func TestCheckout_DuplicateReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seeded(t)
	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start: %v", err)
	}

	req := domain.CompleteSaleRequest{
		Reference: "R-1",
		Items:     []domain.SaleItem{{Name: "Bread", Quantity: 1, UnitPrice: dec("55")}},
		Payments:  []domain.Payment{{Method: domain.PaymentCash, Amount: dec("55")}},
	}
	if _, err := f.checkout.CompleteSale(ctx, cashier, req); err != nil {
		t.Fatalf("first sale: %v", err)
	}
	var dup *domain.ErrDuplicate
	if _, err := f.checkout.CompleteSale(ctx, cashier, req); !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	s, _ := f.shifts.ActiveShift(ctx, cashier)
	if !s.TotalSales.Equal(dec("55")) {
		t.Errorf("duplicate counted twice: %s", s.TotalSales)
	}
}

func TestCheckout_FailedSaleReleasesReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seeded(t)

	req := domain.CompleteSaleRequest{
		Reference: "R-2",
		Items:     []domain.SaleItem{{Name: "Bread", Quantity: 1, UnitPrice: dec("55")}},
		Payments:  []domain.Payment{{Method: domain.PaymentCash, Amount: dec("55")}},
	}
	var nf *domain.ErrNotFound
	if _, err := f.checkout.CompleteSale(ctx, cashier, req); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound without a shift, got %v", err)
	}

	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.checkout.CompleteSale(ctx, cashier, req); err != nil {
		t.Fatalf("retry after failure should succeed: %v", err)
	}
}

func TestCheckout_InsufficientStockWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.seeded(t)[domain.AccountCash]

	product, err := f.inventory.CreateProduct(ctx, domain.CreateProductRequest{
		SKU: "SUGAR-1KG", Name: "Sugar 1kg", Price: dec("180"), Stock: 1,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start: %v", err)
	}

	var ise *domain.ErrInsufficientStock
	_, err = f.checkout.CompleteSale(ctx, cashier, domain.CompleteSaleRequest{
		Items:    []domain.SaleItem{{ProductID: product.ID, Name: product.Name, Quantity: 2, UnitPrice: dec("180")}},
		Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("360")}},
	})
	if !errors.As(err, &ise) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if ise.Available != 1 || ise.Requested != 2 {
		t.Errorf("unexpected stock error: %+v", ise)
	}
	if b := f.balance(t, cash.ID); !b.IsZero() {
		t.Errorf("cash moved to %s on a rejected sale", b)
	}
	s, _ := f.shifts.ActiveShift(ctx, cashier)
	if !s.TotalSales.IsZero() {
		t.Errorf("shift moved to %s on a rejected sale", s.TotalSales)
	}
}

func TestCheckout_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seeded(t)
	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start: %v", err)
	}

	bread := []domain.SaleItem{{Name: "Bread", Quantity: 2, UnitPrice: dec("50")}}
	cases := map[string]domain.CompleteSaleRequest{
		"no items":         {Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("1")}}},
		"no payments":      {Items: bread},
		"underpaid":        {Items: bread, Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("90")}}},
		"overpaid":         {Items: bread, Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("110")}}},
		"zero quantity":    {Items: []domain.SaleItem{{Name: "Bread", Quantity: 0, UnitPrice: dec("50")}}, Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("50")}}},
		"sub-cent payment": {Items: bread, Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("100.001")}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			var ve *domain.ErrValidation
			if _, err := f.checkout.CompleteSale(ctx, cashier, req); !errors.As(err, &ve) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCheckout_UnmappedPaymentMethod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seeded(t)
	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start: %v", err)
	}

	var nf *domain.ErrNotFound
	_, err := f.checkout.CompleteSale(ctx, cashier, domain.CompleteSaleRequest{
		Items: []domain.SaleItem{{Name: "Bread", Quantity: 1, UnitPrice: dec("50")}},
		Payments: []domain.Payment{
			{Method: domain.PaymentCash, Amount: dec("20")},
			{Method: "voucher", Amount: dec("30")},
		},
	})
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	s, _ := f.shifts.ActiveShift(ctx, cashier)
	if !s.TotalSales.IsZero() {
		t.Errorf("shift totals changed: %s", s.TotalSales)
	}
}

func TestReportService_SalesSummaryAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seeded(t)
	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, amt := range []string{"100", "300"} {
		if _, err := f.checkout.CompleteSale(ctx, cashier, domain.CompleteSaleRequest{
			Items:    []domain.SaleItem{{Name: "Item", Quantity: 1, UnitPrice: dec(amt)}},
			Payments: []domain.Payment{{Method: domain.PaymentCard, Amount: dec(amt)}},
		}); err != nil {
			t.Fatalf("sale %s: %v", amt, err)
		}
	}
	if _, err := f.inventory.CreateProduct(ctx, domain.CreateProductRequest{SKU: "LOW", Name: "Low", Price: dec("1"), Stock: 2}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	dash, err := f.reports.Dashboard(ctx, cashier)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Today.Count != 2 || !dash.Today.Total.Equal(dec("400")) || !dash.Today.AverageTicket.Equal(dec("200")) {
		t.Errorf("unexpected today summary: %+v", dash.Today)
	}
	if !dash.Today.ByShiftKey[domain.ShiftKeyCard].Equal(dec("400")) {
		t.Errorf("card bucket = %s, want 400", dash.Today.ByShiftKey[domain.ShiftKeyCard])
	}
	if !dash.TotalBalance.Equal(dec("400")) {
		t.Errorf("total balance = %s, want 400", dash.TotalBalance)
	}
	if dash.ActiveShift == nil || len(dash.LowStock) != 1 {
		t.Errorf("dashboard missing active shift or low stock: %+v", dash)
	}
}
