package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

func quoteRequest(productID string) domain.CreateQuotationRequest {
	return domain.CreateQuotationRequest{
		CustomerName: "Mama Njeri Hardware",
		Items: []domain.SaleItem{
			{ProductID: productID, Name: "Cement 50kg", Quantity: 4, UnitPrice: dec("750")},
			{Name: "Delivery", Quantity: 1, UnitPrice: dec("300")},
		},
	}
}

func TestOrders_QuotationToFulfilledSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	byType := f.seeded(t)

	cement, err := f.inventory.CreateProduct(ctx, domain.CreateProductRequest{
		SKU: "CEM-50", Name: "Cement 50kg", Price: dec("750"), Stock: 10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start shift: %v", err)
	}

	q, err := f.orders.CreateQuotation(ctx, cashier.UserID, quoteRequest(cement.ID))
	if err != nil {
		t.Fatalf("create quotation: %v", err)
	}
	if q.Status != domain.QuotationOpen || !q.Total.Equal(dec("3300")) {
		t.Fatalf("unexpected quotation: %+v", q)
	}
	if p, _ := f.inventory.GetProduct(ctx, cement.ID); p.Stock != 10 {
		t.Errorf("quotation moved stock to %d", p.Stock)
	}

	if _, err := f.orders.SetQuotationStatus(ctx, q.ID, domain.QuotationAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	order, err := f.orders.ConvertQuotation(ctx, cashier.UserID, q.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if order.Status != domain.OrderPending || order.QuotationID != q.ID || !order.Total.Equal(dec("3300")) {
		t.Fatalf("unexpected order: %+v", order)
	}
	converted, _ := f.orders.GetQuotation(ctx, q.ID)
	if converted.Status != domain.QuotationConverted || converted.SalesOrderID != order.ID {
		t.Errorf("quotation not marked converted: %+v", converted)
	}

	var conflict *domain.ErrConflict
	if _, err := f.orders.ConvertQuotation(ctx, cashier.UserID, q.ID); !errors.As(err, &conflict) {
		t.Errorf("second conversion: expected ErrConflict, got %v", err)
	}

	receipt, err := f.orders.FulfilSalesOrder(ctx, cashier, order.ID, domain.FulfilOrderRequest{
		Reference: "INV-1",
		Payments: []domain.Payment{
			{Method: domain.PaymentBankTransfer, Amount: dec("3000")},
			{Method: domain.PaymentCash, Amount: dec("300")},
		},
	})
	if err != nil {
		t.Fatalf("fulfil: %v", err)
	}
	if receipt.Sale.OrderID != order.ID || !receipt.Shift.TotalSales.Equal(dec("3300")) {
		t.Errorf("sale not tied to the order: %+v", receipt.Sale)
	}
	if p, _ := f.inventory.GetProduct(ctx, cement.ID); p.Stock != 6 {
		t.Errorf("stock = %d, want 6", p.Stock)
	}
	if b := f.balance(t, byType[domain.AccountBankTransfer].ID); !b.Equal(dec("3000")) {
		t.Errorf("bank = %s, want 3000", b)
	}

	fulfilled, _ := f.orders.GetSalesOrder(ctx, order.ID)
	if fulfilled.Status != domain.OrderFulfilled || fulfilled.SaleReference != "INV-1" || fulfilled.FulfilledAt == nil {
		t.Errorf("order not marked fulfilled: %+v", fulfilled)
	}

	if _, err := f.orders.FulfilSalesOrder(ctx, cashier, order.ID, domain.FulfilOrderRequest{
		Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("3300")}},
	}); !errors.As(err, &conflict) {
		t.Errorf("second fulfilment: expected ErrConflict, got %v", err)
	}
	if _, err := f.orders.CancelSalesOrder(ctx, order.ID); !errors.As(err, &conflict) {
		t.Errorf("cancel fulfilled: expected ErrConflict, got %v", err)
	}
}

func TestOrders_FulfilmentFailureLeavesOrderPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seeded(t)
	if _, err := f.shifts.StartShift(ctx, cashier, dec("0")); err != nil {
		t.Fatalf("start shift: %v", err)
	}

	order, err := f.orders.CreateSalesOrder(ctx, cashier.UserID, domain.CreateSalesOrderRequest{
		CustomerName: "Otieno Kiosk",
		Items:        []domain.SaleItem{{Name: "Bread", Quantity: 2, UnitPrice: dec("65")}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	var ve *domain.ErrValidation
	if _, err := f.orders.FulfilSalesOrder(ctx, cashier, order.ID, domain.FulfilOrderRequest{
		Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("100")}},
	}); !errors.As(err, &ve) {
		t.Fatalf("short payment: expected ErrValidation, got %v", err)
	}
	got, _ := f.orders.GetSalesOrder(ctx, order.ID)
	if got.Status != domain.OrderPending {
		t.Errorf("failed fulfilment changed status to %s", got.Status)
	}

	cancelled, err := f.orders.CancelSalesOrder(ctx, order.ID)
	if err != nil || cancelled.Status != domain.OrderCancelled {
		t.Fatalf("cancel: %v %+v", err, cancelled)
	}
	var conflict *domain.ErrConflict
	if _, err := f.orders.FulfilSalesOrder(ctx, cashier, order.ID, domain.FulfilOrderRequest{
		Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: dec("130")}},
	}); !errors.As(err, &conflict) {
		t.Errorf("fulfil cancelled: expected ErrConflict, got %v", err)
	}
	sales, _ := f.checkout.ListSales(ctx, domain.SaleFilter{})
	if len(sales) != 0 {
		t.Errorf("expected no sales, got %d", len(sales))
	}
}

func TestOrders_QuotationRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ve *domain.ErrValidation
	past := time.Now().Add(-time.Hour)
	req := quoteRequest("")
	req.ValidUntil = &past
	if _, err := f.orders.CreateQuotation(ctx, "user-1", req); !errors.As(err, &ve) {
		t.Errorf("past validity: expected ErrValidation, got %v", err)
	}
	req = quoteRequest("")
	req.CustomerName = "  "
	if _, err := f.orders.CreateQuotation(ctx, "user-1", req); !errors.As(err, &ve) {
		t.Errorf("blank customer: expected ErrValidation, got %v", err)
	}

	q, err := f.orders.CreateQuotation(ctx, "user-1", quoteRequest(""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.orders.SetQuotationStatus(ctx, q.ID, domain.QuotationConverted); !errors.As(err, &ve) {
		t.Errorf("manual conversion: expected ErrValidation, got %v", err)
	}
	if _, err := f.orders.SetQuotationStatus(ctx, q.ID, domain.QuotationDeclined); err != nil {
		t.Fatalf("decline: %v", err)
	}
	var conflict *domain.ErrConflict
	if _, err := f.orders.SetQuotationStatus(ctx, q.ID, domain.QuotationAccepted); !errors.As(err, &conflict) {
		t.Errorf("accept declined: expected ErrConflict, got %v", err)
	}
	if _, err := f.orders.ConvertQuotation(ctx, "user-1", q.ID); !errors.As(err, &conflict) {
		t.Errorf("convert declined: expected ErrConflict, got %v", err)
	}

	open, err := f.orders.ListQuotations(ctx, domain.OrderFilter{Status: string(domain.QuotationOpen)})
	if err != nil || len(open) != 0 {
		t.Errorf("open quotations = %+v, %v", open, err)
	}
	all, err := f.orders.ListQuotations(ctx, domain.OrderFilter{})
	if err != nil || len(all) != 1 {
		t.Errorf("all quotations = %+v, %v", all, err)
	}
	if _, err := f.orders.ListQuotations(ctx, domain.OrderFilter{Status: "lost"}); !errors.As(err, &ve) {
		t.Errorf("unknown status: expected ErrValidation, got %v", err)
	}

	var nf *domain.ErrNotFound
	if _, err := f.orders.ConvertQuotation(ctx, "user-1", "missing"); !errors.As(err, &nf) {
		t.Errorf("missing quotation: expected ErrNotFound, got %v", err)
	}
}
