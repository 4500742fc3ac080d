package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

var checkoutTracer = otel.Tracer("service/checkout")

// CheckoutService completes sales: it ties the shift ledger, the account
// ledger and inventory together in one commit.
type CheckoutService struct {
	store    port.Store
	accounts *AccountsService
	recent   port.Cache[string]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewCheckoutService creates a new checkout service. recent remembers sale
// references for a short while so double-submits are rejected before any store work.
func NewCheckoutService(
	store port.Store,
	accounts *AccountsService,
	recent port.Cache[string],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		store:    store,
		accounts: accounts,
		recent:   recent,
		metrics:  metrics,
		logger:   logger,
	}
}

// CompleteSale validates and commits a sale on the session's till.
func (s *CheckoutService) CompleteSale(ctx context.Context, session domain.Session, req domain.CompleteSaleRequest) (receipt *domain.SaleReceipt, err error) {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.CompleteSale")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("complete_sale", time.Since(start))
		if err != nil {
			s.metrics.IncrSale("error")
		} else {
			s.metrics.IncrSale("success")
		}
	}()

	session, err = normalizeSession(session)
	if err != nil {
		return nil, err
	}
	total, err := validateSale(req)
	if err != nil {
		return nil, err
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = newSaleReference(start)
	}
	span.SetAttributes(
		attribute.String("sale.reference", reference),
		attribute.String("till.id", session.TillID),
	)

	saleID := uuid.NewString()
	if !s.recent.SetIfAbsent(reference, saleID) {
		return nil, &domain.ErrDuplicate{Key: reference}
	}
	defer func() {
		if err != nil {
			s.recent.Delete(reference)
		}
	}()

	shift, err := s.store.GetActiveShift(ctx, session.TillID)
	if err != nil {
		return nil, err
	}

	changes, err := s.stockChanges(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	txs, err := s.accounts.BuildSaleTransactions(ctx, req.Payments, reference, shift.ID, session.UserID)
	if err != nil {
		return nil, err
	}

	sale := domain.Sale{
		ID:        saleID,
		Reference: reference,
		Items:     req.Items,
		Payments:  req.Payments,
		Total:     total,
		ShiftID:   shift.ID,
		TillID:    session.TillID,
		UserID:    session.UserID,
		OrderID:   req.OrderID,
		Timestamp: start.UTC(),
	}
	updated, err := s.store.CommitSale(ctx, domain.SaleCommit{
		Sale:         sale,
		Transactions: txs,
		StockChanges: changes,
	})
	if err != nil {
		s.logger.Warn("sale commit failed",
			zap.String("reference", reference),
			zap.String("till_id", session.TillID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("commit sale %s: %w", reference, err)
	}

	for _, p := range sale.Payments {
		s.metrics.AddSaleAmount(domain.ShiftKeyFor(p.Method), p.Amount.InexactFloat64())
	}
	s.metrics.IncrAccountTx(domain.TxSale, len(txs))
	s.logger.Info("sale completed",
		append(observability.SessionFields(session),
			zap.String("sale_id", sale.ID),
			zap.String("reference", reference),
			zap.String("total", total.StringFixed(2)),
			zap.Int("items", len(sale.Items)),
			zap.Int("payments", len(sale.Payments)),
		)...,
	)
	return &domain.SaleReceipt{Sale: sale, Shift: updated, Transactions: txs}, nil
}

// ListSales returns sales matching filter, most recent first.
func (s *CheckoutService) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.ListSales")
	defer span.End()

	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.store.ListSales(ctx, filter)
}

// stockChanges aggregates item quantities per product and checks current stock.
// Items without a product ID are ad-hoc and do not touch inventory.
func (s *CheckoutService) stockChanges(ctx context.Context, items []domain.SaleItem) ([]domain.StockChange, error) {
	qty := make(map[string]int)
	order := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			continue
		}
		if _, seen := qty[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}

	changes := make([]domain.StockChange, 0, len(order))
	for _, id := range order {
		p, err := s.store.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Stock < qty[id] {
			return nil, &domain.ErrInsufficientStock{ProductID: id, Available: p.Stock, Requested: qty[id]}
		}
		changes = append(changes, domain.StockChange{ProductID: id, Delta: -qty[id]})
	}
	return changes, nil
}

// validateSale checks items and payments and returns the sale total.
// Payments must add up to the item total exactly.
func validateSale(req domain.CompleteSaleRequest) (decimal.Decimal, error) {
	total, err := validateItems(req.Items)
	if err != nil {
		return decimal.Zero, err
	}
	if len(req.Payments) == 0 {
		return decimal.Zero, &domain.ErrValidation{Field: "payments", Message: "at least one payment is required"}
	}
	for i, p := range req.Payments {
		if p.Method == "" {
			return decimal.Zero, &domain.ErrValidation{Field: fmt.Sprintf("payments[%d].method", i), Message: "method is required"}
		}
		if err := validateAmount(fmt.Sprintf("payments[%d].amount", i), p.Amount); err != nil {
			return decimal.Zero, err
		}
	}
	if paid := domain.SumPayments(req.Payments); !paid.Equal(total) {
		return decimal.Zero, &domain.ErrValidation{
			Field:   "payments",
			Message: fmt.Sprintf("payments total %s does not match sale total %s", paid.StringFixed(2), total.StringFixed(2)),
		}
	}
	return total, nil
}

// validateItems checks sale, quotation and order lines and returns their positive total.
func validateItems(items []domain.SaleItem) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, &domain.ErrValidation{Field: "items", Message: "at least one item is required"}
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return decimal.Zero, &domain.ErrValidation{Field: fmt.Sprintf("items[%d].name", i), Message: "name is required"}
		}
		if it.Quantity <= 0 {
			return decimal.Zero, &domain.ErrValidation{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be greater than zero"}
		}
		if err := requireNonNegative(fmt.Sprintf("items[%d].unitPrice", i), it.UnitPrice); err != nil {
			return decimal.Zero, err
		}
		if err := requireCents(fmt.Sprintf("items[%d].unitPrice", i), it.UnitPrice); err != nil {
			return decimal.Zero, err
		}
	}
	total := domain.ItemsTotal(items)
	if !total.IsPositive() {
		return decimal.Zero, &domain.ErrValidation{Field: "items", Message: "total must be greater than zero"}
	}
	return total, nil
}

func newSaleReference(now time.Time) string {
	return "SALE-" + now.UTC().Format("20060102-150405") + "-" + strings.ToUpper(uuid.NewString()[:6])
}
