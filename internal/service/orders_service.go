package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

var ordersTracer = otel.Tracer("service/orders")

// OrdersService manages quotations and sales orders. Orders are fulfilled through
// the checkout, so a fulfilled order always has exactly one committed sale behind it.
type OrdersService struct {
	store    port.OrderStore
	checkout *CheckoutService
	logger   *zap.Logger
	now      func() time.Time
}

func NewOrdersService(store port.OrderStore, checkout *CheckoutService, logger *zap.Logger) *OrdersService {
	return &OrdersService{
		store:    store,
		checkout: checkout,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ============================================================
// Quotations
// ============================================================

// CreateQuotation records an open quotation. Nothing moves until it is converted and fulfilled.
func (s *OrdersService) CreateQuotation(ctx context.Context, userID string, req domain.CreateQuotationRequest) (*domain.Quotation, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.CreateQuotation")
	defer span.End()

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "customerName", Message: "customer name is required"}
	}
	total, err := validateItems(req.Items)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if req.ValidUntil != nil && !req.ValidUntil.After(now) {
		return nil, &domain.ErrValidation{Field: "validUntil", Message: "must be in the future"}
	}

	id := uuid.NewString()
	q := &domain.Quotation{
		ID:            id,
		Number:        orderNumber("QT", now, id),
		CustomerName:  name,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Items:         append([]domain.SaleItem(nil), req.Items...),
		Total:         total,
		Status:        domain.QuotationOpen,
		ValidUntil:    req.ValidUntil,
		Notes:         req.Notes,
		UserID:        userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateQuotation(ctx, q); err != nil {
		return nil, err
	}

	s.logger.Info("quotation created",
		zap.String("quotation_id", q.ID),
		zap.String("number", q.Number),
		zap.String("total", total.StringFixed(2)),
	)
	return q, nil
}

func (s *OrdersService) GetQuotation(ctx context.Context, quotationID string) (*domain.Quotation, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.GetQuotation")
	defer span.End()

	return s.store.GetQuotation(ctx, quotationID)
}

func (s *OrdersService) ListQuotations(ctx context.Context, filter domain.OrderFilter) ([]domain.Quotation, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.ListQuotations")
	defer span.End()

	if filter.Status != "" && !domain.QuotationStatus(filter.Status).Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown quotation status"}
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.store.ListQuotations(ctx, filter)
}

// SetQuotationStatus accepts or declines a quotation. An expired quotation can
// still be declined but no longer accepted.
func (s *OrdersService) SetQuotationStatus(ctx context.Context, quotationID string, status domain.QuotationStatus) (*domain.Quotation, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.SetQuotationStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("quotation.id", quotationID),
		attribute.String("quotation.status", string(status)),
	)

	if status != domain.QuotationAccepted && status != domain.QuotationDeclined {
		return nil, &domain.ErrValidation{Field: "status", Message: "must be accepted or declined"}
	}
	now := s.now()
	q, err := s.store.UpdateQuotation(ctx, quotationID, func(q *domain.Quotation) error {
		if !q.Status.CanMoveTo(status) {
			return &domain.ErrConflict{Message: fmt.Sprintf("quotation %s is %s", q.Number, q.Status)}
		}
		if status == domain.QuotationAccepted && q.Expired(now) {
			return &domain.ErrConflict{Message: "quotation " + q.Number + " has expired"}
		}
		q.Status = status
		q.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation status changed",
		zap.String("quotation_id", q.ID),
		zap.String("status", string(q.Status)),
	)
	return q, nil
}

// ConvertQuotation turns an open or accepted quotation into a pending sales order
// with the same lines. The quotation is marked converted in the same store step.
func (s *OrdersService) ConvertQuotation(ctx context.Context, userID, quotationID string) (*domain.SalesOrder, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.ConvertQuotation")
	defer span.End()
	span.SetAttributes(attribute.String("quotation.id", quotationID))

	now := s.now()
	order, err := s.store.ConvertQuotation(ctx, quotationID, func(q *domain.Quotation) (*domain.SalesOrder, error) {
		if q.Status != domain.QuotationOpen && q.Status != domain.QuotationAccepted {
			return nil, &domain.ErrConflict{Message: fmt.Sprintf("quotation %s is %s", q.Number, q.Status)}
		}
		if q.Expired(now) {
			return nil, &domain.ErrConflict{Message: "quotation " + q.Number + " has expired"}
		}
		id := uuid.NewString()
		o := &domain.SalesOrder{
			ID:            id,
			Number:        orderNumber("SO", now, id),
			QuotationID:   q.ID,
			CustomerName:  q.CustomerName,
			CustomerPhone: q.CustomerPhone,
			Items:         append([]domain.SaleItem(nil), q.Items...),
			Total:         q.Total,
			Status:        domain.OrderPending,
			Notes:         q.Notes,
			UserID:        userID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		q.Status = domain.QuotationConverted
		q.SalesOrderID = o.ID
		q.UpdatedAt = now
		return o, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation converted",
		zap.String("quotation_id", quotationID),
		zap.String("order_id", order.ID),
		zap.String("number", order.Number),
	)
	return order, nil
}

// ============================================================
// Sales orders
// ============================================================

func (s *OrdersService) CreateSalesOrder(ctx context.Context, userID string, req domain.CreateSalesOrderRequest) (*domain.SalesOrder, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.CreateSalesOrder")
	defer span.End()

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "customerName", Message: "customer name is required"}
	}
	total, err := validateItems(req.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	id := uuid.NewString()
	o := &domain.SalesOrder{
		ID:            id,
		Number:        orderNumber("SO", now, id),
		CustomerName:  name,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Items:         append([]domain.SaleItem(nil), req.Items...),
		Total:         total,
		Status:        domain.OrderPending,
		Notes:         req.Notes,
		UserID:        userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateSalesOrder(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("sales order created",
		zap.String("order_id", o.ID),
		zap.String("number", o.Number),
		zap.String("total", total.StringFixed(2)),
	)
	return o, nil
}

func (s *OrdersService) GetSalesOrder(ctx context.Context, orderID string) (*domain.SalesOrder, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.GetSalesOrder")
	defer span.End()

	return s.store.GetSalesOrder(ctx, orderID)
}

func (s *OrdersService) ListSalesOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.SalesOrder, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.ListSalesOrders")
	defer span.End()

	if filter.Status != "" && !domain.SalesOrderStatus(filter.Status).Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown sales order status"}
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.store.ListSalesOrders(ctx, filter)
}

// CancelSalesOrder drops a pending order. Fulfilled orders stay fulfilled.
func (s *OrdersService) CancelSalesOrder(ctx context.Context, orderID string) (*domain.SalesOrder, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.CancelSalesOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	now := s.now()
	o, err := s.store.UpdateSalesOrder(ctx, orderID, func(o *domain.SalesOrder) error {
		return o.Cancel(now)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("sales order cancelled", zap.String("order_id", o.ID))
	return o, nil
}

// FulfilSalesOrder completes the order's sale on the session's till. The sale
// commit marks the order fulfilled, so two tills racing on one order produce one sale.
func (s *OrdersService) FulfilSalesOrder(ctx context.Context, session domain.Session, orderID string, req domain.FulfilOrderRequest) (*domain.SaleReceipt, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.FulfilSalesOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	o, err := s.store.GetSalesOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderPending {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("sales order %s is %s", o.Number, o.Status)}
	}

	receipt, err := s.checkout.CompleteSale(ctx, session, domain.CompleteSaleRequest{
		Reference: req.Reference,
		Items:     o.Items,
		Payments:  req.Payments,
		OrderID:   o.ID,
	})
	if err != nil {
		s.logger.Warn("sales order not fulfilled",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("sales order fulfilled",
		zap.String("order_id", o.ID),
		zap.String("number", o.Number),
		zap.String("sale_reference", receipt.Sale.Reference),
	)
	return receipt, nil
}

func orderNumber(prefix string, now time.Time, id string) string {
	return prefix + "-" + now.Format("20060102") + "-" + strings.ToUpper(id[:8])
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
