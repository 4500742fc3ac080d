package service

import (
	"context"
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

var shiftTracer = otel.Tracer("service/shift")

// ShiftService runs the shift ledger of each till.
type ShiftService struct {
	store   port.ShiftStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewShiftService creates a new shift service.
func NewShiftService(store port.ShiftStore, metrics *observability.Metrics, logger *zap.Logger) *ShiftService {
	return &ShiftService{store: store, metrics: metrics, logger: logger}
}

// StartShift opens a shift on the session's till. ErrConflict if one is already active.
func (s *ShiftService) StartShift(ctx context.Context, session domain.Session, openingBalance decimal.Decimal) (*domain.Shift, error) {
	ctx, span := shiftTracer.Start(ctx, "ShiftService.StartShift")
	defer span.End()

	session, err := normalizeSession(session)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("till.id", session.TillID))

	if err := requireNonNegative("openingBalance", openingBalance); err != nil {
		return nil, err
	}
	if err := requireCents("openingBalance", openingBalance); err != nil {
		return nil, err
	}

	shift := domain.NewShift(uuid.NewString(), session, openingBalance, time.Now().UTC())
	if err := s.store.CreateShift(ctx, shift); err != nil {
		return nil, err
	}

	s.metrics.ShiftOpened()
	s.logger.Info("shift started",
		append(observability.SessionFields(session),
			zap.String("shift_id", shift.ID),
			zap.String("opening_balance", openingBalance.StringFixed(2)),
		)...,
	)
	return shift, nil
}

// ActiveShift returns the till's active shift or ErrNotFound.
func (s *ShiftService) ActiveShift(ctx context.Context, session domain.Session) (*domain.Shift, error) {
	ctx, span := shiftTracer.Start(ctx, "ShiftService.ActiveShift")
	defer span.End()

	session, err := normalizeSession(session)
	if err != nil {
		return nil, err
	}
	return s.store.GetActiveShift(ctx, session.TillID)
}

// AddExpense records money paid out of the drawer. Totals are not touched.
func (s *ShiftService) AddExpense(ctx context.Context, session domain.Session, description string, amount decimal.Decimal) (*domain.Shift, error) {
	ctx, span := shiftTracer.Start(ctx, "ShiftService.AddExpense")
	defer span.End()

	session, err := normalizeSession(session)
	if err != nil {
		return nil, err
	}
	if description == "" {
		return nil, &domain.ErrValidation{Field: "description", Message: "description is required"}
	}
	if err := validateAmount("amount", amount); err != nil {
		return nil, err
	}

	expense := domain.Expense{
		ID:          uuid.NewString(),
		Description: description,
		Amount:      amount,
		Timestamp:   time.Now().UTC(),
	}
	shift, err := s.store.UpdateActiveShift(ctx, session.TillID, func(sh *domain.Shift) error {
		sh.AddExpense(expense)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shift expense added",
		zap.String("shift_id", shift.ID),
		zap.String("till_id", session.TillID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return shift, nil
}

// RecordSale adds a sale amount to the active shift under its payment bucket.
// Items only trigger the update; they are not stored on the shift.
func (s *ShiftService) RecordSale(ctx context.Context, session domain.Session, items []domain.SaleItem, method domain.PaymentMethod, amount decimal.Decimal) (*domain.Shift, error) {
	ctx, span := shiftTracer.Start(ctx, "ShiftService.RecordSale")
	defer span.End()

	session, err := normalizeSession(session)
	if err != nil {
		return nil, err
	}
	if method == "" {
		return nil, &domain.ErrValidation{Field: "paymentMethod", Message: "payment method is required"}
	}
	if err := validateAmount("amount", amount); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("payment.method", string(method)),
		attribute.Int("items.count", len(items)),
	)

	var key domain.ShiftPaymentKey
	shift, err := s.store.UpdateActiveShift(ctx, session.TillID, func(sh *domain.Shift) error {
		key = sh.ApplySale(method, amount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddSaleAmount(key, amount.InexactFloat64())
	s.logger.Debug("shift sale recorded",
		zap.String("shift_id", shift.ID),
		zap.String("bucket", string(key)),
		zap.String("amount", amount.StringFixed(2)),
	)
	return shift, nil
}

// CloseShift fixes the closing balance, stamps clock-out and moves the shift into history.
func (s *ShiftService) CloseShift(ctx context.Context, session domain.Session) (*domain.ShiftSummary, error) {
	ctx, span := shiftTracer.Start(ctx, "ShiftService.CloseShift")
	defer span.End()

	session, err := normalizeSession(session)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	shift, err := s.store.UpdateActiveShift(ctx, session.TillID, func(sh *domain.Shift) error {
		sh.Close(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := shift.Summarize()
	s.metrics.ShiftClosed()
	s.logger.Info("shift closed",
		append(observability.SessionFields(session),
			zap.String("shift_id", shift.ID),
			zap.String("total_sales", summary.TotalSales.StringFixed(2)),
			zap.String("closing_balance", summary.ClosingBalance.StringFixed(2)),
			zap.String("duration", summary.Duration),
		)...,
	)
	return summary, nil
}

// History lists the till's closed shifts, most recent first.
func (s *ShiftService) History(ctx context.Context, session domain.Session, limit int) ([]domain.Shift, error) {
	ctx, span := shiftTracer.Start(ctx, "ShiftService.History")
	defer span.End()

	session, err := normalizeSession(session)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListShiftHistory(ctx, session.TillID, limit)
}
