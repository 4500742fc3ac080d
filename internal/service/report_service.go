package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

var reportTracer = otel.Tracer("service/report")

const (
	dashboardRecentShifts = 5
	reportSalesLimit      = 10000
)

// ReportService builds read-only views over sales, shifts and accounts.
type ReportService struct {
	store     port.Store
	inventory *InventoryService
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewReportService(store port.Store, inventory *InventoryService, metrics *observability.Metrics, logger *zap.Logger) *ReportService {
	return &ReportService{
		store:     store,
		inventory: inventory,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SalesSummary aggregates all sales in [from, to). tillID narrows it to one till when set.
func (s *ReportService) SalesSummary(ctx context.Context, tillID string, from, to time.Time) (*domain.SalesSummary, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.SalesSummary")
	defer span.End()

	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, &domain.ErrValidation{Field: "from", Message: "must be before to"}
	}

	sales, err := s.store.ListSales(ctx, domain.SaleFilter{TillID: tillID, From: from, To: to, Limit: reportSalesLimit})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	span.SetAttributes(attribute.Int("sales.count", len(sales)))
	return domain.SummarizeSales(from, to, sales), nil
}

// Dashboard gathers the back-office snapshot of the session's till concurrently.
func (s *ReportService) Dashboard(ctx context.Context, session domain.Session) (*domain.Dashboard, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Dashboard")
	defer span.End()

	session, err := normalizeSession(session)
	if err != nil {
		return nil, err
	}

	start := s.now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()).UTC()
	dash := &domain.Dashboard{TillID: session.TillID, GeneratedAt: start.UTC()}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		accounts, err := s.store.ListAccounts(gCtx)
		if err != nil {
			return fmt.Errorf("accounts: %w", err)
		}
		total := decimal.Zero
		for _, a := range accounts {
			total = total.Add(a.Balance)
		}
		dash.Accounts = accounts
		dash.TotalBalance = total
		return nil
	})

	g.Go(func() error {
		summary, err := s.SalesSummary(gCtx, session.TillID, dayStart, dayStart.Add(24*time.Hour))
		if err != nil {
			return fmt.Errorf("today's sales: %w", err)
		}
		dash.Today = summary
		return nil
	})

	g.Go(func() error {
		shift, err := s.store.GetActiveShift(gCtx, session.TillID)
		var nf *domain.ErrNotFound
		switch {
		case errors.As(err, &nf):
			return nil
		case err != nil:
			return fmt.Errorf("active shift: %w", err)
		}
		dash.ActiveShift = shift
		return nil
	})

	g.Go(func() error {
		shifts, err := s.store.ListShiftHistory(gCtx, session.TillID, dashboardRecentShifts)
		if err != nil {
			return fmt.Errorf("shift history: %w", err)
		}
		dash.RecentShifts = shifts
		return nil
	})

	g.Go(func() error {
		low, err := s.inventory.LowStock(gCtx)
		if err != nil {
			return fmt.Errorf("low stock: %w", err)
		}
		dash.LowStock = low
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard failed",
			zap.String("till_id", session.TillID),
			zap.Error(err),
		)
		return nil, err
	}
	return dash, nil
}
