package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

// ============================================================
// Sales & reports
// ============================================================

func completeSaleHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sales")
		defer span.End()

		var req domain.CompleteSaleRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		receipt, err := svc.CompleteSale(ctx, SessionFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}

func listSalesHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sales")
		defer span.End()

		from, err := parseTimeParam(r, "from")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := parseTimeParam(r, "to")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		q := r.URL.Query()
		sales, err := svc.ListSales(ctx, domain.SaleFilter{
			ShiftID: q.Get("shiftId"),
			TillID:  q.Get("tillId"),
			From:    from,
			To:      to,
			Limit:   parseLimit(r, 100),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(sales))
	}
}

func salesReportHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/sales")
		defer span.End()

		from, err := parseTimeParam(r, "from")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := parseTimeParam(r, "to")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if from.IsZero() && to.IsZero() {
			from = time.Now().UTC().Truncate(24 * time.Hour)
			to = from.Add(24 * time.Hour)
		}

		summary, err := svc.SalesSummary(ctx, r.URL.Query().Get("tillId"), from, to)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func dashboardHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/dashboard")
		defer span.End()

		dash, err := svc.Dashboard(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}
