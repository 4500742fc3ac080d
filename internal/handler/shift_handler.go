package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

// ============================================================
// Shift ledger
// ============================================================

func startShiftHandler(svc *service.ShiftService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/shifts")
		defer span.End()

		var req domain.StartShiftRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		shift, err := svc.StartShift(ctx, SessionFromContext(ctx), req.OpeningBalance)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, shift)
	}
}

func activeShiftHandler(svc *service.ShiftService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/shifts/active")
		defer span.End()

		shift, err := svc.ActiveShift(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, shift)
	}
}

func addExpenseHandler(svc *service.ShiftService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/shifts/active/expenses")
		defer span.End()

		var req domain.AddExpenseRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		shift, err := svc.AddExpense(ctx, SessionFromContext(ctx), req.Description, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, shift)
	}
}

func recordShiftSaleHandler(svc *service.ShiftService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/shifts/active/sales")
		defer span.End()

		var req domain.RecordShiftSaleRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		shift, err := svc.RecordSale(ctx, SessionFromContext(ctx), req.Items, req.PaymentMethod, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, shift)
	}
}

func closeShiftHandler(svc *service.ShiftService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/shifts/active/close")
		defer span.End()

		summary, err := svc.CloseShift(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func shiftHistoryHandler(svc *service.ShiftService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/shifts/history")
		defer span.End()

		shifts, err := svc.History(ctx, SessionFromContext(ctx), parseLimit(r, 20))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(shifts))
	}
}
