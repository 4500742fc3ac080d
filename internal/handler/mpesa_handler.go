package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

// ============================================================
// M-Pesa STK push
// ============================================================

func stkPushHandler(svc *service.MpesaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/mpesa/stk-push")
		defer span.End()

		var req domain.STKPushRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := svc.InitiateSTKPush(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, resp)
	}
}

func stkStatusHandler(svc *service.MpesaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/mpesa/stk-push/{checkoutRequestId}")
		defer span.End()

		res, err := svc.QueryStatus(ctx, chi.URLParam(r, "checkoutRequestId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// stkAwaitHandler blocks until the push settles, polling is exhausted or the client disconnects.
func stkAwaitHandler(svc *service.MpesaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/mpesa/stk-push/{checkoutRequestId}/await")
		defer span.End()

		res, err := svc.AwaitPayment(ctx, chi.URLParam(r, "checkoutRequestId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
