package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

// ============================================================
// Quotations
// ============================================================

func createQuotationHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotations")
		defer span.End()

		var req domain.CreateQuotationRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		q, err := svc.CreateQuotation(ctx, SessionFromContext(ctx).UserID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func listQuotationsHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/quotations")
		defer span.End()

		quotes, err := svc.ListQuotations(ctx, domain.OrderFilter{
			Status: r.URL.Query().Get("status"),
			Limit:  parseLimit(r, 100),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(quotes))
	}
}

func getQuotationHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/quotations/{quotationId}")
		defer span.End()
		q, err := svc.GetQuotation(ctx, chi.URLParam(r, "quotationId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func quotationStatusHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotations/{quotationId}/status")
		defer span.End()

		var req domain.QuotationStatusRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		q, err := svc.SetQuotationStatus(ctx, chi.URLParam(r, "quotationId"), req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func convertQuotationHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotations/{quotationId}/convert")
		defer span.End()
		order, err := svc.ConvertQuotation(ctx, SessionFromContext(ctx).UserID, chi.URLParam(r, "quotationId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	}
}

// ============================================================
// Sales orders
// ============================================================

func createSalesOrderHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sales-orders")
		defer span.End()

		var req domain.CreateSalesOrderRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		order, err := svc.CreateSalesOrder(ctx, SessionFromContext(ctx).UserID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	}
}

func listSalesOrdersHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sales-orders")
		defer span.End()

		orders, err := svc.ListSalesOrders(ctx, domain.OrderFilter{
			Status: r.URL.Query().Get("status"),
			Limit:  parseLimit(r, 100),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(orders))
	}
}

func getSalesOrderHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sales-orders/{orderId}")
		defer span.End()
		order, err := svc.GetSalesOrder(ctx, chi.URLParam(r, "orderId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func cancelSalesOrderHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sales-orders/{orderId}/cancel")
		defer span.End()
		order, err := svc.CancelSalesOrder(ctx, chi.URLParam(r, "orderId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func fulfilSalesOrderHandler(svc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sales-orders/{orderId}/fulfil")
		defer span.End()

		var req domain.FulfilOrderRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		receipt, err := svc.FulfilSalesOrder(ctx, SessionFromContext(ctx), chi.URLParam(r, "orderId"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}
