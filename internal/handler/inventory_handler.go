package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

// ============================================================
// Inventory
// ============================================================

func listProductsHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/inventory")
		defer span.End()
		products, err := svc.ListProducts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(products))
	}
}

func lowStockHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/inventory/low-stock")
		defer span.End()
		products, err := svc.LowStock(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(products))
	}
}

func getProductHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/inventory/{productId}")
		defer span.End()
		product, err := svc.GetProduct(ctx, chi.URLParam(r, "productId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func createProductHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/inventory")
		defer span.End()

		var req domain.CreateProductRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		product, err := svc.CreateProduct(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	}
}

func updateProductHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/inventory/{productId}")
		defer span.End()

		var req domain.UpdateProductRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		product, err := svc.UpdateProduct(ctx, chi.URLParam(r, "productId"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func adjustStockHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/inventory/{productId}/adjust")
		defer span.End()

		var req domain.StockAdjustRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		product, err := svc.AdjustStock(ctx, chi.URLParam(r, "productId"), req.Delta, req.Reason)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}
