package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the router dispatches to. A nil service
// leaves its routes unregistered.
type Services struct {
	Shifts    *service.ShiftService
	Accounts  *service.AccountsService
	Checkout  *service.CheckoutService
	Orders    *service.OrdersService
	Inventory *service.InventoryService
	Reports   *service.ReportService
	Auth      *service.AuthService
	Mpesa     *service.MpesaService
	Store     Pinger
	Integrity IntegrityReport
}

// IntegrityReport exposes the outcome of the last scheduled ledger integrity check.
type IntegrityReport interface {
	LastResult() ([]domain.BalanceDrift, time.Time)
}

// RouterOptions tunes cross-cutting HTTP behaviour.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts RouterOptions, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", TillHeader},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Store, logger))
	r.Get("/readyz", readyzHandler())
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/pos", posMetricsHandler(metrics))

		if svc.Auth == nil {
			logger.Warn("auth service not configured, ledger routes unavailable")
			return
		}
		r.Post("/auth/login", loginHandler(svc.Auth, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Auth, logger))
			priv := func(p domain.Privilege) func(http.Handler) http.Handler {
				return RequirePrivilege(p, logger)
			}

			// =============================================
			// Users
			// =============================================
			r.Get("/me", meHandler(svc.Auth, logger))
			r.With(priv(domain.PrivManageUsers)).Post("/users", createUserHandler(svc.Auth, logger))

			// =============================================
			// Shift ledger
			// =============================================
			if svc.Shifts != nil {
				r.Route("/shifts", func(r chi.Router) {
					r.Use(priv(domain.PrivOperateTill))
					r.Post("/", startShiftHandler(svc.Shifts, logger))
					r.Get("/history", shiftHistoryHandler(svc.Shifts, logger))
					r.Get("/active", activeShiftHandler(svc.Shifts, logger))
					r.Post("/active/expenses", addExpenseHandler(svc.Shifts, logger))
					r.Post("/active/sales", recordShiftSaleHandler(svc.Shifts, logger))
					r.Post("/active/close", closeShiftHandler(svc.Shifts, logger))
				})
			}

			// =============================================
			// Account ledger
			// =============================================
			if svc.Accounts != nil {
				r.Route("/accounts", func(r chi.Router) {
					r.Get("/", listAccountsHandler(svc.Accounts, logger))
					r.Get("/transactions", listTransactionsHandler(svc.Accounts, logger))
					r.With(priv(domain.PrivManageAccounts)).Post("/initialize", initializeAccountsHandler(svc.Accounts, logger))
					r.With(priv(domain.PrivManageAccounts)).Post("/{accountId}/transactions", updateBalanceHandler(svc.Accounts, logger))
					r.With(priv(domain.PrivOperateTill)).Post("/sales", recordSaleInAccountsHandler(svc.Accounts, logger))
					r.With(priv(domain.PrivManageAccounts)).Get("/transfers", listTransfersHandler(svc.Accounts, logger))
					r.With(priv(domain.PrivManageAccounts)).Post("/transfers", transferHandler(svc.Accounts, logger))
					r.With(priv(domain.PrivReconcileAccounts)).Post("/{accountId}/reconcile", reconcileHandler(svc.Accounts, logger))
					r.With(priv(domain.PrivReconcileAccounts)).Get("/integrity", integrityHandler(svc.Accounts, svc.Integrity, logger))
				})
			}

			// =============================================
			// Inventory
			// =============================================
			if svc.Inventory != nil {
				r.Route("/inventory", func(r chi.Router) {
					r.Get("/", listProductsHandler(svc.Inventory, logger))
					r.Get("/low-stock", lowStockHandler(svc.Inventory, logger))
					r.Get("/{productId}", getProductHandler(svc.Inventory, logger))
					r.With(priv(domain.PrivManageInventory)).Post("/", createProductHandler(svc.Inventory, logger))
					r.With(priv(domain.PrivManageInventory)).Put("/{productId}", updateProductHandler(svc.Inventory, logger))
					r.With(priv(domain.PrivManageInventory)).Post("/{productId}/adjust", adjustStockHandler(svc.Inventory, logger))
				})
			}

			// =============================================
			// Sales & reports
			// =============================================
			if svc.Checkout != nil {
				r.Get("/sales", listSalesHandler(svc.Checkout, logger))
				r.With(priv(domain.PrivOperateTill)).Post("/sales", completeSaleHandler(svc.Checkout, logger))
			}
			if svc.Reports != nil {
				r.With(priv(domain.PrivViewReports)).Get("/reports/sales", salesReportHandler(svc.Reports, logger))
				r.With(priv(domain.PrivViewReports)).Get("/reports/dashboard", dashboardHandler(svc.Reports, logger))
			}

			// =============================================
			// Quotations & sales orders
			// =============================================
			if svc.Orders != nil {
				r.Route("/quotations", func(r chi.Router) {
					r.Use(priv(domain.PrivOperateTill))
					r.Get("/", listQuotationsHandler(svc.Orders, logger))
					r.Post("/", createQuotationHandler(svc.Orders, logger))
					r.Get("/{quotationId}", getQuotationHandler(svc.Orders, logger))
					r.Post("/{quotationId}/status", quotationStatusHandler(svc.Orders, logger))
					r.Post("/{quotationId}/convert", convertQuotationHandler(svc.Orders, logger))
				})
				r.Route("/sales-orders", func(r chi.Router) {
					r.Use(priv(domain.PrivOperateTill))
					r.Get("/", listSalesOrdersHandler(svc.Orders, logger))
					r.Post("/", createSalesOrderHandler(svc.Orders, logger))
					r.Get("/{orderId}", getSalesOrderHandler(svc.Orders, logger))
					r.Post("/{orderId}/fulfil", fulfilSalesOrderHandler(svc.Orders, logger))
					r.With(priv(domain.PrivManageOrders)).Post("/{orderId}/cancel", cancelSalesOrderHandler(svc.Orders, logger))
				})
			}

			// =============================================
			// M-Pesa STK push
			// =============================================
			if svc.Mpesa != nil {
				r.Route("/mpesa/stk-push", func(r chi.Router) {
					r.Use(priv(domain.PrivOperateTill))
					r.Post("/", stkPushHandler(svc.Mpesa, logger))
					r.Get("/{checkoutRequestId}", stkStatusHandler(svc.Mpesa, logger))
					r.Post("/{checkoutRequestId}/await", stkAwaitHandler(svc.Mpesa, logger))
				})
			}
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "tellerpos-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			start := time.Now()
			err := store.Ping(ctx)
			h := domain.ServiceHealth{
				Name: "store", Status: "healthy",
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			}
			if err != nil {
				logger.Warn("health: store ping failed", zap.Error(err))
				h.Status = "unhealthy"
				h.Error = err.Error()
			}
			services = append(services, h)
		}

		overallStatus := "healthy"
		status := http.StatusOK
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				status = http.StatusServiceUnavailable
				break
			}
		}

		writeJSON(w, status, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func posMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/pos")
		defer span.End()

		if metrics == nil {
			writeError(w, http.StatusServiceUnavailable, "metrics not configured")
			return
		}
		writeJSON(w, http.StatusOK, metrics.GetPOSSnapshot())
	}
}
