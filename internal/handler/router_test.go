package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/handler"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/cache"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/client"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/memstore"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/resilience"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/jobs"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.RouterOptions{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return context.DeadlineExceeded }

func TestHealthzStoreDown(t *testing.T) {
	router := handler.NewRouter(handler.Services{Store: downStore{}}, handler.RouterOptions{}, observability.NewMetrics(), zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	var health domain.HealthStatus
	json.NewDecoder(rec.Body).Decode(&health)
	if health.Status != "unhealthy" {
		t.Errorf("status = %s, want unhealthy", health.Status)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.RouterOptions{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.RouterOptions{}, observability.NewMetrics(), zap.NewNop())

	for _, path := range []string{"/metrics", "/v1/metrics/pos"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.RouterOptions{AllowedOrigins: []string{"https://pos.example.com"}},
		observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodOptions, "/v1/sales", nil)
	req.Header.Set("Origin", "https://pos.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://pos.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
}

// --- Full flow ---

type api struct {
	t         *testing.T
	server    *httptest.Server
	integrity *jobs.IntegrityChecker
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memstore.New()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	recent := cache.New[string](time.Minute)
	results := cache.New[domain.STKStatusResult](time.Hour)
	t.Cleanup(recent.Close)
	t.Cleanup(results.Close)

	auth := service.NewAuthService(store, "router-test-secret", time.Hour, logger).WithBcryptCost(bcrypt.MinCost)
	if err := auth.EnsureAdmin(context.Background(), "admin@shop.co.ke", "admin-pass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	accounts := service.NewAccountsService(store, metrics, logger)
	inventory := service.NewInventoryService(store, 5, logger)
	checkout := service.NewCheckoutService(store, accounts, recent, metrics, logger)
	sim := client.NewSimulator(client.SimulatorOptions{PendingPolls: 1, ResultCode: domain.STKResultSuccess})
	integrity := jobs.NewIntegrityChecker(accounts, "0 0 2 * * *", logger)

	router := handler.NewRouter(handler.Services{
		Shifts:    service.NewShiftService(store, metrics, logger),
		Accounts:  accounts,
		Checkout:  checkout,
		Orders:    service.NewOrdersService(store, checkout, logger),
		Inventory: inventory,
		Reports:   service.NewReportService(store, inventory, metrics, logger),
		Auth:      auth,
		Mpesa: service.NewMpesaService(sim, results, resilience.NewBulkhead(4),
			resilience.PollConfig{Interval: time.Millisecond, MaxAttempts: 5}, metrics, logger),
		Store:     store,
		Integrity: integrity,
	}, handler.RouterOptions{}, metrics, logger)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &api{t: t, server: server, integrity: integrity}
}

func (a *api) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.TillHeader, "till-7")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	var resp domain.LoginResponse
	if code := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": password}, &resp); code != http.StatusOK {
		a.t.Fatalf("login %s: status %d", email, code)
	}
	return resp.AccessToken
}

func TestRouter_SaleFlow(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@shop.co.ke", "admin-pass")

	if code := a.do(http.MethodGet, "/v1/accounts", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", code)
	}

	var accounts domain.ListResponse[domain.Account]
	if code := a.do(http.MethodPost, "/v1/accounts/initialize", admin, nil, &accounts); code != http.StatusOK {
		t.Fatalf("initialize: status %d", code)
	}
	if accounts.Total != 7 {
		t.Fatalf("expected 7 accounts, got %d", accounts.Total)
	}

	if code := a.do(http.MethodPost, "/v1/users", admin, domain.CreateUserRequest{
		Email: "cashier@shop.co.ke", Name: "Wanjiru", Role: domain.RoleCashier, Password: "cashier-pass",
	}, nil); code != http.StatusCreated {
		t.Fatalf("create cashier: status %d", code)
	}
	cashier := a.login("cashier@shop.co.ke", "cashier-pass")

	var product domain.Product
	if code := a.do(http.MethodPost, "/v1/inventory", admin, domain.CreateProductRequest{
		SKU: "SODA-500", Name: "Soda 500ml", Price: decimal.NewFromInt(80), Stock: 3,
	}, &product); code != http.StatusCreated {
		t.Fatalf("create product: status %d", code)
	}
	if code := a.do(http.MethodPost, "/v1/inventory", cashier, domain.CreateProductRequest{
		SKU: "X", Name: "X", Price: decimal.NewFromInt(1),
	}, nil); code != http.StatusForbidden {
		t.Errorf("cashier creating product: expected 403, got %d", code)
	}

	var shift domain.Shift
	if code := a.do(http.MethodPost, "/v1/shifts", cashier, domain.StartShiftRequest{OpeningBalance: decimal.NewFromInt(500)}, &shift); code != http.StatusCreated {
		t.Fatalf("start shift: status %d", code)
	}
	if shift.TillID != "till-7" {
		t.Errorf("shift opened on %s, want till-7", shift.TillID)
	}
	if code := a.do(http.MethodPost, "/v1/shifts", cashier, domain.StartShiftRequest{}, nil); code != http.StatusConflict {
		t.Errorf("second shift: expected 409, got %d", code)
	}

	sale := domain.CompleteSaleRequest{
		Reference: "SALE-HTTP-1",
		Items:     []domain.SaleItem{{ProductID: product.ID, Name: product.Name, Quantity: 2, UnitPrice: decimal.NewFromInt(80)}},
		Payments: []domain.Payment{
			{Method: domain.PaymentCash, Amount: decimal.NewFromInt(60)},
			{Method: domain.PaymentMpesaSTK, Amount: decimal.NewFromInt(100)},
		},
	}
	var receipt domain.SaleReceipt
	if code := a.do(http.MethodPost, "/v1/sales", cashier, sale, &receipt); code != http.StatusCreated {
		t.Fatalf("complete sale: status %d", code)
	}
	if !receipt.Shift.TotalSales.Equal(decimal.NewFromInt(160)) {
		t.Errorf("shift total = %s, want 160", receipt.Shift.TotalSales)
	}
	if code := a.do(http.MethodPost, "/v1/sales", cashier, sale, nil); code != http.StatusConflict {
		t.Errorf("duplicate sale: expected 409, got %d", code)
	}

	sale.Reference = "SALE-HTTP-2"
	if code := a.do(http.MethodPost, "/v1/sales", cashier, sale, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("oversold: expected 422, got %d", code)
	}

	var bad struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if code := a.do(http.MethodPost, "/v1/sales", cashier, map[string]any{"items": []any{}}, &bad); code != http.StatusBadRequest {
		t.Errorf("empty sale: expected 400, got %d", code)
	}
	if bad.Field == "" {
		t.Error("validation error should name the field")
	}

	if code := a.do(http.MethodGet, "/v1/reports/dashboard", cashier, nil, nil); code != http.StatusForbidden {
		t.Errorf("cashier dashboard: expected 403, got %d", code)
	}
	var summary domain.SalesSummary
	if code := a.do(http.MethodGet, "/v1/reports/sales?tillId=till-7", admin, nil, &summary); code != http.StatusOK {
		t.Fatalf("sales report: status %d", code)
	}
	if summary.Count != 1 {
		t.Errorf("report counted %d sales, want 1", summary.Count)
	}

	var closed domain.ShiftSummary
	if code := a.do(http.MethodPost, "/v1/shifts/active/close", cashier, nil, &closed); code != http.StatusOK {
		t.Fatalf("close shift: status %d", code)
	}
	if code := a.do(http.MethodGet, "/v1/shifts/active", cashier, nil, nil); code != http.StatusNotFound {
		t.Errorf("active after close: expected 404, got %d", code)
	}
}

func TestRouter_ReconcileAndIntegrity(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@shop.co.ke", "admin-pass")

	var accounts domain.ListResponse[domain.Account]
	a.do(http.MethodPost, "/v1/accounts/initialize", admin, nil, &accounts)
	var cash domain.Account
	for _, acc := range accounts.Data {
		if acc.Type == domain.AccountCash {
			cash = acc
		}
	}

	if code := a.do(http.MethodPost, "/v1/accounts/"+cash.ID+"/transactions", admin, domain.BalanceUpdate{
		Amount: decimal.NewFromInt(1000), Type: domain.TxDeposit, Description: "float",
	}, nil); code != http.StatusCreated {
		t.Fatalf("deposit: status %d", code)
	}
	if code := a.do(http.MethodPost, "/v1/accounts/"+cash.ID+"/transactions", admin, domain.BalanceUpdate{
		Amount: decimal.NewFromInt(50), Type: domain.TxAdjustment, Direction: domain.DirectionOut, Description: "shrink",
	}, nil); code != http.StatusBadRequest {
		t.Errorf("adjustment with out direction: expected 400, got %d", code)
	}

	var rec domain.Reconciliation
	if code := a.do(http.MethodPost, "/v1/accounts/"+cash.ID+"/reconcile", admin, domain.ReconcileRequest{
		ActualBalance: decimal.NewFromInt(980), Note: "count",
	}, &rec); code != http.StatusOK {
		t.Fatalf("reconcile: status %d", code)
	}
	if !rec.Difference.Equal(decimal.NewFromInt(-20)) || !rec.Account.Balance.Equal(decimal.NewFromInt(980)) {
		t.Errorf("unexpected reconciliation: %+v", rec)
	}

	type integrityBody struct {
		Consistent       bool                  `json:"consistent"`
		LastScheduledRun *time.Time            `json:"lastScheduledRun"`
		ScheduledDrifts  []domain.BalanceDrift `json:"scheduledDrifts"`
	}
	var before integrityBody
	if code := a.do(http.MethodGet, "/v1/accounts/integrity", admin, nil, &before); code != http.StatusOK || !before.Consistent {
		t.Errorf("integrity: status %d consistent=%v", code, before.Consistent)
	}
	if before.LastScheduledRun != nil {
		t.Errorf("no scheduled run yet, got %v", before.LastScheduledRun)
	}

	if _, err := a.integrity.RunOnce(context.Background()); err != nil {
		t.Fatalf("run integrity check: %v", err)
	}
	var after integrityBody
	if code := a.do(http.MethodGet, "/v1/accounts/integrity", admin, nil, &after); code != http.StatusOK {
		t.Fatalf("integrity after run: status %d", code)
	}
	if after.LastScheduledRun == nil || after.LastScheduledRun.IsZero() {
		t.Error("expected the scheduled run to be reported")
	}
	if after.ScheduledDrifts == nil || len(after.ScheduledDrifts) != 0 {
		t.Errorf("scheduled drifts = %+v, want empty list", after.ScheduledDrifts)
	}
}

func TestRouter_QuotationToOrder(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@shop.co.ke", "admin-pass")
	a.do(http.MethodPost, "/v1/accounts/initialize", admin, nil, nil)
	if code := a.do(http.MethodPost, "/v1/users", admin, domain.CreateUserRequest{
		Email: "till@shop.co.ke", Name: "Achieng", Role: domain.RoleCashier, Password: "cashier-pass",
	}, nil); code != http.StatusCreated {
		t.Fatalf("create cashier: status %d", code)
	}
	cashier := a.login("till@shop.co.ke", "cashier-pass")

	var quote domain.Quotation
	if code := a.do(http.MethodPost, "/v1/quotations", cashier, domain.CreateQuotationRequest{
		CustomerName: "Baraka Builders",
		Items:        []domain.SaleItem{{Name: "Iron sheets", Quantity: 10, UnitPrice: decimal.NewFromInt(950)}},
	}, &quote); code != http.StatusCreated {
		t.Fatalf("create quotation: status %d", code)
	}
	if code := a.do(http.MethodPost, "/v1/quotations/"+quote.ID+"/status", cashier, domain.QuotationStatusRequest{
		Status: domain.QuotationConverted,
	}, nil); code != http.StatusBadRequest {
		t.Errorf("manual conversion: expected 400, got %d", code)
	}

	var order domain.SalesOrder
	if code := a.do(http.MethodPost, "/v1/quotations/"+quote.ID+"/convert", cashier, nil, &order); code != http.StatusCreated {
		t.Fatalf("convert: status %d", code)
	}
	if code := a.do(http.MethodPost, "/v1/quotations/"+quote.ID+"/convert", cashier, nil, nil); code != http.StatusConflict {
		t.Errorf("second conversion: expected 409, got %d", code)
	}
	if code := a.do(http.MethodPost, "/v1/sales-orders/"+order.ID+"/cancel", cashier, nil, nil); code != http.StatusForbidden {
		t.Errorf("cashier cancelling: expected 403, got %d", code)
	}

	fulfil := domain.FulfilOrderRequest{
		Payments: []domain.Payment{{Method: domain.PaymentCash, Amount: decimal.NewFromInt(9500)}},
	}
	if code := a.do(http.MethodPost, "/v1/sales-orders/"+order.ID+"/fulfil", cashier, fulfil, nil); code != http.StatusNotFound {
		t.Errorf("fulfil without a shift: expected 404, got %d", code)
	}
	if code := a.do(http.MethodPost, "/v1/shifts", cashier, domain.StartShiftRequest{}, nil); code != http.StatusCreated {
		t.Fatalf("start shift: status %d", code)
	}
	var receipt domain.SaleReceipt
	if code := a.do(http.MethodPost, "/v1/sales-orders/"+order.ID+"/fulfil", cashier, fulfil, &receipt); code != http.StatusCreated {
		t.Fatalf("fulfil: status %d", code)
	}
	if receipt.Sale.OrderID != order.ID || !receipt.Shift.TotalSales.Equal(decimal.NewFromInt(9500)) {
		t.Errorf("unexpected receipt: %+v", receipt.Sale)
	}

	var fulfilled domain.ListResponse[domain.SalesOrder]
	if code := a.do(http.MethodGet, "/v1/sales-orders?status=fulfilled", cashier, nil, &fulfilled); code != http.StatusOK {
		t.Fatalf("list orders: status %d", code)
	}
	if fulfilled.Total != 1 || fulfilled.Data[0].SaleReference != receipt.Sale.Reference {
		t.Errorf("fulfilled orders: %+v", fulfilled.Data)
	}
	if code := a.do(http.MethodPost, "/v1/sales-orders/"+order.ID+"/cancel", admin, nil, nil); code != http.StatusConflict {
		t.Errorf("cancel fulfilled: expected 409, got %d", code)
	}
}

func TestRouter_STKPush(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@shop.co.ke", "admin-pass")

	var push domain.STKPushResponse
	if code := a.do(http.MethodPost, "/v1/mpesa/stk-push", admin, domain.STKPushRequest{
		PhoneNumber: "0712345678", Amount: decimal.NewFromInt(50), AccountReference: "SALE-1",
	}, &push); code != http.StatusAccepted {
		t.Fatalf("push: status %d", code)
	}

	var res domain.STKStatusResult
	if code := a.do(http.MethodPost, "/v1/mpesa/stk-push/"+push.CheckoutRequestID+"/await", admin, nil, &res); code != http.StatusOK {
		t.Fatalf("await: status %d", code)
	}
	if res.Status != domain.STKSuccess {
		t.Errorf("status = %s, want success", res.Status)
	}

	if code := a.do(http.MethodGet, "/v1/mpesa/stk-push/ws_CO_unknown", admin, nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown checkout: expected 404, got %d", code)
	}
}
