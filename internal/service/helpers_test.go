package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/cache"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/memstore"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

var cashier = domain.Session{UserID: "user-1", TillID: "till-1", Role: domain.RoleCashier}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store     *memstore.Store
	metrics   *observability.Metrics
	shifts    *service.ShiftService
	accounts  *service.AccountsService
	inventory *service.InventoryService
	checkout  *service.CheckoutService
	orders    *service.OrdersService
	reports   *service.ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	recent := cache.New[string](time.Minute)
	t.Cleanup(recent.Close)

	accounts := service.NewAccountsService(store, metrics, logger)
	inventory := service.NewInventoryService(store, 5, logger)
	checkout := service.NewCheckoutService(store, accounts, recent, metrics, logger)
	return &fixture{
		store:     store,
		metrics:   metrics,
		shifts:    service.NewShiftService(store, metrics, logger),
		accounts:  accounts,
		inventory: inventory,
		checkout:  checkout,
		orders:    service.NewOrdersService(store, checkout, logger),
		reports:   service.NewReportService(store, inventory, metrics, logger),
	}
}

// seeded initializes the default accounts and returns them keyed by type.
func (f *fixture) seeded(t *testing.T) map[domain.AccountType]domain.Account {
	t.Helper()
	accounts, err := f.accounts.InitializeAccounts(context.Background())
	if err != nil {
		t.Fatalf("initialize accounts: %v", err)
	}
	byType := make(map[domain.AccountType]domain.Account, len(accounts))
	for _, a := range accounts {
		byType[a.Type] = a
	}
	return byType
}

func (f *fixture) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance
}
