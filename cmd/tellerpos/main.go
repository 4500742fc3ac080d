package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/config"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/handler"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/cache"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/client"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/memstore"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/resilience"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/sqlstore"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/jobs"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("mpesa_mode", cfg.MpesaMode),
		zap.Duration("stk_poll_interval", cfg.STKPollInterval),
		zap.Int("stk_poll_attempts", cfg.STKPollAttempts),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.String("integrity_cron", cfg.IntegrityCron),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "tellerpos")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var store port.Store
	switch cfg.StoreDriver {
	case "sqlite", "postgres":
		dsn := cfg.SQLitePath
		if cfg.StoreDriver == "postgres" {
			dsn = cfg.DatabaseURL
		}
		sqlStore, err := sqlstore.Open(sqlstore.Options{
			Driver:        cfg.StoreDriver,
			DSN:           dsn,
			MaxOpenConns:  cfg.MaxOpenConns,
			SlowThreshold: 200 * time.Millisecond,
		}, logger)
		if err != nil {
			logger.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
		}
		store = sqlStore
	default:
		logger.Warn("using in-memory store, ledger is lost on restart")
		store = memstore.New()
	}
	defer store.Close()

	// --- Cache ---
	recentSales := cache.New[string](cfg.SaleDedupeTTL)
	defer recentSales.Close()
	stkResults := cache.New[domain.STKStatusResult](cfg.STKResultTTL)
	defer stkResults.Close()

	// --- M-Pesa gateway ---
	var gateway port.MpesaGateway
	if cfg.MpesaMode == "daraja" {
		cb := resilience.NewCircuitBreaker("mpesa-daraja")
		gateway = client.NewDarajaClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			client.DarajaConfig{
				BaseURL:         cfg.MpesaBaseURL,
				ConsumerKey:     cfg.MpesaConsumerKey,
				ConsumerSecret:  cfg.MpesaConsumerSecret,
				ShortCode:       cfg.MpesaShortCode,
				Passkey:         cfg.MpesaPasskey,
				CallbackURL:     cfg.MpesaCallbackURL,
				TransactionType: cfg.MpesaTxnType,
			},
			cb,
			resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff},
		)
		logger.Info("mpesa gateway: daraja", zap.String("base_url", cfg.MpesaBaseURL))
	} else {
		gateway = client.NewSimulator(client.SimulatorOptions{PendingPolls: 2, Seed: time.Now().UnixNano()})
		logger.Info("mpesa gateway: simulator")
	}

	// --- Services ---
	accountsSvc := service.NewAccountsService(store, metrics, logger)
	inventorySvc := service.NewInventoryService(store, cfg.LowStockThreshold, logger)
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	mpesaSvc := service.NewMpesaService(
		gateway,
		stkResults,
		resilience.NewBulkhead(cfg.STKMaxConcurrent),
		resilience.PollConfig{Interval: cfg.STKPollInterval, MaxAttempts: cfg.STKPollAttempts},
		metrics,
		logger,
	)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := accountsSvc.InitializeAccounts(bootCtx); err != nil {
		logger.Fatal("failed to initialize accounts", zap.Error(err))
	}
	if cfg.SeedAdminEmail != "" {
		if err := authSvc.EnsureAdmin(bootCtx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			logger.Fatal("failed to seed admin user", zap.Error(err))
		}
	}
	cancelBoot()

	// --- Jobs ---
	integrity := jobs.NewIntegrityChecker(accountsSvc, cfg.IntegrityCron, logger)
	if err := integrity.Start(); err != nil {
		logger.Fatal("failed to schedule integrity check", zap.Error(err))
	}

	// --- Router ---
	checkoutSvc := service.NewCheckoutService(store, accountsSvc, recentSales, metrics, logger)
	router := handler.NewRouter(handler.Services{
		Shifts:    service.NewShiftService(store, metrics, logger),
		Accounts:  accountsSvc,
		Checkout:  checkoutSvc,
		Orders:    service.NewOrdersService(store, checkoutSvc, logger),
		Inventory: inventorySvc,
		Reports:   service.NewReportService(store, inventorySvc, metrics, logger),
		Auth:      authSvc,
		Mpesa:     mpesaSvc,
		Store:     store,
		Integrity: integrity,
	}, handler.RouterOptions{AllowedOrigins: cfg.CORSAllowedOrigins}, metrics, logger)

	// --- Server ---
	// WriteTimeout leaves room for the await endpoint's full polling window.
	pollWindow := cfg.STKPollInterval * time.Duration(cfg.STKPollAttempts)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: pollWindow + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	integrity.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
