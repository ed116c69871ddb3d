package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/acmebank/mts-backend/internal/api"
	"github.com/acmebank/mts-backend/internal/auth"
	"github.com/acmebank/mts-backend/internal/config"
	"github.com/acmebank/mts-backend/internal/db"
	"github.com/acmebank/mts-backend/internal/logger"
	"github.com/acmebank/mts-backend/internal/metrics"
	"github.com/acmebank/mts-backend/internal/repository/postgres"
	"github.com/acmebank/mts-backend/internal/services"
	"github.com/acmebank/mts-backend/internal/warehouse"
	"github.com/acmebank/mts-backend/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	store := postgres.NewStore(pool)
	tokens := auth.NewTokenManager(
		cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer,
		15*time.Minute, 7*24*time.Hour,
	)

	accountSvc := services.NewAccountService(store)
	transferSvc := services.NewTransactionService(store)
	bankSvc := services.NewBankDetailsService(store)
	userSvc := services.NewUserService(store, tokens)

	metrics.Init()

	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()

	syncer := warehouse.NewSyncer(store.Repos().TransactionLogs, warehouse.LogSink{}, cfg.WarehouseBatch)
	go syncer.Run(ctx, wp, cfg.WarehouseSync)

	r := api.NewRouter(api.RouterDeps{
		Cfg:         cfg,
		Tokens:      tokens,
		AccountSvc:  accountSvc,
		TransferSvc: transferSvc,
		BankSvc:     bankSvc,
		UserSvc:     userSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
