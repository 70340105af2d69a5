package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GeniusFinance/house-gerencer/internal/config"
	apphttp "github.com/GeniusFinance/house-gerencer/internal/http"
	"github.com/GeniusFinance/house-gerencer/internal/ledger"
	gsheet "github.com/GeniusFinance/house-gerencer/internal/ledger/google"
	mem "github.com/GeniusFinance/house-gerencer/internal/ledger/memory"
	applog "github.com/GeniusFinance/house-gerencer/internal/log"
	"github.com/GeniusFinance/house-gerencer/internal/services"
	"github.com/GeniusFinance/house-gerencer/internal/storage"
)

func main() {
	// Local development keeps sheet IDs in a .env file.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentApp})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var store ledger.Ledger
	switch cfg.DataBackend {
	case "sheets":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err, "backend", cfg.DataBackend)
			os.Exit(1)
		}
		store = cli
		logger.Info("Initialized Google Sheets backend", "backend", cfg.DataBackend)
	default:
		store = mem.New()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	proofs, err := storage.NewProofStore(cfg.ProofDir, cfg.ProofBaseURL)
	if err != nil {
		logger.Error("Failed to initialize proof storage", "error", err, "dir", cfg.ProofDir)
		os.Exit(1)
	}

	sources := services.Sources{
		Credit:  cfg.CreditSource,
		Expense: cfg.ExpenseSource,
		Income:  cfg.IncomeSource,
	}
	reconcile := services.NewReconcileService(store, sources)
	payments := services.NewPaymentService(store, sources, proofs, reconcile)

	srv := apphttp.NewServer(":"+cfg.Port, reconcile, payments, proofs, proofs.Dir(), cfg.ProofBaseURL)
	// Make the component logger reachable from request contexts.
	srv.Handler = applog.Middleware(logger)(srv.Handler)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting house-gerencer server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
