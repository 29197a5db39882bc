// Package cli holds the start-up steps shared by cmd/farmprofit,
// cmd/report-worker and cmd/farmprofit-report.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"farmprofit/internal/backend"
	"farmprofit/internal/config"
	"farmprofit/internal/i18n"
	"farmprofit/internal/ledger"
	"farmprofit/internal/log"
)

// SetupLogger builds the text logger at the given LOG_LEVEL and installs it
// as the slog default.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{Level: log.ParseLevel(level)})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// OpenLedger creates the configured blob store and loads the ledger from it.
// The returned result must be closed by the caller.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...ledger.Option) (*ledger.Store, *backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]ledger.Option{ledger.WithKey(cfg.StoreKey), ledger.WithLogger(logger)}, opts...)
	store := ledger.New(res.Store, opts...)
	if err := store.Load(ctx); err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}
	return store, res, nil
}

// NewTranslations builds the catalog loader from configuration.
func NewTranslations(cfg *config.Config, logger *log.Logger) *i18n.Loader {
	return i18n.NewLoader(i18n.Options{
		Dir:     cfg.TranslationsDir,
		BaseURL: cfg.TranslationsURL,
		Logger:  logger,
	})
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
