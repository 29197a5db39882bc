package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"farmprofit/internal/amqp"
	"farmprofit/internal/cache"
	"farmprofit/internal/cli"
	apphttp "farmprofit/internal/http"
	"farmprofit/internal/ledger"
	"farmprofit/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	var opts []ledger.Option
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// Changes are still saved; the report worker just won't hear about them.
			logger.Warn("AMQP unavailable, ledger changes will not be published", log.FieldError, err.Error())
		} else {
			defer amqpClient.Close()
			opts = append(opts, ledger.WithNotifier(amqpClient))
		}
	}

	store, res, err := cli.OpenLedger(ctx, cfg, logger, opts...)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	translations := cli.NewTranslations(cfg, logger)
	caches := cache.NewManager(logger)
	caches.Register(translations.Cache())

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:          store,
		Translations:    translations,
		DefaultLanguage: cfg.DefaultLanguage,
		LinesPerPage:    cfg.ReportLinesPerPage,
		Ready:           res.Ping,
		Logger:          logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting farmprofit server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			log.FieldLanguage, cfg.DefaultLanguage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})
	if cfg.TranslationsDir != "" {
		g.Go(func() error {
			err := translations.Watch(gctx, func(lang string) {
				logger.Info("Translation catalog changed", log.FieldLanguage, lang)
			})
			if err != nil {
				// Catalogs still load; they just won't refresh without a restart.
				logger.Warn("Translation watcher stopped", log.FieldError, err.Error())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
