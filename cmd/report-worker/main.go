package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"farmprofit/internal/amqp"
	"farmprofit/internal/backend"
	"farmprofit/internal/cache"
	"farmprofit/internal/cli"
	"farmprofit/internal/currency"
	"farmprofit/internal/log"
	"farmprofit/internal/render"
	"farmprofit/internal/render/sheets"
	"farmprofit/internal/report"
	"farmprofit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend is private to this process; the worker will not see server changes",
			log.FieldBackend, cfg.DataBackend)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	var exporters []worker.Exporter
	if cfg.SheetsEnabled() {
		exp, err := sheets.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheet, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err.Error())
			os.Exit(1)
		}
		exporters = append(exporters, exp)
		logger.Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", exp.Sheet())
	}
	if cfg.ReportOutputPath != "" {
		exporters = append(exporters, render.FileExporter{Path: cfg.ReportOutputPath, PerPage: cfg.ReportLinesPerPage})
		logger.Info("File export enabled", "path", cfg.ReportOutputPath)
	}
	if len(exporters) == 0 {
		logger.Error("No export destination configured; set GOOGLE_SPREADSHEET_ID or REPORT_OUTPUT_PATH")
		os.Exit(1)
	}

	store, res, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	translations := cli.NewTranslations(cfg, logger)
	caches := cache.NewManager(logger)
	caches.Register(translations.Cache())

	labels := func(ctx context.Context) (report.Labels, error) {
		catalog, err := translations.Load(ctx, cfg.DefaultLanguage)
		if err != nil {
			return report.Labels{}, err
		}
		return catalog.Labels(), nil
	}
	formatter := currency.NewFormatter(currency.ProfileFor(cfg.DefaultLanguage))
	w := worker.NewReportWorker(store, labels, formatter, logger, exporters...)

	// Catch up on anything changed while the worker was down.
	if _, err := w.Rebuild(ctx); err != nil {
		logger.Error("Startup export failed", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(gctx, w.HandleChange)
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})
	if err := g.Wait(); err != nil {
		logger.Error("Worker error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
