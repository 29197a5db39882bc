// Command farmprofit-report builds the profit report once and writes it to
// stdout, a file or the configured Google Sheet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"farmprofit/internal/cli"
	"farmprofit/internal/config"
	"farmprofit/internal/core"
	"farmprofit/internal/currency"
	"farmprofit/internal/i18n"
	"farmprofit/internal/log"
	"farmprofit/internal/render"
	"farmprofit/internal/render/sheets"
	"farmprofit/internal/report"
)

type options struct {
	start, end string
	lang       string
	currency   string
	out        string
	perPage    int
	toSheets   bool
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("farmprofit-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.start, "start", "", "first day to include, YYYY-MM-DD")
	fs.StringVar(&o.end, "end", "", "last day to include, YYYY-MM-DD")
	fs.StringVar(&o.lang, "lang", cfg.DefaultLanguage, "report language")
	fs.StringVar(&o.currency, "currency", "", "currency code (IDR, USD, EUR); defaults to the language's")
	fs.StringVar(&o.out, "out", "-", "output file, - for stdout")
	fs.IntVar(&o.perPage, "lines", cfg.ReportLinesPerPage, "lines per page")
	fs.BoolVar(&o.toSheets, "sheets", false, "also write the report to GOOGLE_SPREADSHEET_ID")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return o, nil
}

// accountLister is the ledger read the command needs.
type accountLister interface {
	ListAccounts() []core.Account
}

func build(ctx context.Context, o options, accounts accountLister, translations *i18n.Loader) (report.Report, error) {
	rng, err := report.ParseDateRange(o.start, o.end)
	if err != nil {
		return report.Report{}, err
	}
	profile := currency.ProfileFor(o.lang)
	if o.currency != "" {
		p, ok := currency.ByCode(o.currency)
		if !ok {
			return report.Report{}, fmt.Errorf("unknown currency %q", o.currency)
		}
		profile = p
	}
	catalog, err := translations.Load(ctx, o.lang)
	if err != nil {
		return report.Report{}, fmt.Errorf("load translations: %w", err)
	}
	return report.BuildMultiAccountReport(accounts.ListAccounts(), rng, currency.NewFormatter(profile), catalog.Labels()), nil
}

func write(ctx context.Context, o options, rep report.Report, stdout io.Writer) (string, error) {
	if o.out == "" || o.out == "-" {
		return "stdout", render.WriteText(stdout, rep, o.perPage)
	}
	return render.FileExporter{Path: o.out, PerPage: o.perPage}.Export(ctx, rep)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, cfg *config.Config, accounts accountLister, translations *i18n.Loader, logger *log.Logger) error {
	o, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}
	rep, err := build(ctx, o, accounts, translations)
	if err != nil {
		return err
	}
	dest, err := write(ctx, o, rep, stdout)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info("Report written", "destination", dest, "sections", len(rep.Sections), log.FieldLanguage, o.lang)
	if rep.Invalid > 0 {
		logger.Warn("Transactions with unreadable date or amount", "count", rep.Invalid)
	}

	if o.toSheets {
		if !cfg.SheetsEnabled() {
			return sheets.ErrNotConfigured
		}
		exp, err := sheets.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheet, logger)
		if err != nil {
			return err
		}
		if _, err := exp.Export(ctx, rep); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store, res, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	err = run(ctx, os.Args[1:], os.Stdout, os.Stderr, cfg, store, cli.NewTranslations(cfg, logger), logger)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Error("Report export failed", log.FieldError, err.Error())
		res.Close()
		os.Exit(1)
	}
}
