// Package worker rebuilds and exports the profit report when the ledger
// changes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmprofit/internal/amqp"
	"farmprofit/internal/core"
	"farmprofit/internal/log"
	"farmprofit/internal/report"
)

// Ledger is the read side of the ledger the worker needs. Reload picks up
// changes written by another process.
type Ledger interface {
	Load(ctx context.Context) error
	ListAccounts() []core.Account
}

// Exporter publishes a built report somewhere. It returns a description of
// where the report went.
type Exporter interface {
	Export(ctx context.Context, rep report.Report) (string, error)
}

// LabelSource resolves the report labels for the worker's language.
type LabelSource func(ctx context.Context) (report.Labels, error)

type ReportWorker struct {
	ledger    Ledger
	labels    LabelSource
	formatter report.Formatter
	exporters []Exporter
	logger    *log.Logger
}

func NewReportWorker(l Ledger, labels LabelSource, f report.Formatter, logger *log.Logger, exporters ...Exporter) *ReportWorker {
	if logger == nil {
		logger = log.Default()
	}
	if labels == nil {
		labels = func(context.Context) (report.Labels, error) { return report.DefaultLabels(), nil }
	}
	return &ReportWorker{
		ledger:    l,
		labels:    labels,
		formatter: f,
		exporters: exporters,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange is the AMQP handler: any ledger change triggers a full
// rebuild, since the report always covers every account.
func (w *ReportWorker) HandleChange(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		"op", string(msg.Op),
		log.FieldAccountID, msg.AccountID,
		log.FieldTransactionID, msg.TransactionID)
	_, err := w.Rebuild(ctx)
	return err
}

// Rebuild reloads the ledger, builds the unfiltered report and hands it to
// every exporter. Exporter failures are joined; the rest still run.
func (w *ReportWorker) Rebuild(ctx context.Context) (report.Report, error) {
	start := time.Now()
	if err := w.ledger.Load(ctx); err != nil {
		return report.Report{}, fmt.Errorf("reload ledger: %w", err)
	}
	labels, err := w.labels(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "Falling back to default labels", log.FieldError, err.Error())
		labels = report.DefaultLabels()
	}

	rep := report.BuildMultiAccountReport(w.ledger.ListAccounts(), report.DateRange{}, w.formatter, labels)

	var errs []error
	for _, e := range w.exporters {
		dest, err := e.Export(ctx, rep)
		if err != nil {
			errs = append(errs, err)
			w.logger.ErrorContext(ctx, "Report export failed",
				log.FieldOperation, log.OpExport,
				log.FieldError, err.Error())
			continue
		}
		w.logger.InfoContext(ctx, "Report exported",
			log.FieldOperation, log.OpExport,
			"destination", dest,
			"sections", len(rep.Sections),
			log.FieldDuration, time.Since(start).Milliseconds())
	}
	return rep, errors.Join(errs...)
}
