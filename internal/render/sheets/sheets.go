// Package sheets exports reports to a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"farmprofit/internal/log"
	"farmprofit/internal/report"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheet is the tab written when none is configured.
const DefaultSheet = "Report"

var ErrNotConfigured = errors.New("sheets exporter not configured")

// Exporter clears one sheet and rewrites it with a report's lines.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// New creates an exporter on top of an existing service.
func New(svc *gsheet.Service, spreadsheetID, sheet string, logger *log.Logger) (*Exporter, error) {
	if svc == nil {
		return nil, fmt.Errorf("%w: nil service", ErrNotConfigured)
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: missing spreadsheet id", ErrNotConfigured)
	}
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheet
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// NewFromEnv builds the Sheets service from service account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheet string, logger *log.Logger) (*Exporter, error) {
	creds, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheet, logger)
}

func credentialsFromEnv() ([]byte, error) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); raw != "" {
		return []byte(raw), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, fmt.Errorf("%w: missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)", ErrNotConfigured)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (e *Exporter) Sheet() string { return e.sheet }

// Export replaces the sheet contents with the report. Returns the written range.
func (e *Exporter) Export(ctx context.Context, rep report.Report) (string, error) {
	rows := Values(rep.Lines())

	clearRange := fmt.Sprintf("%s!A:Z", e.sheet)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", e.sheet, err)
	}

	rng := fmt.Sprintf("%s!A1:D%d", e.sheet, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", e.sheet, err)
	}

	e.logger.InfoContext(ctx, "Report exported",
		"range", rng,
		"sections", len(rep.Sections),
		"rows", len(rows))
	return rng, nil
}

// Values lays report lines out as sheet rows. Rules become empty rows and
// totals put their amount in the last column.
func Values(lines []report.Line) [][]any {
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		switch l.Kind {
		case report.LineTotal:
			label, amount := "", ""
			if len(l.Cells) > 0 {
				label = l.Cells[0]
			}
			if len(l.Cells) > 1 {
				amount = l.Cells[1]
			}
			rows = append(rows, []any{"", "", label, amount})
		case report.LineRule, report.LineBlank:
			rows = append(rows, []any{})
		default:
			row := make([]any, 0, len(l.Cells))
			for _, c := range l.Cells {
				row = append(row, c)
			}
			rows = append(rows, row)
		}
	}
	return rows
}
