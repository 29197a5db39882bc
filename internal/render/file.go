package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"farmprofit/internal/report"
)

// FileExporter writes the text rendering of a report to Path, replacing the
// previous file atomically.
type FileExporter struct {
	Path    string
	PerPage int
}

func (e FileExporter) Export(ctx context.Context, rep report.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, rep, e.PerPage); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	dir := filepath.Dir(e.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.Path); err != nil {
		return "", fmt.Errorf("replace report: %w", err)
	}
	return e.Path, nil
}
