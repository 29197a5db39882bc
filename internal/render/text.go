// Package render turns report lines into paged output.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"farmprofit/internal/core"
	"farmprofit/internal/report"
)

// DefaultLinesPerPage fits a portrait A4 page at the report's row height.
const DefaultLinesPerPage = 40

// Paginate splits lines into pages of at most perPage lines. A non-positive
// perPage uses DefaultLinesPerPage.
func Paginate(lines []report.Line, perPage int) [][]report.Line {
	if len(lines) == 0 {
		return nil
	}
	if perPage <= 0 {
		perPage = DefaultLinesPerPage
	}
	pages := make([][]report.Line, 0, (len(lines)+perPage-1)/perPage)
	for start := 0; start < len(lines); start += perPage {
		end := min(start+perPage, len(lines))
		pages = append(pages, lines[start:end])
	}
	return pages
}

// WriteText writes the report as plain-text pages separated by form feeds,
// each ending with a "Page n/m" footer.
func WriteText(w io.Writer, rep report.Report, perPage int) error {
	pages := Paginate(rep.Lines(), perPage)
	for i, page := range pages {
		if i > 0 {
			if _, err := io.WriteString(w, "\f"); err != nil {
				return err
			}
		}
		if err := writePage(w, page); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		if _, err := fmt.Fprintf(w, "\nPage %d/%d\n", i+1, len(pages)); err != nil {
			return err
		}
	}
	return nil
}

func isTable(k report.LineKind) bool {
	return k == report.LineTableHeader || k == report.LineRow || k == report.LineRule
}

func writePage(w io.Writer, page []report.Line) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	widths := columnWidths(page)

	prevTable := false
	for _, line := range page {
		table := isTable(line.Kind)
		// Totals and tables must not share tab columns.
		if table != prevTable {
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		prevTable = table

		var err error
		switch line.Kind {
		case report.LineTitle:
			title := cell(line, 0)
			_, err = fmt.Fprintf(tw, "%s\n%s\n", title, strings.Repeat("=", utf8.RuneCountInString(title)))
		case report.LineSection:
			_, err = fmt.Fprintf(tw, "%s\n", cell(line, 0))
		case report.LineTableHeader, report.LineRow:
			_, err = fmt.Fprintf(tw, "%s\t\n", strings.Join(cells(line), "\t"))
		case report.LineRule:
			rule := make([]string, len(widths))
			for i, n := range widths {
				rule[i] = strings.Repeat("-", n)
			}
			_, err = fmt.Fprintf(tw, "%s\t\n", strings.Join(rule, "\t"))
		case report.LineTotal:
			_, err = fmt.Fprintf(tw, "%s:\t%s\n", cell(line, 0), cell(line, 1))
		case report.LineBlank:
			_, err = fmt.Fprintln(tw)
		}
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

// cell returns the i-th cell on a single line. Stored text may predate input
// normalization, and a tab or line break would shift columns and pages.
func cell(l report.Line, i int) string {
	if i < len(l.Cells) {
		return core.SingleLine(l.Cells[i])
	}
	return ""
}

func cells(l report.Line) []string {
	out := make([]string, len(l.Cells))
	for i := range l.Cells {
		out[i] = cell(l, i)
	}
	return out
}

func columnWidths(page []report.Line) []int {
	widths := make([]int, report.Columns)
	for _, line := range page {
		if line.Kind != report.LineTableHeader && line.Kind != report.LineRow {
			continue
		}
		for i, c := range cells(line) {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(c))
			}
		}
	}
	for i := range widths {
		widths[i] = max(widths[i], 1)
	}
	return widths
}
