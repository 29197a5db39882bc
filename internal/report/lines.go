package report

// LineKind tells a renderer how to draw a Line.
type LineKind int

const (
	LineTitle LineKind = iota
	LineSection
	LineTableHeader
	LineRow
	LineRule
	LineTotal
	LineBlank
)

func (k LineKind) String() string {
	switch k {
	case LineTitle:
		return "title"
	case LineSection:
		return "section"
	case LineTableHeader:
		return "header"
	case LineRow:
		return "row"
	case LineRule:
		return "rule"
	case LineTotal:
		return "total"
	case LineBlank:
		return "blank"
	}
	return "unknown"
}

// Line is one renderer-agnostic report line. Title, section and total lines
// carry their text in Cells; table lines carry one cell per column.
type Line struct {
	Kind  LineKind
	Cells []string
}

// Columns is the number of cells in a table line.
const Columns = 4

// Lines flattens the report into the sequence renderers paginate. An empty
// report yields the title followed by the no-data line.
func (r Report) Lines() []Line {
	l := r.labels
	if l == (Labels{}) {
		l = DefaultLabels()
	}
	title := r.Title
	if title == "" {
		title = l.Title
	}

	lines := []Line{{Kind: LineTitle, Cells: []string{title}}}
	if r.Empty() {
		return append(lines, Line{Kind: LineBlank}, Line{Kind: LineSection, Cells: []string{l.NoData}})
	}

	for i, s := range r.Sections {
		if i > 0 {
			lines = append(lines, Line{Kind: LineBlank})
		}
		lines = append(lines,
			Line{Kind: LineSection, Cells: []string{s.Header}},
			Line{Kind: LineTableHeader, Cells: []string{l.Date, l.Type, l.Description, l.Amount}},
			Line{Kind: LineRule},
		)
		for _, row := range s.Rows {
			lines = append(lines, Line{Kind: LineRow, Cells: []string{row.Date, row.Type, row.Description, row.Amount}})
		}
		lines = append(lines,
			Line{Kind: LineRule},
			Line{Kind: LineTotal, Cells: []string{l.TotalIncome, s.Totals.FormattedIncome}},
			Line{Kind: LineTotal, Cells: []string{l.TotalExpense, s.Totals.FormattedExpense}},
			Line{Kind: LineTotal, Cells: []string{l.TotalProfitLoss, s.Totals.FormattedNetProfit}},
		)
	}
	return lines
}
