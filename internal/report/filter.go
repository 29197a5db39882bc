package report

import (
	"fmt"
	"strings"

	"farmprofit/internal/core"
)

// DateRange is an inclusive date interval. A zero Start or End leaves that
// side unbounded.
type DateRange struct {
	Start core.Date
	End   core.Date
}

// ParseDateRange reads optional YYYY-MM-DD bounds; empty strings mean
// unbounded.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error
	if s := strings.TrimSpace(start); s != "" {
		if r.Start, err = core.ParseDate(s); err != nil {
			return DateRange{}, fmt.Errorf("start: %w", err)
		}
	}
	if e := strings.TrimSpace(end); e != "" {
		if r.End, err = core.ParseDate(e); err != nil {
			return DateRange{}, fmt.Errorf("end: %w", err)
		}
	}
	return r, r.Validate()
}

func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s is after end %s", core.ErrInvalidDate, r.Start, r.End)
	}
	return nil
}

// Unbounded reports whether neither side is set.
func (r DateRange) Unbounded() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether d lies within the range. Invalid dates are only
// contained in an unbounded range.
func (r DateRange) Contains(d core.Date) bool {
	if r.Unbounded() {
		return true
	}
	if d.IsZero() {
		return false
	}
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// Selection splits a transaction list into the rows a range keeps, the rows
// it excludes, and the rows whose date could not be compared at all.
type Selection struct {
	Matched  []core.Transaction
	Excluded []core.Transaction
	Invalid  []core.Transaction
}

// Partition classifies every transaction, preserving input order in each
// group.
func Partition(txs []core.Transaction, r DateRange) Selection {
	var s Selection
	for _, tx := range txs {
		switch {
		case r.Contains(tx.Date):
			s.Matched = append(s.Matched, tx)
		case tx.Date.IsZero():
			s.Invalid = append(s.Invalid, tx)
		default:
			s.Excluded = append(s.Excluded, tx)
		}
	}
	return s
}

// FilterByDateRange returns the transactions inside r in their original
// order. With both bounds unset it returns txs unchanged.
func FilterByDateRange(txs []core.Transaction, r DateRange) []core.Transaction {
	if r.Unbounded() {
		return txs
	}
	return Partition(txs, r).Matched
}
