// Package aggregate computes profit totals and period buckets over
// transaction sets.
package aggregate

import (
	"fmt"
	"sort"

	"farmprofit/internal/core"
)

// Totals holds income and expense sums in cents.
type Totals struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
}

// Net returns income minus expense.
func (t Totals) Net() int64 {
	return t.Income - t.Expense
}

// Buckets maps a period key to the signed total of the transactions in it.
// Transactions whose date or amount could not be read are collected in
// Invalid instead of being counted.
type Buckets struct {
	Totals  map[string]int64
	Invalid []core.Transaction
}

// Keys returns the bucket keys in chronological order.
func (b Buckets) Keys() []string {
	keys := make([]string, 0, len(b.Totals))
	for k := range b.Totals {
		keys = append(keys, k)
	}
	// Zero-padded week and month keys sort chronologically as strings
	sort.Strings(keys)
	return keys
}

// Err reports ErrInvalidDate when any excluded transaction has a bad date,
// ErrInvalidAmount when only amounts were unreadable.
func (b Buckets) Err() error {
	if len(b.Invalid) == 0 {
		return nil
	}
	cause := core.ErrInvalidAmount
	for _, tx := range b.Invalid {
		if tx.Date.IsZero() {
			cause = core.ErrInvalidDate
			break
		}
	}
	return fmt.Errorf("%w: %d transaction(s) excluded from buckets", cause, len(b.Invalid))
}

// NetProfit returns the sum of income amounts minus the sum of expense amounts.
func NetProfit(txs []core.Transaction) int64 {
	var net int64
	for _, tx := range txs {
		net += tx.Signed()
	}
	return net
}

func TotalsByType(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income += tx.Amount.Cents
		case core.Expense:
			t.Expense += tx.Amount.Cents
		}
	}
	return t
}

// BucketByWeek groups by ISO-8601 week, keyed "<isoYear>-W<ww>".
func BucketByWeek(txs []core.Transaction) Buckets {
	return bucket(txs, core.WeekKey)
}

// BucketByMonth groups by calendar month, keyed "YYYY-MM".
func BucketByMonth(txs []core.Transaction) Buckets {
	return bucket(txs, core.MonthKey)
}

func bucket(txs []core.Transaction, keyOf func(core.Date) string) Buckets {
	b := Buckets{Totals: make(map[string]int64)}
	for _, tx := range txs {
		if !tx.Valid() {
			b.Invalid = append(b.Invalid, tx)
			continue
		}
		b.Totals[keyOf(tx.Date)] += tx.Signed()
	}
	return b
}
