// Package report selects transactions by date range and assembles
// renderer-agnostic profit reports.
package report

import (
	"farmprofit/internal/aggregate"
	"farmprofit/internal/core"
)

// Formatter renders an amount in cents for display.
type Formatter interface {
	Format(cents int64) string
}

// Labels are display strings resolved by the caller, typically from a
// translation catalog.
type Labels struct {
	Title           string `json:"title"`
	Date            string `json:"date"`
	Type            string `json:"type"`
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	Income          string `json:"income"`
	Expense         string `json:"expense"`
	TotalIncome     string `json:"total_income"`
	TotalExpense    string `json:"total_expense"`
	TotalProfitLoss string `json:"total_profit_loss"`
	NoData          string `json:"no_data"`
}

func DefaultLabels() Labels {
	return Labels{
		Title:           "Farm Profit Report",
		Date:            "Date",
		Type:            "Type",
		Description:     "Description",
		Amount:          "Amount",
		Income:          "Income",
		Expense:         "Expense",
		TotalIncome:     "Total Income",
		TotalExpense:    "Total Expense",
		TotalProfitLoss: "Total Profit/Loss",
		NoData:          "No data to export",
	}
}

// TypeLabel returns the display name of a transaction type.
func (l Labels) TypeLabel(t core.TransactionType) string {
	if t == core.Income {
		return l.Income
	}
	return l.Expense
}

type Row struct {
	TransactionID string `json:"transaction_id"`
	Date          string `json:"date"`
	Type          string `json:"type"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Signed        int64  `json:"signed_cents"`
}

type SummaryTotals struct {
	aggregate.Totals
	NetProfit          int64  `json:"net_profit"`
	FormattedIncome    string `json:"formatted_income"`
	FormattedExpense   string `json:"formatted_expense"`
	FormattedNetProfit string `json:"formatted_net_profit"`
}

// Summary is one account's section: a header, one row per transaction and
// the totals of exactly those rows. Invalid counts the account's transactions
// whose date or amount could not be read, whether or not the range kept them.
type Summary struct {
	AccountID string        `json:"account_id"`
	Header    string        `json:"header"`
	Rows      []Row         `json:"rows"`
	Totals    SummaryTotals `json:"totals"`
	Invalid   int           `json:"invalid"`
}

// Report holds one section per account with matching transactions. Invalid
// is summed over all accounts, omitted ones included.
type Report struct {
	Title    string    `json:"title"`
	Range    DateRange `json:"-"`
	Sections []Summary `json:"sections"`
	Invalid  int       `json:"invalid"`
	labels   Labels
}

// Empty reports whether no account had matching transactions.
func (r Report) Empty() bool {
	return len(r.Sections) == 0
}

// BuildSummary summarizes an already filtered transaction list of account.
func BuildSummary(account core.Account, filtered []core.Transaction, f Formatter, l Labels) Summary {
	rows := make([]Row, 0, len(filtered))
	for _, tx := range filtered {
		amount := ""
		if tx.Amount.Valid() {
			amount = f.Format(tx.Amount.Cents)
		}
		rows = append(rows, Row{
			TransactionID: tx.ID,
			Date:          tx.Date.String(),
			Type:          l.TypeLabel(tx.Type),
			Description:   tx.Description,
			Amount:        amount,
			Signed:        tx.Signed(),
		})
	}

	totals := aggregate.TotalsByType(filtered)
	net := aggregate.NetProfit(filtered)
	return Summary{
		AccountID: account.ID,
		Header:    account.Label(),
		Rows:      rows,
		Invalid:   countInvalid(account.Transactions),
		Totals: SummaryTotals{
			Totals:             totals,
			NetProfit:          net,
			FormattedIncome:    f.Format(totals.Income),
			FormattedExpense:   f.Format(totals.Expense),
			FormattedNetProfit: f.Format(net),
		},
	}
}

// BuildMultiAccountReport filters every account by r and summarizes it.
// Accounts left with no transactions are omitted.
func BuildMultiAccountReport(accounts []core.Account, r DateRange, f Formatter, l Labels) Report {
	rep := Report{Title: l.Title, Range: r, labels: l}
	for _, a := range accounts {
		rep.Invalid += countInvalid(a.Transactions)
		filtered := FilterByDateRange(a.Transactions, r)
		if len(filtered) == 0 {
			continue
		}
		rep.Sections = append(rep.Sections, BuildSummary(a, filtered, f, l))
	}
	return rep
}

// BuildSummaries summarizes every account, including those with no matching
// transactions; used by the on-screen summary.
func BuildSummaries(accounts []core.Account, r DateRange, f Formatter, l Labels) []Summary {
	out := make([]Summary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, BuildSummary(a, FilterByDateRange(a.Transactions, r), f, l))
	}
	return out
}

func countInvalid(txs []core.Transaction) int {
	n := 0
	for _, tx := range txs {
		if !tx.Valid() {
			n++
		}
	}
	return n
}
