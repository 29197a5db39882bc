package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the wire format of a Date.
const DateLayout = "2006-01-02"

// maxDescriptionLen is counted in characters, not bytes.
const maxDescriptionLen = 200

type (
	TransactionType string

	// Date is a calendar date at UTC midnight. The zero value means the date
	// was missing or could not be parsed.
	Date struct {
		time.Time
	}

	// Money is an amount in cents. A Money decoded from an unreadable stored
	// amount is not Valid and contributes nothing to totals.
	Money struct {
		Cents   int64
		invalid bool
	}

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
	}

	Account struct {
		ID           string        `json:"id"`
		CropName     string        `json:"cropName"`
		Location     string        `json:"location"`
		Transactions []Transaction `json:"transactions"`
	}

	// TransactionInput carries the mutable fields of a transaction.
	TransactionInput struct {
		Type        TransactionType
		Amount      Money
		Description string
		Date        Date
	}
)

var (
	ErrDuplicateAccount    = errors.New("account already exists")
	ErrNotFound            = errors.New("not found")
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrEmptyRequiredField  = errors.New("required field is empty")
	ErrDescriptionTooLong  = errors.New("description too long")
	ErrPersistence         = errors.New("changes could not be saved")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON never fails on a malformed date string: the value decodes to
// the zero Date so that a single bad row does not make a whole snapshot
// unreadable. Aggregation reports such rows as invalid.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}
}

// Signed returns the contribution of amount to a profit total: positive for
// income, negative for expense.
func (t TransactionType) Signed(amount Money) int64 {
	if t == Expense {
		return -amount.Cents
	}
	return amount.Cents
}

// Signed returns the transaction's signed contribution in cents.
func (tx Transaction) Signed() int64 {
	return tx.Type.Signed(tx.Amount)
}

// Valid reports whether both the date and the amount could be read. Stored
// rows may fail this; rows created through TransactionInput never do.
func (tx Transaction) Valid() bool {
	return !tx.Date.IsZero() && tx.Amount.Valid()
}

// Valid reports whether the amount was readable.
func (m Money) Valid() bool {
	return !m.invalid
}

// MarshalJSON writes the amount in major units, the shape used by the blob.
// An unreadable amount is written back as null so it stays unreadable.
func (m Money) MarshalJSON() ([]byte, error) {
	if m.invalid {
		return []byte("null"), nil
	}
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON never fails on a bad amount: null, NaN leftovers, negative or
// oversized values decode to an invalid Money so one row cannot make a
// snapshot unreadable.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*m = Money{invalid: true}
			return nil
		}
		b = []byte(s)
	}
	cents, err := ParseDecimalToCents(string(b))
	if err != nil {
		*m = Money{invalid: true}
		return nil
	}
	*m = Money{Cents: cents}
	return nil
}

// ID accepts both the string ids this service generates and the numeric
// timestamp ids found in older blobs.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

func (tx *Transaction) UnmarshalJSON(b []byte) error {
	type plain Transaction
	var raw struct {
		plain
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*tx = Transaction(raw.plain)
	tx.ID = string(raw.ID)
	return nil
}

func (a *Account) UnmarshalJSON(b []byte) error {
	type plain Account
	var raw struct {
		plain
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = Account(raw.plain)
	a.ID = string(raw.ID)
	if a.Transactions == nil {
		a.Transactions = []Transaction{}
	}
	return nil
}

// Label is the display name used in lists and report headers.
func (a Account) Label() string {
	return a.CropName + " - " + a.Location
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	c := a
	c.Transactions = append([]Transaction(nil), a.Transactions...)
	if c.Transactions == nil {
		c.Transactions = []Transaction{}
	}
	return c
}

func (in TransactionInput) Validate() error {
	if err := in.Type.Validate(); err != nil {
		return err
	}
	if !in.Amount.Valid() || in.Amount.Cents < 0 || in.Amount.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, maxDescriptionLen)
	}
	return nil
}

// SingleLine replaces control characters (tabs and line breaks included)
// with spaces and collapses runs of whitespace, so free text always fits one
// report cell.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)), " ")
}

// ParseTransactionInput converts raw form values into a validated input.
func ParseTransactionInput(txType, amount, description, date string) (TransactionInput, error) {
	txType = strings.ToLower(strings.TrimSpace(txType))
	if txType == "" || strings.TrimSpace(amount) == "" || strings.TrimSpace(date) == "" {
		return TransactionInput{}, ErrEmptyRequiredField
	}
	cents, err := ParseDecimalToCents(amount)
	if err != nil {
		return TransactionInput{}, err
	}
	d, err := ParseDate(date)
	if err != nil {
		return TransactionInput{}, err
	}
	in := TransactionInput{
		Type:        TransactionType(txType),
		Amount:      Money{Cents: cents},
		Description: SingleLine(description),
		Date:        d,
	}
	if err := in.Validate(); err != nil {
		return TransactionInput{}, err
	}
	return in, nil
}
