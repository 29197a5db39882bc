// Package core provides the ledger domain types and money parsing.
//
// Amounts are carried as integer cents. This file contains functions for
// parsing monetary amounts from user input and rendering them back in major
// units for storage.
package core

import (
	"strconv"
	"strings"
)

// MaxAmountCents caps a single amount at one trillion major units. Sums of
// up to ninety thousand such amounts stay within int64.
const MaxAmountCents int64 = 1_000_000_000_000 * 100

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is accepted; negative,
// malformed or above-MaxAmountCents values return ErrInvalidAmount.
//
// Examples:
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("-1") -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !asciiDigits(intPart) || !asciiDigits(fracPart) {
		return 0, ErrInvalidAmount
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if iv > MaxAmountCents/100 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents > MaxAmountCents {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Decimal renders the amount in major units without grouping, dropping a zero
// fraction: 100000000 -> "1000000", 1250 -> "12.5".
func (m Money) Decimal() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10)
	if rem := cents % 100; rem != 0 {
		frac := strconv.FormatInt(rem+100, 10)[1:]
		s += "." + strings.TrimRight(frac, "0")
	}
	if neg {
		return "-" + s
	}
	return s
}

// Major returns the amount in major units as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Major() float64 {
	return float64(m.Cents) / 100.0
}

// MoneyFromMajor converts a whole number of major units to Money.
func MoneyFromMajor(units int64) Money {
	return Money{Cents: units * 100}
}

func asciiDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
