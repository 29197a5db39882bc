// Package currency renders cent amounts according to a locale profile.
//
// A Profile picks exactly one locale's grouping and decimal rules (through
// golang.org/x/text) plus a currency label, and Format applies them once.
package currency

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Profile describes how amounts are written for one currency and locale.
type Profile struct {
	Code     string
	Tag      language.Tag
	Fraction int    // digits after the decimal separator
	Prefix   string // written before the number, e.g. "$"
	Suffix   string // written after the number, e.g. ",- IDR"
}

var (
	// IDR matches the tracker's report format: 1.000.000,- IDR
	IDR = Profile{Code: "IDR", Tag: language.Indonesian, Fraction: 0, Suffix: ",- IDR"}
	USD = Profile{Code: "USD", Tag: language.AmericanEnglish, Fraction: 2, Prefix: "$"}
	EUR = Profile{Code: "EUR", Tag: language.Italian, Fraction: 2, Prefix: "€ "}
)

var byCode = map[string]Profile{
	IDR.Code: IDR,
	USD.Code: USD,
	EUR.Code: EUR,
}

var byLanguage = map[string]Profile{
	"id": IDR,
	"en": USD,
	"it": EUR,
}

// ByCode looks up a profile by ISO currency code, case-insensitively.
func ByCode(code string) (Profile, bool) {
	p, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return p, ok
}

// ProfileFor returns the default profile of a UI language ("id", "en-US", ...),
// falling back to IDR.
func ProfileFor(lang string) Profile {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return IDR
	}
	base, _ := tag.Base()
	if p, ok := byLanguage[base.String()]; ok {
		return p
	}
	return IDR
}

// Format renders cents using p. Negative amounts get a leading minus sign in
// front of any prefix.
func Format(cents int64, p Profile) string {
	return NewFormatter(p).Format(cents)
}

// Formatter binds a profile to a reusable printer.
type Formatter struct {
	profile Profile
	printer *message.Printer
}

func NewFormatter(p Profile) Formatter {
	return Formatter{profile: p, printer: message.NewPrinter(p.Tag)}
}

func (f Formatter) Profile() Profile {
	return f.profile
}

func (f Formatter) Format(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}

	var num string
	if f.profile.Fraction <= 0 {
		units := (cents + 50) / 100 // half-up to whole units
		if units == 0 {
			neg = false
		}
		num = f.printer.Sprint(number.Decimal(units))
	} else {
		num = f.printer.Sprint(number.Decimal(float64(cents)/100,
			number.MinFractionDigits(f.profile.Fraction),
			number.MaxFractionDigits(f.profile.Fraction)))
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(f.profile.Prefix)
	b.WriteString(num)
	b.WriteString(f.profile.Suffix)
	return b.String()
}
