package currency

import "testing"

func TestFormat(t *testing.T) {
	cases := []struct {
		name    string
		cents   int64
		profile Profile
		want    string
	}{
		{"idr million", 100_000_000, IDR, "1.000.000,- IDR"},
		{"idr negative", -80_000_000, IDR, "-800.000,- IDR"},
		{"idr zero", 0, IDR, "0,- IDR"},
		{"idr rounds cents", 123_456_789, IDR, "1.234.568,- IDR"},
		{"usd grouping", 123_456_789, USD, "$1,234,567.89"},
		{"usd negative", -123_456_700, USD, "-$1,234,567.00"},
		{"eur grouping", 123_456_789, EUR, "€ 1.234.567,89"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(tc.cents, tc.profile); got != tc.want {
				t.Errorf("Format(%d, %s) = %q, want %q", tc.cents, tc.profile.Code, got, tc.want)
			}
		})
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	f := NewFormatter(IDR)
	first := f.Format(2_500_000_00)
	for i := 0; i < 10; i++ {
		if got := f.Format(2_500_000_00); got != first {
			t.Fatalf("format changed between calls: %q vs %q", got, first)
		}
	}
}

func TestProfileFor(t *testing.T) {
	cases := map[string]string{
		"id":    "IDR",
		"id-ID": "IDR",
		"en":    "USD",
		"en-GB": "USD",
		"it":    "EUR",
		"fr":    "IDR",
		"":      "IDR",
		"!!":    "IDR",
	}
	for lang, want := range cases {
		if got := ProfileFor(lang).Code; got != want {
			t.Errorf("ProfileFor(%q) = %s, want %s", lang, got, want)
		}
	}
}

func TestByCode(t *testing.T) {
	if p, ok := ByCode("usd"); !ok || p.Code != "USD" {
		t.Fatalf("ByCode(usd) = %v, %v", p, ok)
	}
	if _, ok := ByCode("XYZ"); ok {
		t.Fatalf("unknown code should not resolve")
	}
}
