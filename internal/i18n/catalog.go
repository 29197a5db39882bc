// Package i18n loads translation catalogs and resolves report labels.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"farmprofit/internal/report"

	"golang.org/x/text/language"
)

// DefaultLanguage is used for unknown languages and missing keys.
const DefaultLanguage = "en"

//go:embed catalogs/*.json
var embedded embed.FS

// Catalog maps translation keys to text for one language.
type Catalog struct {
	Lang     string            `json:"lang"`
	Messages map[string]string `json:"messages"`
	fallback map[string]string
}

// T returns the text for key, falling back to English and then to the key.
func (c Catalog) T(key string) string {
	if v, ok := c.Messages[key]; ok && v != "" {
		return v
	}
	if v, ok := c.fallback[key]; ok {
		return v
	}
	return key
}

// Labels resolves the display strings used by the report builder.
func (c Catalog) Labels() report.Labels {
	return report.Labels{
		Title:           c.T("report.title"),
		Date:            c.T("report.date"),
		Type:            c.T("report.type"),
		Description:     c.T("report.description"),
		Amount:          c.T("report.amount"),
		Income:          c.T("transaction.income"),
		Expense:         c.T("transaction.expense"),
		TotalIncome:     c.T("report.total_income"),
		TotalExpense:    c.T("report.total_expense"),
		TotalProfitLoss: c.T("report.total_profit_loss"),
		NoData:          c.T("report.no_data"),
	}
}

// Resolved returns every known key with fallbacks applied.
func (c Catalog) Resolved() map[string]string {
	out := make(map[string]string, len(c.fallback)+len(c.Messages))
	for k, v := range c.fallback {
		out[k] = v
	}
	for k, v := range c.Messages {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Normalize reduces a language tag such as "id-ID" to its base ("id").
// Unparseable input yields DefaultLanguage.
func Normalize(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return DefaultLanguage
	}
	base, _ := tag.Base()
	return base.String()
}

func parseCatalog(lang string, b []byte) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode %s catalog: %w", lang, err)
	}
	return m, nil
}

func embeddedCatalog(lang string) (map[string]string, bool) {
	b, err := embedded.ReadFile("catalogs/" + lang + ".json")
	if err != nil {
		return nil, false
	}
	m, err := parseCatalog(lang, b)
	if err != nil {
		return nil, false
	}
	return m, true
}

// Embedded lists the languages shipped with the binary.
func Embedded() []string {
	entries, _ := embedded.ReadDir("catalogs")
	langs := make([]string, 0, len(entries))
	for _, e := range entries {
		langs = append(langs, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(langs)
	return langs
}
