package summary

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

// RenderMarkdown renders a report as a markdown document, amounts shown in
// currency.
func RenderMarkdown(title string, rep Report, currency string) (string, error) {
	funcs := template.FuncMap{
		"amount": func(d decimal.Decimal) string { return FormatAmount(d, currency) },
		"basis": func(b Basis) string {
			if b == BasisExplicit {
				return "explicit indicator field"
			}
			return "first digit of the classification code"
		},
		"dict": func(kv ...interface{}) (map[string]interface{}, error) {
			if len(kv)%2 != 0 {
				return nil, fmt.Errorf("dict needs key/value pairs, got %d values", len(kv))
			}
			m := make(map[string]interface{}, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				key, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", kv[i])
				}
				m[key] = kv[i+1]
			}
			return m, nil
		},
	}

	tmpl, err := template.New("summary.md").Funcs(funcs).ParseFS(templates, "templates/summary.md")
	if err != nil {
		return "", fmt.Errorf("failed to parse summary template: %w", err)
	}

	var b strings.Builder
	data := struct {
		Title  string
		Report Report
	}{title, rep}
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return b.String(), nil
}
