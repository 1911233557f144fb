// Package report renders cost reports into human-readable messages.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultTitle       = "AWS Cost Report"
	DefaultTopServices = 5

	// amounts are always rendered with two decimal places
	precision = 2
)

const messageTemplate = `Period: {{date .Start}} to {{date .End}} (end exclusive, {{.Days}} days)
Total: {{money .Total}} {{.Currency}}
{{- with .Previous}}
Previous period: {{date .Start}} to {{date .End}}, {{money .Total}} {{.Currency}}
{{- end}}
{{- if .Services}}

Top services:
{{- range .Services}}
- {{.Name}}: {{money .Amount}} {{$.Currency}}
{{- end}}
{{- end}}

Generated at {{timestamp .GeneratedAt}}`

type Options struct {
	Title       string
	TopServices int // 0 hides the breakdown
}

type Formatter struct {
	opts Options
	tmpl *template.Template
}

type serviceLine struct {
	Name   string
	Amount decimal.Decimal
}

type previousLine struct {
	Start    time.Time
	End      time.Time
	Total    decimal.Decimal
	Currency string
}

type view struct {
	Start       time.Time
	End         time.Time
	Days        int
	Total       decimal.Decimal
	Currency    string
	Previous    *previousLine
	Services    []serviceLine
	GeneratedAt time.Time
}

func NewFormatter(opts Options) (*Formatter, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.TopServices < 0 {
		return nil, fmt.Errorf("top services must not be negative, got %d", opts.TopServices)
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"date":      func(t time.Time) string { return t.Format(domain.DateLayout) },
		"money":     func(d decimal.Decimal) string { return d.StringFixed(precision) },
		"timestamp": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	}).Parse(messageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Formatter{opts: opts, tmpl: tmpl}, nil
}

// Format builds the report for one invocation. previous is optional and adds
// a comparison line. It performs no I/O and returns identical text for
// identical inputs.
func (f *Formatter) Format(
	period domain.ReportingPeriod,
	amount domain.UsageAmount,
	previous *domain.PeriodTotal,
	generatedAt time.Time,
) (domain.ReportMessage, error) {
	if err := amount.Validate(); err != nil {
		return domain.ReportMessage{}, err
	}
	if previous != nil {
		if err := previous.Amount.Validate(); err != nil {
			return domain.ReportMessage{}, fmt.Errorf("previous period: %w", err)
		}
	}

	v := view{
		Start:       period.Start,
		End:         period.End,
		Days:        period.Days(),
		Total:       amount.Total,
		Currency:    amount.Currency,
		Services:    f.topServices(amount.Services),
		GeneratedAt: generatedAt,
	}
	if previous != nil {
		v.Previous = &previousLine{
			Start:    previous.Period.Start,
			End:      previous.Period.End,
			Total:    previous.Amount.Total,
			Currency: previous.Amount.Currency,
		}
	}

	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, v); err != nil {
		return domain.ReportMessage{}, fmt.Errorf("failed to render report: %w", err)
	}

	return domain.ReportMessage{
		Period:      period,
		Amount:      amount,
		Previous:    previous,
		GeneratedAt: generatedAt,
		Title:       f.opts.Title,
		Text:        strings.TrimSpace(buf.String()),
	}, nil
}

// topServices keeps the N largest services and folds the rest into "Other".
func (f *Formatter) topServices(services []domain.ServiceCost) []serviceLine {
	if f.opts.TopServices == 0 || len(services) == 0 {
		return nil
	}

	lines := make([]serviceLine, 0, f.opts.TopServices+1)
	other := decimal.Zero
	for i, s := range services {
		if i < f.opts.TopServices {
			lines = append(lines, serviceLine{Name: s.Service, Amount: s.Amount})
			continue
		}
		other = other.Add(s.Amount)
	}
	if len(services) > f.opts.TopServices {
		lines = append(lines, serviceLine{Name: "Other", Amount: other})
	}
	return lines
}
