package mailer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"resort-billing/models"
)

// TemplateData is what rule subjects and templates are rendered with.
type TemplateData struct {
	Company       string
	InvoiceNumber string
	GuestName     string
	Email         string
	Total         string
	Paid          string
	Balance       string
	DueDate       string
	DaysUntilDue  int
	DaysOverdue   int
	Type          models.ReminderType
}

type content struct {
	subject string
	body    string
}

var defaultContent = map[models.ReminderType]content{
	models.ReminderBefore: {
		subject: "Upcoming payment: invoice {{.InvoiceNumber}}",
		body: `Dear {{.GuestName}},

this is a friendly reminder that invoice {{.InvoiceNumber}} over {{.Balance}} is due on {{.DueDate}}{{if gt .DaysUntilDue 0}} (in {{.DaysUntilDue}} days){{end}}.

Kind regards,
{{.Company}}
`,
	},
	models.ReminderOn: {
		subject: "Payment due today: invoice {{.InvoiceNumber}}",
		body: `Dear {{.GuestName}},

invoice {{.InvoiceNumber}} is due for payment. The open balance is {{.Balance}}{{if .DueDate}} (due {{.DueDate}}){{end}}.

Kind regards,
{{.Company}}
`,
	},
	models.ReminderAfter: {
		subject: "Overdue: invoice {{.InvoiceNumber}}",
		body: `Dear {{.GuestName}},

our records show that invoice {{.InvoiceNumber}} is {{.DaysOverdue}} days overdue. The open balance is {{.Balance}}.
Please settle the amount at your earliest convenience. If you have already paid, please ignore this message.

Kind regards,
{{.Company}}
`,
	},
}

// render executes text as a template; empty text falls back to def.
func render(name, text, def string, data TemplateData) (string, error) {
	if strings.TrimSpace(text) == "" {
		text = def
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return buf.String(), nil
}

// ValidateTemplate parses text and renders it once against sample data, so
// unknown fields are rejected when a rule is saved rather than at send time.
func ValidateTemplate(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := render("template", text, "", TemplateData{InvoiceNumber: "INV-0", DueDate: "2000-01-01"})
	return err
}
