/*
Package notify delivers the daily follow-up digest.

PURPOSE:
  The scheduler builds a Digest (the clients due for follow-up today) and
  hands it to a Notifier. SendGrid emails it to the office; the log notifier
  writes it to the structured log when no mail provider is configured.

SEE ALSO:
  - reporting/followups.go: FollowUpList
  - api/scheduler.go: Runs the digest job
*/
package notify

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
	"github.com/warp/collections-engine/reporting"
)

// Notifier sends a follow-up digest.
type Notifier interface {
	SendDigest(ctx context.Context, d Digest) error
}

// Digest is one day's follow-up list.
type Digest struct {
	Date billing.Date
	Rows []reporting.FollowUpRow
}

// Total is the amount due across the digest.
func (d Digest) Total() decimal.Decimal {
	return reporting.TotalDue(d.Rows)
}

// Subject is the email subject line.
func (d Digest) Subject() string {
	switch len(d.Rows) {
	case 0:
		return fmt.Sprintf("Follow-ups for %s: none due", d.Date.Long())
	case 1:
		return fmt.Sprintf("Follow-ups for %s: 1 client, %s due", d.Date.Long(), billing.USD(d.Total()))
	}
	return fmt.Sprintf("Follow-ups for %s: %d clients, %s due", d.Date.Long(), len(d.Rows), billing.USD(d.Total()))
}

// Text renders the plain-text body.
func (d Digest) Text() string {
	if len(d.Rows) == 0 {
		return "No clients need a follow-up today."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d clients need a follow-up today.\n\n", len(d.Rows))
	for _, r := range d.Rows {
		fmt.Fprintf(&b, "%s: %s due (%s). Last contact: %s\n", r.Name, billing.USD(r.AmountDue), r.MissedRange, r.LastContactLabel())
		if r.MyCaseLink != "" {
			fmt.Fprintf(&b, "  %s\n", r.MyCaseLink)
		}
	}
	fmt.Fprintf(&b, "\nTotal due: %s\n", billing.USD(d.Total()))
	return b.String()
}

var digestHTML = template.Must(template.New("digest").Parse(`<h2>Follow-ups for {{.Date}}</h2>
{{if .Rows}}<table>
<tr><th>Client</th><th>Amount due</th><th>Missed</th><th>Last contact</th></tr>
{{range .Rows}}<tr><td>{{if .Link}}<a href="{{.Link}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</td><td>{{.Due}}</td><td>{{.Missed}}</td><td>{{.LastContact}}</td></tr>
{{end}}</table>
<p>Total due: {{.Total}}</p>{{else}}<p>No clients need a follow-up today.</p>{{end}}
`))

type htmlRow struct {
	Name, Link, Due, Missed, LastContact string
}

// HTML renders the HTML body.
func (d Digest) HTML() (string, error) {
	rows := make([]htmlRow, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = htmlRow{
			Name:        r.Name,
			Link:        r.MyCaseLink,
			Due:         billing.USD(r.AmountDue),
			Missed:      r.MissedRange,
			LastContact: r.LastContactLabel(),
		}
	}
	var b strings.Builder
	err := digestHTML.Execute(&b, map[string]any{
		"Date":  d.Date.Long(),
		"Rows":  rows,
		"Total": billing.USD(d.Total()),
	})
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return b.String(), nil
}

// =============================================================================
// LOG NOTIFIER
// =============================================================================

// LogNotifier writes the digest to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) SendDigest(_ context.Context, d Digest) error {
	l := n.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("follow-up digest", "date", d.Date.String(), "clients", len(d.Rows), "total_due", d.Total().String())
	for _, r := range d.Rows {
		l.Info("follow-up due", "client_id", r.ClientID, "name", r.Name, "amount_due", r.AmountDue.String(), "missed", r.MissedRange)
	}
	return nil
}
