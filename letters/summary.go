/*
Package letters prepares the data for client letters.

PURPOSE:
  Warning and termination letters quote the client's past-due installments.
  This package turns billing engine output into a serializable past-due
  summary (ordered rows plus a total) and into the named value sets a
  document template is filled with. Producing the .docx itself is left to
  the template collaborator.

KEY CONCEPTS:
  - PastDue: rows of {label, amount} plus a total (summary.go)
  - Letter: template, filename and values for one letter (letters.go)

INVARIANTS:
  - PastDue.Total equals the engine's AmountDue for the same asOf
  - The sum of row amounts equals PastDue.Total

SEE ALSO:
  - billing/schedule.go: MissedMonths and AmountDue
  - api/handlers.go: letter endpoints
*/
package letters

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
)

// =============================================================================
// PAST-DUE SUMMARY
// =============================================================================

// Row is one past-due installment. Upcoming marks an installment counted as
// missed whose due date falls later in asOf's month.
type Row struct {
	Label    string          `json:"label"`
	DueDate  billing.Date    `json:"dueDate"`
	Amount   decimal.Decimal `json:"amount"`
	Upcoming bool            `json:"upcoming,omitempty"`
}

type PastDue struct {
	AsOf  billing.Date    `json:"asOf"`
	Rows  []Row           `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// PastDueSummary lists the client's missed installments as of asOf, labeled
// "Jan 15, 2023", each for the installment amount.
func PastDueSummary(c billing.Client, asOf billing.Date) PastDue {
	state := billing.ComputeBillingState(c, asOf)
	out := PastDue{AsOf: asOf, Rows: []Row{}, Total: state.AmountDue}
	if !state.Configured {
		return out
	}

	for _, m := range state.MissedMonths {
		out.Rows = append(out.Rows, Row{Label: m.Date.Short(), DueDate: m.Date, Amount: state.InstallmentAmount})
	}
	for i := len(state.MissedMonths); i < state.MissedCount; i++ {
		due := c.FirstInstallmentDate.AddMonths(state.InstallmentsPaid + i)
		out.Rows = append(out.Rows, Row{Label: due.Short(), DueDate: due, Amount: state.InstallmentAmount, Upcoming: true})
	}
	return out
}

// IsEmpty reports whether nothing is past due.
func (p PastDue) IsEmpty() bool { return len(p.Rows) == 0 }

// TotalLabel renders the total with cents: "$1,500.00".
func (p PastDue) TotalLabel() string { return billing.USDCents(p.Total) }

const tableWidth = 28

// RenderTable renders the plain-text table pasted into letters:
//
//	Jan 15, 2023                $500.00
//	Feb 15, 2023                $500.00
//	------------------------------
//	Total                       $1,000.00
//
// An empty summary renders as "N/A".
func RenderTable(p PastDue) string {
	if p.IsEmpty() {
		return "N/A"
	}
	var b strings.Builder
	for _, r := range p.Rows {
		fmt.Fprintf(&b, "%-*s%s\n", tableWidth, r.Label, billing.USDCents(r.Amount))
	}
	b.WriteString(strings.Repeat("-", 30))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%-*s%s", tableWidth, "Total", p.TotalLabel())
	return b.String()
}
