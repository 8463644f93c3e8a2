/*
schedule.go - The billing schedule engine

PURPOSE:
  Computes every derived billing number from one Client snapshot and an
  explicit asOf date. The client list, dashboard, follow-up list, reporting
  summary and letters all call ComputeBillingState and render its result;
  none of them repeat any part of the calculation.

ALGORITHM:
  start            = firstInstallmentDate (absent -> unconfigured state)
  validPayments    = payments dated on or after start
  validTotalPaid   = sum(validPayments)
  remainingBalance = invoiceTotal - validTotalPaid        (signed, never clamped)
  monthsSinceStart = months from start to asOf, start month counted as 1
  installmentsPaid = floor(validTotalPaid / installment)
  missedCount      = max(0, monthsSinceStart - installmentsPaid)
  missedMonths     = due dates start+i months for i in [paid, paid+missed), <= asOf
  amountDue        = missedCount * installment
  paymentsLeft     = ceil(max(remainingBalance, 0) / installment)
  expectedMonths   = start + (paid + missed + i) months for i in [0, paymentsLeft)

EXAMPLE:
  start=2023-01-01, installment=500, payments 500 on Jan 10 and Feb 10,
  asOf=2023-04-01:
    monthsSinceStart=4, installmentsPaid=2, missedCount=2
    missedMonths = [March 2023, April 2023], amountDue = 1000

SEE ALSO:
  - promise.go: promise fulfillment rule
  - followup.go: follow-up due rule (uses MissedCount)
  - letters/summary.go: past-due table built from MissedMonths
*/
package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BILLING STATE - Output of the engine
// =============================================================================

// DueMonth is one installment due date in the schedule.
type DueMonth struct {
	Date  Date      `json:"date"`
	Month YearMonth `json:"month"`
	Label string    `json:"label"`
}

func newDueMonth(d Date) DueMonth {
	ym := d.YearMonth()
	return DueMonth{Date: d, Month: ym, Label: ym.Label()}
}

// BillingState is the derived billing picture for one client as of one date.
type BillingState struct {
	AsOf       Date `json:"asOf"`
	Configured bool `json:"configured"`

	InvoiceTotal      decimal.Decimal `json:"invoiceTotal"`
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	ValidTotalPaid    decimal.Decimal `json:"validTotalPaid"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`

	MonthsSinceStart int             `json:"monthsSinceStart"`
	InstallmentsPaid int             `json:"installmentsPaid"`
	MissedCount      int             `json:"missedCount"`
	MissedMonths     []DueMonth      `json:"missedMonths"`
	AmountDue        decimal.Decimal `json:"amountDue"`

	PaymentsLeft   int        `json:"paymentsLeft"`
	ExpectedMonths []DueMonth `json:"expectedMonths"`

	// LastPayment is the valid payment with the latest date, nil when none.
	LastPayment *Payment `json:"lastPayment"`

	// ArrangementActive is true when a payment arrangement covers asOf's month.
	ArrangementActive bool `json:"arrangementActive"`
}

// ComputeBillingState derives the billing state of c as of asOf.
// It never fails: a client without a usable first installment date yields an
// unconfigured state with zero amount due and no due months.
func ComputeBillingState(c Client, asOf Date) BillingState {
	installment := c.Installment()
	state := BillingState{
		AsOf:              asOf,
		InvoiceTotal:      c.InvoiceTotal,
		InstallmentAmount: installment,
		ValidTotalPaid:    decimal.Zero,
		RemainingBalance:  c.InvoiceTotal,
		AmountDue:         decimal.Zero,
		MissedMonths:      []DueMonth{},
		ExpectedMonths:    []DueMonth{},
	}
	if c.PaymentArrangement != nil {
		state.ArrangementActive = c.PaymentArrangement.ActiveIn(asOf.YearMonth())
	}

	start := c.FirstInstallmentDate
	if start.IsZero() {
		return state
	}
	state.Configured = true

	valid := ValidPayments(c)
	for i := range valid {
		p := valid[i]
		state.ValidTotalPaid = state.ValidTotalPaid.Add(p.Amount)
		if state.LastPayment == nil || p.Date.After(state.LastPayment.Date) {
			state.LastPayment = &p
		}
	}
	state.RemainingBalance = c.InvoiceTotal.Sub(state.ValidTotalPaid)

	state.MonthsSinceStart = MonthsSinceStart(start, asOf)
	state.InstallmentsPaid = int(state.ValidTotalPaid.Div(installment).Floor().IntPart())
	state.MissedCount = max(0, state.MonthsSinceStart-state.InstallmentsPaid)

	for i := state.InstallmentsPaid; i < state.InstallmentsPaid+state.MissedCount; i++ {
		due := start.AddMonths(i)
		if due.After(asOf) {
			continue
		}
		state.MissedMonths = append(state.MissedMonths, newDueMonth(due))
	}
	state.AmountDue = installment.Mul(decimal.NewFromInt(int64(state.MissedCount)))

	outstanding := decimal.Max(state.RemainingBalance, decimal.Zero)
	state.PaymentsLeft = int(outstanding.Div(installment).Ceil().IntPart())

	offset := state.InstallmentsPaid + state.MissedCount
	for i := 0; i < state.PaymentsLeft; i++ {
		state.ExpectedMonths = append(state.ExpectedMonths, newDueMonth(start.AddMonths(offset+i)))
	}

	return state
}

// ValidPayments returns the payments dated on or after the first installment
// date, in insertion order. Payments without a usable date are dropped.
func ValidPayments(c Client) []Payment {
	start := c.FirstInstallmentDate
	if start.IsZero() {
		return nil
	}
	out := make([]Payment, 0, len(c.Payments))
	for _, p := range c.Payments {
		if p.Date.IsZero() || p.Date.Before(start) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MonthsSinceStart counts calendar months from start to asOf inclusive, so
// the start month itself is month 1. Returns 0 when asOf precedes start's month.
func MonthsSinceStart(start, asOf Date) int {
	n := asOf.YearMonth().Index() - start.YearMonth().Index() + 1
	return max(0, n)
}

// =============================================================================
// DISPLAY TRANSFORMS - Pure functions over BillingState
// =============================================================================

// IsPastDue reports whether at least one installment is missed.
func (s BillingState) IsPastDue() bool { return s.MissedCount > 0 }

// Status renders the list badge: "Current" or "2 months past due".
func (s BillingState) Status() string {
	switch s.MissedCount {
	case 0:
		return "Current"
	case 1:
		return "1 month past due"
	}
	return fmt.Sprintf("%d months past due", s.MissedCount)
}

// MissedRange renders "March 2023 – April 2023", a single month label, or "None".
func (s BillingState) MissedRange() string {
	switch len(s.MissedMonths) {
	case 0:
		return "None"
	case 1:
		return s.MissedMonths[0].Label
	}
	return s.MissedMonths[0].Label + " – " + s.MissedMonths[len(s.MissedMonths)-1].Label
}

// MissedLabels returns the "<Month> <Year>" label of every missed month.
func (s BillingState) MissedLabels() []string {
	return labels(s.MissedMonths)
}

// ExpectedLabels returns the "<Month> <Year>" label of every expected month.
func (s BillingState) ExpectedLabels() []string {
	return labels(s.ExpectedMonths)
}

// LastPaymentDisplay renders "January 2, 2023 – $500" or "N/A".
func (s BillingState) LastPaymentDisplay() string {
	if s.LastPayment == nil {
		return "N/A"
	}
	return s.LastPayment.Date.Long() + " – " + USD(s.LastPayment.Amount)
}

// NextDue returns the first expected due month, if any remain.
func (s BillingState) NextDue() (DueMonth, bool) {
	if len(s.ExpectedMonths) == 0 {
		return DueMonth{}, false
	}
	return s.ExpectedMonths[0], true
}

// Summary is a one-line text rendering used in logs and digests.
func (s BillingState) Summary() string {
	if !s.Configured {
		return "billing not configured"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s, due %s", s.Status(), USD(s.AmountDue))
	if len(s.MissedMonths) > 0 {
		fmt.Fprintf(&b, " (%s)", s.MissedRange())
	}
	return b.String()
}

func labels(months []DueMonth) []string {
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = m.Label
	}
	return out
}
