/*
Package billing provides the billing schedule engine for the collections tracker.

PURPOSE:
  Every screen of the collections tracker (client list, client dashboard,
  follow-up list, reporting summary, letter drafting) needs the same derived
  numbers: how much has been paid toward installments, which months were
  missed, how much is past due and what is still expected. This package is
  the ONLY place those numbers are computed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Client: the document stored per person/case
  - Payment: an immutable payment record
  - Arrangement: a temporary reduced monthly amount for a month range
  - Promise: a client's commitment to pay an amount by a date
  - LogEntry: one communication log line

DESIGN PRINCIPLES:
  1. Purity: computations take a Client snapshot and an explicit asOf date
  2. Precision: money is decimal.Decimal, never float64
  3. Fail soft: missing or corrupt billing fields mean "not configured"
  4. One mutation path: every change goes through Apply (events.go)

SEE ALSO:
  - schedule.go: ComputeBillingState
  - promise.go: EvaluatePromise
  - followup.go: IsFollowUpDue
  - events.go: Apply reducer
  - store.go: ClientStore interface
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultInstallmentAmount is used when a client has no installment amount set.
var DefaultInstallmentAmount = decimal.NewFromInt(500)

// =============================================================================
// ENUMS
// =============================================================================

type CaseType string

const (
	CaseVAWASpouse  CaseType = "VAWA SPOUSE"
	CaseParentVAWA  CaseType = "PARENT VAWA"
	CaseChildVAWA   CaseType = "CHILD VAWA"
	CaseTVisa       CaseType = "T VISA"
	CaseUVisa       CaseType = "U VISA"
	CaseMarriageAOS CaseType = "MARRIAGE AOS"
	CaseN400        CaseType = "N400"
	CaseI751Regular CaseType = "I751 REGULAR"
	CaseI751ECB     CaseType = "I751 ECB"
	CaseI90         CaseType = "I90"
	CaseAsylum      CaseType = "ASYLUM"
)

// CaseTypes lists every case type in intake-form order.
var CaseTypes = []CaseType{
	CaseVAWASpouse, CaseParentVAWA, CaseChildVAWA, CaseTVisa, CaseUVisa,
	CaseMarriageAOS, CaseN400, CaseI751Regular, CaseI751ECB, CaseI90, CaseAsylum,
}

type CaseStatus string

const (
	StatusActive   CaseStatus = "ACTIVE"
	StatusFiled    CaseStatus = "FILED"
	StatusApproved CaseStatus = "APPROVED"
)

var CaseStatuses = []CaseStatus{StatusActive, StatusFiled, StatusApproved}

// =============================================================================
// CLIENT - One document per person/case
// =============================================================================

type Client struct {
	ID         string     `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	CaseType   CaseType   `json:"caseType"`
	CaseStatus CaseStatus `json:"caseStatus"`
	MyCaseLink string     `json:"myCaseLink,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`

	// Billing setup. Zero values mean "not configured yet".
	InvoiceTotal         decimal.Decimal `json:"invoiceTotal"`
	InstallmentAmount    decimal.Decimal `json:"installmentAmount"`
	FirstInstallmentDate Date            `json:"firstInstallmentDate"`
	InitialPaymentDate   Date            `json:"initialPaymentDate"`

	// Append-only, insertion ordered.
	Payments []Payment `json:"payments"`

	PaymentArrangement *Arrangement `json:"paymentArrangement"`
	PaymentPromise     *Promise     `json:"paymentPromise"`

	CommunicationLogs []LogEntry `json:"communicationLogs"`

	NextFollowUpDate        Date      `json:"nextFollowUpDate"`
	LastFollowUpContactDate time.Time `json:"lastFollowUpContactDate"`

	Letters []LetterRecord `json:"letters,omitempty"`
}

// FullName returns "First Last".
func (c Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Installment returns the configured installment amount, or the default when
// the stored value is absent or not positive.
func (c Client) Installment() decimal.Decimal {
	if c.InstallmentAmount.IsPositive() {
		return c.InstallmentAmount
	}
	return DefaultInstallmentAmount
}

// Clone returns a deep copy so reducers never share slices with their input.
func (c Client) Clone() Client {
	out := c
	out.Payments = append([]Payment(nil), c.Payments...)
	out.CommunicationLogs = append([]LogEntry(nil), c.CommunicationLogs...)
	out.Letters = append([]LetterRecord(nil), c.Letters...)
	if c.PaymentArrangement != nil {
		a := *c.PaymentArrangement
		out.PaymentArrangement = &a
	}
	if c.PaymentPromise != nil {
		p := *c.PaymentPromise
		out.PaymentPromise = &p
	}
	return out
}

// =============================================================================
// PAYMENT - Immutable once recorded
// =============================================================================

type Payment struct {
	Amount     decimal.Decimal `json:"amount"`
	Date       Date            `json:"date"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// =============================================================================
// ARRANGEMENT & PROMISE - At most one of each per client
// =============================================================================

// Arrangement reduces the monthly amount for an inclusive month range.
type Arrangement struct {
	ReducedAmount decimal.Decimal `json:"reducedAmount"`
	StartMonth    YearMonth       `json:"startMonth"`
	EndMonth      YearMonth       `json:"endMonth"`
}

// ActiveIn reports whether the arrangement covers the given month. A range
// with an unknown start or end month covers nothing.
func (a Arrangement) ActiveIn(m YearMonth) bool {
	if a.StartMonth.IsZero() || a.EndMonth.IsZero() {
		return false
	}
	return !m.Before(a.StartMonth) && !a.EndMonth.Before(m)
}

// Label renders "January 2023 – March 2023".
// Unknown months render as "?".
func (a Arrangement) Label() string {
	return monthLabel(a.StartMonth) + " – " + monthLabel(a.EndMonth)
}

func monthLabel(m YearMonth) string {
	if m.IsZero() {
		return "?"
	}
	return m.Label()
}

type Promise struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes,omitempty"`
}

// =============================================================================
// COMMUNICATION LOG & LETTERS - Append-only
// =============================================================================

type LogEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
}

type LetterRecord struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	SubType     string    `json:"subType"`
	Filename    string    `json:"filename"`
	GeneratedAt time.Time `json:"generatedAt"`
}
