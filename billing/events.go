/*
events.go - The single mutation path for client documents

PURPOSE:
  Every user action on a client (invoice setup, payments, arrangement,
  promise, communication log, follow-up scheduling, letters, profile edits)
  is an Event. Apply validates the event, returns the next Client snapshot
  and the Patch the store must write. Nothing else mutates a Client.

INVARIANTS:
  - Apply never mutates its input client
  - A rejected event returns the input unchanged with a *ValidationError
  - Payments and log entries are only ever appended
  - The returned Patch names exactly the fields written

EXAMPLE:
  next, patch, err := billing.Apply(client, billing.RecordPayment{
      Amount: decimal.NewFromInt(300),
      Date:   billing.MustParseDate("2023-04-30"),
  }, now)
  // patch.Append["payments"] holds the new payment; when the payment
  // fulfilled the active promise, patch.Set["paymentPromise"] is nil and
  // patch.Append["communicationLogs"] records it.

SEE ALSO:
  - patch.go: Patch and document merge
  - validate.go: struct-tag validation
  - promise.go: EvaluatePromise
*/
package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultAuthor is recorded on log entries submitted without an author.
const DefaultAuthor = "Anonymous"

// Document field names written by Apply.
const (
	FieldFirstName               = "firstName"
	FieldLastName                = "lastName"
	FieldCaseType                = "caseType"
	FieldCaseStatus              = "caseStatus"
	FieldMyCaseLink              = "myCaseLink"
	FieldInvoiceTotal            = "invoiceTotal"
	FieldInstallmentAmount       = "installmentAmount"
	FieldFirstInstallmentDate    = "firstInstallmentDate"
	FieldInitialPaymentDate      = "initialPaymentDate"
	FieldPayments                = "payments"
	FieldPaymentArrangement      = "paymentArrangement"
	FieldPaymentPromise          = "paymentPromise"
	FieldCommunicationLogs       = "communicationLogs"
	FieldNextFollowUpDate        = "nextFollowUpDate"
	FieldLastFollowUpContactDate = "lastFollowUpContactDate"
	FieldLetters                 = "letters"
)

// Event is a user action on one client.
type Event interface {
	EventType() string
}

// =============================================================================
// EVENTS
// =============================================================================

// SetupInvoice configures billing and records the initial (retainer) payment.
// A zero InstallmentAmount keeps the current amount, or the default when none.
// InvoiceTotal must be positive: a configured $0 invoice would still accrue
// missed installments, so a pro bono case stays uninvoiced instead.
type SetupInvoice struct {
	InvoiceTotal         decimal.Decimal `json:"invoiceTotal" validate:"gt=0"`
	InstallmentAmount    decimal.Decimal `json:"installmentAmount" validate:"gte=0"`
	InitialPayment       decimal.Decimal `json:"initialPayment" validate:"gte=0"`
	InitialPaymentDate   Date            `json:"initialPaymentDate"`
	FirstInstallmentDate Date            `json:"firstInstallmentDate" validate:"required"`
}

type RecordPayment struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Date   Date            `json:"date" validate:"required"`
	Author string          `json:"author,omitempty"`
}

type SetArrangement struct {
	ReducedAmount decimal.Decimal `json:"reducedAmount" validate:"gt=0"`
	StartMonth    YearMonth       `json:"startMonth" validate:"required"`
	EndMonth      YearMonth       `json:"endMonth" validate:"required"`
}

type DeleteArrangement struct{}

type SetPromise struct {
	Date   Date            `json:"date" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Notes  string          `json:"notes" validate:"max=2000"`
	Author string          `json:"author,omitempty"`
}

type DeletePromise struct{}

type AppendLog struct {
	Message string `json:"message" validate:"required,max=5000"`
	Author  string `json:"author,omitempty"`
}

// ScheduleFollowUp sets the next follow-up date and stamps the contact time.
type ScheduleFollowUp struct {
	Date Date `json:"date" validate:"required"`
}

type RecordLetter struct {
	Type     string `json:"type" validate:"required"`
	SubType  string `json:"subType"`
	Filename string `json:"filename" validate:"required"`
}

// UpdateProfile replaces the profile fields. It is also the intake form for
// NewClient.
type UpdateProfile struct {
	FirstName  string     `json:"firstName" validate:"required,max=200"`
	LastName   string     `json:"lastName" validate:"required,max=200"`
	CaseType   CaseType   `json:"caseType" validate:"required,casetype"`
	CaseStatus CaseStatus `json:"caseStatus" validate:"required,casestatus"`
	MyCaseLink string     `json:"myCaseLink" validate:"omitempty,url"`
}

func (SetupInvoice) EventType() string      { return "setup_invoice" }
func (RecordPayment) EventType() string     { return "record_payment" }
func (SetArrangement) EventType() string    { return "set_arrangement" }
func (DeleteArrangement) EventType() string { return "delete_arrangement" }
func (SetPromise) EventType() string        { return "set_promise" }
func (DeletePromise) EventType() string     { return "delete_promise" }
func (AppendLog) EventType() string         { return "append_log" }
func (ScheduleFollowUp) EventType() string  { return "schedule_follow_up" }
func (RecordLetter) EventType() string      { return "record_letter" }
func (UpdateProfile) EventType() string     { return "update_profile" }

// =============================================================================
// REDUCER
// =============================================================================

// Apply validates ev against c and returns the next client and the patch to
// persist. On error the input client is returned unchanged.
func Apply(c Client, ev Event, now time.Time) (Client, Patch, error) {
	if ev == nil {
		return c, Patch{}, fmt.Errorf("apply: %w: nil", ErrUnknownEvent)
	}
	if err := Validate(ev); err != nil {
		return c, Patch{}, err
	}

	next := c.Clone()
	var patch Patch

	switch e := ev.(type) {
	case SetupInvoice:
		applySetupInvoice(&next, &patch, e, now)

	case RecordPayment:
		payment := Payment{Amount: e.Amount, Date: e.Date, RecordedAt: now}
		next.Payments = append(next.Payments, payment)
		patch.append(FieldPayments, payment)

		if EvaluatePromise(c, e.Date, e.Amount).ClearPromise {
			promise := *c.PaymentPromise
			next.PaymentPromise = nil
			patch.set(FieldPaymentPromise, nil)
			appendLog(&next, &patch, LogEntry{
				Message:   fmt.Sprintf("Payment of %s on %s fulfilled the promise to pay %s by %s.", USD(e.Amount), e.Date, USD(promise.Amount), promise.Date),
				Timestamp: now,
				User:      authorOr(e.Author),
			})
		}

	case SetArrangement:
		if e.EndMonth.Before(e.StartMonth) {
			return c, Patch{}, Invalid("endMonth", "must not be before startMonth")
		}
		a := &Arrangement{ReducedAmount: e.ReducedAmount, StartMonth: e.StartMonth, EndMonth: e.EndMonth}
		next.PaymentArrangement = a
		patch.set(FieldPaymentArrangement, a)

	case DeleteArrangement:
		if c.PaymentArrangement == nil {
			return next, patch, nil
		}
		next.PaymentArrangement = nil
		patch.set(FieldPaymentArrangement, nil)

	case SetPromise:
		p := &Promise{Date: e.Date, Amount: e.Amount, Notes: strings.TrimSpace(e.Notes)}
		next.PaymentPromise = p
		patch.set(FieldPaymentPromise, p)
		appendLog(&next, &patch, LogEntry{
			Message:   PromiseLogMessage(*p),
			Timestamp: now,
			User:      authorOr(e.Author),
		})

	case DeletePromise:
		if c.PaymentPromise == nil {
			return next, patch, nil
		}
		next.PaymentPromise = nil
		patch.set(FieldPaymentPromise, nil)

	case AppendLog:
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			return c, Patch{}, Invalid("message", "is required")
		}
		appendLog(&next, &patch, LogEntry{Message: msg, Timestamp: now, User: authorOr(e.Author)})

	case ScheduleFollowUp:
		next.NextFollowUpDate = e.Date
		next.LastFollowUpContactDate = now
		patch.set(FieldNextFollowUpDate, e.Date)
		patch.set(FieldLastFollowUpContactDate, now)

	case RecordLetter:
		rec := LetterRecord{
			ID:          uuid.NewString(),
			Type:        e.Type,
			SubType:     e.SubType,
			Filename:    e.Filename,
			GeneratedAt: now,
		}
		next.Letters = append(next.Letters, rec)
		patch.append(FieldLetters, rec)

	case UpdateProfile:
		next.FirstName = strings.TrimSpace(e.FirstName)
		next.LastName = strings.TrimSpace(e.LastName)
		next.CaseType = e.CaseType
		next.CaseStatus = e.CaseStatus
		next.MyCaseLink = strings.TrimSpace(e.MyCaseLink)
		patch.set(FieldFirstName, next.FirstName)
		patch.set(FieldLastName, next.LastName)
		patch.set(FieldCaseType, next.CaseType)
		patch.set(FieldCaseStatus, next.CaseStatus)
		patch.set(FieldMyCaseLink, next.MyCaseLink)

	default:
		return c, Patch{}, fmt.Errorf("apply: %w: %T", ErrUnknownEvent, ev)
	}

	return next, patch, nil
}

func applySetupInvoice(next *Client, patch *Patch, e SetupInvoice, now time.Time) {
	next.InvoiceTotal = e.InvoiceTotal
	next.FirstInstallmentDate = e.FirstInstallmentDate
	patch.set(FieldInvoiceTotal, e.InvoiceTotal)
	patch.set(FieldFirstInstallmentDate, e.FirstInstallmentDate)

	if e.InstallmentAmount.IsPositive() {
		next.InstallmentAmount = e.InstallmentAmount
	} else {
		next.InstallmentAmount = next.Installment()
	}
	patch.set(FieldInstallmentAmount, next.InstallmentAmount)

	if !e.InitialPayment.IsPositive() {
		return
	}
	paidOn := e.InitialPaymentDate
	if paidOn.IsZero() {
		paidOn = DateOf(now)
	}
	next.InitialPaymentDate = paidOn
	patch.set(FieldInitialPaymentDate, paidOn)

	payment := Payment{Amount: e.InitialPayment, Date: paidOn, RecordedAt: now}
	next.Payments = append(next.Payments, payment)
	patch.append(FieldPayments, payment)
}

func appendLog(next *Client, patch *Patch, entry LogEntry) {
	next.CommunicationLogs = append(next.CommunicationLogs, entry)
	patch.append(FieldCommunicationLogs, entry)
}

func authorOr(author string) string {
	if a := strings.TrimSpace(author); a != "" {
		return a
	}
	return DefaultAuthor
}

// PromiseLogMessage renders the communication log line written when a
// promise is saved.
func PromiseLogMessage(p Promise) string {
	notes := p.Notes
	if notes == "" {
		notes = "None"
	}
	return fmt.Sprintf("Client promised to pay %s on %s. Notes: %s", USD(p.Amount), p.Date, notes)
}

// NewClient builds a client from the intake form. The store assigns the id.
func NewClient(p UpdateProfile, now time.Time) (Client, error) {
	if err := Validate(p); err != nil {
		return Client{}, err
	}
	return Client{
		FirstName:  strings.TrimSpace(p.FirstName),
		LastName:   strings.TrimSpace(p.LastName),
		CaseType:   p.CaseType,
		CaseStatus: p.CaseStatus,
		MyCaseLink: strings.TrimSpace(p.MyCaseLink),
		CreatedAt:  now,
	}, nil
}
