/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Request bodies are the billing events and letter forms themselves (their
  JSON tags are the API contract). This file holds the response wrappers
  that add derived billing fields to stored client documents.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types that are not billing events, or that
    need stricter parsing than the stored document

TYPES:
  Clients:   ClientDetailDTO, BillingDTO
  Reports:   FollowUpsDTO, PromisesDTO
  Letters:   LetterDTO
  Scenarios: ScenarioDTO, LoadScenarioRequest
  Errors:    ErrorResponse

SEE ALSO:
  - handlers.go: Uses these types
  - billing/events.go: Event request bodies
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
	"github.com/warp/collections-engine/letters"
	"github.com/warp/collections-engine/reporting"
)

// =============================================================================
// CLIENT RESPONSES
// =============================================================================

// BillingDTO is the engine output plus its display transforms.
type BillingDTO struct {
	billing.BillingState

	Status             string            `json:"status"`
	MissedRange        string            `json:"missedRange"`
	LastPaymentDisplay string            `json:"lastPaymentDisplay"`
	NextDue            *billing.DueMonth `json:"nextDue,omitempty"`
	FollowUpDue        bool              `json:"followUpDue"`
	PromiseMissed      bool              `json:"promiseMissed"`
	Arrangement        string            `json:"arrangement,omitempty"`
}

func newBillingDTO(c billing.Client, asOf billing.Date, cutoffDay int) BillingDTO {
	state := billing.ComputeBillingState(c, asOf)
	dto := BillingDTO{
		BillingState:       state,
		Status:             state.Status(),
		MissedRange:        state.MissedRange(),
		LastPaymentDisplay: state.LastPaymentDisplay(),
		FollowUpDue:        billing.IsFollowUpDue(c, asOf, cutoffDay),
		PromiseMissed:      billing.IsPromiseMissed(c, asOf),
	}
	if next, ok := state.NextDue(); ok {
		dto.NextDue = &next
	}
	if c.PaymentArrangement != nil {
		dto.Arrangement = c.PaymentArrangement.Label()
	}
	return dto
}

// ClientDetailDTO is a stored client with its billing picture.
type ClientDetailDTO struct {
	Client  billing.Client `json:"client"`
	Billing BillingDTO     `json:"billing"`
}

// =============================================================================
// REPORT RESPONSES
// =============================================================================

type FollowUpsDTO struct {
	Date      billing.Date            `json:"date"`
	CutoffDay int                     `json:"cutoffDay"`
	Rows      []reporting.FollowUpRow `json:"rows"`
	TotalDue  decimal.Decimal         `json:"totalDue"`
}

// PromisesDTO answers a promise lookup: Rows for a single date, Days for a month.
type PromisesDTO struct {
	Date  *billing.Date          `json:"date,omitempty"`
	Month *billing.YearMonth     `json:"month,omitempty"`
	Rows  []reporting.PromiseRow `json:"rows,omitempty"`
	Days  []reporting.PromiseDay `json:"days,omitempty"`
	Total decimal.Decimal        `json:"total"`
}

type MetaDTO struct {
	CaseTypes    []billing.CaseType   `json:"caseTypes"`
	CaseStatuses []billing.CaseStatus `json:"caseStatuses"`
	Installment  decimal.Decimal      `json:"defaultInstallment"`
}

// =============================================================================
// LETTERS
// =============================================================================

// LetterDTO is a generated letter and the metadata recorded on the client.
type LetterDTO struct {
	Letter letters.Letter       `json:"letter"`
	Record billing.LetterRecord `json:"record"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ArrangementRequest is the arrangement form. Months are parsed strictly
// here; stored documents decode unknown months leniently.
type ArrangementRequest struct {
	ReducedAmount decimal.Decimal `json:"reducedAmount"`
	StartMonth    string          `json:"startMonth"`
	EndMonth      string          `json:"endMonth"`
}

// Event parses the month range into a billing event.
func (r ArrangementRequest) Event() (billing.SetArrangement, error) {
	ev := billing.SetArrangement{ReducedAmount: r.ReducedAmount}
	var bad billing.ValidationError
	var err error
	if ev.StartMonth, err = billing.ParseYearMonth(r.StartMonth); err != nil {
		bad.Fields = append(bad.Fields, billing.FieldError{Field: "startMonth", Message: "must be a month like 2023-01"})
	}
	if ev.EndMonth, err = billing.ParseYearMonth(r.EndMonth); err != nil {
		bad.Fields = append(bad.Fields, billing.FieldError{Field: "endMonth", Message: "must be a month like 2023-01"})
	}
	if len(bad.Fields) > 0 {
		return ev, &bad
	}
	return ev, nil
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Code    string               `json:"code"`
	Details string               `json:"details,omitempty"`
	Fields  []billing.FieldError `json:"fields,omitempty"`
}
