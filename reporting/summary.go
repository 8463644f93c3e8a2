/*
Package reporting aggregates billing engine output across clients.

PURPOSE:
  The dashboard, reporting summary, follow-up list, promise calendar and
  client list all show numbers derived from many clients at once. This
  package computes them from billing.ComputeBillingState only; it never
  re-derives a missed month or an amount due on its own.

KEY CONCEPTS:
  - Summary: collections totals as of one date (summary.go)
  - FollowUpRow: a client due for outreach (followups.go)
  - PromiseRow / PromiseDay: promise calendar entries (promises.go)
  - ClientRow / Page: the searchable, sortable client list (clients.go)

DESIGN PRINCIPLES:
  1. Every function takes an explicit asOf/today date
  2. Unconfigured clients count toward totals but never toward amounts
  3. Pure: no store access; callers pass the client slice in

SEE ALSO:
  - billing/schedule.go: the engine every figure comes from
  - api/handlers.go: HTTP endpoints serving these views
*/
package reporting

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
)

// HighBalanceThreshold flags clients whose amount due exceeds it.
var HighBalanceThreshold = decimal.NewFromInt(2000)

// DefaultHistoryMonths is how many months the per-month series cover.
const DefaultHistoryMonths = 3

// =============================================================================
// SUMMARY - Collections totals
// =============================================================================

type Summary struct {
	AsOf billing.Date `json:"asOf"`

	TotalClients     int             `json:"totalClients"`
	PastDueCount     int             `json:"pastDueCount"`
	PastDuePercent   int             `json:"pastDuePercent"`
	TotalAmountOwed  decimal.Decimal `json:"totalAmountOwed"`
	HighBalanceCount int             `json:"highBalanceCount"`
	ArrangementCount int             `json:"arrangementCount"`

	TotalPromisedThisMonth decimal.Decimal `json:"totalPromisedThisMonth"`
	ClientsWithPromise     int             `json:"clientsWithPromise"`
	PromisesMade           int             `json:"promisesMade"`
	PromisesFulfilled      int             `json:"promisesFulfilled"`

	Outstanding       decimal.Decimal `json:"outstanding"`
	Collected         decimal.Decimal `json:"collected"`
	ExpectedThisMonth decimal.Decimal `json:"expectedThisMonth"`

	OwedByCaseType  []CaseTypeAmount `json:"owedByCaseType"`
	CasesByStatus   []StatusCount    `json:"casesByStatus"`
	PaymentsByMonth []MonthAmount    `json:"paymentsByMonth"`
	PastDueByMonth  []MonthAmount    `json:"pastDueByMonth"`
}

type CaseTypeAmount struct {
	CaseType billing.CaseType `json:"caseType"`
	Amount   decimal.Decimal  `json:"amount"`
}

type StatusCount struct {
	Status billing.CaseStatus `json:"status"`
	Count  int                `json:"count"`
}

type MonthAmount struct {
	Month  billing.YearMonth `json:"month"`
	Label  string            `json:"label"`
	Amount decimal.Decimal   `json:"amount"`
}

// Summarize computes collections totals as of asOf, with per-month series
// covering the last months months (DefaultHistoryMonths when months <= 0).
//
// Arrangement and promise counts only consider clients whose billing is
// configured.
func Summarize(clients []billing.Client, asOf billing.Date, months int) Summary {
	if months <= 0 {
		months = DefaultHistoryMonths
	}
	s := Summary{
		AsOf:                   asOf,
		TotalClients:           len(clients),
		TotalAmountOwed:        decimal.Zero,
		TotalPromisedThisMonth: decimal.Zero,
		Outstanding:            decimal.Zero,
		Collected:              decimal.Zero,
		ExpectedThisMonth:      decimal.Zero,
	}

	thisMonth := asOf.YearMonth()
	owedByType := map[billing.CaseType]decimal.Decimal{}
	byStatus := map[billing.CaseStatus]int{}

	for _, c := range clients {
		if c.CaseStatus != "" {
			byStatus[c.CaseStatus]++
		}
		for _, p := range c.Payments {
			s.Collected = s.Collected.Add(p.Amount)
		}

		state := billing.ComputeBillingState(c, asOf)
		if !state.Configured {
			continue
		}

		if state.IsPastDue() {
			s.PastDueCount++
			s.TotalAmountOwed = s.TotalAmountOwed.Add(state.AmountDue)
			owedByType[c.CaseType] = owedByType[c.CaseType].Add(state.AmountDue)
		}
		if state.AmountDue.GreaterThan(HighBalanceThreshold) {
			s.HighBalanceCount++
		}
		if c.PaymentArrangement != nil {
			s.ArrangementCount++
		}
		if state.RemainingBalance.IsPositive() {
			s.Outstanding = s.Outstanding.Add(state.RemainingBalance)
			if state.MonthsSinceStart > 0 {
				s.ExpectedThisMonth = s.ExpectedThisMonth.Add(decimal.Min(state.InstallmentAmount, state.RemainingBalance))
			}
		}

		if p := c.PaymentPromise; p != nil && !p.Date.IsZero() {
			if p.Date.YearMonth() == thisMonth {
				s.TotalPromisedThisMonth = s.TotalPromisedThisMonth.Add(p.Amount)
			}
			s.ClientsWithPromise++
			s.PromisesMade++
			if billing.IsPromiseFulfilledBy(*p, c.Payments) {
				s.PromisesFulfilled++
			}
		}
	}

	if s.TotalClients > 0 {
		s.PastDuePercent = int(math.Round(float64(s.PastDueCount) / float64(s.TotalClients) * 100))
	}

	s.OwedByCaseType = sortedCaseTypes(owedByType)
	s.CasesByStatus = make([]StatusCount, 0, len(billing.CaseStatuses))
	for _, st := range billing.CaseStatuses {
		s.CasesByStatus = append(s.CasesByStatus, StatusCount{Status: st, Count: byStatus[st]})
	}
	s.PaymentsByMonth = PaymentsByMonth(clients, thisMonth, months)
	s.PastDueByMonth = PastDueByMonth(clients, asOf, months)
	return s
}

// PaymentsByMonth totals every recorded payment per calendar month for the
// months months ending with last, oldest first.
func PaymentsByMonth(clients []billing.Client, last billing.YearMonth, months int) []MonthAmount {
	series := monthSeries(last, months)
	index := make(map[billing.YearMonth]int, len(series))
	for i, m := range series {
		index[m.Month] = i
	}
	for _, c := range clients {
		for _, p := range c.Payments {
			if i, ok := index[p.Date.YearMonth()]; ok {
				series[i].Amount = series[i].Amount.Add(p.Amount)
			}
		}
	}
	return series
}

// PastDueByMonth reports the total amount due at the end of each of the
// months months ending with asOf's month. The current month is measured at
// asOf rather than its last day. Each month only sees the payments made by
// then, so a later catch-up payment does not erase earlier arrears.
func PastDueByMonth(clients []billing.Client, asOf billing.Date, months int) []MonthAmount {
	series := monthSeries(asOf.YearMonth(), months)
	for i := range series {
		m := series[i].Month
		at := billing.NewDate(m.Year, m.Month, 1).AddMonths(1).AddDays(-1)
		if at.After(asOf) {
			at = asOf
		}
		for _, c := range clients {
			state := billing.ComputeBillingState(paidBy(c, at), at)
			series[i].Amount = series[i].Amount.Add(state.AmountDue)
		}
	}
	return series
}

// paidBy returns c with only the payments dated on or before at.
func paidBy(c billing.Client, at billing.Date) billing.Client {
	payments := make([]billing.Payment, 0, len(c.Payments))
	for _, p := range c.Payments {
		if !p.Date.IsZero() && p.Date.BeforeOrEqual(at) {
			payments = append(payments, p)
		}
	}
	c.Payments = payments
	return c
}

func monthSeries(last billing.YearMonth, months int) []MonthAmount {
	out := make([]MonthAmount, months)
	for i := range out {
		m := last.AddMonths(i - months + 1)
		out[i] = MonthAmount{Month: m, Label: m.Label(), Amount: decimal.Zero}
	}
	return out
}

func sortedCaseTypes(owed map[billing.CaseType]decimal.Decimal) []CaseTypeAmount {
	out := make([]CaseTypeAmount, 0, len(owed))
	for ct, amount := range owed {
		out = append(out, CaseTypeAmount{CaseType: ct, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].CaseType < out[j].CaseType
	})
	return out
}
