package billing

import "github.com/shopspring/decimal"

// PromiseEvaluation is the outcome of checking a new payment against the
// client's active promise. ClearPromise tells the caller to persist a null
// promise; the engine itself never writes.
type PromiseEvaluation struct {
	Fulfilled    bool `json:"fulfilled"`
	ClearPromise bool `json:"clearPromise"`
}

// EvaluatePromise checks whether a payment of amount on paymentDate fulfills
// the client's active promise: it must be paid on or before the promised date
// and cover at least the promised amount.
func EvaluatePromise(c Client, paymentDate Date, amount decimal.Decimal) PromiseEvaluation {
	p := c.PaymentPromise
	// Apply rejects an undated payment, so a zero paymentDate only reaches
	// here from direct callers.
	if p == nil || p.Date.IsZero() || paymentDate.IsZero() {
		return PromiseEvaluation{}
	}
	if paymentDate.BeforeOrEqual(p.Date) && amount.GreaterThanOrEqual(p.Amount) {
		return PromiseEvaluation{Fulfilled: true, ClearPromise: true}
	}
	return PromiseEvaluation{}
}

// IsPromiseMissed reports whether the active promise's date has passed.
// Fulfilled promises are cleared on payment, so an active promise past its
// date is a missed one.
func IsPromiseMissed(c Client, today Date) bool {
	p := c.PaymentPromise
	if p == nil || p.Date.IsZero() {
		return false
	}
	return today.After(p.Date)
}

// IsPromiseFulfilledBy reports whether any recorded payment satisfies the
// promise. Reporting uses it for promises that were kept but never cleared.
func IsPromiseFulfilledBy(p Promise, payments []Payment) bool {
	if p.Date.IsZero() {
		return false
	}
	for _, pay := range payments {
		if !pay.Date.IsZero() && pay.Date.BeforeOrEqual(p.Date) && pay.Amount.GreaterThanOrEqual(p.Amount) {
			return true
		}
	}
	return false
}
