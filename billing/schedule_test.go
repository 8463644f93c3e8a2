package billing_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/collections-engine/billing"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func day(s string) billing.Date { return billing.MustParseDate(s) }

func usd(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func pay(amount int64, date string) billing.Payment {
	return billing.Payment{Amount: usd(amount), Date: day(date)}
}

func billedClient(invoice int64, start string, payments ...billing.Payment) billing.Client {
	return billing.Client{
		ID:                   "client-1",
		FirstName:            "Maria",
		LastName:             "Lopez",
		InvoiceTotal:         usd(invoice),
		InstallmentAmount:    usd(500),
		FirstInstallmentDate: day(start),
		Payments:             payments,
	}
}

// =============================================================================
// UNCONFIGURED BILLING
// =============================================================================

func TestComputeBillingState_NoFirstInstallmentDate_Unconfigured(t *testing.T) {
	// GIVEN: A client with an invoice and payments but no installment start
	// WHEN: Computing billing state
	// THEN: Nothing is due and the remaining balance is the invoice total

	c := billing.Client{
		InvoiceTotal: usd(5000),
		Payments:     []billing.Payment{pay(500, "2023-01-10")},
	}

	state := billing.ComputeBillingState(c, day("2024-06-01"))

	assert.False(t, state.Configured)
	assert.True(t, state.AmountDue.IsZero())
	assert.Empty(t, state.MissedMonths)
	assert.Empty(t, state.ExpectedMonths)
	assert.Equal(t, 0, state.MonthsSinceStart)
	assert.Equal(t, "5000", state.RemainingBalance.String())
	assert.True(t, state.ValidTotalPaid.IsZero())
	assert.Equal(t, "N/A", state.LastPaymentDisplay())
	assert.Equal(t, "Current", state.Status())
}

func TestComputeBillingState_CorruptStoredDate_Unconfigured(t *testing.T) {
	// GIVEN: A stored document whose firstInstallmentDate cannot be parsed
	// WHEN: Decoding and computing
	// THEN: The client loads and is treated as unconfigured

	doc := []byte(`{"firstName":"Ana","invoiceTotal":"3000","firstInstallmentDate":"not a date","payments":[]}`)
	c, err := billing.DecodeClient(doc)
	require.NoError(t, err)

	state := billing.ComputeBillingState(c, day("2023-06-01"))

	assert.False(t, state.Configured)
	assert.True(t, state.AmountDue.IsZero())
	assert.Equal(t, "3000", state.RemainingBalance.String())
}

// =============================================================================
// SCHEDULE MATH
// =============================================================================

func TestComputeBillingState_StartDay_FirstMonthAlreadyDue(t *testing.T) {
	// GIVEN: Installments start 2023-01-15, no payments
	// WHEN: Computing as of the start day itself
	// THEN: The start month counts as month 1 and is missed

	c := billedClient(6000, "2023-01-15")

	state := billing.ComputeBillingState(c, day("2023-01-15"))

	assert.Equal(t, 1, state.MonthsSinceStart)
	assert.Equal(t, 1, state.MissedCount)
	assert.Equal(t, []string{"January 2023"}, state.MissedLabels())
	assert.Equal(t, "500", state.AmountDue.String())
	assert.Equal(t, "1 month past due", state.Status())
}

func TestComputeBillingState_TwoPaidTwoMissed(t *testing.T) {
	// GIVEN: Two $500 installments paid in January and February
	// WHEN: Computing as of April 1
	// THEN: March and April are missed

	c := billedClient(6000, "2023-01-01",
		pay(500, "2023-01-10"),
		pay(500, "2023-02-10"),
	)

	state := billing.ComputeBillingState(c, day("2023-04-01"))

	assert.True(t, state.Configured)
	assert.Equal(t, 2, state.InstallmentsPaid)
	assert.Equal(t, 4, state.MonthsSinceStart)
	assert.Equal(t, 2, state.MissedCount)
	assert.Equal(t, []string{"March 2023", "April 2023"}, state.MissedLabels())
	assert.Equal(t, "1000", state.AmountDue.String())
	assert.Equal(t, "5000", state.RemainingBalance.String())
	assert.Equal(t, "March 2023 – April 2023", state.MissedRange())
	assert.Equal(t, "2 months past due", state.Status())
	assert.Equal(t, "February 10, 2023 – $500", state.LastPaymentDisplay())
}

func TestComputeBillingState_Overpaid_NegativeRemaining(t *testing.T) {
	// GIVEN: A $1000 invoice paid $1200 after the start date
	// WHEN: Computing billing state
	// THEN: Remaining balance is -200 (not clamped) and nothing is left to pay

	c := billedClient(1000, "2023-01-01",
		pay(600, "2023-01-05"),
		pay(600, "2023-01-06"),
	)

	state := billing.ComputeBillingState(c, day("2023-01-20"))

	assert.Equal(t, "1200", state.ValidTotalPaid.String())
	assert.Equal(t, "-200", state.RemainingBalance.String())
	assert.Equal(t, 0, state.PaymentsLeft)
	assert.Empty(t, state.ExpectedMonths)
	assert.Equal(t, 0, state.MissedCount)
}

func TestComputeBillingState_ExpectedMonthsContinueAfterMissed(t *testing.T) {
	// GIVEN: One installment paid, two missed, $2500 outstanding
	// WHEN: Computing the forward schedule
	// THEN: Five expected months starting right after the missed ones

	c := billedClient(3000, "2023-01-01", pay(500, "2023-01-10"))

	state := billing.ComputeBillingState(c, day("2023-03-15"))

	assert.Equal(t, 1, state.InstallmentsPaid)
	assert.Equal(t, 2, state.MissedCount)
	assert.Equal(t, []string{"February 2023", "March 2023"}, state.MissedLabels())
	assert.Equal(t, 5, state.PaymentsLeft)
	assert.Equal(t,
		[]string{"April 2023", "May 2023", "June 2023", "July 2023", "August 2023"},
		state.ExpectedLabels())

	next, ok := state.NextDue()
	require.True(t, ok)
	assert.Equal(t, "2023-04-01", next.Date.String())
}

func TestComputeBillingState_DueDateLaterInMonth_NotListedYet(t *testing.T) {
	// GIVEN: Installments due on the 20th, nothing paid
	// WHEN: Computing on March 10
	// THEN: Three installments count as missed, but only the two past due dates are listed

	c := billedClient(6000, "2023-01-20")

	state := billing.ComputeBillingState(c, day("2023-03-10"))

	assert.Equal(t, 3, state.MissedCount)
	assert.Equal(t, []string{"January 2023", "February 2023"}, state.MissedLabels())
	assert.Equal(t, "1500", state.AmountDue.String())
}

func TestComputeBillingState_EndOfMonthStart_ClampsDay(t *testing.T) {
	// GIVEN: Installments start January 31
	// WHEN: Computing on March 31 with no payments
	// THEN: February's due date is clamped to the 28th and each month appears once

	c := billedClient(6000, "2023-01-31")

	state := billing.ComputeBillingState(c, day("2023-03-31"))

	require.Len(t, state.MissedMonths, 3)
	assert.Equal(t, "2023-02-28", state.MissedMonths[1].Date.String())
	assert.Equal(t, []string{"January 2023", "February 2023", "March 2023"}, state.MissedLabels())
}

func TestComputeBillingState_AsOfBeforeStart_NothingDue(t *testing.T) {
	c := billedClient(6000, "2023-05-01")

	state := billing.ComputeBillingState(c, day("2023-03-15"))

	assert.Equal(t, 0, state.MonthsSinceStart)
	assert.Equal(t, 0, state.MissedCount)
	assert.Equal(t, 12, state.PaymentsLeft)
	assert.Equal(t, "May 2023", state.ExpectedMonths[0].Label)
}

func TestComputeBillingState_NoInstallmentAmount_UsesDefault(t *testing.T) {
	c := billedClient(2000, "2023-01-01")
	c.InstallmentAmount = decimal.Zero

	state := billing.ComputeBillingState(c, day("2023-02-01"))

	assert.Equal(t, "500", state.InstallmentAmount.String())
	assert.Equal(t, "1000", state.AmountDue.String())
	assert.Equal(t, 4, state.PaymentsLeft)
}

func TestComputeBillingState_PartialPayment_RoundsScheduleUp(t *testing.T) {
	// GIVEN: $750 paid toward $500 installments
	// WHEN: Computing billing state
	// THEN: One installment is covered and the remaining $1250 needs 3 payments

	c := billedClient(2000, "2023-01-01", pay(750, "2023-01-02"))

	state := billing.ComputeBillingState(c, day("2023-01-31"))

	assert.Equal(t, 1, state.InstallmentsPaid)
	assert.Equal(t, 0, state.MissedCount)
	assert.Equal(t, 3, state.PaymentsLeft)
}

func TestComputeBillingState_ArrangementActiveInMonth(t *testing.T) {
	c := billedClient(6000, "2023-01-01")
	c.PaymentArrangement = &billing.Arrangement{
		ReducedAmount: usd(250),
		StartMonth:    billing.YearMonth{Year: 2023, Month: 3},
		EndMonth:      billing.YearMonth{Year: 2023, Month: 5},
	}

	assert.False(t, billing.ComputeBillingState(c, day("2023-02-28")).ArrangementActive)
	assert.True(t, billing.ComputeBillingState(c, day("2023-03-01")).ArrangementActive)
	assert.True(t, billing.ComputeBillingState(c, day("2023-05-31")).ArrangementActive)
	assert.False(t, billing.ComputeBillingState(c, day("2023-06-01")).ArrangementActive)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestComputeBillingState_PaymentBeforeStart_Ignored(t *testing.T) {
	// GIVEN: The same client with and without a retainer paid before installments start
	// WHEN: Computing billing state
	// THEN: Both results are identical

	without := billedClient(6000, "2023-01-01", pay(500, "2023-02-03"))
	with := without.Clone()
	with.Payments = append([]billing.Payment{pay(1500, "2022-12-20")}, with.Payments...)

	asOf := day("2023-05-01")
	assert.Equal(t, billing.ComputeBillingState(without, asOf), billing.ComputeBillingState(with, asOf))
}

func TestComputeBillingState_Idempotent(t *testing.T) {
	c := billedClient(6000, "2023-01-01", pay(500, "2023-01-10"), pay(200, "2023-03-01"))
	asOf := day("2023-07-04")

	assert.Equal(t, billing.ComputeBillingState(c, asOf), billing.ComputeBillingState(c, asOf))
}

func TestComputeBillingState_AddingPayment_NeverIncreasesMissed(t *testing.T) {
	// GIVEN: A client accumulating payments of varying sizes
	// WHEN: Recomputing after each added payment with a fixed asOf
	// THEN: The missed count never increases

	asOf := day("2023-12-15")
	c := billedClient(9000, "2023-01-01")
	prev := billing.ComputeBillingState(c, asOf).MissedCount

	for i, amount := range []int64{100, 500, 499, 1, 1200, 350, 2000} {
		c.Payments = append(c.Payments, pay(amount, fmt.Sprintf("2023-%02d-05", i+1)))
		missed := billing.ComputeBillingState(c, asOf).MissedCount
		assert.LessOrEqual(t, missed, prev, "payment %d", i)
		prev = missed
	}
}

func TestComputeBillingState_DoesNotMutateInput(t *testing.T) {
	c := billedClient(6000, "2023-01-01", pay(500, "2023-01-10"))
	before := c.Clone()

	_ = billing.ComputeBillingState(c, day("2023-05-01"))

	assert.Equal(t, before, c)
}

// =============================================================================
// DISPLAY TRANSFORMS
// =============================================================================

func TestBillingState_Status(t *testing.T) {
	tests := []struct {
		missed int
		want   string
	}{
		{0, "Current"},
		{1, "1 month past due"},
		{4, "4 months past due"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, billing.BillingState{MissedCount: tt.missed}.Status())
	}
}

func TestBillingState_MissedRange_SingleAndNone(t *testing.T) {
	assert.Equal(t, "None", billing.BillingState{}.MissedRange())

	state := billing.ComputeBillingState(billedClient(6000, "2023-01-15"), day("2023-01-20"))
	assert.Equal(t, "January 2023", state.MissedRange())
}

func TestMoneyFormatting(t *testing.T) {
	assert.Equal(t, "$500", billing.USD(usd(500)))
	assert.Equal(t, "$1,500", billing.USD(usd(1500)))
	assert.Equal(t, "$1,234,567.5", billing.USD(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "-$200", billing.USD(usd(-200)))
	assert.Equal(t, "$1,500.00", billing.USDCents(usd(1500)))
	assert.Equal(t, "$999.90", billing.USDCents(decimal.RequireFromString("999.9")))
}
