package reporting_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/collections-engine/billing"
	"github.com/warp/collections-engine/reporting"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func day(s string) billing.Date { return billing.MustParseDate(s) }

func usd(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func pay(amount int64, date string) billing.Payment {
	return billing.Payment{Amount: usd(amount), Date: day(date)}
}

// fixture returns four clients as of 2023-04-20:
//   - lopez: 1 of 4 installments paid, $1500 due
//   - diaz:  paid ahead, promise of $300 on Apr 25
//   - young: never paid since Oct 2022, $3500 due, arrangement, promise May 10
//   - lee:   billing not configured
func fixture() (lopez, diaz, young, lee billing.Client) {
	lopez = billing.Client{
		ID: "lopez", FirstName: "Maria", LastName: "Lopez",
		CaseType: billing.CaseUVisa, CaseStatus: billing.StatusActive,
		InvoiceTotal: usd(6000), InstallmentAmount: usd(500),
		FirstInstallmentDate: day("2023-01-01"),
		Payments:             []billing.Payment{pay(500, "2023-01-10")},
	}
	diaz = billing.Client{
		ID: "diaz", FirstName: "Ana", LastName: "Diaz",
		CaseType: billing.CaseAsylum, CaseStatus: billing.StatusFiled,
		InvoiceTotal: usd(6000), InstallmentAmount: usd(500),
		FirstInstallmentDate: day("2023-01-01"),
		Payments:             []billing.Payment{pay(2000, "2023-01-05")},
		PaymentPromise:       &billing.Promise{Date: day("2023-04-25"), Amount: usd(300)},
	}
	young = billing.Client{
		ID: "young", FirstName: "Zed", LastName: "Young",
		CaseType: billing.CaseTVisa, CaseStatus: billing.StatusActive,
		InvoiceTotal: usd(6000), InstallmentAmount: usd(500),
		FirstInstallmentDate: day("2022-10-01"),
		PaymentArrangement: &billing.Arrangement{
			ReducedAmount: usd(250),
			StartMonth:    billing.YearMonth{Year: 2023, Month: time.April},
			EndMonth:      billing.YearMonth{Year: 2023, Month: time.June},
		},
		PaymentPromise: &billing.Promise{Date: day("2023-05-10"), Amount: usd(500), Notes: "tax refund"},
	}
	lee = billing.Client{
		ID: "lee", FirstName: "Kim", LastName: "Lee",
		CaseType: billing.CaseN400, CaseStatus: billing.StatusActive,
	}
	return
}

func allClients() []billing.Client {
	a, b, c, d := fixture()
	return []billing.Client{a, b, c, d}
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize_CollectionsTotals(t *testing.T) {
	// GIVEN: Two past-due clients, one current client, one unconfigured
	// WHEN: Summarizing as of April 20
	// THEN: Totals match the per-client engine results

	s := reporting.Summarize(allClients(), day("2023-04-20"), 4)

	assert.Equal(t, 4, s.TotalClients)
	assert.Equal(t, 2, s.PastDueCount)
	assert.Equal(t, 50, s.PastDuePercent)
	assert.Equal(t, "5000", s.TotalAmountOwed.String())
	assert.Equal(t, 1, s.HighBalanceCount)
	assert.Equal(t, 1, s.ArrangementCount)

	assert.Equal(t, "300", s.TotalPromisedThisMonth.String())
	assert.Equal(t, 2, s.ClientsWithPromise)
	assert.Equal(t, 2, s.PromisesMade)
	assert.Equal(t, 1, s.PromisesFulfilled)

	assert.Equal(t, "2500", s.Collected.String())
	assert.Equal(t, "15500", s.Outstanding.String())
	assert.Equal(t, "1500", s.ExpectedThisMonth.String())
}

func TestSummarize_Breakdowns(t *testing.T) {
	s := reporting.Summarize(allClients(), day("2023-04-20"), 4)

	require.Len(t, s.OwedByCaseType, 2)
	assert.Equal(t, billing.CaseTVisa, s.OwedByCaseType[0].CaseType)
	assert.Equal(t, "3500", s.OwedByCaseType[0].Amount.String())
	assert.Equal(t, billing.CaseUVisa, s.OwedByCaseType[1].CaseType)

	assert.Equal(t, []reporting.StatusCount{
		{Status: billing.StatusActive, Count: 3},
		{Status: billing.StatusFiled, Count: 1},
		{Status: billing.StatusApproved, Count: 0},
	}, s.CasesByStatus)

	require.Len(t, s.PaymentsByMonth, 4)
	assert.Equal(t, "January 2023", s.PaymentsByMonth[0].Label)
	assert.Equal(t, "2500", s.PaymentsByMonth[0].Amount.String())
	assert.True(t, s.PaymentsByMonth[3].Amount.IsZero())
	assert.Equal(t, "April 2023", s.PaymentsByMonth[3].Label)
}

func TestSummarize_AgreesWithEngine(t *testing.T) {
	clients := allClients()
	asOf := day("2023-04-20")

	total := decimal.Zero
	for _, c := range clients {
		total = total.Add(billing.ComputeBillingState(c, asOf).AmountDue)
	}

	assert.True(t, total.Equal(reporting.Summarize(clients, asOf, 0).TotalAmountOwed))
}

func TestSummarize_NoClients(t *testing.T) {
	s := reporting.Summarize(nil, day("2023-04-20"), 0)

	assert.Equal(t, 0, s.TotalClients)
	assert.Equal(t, 0, s.PastDuePercent)
	assert.Len(t, s.PaymentsByMonth, reporting.DefaultHistoryMonths)
}

func TestPastDueByMonth_MeasuresEachMonthEnd(t *testing.T) {
	// GIVEN: The fixture clients
	// WHEN: Asking for March and April past-due totals on April 20
	// THEN: March is measured on March 31, April on April 20

	series := reporting.PastDueByMonth(allClients(), day("2023-04-20"), 2)

	require.Len(t, series, 2)
	assert.Equal(t, "March 2023", series[0].Label)
	assert.Equal(t, "4000", series[0].Amount.String())
	assert.Equal(t, "5000", series[1].Amount.String())
}

func TestPastDueByMonth_IgnoresLaterPayments(t *testing.T) {
	// GIVEN: A client who paid nothing until catching up with $2000 on April 1
	ortiz := billing.Client{
		ID: "ortiz", FirstName: "Luis", LastName: "Ortiz",
		InvoiceTotal: usd(6000), InstallmentAmount: usd(500),
		FirstInstallmentDate: day("2023-01-01"),
		Payments:             []billing.Payment{pay(2000, "2023-04-01")},
	}

	// WHEN: Building the series on April 15
	series := reporting.PastDueByMonth([]billing.Client{ortiz}, day("2023-04-15"), 4)

	// THEN: January to March show the arrears as they stood, April is caught up
	require.Len(t, series, 4)
	assert.Equal(t, "500", series[0].Amount.String())
	assert.Equal(t, "February 2023", series[1].Label)
	assert.Equal(t, "1000", series[1].Amount.String())
	assert.Equal(t, "1500", series[2].Amount.String())
	assert.Equal(t, "0", series[3].Amount.String())
}

// =============================================================================
// FOLLOW-UPS
// =============================================================================

func TestFollowUpList_DueClientsLargestFirst(t *testing.T) {
	// GIVEN: Lopez contacted before the cutoff, Young with a follow-up date that
	//        has arrived, Diaz current, Lee unconfigured
	// WHEN: Building the follow-up list on April 20
	// THEN: Young then Lopez

	lopez, diaz, young, lee := fixture()
	contacted := time.Date(2023, 4, 10, 14, 0, 0, 0, time.UTC)
	lopez.CommunicationLogs = []billing.LogEntry{{Message: "Voicemail", Timestamp: contacted}}
	young.NextFollowUpDate = day("2023-04-19")

	rows := reporting.FollowUpList([]billing.Client{lopez, diaz, young, lee}, day("2023-04-20"), billing.DefaultCutoffDay)

	require.Len(t, rows, 2)
	assert.Equal(t, "young", rows[0].ClientID)
	assert.Equal(t, "3500", rows[0].AmountDue.String())
	assert.Equal(t, "No contact yet", rows[0].LastContactLabel())
	assert.Equal(t, "lopez", rows[1].ClientID)
	assert.Equal(t, "Maria Lopez", rows[1].Name)
	assert.Equal(t, "February 2023 – April 2023", rows[1].MissedRange)
	assert.Equal(t, "April 10, 2023", rows[1].LastContactLabel())
	assert.Equal(t, "5000", reporting.TotalDue(rows).String())
}

func TestFollowUpList_ScheduledInFuture_Excluded(t *testing.T) {
	lopez, _, _, _ := fixture()
	lopez.NextFollowUpDate = day("2023-05-01")

	rows := reporting.FollowUpList([]billing.Client{lopez}, day("2023-04-20"), billing.DefaultCutoffDay)

	assert.Empty(t, rows)
}

// =============================================================================
// PROMISES
// =============================================================================

func TestPromisesOn_MatchesDate(t *testing.T) {
	rows := reporting.PromisesOn(allClients(), day("2023-04-25"), day("2023-04-20"))

	require.Len(t, rows, 1)
	assert.Equal(t, "Ana Diaz", rows[0].Name)
	assert.Equal(t, "300", rows[0].Amount.String())
	assert.False(t, rows[0].Missed)

	assert.Empty(t, reporting.PromisesOn(allClients(), day("2023-04-26"), day("2023-04-20")))
}

func TestPromiseCalendar_GroupsByDay(t *testing.T) {
	days := reporting.PromiseCalendar(allClients(), billing.YearMonth{Year: 2023, Month: time.May}, day("2023-05-12"))

	require.Len(t, days, 1)
	assert.Equal(t, "2023-05-10", days[0].Date.String())
	assert.Equal(t, "500", days[0].Total.String())
	require.Len(t, days[0].Promises, 1)
	assert.Equal(t, "tax refund", days[0].Promises[0].Notes)
	assert.True(t, days[0].Promises[0].Missed)
}

// =============================================================================
// CLIENT LIST
// =============================================================================

func TestClientRows_DefaultSortByLastName(t *testing.T) {
	page := reporting.ClientRows(allClients(), day("2023-04-20"), reporting.ClientQuery{})

	require.Len(t, page.Rows, 4)
	assert.Equal(t, []string{"Diaz", "Lee", "Lopez", "Young"}, lastNames(page.Rows))
	assert.Equal(t, "Current", page.Rows[0].Status)
	assert.False(t, page.Rows[1].Configured)
	assert.Equal(t, "3 months past due", page.Rows[2].Status)
	assert.Equal(t, 1, page.TotalPages)
}

func TestClientRows_SearchSortPaginate(t *testing.T) {
	// GIVEN: Four clients
	// WHEN: Searching "o", sorting by amount due descending, one per page
	// THEN: Young and Lopez match; page 2 holds Lopez

	q := reporting.ClientQuery{Search: "O", SortKey: reporting.SortAmountDue, Desc: true, Page: 2, PerPage: 1}

	page := reporting.ClientRows(allClients(), day("2023-04-20"), q)

	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Lopez", page.Rows[0].LastName)
	assert.Equal(t, "5000", page.TotalAmountOwed.String())
}

func TestClientRows_PageBeyondEnd_Clamped(t *testing.T) {
	page := reporting.ClientRows(allClients(), day("2023-04-20"), reporting.ClientQuery{Page: 9, PerPage: 3})

	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Rows, 1)
}

func TestClientRows_NoMatches(t *testing.T) {
	page := reporting.ClientRows(allClients(), day("2023-04-20"), reporting.ClientQuery{Search: "zzz"})

	assert.Empty(t, page.Rows)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 1, page.Page)
}

func lastNames(rows []reporting.ClientRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.LastName
	}
	return out
}
