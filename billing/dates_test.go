package billing_test

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/collections-engine/billing"
)

func TestParseDate_AcceptedFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2023-01-15", "2023-01-15"},
		{"2023-01-15T00:00:00Z", "2023-01-15"},
		{"2023-01-15T18:45:10.123Z", "2023-01-15"},
		{"2023-01-15T08:00:00", "2023-01-15"},
		{"01/15/2023", "2023-01-15"},
		{" 2023-01-15 ", "2023-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := billing.ParseDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestParseDate_Rejects(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "2023-13-01", "15/01/2023"} {
		_, err := billing.ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestDate_AddMonths_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		start  string
		months int
		want   string
	}{
		{"2023-01-15", 1, "2023-02-15"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 2, "2023-03-31"},
		{"2023-11-30", 3, "2024-02-29"},
		{"2023-03-31", -1, "2023-02-28"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, day(tt.start).AddMonths(tt.months).String(), "%s + %d", tt.start, tt.months)
	}
}

func TestDate_Formats(t *testing.T) {
	d := day("2023-01-02")

	assert.Equal(t, "January 2, 2023", d.Long())
	assert.Equal(t, "Jan 2, 2023", d.Short())
	assert.Equal(t, "N/A", billing.Date{}.Long())
	assert.Equal(t, "", billing.Date{}.String())
}

func TestDate_JSON_LenientDecode(t *testing.T) {
	// GIVEN: Stored documents with valid, null, numeric and garbage dates
	// WHEN: Decoding
	// THEN: Only the valid one yields a date; nothing errors

	var v struct {
		A billing.Date `json:"a"`
		B billing.Date `json:"b"`
		C billing.Date `json:"c"`
		D billing.Date `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"2023-01-15T00:00:00.000Z","b":null,"c":12345,"d":"garbage"}`), &v)
	require.NoError(t, err)

	assert.Equal(t, "2023-01-15", v.A.String())
	assert.True(t, v.B.IsZero())
	assert.True(t, v.C.IsZero())
	assert.True(t, v.D.IsZero())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"2023-01-15","b":null,"c":null,"d":null}`, string(out))
}

func TestDateOf_TruncatesInOwnLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	late := time.Date(2023, 1, 31, 23, 30, 0, 0, ny)

	assert.Equal(t, "2023-01-31", billing.DateOf(late).String())
}

func TestParseYearMonth(t *testing.T) {
	for _, in := range []string{"2023-03", "March 2023", "Mar 2023", "2023-03-17"} {
		m, err := billing.ParseYearMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, billing.YearMonth{Year: 2023, Month: time.March}, m, in)
	}

	_, err := billing.ParseYearMonth("someday")
	assert.Error(t, err)
}

func TestYearMonth_JSON_AcceptsLegacyLabel(t *testing.T) {
	// GIVEN: An arrangement stored with "January 2023" labels
	// WHEN: Decoding and re-encoding
	// THEN: The range is structured and re-encoded as sortable keys

	var a billing.Arrangement
	err := json.Unmarshal([]byte(`{"reducedAmount":250,"startMonth":"January 2023","endMonth":"March 2023"}`), &a)
	require.NoError(t, err)

	assert.Equal(t, billing.YearMonth{Year: 2023, Month: time.January}, a.StartMonth)
	assert.Equal(t, "January 2023 – March 2023", a.Label())
	assert.True(t, a.ActiveIn(billing.YearMonth{Year: 2023, Month: time.February}))

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reducedAmount":"250","startMonth":"2023-01","endMonth":"2023-03"}`, string(out))
}

func TestYearMonth_JSON_UnparsableDecodesToZero(t *testing.T) {
	// GIVEN: A client stored with localized and garbage arrangement months
	doc := []byte(`{
		"id": "c1",
		"lastName": "Lopez",
		"invoiceTotal": 6000,
		"installmentAmount": 500,
		"firstInstallmentDate": "2023-01-01",
		"payments": [{"amount": 500, "date": "2023-01-10"}],
		"paymentArrangement": {"reducedAmount": 250, "startMonth": "enero de 2023", "endMonth": "Invalid Date"}
	}`)

	// WHEN: Decoding the document
	c, err := billing.DecodeClient(doc)

	// THEN: The client loads with an unknown, inactive arrangement
	require.NoError(t, err)
	require.NotNil(t, c.PaymentArrangement)
	assert.True(t, c.PaymentArrangement.StartMonth.IsZero())
	assert.True(t, c.PaymentArrangement.EndMonth.IsZero())
	assert.False(t, c.PaymentArrangement.ActiveIn(billing.YearMonth{Year: 2023, Month: time.January}))
	assert.Equal(t, "? – ?", c.PaymentArrangement.Label())

	// AND: The billing state is still computed
	state := billing.ComputeBillingState(c, billing.MustParseDate("2023-04-20"))
	assert.Equal(t, 3, state.MissedCount)
	assert.False(t, state.ArrangementActive)
}

func TestArrangement_ActiveIn_OpenRange(t *testing.T) {
	mar := billing.YearMonth{Year: 2023, Month: time.March}

	a := billing.Arrangement{StartMonth: billing.YearMonth{Year: 2023, Month: time.January}}
	assert.False(t, a.ActiveIn(mar), "missing end month")

	a = billing.Arrangement{EndMonth: billing.YearMonth{Year: 2023, Month: time.June}}
	assert.False(t, a.ActiveIn(mar), "missing start month")
}

func TestYearMonth_Ordering(t *testing.T) {
	dec := billing.YearMonth{Year: 2022, Month: time.December}
	jan := dec.AddMonths(1)

	assert.Equal(t, billing.YearMonth{Year: 2023, Month: time.January}, jan)
	assert.True(t, dec.Before(jan))
	assert.False(t, jan.Before(dec))
	assert.Equal(t, 1, jan.Index()-dec.Index())
}

func TestClock_FixedAndToday(t *testing.T) {
	clock := billing.FixedClock{At: time.Date(2023, 4, 20, 23, 59, 0, 0, time.UTC)}

	assert.Equal(t, "2023-04-20", billing.Today(clock).String())
	assert.False(t, billing.SystemClock{}.Now().IsZero())
}
