package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/collections-engine/billing"
)

// pastDueClient started installments in January 2023 and never paid.
func pastDueClient() billing.Client {
	return billedClient(6000, "2023-01-01")
}

func logAt(ts time.Time) billing.LogEntry {
	return billing.LogEntry{Message: "Called client", Timestamp: ts, User: "Admin"}
}

func TestIsFollowUpDue_PastDueNeverContacted_Due(t *testing.T) {
	assert.True(t, billing.IsFollowUpDue(pastDueClient(), day("2023-04-20"), billing.DefaultCutoffDay))
}

func TestIsFollowUpDue_Current_NotDue(t *testing.T) {
	// GIVEN: A client who paid every installment through April
	// WHEN: Checking on April 20
	// THEN: No follow-up is needed

	c := billedClient(6000, "2023-01-01", pay(2000, "2023-01-05"))

	assert.False(t, billing.IsFollowUpDue(c, day("2023-04-20"), billing.DefaultCutoffDay))
}

func TestIsFollowUpDue_ContactedAfterCutoff_Suppressed(t *testing.T) {
	// GIVEN: A past-due client contacted on April 17
	// WHEN: Checking on April 20
	// THEN: The contact covers this cycle

	c := pastDueClient()
	c.CommunicationLogs = []billing.LogEntry{logAt(time.Date(2023, 4, 17, 10, 0, 0, 0, time.UTC))}

	assert.False(t, billing.IsFollowUpDue(c, day("2023-04-20"), billing.DefaultCutoffDay))
}

func TestIsFollowUpDue_ContactedBeforeCutoff_StillDue(t *testing.T) {
	c := pastDueClient()
	c.CommunicationLogs = []billing.LogEntry{logAt(time.Date(2023, 4, 10, 10, 0, 0, 0, time.UTC))}

	assert.True(t, billing.IsFollowUpDue(c, day("2023-04-20"), billing.DefaultCutoffDay))
}

func TestIsFollowUpDue_LastMonthsContact_DoesNotCarryOver(t *testing.T) {
	// GIVEN: A past-due client contacted after the cutoff in March
	// WHEN: Checking in early April
	// THEN: March's contact is before April's cutoff, so the client is due

	c := pastDueClient()
	c.CommunicationLogs = []billing.LogEntry{logAt(time.Date(2023, 3, 20, 10, 0, 0, 0, time.UTC))}

	assert.True(t, billing.IsFollowUpDue(c, day("2023-04-02"), billing.DefaultCutoffDay))
}

func TestIsFollowUpDue_FutureFollowUpDate_SuppressedUntilItArrives(t *testing.T) {
	// GIVEN: A past-due client with a follow-up scheduled for May 5
	// WHEN: Checking before, on and after May 5
	// THEN: Due only from May 5 on

	c := pastDueClient()
	c.NextFollowUpDate = day("2023-05-05")

	assert.False(t, billing.IsFollowUpDue(c, day("2023-04-20"), billing.DefaultCutoffDay))
	assert.False(t, billing.IsFollowUpDue(c, day("2023-05-04"), billing.DefaultCutoffDay))
	assert.True(t, billing.IsFollowUpDue(c, day("2023-05-05"), billing.DefaultCutoffDay))
	assert.True(t, billing.IsFollowUpDue(c, day("2023-05-20"), billing.DefaultCutoffDay))
}

func TestIsFollowUpDue_ArrivedFollowUpDate_IgnoresRecentContact(t *testing.T) {
	c := pastDueClient()
	c.NextFollowUpDate = day("2023-04-18")
	c.CommunicationLogs = []billing.LogEntry{logAt(time.Date(2023, 4, 17, 10, 0, 0, 0, time.UTC))}

	assert.True(t, billing.IsFollowUpDue(c, day("2023-04-20"), billing.DefaultCutoffDay))
}

func TestIsFollowUpDue_Unconfigured_NeverDue(t *testing.T) {
	c := billing.Client{InvoiceTotal: usd(5000)}

	assert.False(t, billing.IsFollowUpDue(c, day("2023-04-20"), billing.DefaultCutoffDay))
}

func TestIsFollowUpDue_ZeroCutoff_UsesDefault(t *testing.T) {
	c := pastDueClient()
	c.CommunicationLogs = []billing.LogEntry{logAt(time.Date(2023, 4, 15, 10, 0, 0, 0, time.UTC))}

	assert.True(t, billing.IsFollowUpDue(c, day("2023-04-20"), 0))
}

func TestLastContact(t *testing.T) {
	c := pastDueClient()
	_, ok := billing.LastContact(c)
	assert.False(t, ok)

	latest := time.Date(2023, 4, 17, 10, 0, 0, 0, time.UTC)
	c.CommunicationLogs = []billing.LogEntry{logAt(latest), logAt(latest.AddDate(0, 0, -5))}

	got, ok := billing.LastContact(c)
	assert.True(t, ok)
	assert.Equal(t, latest, got)
}
