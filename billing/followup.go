package billing

import "time"

// DefaultCutoffDay is the day of month after which a logged contact counts
// toward the current follow-up cycle.
const DefaultCutoffDay = 16

// IsFollowUpDue reports whether a past-due client needs outreach today.
//
// A client is due when past due and either:
//   - no next follow-up date is set and nothing was logged after the cutoff
//     date of today's month, or
//   - the next follow-up date is set and has arrived.
//
// A future next follow-up date suppresses the client until it arrives.
func IsFollowUpDue(c Client, today Date, cutoffDay int) bool {
	if cutoffDay <= 0 {
		cutoffDay = DefaultCutoffDay
	}
	if !ComputeBillingState(c, today).IsPastDue() {
		return false
	}
	if !c.NextFollowUpDate.IsZero() {
		return c.NextFollowUpDate.BeforeOrEqual(today)
	}
	cutoff := NewDate(today.Year(), today.Month(), cutoffDay).Time()
	return !contactedAfter(c.CommunicationLogs, cutoff)
}

// LastContact returns the most recent communication log timestamp.
func LastContact(c Client) (time.Time, bool) {
	var last time.Time
	for _, l := range c.CommunicationLogs {
		if l.Timestamp.After(last) {
			last = l.Timestamp
		}
	}
	return last, !last.IsZero()
}

func contactedAfter(logs []LogEntry, cutoff time.Time) bool {
	for _, l := range logs {
		if l.Timestamp.After(cutoff) {
			return true
		}
	}
	return false
}
