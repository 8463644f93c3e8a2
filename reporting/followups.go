package reporting

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
)

// FollowUpRow is one client on the outstanding follow-up list.
type FollowUpRow struct {
	ClientID            string          `json:"clientId"`
	Name                string          `json:"name"`
	MyCaseLink          string          `json:"myCaseLink,omitempty"`
	Installment         decimal.Decimal `json:"installment"`
	AmountDue           decimal.Decimal `json:"amountDue"`
	MissedCount         int             `json:"missedCount"`
	MissedRange         string          `json:"missedRange"`
	NextFollowUpDate    billing.Date    `json:"nextFollowUpDate"`
	LastContact         *time.Time      `json:"lastContact"`
	LastFollowUpContact *time.Time      `json:"lastFollowUpContact"`
}

// LastContactLabel renders "April 17, 2023" or "No contact yet".
func (r FollowUpRow) LastContactLabel() string {
	if r.LastContact == nil {
		return "No contact yet"
	}
	return r.LastContact.Format("January 2, 2006")
}

// FollowUpList returns the clients due for follow-up today, largest amount
// due first.
func FollowUpList(clients []billing.Client, today billing.Date, cutoffDay int) []FollowUpRow {
	rows := make([]FollowUpRow, 0)
	for _, c := range clients {
		if !billing.IsFollowUpDue(c, today, cutoffDay) {
			continue
		}
		state := billing.ComputeBillingState(c, today)
		row := FollowUpRow{
			ClientID:         c.ID,
			Name:             c.FullName(),
			MyCaseLink:       c.MyCaseLink,
			Installment:      state.InstallmentAmount,
			AmountDue:        state.AmountDue,
			MissedCount:      state.MissedCount,
			MissedRange:      state.MissedRange(),
			NextFollowUpDate: c.NextFollowUpDate,
		}
		if last, ok := billing.LastContact(c); ok {
			row.LastContact = &last
		}
		if !c.LastFollowUpContactDate.IsZero() {
			t := c.LastFollowUpContactDate
			row.LastFollowUpContact = &t
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].AmountDue.Equal(rows[j].AmountDue) {
			return rows[i].AmountDue.GreaterThan(rows[j].AmountDue)
		}
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
	return rows
}

// TotalDue sums the amount due across rows.
func TotalDue(rows []FollowUpRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.AmountDue)
	}
	return total
}
