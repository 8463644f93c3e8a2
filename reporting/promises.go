package reporting

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
)

// PromiseRow is one active payment promise.
type PromiseRow struct {
	ClientID string          `json:"clientId"`
	Name     string          `json:"name"`
	Date     billing.Date    `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Notes    string          `json:"notes,omitempty"`
	Missed   bool            `json:"missed"`
}

// PromiseDay groups the promises falling due on one date.
type PromiseDay struct {
	Date     billing.Date    `json:"date"`
	Total    decimal.Decimal `json:"total"`
	Promises []PromiseRow    `json:"promises"`
}

// PromisesOn lists the active promises due on date, by client name.
func PromisesOn(clients []billing.Client, date, today billing.Date) []PromiseRow {
	rows := make([]PromiseRow, 0)
	for _, c := range clients {
		p := c.PaymentPromise
		if p == nil || !p.Date.Equal(date) {
			continue
		}
		rows = append(rows, promiseRow(c, today))
	}
	sortPromiseRows(rows)
	return rows
}

// PromiseCalendar groups the active promises due in month by day, earliest first.
func PromiseCalendar(clients []billing.Client, month billing.YearMonth, today billing.Date) []PromiseDay {
	byDay := map[billing.Date][]PromiseRow{}
	for _, c := range clients {
		p := c.PaymentPromise
		if p == nil || p.Date.IsZero() || p.Date.YearMonth() != month {
			continue
		}
		byDay[p.Date] = append(byDay[p.Date], promiseRow(c, today))
	}

	days := make([]PromiseDay, 0, len(byDay))
	for d, rows := range byDay {
		sortPromiseRows(rows)
		total := decimal.Zero
		for _, r := range rows {
			total = total.Add(r.Amount)
		}
		days = append(days, PromiseDay{Date: d, Total: total, Promises: rows})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days
}

func promiseRow(c billing.Client, today billing.Date) PromiseRow {
	p := c.PaymentPromise
	return PromiseRow{
		ClientID: c.ID,
		Name:     c.FullName(),
		Date:     p.Date,
		Amount:   p.Amount,
		Notes:    p.Notes,
		Missed:   billing.IsPromiseMissed(c, today),
	}
}

func sortPromiseRows(rows []PromiseRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
}
