package reporting

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
)

// DefaultPerPage is the client list page size when none is requested.
const DefaultPerPage = 10

// Sort keys accepted by ClientQuery.
const (
	SortLastName    = "lastName"
	SortFirstName   = "firstName"
	SortCaseType    = "caseType"
	SortCaseStatus  = "caseStatus"
	SortAmountDue   = "amountDue"
	SortMissedCount = "missedCount"
	SortCreatedAt   = "createdAt"
)

// ClientQuery selects a page of the client list.
type ClientQuery struct {
	Search  string `json:"search"`
	SortKey string `json:"sortKey"`
	Desc    bool   `json:"desc"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// ClientRow is one line of the client list.
type ClientRow struct {
	ID               string             `json:"id"`
	FirstName        string             `json:"firstName"`
	LastName         string             `json:"lastName"`
	CaseType         billing.CaseType   `json:"caseType"`
	CaseStatus       billing.CaseStatus `json:"caseStatus"`
	MyCaseLink       string             `json:"myCaseLink,omitempty"`
	Configured       bool               `json:"configured"`
	AmountDue        decimal.Decimal    `json:"amountDue"`
	MissedCount      int                `json:"missedCount"`
	Status           string             `json:"status"`
	MissedRange      string             `json:"missedRange"`
	RemainingBalance decimal.Decimal    `json:"remainingBalance"`
	LastPayment      string             `json:"lastPayment"`

	createdAt int64
}

// ClientPage is the filtered, sorted and paginated client list.
type ClientPage struct {
	Rows            []ClientRow     `json:"rows"`
	Total           int             `json:"total"`
	Page            int             `json:"page"`
	PerPage         int             `json:"perPage"`
	TotalPages      int             `json:"totalPages"`
	TotalAmountOwed decimal.Decimal `json:"totalAmountOwed"`
}

// ClientRows builds the client list as of asOf. Search matches first or last
// name case-insensitively; the total owed covers every matching client, not
// just the page.
func ClientRows(clients []billing.Client, asOf billing.Date, q ClientQuery) ClientPage {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	rows := make([]ClientRow, 0, len(clients))
	owed := decimal.Zero

	for _, c := range clients {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.FirstName), search) &&
			!strings.Contains(strings.ToLower(c.LastName), search) {
			continue
		}
		state := billing.ComputeBillingState(c, asOf)
		owed = owed.Add(state.AmountDue)
		rows = append(rows, ClientRow{
			ID:               c.ID,
			FirstName:        c.FirstName,
			LastName:         c.LastName,
			CaseType:         c.CaseType,
			CaseStatus:       c.CaseStatus,
			MyCaseLink:       c.MyCaseLink,
			Configured:       state.Configured,
			AmountDue:        state.AmountDue,
			MissedCount:      state.MissedCount,
			Status:           state.Status(),
			MissedRange:      state.MissedRange(),
			RemainingBalance: state.RemainingBalance,
			LastPayment:      state.LastPaymentDisplay(),
			createdAt:        c.CreatedAt.UnixNano(),
		})
	}

	sortRows(rows, q.SortKey, q.Desc)

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	totalPages := (len(rows) + perPage - 1) / perPage
	page := q.Page
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	start := min((page-1)*perPage, len(rows))
	end := min(start+perPage, len(rows))

	return ClientPage{
		Rows:            rows[start:end],
		Total:           len(rows),
		Page:            page,
		PerPage:         perPage,
		TotalPages:      totalPages,
		TotalAmountOwed: owed,
	}
}

func sortRows(rows []ClientRow, key string, desc bool) {
	var compare func(a, b ClientRow) int
	switch key {
	case SortFirstName:
		compare = func(a, b ClientRow) int { return strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)) }
	case SortCaseType:
		compare = func(a, b ClientRow) int { return strings.Compare(string(a.CaseType), string(b.CaseType)) }
	case SortCaseStatus:
		compare = func(a, b ClientRow) int { return strings.Compare(string(a.CaseStatus), string(b.CaseStatus)) }
	case SortAmountDue:
		compare = func(a, b ClientRow) int { return a.AmountDue.Cmp(b.AmountDue) }
	case SortMissedCount:
		compare = func(a, b ClientRow) int { return a.MissedCount - b.MissedCount }
	case SortCreatedAt:
		compare = func(a, b ClientRow) int { return compareInt64(a.createdAt, b.createdAt) }
	default:
		compare = func(a, b ClientRow) int { return strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)) }
	}

	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i], rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
