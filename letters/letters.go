package letters

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/collections-engine/billing"
)

// Letter kinds and subtypes.
const (
	KindWarning     = "warning"
	KindTermination = "termination"

	WarningFiled  = "filed"
	WarningActive = "active"

	TerminationNoRefund   = "noRefund"
	TerminationWithRefund = "withRefund"

	RefundPartial = "partial"
	RefundFull    = "full"
)

// Letter is everything a template collaborator needs to produce one document.
type Letter struct {
	Kind     string            `json:"kind"`
	SubType  string            `json:"subType"`
	Template string            `json:"template"`
	Filename string            `json:"filename"`
	Values   map[string]string `json:"values"`
	PastDue  *PastDue          `json:"pastDue,omitempty"`
}

// Record returns the metadata event stored on the client once the letter
// has been generated.
func (l Letter) Record() billing.RecordLetter {
	return billing.RecordLetter{Type: recordType[l.Kind], SubType: l.recordSubType(), Filename: l.Filename}
}

var recordType = map[string]string{
	KindWarning:     "Warning Letter",
	KindTermination: "Termination Letter",
}

func (l Letter) recordSubType() string {
	switch l.SubType {
	case WarningFiled:
		return "Filed Client"
	case WarningActive:
		return "Active Client"
	case TerminationNoRefund:
		return "No Refund"
	}
	if refund := l.Values["refundLevel"]; refund != "" {
		return "Refund (" + refund + ")"
	}
	return l.SubType
}

// =============================================================================
// CONTACT FORM - Shared by every letter
// =============================================================================

type Contact struct {
	ClientAddress      string `json:"clientAddress" validate:"required"`
	ClientCityStateZip string `json:"clientCityStateZip" validate:"required"`
	ClientPhone        string `json:"clientPhone" validate:"required"`
	ClientEmail        string `json:"clientEmail" validate:"required,email"`
	RetainerDate       string `json:"retainerDate" validate:"required"`
}

func (f Contact) values(c billing.Client, today time.Time) map[string]string {
	caseType := string(c.CaseType)
	if caseType == "" {
		caseType = "[Case Type]"
	}
	return map[string]string{
		"clientName":         c.FullName(),
		"caseType":           caseType,
		"clientAddress":      strings.TrimSpace(f.ClientAddress),
		"clientCityStateZip": strings.TrimSpace(f.ClientCityStateZip),
		"clientPhone":        strings.TrimSpace(f.ClientPhone),
		"clientEmail":        strings.TrimSpace(f.ClientEmail),
		"retainerDate":       strings.TrimSpace(f.RetainerDate),
		"today":              today.Format("January 2, 2006"),
	}
}

// =============================================================================
// WARNING LETTER
// =============================================================================

type WarningForm struct {
	Contact
	SubType string `json:"subType" validate:"required,oneof=filed active"`
}

var warningTemplates = map[string]string{
	WarningFiled:  "WarningLetter_FiledClient.docx",
	WarningActive: "WarningLetter_ActiveClient.docx",
}

// WarningLetter builds the past-due warning letter as of today.
func WarningLetter(c billing.Client, form WarningForm, today time.Time) (Letter, error) {
	if err := billing.Validate(form); err != nil {
		return Letter{}, err
	}
	summary := PastDueSummary(c, billing.DateOf(today))

	values := form.Contact.values(c, today)
	values["PastDueAmount"] = RenderTable(summary)
	values["TotalPastDueAmount"] = summary.TotalLabel()

	return Letter{
		Kind:     KindWarning,
		SubType:  form.SubType,
		Template: warningTemplates[form.SubType],
		Filename: fmt.Sprintf("%s_WarningLetter_%s.docx", filenamePart(c.LastName), form.SubType),
		Values:   values,
		PastDue:  &summary,
	}, nil
}

// =============================================================================
// TERMINATION LETTER
// =============================================================================

// TerminationForm carries the termination letter inputs. Money fields are
// plain numbers as typed ("1500", "1500.50"). MissedDates and AmountOwed
// default to the engine's missed installments and amount due when blank.
type TerminationForm struct {
	Contact
	SubType     string `json:"subType" validate:"required,oneof=noRefund withRefund"`
	RefundLevel string `json:"refundLevel" validate:"required_if=SubType withRefund,omitempty,oneof=partial full"`

	MissedDates  string `json:"missedDates" validate:"required_if=SubType noRefund"`
	WarningDate  string `json:"warningDate" validate:"required_if=SubType noRefund"`
	AmountOwed   string `json:"amountOwed" validate:"required_if=SubType noRefund,omitempty,numeric"`
	AmountPaid   string `json:"amountPaid" validate:"required,numeric"`
	HoursWorked  string `json:"hoursWorked" validate:"required,numeric"`
	ValueOfWork  string `json:"valueOfWork" validate:"required,numeric"`
	Expenses     string `json:"expenses" validate:"required,numeric"`
	RefundAmount string `json:"refundAmount" validate:"required,numeric"`
}

var terminationTemplates = map[string]string{
	"noRefund":           "TerminationLetterTemplate.docx",
	"withRefund/partial": "TerminationLetter_PartialRefund.docx",
	"withRefund/full":    "TerminationLetter_FullRefund.docx",
}

// TerminationLetter builds the termination-of-representation letter.
func TerminationLetter(c billing.Client, form TerminationForm, today time.Time) (Letter, error) {
	summary := PastDueSummary(c, billing.DateOf(today))
	if form.SubType == TerminationNoRefund {
		if strings.TrimSpace(form.MissedDates) == "" && !summary.IsEmpty() {
			form.MissedDates = joinLabels(summary.Rows)
		}
		if strings.TrimSpace(form.AmountOwed) == "" && summary.Total.IsPositive() {
			form.AmountOwed = summary.Total.String()
		}
	}
	if form.SubType != TerminationWithRefund {
		form.RefundLevel = ""
	}
	if err := billing.Validate(form); err != nil {
		return Letter{}, err
	}

	values := form.Contact.values(c, today)
	values["missedDates"] = form.MissedDates
	values["warningDate"] = form.WarningDate
	values["hoursWorked"] = form.HoursWorked
	values["amountPaid"] = money(form.AmountPaid)
	values["valueOfWork"] = money(form.ValueOfWork)
	values["expenses"] = money(form.Expenses)
	values["refundAmount"] = money(form.RefundAmount)
	values["amountOwed"] = money(form.AmountOwed)
	values["refundLevel"] = form.RefundLevel

	key := form.SubType
	if form.SubType == TerminationWithRefund {
		key += "/" + form.RefundLevel
	}
	refund := form.RefundLevel
	if refund == "" {
		refund = "none"
	}

	return Letter{
		Kind:     KindTermination,
		SubType:  form.SubType,
		Template: terminationTemplates[key],
		Filename: fmt.Sprintf("%s_termination_Letter_%s_%s.docx", filenamePart(c.LastName), form.SubType, refund),
		Values:   values,
		PastDue:  &summary,
	}, nil
}

// money renders a typed amount as "$1,500"; blank or malformed input is $0.
func money(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		d = decimal.Zero
	}
	return billing.USD(d)
}

func joinLabels(rows []Row) string {
	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
	}
	return strings.Join(labels, ", ")
}

// filenamePart keeps a last name safe for use in a filename.
func filenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Client"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
