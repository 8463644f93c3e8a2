package billing

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar date (no time of day)
// =============================================================================

// Date is a calendar date normalized to midnight UTC. The zero Date means
// "absent"; a stored value that cannot be parsed also decodes to the zero Date
// so corrupt or legacy documents still load.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// acceptedLayouts are tried in order when parsing stored or submitted dates.
var acceptedLayouts = []string{
	dateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// NewDate builds a date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in the timestamp's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts ISO dates ("2023-01-15") and ISO timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("parse date: empty value")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("parse date %q: unrecognized format", s)
}

// MustParseDate panics on malformed input. Intended for tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) IsZero() bool              { return d.t.IsZero() }
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.t.Before(o.t) }

// Properties
func (d Date) Year() int            { return d.t.Year() }
func (d Date) Month() time.Month    { return d.t.Month() }
func (d Date) Day() int             { return d.t.Day() }
func (d Date) Time() time.Time      { return d.t }
func (d Date) YearMonth() YearMonth { return YearMonth{Year: d.t.Year(), Month: d.t.Month()} }

// AddDays shifts by whole days.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// AddMonths shifts by whole months, clamping the day to the end of the target
// month (Jan 31 + 1 month = Feb 28), so every installment lands in its own month.
func (d Date) AddMonths(n int) Date {
	if d.IsZero() {
		return d
	}
	first := time.Date(d.t.Year(), d.t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.t.Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// String renders the ISO form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// Long renders "January 2, 2023".
func (d Date) Long() string {
	if d.IsZero() {
		return "N/A"
	}
	return d.t.Format("January 2, 2006")
}

// Short renders "Jan 2, 2023".
func (d Date) Short() string {
	if d.IsZero() {
		return "N/A"
	}
	return d.t.Format("Jan 2, 2006")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || len(b) < 2 || b[0] != '"' {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// =============================================================================
// YEAR MONTH - Sortable month key
// =============================================================================

// YearMonth is a structured month. It replaces the "January 2023" strings the
// arrangement range used to be stored as; Label renders that form on demand.
// Like Date, a stored value that cannot be parsed ("enero de 2023",
// "Invalid Date") decodes to the zero YearMonth instead of failing the document.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth accepts "2023-01" (form input) and "January 2023" (legacy documents).
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01", "January 2006", "Jan 2006", dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return YearMonth{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return YearMonth{}, fmt.Errorf("parse month %q: unrecognized format", s)
}

func (m YearMonth) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m YearMonth) Before(o YearMonth) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Index is a monotonically increasing month number, handy for differences.
func (m YearMonth) Index() int { return m.Year*12 + int(m.Month) - 1 }

func (m YearMonth) AddMonths(n int) YearMonth {
	t := time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Label renders "January 2023".
func (m YearMonth) Label() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// String renders the sortable "2023-01" key.
func (m YearMonth) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m YearMonth) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + m.String() + `"`), nil
}

func (m *YearMonth) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || len(b) < 2 || b[0] != '"' {
		*m = YearMonth{}
		return nil
	}
	parsed, err := ParseYearMonth(string(b[1 : len(b)-1]))
	if err != nil {
		*m = YearMonth{}
		return nil
	}
	*m = parsed
	return nil
}

// =============================================================================
// CLOCK - Injectable "today"
// =============================================================================

// Clock supplies the current time. Handlers and jobs read it instead of
// calling time.Now so month-boundary behavior can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the given location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Today returns the clock's current calendar date.
func Today(c Clock) Date {
	return DateOf(c.Now())
}
