package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// USD renders an amount with thousands separators and no trailing zero cents:
// 1500 -> "$1,500", 1500.5 -> "$1,500.5".
func USD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + USD(d.Neg())
	}
	s := d.Round(2).String()
	return "$" + groupThousands(s)
}

// USDCents always renders two decimals: 1500 -> "$1,500.00".
func USDCents(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + USDCents(d.Neg())
	}
	return "$" + groupThousands(d.StringFixed(2))
}

func groupThousands(s string) string {
	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
