package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatINR renders an amount in rupees without decimals using Indian digit
// grouping: 1234567 becomes "₹12,34,567".
func FormatINR(amount decimal.Decimal) string {
	n := amount.Round(0)
	digits := n.Abs().String()

	var groups []string
	if len(digits) > 3 {
		head := digits[:len(digits)-3]
		if lead := len(head) % 2; lead > 0 {
			groups = append(groups, head[:lead])
			head = head[lead:]
		}
		for len(head) > 0 {
			groups = append(groups, head[:2])
			head = head[2:]
		}
		digits = digits[len(digits)-3:]
	}
	groups = append(groups, digits)

	out := "₹" + strings.Join(groups, ",")
	if n.IsNegative() {
		out = "-" + out
	}
	return out
}

// FormatTimestamp is the transaction listing's date, e.g. "15 Mar 2026, 09:30".
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2 Jan 2006, 15:04")
}
