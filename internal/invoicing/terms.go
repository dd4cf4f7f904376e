package invoicing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TermsKind tags the recognized payment-terms pattern.
type TermsKind int

const (
	// TermsDefault is the fallthrough for unrecognized text: net 30.
	TermsDefault TermsKind = iota
	// TermsOnReceipt means payment is due on the issue date.
	TermsOnReceipt
	// TermsNetDays means payment is due a fixed number of days after issue.
	TermsNetDays
	// TermsEndOfMonth means payment is due on the last day of the issue month.
	TermsEndOfMonth
)

// Terms is the tagged result of parsing free-text payment terms.
type Terms struct {
	Kind TermsKind
	Days int
}

const defaultTermDays = 30

var netDaysRe = regexp.MustCompile(`(\d+)\s*days?`)

// ParseTerms applies the recognition rules in priority order: "on receipt",
// then a day count, then end-of-month, then the 30-day default. Ambiguous
// or unmatched text always falls through to the default; that fallthrough
// is deliberate.
func ParseTerms(text string) Terms {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "on receipt") {
		return Terms{Kind: TermsOnReceipt}
	}

	if m := netDaysRe.FindStringSubmatch(lower); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return Terms{Kind: TermsNetDays, Days: days}
		}
	}

	if strings.Contains(lower, "end of month") || strings.Contains(lower, "eom") {
		return Terms{Kind: TermsEndOfMonth}
	}

	return Terms{Kind: TermsDefault, Days: defaultTermDays}
}

// DueDate resolves the terms against an issue date.
func (t Terms) DueDate(issue time.Time) time.Time {
	switch t.Kind {
	case TermsOnReceipt:
		return issue
	case TermsNetDays:
		return issue.AddDate(0, 0, t.Days)
	case TermsEndOfMonth:
		firstOfNext := time.Date(issue.Year(), issue.Month(), 1, 0, 0, 0, 0, issue.Location()).AddDate(0, 1, 0)
		return firstOfNext.AddDate(0, 0, -1)
	default:
		return issue.AddDate(0, 0, defaultTermDays)
	}
}
