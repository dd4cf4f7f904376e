package invoicing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTerms(t *testing.T) {
	cases := []struct {
		text string
		want Terms
	}{
		{"Payment due on receipt", Terms{Kind: TermsOnReceipt}},
		{"Due On Receipt", Terms{Kind: TermsOnReceipt}},
		{"Payment due within 14 days", Terms{Kind: TermsNetDays, Days: 14}},
		{"Net 7 days", Terms{Kind: TermsNetDays, Days: 7}},
		{"1 day", Terms{Kind: TermsNetDays, Days: 1}},
		{"End of month", Terms{Kind: TermsEndOfMonth}},
		{"EOM", Terms{Kind: TermsEndOfMonth}},
		{"", Terms{Kind: TermsDefault, Days: 30}},
		{"whenever suits", Terms{Kind: TermsDefault, Days: 30}},
		// "on receipt" outranks a day count when both appear.
		{"30 days or on receipt", Terms{Kind: TermsOnReceipt}},
		// A day count outranks end-of-month.
		{"14 days, end of month at the latest", Terms{Kind: TermsNetDays, Days: 14}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseTerms(tc.text), "terms %q", tc.text)
	}
}

func TestTermsDueDate(t *testing.T) {
	issue := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	require.Equal(t, issue, Terms{Kind: TermsOnReceipt}.DueDate(issue))
	require.Equal(t, time.Date(2025, 1, 24, 0, 0, 0, 0, time.UTC),
		Terms{Kind: TermsNetDays, Days: 14}.DueDate(issue))
	require.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Terms{Kind: TermsEndOfMonth}.DueDate(issue))
	require.Equal(t, time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC),
		Terms{Kind: TermsDefault, Days: 30}.DueDate(issue))

	// February end of month, non-leap year.
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		Terms{Kind: TermsEndOfMonth}.DueDate(feb))
}

func TestParseTermsEndToEnd(t *testing.T) {
	issue := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 1, 24, 0, 0, 0, 0, time.UTC),
		ParseTerms("Payment due within 14 days").DueDate(issue))
	require.Equal(t, issue.AddDate(0, 0, 30),
		ParseTerms("see attached contract").DueDate(issue))
}
