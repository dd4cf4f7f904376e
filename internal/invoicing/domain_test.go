package invoicing

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testInvoice() *Invoice {
	return &Invoice{
		Reference:  "INV0001/25",
		IssueDate:  time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		ClientType: ClientIndividual,
		ClientName: "Smith Family",
		Status:     StatusSent,
		Items: []InvoiceItem{
			{Description: "Local move", Quantity: 2, UnitPrice: dec("100.00"), GSTTreatment: TreatmentTaxable},
			{Description: "Storage", Quantity: 1, UnitPrice: dec("50.00"), GSTTreatment: TreatmentGSTFree},
		},
	}
}

func TestInvoiceTotals(t *testing.T) {
	inv := testInvoice()

	require.True(t, inv.Subtotal().Equal(dec("250.00")), "subtotal %s", inv.Subtotal())
	require.True(t, inv.GSTAmount().Equal(dec("20.00")), "gst %s", inv.GSTAmount())
	require.True(t, inv.TotalAmount().Equal(dec("270.00")), "total %s", inv.TotalAmount())
}

func TestItemGSTByTreatment(t *testing.T) {
	cases := []struct {
		treatment GSTTreatment
		gst       string
	}{
		{TreatmentTaxable, "10.00"},
		{TreatmentGSTFree, "0"},
		{TreatmentInputTaxed, "0"},
	}
	for _, tc := range cases {
		item := InvoiceItem{Quantity: 1, UnitPrice: dec("100.00"), GSTTreatment: tc.treatment}
		require.True(t, item.GSTAmount().Equal(dec(tc.gst)),
			"%s: gst %s", tc.treatment, item.GSTAmount())
	}
}

func TestFormatReference(t *testing.T) {
	issue := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "INV0042/25", FormatReference("INV", 42, issue))
	require.Equal(t, "MOVE0001/25", FormatReference("MOVE", 1, issue))
}

func TestPaymentReferenceFor(t *testing.T) {
	inv := testInvoice()
	// "INV0001/25" stripped of separators is "INV000125"; first eight
	// characters plus the first four of the client name, uppercased.
	require.Equal(t, "INV00012SMIT", inv.PaymentReferenceFor())

	inv.Reference = ""
	require.Equal(t, "", inv.PaymentReferenceFor())

	short := &Invoice{Reference: "A/1", ClientName: "Bo"}
	require.Equal(t, "A1BO", short.PaymentReferenceFor())

	// Multi-byte client names truncate on rune boundaries, never inside a
	// character.
	multibyte := &Invoice{Reference: "INV0001/25", ClientName: "Müller Removals"}
	got := multibyte.PaymentReferenceFor()
	require.Equal(t, "INV00012MÜLL", got)
	require.True(t, utf8.ValidString(got))
}

func TestIsTaxInvoice(t *testing.T) {
	registered := &Company{GSTRegistered: true}
	unregistered := &Company{GSTRegistered: false}

	inv := testInvoice()
	require.True(t, inv.IsTaxInvoice(registered))
	require.Equal(t, "", inv.TaxInvoiceNote(registered))

	require.False(t, inv.IsTaxInvoice(unregistered))
	require.Equal(t, "This is not a tax invoice. GST not applicable.", inv.TaxInvoiceNote(unregistered))

	small := &Invoice{Items: []InvoiceItem{
		{Quantity: 1, UnitPrice: dec("50.00"), GSTTreatment: TreatmentTaxable},
	}}
	// 55.00 inc GST, below the 82.50 threshold.
	require.False(t, small.IsTaxInvoice(registered))
	require.Contains(t, small.TaxInvoiceNote(registered), "not a tax invoice")

	boundary := &Invoice{Items: []InvoiceItem{
		{Quantity: 1, UnitPrice: dec("75.00"), GSTTreatment: TreatmentTaxable},
	}}
	// Exactly 82.50 inc GST qualifies.
	require.True(t, boundary.IsTaxInvoice(registered))
}

func TestIsOverdue(t *testing.T) {
	today := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	due := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)

	inv := &Invoice{Status: StatusSent, DueDate: due}
	require.True(t, inv.IsOverdue(today))

	// Due today is not overdue yet.
	inv.DueDate = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.False(t, inv.IsOverdue(today))

	for _, status := range []InvoiceStatus{StatusPaid, StatusCancelled, StatusDraft} {
		inv := &Invoice{Status: status, DueDate: due}
		require.False(t, inv.IsOverdue(today), "status %s", status)
	}
}

func TestRetentionDateFor(t *testing.T) {
	inv := &Invoice{IssueDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)}
	require.Equal(t, time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC), inv.RetentionDateFor())
}

func TestInvoiceValidate(t *testing.T) {
	inv := testInvoice()
	require.NoError(t, inv.Validate())

	business := testInvoice()
	business.ClientType = ClientBusiness
	business.ClientABN = ""
	require.Error(t, business.Validate())

	business.ClientABN = "51 824 753 556"
	require.NoError(t, business.Validate())
	require.Equal(t, "51824753556", business.ClientABN)

	backwards := testInvoice()
	backwards.DueDate = backwards.IssueDate.AddDate(0, 0, -1)
	require.Error(t, backwards.Validate())
}

func TestCompanyValidate(t *testing.T) {
	company := &Company{
		LegalForm:    LegalFormSoleTrader,
		BusinessName: "Harbour City Removals",
		ABN:          "51 824 753 556",
		BSB:          "062-000",
		PostalCode:   "2000",
	}
	require.NoError(t, company.Validate())
	require.Equal(t, "51824753556", company.ABN)
	require.Equal(t, "062000", company.BSB)

	ptyLtd := &Company{
		LegalForm:    LegalFormPtyLtd,
		BusinessName: "Acme Movers Pty Ltd",
		ABN:          "53004085616",
	}
	require.Error(t, ptyLtd.Validate(), "PTY_LTD without ACN")

	ptyLtd.ACN = "004 085 616"
	require.NoError(t, ptyLtd.Validate())
	require.Equal(t, "004085616", ptyLtd.ACN)
}

func TestCompanyDisplayName(t *testing.T) {
	c := &Company{BusinessName: "Harbour City Removals"}
	require.Equal(t, "Harbour City Removals", c.DisplayName())
	c.LegalName = "HCR Holdings Pty Ltd"
	require.Equal(t, "HCR Holdings Pty Ltd", c.DisplayName())
}
