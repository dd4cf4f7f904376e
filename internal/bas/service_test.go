package bas

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/moveledger/moveledger/internal/austax"
	"github.com/moveledger/moveledger/internal/invoicing"
)

type stubInvoiceSource struct {
	invoices []invoicing.Invoice
}

func (s *stubInvoiceSource) ListInvoices(ctx context.Context, req invoicing.ListInvoicesRequest) ([]invoicing.Invoice, error) {
	var out []invoicing.Invoice
	for _, inv := range s.invoices {
		if inv.CompanyID != req.CompanyID {
			continue
		}
		if len(req.Statuses) > 0 {
			matched := false
			for _, status := range req.Statuses {
				if inv.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if req.DateFrom != nil && inv.IssueDate.Before(*req.DateFrom) {
			continue
		}
		if req.DateTo != nil && inv.IssueDate.After(*req.DateTo) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func taxableInvoice(company int64, status invoicing.InvoiceStatus, issue time.Time, quantity int, price string) invoicing.Invoice {
	return invoicing.Invoice{
		CompanyID: company,
		Status:    status,
		IssueDate: issue,
		Items: []invoicing.InvoiceItem{
			{Quantity: quantity, UnitPrice: dec(price), GSTTreatment: invoicing.TreatmentTaxable},
		},
	}
}

func fixtureSource() *stubInvoiceSource {
	date := func(m, d int) time.Time {
		return time.Date(2025, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}
	return &stubInvoiceSource{invoices: []invoicing.Invoice{
		taxableInvoice(1, invoicing.StatusSent, date(1, 15), 1, "100.00"),
		taxableInvoice(1, invoicing.StatusPaid, date(2, 10), 2, "100.00"),
		taxableInvoice(1, invoicing.StatusOverdue, date(3, 5), 3, "100.00"),
		{
			// Mixed invoice: its taxable line still contributes to G1 and
			// 1A, but the whole invoice drops out of taxable sales.
			CompanyID: 1,
			Status:    invoicing.StatusSent,
			IssueDate: date(3, 20),
			Items: []invoicing.InvoiceItem{
				{Quantity: 1, UnitPrice: dec("200.00"), GSTTreatment: invoicing.TreatmentTaxable},
				{Quantity: 1, UnitPrice: dec("50.00"), GSTTreatment: invoicing.TreatmentGSTFree},
			},
		},
		{
			CompanyID: 1,
			Status:    invoicing.StatusSent,
			IssueDate: date(2, 1),
			Items: []invoicing.InvoiceItem{
				{Quantity: 1, UnitPrice: dec("80.00"), GSTTreatment: invoicing.TreatmentInputTaxed},
			},
		},
		// Drafts and cancellations never reach a BAS period.
		taxableInvoice(1, invoicing.StatusDraft, date(1, 20), 1, "999.00"),
		taxableInvoice(1, invoicing.StatusCancelled, date(2, 20), 1, "999.00"),
		// Another company's invoice is invisible.
		taxableInvoice(2, invoicing.StatusSent, date(1, 10), 1, "999.00"),
		// Q3 invoice for the annual rollup.
		taxableInvoice(1, invoicing.StatusPaid, date(8, 15), 1, "1000.00"),
	}}
}

func requireAmount(t *testing.T, want string, got decimal.Decimal, label string) {
	t.Helper()
	require.True(t, got.Equal(dec(want)), "%s: want %s, got %s", label, want, got)
}

func TestQuarterlyReport(t *testing.T) {
	svc := NewService(fixtureSource())

	report, err := svc.Quarterly(context.Background(), 1, 2025, 1)
	require.NoError(t, err)

	require.Equal(t, "Q1 2025", report.Period)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), report.StartDate)
	require.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), report.EndDate)
	require.Equal(t, 5, report.InvoiceCount)

	requireAmount(t, "1010.00", report.Fields.G1, "G1")
	requireAmount(t, "0", report.Fields.G2, "G2")
	requireAmount(t, "50.00", report.Fields.G3, "G3")
	requireAmount(t, "80.00", report.Fields.G4, "G4")
	requireAmount(t, "80.00", report.Fields.A1, "1A")
	requireAmount(t, "600.00", report.Fields.TaxableSales, "taxable sales")
}

func TestMonthlyReport(t *testing.T) {
	svc := NewService(fixtureSource())

	report, err := svc.Monthly(context.Background(), 1, 2025, 1)
	require.NoError(t, err)

	require.Equal(t, "01/2025", report.Period)
	require.Equal(t, 1, report.InvoiceCount)
	requireAmount(t, "110.00", report.Fields.G1, "G1")
	requireAmount(t, "10.00", report.Fields.A1, "1A")
}

func TestEmptyPeriod(t *testing.T) {
	svc := NewService(fixtureSource())

	report, err := svc.Monthly(context.Background(), 1, 2025, 12)
	require.NoError(t, err)
	require.Zero(t, report.InvoiceCount)
	requireAmount(t, "0", report.Fields.G1, "G1")
	requireAmount(t, "0", report.Fields.TaxableSales, "taxable sales")
}

func TestAnnualEqualsSumOfQuarters(t *testing.T) {
	svc := NewService(fixtureSource())

	annual, err := svc.Annual(context.Background(), 1, 2025)
	require.NoError(t, err)
	require.Len(t, annual.Quarters, 4)
	require.Equal(t, 6, annual.InvoiceCount)

	sum := zeroFields()
	count := 0
	for _, q := range annual.Quarters {
		sum = sum.add(q.Fields)
		count += q.InvoiceCount
	}
	require.Equal(t, count, annual.InvoiceCount)
	requireAmount(t, "2110.00", annual.Fields.G1, "G1")
	require.True(t, annual.Fields.G1.Equal(sum.G1))
	require.True(t, annual.Fields.A1.Equal(sum.A1))
	require.True(t, annual.Fields.TaxableSales.Equal(sum.TaxableSales))
}

func TestPeriodValidation(t *testing.T) {
	svc := NewService(fixtureSource())
	ctx := context.Background()

	var verr *austax.ValidationError

	_, err := svc.Monthly(ctx, 1, 2025, 13)
	require.ErrorAs(t, err, &verr)

	_, err = svc.Monthly(ctx, 1, 2025, 0)
	require.ErrorAs(t, err, &verr)

	_, err = svc.Quarterly(ctx, 1, 2025, 5)
	require.ErrorAs(t, err, &verr)

	_, err = svc.Annual(ctx, 1, 1999)
	require.ErrorAs(t, err, &verr)
}
