// Package bas aggregates invoice GST figures into Business Activity
// Statement reports at monthly, quarterly and annual granularity.
package bas

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moveledger/moveledger/internal/austax"
	"github.com/moveledger/moveledger/internal/invoicing"
)

// reportedStatuses are the invoices that count toward a BAS period:
// everything issued and not cancelled.
var reportedStatuses = []invoicing.InvoiceStatus{
	invoicing.StatusSent,
	invoicing.StatusPaid,
	invoicing.StatusOverdue,
}

// InvoiceSource is the slice of the invoicing repository this service reads.
type InvoiceSource interface {
	ListInvoices(ctx context.Context, req invoicing.ListInvoicesRequest) ([]invoicing.Invoice, error)
}

// Fields holds the statutory BAS amounts. G2 is always zero: exports are
// not modelled anywhere in the data, so the field is emitted but never
// populated.
type Fields struct {
	// G1: total sales including GST.
	G1 decimal.Decimal `json:"G1"`
	// G2: export sales.
	G2 decimal.Decimal `json:"G2"`
	// G3: GST-free sales (item subtotals).
	G3 decimal.Decimal `json:"G3"`
	// G4: input-taxed sales (item subtotals).
	G4 decimal.Decimal `json:"G4"`
	// A1 is BAS label 1A: GST collected on sales.
	A1 decimal.Decimal `json:"1A"`
	// TaxableSales is total sales ex GST counting only invoices whose
	// every line is taxable. An invoice with any GST-free or input-taxed
	// line is excluded entirely, taxable lines included. Preserved from
	// the source system pending confirmation against ATO BAS rules.
	TaxableSales decimal.Decimal `json:"taxable_sales_ex_gst"`
}

func zeroFields() Fields {
	return Fields{
		G1: decimal.Zero, G2: decimal.Zero, G3: decimal.Zero, G4: decimal.Zero,
		A1: decimal.Zero, TaxableSales: decimal.Zero,
	}
}

func (f Fields) add(other Fields) Fields {
	return Fields{
		G1:           f.G1.Add(other.G1),
		G2:           f.G2.Add(other.G2),
		G3:           f.G3.Add(other.G3),
		G4:           f.G4.Add(other.G4),
		A1:           f.A1.Add(other.A1),
		TaxableSales: f.TaxableSales.Add(other.TaxableSales),
	}
}

// Report is one resolved BAS period.
type Report struct {
	Period       string    `json:"period"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	InvoiceCount int       `json:"invoice_count"`
	Fields       Fields    `json:"fields"`
}

// AnnualSummary is the four quarters of a year plus their sums. The annual
// totals are computed from the quarterly reports, not recomputed from raw
// invoices, so annual == sum of quarters holds by construction.
type AnnualSummary struct {
	Year         int      `json:"year"`
	Quarters     []Report `json:"quarters"`
	InvoiceCount int      `json:"invoice_count"`
	Fields       Fields   `json:"fields"`
}

// Service computes BAS reports.
type Service struct {
	invoices InvoiceSource
}

// NewService builds Service instance.
func NewService(invoices InvoiceSource) *Service {
	return &Service{invoices: invoices}
}

// Monthly reports one calendar month.
func (s *Service) Monthly(ctx context.Context, companyID int64, year, month int) (*Report, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, austax.NewValidationError("month", "month must be between 1 and 12")
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return s.buildReport(ctx, companyID, fmt.Sprintf("%02d/%d", month, year), start, end)
}

// Quarterly reports one calendar quarter. Quarter 4 runs through the
// year boundary to December 31.
func (s *Service) Quarterly(ctx context.Context, companyID int64, year, quarter int) (*Report, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	if quarter < 1 || quarter > 4 {
		return nil, austax.NewValidationError("quarter", "quarter must be between 1 and 4")
	}
	start, end := quarterRange(year, quarter)
	return s.buildReport(ctx, companyID, fmt.Sprintf("Q%d %d", quarter, year), start, end)
}

// Annual sums the year's four quarterly reports.
func (s *Service) Annual(ctx context.Context, companyID int64, year int) (*AnnualSummary, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	summary := &AnnualSummary{Year: year, Fields: zeroFields()}
	for quarter := 1; quarter <= 4; quarter++ {
		report, err := s.Quarterly(ctx, companyID, year, quarter)
		if err != nil {
			return nil, err
		}
		summary.Quarters = append(summary.Quarters, *report)
		summary.Fields = summary.Fields.add(report.Fields)
		summary.InvoiceCount += report.InvoiceCount
	}
	return summary, nil
}

func (s *Service) buildReport(ctx context.Context, companyID int64, period string, start, end time.Time) (*Report, error) {
	invoices, err := s.invoices.ListInvoices(ctx, invoicing.ListInvoicesRequest{
		CompanyID: companyID,
		Statuses:  reportedStatuses,
		DateFrom:  &start,
		DateTo:    &end,
	})
	if err != nil {
		return nil, err
	}

	fields := zeroFields()
	for i := range invoices {
		inv := &invoices[i]
		fields.G1 = fields.G1.Add(inv.TotalAmount())
		fields.A1 = fields.A1.Add(inv.GSTAmount())
		for j := range inv.Items {
			item := &inv.Items[j]
			switch item.GSTTreatment {
			case invoicing.TreatmentGSTFree:
				fields.G3 = fields.G3.Add(item.Subtotal())
			case invoicing.TreatmentInputTaxed:
				fields.G4 = fields.G4.Add(item.Subtotal())
			}
		}
		if !inv.HasNonTaxableLine() {
			fields.TaxableSales = fields.TaxableSales.Add(inv.Subtotal())
		}
	}

	return &Report{
		Period:       period,
		StartDate:    start,
		EndDate:      end,
		InvoiceCount: len(invoices),
		Fields:       fields,
	}, nil
}

func quarterRange(year, quarter int) (time.Time, time.Time) {
	startMonth := time.Month((quarter-1)*3 + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0).AddDate(0, 0, -1)
	return start, end
}

func validateYear(year int) error {
	if year < 2000 || year > 2100 {
		return austax.NewValidationError("year", "year out of range")
	}
	return nil
}
