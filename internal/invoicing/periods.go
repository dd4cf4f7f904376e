package invoicing

import (
	"context"
	"time"

	"github.com/moveledger/moveledger/internal/austax"
)

// PeriodType selects the granularity of a period listing.
type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
)

// PeriodFilter selects invoices for a reporting or export period. Year
// plus Month/Quarter pin an exact calendar period; when zero, the period
// runs from the start of the current month or quarter to today.
type PeriodFilter struct {
	Type    PeriodType
	Year    int
	Month   int
	Quarter int
	// Status narrows to one status; empty means all issued invoices
	// (SENT, PAID, OVERDUE).
	Status InvoiceStatus
}

// Resolve turns the filter into a concrete date range.
func (f PeriodFilter) Resolve(today time.Time) (time.Time, time.Time, error) {
	switch f.Type {
	case PeriodMonthly:
		if f.Year != 0 && f.Month != 0 {
			if f.Month < 1 || f.Month > 12 {
				return time.Time{}, time.Time{}, austax.NewValidationError("month", "month must be between 1 and 12")
			}
			start := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, today.Location())
			return start, start.AddDate(0, 1, -1), nil
		}
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return start, today, nil
	case PeriodQuarterly:
		if f.Year != 0 && f.Quarter != 0 {
			if f.Quarter < 1 || f.Quarter > 4 {
				return time.Time{}, time.Time{}, austax.NewValidationError("quarter", "quarter must be between 1 and 4")
			}
			start := time.Date(f.Year, time.Month((f.Quarter-1)*3+1), 1, 0, 0, 0, 0, today.Location())
			return start, start.AddDate(0, 3, -1), nil
		}
		quarter := (int(today.Month())-1)/3 + 1
		start := time.Date(today.Year(), time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, today.Location())
		return start, today, nil
	default:
		return time.Time{}, time.Time{}, austax.NewValidationError("period_type", "period type must be monthly or quarterly")
	}
}

// ListPeriod returns a company's invoices for a calendar period, ordered
// by issue date then reference. Backs BAS drill-down and bulk export.
func (s *Service) ListPeriod(ctx context.Context, companyID int64, filter PeriodFilter) ([]Invoice, error) {
	start, end, err := filter.Resolve(s.now())
	if err != nil {
		return nil, err
	}
	req := ListInvoicesRequest{
		CompanyID: companyID,
		DateFrom:  &start,
		DateTo:    &end,
	}
	if filter.Status != "" {
		req.Statuses = []InvoiceStatus{filter.Status}
	} else {
		req.Statuses = []InvoiceStatus{StatusSent, StatusPaid, StatusOverdue}
	}
	return s.repo.ListInvoices(ctx, req)
}
