// Package invoicing holds the GST invoice aggregate: companies, invoices,
// line items, reference sequencing and status transitions.
package invoicing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moveledger/moveledger/internal/austax"
)

// Statutory constants for Australian GST invoicing.
var (
	// GSTRate is the standard GST percentage applied to taxable supplies.
	GSTRate = decimal.NewFromFloat(10.00)
	// TaxInvoiceThreshold is the total (inc GST) above which a document
	// must be issued as a tax invoice.
	TaxInvoiceThreshold = decimal.NewFromFloat(82.50)
	// MinUnitPrice is the smallest accepted unit price.
	MinUnitPrice = decimal.NewFromFloat(0.01)
)

// RecordRetentionYears is the ATO record-keeping period.
const RecordRetentionYears = 5

// LegalForm enumerates company legal structures.
type LegalForm string

const (
	LegalFormSoleTrader    LegalForm = "SOLE_TRADER"
	LegalFormPtyLtd        LegalForm = "PTY_LTD"
	LegalFormPublicCompany LegalForm = "PUBLIC_COMPANY"
	LegalFormPartnership   LegalForm = "PARTNERSHIP"
	LegalFormTrust         LegalForm = "TRUST"
)

// RequiresACN reports whether the legal form must carry a company number.
func (f LegalForm) RequiresACN() bool {
	return f == LegalFormPtyLtd || f == LegalFormPublicCompany
}

// ClientType enumerates invoice recipients.
type ClientType string

const (
	ClientBusiness   ClientType = "BUSINESS"
	ClientIndividual ClientType = "INDIVIDUAL"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusSent      InvoiceStatus = "SENT"
	StatusPaid      InvoiceStatus = "PAID"
	StatusOverdue   InvoiceStatus = "OVERDUE"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// GSTTreatment enumerates how GST applies to a line item.
type GSTTreatment string

const (
	TreatmentTaxable    GSTTreatment = "TAXABLE"
	TreatmentGSTFree    GSTTreatment = "GST_FREE"
	TreatmentInputTaxed GSTTreatment = "INPUT_TAXED"
)

// Company is the issuing legal identity. CurrentNumber is mutated only by
// the reference sequencer, under a row lock.
type Company struct {
	ID            int64
	LegalForm     LegalForm
	BusinessName  string
	LegalName     string
	ABN           string
	ACN           string
	GSTRegistered bool

	Address    string
	City       string
	State      string
	PostalCode string
	Phone      string
	Email      string

	BankName      string
	BSB           string
	AccountNumber string

	InvoicePrefix string
	CurrentNumber int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName prefers the registered legal name over the trading name.
func (c *Company) DisplayName() string {
	if c.LegalName != "" {
		return c.LegalName
	}
	return c.BusinessName
}

// FormattedABN returns the ABN in canonical grouping.
func (c *Company) FormattedABN() string { return austax.FormatABN(c.ABN) }

// FormattedACN returns the ACN in canonical grouping, empty when unset.
func (c *Company) FormattedACN() string {
	if c.ACN == "" {
		return ""
	}
	return austax.FormatACN(c.ACN)
}

// FormattedBSB returns the BSB in canonical grouping.
func (c *Company) FormattedBSB() string { return austax.FormatBSB(c.BSB) }

// FullAddress renders the single-line postal address.
func (c *Company) FullAddress() string {
	return fmt.Sprintf("%s, %s %s %s", c.Address, c.City, c.State, c.PostalCode)
}

// Validate normalizes and checks company identifiers.
func (c *Company) Validate() error {
	if strings.TrimSpace(c.BusinessName) == "" {
		return austax.NewValidationError("business_name", "business name is required")
	}
	abn, err := austax.ValidateABN(c.ABN)
	if err != nil {
		return err
	}
	c.ABN = abn

	if c.LegalForm.RequiresACN() && c.ACN == "" {
		return austax.NewValidationError("acn", "ACN is required for Proprietary Limited and Public companies")
	}
	if c.ACN != "" {
		acn, err := austax.ValidateACN(c.ACN)
		if err != nil {
			return err
		}
		c.ACN = acn
	}
	if c.BSB != "" {
		bsb, err := austax.ValidateBSB(c.BSB)
		if err != nil {
			return err
		}
		c.BSB = bsb
	}
	if c.AccountNumber != "" {
		acct, err := austax.ValidateAccountNumber(c.AccountNumber)
		if err != nil {
			return err
		}
		c.AccountNumber = acct
	}
	if c.PostalCode != "" {
		pc, err := austax.ValidatePostcode(c.PostalCode)
		if err != nil {
			return err
		}
		c.PostalCode = pc
	}
	if c.CurrentNumber < 0 {
		return austax.NewValidationError("current_number", "sequence counter must not be negative")
	}
	return nil
}

// InvoiceItem is a single line within an invoice.
type InvoiceItem struct {
	ID           int64
	InvoiceID    int64
	Description  string
	Quantity     int
	UnitPrice    decimal.Decimal
	GSTTreatment GSTTreatment
}

// GSTRatePercent is 10.00 for taxable lines and 0.00 otherwise.
func (it *InvoiceItem) GSTRatePercent() decimal.Decimal {
	if it.GSTTreatment == TreatmentTaxable {
		return GSTRate
	}
	return decimal.Zero
}

// Subtotal is quantity times unit price, ex GST.
func (it *InvoiceItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// GSTAmount is the GST charged on this line.
func (it *InvoiceItem) GSTAmount() decimal.Decimal {
	if it.GSTTreatment != TreatmentTaxable {
		return decimal.Zero
	}
	return it.Subtotal().Mul(GSTRate).Div(decimal.NewFromInt(100))
}

// Total is the line amount inc GST.
func (it *InvoiceItem) Total() decimal.Decimal {
	return it.Subtotal().Add(it.GSTAmount())
}

// Validate enforces write-time line invariants.
func (it *InvoiceItem) Validate() error {
	if strings.TrimSpace(it.Description) == "" {
		return austax.NewValidationError("description", "description is required")
	}
	if it.Quantity <= 0 {
		return austax.NewValidationError("quantity", "quantity must be positive")
	}
	if it.UnitPrice.LessThan(MinUnitPrice) {
		return austax.NewValidationError("unit_price", "unit price must be at least 0.01")
	}
	switch it.GSTTreatment {
	case TreatmentTaxable, TreatmentGSTFree, TreatmentInputTaxed:
	default:
		return austax.NewValidationError("gst_treatment", "unknown GST treatment")
	}
	return nil
}

// Invoice is one billing event. Totals are always recomputed from the
// owned items, never cached.
type Invoice struct {
	ID        int64
	CompanyID int64
	// Reference stays empty until the invoice first leaves DRAFT, then is
	// immutable and unique within the company.
	Reference string
	IssueDate time.Time
	DueDate   time.Time

	ClientType    ClientType
	ClientName    string
	ClientABN     string
	ClientAddress string

	Status           InvoiceStatus
	PaymentTerms     string
	PaymentReference string
	PaymentDate      *time.Time
	Notes            string
	RetentionDate    time.Time

	Items []InvoiceItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal sums line subtotals, ex GST.
func (inv *Invoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range inv.Items {
		sum = sum.Add(inv.Items[i].Subtotal())
	}
	return sum
}

// GSTAmount sums line GST.
func (inv *Invoice) GSTAmount() decimal.Decimal {
	sum := decimal.Zero
	for i := range inv.Items {
		sum = sum.Add(inv.Items[i].GSTAmount())
	}
	return sum
}

// TotalAmount is the invoice total inc GST.
func (inv *Invoice) TotalAmount() decimal.Decimal {
	return inv.Subtotal().Add(inv.GSTAmount())
}

// IsTaxInvoice reports whether the document qualifies as a tax invoice:
// GST-registered issuer and total at or above the statutory threshold.
func (inv *Invoice) IsTaxInvoice(company *Company) bool {
	return company.GSTRegistered && inv.TotalAmount().GreaterThanOrEqual(TaxInvoiceThreshold)
}

// TaxInvoiceNote returns the disclosure text required when the document is
// not a tax invoice, empty otherwise.
func (inv *Invoice) TaxInvoiceNote(company *Company) string {
	if !company.GSTRegistered {
		return "This is not a tax invoice. GST not applicable."
	}
	if inv.TotalAmount().LessThan(TaxInvoiceThreshold) {
		return fmt.Sprintf("This invoice is not a tax invoice (total less than $%s inc GST).",
			TaxInvoiceThreshold.StringFixed(2))
	}
	return ""
}

// HasNonTaxableLine reports whether any line is GST-free or input taxed.
func (inv *Invoice) HasNonTaxableLine() bool {
	for i := range inv.Items {
		if inv.Items[i].GSTTreatment != TreatmentTaxable {
			return true
		}
	}
	return false
}

// PaymentReferenceFor derives the bank-reconciliation reference: the first
// eight characters of the invoice reference stripped of separators, plus
// the first four characters of the client name, uppercased. Deterministic
// and idempotent; uniqueness is not guaranteed and not required.
func (inv *Invoice) PaymentReferenceFor() string {
	if inv.Reference == "" {
		return ""
	}
	clean := []rune(strings.NewReplacer("/", "", "-", "").Replace(inv.Reference))
	if len(clean) > 8 {
		clean = clean[:8]
	}
	// Rune-wise so multi-byte client names are never cut mid-character.
	name := []rune(inv.ClientName)
	if len(name) > 4 {
		name = name[:4]
	}
	return string(clean) + strings.ToUpper(string(name))
}

// RetentionDateFor shifts the issue date forward by the statutory
// retention period.
func (inv *Invoice) RetentionDateFor() time.Time {
	return inv.IssueDate.AddDate(RecordRetentionYears, 0, 0)
}

// IsOverdue reports whether an open invoice has passed its due date.
// Paid, cancelled and draft invoices are never overdue.
func (inv *Invoice) IsOverdue(today time.Time) bool {
	switch inv.Status {
	case StatusPaid, StatusCancelled, StatusDraft:
		return false
	}
	if inv.DueDate.IsZero() {
		return false
	}
	return dateOnly(inv.DueDate).Before(dateOnly(today))
}

// Validate enforces invoice-level invariants.
func (inv *Invoice) Validate() error {
	if strings.TrimSpace(inv.ClientName) == "" {
		return austax.NewValidationError("client_name", "client name is required")
	}
	if inv.ClientType == ClientBusiness && strings.TrimSpace(inv.ClientABN) == "" {
		return austax.NewValidationError("client_abn", "ABN is required for business clients")
	}
	if inv.ClientABN != "" {
		abn, err := austax.ValidateABN(inv.ClientABN)
		if err != nil {
			return austax.NewValidationError("client_abn", "invalid client ABN")
		}
		inv.ClientABN = abn
	}
	if !inv.DueDate.IsZero() && dateOnly(inv.DueDate).Before(dateOnly(inv.IssueDate)) {
		return austax.NewValidationError("due_date", "due date must not precede issue date")
	}
	for i := range inv.Items {
		if err := inv.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FormatReference renders a sequenced reference like "INV0042/25" for the
// given counter value and issue year.
func FormatReference(prefix string, number int, issueDate time.Time) string {
	return fmt.Sprintf("%s%04d/%02d", prefix, number, issueDate.Year()%100)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
