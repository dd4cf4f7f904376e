package invoicing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moveledger/moveledger/internal/austax"
)

var (
	ErrNotDraft      = errors.New("invoice is not a draft")
	ErrAlreadyFinal  = errors.New("invoice already finalized")
	ErrNoItems       = errors.New("invoice has no line items")
	ErrCancelledPaid = errors.New("cancelled invoice cannot be paid")
)

// Service handles invoicing business logic.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CompanyInput carries company attributes for create/update.
type CompanyInput struct {
	LegalForm     LegalForm
	BusinessName  string
	LegalName     string
	ABN           string
	ACN           string
	GSTRegistered bool
	Address       string
	City          string
	State         string
	PostalCode    string
	Phone         string
	Email         string
	BankName      string
	BSB           string
	AccountNumber string
	InvoicePrefix string
}

// CreateCompany validates identifiers and persists a new company with a
// zeroed sequence counter.
func (s *Service) CreateCompany(ctx context.Context, input CompanyInput) (*Company, error) {
	c := companyFromInput(input)
	if c.InvoicePrefix == "" {
		c.InvoicePrefix = "INV"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateCompany(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// UpdateCompany validates and persists company changes. The sequence
// counter is not touched here; only the sequencer mutates it.
func (s *Service) UpdateCompany(ctx context.Context, id int64, input CompanyInput) (*Company, error) {
	existing, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	c := companyFromInput(input)
	c.ID = id
	c.CurrentNumber = existing.CurrentNumber
	if c.InvoicePrefix == "" {
		c.InvoicePrefix = existing.InvoicePrefix
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCompany loads a company by ID.
func (s *Service) GetCompany(ctx context.Context, id int64) (*Company, error) {
	return s.repo.GetCompany(ctx, id)
}

// ListCompanies returns all issuing companies.
func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	return s.repo.ListCompanies(ctx)
}

func companyFromInput(input CompanyInput) *Company {
	return &Company{
		LegalForm:     input.LegalForm,
		BusinessName:  input.BusinessName,
		LegalName:     input.LegalName,
		ABN:           input.ABN,
		ACN:           input.ACN,
		GSTRegistered: input.GSTRegistered,
		Address:       input.Address,
		City:          input.City,
		State:         input.State,
		PostalCode:    input.PostalCode,
		Phone:         input.Phone,
		Email:         input.Email,
		BankName:      input.BankName,
		BSB:           input.BSB,
		AccountNumber: input.AccountNumber,
		InvoicePrefix: input.InvoicePrefix,
	}
}

// InvoiceInput carries invoice attributes for create/update.
type InvoiceInput struct {
	CompanyID     int64
	IssueDate     time.Time
	ClientType    ClientType
	ClientName    string
	ClientABN     string
	ClientAddress string
	PaymentTerms  string
	Notes         string
	Items         []ItemInput
}

// ItemInput carries one line item.
type ItemInput struct {
	Description  string
	Quantity     int
	UnitPrice    string
	GSTTreatment GSTTreatment
}

// CreateDraft validates the input and persists a DRAFT invoice. No
// reference is assigned; due and retention dates are derived immediately
// so the draft already previews its terms.
func (s *Service) CreateDraft(ctx context.Context, input InvoiceInput) (*Invoice, error) {
	if _, err := s.repo.GetCompany(ctx, input.CompanyID); err != nil {
		return nil, err
	}
	inv, err := s.buildInvoice(input)
	if err != nil {
		return nil, err
	}
	inv.Status = StatusDraft
	if _, err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateDraft replaces a draft's attributes and line items. Non-draft
// invoices are immutable apart from their status workflow.
func (s *Service) UpdateDraft(ctx context.Context, id int64, input InvoiceInput) (*Invoice, error) {
	existing, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, ErrNotDraft
	}
	inv, err := s.buildInvoice(input)
	if err != nil {
		return nil, err
	}
	inv.ID = id
	inv.CompanyID = existing.CompanyID
	inv.Status = StatusDraft
	inv.CreatedAt = existing.CreatedAt

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		return repo.ReplaceItems(ctx, id, inv.Items)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) buildInvoice(input InvoiceInput) (*Invoice, error) {
	issue := input.IssueDate
	if issue.IsZero() {
		issue = s.now()
	}
	terms := input.PaymentTerms
	if terms == "" {
		terms = "Payment due within 30 days"
	}

	inv := &Invoice{
		CompanyID:     input.CompanyID,
		IssueDate:     issue,
		ClientType:    input.ClientType,
		ClientName:    input.ClientName,
		ClientABN:     input.ClientABN,
		ClientAddress: input.ClientAddress,
		PaymentTerms:  terms,
		Notes:         input.Notes,
	}
	inv.DueDate = ParseTerms(terms).DueDate(issue)
	inv.RetentionDate = inv.RetentionDateFor()

	items, err := buildItems(input.Items)
	if err != nil {
		return nil, err
	}
	inv.Items = items

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func buildItems(inputs []ItemInput) ([]InvoiceItem, error) {
	items := make([]InvoiceItem, 0, len(inputs))
	for _, in := range inputs {
		price, err := decimal.NewFromString(in.UnitPrice)
		if err != nil {
			return nil, austax.NewValidationError("unit_price", "unit price must be a decimal amount")
		}
		items = append(items, InvoiceItem{
			Description:  in.Description,
			Quantity:     in.Quantity,
			UnitPrice:    price,
			GSTTreatment: in.GSTTreatment,
		})
	}
	return items, nil
}

// Finalize moves a draft to SENT and assigns its sequential reference.
// The counter increment and the invoice write share one transaction, so
// an abort rolls both back and no counter value is ever leaked. Calling
// Finalize on an already-referenced invoice is a no-op for the reference
// and the counter.
func (s *Service) Finalize(ctx context.Context, id int64) (*Invoice, error) {
	var result *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if len(inv.Items) == 0 {
			return ErrNoItems
		}
		if inv.Status == StatusCancelled {
			return ErrAlreadyFinal
		}

		if err := s.assignReference(ctx, repo, inv); err != nil {
			return err
		}
		if inv.Status == StatusDraft {
			inv.Status = StatusSent
		}
		s.applyDerived(inv)

		if err := repo.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice finalized",
		slog.Int64("invoice_id", result.ID),
		slog.String("reference", result.Reference))
	return result, nil
}

// MarkPaid records payment. PAID is terminal for tax purposes: it is never
// auto-transitioned afterwards, even past the due date. Paying a draft
// directly still assigns the reference first, so no invoice leaves DRAFT
// unnumbered.
func (s *Service) MarkPaid(ctx context.Context, id int64, paymentDate *time.Time) (*Invoice, error) {
	var result *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusCancelled {
			return ErrCancelledPaid
		}
		if err := s.assignReference(ctx, repo, inv); err != nil {
			return err
		}
		when := s.now()
		if paymentDate != nil {
			when = *paymentDate
		}
		inv.Status = StatusPaid
		inv.PaymentDate = &when
		s.applyDerived(inv)
		if err := repo.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel voids an invoice for record-keeping. Cancelling a draft assigns
// the reference on the way out, and an already-assigned reference is kept:
// the sequence stays gapless and auditable.
func (s *Service) Cancel(ctx context.Context, id int64) (*Invoice, error) {
	var result *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := s.assignReference(ctx, repo, inv); err != nil {
			return err
		}
		inv.Status = StatusCancelled
		s.applyDerived(inv)
		if err := repo.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// assignReference draws the next sequential reference for an invoice that
// does not have one yet. Must run inside the transaction that writes the
// invoice so the counter increment aborts with it.
func (s *Service) assignReference(ctx context.Context, repo Repository, inv *Invoice) error {
	if inv.Reference != "" {
		return nil
	}
	ref, err := repo.NextReference(ctx, inv.CompanyID, inv.IssueDate)
	if err != nil {
		return err
	}
	inv.Reference = ref
	return nil
}

// Get loads an invoice with its items and refreshes the overdue flag on
// the way out when a save is warranted.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusSent && inv.IsOverdue(s.now()) {
		inv.Status = StatusOverdue
		if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, req)
}

// DeleteDraft removes a draft invoice and its items.
func (s *Service) DeleteDraft(ctx context.Context, id int64) error {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != StatusDraft {
		return ErrNotDraft
	}
	return s.repo.DeleteInvoice(ctx, id)
}

// SweepOverdue flips all SENT invoices past their due date to OVERDUE.
// Run nightly by the worker; the save-time transition covers invoices
// touched in between.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkOverdueBefore(ctx, dateOnly(s.now()))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("overdue sweep", slog.Int64("updated", n))
	}
	return n, nil
}

// applyDerived fills in save-time derivations: payment reference once a
// reference exists, due and retention dates when missing, and the
// SENT-to-OVERDUE flip when the due date has passed.
func (s *Service) applyDerived(inv *Invoice) {
	if inv.PaymentReference == "" && inv.Reference != "" {
		inv.PaymentReference = inv.PaymentReferenceFor()
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = ParseTerms(inv.PaymentTerms).DueDate(inv.IssueDate)
	}
	if inv.RetentionDate.IsZero() {
		inv.RetentionDate = inv.RetentionDateFor()
	}
	if inv.Status == StatusSent && inv.IsOverdue(s.now()) {
		inv.Status = StatusOverdue
	}
}
