package invoicing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/moveledger/moveledger/internal/austax"
	"github.com/moveledger/moveledger/internal/platform/httpx"
)

// ReportInvalidator drops cached BAS reports after a write that can change
// a period's figures.
type ReportInvalidator interface {
	Bump(ctx context.Context) error
}

// Handler manages company and invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	reports   ReportInvalidator
	validator *validator.Validate
}

// NewHandler builds Handler instance. reports may be nil.
func NewHandler(logger *slog.Logger, service *Service, reports ReportInvalidator) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		reports:   reports,
		validator: validator.New(),
	}
}

func (h *Handler) invalidateReports(ctx context.Context) {
	if h.reports == nil {
		return
	}
	if err := h.reports.Bump(ctx); err != nil {
		h.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}

// MountRoutes registers invoicing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", h.listCompanies)
		r.Post("/", h.createCompany)
		r.Get("/{id}", h.getCompany)
		r.Put("/{id}", h.updateCompany)
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.listInvoices)
		r.Post("/", h.createDraft)
		r.Get("/{id}", h.getInvoice)
		r.Put("/{id}", h.updateDraft)
		r.Delete("/{id}", h.deleteDraft)
		r.Post("/{id}/finalize", h.finalizeInvoice)
		r.Post("/{id}/pay", h.markPaid)
		r.Post("/{id}/cancel", h.cancelInvoice)
	})
}

type companyRequest struct {
	LegalForm     string `json:"legal_form" validate:"required,oneof=SOLE_TRADER PTY_LTD PUBLIC_COMPANY PARTNERSHIP TRUST"`
	BusinessName  string `json:"business_name" validate:"required,max=200"`
	LegalName     string `json:"legal_name" validate:"max=200"`
	ABN           string `json:"abn" validate:"required"`
	ACN           string `json:"acn"`
	GSTRegistered bool   `json:"gst_registered"`
	Address       string `json:"address" validate:"required"`
	City          string `json:"city" validate:"required"`
	State         string `json:"state" validate:"required,oneof=NSW VIC QLD WA SA TAS ACT NT"`
	PostalCode    string `json:"postal_code" validate:"required"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	BankName      string `json:"bank_name"`
	BSB           string `json:"bsb"`
	AccountNumber string `json:"account_number"`
	InvoicePrefix string `json:"invoice_prefix" validate:"max=10"`
}

func (req companyRequest) toInput() CompanyInput {
	return CompanyInput{
		LegalForm:     LegalForm(req.LegalForm),
		BusinessName:  req.BusinessName,
		LegalName:     req.LegalName,
		ABN:           req.ABN,
		ACN:           req.ACN,
		GSTRegistered: req.GSTRegistered,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		PostalCode:    req.PostalCode,
		Phone:         req.Phone,
		Email:         req.Email,
		BankName:      req.BankName,
		BSB:           req.BSB,
		AccountNumber: req.AccountNumber,
		InvoicePrefix: req.InvoicePrefix,
	}
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	company, err := h.service.CreateCompany(r.Context(), req.toInput())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, companyView(company))
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req companyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	company, err := h.service.UpdateCompany(r.Context(), id, req.toInput())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, companyView(company))
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, companyView(company))
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	views := make([]CompanyView, 0, len(companies))
	for i := range companies {
		views = append(views, companyView(&companies[i]))
	}
	httpx.JSON(w, http.StatusOK, views)
}

type itemRequest struct {
	Description  string `json:"description" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	UnitPrice    string `json:"unit_price" validate:"required"`
	GSTTreatment string `json:"gst_treatment" validate:"required,oneof=TAXABLE GST_FREE INPUT_TAXED"`
}

type invoiceRequest struct {
	CompanyID     int64         `json:"company_id" validate:"required,gt=0"`
	IssueDate     string        `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	ClientType    string        `json:"client_type" validate:"required,oneof=BUSINESS INDIVIDUAL"`
	ClientName    string        `json:"client_name" validate:"required,max=200"`
	ClientABN     string        `json:"client_abn"`
	ClientAddress string        `json:"client_address" validate:"required"`
	PaymentTerms  string        `json:"payment_terms"`
	Notes         string        `json:"notes"`
	Items         []itemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req invoiceRequest) toInput() (InvoiceInput, error) {
	input := InvoiceInput{
		CompanyID:     req.CompanyID,
		ClientType:    ClientType(req.ClientType),
		ClientName:    req.ClientName,
		ClientABN:     req.ClientABN,
		ClientAddress: req.ClientAddress,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
	}
	if req.IssueDate != "" {
		issue, err := time.Parse("2006-01-02", req.IssueDate)
		if err != nil {
			return input, austax.NewValidationError("issue_date", "issue date must be YYYY-MM-DD")
		}
		input.IssueDate = issue
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, ItemInput{
			Description:  it.Description,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			GSTTreatment: GSTTreatment(it.GSTTreatment),
		})
	}
	return input, nil
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.respondErr(w, err)
		return
	}
	inv, err := h.service.CreateDraft(r.Context(), input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.invoiceViewFor(r, inv))
}

func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.respondErr(w, err)
		return
	}
	inv, err := h.service.UpdateDraft(r.Context(), id, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.invoiceViewFor(r, inv))
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.invoiceViewFor(r, inv))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company_id query parameter is required")
		return
	}
	req := ListInvoicesRequest{CompanyID: companyID, Limit: 200}
	if status := r.URL.Query().Get("status"); status != "" {
		req.Statuses = []InvoiceStatus{InvoiceStatus(status)}
	}
	invoices, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	views := make([]InvoiceView, 0, len(invoices))
	for i := range invoices {
		views = append(views, h.invoiceViewFor(r, &invoices[i]))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) deleteDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDraft(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) finalizeInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Finalize(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.invalidateReports(r.Context())
	httpx.JSON(w, http.StatusOK, h.invoiceViewFor(r, inv))
}

type payRequest struct {
	PaymentDate string `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req payRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	var when *time.Time
	if req.PaymentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_date must be YYYY-MM-DD")
			return
		}
		when = &parsed
	}
	inv, err := h.service.MarkPaid(r.Context(), id, when)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.invalidateReports(r.Context())
	httpx.JSON(w, http.StatusOK, h.invoiceViewFor(r, inv))
}

func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.invalidateReports(r.Context())
	httpx.JSON(w, http.StatusOK, h.invoiceViewFor(r, inv))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) invoiceViewFor(r *http.Request, inv *Invoice) InvoiceView {
	company, err := h.service.GetCompany(r.Context(), inv.CompanyID)
	if err != nil {
		// The invoice carries its own amounts either way; the tax-invoice
		// flag just degrades to false without the issuer row.
		h.logger.Error("load company for invoice view",
			slog.Int64("invoice_id", inv.ID), slog.Any("error", err))
		company = &Company{}
	}
	return invoiceView(inv, company)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var verr *austax.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", verr.Message, verr.Field)
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateReference):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrNotDraft), errors.Is(err, ErrAlreadyFinal),
		errors.Is(err, ErrNoItems), errors.Is(err, ErrCancelledPaid):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("invoicing request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
