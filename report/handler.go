package report

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/moveledger/moveledger/internal/austax"
	"github.com/moveledger/moveledger/internal/invoicing"
	"github.com/moveledger/moveledger/internal/platform/httpx"
)

// Handler manages PDF and export endpoints.
type Handler struct {
	renderer *Renderer
	client   *Client
	service  *invoicing.Service
	logger   *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(renderer *Renderer, client *Client, service *invoicing.Service, logger *slog.Logger) *Handler {
	return &Handler{renderer: renderer, client: client, service: service, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/invoices/{id}/pdf", h.invoicePDF)
	r.Get("/export", h.bulkExport)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoicing.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("load invoice for pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	company, err := h.service.GetCompany(r.Context(), inv.CompanyID)
	if err != nil {
		h.logger.Error("load company for pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	pdf, err := h.renderer.RenderInvoicePDF(r.Context(), inv, company)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Int64("invoice_id", id), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	name := inv.Reference
	if name == "" {
		name = fmt.Sprintf("draft_%d", inv.ID)
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", sanitizeFilename(name)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) bulkExport(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company_id query parameter is required")
		return
	}
	filter := invoicing.PeriodFilter{
		Type:   invoicing.PeriodType(r.URL.Query().Get("period_type")),
		Status: invoicing.InvoiceStatus(r.URL.Query().Get("status")),
	}
	filter.Year, _ = strconv.Atoi(r.URL.Query().Get("year"))
	filter.Month, _ = strconv.Atoi(r.URL.Query().Get("month"))
	filter.Quarter, _ = strconv.Atoi(r.URL.Query().Get("quarter"))

	company, err := h.service.GetCompany(r.Context(), companyID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	invoices, err := h.service.ListPeriod(r.Context(), companyID, filter)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if len(invoices) == 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no invoices in the requested period")
		return
	}

	result, err := h.renderer.BulkExport(r.Context(), h.logger, invoices, company)
	if err != nil {
		h.logger.Error("bulk export failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if result.Succeeded == 0 {
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=invoices.zip")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Archive)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var verr *austax.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", verr.Message, verr.Field)
	case errors.Is(err, invoicing.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("report request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
