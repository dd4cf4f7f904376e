package report

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/moveledger/moveledger/internal/invoicing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixtureCompany() *invoicing.Company {
	return &invoicing.Company{
		LegalForm:     invoicing.LegalFormSoleTrader,
		BusinessName:  "Harbour City Removals",
		ABN:           "51824753556",
		GSTRegistered: true,
		Address:       "12 Wharf Road",
		City:          "Sydney",
		State:         "NSW",
		PostalCode:    "2000",
		BankName:      "Example Bank",
		BSB:           "062000",
		AccountNumber: "12345678",
	}
}

func fixtureInvoice() *invoicing.Invoice {
	return &invoicing.Invoice{
		ID:               7,
		Reference:        "INV0007/25",
		IssueDate:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		DueDate:          time.Date(2025, 1, 24, 0, 0, 0, 0, time.UTC),
		ClientName:       "Jane Citizen",
		ClientAddress:    "5 High Street, Newtown NSW 2042",
		Status:           invoicing.StatusSent,
		PaymentTerms:     "Payment due within 14 days",
		PaymentReference: "INV00072JANE",
		Items: []invoicing.InvoiceItem{
			{Description: "Local move", Quantity: 1, UnitPrice: dec("850.00"), GSTTreatment: invoicing.TreatmentTaxable},
		},
	}
}

func TestFormatAUD(t *testing.T) {
	got := FormatAUD(dec("850.00"))
	require.Contains(t, got, "$")
	require.Contains(t, got, "850.00")

	zero := FormatAUD(decimal.Zero)
	require.Contains(t, zero, "0.00")
}

func TestBuildInvoiceHTML(t *testing.T) {
	html, err := BuildInvoiceHTML(fixtureInvoice(), fixtureCompany())
	require.NoError(t, err)

	require.Contains(t, html, "TAX INVOICE")
	require.Contains(t, html, "INV0007/25")
	require.Contains(t, html, "51 824 753 556")
	require.Contains(t, html, "Jane Citizen")
	require.Contains(t, html, "10/01/2025")
	require.Contains(t, html, "850.00")
	require.Contains(t, html, "935.00")
	require.Contains(t, html, "INV00072JANE")
	require.NotContains(t, html, "not a tax invoice")
}

func TestBuildInvoiceHTMLNonTaxInvoice(t *testing.T) {
	inv := fixtureInvoice()
	inv.Items = []invoicing.InvoiceItem{
		{Description: "Box of tape", Quantity: 1, UnitPrice: dec("10.00"), GSTTreatment: invoicing.TreatmentTaxable},
	}
	html, err := BuildInvoiceHTML(inv, fixtureCompany())
	require.NoError(t, err)

	require.Contains(t, html, ">INVOICE</div>")
	require.NotContains(t, html, "TAX INVOICE")
	require.Contains(t, html, "not a tax invoice")
}

func TestBuildInvoiceHTMLDraft(t *testing.T) {
	inv := fixtureInvoice()
	inv.Reference = ""
	html, err := BuildInvoiceHTML(inv, fixtureCompany())
	require.NoError(t, err)
	require.Contains(t, html, "DRAFT")
}

func fakeGotenberg(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		html, _ := io.ReadAll(file)
		if !strings.Contains(string(html), "<html") {
			http.Error(w, "not html", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4 stub"))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestRenderInvoicePDF(t *testing.T) {
	renderer := NewRenderer(fakeGotenberg(t))

	pdf, err := renderer.RenderInvoicePDF(context.Background(), fixtureInvoice(), fixtureCompany())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestBulkExport(t *testing.T) {
	renderer := NewRenderer(fakeGotenberg(t))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	second := fixtureInvoice()
	second.ID = 8
	second.Reference = "INV0008/25"
	draft := fixtureInvoice()
	draft.ID = 9
	draft.Reference = ""

	result, err := renderer.BulkExport(context.Background(), logger,
		[]invoicing.Invoice{*fixtureInvoice(), *second, *draft}, fixtureCompany())
	require.NoError(t, err)
	require.Equal(t, 3, result.Succeeded)
	require.Zero(t, result.Failed)

	zr, err := zip.NewReader(bytes.NewReader(result.Archive), int64(len(result.Archive)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "INV0007_25.pdf")
	require.Contains(t, names, "INV0008_25.pdf")
	require.Contains(t, names, "draft_9.pdf")
}

func TestBulkExportSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	renderer := NewRenderer(NewClient(srv.URL))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	result, err := renderer.BulkExport(context.Background(), logger,
		[]invoicing.Invoice{*fixtureInvoice()}, fixtureCompany())
	require.NoError(t, err)
	require.Zero(t, result.Succeeded)
	require.Equal(t, 1, result.Failed)
}
