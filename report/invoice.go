package report

import (
	"bytes"
	"context"
	"html/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/moveledger/moveledger/internal/invoicing"
)

var audPrinter = message.NewPrinter(language.MustParse("en-AU"))

// FormatAUD renders a decimal amount as Australian dollars.
func FormatAUD(amount decimal.Decimal) string {
	return audPrinter.Sprint(currency.Symbol(currency.AUD.Amount(amount.InexactFloat64())))
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} {{.Reference}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 10pt; margin: 20mm; }
.header { display: flex; justify-content: space-between; }
.title { font-size: 14pt; font-weight: bold; text-align: right; }
.client { margin-top: 12mm; }
table.items { width: 100%; border-collapse: collapse; margin-top: 8mm; }
table.items th, table.items td { border: 0.5pt solid #000; padding: 4px; font-size: 9pt; }
table.items th { background: #ddd; text-align: left; }
table.items td.num { text-align: right; }
table.totals { margin-top: 8mm; margin-left: auto; border-collapse: collapse; }
table.totals td { border: 0.5pt solid #000; padding: 4px; font-size: 9pt; }
table.totals tr.grand td { background: #ddd; font-weight: bold; }
.payment { margin-top: 8mm; font-size: 9pt; }
.legal { margin-top: 10mm; font-size: 7pt; text-align: center; }
.footer { margin-top: 5mm; font-size: 8pt; text-align: center; }
</style>
</head>
<body>
<div class="header">
  <div>
    <b>{{.Company.BusinessName}}</b><br>
    {{if .ShowLegalName}}{{.Company.LegalName}}<br>{{end}}
    ABN: {{.ABN}}<br>
    {{if .ACN}}ACN: {{.ACN}}<br>{{end}}
    {{.Company.Address}}<br>
    {{.Company.City}} {{.Company.State}} {{.Company.PostalCode}}<br>
    {{if .Company.Phone}}Phone: {{.Company.Phone}}<br>{{end}}
    {{if .Company.Email}}Email: {{.Company.Email}}<br>{{end}}
  </div>
  <div>
    <div class="title">{{.Title}}</div>
    Number: {{.Reference}}<br>
    Date: {{.IssueDate}}<br>
    Due: {{.DueDate}}
  </div>
</div>

<div class="client">
  <b>BILL TO:</b><br>
  {{.Invoice.ClientName}}<br>
  {{.Invoice.ClientAddress}}<br>
  {{if .Invoice.ClientABN}}ABN: {{.ClientABN}}{{end}}
</div>

<table class="items">
  <tr><th>Description</th><th>Qty</th><th>Unit Price</th><th>GST</th><th>Amount</th></tr>
  {{range .Items}}
  <tr>
    <td>{{.Description}}</td>
    <td class="num">{{.Quantity}}</td>
    <td class="num">{{.UnitPrice}}</td>
    <td class="num">{{.GSTRate}}%</td>
    <td class="num">{{.Total}}</td>
  </tr>
  {{end}}
</table>

<table class="totals">
  <tr><td>Subtotal (excl. GST)</td><td class="num">{{.Subtotal}}</td></tr>
  {{if .HasGST}}<tr><td>GST (10%)</td><td class="num">{{.GSTAmount}}</td></tr>{{end}}
  <tr class="grand"><td>TOTAL (inc. GST)</td><td class="num">{{.Total}}</td></tr>
</table>

<div class="payment">
  <b>PAYMENT TERMS</b><br>
  {{.Invoice.PaymentTerms}}<br><br>
  {{if .Company.BankName}}
  <b>Bank Details:</b><br>
  Bank: {{.Company.BankName}}<br>
  BSB: {{.BSB}}<br>
  Account: {{.Company.AccountNumber}}<br>
  {{if .Invoice.PaymentReference}}Reference: {{.Invoice.PaymentReference}}{{end}}
  {{end}}
</div>

{{if .LegalNote}}<div class="legal">{{.LegalNote}}</div>{{end}}
<div class="footer">{{.Footer}}</div>
</body>
</html>`

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceTemplate))

type itemView struct {
	Description string
	Quantity    int
	UnitPrice   string
	GSTRate     string
	Total       string
}

type invoiceView struct {
	Invoice       *invoicing.Invoice
	Company       *invoicing.Company
	Title         string
	Reference     string
	ABN           string
	ACN           string
	BSB           string
	ClientABN     string
	IssueDate     string
	DueDate       string
	ShowLegalName bool
	Items         []itemView
	Subtotal      string
	GSTAmount     string
	Total         string
	HasGST        bool
	LegalNote     string
	Footer        string
}

// BuildInvoiceHTML renders the printable invoice document.
func BuildInvoiceHTML(inv *invoicing.Invoice, company *invoicing.Company) (string, error) {
	title := "INVOICE"
	if inv.IsTaxInvoice(company) {
		title = "TAX INVOICE"
	}
	reference := inv.Reference
	if reference == "" {
		reference = "DRAFT"
	}

	items := make([]itemView, 0, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		items = append(items, itemView{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   FormatAUD(it.UnitPrice),
			GSTRate:     it.GSTRatePercent().StringFixed(0),
			Total:       FormatAUD(it.Total()),
		})
	}

	footer := company.BusinessName + " | ABN: " + company.FormattedABN()
	if company.GSTRegistered {
		footer = "GST registered | " + footer
	}

	view := invoiceView{
		Invoice:       inv,
		Company:       company,
		Title:         title,
		Reference:     reference,
		ABN:           company.FormattedABN(),
		ACN:           company.FormattedACN(),
		BSB:           company.FormattedBSB(),
		ClientABN:     inv.ClientABN,
		IssueDate:     inv.IssueDate.Format("02/01/2006"),
		DueDate:       inv.DueDate.Format("02/01/2006"),
		ShowLegalName: company.LegalName != "" && company.LegalName != company.BusinessName,
		Items:         items,
		Subtotal:      FormatAUD(inv.Subtotal()),
		GSTAmount:     FormatAUD(inv.GSTAmount()),
		Total:         FormatAUD(inv.TotalAmount()),
		HasGST:        inv.GSTAmount().IsPositive(),
		LegalNote:     inv.TaxInvoiceNote(company),
		Footer:        footer,
	}

	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Renderer produces invoice PDFs.
type Renderer struct {
	client *Client
}

// NewRenderer builds Renderer instance.
func NewRenderer(client *Client) *Renderer {
	return &Renderer{client: client}
}

// RenderInvoicePDF renders one invoice to PDF bytes.
func (r *Renderer) RenderInvoicePDF(ctx context.Context, inv *invoicing.Invoice, company *invoicing.Company) ([]byte, error) {
	html, err := BuildInvoiceHTML(inv, company)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html)
}
