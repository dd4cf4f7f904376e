package invoicing

import "time"

// CompanyView is the JSON shape for a company.
type CompanyView struct {
	ID            int64  `json:"id"`
	LegalForm     string `json:"legal_form"`
	BusinessName  string `json:"business_name"`
	LegalName     string `json:"legal_name,omitempty"`
	DisplayName   string `json:"display_name"`
	ABN           string `json:"abn"`
	ABNFormatted  string `json:"abn_formatted"`
	ACN           string `json:"acn,omitempty"`
	ACNFormatted  string `json:"acn_formatted,omitempty"`
	GSTRegistered bool   `json:"gst_registered"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	BSB           string `json:"bsb,omitempty"`
	BSBFormatted  string `json:"bsb_formatted,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	InvoicePrefix string `json:"invoice_prefix"`
	CurrentNumber int    `json:"current_number"`
}

func companyView(c *Company) CompanyView {
	view := CompanyView{
		ID:            c.ID,
		LegalForm:     string(c.LegalForm),
		BusinessName:  c.BusinessName,
		LegalName:     c.LegalName,
		DisplayName:   c.DisplayName(),
		ABN:           c.ABN,
		ABNFormatted:  c.FormattedABN(),
		ACN:           c.ACN,
		GSTRegistered: c.GSTRegistered,
		Address:       c.Address,
		City:          c.City,
		State:         c.State,
		PostalCode:    c.PostalCode,
		Phone:         c.Phone,
		Email:         c.Email,
		BankName:      c.BankName,
		BSB:           c.BSB,
		AccountNumber: c.AccountNumber,
		InvoicePrefix: c.InvoicePrefix,
		CurrentNumber: c.CurrentNumber,
	}
	if c.ACN != "" {
		view.ACNFormatted = c.FormattedACN()
	}
	if c.BSB != "" {
		view.BSBFormatted = c.FormattedBSB()
	}
	return view
}

// ItemView is the JSON shape for a line item with derived amounts.
type ItemView struct {
	ID           int64  `json:"id"`
	Description  string `json:"description"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	GSTTreatment string `json:"gst_treatment"`
	GSTRate      string `json:"gst_rate"`
	Subtotal     string `json:"subtotal"`
	GSTAmount    string `json:"gst_amount"`
	Total        string `json:"total"`
}

// InvoiceView is the JSON shape for an invoice with derived totals.
type InvoiceView struct {
	ID               int64      `json:"id"`
	CompanyID        int64      `json:"company_id"`
	Reference        string     `json:"reference,omitempty"`
	IssueDate        string     `json:"issue_date"`
	DueDate          string     `json:"due_date"`
	ClientType       string     `json:"client_type"`
	ClientName       string     `json:"client_name"`
	ClientABN        string     `json:"client_abn,omitempty"`
	ClientAddress    string     `json:"client_address"`
	Status           string     `json:"status"`
	PaymentTerms     string     `json:"payment_terms"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	PaymentDate      *time.Time `json:"payment_date,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	RetentionDate    string     `json:"retention_date"`
	Subtotal         string     `json:"subtotal"`
	GSTAmount        string     `json:"gst_amount"`
	TotalAmount      string     `json:"total_amount"`
	IsTaxInvoice     bool       `json:"is_tax_invoice"`
	TaxInvoiceNote   string     `json:"tax_invoice_note,omitempty"`
	Items            []ItemView `json:"items"`
}

func invoiceView(inv *Invoice, company *Company) InvoiceView {
	items := make([]ItemView, 0, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		items = append(items, ItemView{
			ID:           it.ID,
			Description:  it.Description,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice.StringFixed(2),
			GSTTreatment: string(it.GSTTreatment),
			GSTRate:      it.GSTRatePercent().StringFixed(2),
			Subtotal:     it.Subtotal().StringFixed(2),
			GSTAmount:    it.GSTAmount().StringFixed(2),
			Total:        it.Total().StringFixed(2),
		})
	}
	return InvoiceView{
		ID:               inv.ID,
		CompanyID:        inv.CompanyID,
		Reference:        inv.Reference,
		IssueDate:        inv.IssueDate.Format("2006-01-02"),
		DueDate:          inv.DueDate.Format("2006-01-02"),
		ClientType:       string(inv.ClientType),
		ClientName:       inv.ClientName,
		ClientABN:        inv.ClientABN,
		ClientAddress:    inv.ClientAddress,
		Status:           string(inv.Status),
		PaymentTerms:     inv.PaymentTerms,
		PaymentReference: inv.PaymentReference,
		PaymentDate:      inv.PaymentDate,
		Notes:            inv.Notes,
		RetentionDate:    inv.RetentionDate.Format("2006-01-02"),
		Subtotal:         inv.Subtotal().StringFixed(2),
		GSTAmount:        inv.GSTAmount().StringFixed(2),
		TotalAmount:      inv.TotalAmount().StringFixed(2),
		IsTaxInvoice:     inv.IsTaxInvoice(company),
		TaxInvoiceNote:   inv.TaxInvoiceNote(company),
		Items:            items,
	}
}
