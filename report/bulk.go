package report

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/moveledger/moveledger/internal/invoicing"
)

// BulkResult summarises a period export.
type BulkResult struct {
	Archive   []byte
	Succeeded int
	Failed    int
}

// BulkExport renders every invoice to PDF and bundles them into a ZIP
// archive. Individual render failures are logged and skipped so one bad
// invoice does not sink the whole export.
func (r *Renderer) BulkExport(ctx context.Context, logger *slog.Logger, invoices []invoicing.Invoice, company *invoicing.Company) (*BulkResult, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	result := &BulkResult{}
	for i := range invoices {
		inv := &invoices[i]
		pdf, err := r.RenderInvoicePDF(ctx, inv, company)
		if err != nil {
			result.Failed++
			logger.Error("bulk export: render invoice",
				slog.Int64("invoice_id", inv.ID), slog.Any("error", err))
			continue
		}
		name := inv.Reference
		if name == "" {
			name = fmt.Sprintf("draft_%d", inv.ID)
		}
		w, err := zw.Create(sanitizeFilename(name) + ".pdf")
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(pdf); err != nil {
			return nil, err
		}
		result.Succeeded++
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	result.Archive = buf.Bytes()
	return result, nil
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
