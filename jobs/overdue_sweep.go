package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/moveledger/moveledger/internal/invoicing"
	"github.com/moveledger/moveledger/report"
)

// OverdueSweeper is the invoicing service surface the sweep needs.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// NewOverdueSweepHandler wires the sweep task to the invoicing service.
func NewOverdueSweepHandler(sweeper OverdueSweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OverdueSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		n, err := sweeper.SweepOverdue(ctx)
		if err != nil {
			return err
		}
		logger.Info("overdue sweep complete", slog.Int64("updated", n))
		return nil
	}
}

// BulkExporter is the surface the export task needs.
type BulkExporter interface {
	GetCompany(ctx context.Context, id int64) (*invoicing.Company, error)
	ListPeriod(ctx context.Context, companyID int64, filter invoicing.PeriodFilter) ([]invoicing.Invoice, error)
}

// NewBulkExportHandler renders a period's invoices and writes the archive
// to exportDir, named by the job ID so callers can poll for it.
func NewBulkExportHandler(service BulkExporter, renderer *report.Renderer, exportDir string, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload BulkExportPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		company, err := service.GetCompany(ctx, payload.CompanyID)
		if err != nil {
			return err
		}
		invoices, err := service.ListPeriod(ctx, payload.CompanyID, invoicing.PeriodFilter{
			Type:    invoicing.PeriodType(payload.PeriodType),
			Year:    payload.Year,
			Month:   payload.Month,
			Quarter: payload.Quarter,
		})
		if err != nil {
			return err
		}
		if len(invoices) == 0 {
			logger.Warn("bulk export: no invoices in period", slog.String("job_id", payload.JobID))
			return nil
		}

		result, err := renderer.BulkExport(ctx, logger, invoices, company)
		if err != nil {
			return err
		}

		path := filepath.Join(exportDir, payload.JobID+".zip")
		if err := os.WriteFile(path, result.Archive, 0o644); err != nil {
			return err
		}
		logger.Info("bulk export complete",
			slog.String("job_id", payload.JobID),
			slog.Int("succeeded", result.Succeeded),
			slog.Int("failed", result.Failed),
			slog.String("path", path))
		return nil
	}
}
