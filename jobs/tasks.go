// Package jobs runs background work: the nightly overdue sweep and bulk
// PDF exports too large for a request cycle.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueSweep flips SENT invoices past their due date to OVERDUE.
	TaskOverdueSweep = "invoice:overdue_sweep"
	// TaskBulkExport renders a period's invoices to a ZIP of PDFs.
	TaskBulkExport = "invoice:bulk_export"
)

// OverdueSweepPayload carries scheduling metadata.
type OverdueSweepPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewOverdueSweepTask constructs an Asynq task for the overdue sweep.
func NewOverdueSweepTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(OverdueSweepPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueSweep, body, asynq.Queue(QueueDefault)), nil
}

// BulkExportPayload identifies the period to export.
type BulkExportPayload struct {
	JobID      string `json:"job_id"`
	CompanyID  int64  `json:"company_id"`
	PeriodType string `json:"period_type"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Quarter    int    `json:"quarter"`
}

// NewBulkExportTask constructs an Asynq task for a bulk export.
func NewBulkExportTask(payload BulkExportPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBulkExport, body, asynq.Queue(QueueDefault)), nil
}
