package models

import "time"

// ReportJobStatus tracks asynchronous export progress.
type ReportJobStatus string

const (
	ReportJobQueued     ReportJobStatus = "QUEUED"
	ReportJobProcessing ReportJobStatus = "PROCESSING"
	ReportJobCompleted  ReportJobStatus = "COMPLETED"
	ReportJobFailed     ReportJobStatus = "FAILED"
)

// ReportJob is a persisted gradebook export request.
type ReportJob struct {
	ID          string          `db:"id" json:"id"`
	CourseID    string          `db:"course_id" json:"course_id"`
	RequestedBy string          `db:"requested_by" json:"requested_by"`
	Format      string          `db:"format" json:"format"`
	Status      ReportJobStatus `db:"status" json:"status"`
	FilePath    string          `db:"file_path" json:"-"`
	ErrorNote   string          `db:"error_note" json:"error_note,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
