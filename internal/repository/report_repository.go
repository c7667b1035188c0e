package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/lms-api/internal/models"
)

// ReportRepository persists gradebook export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository instantiates the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new export job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	query := `INSERT INTO report_jobs (id, course_id, requested_by, format, status, file_path, error_note, created_at, updated_at)
        VALUES (:id, :course_id, :requested_by, :format, :status, :file_path, :error_note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("insert report job: %w", err)
	}
	return nil
}

// FindByID returns a job by primary key.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	query := `SELECT id, course_id, requested_by, format, status, file_path, error_note, created_at, updated_at, completed_at
        FROM report_jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing flips a queued job to processing.
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE report_jobs SET status = $1, updated_at = NOW() WHERE id = $2",
		models.ReportJobProcessing, id)
	return err
}

// MarkCompleted records the artifact path for a finished job.
func (r *ReportRepository) MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE report_jobs SET status = $1, file_path = $2, completed_at = $3, updated_at = NOW() WHERE id = $4",
		models.ReportJobCompleted, filePath, completedAt, id)
	return err
}

// MarkFailed records the failure note for a job.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, note string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE report_jobs SET status = $1, error_note = $2, updated_at = NOW() WHERE id = $3",
		models.ReportJobFailed, note, id)
	return err
}
