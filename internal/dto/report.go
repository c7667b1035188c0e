package dto

import (
	"time"

	"github.com/openlearn/lms-api/internal/models"
)

// CreateReportRequest asks for a gradebook export in the given format.
type CreateReportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse describes an export job, including a signed download URL
// once the artifact is ready.
type ReportJobResponse struct {
	ID          string                 `json:"id"`
	CourseID    string                 `json:"course_id"`
	Format      string                 `json:"format"`
	Status      models.ReportJobStatus `json:"status"`
	ErrorNote   string                 `json:"error_note,omitempty"`
	DownloadURL string                 `json:"download_url,omitempty"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}
