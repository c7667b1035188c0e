package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/models"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
	"github.com/openlearn/lms-api/pkg/export"
	"github.com/openlearn/lms-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, note string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type gradebookBuilder interface {
	CourseGradebook(ctx context.Context, courseID, requesterID string, role models.UserRole) (*dto.GradebookResponse, bool, error)
}

type artifactStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type downloadSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string) (jobID, relPath string, expiresAt time.Time, err error)
}

// ReportService accepts gradebook export requests and exposes their status
// and signed download URLs.
type ReportService struct {
	repo      reportJobStore
	courses   gradebookCourseRepository
	queue     jobDispatcher
	signer    downloadSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportJobStore, courses gradebookCourseRepository, queue jobDispatcher, signer downloadSigner, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, courses: courses, queue: queue, signer: signer, validator: validate, logger: logger}
}

// CreateJob queues a gradebook export for a course the caller owns.
func (s *ReportService) CreateJob(ctx context.Context, courseID, requesterID string, role models.UserRole, req dto.CreateReportRequest) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if role != models.RoleAdmin && course.InstructorID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	now := time.Now().UTC()
	job := &models.ReportJob{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		RequestedBy: requesterID,
		Format:      req.Format,
		Status:      models.ReportJobQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "gradebook-export"}); err != nil {
		note := "failed to enqueue export"
		if markErr := s.repo.MarkFailed(ctx, job.ID, note); markErr != nil {
			s.logger.Warn("failed to mark unqueued job", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, note)
	}

	return s.toResponse(job), nil
}

// JobStatus returns the state of an export job visible to the caller.
func (s *ReportService) JobStatus(ctx context.Context, jobID, requesterID string, role models.UserRole) (*dto.ReportJobResponse, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if role != models.RoleAdmin && job.RequestedBy != requesterID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return s.toResponse(job), nil
}

// ReportDownload pairs a readable artifact with its serving metadata.
type ReportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ResolveDownload validates a signed token and opens the artifact for
// streaming. No session is required; the token is the credential.
func (s *ReportService) ResolveDownload(ctx context.Context, token string, store artifactStore) (*ReportDownload, error) {
	jobID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ReportJobCompleted || job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export artifact not available")
	}

	file, err := store.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export artifact")
	}
	exporter := export.ForFormat(job.Format)
	return &ReportDownload{
		File:        file,
		Filename:    fmt.Sprintf("gradebook-%s.%s", job.CourseID, exporter.Extension()),
		ContentType: exporter.ContentType(),
	}, nil
}

func (s *ReportService) toResponse(job *models.ReportJob) *dto.ReportJobResponse {
	response := &dto.ReportJobResponse{
		ID:          job.ID,
		CourseID:    job.CourseID,
		Format:      job.Format,
		Status:      job.Status,
		ErrorNote:   job.ErrorNote,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == models.ReportJobCompleted && job.FilePath != "" {
		token, expiresAt, err := s.signer.Generate(job.ID, job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign download url", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			response.DownloadURL = fmt.Sprintf("/reports/download/%s", token)
			response.ExpiresAt = &expiresAt
		}
	}
	return response
}

// ReportWorker renders queued gradebook exports.
type ReportWorker struct {
	repo       reportJobStore
	gradebooks gradebookBuilder
	store      artifactStore
	metrics    *MetricsService
	maxRetries int
	logger     *zap.Logger
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, gradebooks gradebookBuilder, store artifactStore, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{
		repo:       repo,
		gradebooks: gradebooks,
		store:      store,
		metrics:    metrics,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Handle processes one queued export job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := w.repo.MarkProcessing(ctx, record.ID); err != nil {
		return err
	}

	data, renderErr := w.render(ctx, record)
	if renderErr != nil {
		if job.Attempt >= w.maxRetries {
			if err := w.repo.MarkFailed(ctx, record.ID, renderErr.Error()); err != nil {
				w.logger.Warn("failed to mark job failed", zap.String("job_id", record.ID), zap.Error(err))
			}
			w.metrics.RecordReportJob("failed")
			return nil
		}
		return renderErr
	}

	exporter := export.ForFormat(record.Format)
	filename := fmt.Sprintf("%s/gradebook-%s.%s", record.CourseID, record.ID, exporter.Extension())
	relPath, err := w.store.Save(filename, data)
	if err != nil {
		return err
	}
	if err := w.repo.MarkCompleted(ctx, record.ID, relPath, time.Now().UTC()); err != nil {
		return err
	}
	w.metrics.RecordReportJob("completed")
	return nil
}

// render builds the gradebook on behalf of the original requester and
// flattens it into a tabular dataset.
func (w *ReportWorker) render(ctx context.Context, record *models.ReportJob) ([]byte, error) {
	report, _, err := w.gradebooks.CourseGradebook(ctx, record.CourseID, record.RequestedBy, models.RoleInstructor)
	if err != nil {
		var typed *appErrors.Error
		if errors.As(err, &typed) && typed.Code == appErrors.ErrNotFound.Code {
			// The requester may be an admin who never owned the course.
			report, _, err = w.gradebooks.CourseGradebook(ctx, record.CourseID, record.RequestedBy, models.RoleAdmin)
		}
		if err != nil {
			return nil, err
		}
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Gradebook - %s", report.CourseTitle),
		Headers: []string{"Student", "Email", "Points", "Max Points", "Percentage", "Grade", "GPA", "Pending"},
		Rows:    make([]map[string]string, 0, len(report.Students)),
	}
	for _, student := range report.Students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":    student.FullName,
			"Email":      student.Email,
			"Points":     fmt.Sprintf("%.1f", student.TotalPoints),
			"Max Points": fmt.Sprintf("%.1f", student.MaxPoints),
			"Percentage": fmt.Sprintf("%d", student.Percentage),
			"Grade":      student.LetterGrade,
			"GPA":        fmt.Sprintf("%.1f", student.GPA),
			"Pending":    fmt.Sprintf("%d", student.PendingSubmissions),
		})
	}
	return export.ForFormat(record.Format).Render(dataset)
}
