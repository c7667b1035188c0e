package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/models"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
	"github.com/openlearn/lms-api/pkg/jobs"
	"github.com/openlearn/lms-api/pkg/storage"
)

type mockReportStore struct {
	jobs map[string]*models.ReportJob
}

func newMockReportStore() *mockReportStore {
	return &mockReportStore{jobs: map[string]*models.ReportJob{}}
}

func (m *mockReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockReportStore) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (m *mockReportStore) MarkProcessing(ctx context.Context, id string) error {
	m.jobs[id].Status = models.ReportJobProcessing
	return nil
}

func (m *mockReportStore) MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error {
	job := m.jobs[id]
	job.Status = models.ReportJobCompleted
	job.FilePath = filePath
	job.CompletedAt = &completedAt
	return nil
}

func (m *mockReportStore) MarkFailed(ctx context.Context, id, note string) error {
	job := m.jobs[id]
	job.Status = models.ReportJobFailed
	job.ErrorNote = note
	return nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	fail     bool
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.fail {
		return errors.New("queue stopped")
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockArtifactStore struct {
	saved map[string][]byte
}

func newMockArtifactStore() *mockArtifactStore {
	return &mockArtifactStore{saved: map[string][]byte{}}
}

func (m *mockArtifactStore) Save(filename string, data []byte) (string, error) {
	m.saved[filename] = data
	return filename, nil
}

func (m *mockArtifactStore) Open(filename string) (*os.File, error) {
	if _, ok := m.saved[filename]; !ok {
		return nil, os.ErrNotExist
	}
	f, err := os.CreateTemp("", "artifact")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(m.saved[filename]); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

type stubGradebookBuilder struct {
	report *dto.GradebookResponse
	err    error
}

func (s *stubGradebookBuilder) CourseGradebook(ctx context.Context, courseID, requesterID string, role models.UserRole) (*dto.GradebookResponse, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return s.report, false, nil
}

func newReportFixture(dispatcher *mockDispatcher) (*ReportService, *mockReportStore) {
	store := newMockReportStore()
	courses := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", InstructorID: "instructor-1", Title: "Distributed Systems", Published: true},
	}}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewReportService(store, courses, dispatcher, signer, nil, nil)
	return svc, store
}

func TestCreateJobQueuesExport(t *testing.T) {
	dispatcher := &mockDispatcher{}
	svc, store := newReportFixture(dispatcher)

	resp, err := svc.CreateJob(context.Background(), "course-1", "instructor-1", models.RoleInstructor, dto.CreateReportRequest{Format: "csv"})
	require.NoError(t, err)

	assert.Equal(t, models.ReportJobQueued, resp.Status)
	assert.Empty(t, resp.DownloadURL, "no download URL until the artifact exists")
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0].ID)
	assert.Contains(t, store.jobs, resp.ID)
}

func TestCreateJobValidatesFormat(t *testing.T) {
	svc, _ := newReportFixture(&mockDispatcher{})

	_, err := svc.CreateJob(context.Background(), "course-1", "instructor-1", models.RoleInstructor, dto.CreateReportRequest{Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobForeignCourseReadsAsNotFound(t *testing.T) {
	svc, _ := newReportFixture(&mockDispatcher{})

	_, err := svc.CreateJob(context.Background(), "course-1", "other-instructor", models.RoleInstructor, dto.CreateReportRequest{Format: "csv"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateJobEnqueueFailureMarksJobFailed(t *testing.T) {
	svc, store := newReportFixture(&mockDispatcher{fail: true})

	_, err := svc.CreateJob(context.Background(), "course-1", "instructor-1", models.RoleInstructor, dto.CreateReportRequest{Format: "csv"})
	require.Error(t, err)
	assert.Equal(t, 500, appErrors.FromError(err).Status)

	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ReportJobFailed, job.Status)
	}
}

func TestJobStatusVisibility(t *testing.T) {
	svc, store := newReportFixture(&mockDispatcher{})
	store.jobs["j1"] = &models.ReportJob{ID: "j1", CourseID: "course-1", RequestedBy: "instructor-1", Format: "csv", Status: models.ReportJobQueued}

	resp, err := svc.JobStatus(context.Background(), "j1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, models.ReportJobQueued, resp.Status)

	// Other instructors cannot see the job, not even its existence.
	_, err = svc.JobStatus(context.Background(), "j1", "someone-else", models.RoleInstructor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.JobStatus(context.Background(), "j1", "any-admin", models.RoleAdmin)
	assert.NoError(t, err)
}

func TestJobStatusSignsCompletedDownload(t *testing.T) {
	svc, store := newReportFixture(&mockDispatcher{})
	completedAt := time.Now().UTC()
	store.jobs["j1"] = &models.ReportJob{
		ID:          "j1",
		CourseID:    "course-1",
		RequestedBy: "instructor-1",
		Format:      "csv",
		Status:      models.ReportJobCompleted,
		FilePath:    "course-1/gradebook-j1.csv",
		CompletedAt: &completedAt,
	}

	resp, err := svc.JobStatus(context.Background(), "j1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.DownloadURL, "/reports/download/"))
	require.NotNil(t, resp.ExpiresAt)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestReportWorkerCompletesJob(t *testing.T) {
	store := newMockReportStore()
	store.jobs["j1"] = &models.ReportJob{ID: "j1", CourseID: "course-1", RequestedBy: "instructor-1", Format: "csv", Status: models.ReportJobQueued}
	artifacts := newMockArtifactStore()
	builder := &stubGradebookBuilder{report: &dto.GradebookResponse{
		CourseID:    "course-1",
		CourseTitle: "Distributed Systems",
		Students: []dto.StudentGradeReport{
			{FullName: "Ada", Email: "ada@example.com", TotalPoints: 90, MaxPoints: 110, Percentage: 82, LetterGrade: "B", GPA: 3.0},
		},
	}}
	worker := NewReportWorker(store, builder, artifacts, nil, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "j1", Attempt: 1})
	require.NoError(t, err)

	job := store.jobs["j1"]
	assert.Equal(t, models.ReportJobCompleted, job.Status)
	assert.Equal(t, "course-1/gradebook-j1.csv", job.FilePath)
	require.NotNil(t, job.CompletedAt)

	data := artifacts.saved[job.FilePath]
	assert.Contains(t, string(data), "Ada")
	assert.Contains(t, string(data), "82")
}

func TestReportWorkerRetriesThenFails(t *testing.T) {
	store := newMockReportStore()
	store.jobs["j1"] = &models.ReportJob{ID: "j1", CourseID: "course-1", RequestedBy: "instructor-1", Format: "csv", Status: models.ReportJobQueued}
	builder := &stubGradebookBuilder{err: errors.New("database gone")}
	worker := NewReportWorker(store, builder, newMockArtifactStore(), nil, 2, nil)

	// Below the retry ceiling the error propagates so the queue retries.
	err := worker.Handle(context.Background(), jobs.Job{ID: "j1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ReportJobProcessing, store.jobs["j1"].Status)

	// At the ceiling the job is terminally failed and the error swallowed.
	err = worker.Handle(context.Background(), jobs.Job{ID: "j1", Attempt: 2})
	require.NoError(t, err)
	assert.Equal(t, models.ReportJobFailed, store.jobs["j1"].Status)
	assert.Equal(t, "database gone", store.jobs["j1"].ErrorNote)
}

func TestResolveDownload(t *testing.T) {
	dispatcher := &mockDispatcher{}
	svc, store := newReportFixture(dispatcher)
	artifacts := newMockArtifactStore()
	_, err := artifacts.Save("course-1/gradebook-j1.csv", []byte("Student,Grade\n"))
	require.NoError(t, err)

	store.jobs["j1"] = &models.ReportJob{
		ID:       "j1",
		CourseID: "course-1",
		Format:   "csv",
		Status:   models.ReportJobCompleted,
		FilePath: "course-1/gradebook-j1.csv",
	}

	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	token, _, err := signer.Generate("j1", "course-1/gradebook-j1.csv")
	require.NoError(t, err)

	download, err := svc.ResolveDownload(context.Background(), token, artifacts)
	require.NoError(t, err)
	defer func() {
		download.File.Close()
		os.Remove(download.File.Name())
	}()

	assert.Equal(t, "gradebook-course-1.csv", download.Filename)
	assert.Equal(t, "text/csv", download.ContentType)
}

func TestResolveDownloadRejectsBadToken(t *testing.T) {
	svc, _ := newReportFixture(&mockDispatcher{})

	_, err := svc.ResolveDownload(context.Background(), "garbage", newMockArtifactStore())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestResolveDownloadRequiresCompletedJob(t *testing.T) {
	svc, store := newReportFixture(&mockDispatcher{})
	store.jobs["j1"] = &models.ReportJob{ID: "j1", CourseID: "course-1", Format: "csv", Status: models.ReportJobProcessing}

	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	token, _, err := signer.Generate("j1", "course-1/gradebook-j1.csv")
	require.NoError(t, err)

	_, err = svc.ResolveDownload(context.Background(), token, newMockArtifactStore())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
