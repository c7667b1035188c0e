package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/lms-api/internal/models"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
)

type mockCourseRepo struct {
	courses map[string]models.Course
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (m *mockCourseRepo) ListPublishedByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	var result []models.Course
	for _, course := range m.courses {
		if course.InstructorID == instructorID && course.Published {
			result = append(result, course)
		}
	}
	return result, nil
}

func (m *mockCourseRepo) StructureCounts(ctx context.Context, courseIDs []string) ([]models.CourseStructureCounts, error) {
	return nil, nil
}

type mockEnrollmentListRepo struct {
	students []models.EnrolledStudent
}

func (m *mockEnrollmentListRepo) ListStudentsByCourse(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	return m.students, nil
}

type mockAssessmentListRepo struct {
	records []models.AssessmentRecord
}

func (m *mockAssessmentListRepo) ListByCourse(ctx context.Context, courseID string) ([]models.AssessmentRecord, error) {
	return m.records, nil
}

func newGradebookFixture(students []models.EnrolledStudent, records []models.AssessmentRecord) *GradebookService {
	courses := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", InstructorID: "instructor-1", Title: "Distributed Systems", Published: true},
	}}
	return NewGradebookService(
		courses,
		&mockEnrollmentListRepo{students: students},
		&mockAssessmentListRepo{records: records},
		NewCacheService(nil, nil, time.Hour, nil, false),
		time.Hour,
		nil,
	)
}

func projectRecord(student, id string, score, max float64, status string, at time.Time) models.AssessmentRecord {
	return models.AssessmentRecord{
		ID: id, Kind: models.AssessmentProject, StudentID: student, CourseID: "course-1",
		ParentTitle: "Project " + id, Score: score, MaxScore: max, Status: status, SubmittedAt: at,
	}
}

func quizRecord(student, id string, score, max float64, status string, at time.Time) models.AssessmentRecord {
	return models.AssessmentRecord{
		ID: id, Kind: models.AssessmentQuiz, StudentID: student, CourseID: "course-1",
		ParentTitle: "Quiz " + id, Score: score, MaxScore: max, Status: status, SubmittedAt: at,
	}
}

func TestCourseGradebookOverallGradeIsPointsSummation(t *testing.T) {
	now := time.Now()
	students := []models.EnrolledStudent{{StudentID: "s1", FullName: "Ada", Email: "ada@example.com"}}
	records := []models.AssessmentRecord{
		projectRecord("s1", "p1", 80, 100, models.ProjectStatusApproved, now),
		quizRecord("s1", "q1", 10, 10, models.QuizStatusCompleted, now),
	}
	svc := newGradebookFixture(students, records)

	report, _, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)
	require.Len(t, report.Students, 1)

	student := report.Students[0]
	// 90/110 points, not the 90 an average of the two percentages would give.
	assert.Equal(t, 82, student.Percentage)
	assert.Equal(t, "B", student.LetterGrade)
	assert.Equal(t, 3.0, student.GPA)
	assert.Equal(t, 90.0, student.TotalPoints)
	assert.Equal(t, 110.0, student.MaxPoints)
	assert.Equal(t, "stable", student.Trend)
}

func TestCourseGradebookRoundsHalfUp(t *testing.T) {
	now := time.Now()
	students := []models.EnrolledStudent{{StudentID: "s1", FullName: "Ada"}}
	records := []models.AssessmentRecord{
		projectRecord("s1", "p1", 45, 50, models.ProjectStatusApproved, now),
	}
	svc := newGradebookFixture(students, records)

	report, _, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	student := report.Students[0]
	assert.Equal(t, 90, student.Percentage)
	assert.Equal(t, "A", student.LetterGrade)
	assert.Equal(t, 4.0, student.GPA)
}

func TestCourseGradebookExcludesZeroPointItems(t *testing.T) {
	now := time.Now()
	students := []models.EnrolledStudent{{StudentID: "s1", FullName: "Ada"}}
	records := []models.AssessmentRecord{
		projectRecord("s1", "p1", 5, 0, models.ProjectStatusApproved, now),
		quizRecord("s1", "q1", 8, 10, models.QuizStatusCompleted, now),
	}
	svc := newGradebookFixture(students, records)

	report, _, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	student := report.Students[0]
	assert.Equal(t, 8.0, student.TotalPoints)
	assert.Equal(t, 10.0, student.MaxPoints)
	assert.Equal(t, 80, student.Percentage)
	// The zero-point item itself reports a zero percentage.
	assert.Equal(t, 0, student.Projects[0].Percentage)
}

func TestCourseGradebookEmptyClass(t *testing.T) {
	svc := newGradebookFixture(nil, nil)

	report, _, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.StudentCount)
	assert.Equal(t, 0, report.Summary.AverageGrade)
	assert.Equal(t, map[string]int{"A": 0, "B": 0, "C": 0, "D": 0, "F": 0}, report.Summary.GradeDistribution)
	assert.Empty(t, report.Summary.TopPerformers)
	assert.Empty(t, report.Summary.StrugglingStudents)
}

func TestCourseGradebookPendingQuizDoesNotCount(t *testing.T) {
	now := time.Now()
	students := []models.EnrolledStudent{{StudentID: "s1", FullName: "Ada"}}
	records := []models.AssessmentRecord{
		quizRecord("s1", "q1", 3, 10, models.QuizStatusInProgress, now),
		projectRecord("s1", "p1", 0, 100, models.ProjectStatusPending, now),
	}
	svc := newGradebookFixture(students, records)

	report, _, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	student := report.Students[0]
	assert.Equal(t, 0.0, student.MaxPoints)
	assert.Equal(t, 0, student.CompletedQuizzes)
	// The in-progress attempt never surfaces as a quiz item.
	assert.Empty(t, student.Quizzes)
	require.Len(t, student.Projects, 1)
	// Only the pending project counts as an outstanding submission.
	assert.Equal(t, 1, student.PendingSubmissions)
}

func TestCourseGradebookCacheHitFlag(t *testing.T) {
	now := time.Now()
	students := []models.EnrolledStudent{{StudentID: "s1", FullName: "Ada"}}
	records := []models.AssessmentRecord{
		projectRecord("s1", "p1", 80, 100, models.ProjectStatusApproved, now),
	}
	courses := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", InstructorID: "instructor-1", Title: "Distributed Systems", Published: true},
	}}
	svc := NewGradebookService(
		courses,
		&mockEnrollmentListRepo{students: students},
		&mockAssessmentListRepo{records: records},
		NewCacheService(newMemoryCacheRepo(), nil, time.Hour, nil, true),
		time.Hour,
		nil,
	)

	first, hit, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Students[0].Percentage, second.Students[0].Percentage)
}

func TestCourseGradebookRecentActivityCappedAtTen(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	students := []models.EnrolledStudent{{StudentID: "s1", FullName: "Ada"}}
	var records []models.AssessmentRecord
	for i := 0; i < 8; i++ {
		records = append(records, projectRecord("s1", fmt.Sprintf("p%d", i), 80, 100, models.ProjectStatusApproved, base.Add(time.Duration(i)*time.Hour)))
		records = append(records, quizRecord("s1", fmt.Sprintf("q%d", i), 8, 10, models.QuizStatusCompleted, base.Add(time.Duration(i)*time.Minute)))
	}
	svc := newGradebookFixture(students, records)

	report, _, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	activity := report.Summary.RecentActivity
	require.Len(t, activity, 10)
	for i := 1; i < len(activity); i++ {
		assert.False(t, activity[i].Timestamp.After(activity[i-1].Timestamp), "activity must be newest first")
	}
}

func TestCourseGradebookTopAndStruggling(t *testing.T) {
	now := time.Now()
	var students []models.EnrolledStudent
	var records []models.AssessmentRecord
	scores := []float64{95, 88, 76, 65, 50, 42, 30}
	for i, score := range scores {
		id := fmt.Sprintf("s%d", i)
		students = append(students, models.EnrolledStudent{StudentID: id, FullName: "Student " + id})
		records = append(records, projectRecord(id, "p-"+id, score, 100, models.ProjectStatusApproved, now))
	}
	svc := newGradebookFixture(students, records)

	report, _, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	require.Len(t, report.Summary.TopPerformers, 5)
	assert.Equal(t, 95, report.Summary.TopPerformers[0].Percentage)

	struggling := report.Summary.StrugglingStudents
	require.Len(t, struggling, 4)
	assert.Equal(t, 30, struggling[0].Percentage)
	assert.Equal(t, 65, struggling[len(struggling)-1].Percentage)
}

func TestCourseGradebookOwnership(t *testing.T) {
	svc := newGradebookFixture(nil, nil)

	_, _, err := svc.CourseGradebook(context.Background(), "course-1", "other-instructor", models.RoleInstructor)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	_, _, err = svc.CourseGradebook(context.Background(), "course-1", "some-admin", models.RoleAdmin)
	assert.NoError(t, err)

	_, _, err = svc.CourseGradebook(context.Background(), "missing", "instructor-1", models.RoleInstructor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseGradebookCategoryWeights(t *testing.T) {
	now := time.Now()
	students := []models.EnrolledStudent{{StudentID: "s1", FullName: "Ada"}}
	records := []models.AssessmentRecord{
		projectRecord("s1", "p1", 80, 100, models.ProjectStatusApproved, now),
		quizRecord("s1", "q1", 6, 10, models.QuizStatusCompleted, now),
	}
	svc := newGradebookFixture(students, records)

	report, _, err := svc.CourseGradebook(context.Background(), "course-1", "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	categories := report.Summary.Categories
	require.Len(t, categories, 3)
	assert.Equal(t, "Projects", categories[0].Category)
	assert.Equal(t, 50, categories[0].Weight)
	assert.Equal(t, 80, categories[0].AverageScore)
	assert.Equal(t, 30, categories[1].Weight)
	assert.Equal(t, 60, categories[1].AverageScore)
	assert.Equal(t, 20, categories[2].Weight)
	assert.Equal(t, 0, categories[2].AverageScore)
}
