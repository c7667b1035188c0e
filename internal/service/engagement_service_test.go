package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/lms-api/internal/models"
)

type mockEngagementCourseRepo struct {
	courses   []models.Course
	structure []models.CourseStructureCounts
}

func (m *mockEngagementCourseRepo) ListPublishedByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	return m.courses, nil
}

func (m *mockEngagementCourseRepo) StructureCounts(ctx context.Context, courseIDs []string) ([]models.CourseStructureCounts, error) {
	return m.structure, nil
}

type mockEngagementEnrollmentRepo struct {
	events   []models.EnrollmentEvent
	active   map[string]int
	distinct int
	enrolled map[string]int
}

func (m *mockEngagementEnrollmentRepo) EventsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.EnrollmentEvent, error) {
	return m.events, nil
}

func (m *mockEngagementEnrollmentRepo) ActiveStudentCounts(ctx context.Context, courseIDs []string, since time.Time) (map[string]int, error) {
	return m.active, nil
}

func (m *mockEngagementEnrollmentRepo) DistinctActiveStudents(ctx context.Context, courseIDs []string, since time.Time) (int, error) {
	return m.distinct, nil
}

func (m *mockEngagementEnrollmentRepo) DistinctEnrolledCounts(ctx context.Context, courseIDs []string) (map[string]int, error) {
	return m.enrolled, nil
}

type mockViewRepo struct {
	views  []models.LessonViewEvent
	viewed map[string]int
}

func (m *mockViewRepo) LessonViewsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.LessonViewEvent, error) {
	return m.views, nil
}

func (m *mockViewRepo) ViewedLessonCounts(ctx context.Context, courseIDs []string) (map[string]int, error) {
	return m.viewed, nil
}

type mockSubmissionRepo struct {
	events []models.SubmissionEvent
	scores []models.AssignmentScore
}

func (m *mockSubmissionRepo) SubmissionEventsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.SubmissionEvent, error) {
	return m.events, nil
}

func (m *mockSubmissionRepo) AssignmentScoresSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.AssignmentScore, error) {
	return m.scores, nil
}

type failingCacheRepo struct{}

func (f *failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (f *failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (f *failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func publishedCourse(id, title string) models.Course {
	return models.Course{ID: id, InstructorID: "instructor-1", Title: title, Published: true}
}

func TestInstructorReportHeatmapBuckets(t *testing.T) {
	viewedAt := time.Date(2026, 8, 25, 14, 30, 0, 0, time.Local) // a Tuesday
	svc := NewEngagementService(
		&mockEngagementCourseRepo{courses: []models.Course{publishedCourse("c1", "Go Basics")}},
		&mockEngagementEnrollmentRepo{},
		&mockViewRepo{views: []models.LessonViewEvent{
			{StudentID: "s1", LessonID: "l1", CourseID: "c1", LastViewed: viewedAt},
			{StudentID: "s2", LessonID: "l1", CourseID: "c1", LastViewed: viewedAt},
		}},
		&mockSubmissionRepo{},
		NewCacheService(nil, nil, time.Hour, nil, false),
		time.Hour, 30, nil,
	)

	report, _, err := svc.InstructorReport(context.Background(), "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	require.Len(t, report.Heatmap, 7*24)
	idx := int(viewedAt.Weekday())*24 + viewedAt.Hour()
	assert.Equal(t, 2, report.Heatmap[idx].Value)
	for i, cell := range report.Heatmap {
		if i == idx {
			continue
		}
		assert.Zero(t, cell.Value)
	}
}

func TestInstructorReportDailyCompletion(t *testing.T) {
	today := time.Now()
	views := make([]models.LessonViewEvent, 0, 17)
	for i := 0; i < 5; i++ {
		views = append(views, models.LessonViewEvent{CourseID: "c1", LastViewed: today.AddDate(0, 0, -1)})
	}
	for i := 0; i < 12; i++ {
		views = append(views, models.LessonViewEvent{CourseID: "c1", LastViewed: today})
	}
	svc := NewEngagementService(
		&mockEngagementCourseRepo{courses: []models.Course{publishedCourse("c1", "Go Basics")}},
		&mockEngagementEnrollmentRepo{},
		&mockViewRepo{views: views},
		&mockSubmissionRepo{},
		NewCacheService(nil, nil, time.Hour, nil, false),
		time.Hour, 30, nil,
	)

	report, _, err := svc.InstructorReport(context.Background(), "instructor-1", models.RoleInstructor)
	require.NoError(t, err)
	require.Len(t, report.TimeSeries, 30)

	yesterday := report.TimeSeries[28]
	assert.Equal(t, 5, yesterday.LessonViews)
	assert.Equal(t, 50, yesterday.Completion)

	last := report.TimeSeries[29]
	assert.Equal(t, today.Format("2006-01-02"), last.Date)
	assert.Equal(t, 12, last.LessonViews)
	// Twelve views exceed the daily target, so completion caps at 100.
	assert.Equal(t, 100, last.Completion)
}

func TestInstructorReportEngagementRate(t *testing.T) {
	now := time.Now()
	views := make([]models.LessonViewEvent, 16)
	for i := range views {
		views[i] = models.LessonViewEvent{CourseID: "c1", LastViewed: now}
	}
	svc := NewEngagementService(
		&mockEngagementCourseRepo{
			courses:   []models.Course{publishedCourse("c1", "Go Basics"), publishedCourse("c2", "SQL")},
			structure: []models.CourseStructureCounts{{CourseID: "c1", LessonCount: 8}},
		},
		&mockEngagementEnrollmentRepo{
			active:   map[string]int{"c1": 3, "c2": 1},
			distinct: 4,
			enrolled: map[string]int{"c1": 5, "c2": 5},
		},
		&mockViewRepo{views: views, viewed: map[string]int{"c1": 6}},
		&mockSubmissionRepo{scores: []models.AssignmentScore{
			{CourseID: "c1", Grade: floatPtr(80)},
			{CourseID: "c1", Grade: floatPtr(91)},
			{CourseID: "c1", Grade: nil},
		}},
		NewCacheService(nil, nil, time.Hour, nil, false),
		time.Hour, 30, nil,
	)

	report, _, err := svc.InstructorReport(context.Background(), "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalCourses)
	assert.Equal(t, 4, report.ActiveStudents)
	// 16 views against 5 students x 8 lessons of possible engagement.
	assert.Equal(t, 40, report.EngagementRate)

	require.Len(t, report.Courses, 2)
	first := report.Courses[0]
	assert.Equal(t, "c1", first.CourseID)
	assert.Equal(t, 3, first.ActiveStudents)
	assert.Equal(t, 75, first.CompletionRate)
	assert.Equal(t, 85.5, first.AverageScore)
	assert.Zero(t, report.Courses[1].CompletionRate)
}

func TestInstructorReportEmptyCourseList(t *testing.T) {
	svc := NewEngagementService(
		&mockEngagementCourseRepo{},
		&mockEngagementEnrollmentRepo{},
		&mockViewRepo{},
		&mockSubmissionRepo{},
		NewCacheService(nil, nil, time.Hour, nil, false),
		time.Hour, 30, nil,
	)

	report, _, err := svc.InstructorReport(context.Background(), "instructor-1", models.RoleInstructor)
	require.NoError(t, err)

	assert.Zero(t, report.TotalCourses)
	assert.Zero(t, report.EngagementRate)
	assert.Len(t, report.TimeSeries, 30)
	assert.Len(t, report.Heatmap, 7*24)
	assert.Empty(t, report.Courses)
}

func TestInstructorReportCacheFailOpen(t *testing.T) {
	svc := NewEngagementService(
		&mockEngagementCourseRepo{courses: []models.Course{publishedCourse("c1", "Go Basics")}},
		&mockEngagementEnrollmentRepo{},
		&mockViewRepo{},
		&mockSubmissionRepo{},
		NewCacheService(&failingCacheRepo{}, nil, time.Hour, nil, true),
		time.Hour, 30, nil,
	)

	// Both the cache read and the cache write fail; the report is still built.
	report, _, err := svc.InstructorReport(context.Background(), "instructor-1", models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalCourses)
}

func floatPtr(v float64) *float64 { return &v }
