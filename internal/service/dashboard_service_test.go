package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/lms-api/internal/dto"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	lastFilter dto.AdminDashboardFilter

	overviewCalls   int
	trendCalls      int
	topCoursesCalls int
}

func (m *mockAnalyticsRepo) Overview(ctx context.Context, filter dto.AdminDashboardFilter) (*dto.AnalyticsOverview, error) {
	m.lastFilter = filter
	m.overviewCalls++
	return &dto.AnalyticsOverview{Courses: 12, Enrollments: 340, Students: 200, Revenue: 4999.5}, nil
}

func (m *mockAnalyticsRepo) CompletionRate(ctx context.Context, filter dto.AdminDashboardFilter) (int, error) {
	return 63, nil
}

func (m *mockAnalyticsRepo) TopCategories(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.CategoryCount, error) {
	return []dto.CategoryCount{{Category: "programming", Courses: 5, Enrollments: 150}}, nil
}

func (m *mockAnalyticsRepo) TopInstructors(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.InstructorCount, error) {
	return []dto.InstructorCount{{InstructorID: "i1", FullName: "Ada", Courses: 3, Enrollments: 90}}, nil
}

func (m *mockAnalyticsRepo) EnrollmentTrend(ctx context.Context, filter dto.AdminDashboardFilter) ([]dto.TrendPoint, error) {
	m.trendCalls++
	return []dto.TrendPoint{{Date: "2026-08-01", Count: 4}}, nil
}

func (m *mockAnalyticsRepo) TopCourses(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.CourseCount, error) {
	m.topCoursesCalls++
	return []dto.CourseCount{{CourseID: "c1", Title: "Go Basics", Enrollments: 77}}, nil
}

func newDashboardFixture(repo *mockAnalyticsRepo) *DashboardService {
	return NewDashboardService(repo, NewCacheService(nil, nil, time.Hour, nil, false), nil, time.Hour, nil)
}

func TestDashboardAggregates(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	svc := newDashboardFixture(repo)

	resp, _, err := svc.Dashboard(context.Background(), DashboardQuery{
		StartDate:   "2026-08-01",
		EndDate:     "2026-08-31",
		CategoryIDs: `["programming","design"]`,
	})
	require.NoError(t, err)

	assert.Equal(t, 12, resp.TotalCourses)
	assert.Equal(t, 340, resp.TotalEnrollments)
	assert.Equal(t, 63, resp.CompletionRate)
	require.Len(t, resp.TopCategories, 1)
	require.Len(t, resp.EnrollmentTrend, 1)

	require.NotNil(t, repo.lastFilter.StartDate)
	require.NotNil(t, repo.lastFilter.EndDate)
	// The end date is inclusive: the filter covers the whole final day.
	assert.Equal(t, 31, repo.lastFilter.EndDate.Day())
	assert.Equal(t, 23, repo.lastFilter.EndDate.Hour())
	assert.Equal(t, []string{"programming", "design"}, repo.lastFilter.CategoryIDs)
}

// concurrentAnalyticsRepo blocks every aggregate query until all five have
// started, so the test deadlocks if the service issues them one at a time.
type concurrentAnalyticsRepo struct {
	mockAnalyticsRepo
	gate sync.WaitGroup
}

func (m *concurrentAnalyticsRepo) arrive() {
	m.gate.Done()
	m.gate.Wait()
}

func (m *concurrentAnalyticsRepo) Overview(ctx context.Context, filter dto.AdminDashboardFilter) (*dto.AnalyticsOverview, error) {
	m.arrive()
	return m.mockAnalyticsRepo.Overview(ctx, filter)
}

func (m *concurrentAnalyticsRepo) CompletionRate(ctx context.Context, filter dto.AdminDashboardFilter) (int, error) {
	m.arrive()
	return m.mockAnalyticsRepo.CompletionRate(ctx, filter)
}

func (m *concurrentAnalyticsRepo) TopCategories(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.CategoryCount, error) {
	m.arrive()
	return m.mockAnalyticsRepo.TopCategories(ctx, filter, limit)
}

func (m *concurrentAnalyticsRepo) TopInstructors(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.InstructorCount, error) {
	m.arrive()
	return m.mockAnalyticsRepo.TopInstructors(ctx, filter, limit)
}

func (m *concurrentAnalyticsRepo) EnrollmentTrend(ctx context.Context, filter dto.AdminDashboardFilter) ([]dto.TrendPoint, error) {
	m.arrive()
	return m.mockAnalyticsRepo.EnrollmentTrend(ctx, filter)
}

func TestDashboardAggregatesRunConcurrently(t *testing.T) {
	repo := &concurrentAnalyticsRepo{}
	repo.gate.Add(5)
	svc := NewDashboardService(repo, NewCacheService(nil, nil, time.Hour, nil, false), nil, time.Hour, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, _, err := svc.Dashboard(context.Background(), DashboardQuery{})
		assert.NoError(t, err)
		assert.NotNil(t, resp)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("aggregate queries were not issued concurrently")
	}
}

func TestDashboardCommaListTolerated(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	svc := newDashboardFixture(repo)

	_, _, err := svc.Dashboard(context.Background(), DashboardQuery{InstructorIDs: "i1,i2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2"}, repo.lastFilter.InstructorIDs)
}

func TestDashboardRejectsMalformedFilters(t *testing.T) {
	svc := newDashboardFixture(&mockAnalyticsRepo{})

	_, _, err := svc.Dashboard(context.Background(), DashboardQuery{
		StartDate:   "August 1st",
		CategoryIDs: `[1,2]`,
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Len(t, appErr.Details, 2)
	assert.Equal(t, "start_date", appErr.Details[0].Field)
	assert.Equal(t, "category_ids", appErr.Details[1].Field)
}

func TestAnalyticsDefaultsToEverySection(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	svc := newDashboardFixture(repo)

	resp, err := svc.Analytics(context.Background(), dto.AdminAnalyticsRequest{})
	require.NoError(t, err)

	assert.Equal(t, "month", resp.Timeframe)
	assert.NotNil(t, resp.Overview)
	assert.NotEmpty(t, resp.EnrollmentTrend)
	assert.NotEmpty(t, resp.TopCourses)
	assert.NotNil(t, repo.lastFilter.StartDate)
}

func TestAnalyticsSectionToggles(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	svc := newDashboardFixture(repo)

	resp, err := svc.Analytics(context.Background(), dto.AdminAnalyticsRequest{
		Timeframe:    "all",
		IncludeTrend: true,
		Category:     "programming",
	})
	require.NoError(t, err)

	assert.Nil(t, resp.Overview)
	assert.NotEmpty(t, resp.EnrollmentTrend)
	assert.Empty(t, resp.TopCourses)
	assert.Zero(t, repo.overviewCalls)
	assert.Zero(t, repo.topCoursesCalls)
	assert.Equal(t, 1, repo.trendCalls)
}

func TestAnalyticsRejectsUnknownTimeframe(t *testing.T) {
	svc := newDashboardFixture(&mockAnalyticsRepo{})

	_, err := svc.Analytics(context.Background(), dto.AdminAnalyticsRequest{Timeframe: "decade"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
