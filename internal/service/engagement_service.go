package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/models"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
)

type engagementCourseRepository interface {
	ListPublishedByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
	StructureCounts(ctx context.Context, courseIDs []string) ([]models.CourseStructureCounts, error)
}

type engagementEnrollmentRepository interface {
	EventsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.EnrollmentEvent, error)
	ActiveStudentCounts(ctx context.Context, courseIDs []string, since time.Time) (map[string]int, error)
	DistinctActiveStudents(ctx context.Context, courseIDs []string, since time.Time) (int, error)
	DistinctEnrolledCounts(ctx context.Context, courseIDs []string) (map[string]int, error)
}

type engagementViewRepository interface {
	LessonViewsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.LessonViewEvent, error)
	ViewedLessonCounts(ctx context.Context, courseIDs []string) (map[string]int, error)
}

type engagementSubmissionRepository interface {
	SubmissionEventsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.SubmissionEvent, error)
	AssignmentScoresSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.AssignmentScore, error)
}

// activeWindowDays is the wider lookback used for active-student counts;
// the time series and heatmap use the configured report window.
const activeWindowDays = 90

// dailyViewTarget normalises daily lesson views into a completion figure:
// ten views count as a fully engaged day.
const dailyViewTarget = 10

// EngagementService builds the instructor engagement overview.
type EngagementService struct {
	courses     engagementCourseRepository
	enrollments engagementEnrollmentRepository
	views       engagementViewRepository
	submissions engagementSubmissionRepository
	cache       *CacheService
	cacheTTL    time.Duration
	windowDays  int
	logger      *zap.Logger
}

// NewEngagementService constructs an EngagementService.
func NewEngagementService(
	courses engagementCourseRepository,
	enrollments engagementEnrollmentRepository,
	views engagementViewRepository,
	submissions engagementSubmissionRepository,
	cache *CacheService,
	cacheTTL time.Duration,
	windowDays int,
	logger *zap.Logger,
) *EngagementService {
	if windowDays <= 0 {
		windowDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngagementService{
		courses:     courses,
		enrollments: enrollments,
		views:       views,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    cacheTTL,
		windowDays:  windowDays,
		logger:      logger,
	}
}

// InstructorReport assembles the engagement report across the instructor's
// published courses. The report is cached per role, instructor and calendar
// day; cache failures on either side fall back to a fresh build. The second
// return value reports whether the response came from cache.
func (s *EngagementService) InstructorReport(ctx context.Context, instructorID string, role models.UserRole) (*dto.EngagementReport, bool, error) {
	cacheKey := fmt.Sprintf("engagement:%s:%s:%s", role, instructorID, time.Now().Format("2006-01-02"))
	var cached dto.EngagementReport
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	report, err := s.buildReport(ctx, instructorID)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
		s.logger.Warn("engagement cache write failed", zap.String("instructor_id", instructorID), zap.Error(err))
	}
	return report, false, nil
}

func (s *EngagementService) buildReport(ctx context.Context, instructorID string) (*dto.EngagementReport, error) {
	courses, err := s.courses.ListPublishedByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	report := &dto.EngagementReport{
		TotalCourses: len(courses),
		TimeSeries:   []dto.TimeSeriesPoint{},
		Heatmap:      emptyHeatmap(),
		Courses:      []dto.CourseEngagementStats{},
		GeneratedAt:  time.Now().UTC(),
	}
	if len(courses) == 0 {
		report.TimeSeries = s.emptyTimeSeries()
		return report, nil
	}

	courseIDs := make([]string, 0, len(courses))
	for _, course := range courses {
		courseIDs = append(courseIDs, course.ID)
	}

	now := time.Now()
	windowStart := now.AddDate(0, 0, -s.windowDays)
	activeStart := now.AddDate(0, 0, -activeWindowDays)

	enrollEvents, err := s.enrollments.EventsSince(ctx, courseIDs, windowStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment events")
	}
	viewEvents, err := s.views.LessonViewsSince(ctx, courseIDs, windowStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson views")
	}
	submissionEvents, err := s.submissions.SubmissionEventsSince(ctx, courseIDs, windowStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}
	activeCounts, err := s.enrollments.ActiveStudentCounts(ctx, courseIDs, activeStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active students")
	}
	activeStudents, err := s.enrollments.DistinctActiveStudents(ctx, courseIDs, activeStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active students")
	}
	enrolledCounts, err := s.enrollments.DistinctEnrolledCounts(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled students")
	}
	viewedCounts, err := s.views.ViewedLessonCounts(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load viewed lessons")
	}
	structure, err := s.courses.StructureCounts(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course structure")
	}
	scores, err := s.submissions.AssignmentScoresSince(ctx, courseIDs, windowStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment scores")
	}

	report.TimeSeries = s.buildTimeSeries(enrollEvents, viewEvents, submissionEvents)
	report.Heatmap = buildHeatmap(viewEvents)
	report.Courses = buildCourseStats(courses, activeCounts, viewedCounts, structure, scores)
	report.ActiveStudents = activeStudents

	// Total possible engagement: every enrolled student viewing every lesson
	// of their course once. The windowed view volume is normalised against it.
	lessonTotals := make(map[string]int, len(structure))
	for _, counts := range structure {
		lessonTotals[counts.CourseID] = counts.LessonCount
	}
	var possible int
	for courseID, enrolled := range enrolledCounts {
		possible += enrolled * lessonTotals[courseID]
	}
	if possible > 0 {
		rate := int(math.Floor(100*float64(len(viewEvents))/float64(possible) + 0.5))
		if rate > 100 {
			rate = 100
		}
		report.EngagementRate = rate
	}
	return report, nil
}

func (s *EngagementService) emptyTimeSeries() []dto.TimeSeriesPoint {
	points := make([]dto.TimeSeriesPoint, 0, s.windowDays)
	day := time.Now().AddDate(0, 0, -(s.windowDays - 1))
	for i := 0; i < s.windowDays; i++ {
		points = append(points, dto.TimeSeriesPoint{Date: day.Format("2006-01-02")})
		day = day.AddDate(0, 0, 1)
	}
	return points
}

// buildTimeSeries emits one point per calendar day ending today. Daily
// completion treats ten lesson views as a fully engaged day, capped at 100.
func (s *EngagementService) buildTimeSeries(
	enrollments []models.EnrollmentEvent,
	views []models.LessonViewEvent,
	submissions []models.SubmissionEvent,
) []dto.TimeSeriesPoint {
	points := s.emptyTimeSeries()
	index := make(map[string]int, len(points))
	for i, point := range points {
		index[point.Date] = i
	}

	for _, event := range enrollments {
		if i, ok := index[event.EnrolledAt.Format("2006-01-02")]; ok {
			points[i].Enrollments++
		}
	}
	for _, event := range views {
		if i, ok := index[event.LastViewed.Format("2006-01-02")]; ok {
			points[i].LessonViews++
		}
	}
	for _, event := range submissions {
		if i, ok := index[event.SubmittedAt.Format("2006-01-02")]; ok {
			points[i].Submissions++
		}
	}
	for i := range points {
		completion := int(math.Floor(float64(points[i].LessonViews)/dailyViewTarget*100 + 0.5))
		if completion > 100 {
			completion = 100
		}
		points[i].Completion = completion
	}
	return points
}

func emptyHeatmap() []dto.HeatmapCell {
	cells := make([]dto.HeatmapCell, 0, 7*24)
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			cells = append(cells, dto.HeatmapCell{Day: day, Hour: hour})
		}
	}
	return cells
}

// buildHeatmap buckets lesson views into a 7x24 grid. Buckets use the
// server's local weekday and hour, matching how the stored timestamps
// were recorded.
func buildHeatmap(views []models.LessonViewEvent) []dto.HeatmapCell {
	cells := emptyHeatmap()
	for _, event := range views {
		day := int(event.LastViewed.Weekday())
		hour := event.LastViewed.Hour()
		cells[day*24+hour].Value++
	}
	return cells
}

func buildCourseStats(
	courses []models.Course,
	activeCounts map[string]int,
	viewedCounts map[string]int,
	structure []models.CourseStructureCounts,
	scores []models.AssignmentScore,
) []dto.CourseEngagementStats {
	lessonTotals := make(map[string]int, len(structure))
	for _, counts := range structure {
		lessonTotals[counts.CourseID] = counts.LessonCount
	}

	scoreSums := make(map[string]float64)
	scoreCounts := make(map[string]int)
	for _, score := range scores {
		if score.Grade == nil {
			continue
		}
		scoreSums[score.CourseID] += *score.Grade
		scoreCounts[score.CourseID]++
	}

	stats := make([]dto.CourseEngagementStats, 0, len(courses))
	for _, course := range courses {
		stat := dto.CourseEngagementStats{
			CourseID:       course.ID,
			Title:          course.Title,
			ActiveStudents: activeCounts[course.ID],
		}
		if total := lessonTotals[course.ID]; total > 0 {
			stat.CompletionRate = int(math.Floor(100*float64(viewedCounts[course.ID])/float64(total) + 0.5))
		}
		if count := scoreCounts[course.ID]; count > 0 {
			stat.AverageScore = math.Floor(scoreSums[course.ID]/float64(count)*100+0.5) / 100
		}
		stats = append(stats, stat)
	}
	return stats
}
