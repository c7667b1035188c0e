package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/models"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
)

type gradebookCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type gradebookEnrollmentRepository interface {
	ListStudentsByCourse(ctx context.Context, courseID string) ([]models.EnrolledStudent, error)
}

type gradebookAssessmentRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.AssessmentRecord, error)
}

// Fixed display weights for the category summary. The overall grade is an
// unweighted points summation; these weights are presentational only.
const (
	weightProjects    = 50
	weightQuizzes     = 30
	weightAssignments = 20
)

const attentionThreshold = 70

// GradebookService assembles the per-course grade report for instructors.
type GradebookService struct {
	courses     gradebookCourseRepository
	enrollments gradebookEnrollmentRepository
	assessments gradebookAssessmentRepository
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewGradebookService constructs a GradebookService.
func NewGradebookService(
	courses gradebookCourseRepository,
	enrollments gradebookEnrollmentRepository,
	assessments gradebookAssessmentRepository,
	cache *CacheService,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *GradebookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradebookService{
		courses:     courses,
		enrollments: enrollments,
		assessments: assessments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// CourseGradebook builds the full grade report for a course. Non-admin
// callers must own the course; a course owned by someone else reads as
// not found so ownership cannot be probed. The second return value
// reports whether the response came from cache.
func (s *GradebookService) CourseGradebook(ctx context.Context, courseID string, requesterID string, role models.UserRole) (*dto.GradebookResponse, bool, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if role != models.RoleAdmin && course.InstructorID != requesterID {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	cacheKey := fmt.Sprintf("gradebook:%s", courseID)
	var cached dto.GradebookResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	report, err := s.buildGradebook(ctx, course)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
		s.logger.Warn("gradebook cache write failed", zap.String("course_id", courseID), zap.Error(err))
	}
	return report, false, nil
}

func (s *GradebookService) buildGradebook(ctx context.Context, course *models.Course) (*dto.GradebookResponse, error) {
	students, err := s.enrollments.ListStudentsByCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled students")
	}
	records, err := s.assessments.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}

	byStudent := make(map[string][]models.AssessmentRecord, len(students))
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	reports := make([]dto.StudentGradeReport, 0, len(students))
	for _, student := range students {
		reports = append(reports, s.buildStudentReport(student, byStudent[student.StudentID]))
	}

	summary := s.buildClassSummary(students, reports, records)

	return &dto.GradebookResponse{
		CourseID:    course.ID,
		CourseTitle: course.Title,
		Students:    reports,
		Summary:     summary,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (s *GradebookService) buildStudentReport(student models.EnrolledStudent, records []models.AssessmentRecord) dto.StudentGradeReport {
	report := dto.StudentGradeReport{
		StudentID:   student.StudentID,
		FullName:    student.FullName,
		Email:       student.Email,
		Projects:    []dto.AssessmentItemReport{},
		Quizzes:     []dto.AssessmentItemReport{},
		Assignments: []dto.AssessmentItemReport{},
		Trend:       "stable",
	}

	var earned, possible float64
	for _, rec := range records {
		// An attempt still in progress is not a submission; it never
		// appears as a quiz item.
		if rec.Kind == models.AssessmentQuiz && rec.Status != models.QuizStatusCompleted {
			continue
		}
		item := dto.AssessmentItemReport{
			ID:          rec.ID,
			Kind:        rec.Kind,
			Title:       rec.ParentTitle,
			Score:       rec.Score,
			MaxScore:    rec.MaxScore,
			Percentage:  scorePercentage(rec.Score, rec.MaxScore),
			Status:      rec.Status,
			SubmittedAt: rec.SubmittedAt,
		}
		item.LetterGrade = letterGrade(item.Percentage)

		switch rec.Kind {
		case models.AssessmentProject:
			report.Projects = append(report.Projects, item)
		case models.AssessmentQuiz:
			report.Quizzes = append(report.Quizzes, item)
		case models.AssessmentAssignment:
			report.Assignments = append(report.Assignments, item)
		}

		if rec.Graded() {
			switch rec.Kind {
			case models.AssessmentProject:
				report.GradedProjects++
			case models.AssessmentQuiz:
				report.CompletedQuizzes++
			case models.AssessmentAssignment:
				report.GradedAssignments++
			}
			// Zero-point items carry no weight; excluding them from both
			// sums keeps the overall percentage well defined.
			if rec.MaxScore > 0 {
				earned += rec.Score
				possible += rec.MaxScore
			}
		} else {
			report.PendingSubmissions++
		}
	}

	report.TotalPoints = earned
	report.MaxPoints = possible
	report.Percentage = scorePercentage(earned, possible)
	report.LetterGrade = letterGrade(report.Percentage)
	report.GPA = gradePoints(report.Percentage)
	return report
}

func (s *GradebookService) buildClassSummary(students []models.EnrolledStudent, reports []dto.StudentGradeReport, records []models.AssessmentRecord) dto.ClassSummary {
	summary := dto.ClassSummary{
		StudentCount: len(students),
		GradeDistribution: map[string]int{
			"A": 0, "B": 0, "C": 0, "D": 0, "F": 0,
		},
		TopPerformers:      []dto.StudentRanking{},
		StrugglingStudents: []dto.StrugglingStudent{},
	}

	var percentageSum int
	for _, report := range reports {
		summary.GradeDistribution[report.LetterGrade]++
		percentageSum += report.Percentage
	}
	if len(reports) > 0 {
		summary.AverageGrade = int(math.Floor(float64(percentageSum)/float64(len(reports)) + 0.5))
	}

	summary.Categories = buildCategorySummaries(reports)
	summary.TopPerformers = topPerformers(reports)
	summary.StrugglingStudents = strugglingStudents(reports)
	summary.RecentActivity = s.recentActivity(students, records)
	return summary
}

// buildCategorySummaries averages each student's per-category average, then
// averages those across students. Students without items in a category do
// not dilute that category's figure.
func buildCategorySummaries(reports []dto.StudentGradeReport) []dto.CategorySummary {
	categories := []struct {
		name   string
		weight int
		items  func(dto.StudentGradeReport) []dto.AssessmentItemReport
	}{
		{"Projects", weightProjects, func(r dto.StudentGradeReport) []dto.AssessmentItemReport { return r.Projects }},
		{"Quizzes", weightQuizzes, func(r dto.StudentGradeReport) []dto.AssessmentItemReport { return r.Quizzes }},
		{"Assignments", weightAssignments, func(r dto.StudentGradeReport) []dto.AssessmentItemReport { return r.Assignments }},
	}

	summaries := make([]dto.CategorySummary, 0, len(categories))
	for _, cat := range categories {
		var sum float64
		var contributing int
		for _, report := range reports {
			items := cat.items(report)
			var itemSum, graded float64
			for _, item := range items {
				if !gradedItem(item) {
					continue
				}
				itemSum += float64(item.Percentage)
				graded++
			}
			if graded > 0 {
				sum += itemSum / graded
				contributing++
			}
		}
		var average int
		if contributing > 0 {
			average = int(math.Floor(sum/float64(contributing) + 0.5))
		}
		summaries = append(summaries, dto.CategorySummary{
			Category:     cat.name,
			Weight:       cat.weight,
			AverageScore: average,
		})
	}
	return summaries
}

func gradedItem(item dto.AssessmentItemReport) bool {
	switch item.Kind {
	case models.AssessmentProject:
		return item.Status == models.ProjectStatusApproved
	case models.AssessmentQuiz:
		return item.Status == models.QuizStatusCompleted
	case models.AssessmentAssignment:
		return item.Status == models.AssignmentStatusGraded
	default:
		return false
	}
}

func topPerformers(reports []dto.StudentGradeReport) []dto.StudentRanking {
	sorted := make([]dto.StudentGradeReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Percentage > sorted[j].Percentage
	})
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}
	rankings := make([]dto.StudentRanking, 0, len(sorted))
	for _, report := range sorted {
		rankings = append(rankings, dto.StudentRanking{
			StudentID:   report.StudentID,
			FullName:    report.FullName,
			Percentage:  report.Percentage,
			LetterGrade: report.LetterGrade,
		})
	}
	return rankings
}

func strugglingStudents(reports []dto.StudentGradeReport) []dto.StrugglingStudent {
	var below []dto.StudentGradeReport
	for _, report := range reports {
		if report.Percentage < attentionThreshold {
			below = append(below, report)
		}
	}
	sort.SliceStable(below, func(i, j int) bool {
		return below[i].Percentage < below[j].Percentage
	})
	if len(below) > 5 {
		below = below[:5]
	}
	struggling := make([]dto.StrugglingStudent, 0, len(below))
	for _, report := range below {
		struggling = append(struggling, dto.StrugglingStudent{
			StudentID:   report.StudentID,
			FullName:    report.FullName,
			Percentage:  report.Percentage,
			IssuesCount: report.PendingSubmissions,
		})
	}
	return struggling
}

// recentActivity surfaces the five newest approved project marks and the five
// newest completed quiz attempts, merged newest first, capped at ten.
func (s *GradebookService) recentActivity(students []models.EnrolledStudent, records []models.AssessmentRecord) []dto.RecentActivityItem {
	names := make(map[string]string, len(students))
	for _, student := range students {
		names[student.StudentID] = student.FullName
	}

	var projects, quizzes []models.AssessmentRecord
	for _, rec := range records {
		if !rec.Graded() {
			continue
		}
		switch rec.Kind {
		case models.AssessmentProject:
			projects = append(projects, rec)
		case models.AssessmentQuiz:
			quizzes = append(quizzes, rec)
		}
	}

	newestFirst := func(recs []models.AssessmentRecord) []models.AssessmentRecord {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].SubmittedAt.After(recs[j].SubmittedAt)
		})
		if len(recs) > 5 {
			recs = recs[:5]
		}
		return recs
	}

	merged := append(newestFirst(projects), newestFirst(quizzes)...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SubmittedAt.After(merged[j].SubmittedAt)
	})
	if len(merged) > 10 {
		merged = merged[:10]
	}

	activity := make([]dto.RecentActivityItem, 0, len(merged))
	for _, rec := range merged {
		activity = append(activity, dto.RecentActivityItem{
			StudentID:   rec.StudentID,
			StudentName: names[rec.StudentID],
			Kind:        rec.Kind,
			Title:       rec.ParentTitle,
			Score:       rec.Score,
			MaxScore:    rec.MaxScore,
			Timestamp:   rec.SubmittedAt,
		})
	}
	return activity
}

// scorePercentage rounds half up. A non-positive max score yields zero
// rather than a division error.
func scorePercentage(score, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Floor(100*score/maxScore + 0.5))
}

func letterGrade(percentage int) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

func gradePoints(percentage int) float64 {
	switch {
	case percentage >= 90:
		return 4.0
	case percentage >= 80:
		return 3.0
	case percentage >= 70:
		return 2.0
	case percentage >= 60:
		return 1.0
	default:
		return 0.0
	}
}
