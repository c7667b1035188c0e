package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/openlearn/lms-api/internal/dto"
)

// AnalyticsRepository exposes read-optimised queries for the admin dashboard
// and timeframe analytics endpoints.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Overview returns headline counts scoped by the dashboard filter.
func (r *AnalyticsRepository) Overview(ctx context.Context, filter dto.AdminDashboardFilter) (*dto.AnalyticsOverview, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT
        COUNT(DISTINCT c.id) AS courses,
        COUNT(e.id) AS enrollments,
        COUNT(DISTINCT e.student_id) AS students,
        COALESCE(SUM(c.price), 0) AS revenue
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        WHERE c.published = TRUE`)
	args := appendDashboardFilter(&builder, filter)

	var overview dto.AnalyticsOverview
	if err := r.db.GetContext(ctx, &overview, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query analytics overview: %w", err)
	}
	return &overview, nil
}

// CompletionRate returns the percentage of filtered enrollments completed.
func (r *AnalyticsRepository) CompletionRate(ctx context.Context, filter dto.AdminDashboardFilter) (int, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT CASE WHEN COUNT(*) = 0 THEN 0
        ELSE ROUND(100.0 * SUM(CASE WHEN e.status = 'COMPLETED' THEN 1 ELSE 0 END) / COUNT(*)) END AS rate
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE c.published = TRUE`)
	args := appendDashboardFilter(&builder, filter)

	var rate int
	if err := r.db.GetContext(ctx, &rate, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("query completion rate: %w", err)
	}
	return rate, nil
}

// TopCategories ranks categories by enrollment volume.
func (r *AnalyticsRepository) TopCategories(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.CategoryCount, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT c.category, COUNT(DISTINCT c.id) AS courses, COUNT(e.id) AS enrollments
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        WHERE c.published = TRUE`)
	args := appendDashboardFilter(&builder, filter)
	args = append(args, limit)
	builder.WriteString(fmt.Sprintf(" GROUP BY c.category ORDER BY enrollments DESC LIMIT $%d", len(args)))

	var rows []dto.CategoryCount
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query top categories: %w", err)
	}
	return rows, nil
}

// TopInstructors ranks instructors by enrollment volume.
func (r *AnalyticsRepository) TopInstructors(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.InstructorCount, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT c.instructor_id, u.full_name, COUNT(DISTINCT c.id) AS courses, COUNT(e.id) AS enrollments
        FROM courses c
        JOIN users u ON u.id = c.instructor_id
        LEFT JOIN enrollments e ON e.course_id = c.id
        WHERE c.published = TRUE`)
	args := appendDashboardFilter(&builder, filter)
	args = append(args, limit)
	builder.WriteString(fmt.Sprintf(" GROUP BY c.instructor_id, u.full_name ORDER BY enrollments DESC LIMIT $%d", len(args)))

	var rows []dto.InstructorCount
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query top instructors: %w", err)
	}
	return rows, nil
}

// EnrollmentTrend buckets enrollment creations by calendar day.
func (r *AnalyticsRepository) EnrollmentTrend(ctx context.Context, filter dto.AdminDashboardFilter) ([]dto.TrendPoint, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT TO_CHAR(e.enrolled_at, 'YYYY-MM-DD') AS date, COUNT(*) AS count
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE c.published = TRUE`)
	args := appendDashboardFilter(&builder, filter)
	builder.WriteString(" GROUP BY 1 ORDER BY 1")

	var rows []dto.TrendPoint
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query enrollment trend: %w", err)
	}
	return rows, nil
}

// TopCourses ranks courses by enrollment volume within the timeframe filter.
func (r *AnalyticsRepository) TopCourses(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.CourseCount, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT c.id AS course_id, c.title, COUNT(e.id) AS enrollments
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        WHERE c.published = TRUE`)
	args := appendDashboardFilter(&builder, filter)
	args = append(args, limit)
	builder.WriteString(fmt.Sprintf(" GROUP BY c.id, c.title ORDER BY enrollments DESC LIMIT $%d", len(args)))

	var rows []dto.CourseCount
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query top courses: %w", err)
	}
	return rows, nil
}

func appendDashboardFilter(builder *strings.Builder, filter dto.AdminDashboardFilter) []interface{} {
	var args []interface{}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		builder.WriteString(fmt.Sprintf(" AND e.enrolled_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		builder.WriteString(fmt.Sprintf(" AND e.enrolled_at <= $%d", len(args)))
	}
	if len(filter.CategoryIDs) > 0 {
		args = append(args, pq.Array(filter.CategoryIDs))
		builder.WriteString(fmt.Sprintf(" AND c.category = ANY($%d)", len(args)))
	}
	if len(filter.InstructorIDs) > 0 {
		args = append(args, pq.Array(filter.InstructorIDs))
		builder.WriteString(fmt.Sprintf(" AND c.instructor_id = ANY($%d)", len(args)))
	}
	return args
}
