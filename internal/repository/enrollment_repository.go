package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/lms-api/internal/models"
)

// EnrollmentRepository reads enrollment rows for reporting.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListStudentsByCourse joins enrollments with student profile fields.
func (r *EnrollmentRepository) ListStudentsByCourse(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	var students []models.EnrolledStudent
	query := `SELECT e.student_id, u.full_name, u.email, e.enrolled_at
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.course_id = $1 AND e.status <> 'DROPPED'
        ORDER BY u.full_name`
	if err := r.db.SelectContext(ctx, &students, query, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return students, nil
}

// EventsSince returns enrollment creations within the window for the courses.
func (r *EnrollmentRepository) EventsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.EnrollmentEvent, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT student_id, course_id, enrolled_at
        FROM enrollments WHERE course_id IN (?) AND enrolled_at >= ?`, courseIDs, since)
	if err != nil {
		return nil, fmt.Errorf("build enrollment events query: %w", err)
	}
	query = r.db.Rebind(query)

	var events []models.EnrollmentEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("query enrollment events: %w", err)
	}
	return events, nil
}

// ActiveStudentCounts counts distinct students enrolled per course since the
// given cutoff (the secondary 90-day window used for per-course stats).
func (r *EnrollmentRepository) ActiveStudentCounts(ctx context.Context, courseIDs []string, since time.Time) (map[string]int, error) {
	if len(courseIDs) == 0 {
		return map[string]int{}, nil
	}
	query, args, err := sqlx.In(`SELECT course_id, COUNT(DISTINCT student_id) AS students
        FROM enrollments WHERE course_id IN (?) AND enrolled_at >= ?
        GROUP BY course_id`, courseIDs, since)
	if err != nil {
		return nil, fmt.Errorf("build active students query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.CourseStudentCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query active students: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.CourseID] = row.Students
	}
	return counts, nil
}

// DistinctActiveStudents counts students enrolled in any of the courses since
// the cutoff, deduplicated across courses.
func (r *EnrollmentRepository) DistinctActiveStudents(ctx context.Context, courseIDs []string, since time.Time) (int, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(DISTINCT student_id)
        FROM enrollments WHERE course_id IN (?) AND enrolled_at >= ?`, courseIDs, since)
	if err != nil {
		return 0, fmt.Errorf("build distinct students query: %w", err)
	}
	query = r.db.Rebind(query)

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("query distinct students: %w", err)
	}
	return count, nil
}

// DistinctEnrolledCounts counts all-time distinct enrolled students per course,
// the denominator component for the overall engagement rate.
func (r *EnrollmentRepository) DistinctEnrolledCounts(ctx context.Context, courseIDs []string) (map[string]int, error) {
	if len(courseIDs) == 0 {
		return map[string]int{}, nil
	}
	query, args, err := sqlx.In(`SELECT course_id, COUNT(DISTINCT student_id) AS students
        FROM enrollments WHERE course_id IN (?)
        GROUP BY course_id`, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build enrolled counts query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.CourseStudentCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query enrolled counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.CourseID] = row.Students
	}
	return counts, nil
}
