package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/lms-api/internal/models"
)

// CourseRepository reads the course structure tree.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository instantiates the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, instructor_id, title, description, category, level, language, price, rating,
    enrollment_count, duration_hours, featured, has_certificate, published, created_at, updated_at`

// FindByID returns a course by primary key.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	query := "SELECT " + courseColumns + " FROM courses WHERE id = $1"
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListPublishedByInstructor returns all published courses owned by an instructor.
func (r *CourseRepository) ListPublishedByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	var courses []models.Course
	query := "SELECT " + courseColumns + " FROM courses WHERE instructor_id = $1 AND published = TRUE ORDER BY created_at"
	if err := r.db.SelectContext(ctx, &courses, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	return courses, nil
}

// StructureCounts returns the per-course lesson and assignment denominators
// used by completion-rate calculations.
func (r *CourseRepository) StructureCounts(ctx context.Context, courseIDs []string) ([]models.CourseStructureCounts, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT m.course_id,
            COUNT(DISTINCT l.id) AS lesson_count,
            COUNT(DISTINCT a.id) AS assignment_count
        FROM course_modules m
        LEFT JOIN lessons l ON l.module_id = m.id
        LEFT JOIN assignments a ON a.module_id = m.id
        WHERE m.course_id IN (?)
        GROUP BY m.course_id`, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build structure counts query: %w", err)
	}
	query = r.db.Rebind(query)

	var counts []models.CourseStructureCounts
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("query structure counts: %w", err)
	}
	return counts, nil
}
