package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/lms-api/internal/models"
)

// EngagementRepository reads lesson-view events for the engagement report.
type EngagementRepository struct {
	db *sqlx.DB
}

// NewEngagementRepository instantiates the repository.
func NewEngagementRepository(db *sqlx.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// LessonViewsSince returns view events within the window for the courses.
func (r *EngagementRepository) LessonViewsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.LessonViewEvent, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT v.student_id, v.lesson_id, m.course_id, v.last_viewed
        FROM lesson_views v
        JOIN lessons l ON l.id = v.lesson_id
        JOIN course_modules m ON m.id = l.module_id
        WHERE m.course_id IN (?) AND v.last_viewed >= ?`, courseIDs, since)
	if err != nil {
		return nil, fmt.Errorf("build lesson views query: %w", err)
	}
	query = r.db.Rebind(query)

	var events []models.LessonViewEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("query lesson views: %w", err)
	}
	return events, nil
}

// ViewedLessonCounts counts lessons with at least one view per course,
// the numerator of the per-course completion rate.
func (r *EngagementRepository) ViewedLessonCounts(ctx context.Context, courseIDs []string) (map[string]int, error) {
	if len(courseIDs) == 0 {
		return map[string]int{}, nil
	}
	query, args, err := sqlx.In(`SELECT m.course_id, COUNT(DISTINCT v.lesson_id) AS viewed_lessons
        FROM lesson_views v
        JOIN lessons l ON l.id = v.lesson_id
        JOIN course_modules m ON m.id = l.module_id
        WHERE m.course_id IN (?)
        GROUP BY m.course_id`, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build viewed lessons query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.LessonViewCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query viewed lessons: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.CourseID] = row.ViewedLessons
	}
	return counts, nil
}
