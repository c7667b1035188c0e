package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/lms-api/internal/models"
)

// AssessmentRepository reads project marks, quiz attempts and assignment
// submissions as one normalized record stream.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository instantiates the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// ListByCourse unions the three assessment variants for every student in a
// course. Each variant resolves its own max-score source column
// (points_value, max_score, points) into max_score.
func (r *AssessmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.AssessmentRecord, error) {
	query := `SELECT pm.id, 'project' AS kind, pm.student_id, m.course_id, p.id AS parent_id, p.title AS parent_title,
            pm.score, p.points_value AS max_score, pm.status, pm.submitted_at
        FROM project_marks pm
        JOIN projects p ON p.id = pm.project_id
        JOIN course_modules m ON m.id = p.module_id
        WHERE m.course_id = $1
    UNION ALL
        SELECT qa.id, 'quiz' AS kind, qa.student_id, m.course_id, q.id AS parent_id, q.title AS parent_title,
            qa.score, q.max_score, qa.status, qa.attempted_at AS submitted_at
        FROM quiz_attempts qa
        JOIN quizzes q ON q.id = qa.quiz_id
        JOIN course_modules m ON m.id = q.module_id
        WHERE m.course_id = $1
    UNION ALL
        SELECT s.id, 'assignment' AS kind, s.student_id, m.course_id, a.id AS parent_id, a.title AS parent_title,
            COALESCE(s.grade, 0) AS score, a.points AS max_score, s.status, s.submitted_at
        FROM assignment_submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN course_modules m ON m.id = a.module_id
        WHERE m.course_id = $1
    ORDER BY submitted_at`

	var records []models.AssessmentRecord
	if err := r.db.SelectContext(ctx, &records, query, courseID); err != nil {
		return nil, fmt.Errorf("query course assessments: %w", err)
	}
	return records, nil
}

// SubmissionEventsSince returns assignment submission timestamps within the
// engagement window for the given courses.
func (r *AssessmentRepository) SubmissionEventsSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.SubmissionEvent, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT s.student_id, m.course_id, s.submitted_at
        FROM assignment_submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN course_modules m ON m.id = a.module_id
        WHERE m.course_id IN (?) AND s.submitted_at >= ?`, courseIDs, since)
	if err != nil {
		return nil, fmt.Errorf("build submission events query: %w", err)
	}
	query = r.db.Rebind(query)

	var events []models.SubmissionEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("query submission events: %w", err)
	}
	return events, nil
}

// AssignmentScoresSince returns assignment grades (nullable while ungraded)
// submitted within the window.
func (r *AssessmentRepository) AssignmentScoresSince(ctx context.Context, courseIDs []string, since time.Time) ([]models.AssignmentScore, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT m.course_id, s.grade, s.submitted_at
        FROM assignment_submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN course_modules m ON m.id = a.module_id
        WHERE m.course_id IN (?) AND s.submitted_at >= ?`, courseIDs, since)
	if err != nil {
		return nil, fmt.Errorf("build assignment scores query: %w", err)
	}
	query = r.db.Rebind(query)

	var scores []models.AssignmentScore
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, fmt.Errorf("query assignment scores: %w", err)
	}
	return scores, nil
}
