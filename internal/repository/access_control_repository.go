package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/lms-api/internal/models"
)

// AccessControlRepository persists per-module/lesson visibility rules.
type AccessControlRepository struct {
	db *sqlx.DB
}

// NewAccessControlRepository instantiates the repository.
func NewAccessControlRepository(db *sqlx.DB) *AccessControlRepository {
	return &AccessControlRepository{db: db}
}

// ListByCourse returns every visibility rule for a course.
func (r *AccessControlRepository) ListByCourse(ctx context.Context, courseID string) ([]models.AccessRule, error) {
	var rules []models.AccessRule
	query := `SELECT id, course_id, scope, target_id, visible, updated_by, updated_at
        FROM access_rules WHERE course_id = $1 ORDER BY scope, target_id`
	if err := r.db.SelectContext(ctx, &rules, query, courseID); err != nil {
		return nil, fmt.Errorf("list access rules: %w", err)
	}
	return rules, nil
}

// UpsertRules writes rules with last-write-wins semantics inside one
// transaction so a partial update never becomes visible.
func (r *AccessControlRepository) UpsertRules(ctx context.Context, rules []models.AccessRule) error {
	if len(rules) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin access rules tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO access_rules (id, course_id, scope, target_id, visible, updated_by, updated_at)
        VALUES (:id, :course_id, :scope, :target_id, :visible, :updated_by, :updated_at)
        ON CONFLICT (course_id, scope, target_id) DO UPDATE SET
            visible = EXCLUDED.visible,
            updated_by = EXCLUDED.updated_by,
            updated_at = EXCLUDED.updated_at`
	for _, rule := range rules {
		if _, err := tx.NamedExecContext(ctx, query, rule); err != nil {
			return fmt.Errorf("upsert access rule %s/%s: %w", rule.Scope, rule.TargetID, err)
		}
	}
	return tx.Commit()
}
