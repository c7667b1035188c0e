package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/lms-api/internal/models"
)

// UserRepository persists users, refresh tokens and privacy settings.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, email, password_hash, full_name, role, active, last_login, created_at, updated_at"

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := "SELECT " + userColumns + " FROM users WHERE email = $1"
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin stamps the most recent successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = $1, updated_at = $1 WHERE id = $2", ts, id)
	return err
}

// CreateRefreshToken persists a freshly issued refresh token.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, ip_address, user_agent)
        VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :ip_address, :user_agent)`
	_, err := r.db.NamedExecContext(ctx, query, token)
	return err
}

// FindRefreshToken resolves a refresh token by its opaque value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	query := `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
        FROM refresh_tokens WHERE token = $1`
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		return nil, err
	}
	return &rt, nil
}

// RevokeRefreshToken marks a single token revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1 WHERE id = $2", revokedAt, id)
	return err
}

// RevokeUserRefreshTokens revokes every live token belonging to a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_id = $1 AND revoked = FALSE", userID)
	return err
}

// PrivacySettings returns stored settings, or defaults when none exist.
func (r *UserRepository) PrivacySettings(ctx context.Context, userID string) (*models.PrivacySettings, error) {
	var settings models.PrivacySettings
	query := `SELECT user_id, profile_visibility, share_progress, searchable, updated_at
        FROM privacy_settings WHERE user_id = $1`
	err := r.db.GetContext(ctx, &settings, query, userID)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertPrivacySettings stores settings with last-write-wins semantics.
func (r *UserRepository) UpsertPrivacySettings(ctx context.Context, settings *models.PrivacySettings) error {
	query := `INSERT INTO privacy_settings (user_id, profile_visibility, share_progress, searchable, updated_at)
        VALUES (:user_id, :profile_visibility, :share_progress, :searchable, :updated_at)
        ON CONFLICT (user_id) DO UPDATE SET
            profile_visibility = EXCLUDED.profile_visibility,
            share_progress = EXCLUDED.share_progress,
            searchable = EXCLUDED.searchable,
            updated_at = EXCLUDED.updated_at`
	_, err := r.db.NamedExecContext(ctx, query, settings)
	return err
}
