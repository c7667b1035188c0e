package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/models"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
)

type accessRuleRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.AccessRule, error)
	UpsertRules(ctx context.Context, rules []models.AccessRule) error
}

type privacyRepository interface {
	PrivacySettings(ctx context.Context, userID string) (*models.PrivacySettings, error)
	UpsertPrivacySettings(ctx context.Context, settings *models.PrivacySettings) error
}

// AccessControlService manages per-course content visibility rules and
// per-user privacy settings.
type AccessControlService struct {
	courses   gradebookCourseRepository
	rules     accessRuleRepository
	privacy   privacyRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccessControlService constructs an AccessControlService.
func NewAccessControlService(courses gradebookCourseRepository, rules accessRuleRepository, privacy privacyRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AccessControlService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessControlService{courses: courses, rules: rules, privacy: privacy, cache: cache, validator: validate, logger: logger}
}

// CourseRules lists the visibility rules of a course the caller owns.
func (s *AccessControlService) CourseRules(ctx context.Context, courseID, requesterID string, role models.UserRole) ([]models.AccessRule, error) {
	if err := s.authorizeCourse(ctx, courseID, requesterID, role); err != nil {
		return nil, err
	}
	rules, err := s.rules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list access rules")
	}
	if rules == nil {
		rules = []models.AccessRule{}
	}
	return rules, nil
}

// UpdateRules applies a batch of visibility rules. Rules are upserted with
// last-write-wins semantics keyed by (course, scope, target).
func (s *AccessControlService) UpdateRules(ctx context.Context, courseID, requesterID string, role models.UserRole, req dto.AccessControlUpdateRequest) ([]models.AccessRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := s.authorizeCourse(ctx, courseID, requesterID, role); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rules := make([]models.AccessRule, 0, len(req.Rules))
	for _, input := range req.Rules {
		rules = append(rules, models.AccessRule{
			ID:        uuid.NewString(),
			CourseID:  courseID,
			Scope:     models.AccessScope(input.Scope),
			TargetID:  input.TargetID,
			Visible:   *input.Visible,
			UpdatedBy: requesterID,
			UpdatedAt: now,
		})
	}
	if err := s.rules.UpsertRules(ctx, rules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save access rules")
	}

	// Cached search results may still list content this write just hid.
	if err := s.cache.Invalidate(ctx, "search:*"); err != nil {
		s.logger.Warn("search cache invalidation failed", zap.String("course_id", courseID), zap.Error(err))
	}

	saved, err := s.rules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload access rules")
	}
	return saved, nil
}

// PrivacySettings returns the caller's privacy settings, falling back to
// defaults when none were saved yet.
func (s *AccessControlService) PrivacySettings(ctx context.Context, userID string) (*models.PrivacySettings, error) {
	settings, err := s.privacy.PrivacySettings(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.PrivacySettings{
				UserID:            userID,
				ProfileVisibility: "public",
				ShareProgress:     true,
				Searchable:        true,
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load privacy settings")
	}
	return settings, nil
}

// UpdatePrivacySettings stores the caller's privacy settings. Writes are
// last-write-wins without conflict detection.
func (s *AccessControlService) UpdatePrivacySettings(ctx context.Context, userID string, req dto.PrivacyUpdateRequest) (*models.PrivacySettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	settings := &models.PrivacySettings{
		UserID:            userID,
		ProfileVisibility: req.ProfileVisibility,
		ShareProgress:     *req.ShareProgress,
		Searchable:        *req.Searchable,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := s.privacy.UpsertPrivacySettings(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save privacy settings")
	}

	// The searchable flag changes which instructors search may return.
	if err := s.cache.Invalidate(ctx, "search:*"); err != nil {
		s.logger.Warn("search cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
	return settings, nil
}

func (s *AccessControlService) authorizeCourse(ctx context.Context, courseID, requesterID string, role models.UserRole) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if role != models.RoleAdmin && course.InstructorID != requesterID {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return nil
}
