package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openlearn/lms-api/internal/dto"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
)

type analyticsRepository interface {
	Overview(ctx context.Context, filter dto.AdminDashboardFilter) (*dto.AnalyticsOverview, error)
	CompletionRate(ctx context.Context, filter dto.AdminDashboardFilter) (int, error)
	TopCategories(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.CategoryCount, error)
	TopInstructors(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.InstructorCount, error)
	EnrollmentTrend(ctx context.Context, filter dto.AdminDashboardFilter) ([]dto.TrendPoint, error)
	TopCourses(ctx context.Context, filter dto.AdminDashboardFilter, limit int) ([]dto.CourseCount, error)
}

const dashboardRankingLimit = 5

// DashboardQuery carries the raw admin dashboard query parameters before
// parsing. Category and instructor lists arrive as JSON-encoded arrays.
type DashboardQuery struct {
	StartDate     string
	EndDate       string
	CategoryIDs   string
	InstructorIDs string
}

// DashboardService assembles platform-wide aggregates for administrators.
type DashboardService struct {
	repo      analyticsRepository
	cache     *CacheService
	validator *validator.Validate
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo analyticsRepository, cache *CacheService, validate *validator.Validate, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, validator: validate, cacheTTL: cacheTTL, logger: logger}
}

// Dashboard builds the admin dashboard. Malformed filter parameters are
// rejected with per-field detail before any query runs. The five aggregate
// queries are independent and run concurrently. The second return value
// reports whether the response came from cache.
func (s *DashboardService) Dashboard(ctx context.Context, query DashboardQuery) (*dto.AdminDashboardResponse, bool, error) {
	filter, err := parseDashboardQuery(query)
	if err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("dashboard:%s:%s:%s:%s",
		query.StartDate, query.EndDate, query.CategoryIDs, query.InstructorIDs)
	var cached dto.AdminDashboardResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	var (
		overview    *dto.AnalyticsOverview
		completion  int
		categories  []dto.CategoryCount
		instructors []dto.InstructorCount
		trend       []dto.TrendPoint
	)
	loaders := []func() error{
		func() (err error) { overview, err = s.repo.Overview(ctx, filter); return },
		func() (err error) { completion, err = s.repo.CompletionRate(ctx, filter); return },
		func() (err error) { categories, err = s.repo.TopCategories(ctx, filter, dashboardRankingLimit); return },
		func() (err error) { instructors, err = s.repo.TopInstructors(ctx, filter, dashboardRankingLimit); return },
		func() (err error) { trend, err = s.repo.EnrollmentTrend(ctx, filter); return },
	}
	errs := make([]error, len(loaders))
	var wg sync.WaitGroup
	for i, load := range loaders {
		wg.Add(1)
		go func(i int, load func() error) {
			defer wg.Done()
			errs[i] = load()
		}(i, load)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard aggregates")
		}
	}

	response := &dto.AdminDashboardResponse{
		TotalCourses:     overview.Courses,
		TotalEnrollments: overview.Enrollments,
		TotalStudents:    overview.Students,
		TotalRevenue:     overview.Revenue,
		CompletionRate:   completion,
		TopCategories:    categories,
		TopInstructors:   instructors,
		EnrollmentTrend:  trend,
		GeneratedAt:      time.Now().UTC(),
	}

	if err := s.cache.Set(ctx, cacheKey, response, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return response, false, nil
}

// Analytics builds the timeframe-scoped analytics view. When no section
// toggle is set every section is included.
func (s *DashboardService) Analytics(ctx context.Context, req dto.AdminAnalyticsRequest) (*dto.AdminAnalyticsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Timeframe == "" {
		req.Timeframe = "month"
	}

	filter := dto.AdminDashboardFilter{}
	if start := timeframeStart(req.Timeframe); start != nil {
		filter.StartDate = start
	}
	if req.Category != "" {
		filter.CategoryIDs = []string{req.Category}
	}
	if req.InstructorID != "" {
		filter.InstructorIDs = []string{req.InstructorID}
	}

	includeAll := !req.IncludeOverview && !req.IncludeTrend && !req.IncludeTopCourses

	response := &dto.AdminAnalyticsResponse{
		Timeframe:   req.Timeframe,
		GeneratedAt: time.Now().UTC(),
	}

	if includeAll || req.IncludeOverview {
		overview, err := s.repo.Overview(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overview")
		}
		response.Overview = overview
	}
	if includeAll || req.IncludeTrend {
		trend, err := s.repo.EnrollmentTrend(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment trend")
		}
		response.EnrollmentTrend = trend
	}
	if includeAll || req.IncludeTopCourses {
		courses, err := s.repo.TopCourses(ctx, filter, dashboardRankingLimit)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load top courses")
		}
		response.TopCourses = courses
	}
	return response, nil
}

func parseDashboardQuery(query DashboardQuery) (dto.AdminDashboardFilter, error) {
	var filter dto.AdminDashboardFilter
	var details []appErrors.FieldError

	if query.StartDate != "" {
		ts, err := time.Parse("2006-01-02", query.StartDate)
		if err != nil {
			details = append(details, appErrors.FieldError{Field: "start_date", Message: "expected YYYY-MM-DD"})
		} else {
			filter.StartDate = &ts
		}
	}
	if query.EndDate != "" {
		ts, err := time.Parse("2006-01-02", query.EndDate)
		if err != nil {
			details = append(details, appErrors.FieldError{Field: "end_date", Message: "expected YYYY-MM-DD"})
		} else {
			end := ts.AddDate(0, 0, 1).Add(-time.Nanosecond)
			filter.EndDate = &end
		}
	}
	if ids, fieldErr := parseIDList("category_ids", query.CategoryIDs); fieldErr != nil {
		details = append(details, *fieldErr)
	} else {
		filter.CategoryIDs = ids
	}
	if ids, fieldErr := parseIDList("instructor_ids", query.InstructorIDs); fieldErr != nil {
		details = append(details, *fieldErr)
	} else {
		filter.InstructorIDs = ids
	}

	if len(details) > 0 {
		return filter, appErrors.WithDetails(appErrors.ErrValidation, details)
	}
	return filter, nil
}

// parseIDList accepts a JSON string array; a bare comma list is tolerated
// for convenience.
func parseIDList(field, raw string) ([]string, *appErrors.FieldError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, &appErrors.FieldError{Field: field, Message: "expected a JSON string array"}
		}
		return ids, nil
	}
	return strings.Split(raw, ","), nil
}

func timeframeStart(timeframe string) *time.Time {
	now := time.Now().UTC()
	var start time.Time
	switch timeframe {
	case "day":
		start = now.AddDate(0, 0, -1)
	case "week":
		start = now.AddDate(0, 0, -7)
	case "month":
		start = now.AddDate(0, -1, 0)
	case "year":
		start = now.AddDate(-1, 0, 0)
	default:
		return nil
	}
	return &start
}
