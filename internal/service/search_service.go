package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/models"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
)

type searchRepository interface {
	SearchCourses(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error)
	CountCourses(ctx context.Context, f models.SearchFilter) (int, error)
	SearchLessons(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error)
	CountLessons(ctx context.Context, f models.SearchFilter) (int, error)
	SearchModules(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error)
	CountModules(ctx context.Context, f models.SearchFilter) (int, error)
	SearchInstructors(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error)
	CountInstructors(ctx context.Context, f models.SearchFilter) (int, error)
	SearchDiscussions(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error)
	CountDiscussions(ctx context.Context, f models.SearchFilter) (int, error)
}

const defaultSearchLimit = 20

// SearchService runs unified search across the five entity types.
type SearchService struct {
	repo         searchRepository
	cache        *CacheService
	validator    *validator.Validate
	cacheTTL     time.Duration
	maxPageSize  int
	previewLimit int
	logger       *zap.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(repo searchRepository, cache *CacheService, validate *validator.Validate, cacheTTL time.Duration, maxPageSize, previewLimit int, logger *zap.Logger) *SearchService {
	if validate == nil {
		validate = validator.New()
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	if previewLimit <= 0 {
		previewLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{
		repo:         repo,
		cache:        cache,
		validator:    validate,
		cacheTTL:     cacheTTL,
		maxPageSize:  maxPageSize,
		previewLimit: previewLimit,
		logger:       logger,
	}
}

// Search validates the request and dispatches to single-type or all-type
// search. Unpublished content is only visible when the caller is an admin
// or instructor and asked for it; those searches bypass the cache. The
// second return value reports whether the response came from cache.
func (s *SearchService) Search(ctx context.Context, req dto.SearchRequest, role models.UserRole, authenticated bool) (*dto.SearchResponse, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, validationError(err)
	}
	normalizeSearchRequest(&req, s.maxPageSize)

	includePrivate := req.IncludePrivate == "yes" && authenticated &&
		(role == models.RoleAdmin || role == models.RoleInstructor)

	filter := models.SearchFilter{
		Query:          strings.TrimSpace(req.Query),
		Category:       req.Category,
		Level:          req.Level,
		Language:       req.Language,
		MinRating:      req.MinRating,
		MaxPrice:       req.MaxPrice,
		FreeOnly:       req.FreeOnly,
		Featured:       req.Featured,
		Certificate:    req.Certificate,
		MaxDuration:    req.MaxDurationHours,
		IncludePrivate: includePrivate,
		Sort:           req.Sort,
		Limit:          req.Limit,
		Offset:         (req.Page - 1) * req.Limit,
	}

	cacheable := !includePrivate
	cacheKey := searchCacheKey(req, includePrivate)
	if cacheable {
		var cached dto.SearchResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	var response *dto.SearchResponse
	var err error
	if req.Type == "all" {
		response, err = s.searchAll(ctx, req, filter)
	} else {
		response, err = s.searchSingle(ctx, req, filter)
	}
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, cacheKey, response, s.cacheTTL); err != nil {
			s.logger.Warn("search cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return response, false, nil
}

func (s *SearchService) searchSingle(ctx context.Context, req dto.SearchRequest, filter models.SearchFilter) (*dto.SearchResponse, error) {
	var (
		results []models.SearchResult
		total   int
		err     error
	)
	switch req.Type {
	case "courses":
		if results, err = s.repo.SearchCourses(ctx, filter); err == nil {
			total, err = s.repo.CountCourses(ctx, filter)
		}
	case "lessons":
		if results, err = s.repo.SearchLessons(ctx, filter); err == nil {
			total, err = s.repo.CountLessons(ctx, filter)
		}
	case "modules":
		if results, err = s.repo.SearchModules(ctx, filter); err == nil {
			total, err = s.repo.CountModules(ctx, filter)
		}
	case "instructors":
		if results, err = s.repo.SearchInstructors(ctx, filter); err == nil {
			total, err = s.repo.CountInstructors(ctx, filter)
		}
	case "discussions":
		if results, err = s.repo.SearchDiscussions(ctx, filter); err == nil {
			total, err = s.repo.CountDiscussions(ctx, filter)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown search type")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "search query failed")
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return &dto.SearchResponse{
		Query:   req.Query,
		Type:    req.Type,
		Results: results,
		Total:   total,
		Page:    req.Page,
		Limit:   req.Limit,
	}, nil
}

// searchAll fans out across all five types concurrently, each capped to a
// small preview window, and merges previews ranked by the popularity proxy.
// Total sums the full per-type counts, so it can exceed the number of items
// reachable through the preview window.
func (s *SearchService) searchAll(ctx context.Context, req dto.SearchRequest, filter models.SearchFilter) (*dto.SearchResponse, error) {
	preview := filter
	preview.Limit = s.previewLimit
	preview.Offset = 0

	type fetch struct {
		search func(context.Context, models.SearchFilter) ([]models.SearchResult, error)
		count  func(context.Context, models.SearchFilter) (int, error)
	}
	fetches := []fetch{
		{s.repo.SearchCourses, s.repo.CountCourses},
		{s.repo.SearchLessons, s.repo.CountLessons},
		{s.repo.SearchModules, s.repo.CountModules},
		{s.repo.SearchInstructors, s.repo.CountInstructors},
		{s.repo.SearchDiscussions, s.repo.CountDiscussions},
	}

	results := make([][]models.SearchResult, len(fetches))
	counts := make([]int, len(fetches))
	errs := make([]error, len(fetches))

	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func(i int, f fetch) {
			defer wg.Done()
			r, err := f.search(ctx, preview)
			if err != nil {
				errs[i] = err
				return
			}
			c, err := f.count(ctx, preview)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = r
			counts[i] = c
		}(i, f)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "search query failed")
		}
	}

	merged := make([]models.SearchResult, 0, len(fetches)*s.previewLimit)
	var total int
	for i := range fetches {
		merged = append(merged, results[i]...)
		total += counts[i]
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Popularity > merged[j].Popularity
	})

	// The page window applies to the merged ranking, so it never reaches
	// beyond the combined preview caps even when Total is larger.
	start := (req.Page - 1) * req.Limit
	if start > len(merged) {
		start = len(merged)
	}
	end := start + req.Limit
	if end > len(merged) {
		end = len(merged)
	}
	merged = merged[start:end]

	return &dto.SearchResponse{
		Query:   req.Query,
		Type:    "all",
		Results: merged,
		Total:   total,
		Page:    req.Page,
		Limit:   req.Limit,
	}, nil
}

func normalizeSearchRequest(req *dto.SearchRequest, maxPageSize int) {
	if req.Type == "" {
		req.Type = "all"
	}
	if req.Sort == "" {
		req.Sort = "relevance"
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = defaultSearchLimit
	}
	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}
}

// searchCacheKey serialises every parameter that affects the result set in a
// fixed field order so equivalent requests share one entry.
func searchCacheKey(req dto.SearchRequest, includePrivate bool) string {
	return fmt.Sprintf("search:%s:%s:%d:%d:%s:%s:%s:%s:%.2f:%.2f:%t:%t:%t:%d:%t",
		req.Query, req.Type, req.Page, req.Limit, req.Sort,
		req.Category, req.Level, req.Language,
		req.MinRating, req.MaxPrice,
		req.FreeOnly, req.Featured, req.Certificate,
		req.MaxDurationHours, includePrivate)
}

// validationError converts validator output into a 400 carrying per-field
// detail.
func validationError(err error) error {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		details := make([]appErrors.FieldError, 0, len(invalid))
		for _, fe := range invalid {
			details = append(details, appErrors.FieldError{
				Field:   strings.ToLower(fe.Field()),
				Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			})
		}
		return appErrors.WithDetails(appErrors.ErrValidation, details)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search parameters")
}
