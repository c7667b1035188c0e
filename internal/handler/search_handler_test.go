package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/lms-api/internal/models"
	"github.com/openlearn/lms-api/internal/service"
	"github.com/openlearn/lms-api/pkg/response"
)

type stubSearchRepo struct {
	count int
}

func (s *stubSearchRepo) SearchCourses(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	return nil, nil
}
func (s *stubSearchRepo) CountCourses(ctx context.Context, f models.SearchFilter) (int, error) {
	return s.count, nil
}
func (s *stubSearchRepo) SearchLessons(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	return nil, nil
}
func (s *stubSearchRepo) CountLessons(ctx context.Context, f models.SearchFilter) (int, error) {
	return 0, nil
}
func (s *stubSearchRepo) SearchModules(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	return nil, nil
}
func (s *stubSearchRepo) CountModules(ctx context.Context, f models.SearchFilter) (int, error) {
	return 0, nil
}
func (s *stubSearchRepo) SearchInstructors(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	return nil, nil
}
func (s *stubSearchRepo) CountInstructors(ctx context.Context, f models.SearchFilter) (int, error) {
	return 0, nil
}
func (s *stubSearchRepo) SearchDiscussions(ctx context.Context, f models.SearchFilter) ([]models.SearchResult, error) {
	return nil, nil
}
func (s *stubSearchRepo) CountDiscussions(ctx context.Context, f models.SearchFilter) (int, error) {
	return 0, nil
}

func newSearchRouter(repo *stubSearchRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewSearchService(
		repo,
		service.NewCacheService(nil, nil, time.Hour, nil, false),
		validator.New(),
		time.Hour, 100, 5, nil,
	)
	r := gin.New()
	r.GET("/search", NewSearchHandler(svc).Search)
	return r
}

func TestSearchMissingQueryReturns400(t *testing.T) {
	r := newSearchRouter(&stubSearchRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	require.NotEmpty(t, envelope.Error.Details)
	assert.Equal(t, "query", envelope.Error.Details[0].Field)
}

func TestSearchReturnsPagination(t *testing.T) {
	r := newSearchRouter(&stubSearchRepo{count: 42})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search?q=go&type=courses", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.Page)
	assert.Equal(t, 20, envelope.Pagination.PageSize)
	assert.Equal(t, 42, envelope.Pagination.TotalCount)
}
