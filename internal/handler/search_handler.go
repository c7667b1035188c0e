package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/middleware"
	"github.com/openlearn/lms-api/internal/models"
	"github.com/openlearn/lms-api/internal/service"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
	"github.com/openlearn/lms-api/pkg/response"
)

// SearchHandler serves unified search. The route carries OptionalJWT so
// anonymous callers search public content only.
type SearchHandler struct {
	service *service.SearchService
}

// NewSearchHandler creates a new handler.
func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// Search godoc
// @Summary Unified search
// @Description Search courses, lessons, modules, instructors and discussions
// @Tags Search
// @Produce json
// @Param q query string true "Search query"
// @Param type query string false "Entity type" Enums(all, courses, lessons, modules, instructors, discussions)
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort order" Enums(relevance, newest, oldest, popular, highestRated, priceAsc, priceDesc)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search parameters"))
		return
	}

	var role models.UserRole
	authenticated := false
	if claims := claimsFromContext(c); claims != nil {
		role = claims.Role
		authenticated = true
	}

	start := time.Now()
	res, cacheHit, err := h.service.Search(c.Request.Context(), req, role, authenticated)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, res, &models.Pagination{
		Page:       res.Page,
		PageSize:   res.Limit,
		TotalCount: res.Total,
	}, meta)
}
