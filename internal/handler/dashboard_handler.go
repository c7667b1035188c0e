package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/middleware"
	"github.com/openlearn/lms-api/internal/service"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
	"github.com/openlearn/lms-api/pkg/response"
)

// DashboardHandler serves admin-only platform aggregates.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Dashboard godoc
// @Summary Admin dashboard
// @Description Platform-wide aggregates scoped by optional date and list filters
// @Tags Admin
// @Produce json
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Param category_ids query string false "JSON array of category IDs"
// @Param instructor_ids query string false "JSON array of instructor IDs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics/dashboard [get]
// @Security BearerAuth
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	if claimsFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	start := time.Now()
	res, cacheHit, err := h.service.Dashboard(c.Request.Context(), service.DashboardQuery{
		StartDate:     c.Query("start_date"),
		EndDate:       c.Query("end_date"),
		CategoryIDs:   c.Query("category_ids"),
		InstructorIDs: c.Query("instructor_ids"),
	})
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
	response.JSON(c, http.StatusOK, res, nil, meta)
}

// Analytics godoc
// @Summary Admin timeframe analytics
// @Description Togglable analytics sections scoped to a timeframe
// @Tags Admin
// @Produce json
// @Param timeframe query string false "Timeframe" Enums(day, week, month, year, all)
// @Param include_overview query bool false "Include overview section"
// @Param include_trend query bool false "Include enrollment trend"
// @Param include_top_courses query bool false "Include top courses"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics [get]
// @Security BearerAuth
func (h *DashboardHandler) Analytics(c *gin.Context) {
	if claimsFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AdminAnalyticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid analytics parameters"))
		return
	}

	start := time.Now()
	res, err := h.service.Analytics(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, false)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, res, nil, meta)
}
