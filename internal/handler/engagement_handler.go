package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openlearn/lms-api/internal/middleware"
	"github.com/openlearn/lms-api/internal/models"
	"github.com/openlearn/lms-api/internal/service"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
	"github.com/openlearn/lms-api/pkg/response"
)

// EngagementHandler serves the instructor engagement overview.
type EngagementHandler struct {
	service *service.EngagementService
}

// NewEngagementHandler creates a new handler.
func NewEngagementHandler(svc *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{service: svc}
}

// Analytics godoc
// @Summary Instructor engagement analytics
// @Description Thirty-day engagement overview across the caller's published courses. Admins may inspect another instructor via instructor_id.
// @Tags Instructor
// @Produce json
// @Param instructor_id query string false "Instructor ID (admin only)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /instructor/analytics [get]
// @Security BearerAuth
func (h *EngagementHandler) Analytics(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	instructorID := claims.UserID
	if requested := c.Query("instructor_id"); requested != "" && requested != claims.UserID {
		if claims.Role != models.RoleAdmin {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		instructorID = requested
	}

	start := time.Now()
	report, cacheHit, err := h.service.InstructorReport(c.Request.Context(), instructorID, claims.Role)
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
	response.JSON(c, http.StatusOK, report, nil, meta)
}
