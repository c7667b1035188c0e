package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openlearn/lms-api/internal/dto"
	"github.com/openlearn/lms-api/internal/service"
	appErrors "github.com/openlearn/lms-api/pkg/errors"
	"github.com/openlearn/lms-api/pkg/response"
)

// AccessControlHandler serves course visibility rules and privacy settings.
type AccessControlHandler struct {
	service *service.AccessControlService
}

// NewAccessControlHandler creates a new handler.
func NewAccessControlHandler(svc *service.AccessControlService) *AccessControlHandler {
	return &AccessControlHandler{service: svc}
}

// CourseRules godoc
// @Summary List course visibility rules
// @Tags Instructor
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/access-control [get]
// @Security BearerAuth
func (h *AccessControlHandler) CourseRules(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rules, err := h.service.CourseRules(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rules, nil)
}

// UpdateRules godoc
// @Summary Update course visibility rules
// @Description Upsert a batch of module or lesson visibility rules
// @Tags Instructor
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.AccessControlUpdateRequest true "Rules payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/access-control [post]
// @Security BearerAuth
func (h *AccessControlHandler) UpdateRules(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AccessControlUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid access control payload"))
		return
	}

	rules, err := h.service.UpdateRules(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rules, nil)
}

// Privacy godoc
// @Summary Current privacy settings
// @Tags Account
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/privacy [get]
// @Security BearerAuth
func (h *AccessControlHandler) Privacy(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	settings, err := h.service.PrivacySettings(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdatePrivacy godoc
// @Summary Update privacy settings
// @Description Last write wins; no conflict detection
// @Tags Account
// @Accept json
// @Produce json
// @Param payload body dto.PrivacyUpdateRequest true "Privacy payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/privacy [put]
// @Security BearerAuth
func (h *AccessControlHandler) UpdatePrivacy(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.PrivacyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid privacy payload"))
		return
	}

	settings, err := h.service.UpdatePrivacySettings(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, settings, nil)
}
