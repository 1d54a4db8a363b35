package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/ta-scheduler-api/internal/service"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
	"github.com/campus-hq/ta-scheduler-api/pkg/response"
)

// TAHandler manages roster endpoints.
type TAHandler struct {
	service *service.TAService
}

// NewTAHandler constructs handler.
func NewTAHandler(svc *service.TAService) *TAHandler {
	return &TAHandler{service: svc}
}

// Create godoc
// @Summary Register a teaching assistant
// @Description Creates a TA or updates an existing one's identity and role level. Stored preferences survive re-registration.
// @Tags TA
// @Accept json
// @Produce json
// @Param payload body service.CreateTARequest true "TA identity and role level"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /ta/create [post]
func (h *TAHandler) Create(c *gin.Context) {
	var req service.CreateTARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	ta, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ta)
}

// Get godoc
// @Summary Fetch one TA
// @Tags TA
// @Produce json
// @Param id path string true "TA ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /ta/{id} [get]
func (h *TAHandler) Get(c *gin.Context) {
	ta, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ta)
}

// List godoc
// @Summary List the TA roster
// @Tags TA
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ta [get]
func (h *TAHandler) List(c *gin.Context) {
	tas, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tas)
}

// SubmitPreferences godoc
// @Summary Submit weekly preferences
// @Description Replaces the TA's stored preferences with the given wire-form entries. One malformed or unaligned entry rejects the whole batch.
// @Tags TA
// @Accept json
// @Produce json
// @Param payload body service.SubmitPreferencesRequest true "Preference strings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /ta/preferences [post]
func (h *TAHandler) SubmitPreferences(c *gin.Context) {
	var req service.SubmitPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	ta, err := h.service.SubmitPreferences(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ta)
}
