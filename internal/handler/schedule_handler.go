package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/ta-scheduler-api/internal/service"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
	"github.com/campus-hq/ta-scheduler-api/pkg/response"
)

// ScheduleHandler manages schedule endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewScheduleHandler constructs handler. Exports and metrics may be nil.
func NewScheduleHandler(svc *service.ScheduleService, exports *service.ExportService, metrics *service.MetricsService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, exports: exports, metrics: metrics}
}

// Init godoc
// @Summary Initialise a new weekly schedule
// @Description Generates an empty shift grid from the work interval and activates it, replacing any previous schedule.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.InitScheduleRequest true "Work interval and staffing capacity"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule/initSchedule [post]
func (h *ScheduleHandler) Init(c *gin.Context) {
	var req service.InitScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	schedule, err := h.service.Init(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Get godoc
// @Summary Fetch a schedule
// @Description Returns the schedule with the given ID, or the active one when schedule_id is omitted.
// @Tags Schedule
// @Produce json
// @Param schedule_id query int false "Schedule generation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/getSchedule [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	id := 0
	if raw := c.Query("schedule_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schedule_id must be a positive integer"))
			return
		}
		id = parsed
	}

	schedule, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// LatestID godoc
// @Summary Fetch the active schedule ID
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/getLatestScheduleId [get]
func (h *ScheduleHandler) LatestID(c *gin.Context) {
	id, err := h.service.LatestID(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"schedule_id": id})
}

// Update godoc
// @Summary Merge changes into a schedule
// @Description Applies only the provided fields; omitted fields keep their stored values. Day arrays replace that weekday wholesale.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.UpdateScheduleRequest true "Fields to merge"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/update [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	schedule, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// ApplyTemplate godoc
// @Summary Apply role demand per slot
// @Description Marks listed slots as LAB or OFFICE_HOURS demand and empties the rest, moving the schedule to POPULATED.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.ApplyTemplateRequest true "Slot role mapping"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule/template [put]
func (h *ScheduleHandler) ApplyTemplate(c *gin.Context) {
	var req service.ApplyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	schedule, err := h.service.ApplyTemplate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// ImportData godoc
// @Summary Export schedule and roster for the algorithm
// @Description Returns every shift with capacity plus every TA with a dense preference vector resolved to shift IDs.
// @Tags Schedule
// @Produce json
// @Param schedule_id query int false "Schedule generation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/importDataToAlg [get]
func (h *ScheduleHandler) ImportData(c *gin.Context) {
	id := 0
	if raw := c.Query("schedule_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schedule_id must be a positive integer"))
			return
		}
		id = parsed
	}

	payload, err := h.service.BuildAlgorithmPayload(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload)
}

// RunAlgorithm godoc
// @Summary Dispatch the assignment algorithm
// @Description Runs the external solver against the active schedule, validates its result and publishes. Any failure rolls the schedule back to POPULATED.
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /schedule/runAlgorithm [post]
func (h *ScheduleHandler) RunAlgorithm(c *gin.Context) {
	schedule, result, err := h.service.RunAlgorithm(c.Request.Context())

	meta := map[string]interface{}{}
	if result.RunID != "" {
		meta["run_id"] = result.RunID
		meta["duration_ms"] = result.Duration.Milliseconds()
		if result.LogFile != "" {
			meta["log_file"] = result.LogFile
		}
	}

	if err != nil {
		h.observeDispatch(err, result)
		appErr := appErrors.FromError(err)
		c.Header("Cache-Control", "no-store")
		c.JSON(appErr.Status, response.Envelope{Error: appErr, Meta: meta})
		return
	}

	h.metrics.ObserveDispatch(service.DispatchOutcomePublished, result.Duration)
	response.JSON(c, http.StatusOK, schedule, meta)
}

// Export godoc
// @Summary Download the weekly roster
// @Tags Schedule
// @Produce text/csv,application/pdf
// @Param schedule_id query int false "Schedule generation ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export is disabled"))
		return
	}

	id := 0
	if raw := c.Query("schedule_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schedule_id must be a positive integer"))
			return
		}
		id = parsed
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exports.Generate(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

func (h *ScheduleHandler) observeDispatch(err error, result service.RunResult) {
	switch {
	case result.TimedOut:
		h.metrics.ObserveDispatch(service.DispatchOutcomeTimedOut, result.Duration)
	case appErrors.HasCode(err, appErrors.ErrContractViolation):
		h.metrics.ObserveDispatch(service.DispatchOutcomeViolated, result.Duration)
	default:
		h.metrics.ObserveDispatch(service.DispatchOutcomeFailed, result.Duration)
	}
}
