package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evan-hart/studyplan-api/internal/dto"
	"github.com/evan-hart/studyplan-api/internal/middleware"
	"github.com/evan-hart/studyplan-api/internal/models"
	"github.com/evan-hart/studyplan-api/internal/scheduler"
	"github.com/evan-hart/studyplan-api/internal/service"
	appErrors "github.com/evan-hart/studyplan-api/pkg/errors"
	"github.com/evan-hart/studyplan-api/pkg/response"
)

type planner interface {
	Generate(ctx context.Context, timetableID, userID string, req dto.GenerationRequest) (*dto.GenerateScheduleResponse, error)
	Estimate(ctx context.Context, req dto.GenerationRequest) (*scheduler.FeasibilityReport, error)
	MoveSession(ctx context.Context, timetableID string, req dto.MoveSessionRequest) (*dto.MoveSessionResponse, error)
	ReplanDay(ctx context.Context, timetableID, date string, req dto.ReplanDayRequest) (*dto.ReplanDayResponse, error)
	SetCompletion(ctx context.Context, timetableID, sessionID string, completed bool) (*dto.MoveSessionResponse, error)
	ListTimetables(ctx context.Context, userID string) ([]dto.TimetableSummary, error)
	DeleteTimetable(ctx context.Context, timetableID string) error
}

type scheduleGetter interface {
	GetSchedule(ctx context.Context, timetableID string) (*service.ScheduleDocument, error)
}

type exporter interface {
	Render(ctx context.Context, timetableID string, format service.ExportFormat) ([]byte, string, error)
}

// PlannerHandler exposes schedule planning endpoints.
type PlannerHandler struct {
	planner   planner
	schedules scheduleGetter
	exports   exporter
}

// NewPlannerHandler constructs the handler.
func NewPlannerHandler(plannerSvc *service.PlannerService, exportSvc *service.ExportService) *PlannerHandler {
	return &PlannerHandler{planner: plannerSvc, schedules: plannerSvc, exports: exportSvc}
}

// Generate godoc
// @Summary Generate a study schedule for a timetable
// @Description Runs the full pipeline: availability, allocation, sanitization and persistence. Work the window cannot absorb is returned in the unplaced list, not treated as a failure.
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.GenerationRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/schedule [post]
func (h *PlannerHandler) Generate(c *gin.Context) {
	var req dto.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	result, err := h.planner.Generate(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// GetSchedule godoc
// @Summary Fetch the stored schedule document
// @Tags Planner
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/schedule [get]
func (h *PlannerHandler) GetSchedule(c *gin.Context) {
	doc, err := h.schedules.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc)
}

// Estimate godoc
// @Summary Estimate feasibility of a planning window
// @Description Pure computation over the payload; nothing is persisted. The same payload always yields the same report.
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.GenerationRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/schedule/estimate [post]
func (h *PlannerHandler) Estimate(c *gin.Context) {
	var req dto.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feasibility payload"))
		return
	}
	report, err := h.planner.Estimate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Move godoc
// @Summary Move one session to another day
// @Description Places the session into the earliest free gap on the target day. Responds 409 when the target day has no fitting gap or the document changed concurrently.
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.MoveSessionRequest true "Move payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/schedule/move [post]
func (h *PlannerHandler) Move(c *gin.Context) {
	var req dto.MoveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	result, err := h.planner.MoveSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ReplanDay godoc
// @Summary Rebuild one day from a prioritized topic list
// @Description Completed sessions keep their slots; the rest of the day is rebuilt in the submitted order.
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param date path string true "Day to replan (2006-01-02)"
// @Param payload body dto.ReplanDayRequest true "Replan payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/days/{date}/replan [post]
func (h *PlannerHandler) ReplanDay(c *gin.Context) {
	var req dto.ReplanDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid replan payload"))
		return
	}
	result, err := h.planner.ReplanDay(c.Request.Context(), c.Param("id"), c.Param("date"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// SetCompletion godoc
// @Summary Toggle a session's completion flag
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param sessionId path string true "Session ID"
// @Param payload body dto.CompleteSessionRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/sessions/{sessionId} [patch]
func (h *PlannerHandler) SetCompletion(c *gin.Context) {
	var req dto.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
		return
	}
	result, err := h.planner.SetCompletion(c.Request.Context(), c.Param("id"), c.Param("sessionId"), req.Completed)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary List the caller's timetables
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *PlannerHandler) List(c *gin.Context) {
	summaries, err := h.planner.ListTimetables(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries)
}

// Delete godoc
// @Summary Delete a timetable document
// @Tags Planner
// @Param id path string true "Timetable ID"
// @Success 204 {object} nil
// @Router /timetables/{id} [delete]
func (h *PlannerHandler) Delete(c *gin.Context) {
	if err := h.planner.DeleteTimetable(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export the stored schedule as CSV or PDF
// @Tags Planner
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Param format query string true "Export format" Enums(csv, pdf)
// @Success 200 {file} byte
// @Router /timetables/{id}/schedule/export [get]
func (h *PlannerHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	payload, contentType, err := h.exports.Render(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("schedule-%s.%s", c.Param("id"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

func currentUserID(c *gin.Context) string {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return ""
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return ""
	}
	return claims.UserID
}
