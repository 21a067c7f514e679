package handler

import (
	"log/slog"
	"net/http"
	"time"

	"workhub/internal/model"
	"workhub/internal/service"

	"github.com/gin-gonic/gin"
)

type SprintHandler struct {
	scheduler SchedulerService
	logger    *slog.Logger
}

func NewSprintHandler(scheduler SchedulerService, logger *slog.Logger) *SprintHandler {
	return &SprintHandler{scheduler: scheduler, logger: logger}
}

// SprintRequest is shared by sprint creation and the start/edit call.
// Omitted fields keep their current or default value.
type SprintRequest struct {
	Name      *string               `json:"name"`
	Duration  *model.SprintDuration `json:"duration"`
	StartDay  *time.Time            `json:"start_day"`
	FinishDay *time.Time            `json:"finish_day"`
	Goal      *string               `json:"goal"`
}

func (r SprintRequest) input() service.SprintInput {
	return service.SprintInput{
		Name:      r.Name,
		Duration:  r.Duration,
		StartDay:  r.StartDay,
		FinishDay: r.FinishDay,
		Goal:      r.Goal,
	}
}

// Create godoc
// @Summary      Create an empty sprint
// @Tags         Sprints
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        request body SprintRequest false "Sprint"
// @Success      201 {object} model.Sprint
// @Router       /sprints/{id}/backlog/create-sprint [post]
func (h *SprintHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req SprintRequest
	if !bind(c, &req) {
		return
	}

	sprint, err := h.scheduler.CreateSprint(c.Request.Context(), actor, projectID, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sprint)
}

// Get godoc
// @Summary      Get a sprint with its activities
// @Tags         Sprints
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Sprint ID"
// @Success      200 {object} model.Sprint
// @Router       /sprints/{id} [get]
func (h *SprintHandler) Get(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	sprintID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	sprint, err := h.scheduler.GetSprint(c.Request.Context(), actor, sprintID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}

// Start godoc
// @Summary      Start a planned sprint or edit a started one
// @Tags         Sprints
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Sprint ID"
// @Param        request body SprintRequest false "Sprint fields"
// @Success      200 {object} model.Sprint
// @Failure      412 {object} ErrorResponse
// @Router       /sprints/{id} [put]
func (h *SprintHandler) Start(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	sprintID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req SprintRequest
	if !bind(c, &req) {
		return
	}

	sprint, err := h.scheduler.StartSprint(c.Request.Context(), actor, sprintID, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}

// AddActivity godoc
// @Summary      Move an activity from the backlog into the sprint
// @Tags         Sprints
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Sprint ID"
// @Param        activityId path string true "Activity ID"
// @Success      200 {object} model.Activity
// @Failure      412 {object} ErrorResponse
// @Router       /sprints/{id}/add-activity/{activityId} [post]
func (h *SprintHandler) AddActivity(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	sprintID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "activityId")
	if !ok {
		return
	}
	activity, err := h.scheduler.AddActivityToSprint(c.Request.Context(), actor, sprintID, activityID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// ReturnActivity godoc
// @Summary      Move an activity from its sprint back to the backlog
// @Tags         Sprints
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        activityId path string true "Activity ID"
// @Success      200 {object} model.Activity
// @Failure      412 {object} ErrorResponse
// @Router       /projects/{id}/backlog/return-activity/{activityId} [post]
func (h *SprintHandler) ReturnActivity(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "activityId")
	if !ok {
		return
	}
	activity, err := h.scheduler.ReturnActivityToBacklog(c.Request.Context(), actor, projectID, activityID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// Finish godoc
// @Summary      Finish a started sprint
// @Tags         Sprints
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Sprint ID"
// @Success      200 {object} model.Sprint
// @Failure      412 {object} ErrorResponse
// @Router       /sprints/{id}/finished [post]
func (h *SprintHandler) Finish(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	sprintID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	sprint, err := h.scheduler.FinishSprint(c.Request.Context(), actor, sprintID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}

// Archive godoc
// @Summary      Archive an empty, never-started sprint
// @Tags         Sprints
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Sprint ID"
// @Success      200 {object} model.Sprint
// @Failure      412 {object} ErrorResponse
// @Router       /sprints/{id}/achieved [post]
func (h *SprintHandler) Archive(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	sprintID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	sprint, err := h.scheduler.ArchiveEmptySprint(c.Request.Context(), actor, sprintID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}
