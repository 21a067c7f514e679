package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"workhub/internal/apperr"
	"workhub/internal/model"
	"workhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ActivityHandler struct {
	activities ActivityService
	logger     *slog.Logger
}

func NewActivityHandler(activities ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, logger: logger}
}

type CreateActivityRequest struct {
	Title       string               `json:"title" binding:"required"`
	Description string               `json:"description"`
	TypeOf      model.ActivityType   `json:"type_of"`
	Status      model.ActivityStatus `json:"status"`
	Priority    model.Priority       `json:"priority"`
	Assignees   []uuid.UUID          `json:"assignees"`
}

type UpdateActivityRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	TypeOf      *model.ActivityType   `json:"type_of"`
	Status      *model.ActivityStatus `json:"status"`
	Priority    *model.Priority       `json:"priority"`
	Assignees   *[]uuid.UUID          `json:"assignees"`
	Watchers    *[]uuid.UUID          `json:"watchers"`
}

type SubtaskRequest struct {
	Title string `json:"title" binding:"required"`
}

type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// Create godoc
// @Summary      Create an activity at the end of the backlog
// @Tags         Activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        request body CreateActivityRequest true "Activity"
// @Success      201 {object} model.Activity
// @Failure      400 {object} ErrorResponse
// @Router       /projects/{id}/backlog/activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CreateActivityRequest
	if !bind(c, &req) {
		return
	}

	activity, err := h.activities.Create(c.Request.Context(), actor, projectID, service.ActivityInput{
		Title:       req.Title,
		Description: req.Description,
		TypeOf:      req.TypeOf,
		Status:      req.Status,
		Priority:    req.Priority,
		Assignees:   req.Assignees,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, activity)
}

// Get godoc
// @Summary      Get an activity with its comments
// @Tags         Activities
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Activity ID"
// @Success      200 {object} model.Activity
// @Router       /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	activity, err := h.activities.Get(c.Request.Context(), actor, activityID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// Update godoc
// @Summary      Edit activity fields
// @Tags         Activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Activity ID"
// @Param        request body UpdateActivityRequest true "Fields to change"
// @Success      200 {object} model.Activity
// @Router       /activities/{id} [put]
func (h *ActivityHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateActivityRequest
	if !bind(c, &req) {
		return
	}

	activity, err := h.activities.Update(c.Request.Context(), actor, activityID, service.ActivityUpdate{
		Title:       req.Title,
		Description: req.Description,
		TypeOf:      req.TypeOf,
		Status:      req.Status,
		Priority:    req.Priority,
		Assignees:   req.Assignees,
		Watchers:    req.Watchers,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// Delete godoc
// @Summary      Delete an activity and its comments
// @Tags         Activities
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Activity ID"
// @Success      200 {object} MessageResponse
// @Router       /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.activities.Delete(c.Request.Context(), actor, activityID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Activity deleted successfully"})
}

// ToggleArchive godoc
// @Summary      Archive an activity, or restore it to the backlog
// @Tags         Activities
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Activity ID"
// @Success      200 {object} model.Activity
// @Router       /activities/{id}/archive [post]
func (h *ActivityHandler) ToggleArchive(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	activity, err := h.activities.ToggleArchive(c.Request.Context(), actor, activityID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// AddSubtask godoc
// @Summary      Append a subtask
// @Tags         Activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Activity ID"
// @Param        request body SubtaskRequest true "Subtask"
// @Success      201 {object} model.Activity
// @Router       /activities/{id}/subtasks [post]
func (h *ActivityHandler) AddSubtask(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req SubtaskRequest
	if !bind(c, &req) {
		return
	}

	activity, err := h.activities.AddSubtask(c.Request.Context(), actor, activityID, req.Title)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, activity)
}

// ToggleSubtask godoc
// @Summary      Flip a subtask's completion
// @Tags         Activities
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Activity ID"
// @Param        index path int true "Subtask index"
// @Success      200 {object} model.Activity
// @Router       /activities/{id}/subtasks/{index} [put]
func (h *ActivityHandler) ToggleSubtask(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid subtask index", Code: string(apperr.KindInvalid)})
		return
	}

	activity, err := h.activities.ToggleSubtask(c.Request.Context(), actor, activityID, index)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// AddComment godoc
// @Summary      Comment on an activity
// @Tags         Activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Activity ID"
// @Param        request body CommentRequest true "Comment"
// @Success      201 {object} model.Comment
// @Router       /activities/{id}/comments [post]
func (h *ActivityHandler) AddComment(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !bind(c, &req) {
		return
	}

	comment, err := h.activities.AddComment(c.Request.Context(), actor, activityID, req.Body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment godoc
// @Summary      Delete a comment
// @Tags         Activities
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Activity ID"
// @Param        commentId path string true "Comment ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /activities/{id}/comments/{commentId} [delete]
func (h *ActivityHandler) DeleteComment(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := uuidParam(c, "commentId")
	if !ok {
		return
	}
	if err := h.activities.DeleteComment(c.Request.Context(), actor, activityID, commentID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}
