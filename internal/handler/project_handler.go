package handler

import (
	"log/slog"
	"net/http"

	"workhub/internal/model"
	"workhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProjectHandler struct {
	projects ProjectService
	cascade  CascadeService
	logger   *slog.Logger
}

func NewProjectHandler(projects ProjectService, cascade CascadeService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, cascade: cascade, logger: logger}
}

type CreateProjectRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Status      model.ProjectStatus `json:"status"`
}

type UpdateProjectRequest struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Status      *model.ProjectStatus `json:"status"`
}

type AddProjectMemberRequest struct {
	UserID uuid.UUID         `json:"user_id" binding:"required"`
	Role   model.ProjectRole `json:"role"`
}

// Create godoc
// @Summary      Create a project and its backlog
// @Tags         Projects
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        request body CreateProjectRequest true "Project"
// @Success      201 {object} model.Project
// @Failure      403 {object} ErrorResponse
// @Router       /projects/{id}/create-project [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CreateProjectRequest
	if !bind(c, &req) {
		return
	}

	project, err := h.projects.Create(c.Request.Context(), actor, workspaceID, service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// Get godoc
// @Summary      Get a project with its members
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} model.Project
// @Failure      404 {object} ErrorResponse
// @Router       /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	project, err := h.projects.Get(c.Request.Context(), actor, projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Update godoc
// @Summary      Edit a project
// @Tags         Projects
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        request body UpdateProjectRequest true "Fields to change"
// @Success      200 {object} model.Project
// @Router       /projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if !bind(c, &req) {
		return
	}

	project, err := h.projects.Update(c.Request.Context(), actor, projectID, service.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// AddMember godoc
// @Summary      Add a workspace member to the project
// @Tags         Projects
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        request body AddProjectMemberRequest true "Member"
// @Success      201 {object} model.ProjectMember
// @Failure      409 {object} ErrorResponse
// @Router       /projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req AddProjectMemberRequest
	if !bind(c, &req) {
		return
	}

	member, err := h.projects.AddMember(c.Request.Context(), actor, projectID, req.UserID, req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// RemoveMember godoc
// @Summary      Remove a project member
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        userId path string true "User ID"
// @Success      200 {object} MessageResponse
// @Router       /projects/{id}/members/{userId} [delete]
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	if err := h.projects.RemoveMember(c.Request.Context(), actor, projectID, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Project member removed successfully"})
}

// Backlog godoc
// @Summary      Read the backlog with its sprints and activities
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} model.Backlog
// @Router       /projects/{id}/backlog/activities [get]
func (h *ProjectHandler) Backlog(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	backlog, err := h.projects.Backlog(c.Request.Context(), actor, projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, backlog)
}

// Delete godoc
// @Summary      Delete a project and everything it owns
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /projects/{id}/backlog/delete-project [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.cascade.DeleteProject(c.Request.Context(), actor, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Project deleted successfully"})
}
