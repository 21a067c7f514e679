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

type WorkspaceHandler struct {
	workspaces WorkspaceService
	cascade    CascadeService
	logger     *slog.Logger
}

func NewWorkspaceHandler(workspaces WorkspaceService, cascade CascadeService, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, cascade: cascade, logger: logger}
}

type CreateWorkspaceRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

type UpdateWorkspaceRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type TransferOwnershipRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type MemberRoleRequest struct {
	Role model.WorkspaceRole `json:"role" binding:"required"`
}

// Create godoc
// @Summary      Create a workspace
// @Tags         Workspaces
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body CreateWorkspaceRequest true "Workspace"
// @Success      201 {object} model.Workspace
// @Failure      400 {object} ErrorResponse
// @Router       /workspaces [post]
func (h *WorkspaceHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req CreateWorkspaceRequest
	if !bind(c, &req) {
		return
	}

	workspace, err := h.workspaces.Create(c.Request.Context(), actor, service.WorkspaceInput{Name: req.Name, Color: req.Color})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, workspace)
}

// List godoc
// @Summary      List the caller's workspaces
// @Tags         Workspaces
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} model.Workspace
// @Router       /workspaces [get]
func (h *WorkspaceHandler) List(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaces, err := h.workspaces.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if workspaces == nil {
		workspaces = []model.Workspace{}
	}
	c.JSON(http.StatusOK, workspaces)
}

// Get godoc
// @Summary      Get a workspace with members and projects
// @Tags         Workspaces
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Success      200 {object} model.Workspace
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /workspaces/{id} [get]
func (h *WorkspaceHandler) Get(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	workspace, err := h.workspaces.Get(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, workspace)
}

// Update godoc
// @Summary      Update workspace settings
// @Tags         Workspaces
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        request body UpdateWorkspaceRequest true "Settings"
// @Success      200 {object} model.Workspace
// @Failure      403 {object} ErrorResponse
// @Router       /workspaces/{id} [put]
func (h *WorkspaceHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateWorkspaceRequest
	if !bind(c, &req) {
		return
	}

	workspace, err := h.workspaces.Update(c.Request.Context(), actor, workspaceID, service.WorkspaceUpdate{Name: req.Name, Color: req.Color})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, workspace)
}

// Delete godoc
// @Summary      Delete a workspace and everything in it
// @Tags         Workspaces
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /workspaces/{id} [delete]
func (h *WorkspaceHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.cascade.DeleteWorkspace(c.Request.Context(), actor, workspaceID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Workspace deleted successfully"})
}

// TransferOwnership godoc
// @Summary      Hand the owner role to another member
// @Tags         Workspaces
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        request body TransferOwnershipRequest true "New owner"
// @Success      200 {object} MessageResponse
// @Failure      412 {object} ErrorResponse
// @Router       /workspaces/{id}/transfer-ownership [post]
func (h *WorkspaceHandler) TransferOwnership(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TransferOwnershipRequest
	if !bind(c, &req) {
		return
	}
	if err := h.workspaces.TransferOwnership(c.Request.Context(), actor, workspaceID, req.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Ownership transferred successfully"})
}

// UpdateMemberRole godoc
// @Summary      Change a member's role
// @Tags         Workspaces
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        userId path string true "User ID"
// @Param        request body MemberRoleRequest true "Role"
// @Success      200 {object} MessageResponse
// @Router       /workspaces/{id}/members/{userId} [put]
func (h *WorkspaceHandler) UpdateMemberRole(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	var req MemberRoleRequest
	if !bind(c, &req) {
		return
	}
	if err := h.workspaces.UpdateMemberRole(c.Request.Context(), actor, workspaceID, userID, req.Role); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Member role updated successfully"})
}

// RemoveMember godoc
// @Summary      Remove a member from the workspace
// @Tags         Workspaces
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        userId path string true "User ID"
// @Success      200 {object} MessageResponse
// @Router       /workspaces/{id}/members/{userId} [delete]
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	if err := h.workspaces.RemoveMember(c.Request.Context(), actor, workspaceID, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Member removed successfully"})
}

// Leave godoc
// @Summary      Leave a workspace
// @Tags         Workspaces
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Success      200 {object} MessageResponse
// @Router       /workspaces/{id}/leave [post]
func (h *WorkspaceHandler) Leave(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.workspaces.Leave(c.Request.Context(), actor, workspaceID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Left workspace successfully"})
}

// History godoc
// @Summary      Workspace audit trail, newest first
// @Tags         Workspaces
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        limit query int false "Maximum entries (default 100, max 500)"
// @Success      200 {array} model.HistoryLog
// @Router       /workspaces/{id}/history [get]
func (h *WorkspaceHandler) History(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid limit", Code: string(apperr.KindInvalid)})
			return
		}
		limit = n
	}

	entries, err := h.workspaces.History(c.Request.Context(), actor, workspaceID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if entries == nil {
		entries = []model.HistoryLog{}
	}
	c.JSON(http.StatusOK, entries)
}
