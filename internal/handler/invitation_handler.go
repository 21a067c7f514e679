package handler

import (
	"log/slog"
	"net/http"

	"workhub/internal/model"
	"workhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvitationHandler serves both membership workflows. Tokens travel in the
// request body, never in the URL.
type InvitationHandler struct {
	invitations InvitationService
	logger      *slog.Logger
}

func NewInvitationHandler(invitations InvitationService, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, logger: logger}
}

// InviteRequest names the invitee by email or user id.
type InviteRequest struct {
	Email   string              `json:"email" binding:"omitempty,email"`
	UserID  uuid.UUID           `json:"user_id"`
	Role    model.WorkspaceRole `json:"role"`
	Message string              `json:"message"`
}

type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type RejectTokenRequest struct {
	Token  string `json:"token" binding:"required"`
	Reason string `json:"reason"`
}

type JoinRequestRequest struct {
	Message string `json:"message"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// Invite godoc
// @Summary      Invite a user into the workspace
// @Tags         Invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        request body InviteRequest true "Invitee"
// @Success      201 {object} model.Invitation
// @Failure      409 {object} ErrorResponse
// @Router       /workspaces/{id}/invite-member [post]
func (h *InvitationHandler) Invite(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req InviteRequest
	if !bind(c, &req) {
		return
	}

	invitation, err := h.invitations.Invite(c.Request.Context(), actor, workspaceID, service.InviteInput{
		Email:   req.Email,
		UserID:  req.UserID,
		Role:    req.Role,
		Message: req.Message,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, invitation)
}

// ListInvitations godoc
// @Summary      List pending invitations
// @Tags         Invitations
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Success      200 {array} model.Invitation
// @Router       /workspaces/{id}/invitations [get]
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	invitations, err := h.invitations.ListInvitations(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(invitations))
}

// RevokeInvite godoc
// @Summary      Revoke a pending invitation
// @Tags         Invitations
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        invitationId path string true "Invitation ID"
// @Success      200 {object} MessageResponse
// @Router       /workspaces/{id}/invitations/{invitationId} [delete]
func (h *InvitationHandler) RevokeInvite(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	invitationID, ok := uuidParam(c, "invitationId")
	if !ok {
		return
	}
	if err := h.invitations.RevokeInvite(c.Request.Context(), actor, workspaceID, invitationID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Invitation revoked successfully"})
}

// AcceptInvite godoc
// @Summary      Accept an invitation token
// @Tags         Invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body TokenRequest true "Invite token"
// @Success      200 {object} model.WorkspaceMember
// @Failure      412 {object} ErrorResponse
// @Router       /workspaces/accept-invite-token [post]
func (h *InvitationHandler) AcceptInvite(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req TokenRequest
	if !bind(c, &req) {
		return
	}
	member, err := h.invitations.AcceptInvite(c.Request.Context(), actor, req.Token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// DeclineInvite godoc
// @Summary      Decline an invitation token
// @Tags         Invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body TokenRequest true "Invite token"
// @Success      200 {object} MessageResponse
// @Router       /workspaces/decline-invite-token [post]
func (h *InvitationHandler) DeclineInvite(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req TokenRequest
	if !bind(c, &req) {
		return
	}
	if err := h.invitations.DeclineInvite(c.Request.Context(), actor, req.Token); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Invitation declined"})
}

// RequestJoin godoc
// @Summary      Ask to join a workspace
// @Tags         Invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        request body JoinRequestRequest false "Message for the admins"
// @Success      201 {object} model.Invitation
// @Failure      409 {object} ErrorResponse
// @Router       /workspaces/{id}/join-request [post]
func (h *InvitationHandler) RequestJoin(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req JoinRequestRequest
	if !bind(c, &req) {
		return
	}
	request, err := h.invitations.RequestJoin(c.Request.Context(), actor, workspaceID, req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// ListJoinRequests godoc
// @Summary      List join requests
// @Tags         Invitations
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        status query string false "pending, accepted or rejected"
// @Success      200 {array} model.Invitation
// @Router       /workspaces/{id}/join-requests [get]
func (h *InvitationHandler) ListJoinRequests(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	requests, err := h.invitations.ListJoinRequests(c.Request.Context(), actor, workspaceID, model.GrantStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(requests))
}

// AcceptJoinRequest godoc
// @Summary      Accept a join request by id
// @Tags         Invitations
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        requestId path string true "Join request ID"
// @Success      200 {object} model.WorkspaceMember
// @Router       /workspaces/{id}/join-requests/{requestId}/accept [post]
func (h *InvitationHandler) AcceptJoinRequest(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "requestId")
	if !ok {
		return
	}
	member, err := h.invitations.AcceptJoinRequest(c.Request.Context(), actor, workspaceID, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// RejectJoinRequest godoc
// @Summary      Reject a join request by id
// @Tags         Invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Param        requestId path string true "Join request ID"
// @Param        request body RejectRequest false "Reason"
// @Success      200 {object} MessageResponse
// @Router       /workspaces/{id}/join-requests/{requestId}/reject [post]
func (h *InvitationHandler) RejectJoinRequest(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "requestId")
	if !ok {
		return
	}
	var req RejectRequest
	if !bind(c, &req) {
		return
	}
	if err := h.invitations.RejectJoinRequest(c.Request.Context(), actor, workspaceID, requestID, req.Reason); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Join request rejected"})
}

// AcceptJoinRequestToken godoc
// @Summary      Accept a join request token
// @Tags         Invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body TokenRequest true "Join request token"
// @Success      200 {object} model.WorkspaceMember
// @Router       /workspaces/accept-join-request-token [post]
func (h *InvitationHandler) AcceptJoinRequestToken(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req TokenRequest
	if !bind(c, &req) {
		return
	}
	member, err := h.invitations.AcceptJoinRequestToken(c.Request.Context(), actor, req.Token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// RejectJoinRequestToken godoc
// @Summary      Reject a join request token
// @Tags         Invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body RejectTokenRequest true "Join request token"
// @Success      200 {object} MessageResponse
// @Router       /workspaces/reject-join-request-token [post]
func (h *InvitationHandler) RejectJoinRequestToken(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req RejectTokenRequest
	if !bind(c, &req) {
		return
	}
	if err := h.invitations.RejectJoinRequestToken(c.Request.Context(), actor, req.Token, req.Reason); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Join request rejected"})
}

func orEmpty(invitations []model.Invitation) []model.Invitation {
	if invitations == nil {
		return []model.Invitation{}
	}
	return invitations
}
