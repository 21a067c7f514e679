package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workhub/internal/apperr"
	"workhub/internal/audit"
	"workhub/internal/auth"
	"workhub/internal/lock"
	"workhub/internal/membership"
	"workhub/internal/model"
	"workhub/internal/repository"

	"github.com/google/uuid"
)

type InviteInput struct {
	Email   string
	UserID  uuid.UUID
	Role    model.WorkspaceRole
	Message string
}

// InvitationService runs both membership workflows: admin-issued invites
// and user-initiated join requests. The two share one record type and one
// token format and differ in who decides and what happens to the record.
type InvitationService struct {
	base
}

func NewInvitationService(deps Deps) *InvitationService {
	return &InvitationService{base: newBase(deps)}
}

// Invite issues a 7-day invite token for a user who is not yet a member.
func (s *InvitationService) Invite(ctx context.Context, actor, workspaceID uuid.UUID, in InviteInput) (*model.Invitation, error) {
	role := in.Role
	if role == "" {
		role = model.WorkspaceRoleMember
	}
	if !role.Valid() || role == model.WorkspaceRoleOwner {
		return nil, apperr.Invalid("cannot invite with role %q", role)
	}
	invitee, err := s.resolveInvitee(ctx, in)
	if err != nil {
		return nil, err
	}

	var invitation *model.Invitation
	var workspace *model.Workspace
	err = s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		var err error
		if workspace, err = tx.Workspaces.GetByID(ctx, workspaceID); err != nil {
			return err
		}
		guard := membership.For(tx)
		if _, err := guard.RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceInvite); err != nil {
			return err
		}
		if err := s.requireNotMember(ctx, guard, workspaceID, invitee.ID); err != nil {
			return err
		}
		if err := s.clearExpired(ctx, tx, model.GrantInvite, workspaceID, invitee.ID, "an invitation is already pending for this user"); err != nil {
			return err
		}
		invitation, err = s.issue(ctx, tx, model.GrantInvite, workspaceID, invitee.ID, role, actor, in.Message)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "invitation.created",
		Resource:    model.ResourceInvitation,
		ResourceID:  invitation.ID,
		Details:     map[string]any{"user": invitee.ID.String(), "role": string(role)},
	})
	if s.Notifier != nil {
		s.Notifier.Notify(invitee.Email,
			fmt.Sprintf("You're invited to %s", workspace.Name),
			inviteBody(workspace.Name, role, in.Message, invitation.Token),
		)
	}
	return invitation, nil
}

// AcceptInvite consumes an invite token held by the invitee. The invite
// record is deleted last, so a failure leaves it in place for a retry.
func (s *InvitationService) AcceptInvite(ctx context.Context, actor uuid.UUID, token string) (*model.WorkspaceMember, error) {
	claims, err := s.verify(token, model.GrantInvite)
	if err != nil {
		return nil, err
	}
	if claims.UserID != actor {
		return nil, apperr.Forbidden("this invitation was issued to another user")
	}

	var member *model.WorkspaceMember
	var invitation *model.Invitation
	err = s.atomically(ctx, lock.WorkspaceKey(claims.WorkspaceID), func(tx *repository.Repositories) error {
		if _, err := tx.Workspaces.GetByID(ctx, claims.WorkspaceID); err != nil {
			return err
		}
		if err := s.requireNotMember(ctx, membership.For(tx), claims.WorkspaceID, actor); err != nil {
			return err
		}
		var err error
		if invitation, err = s.pendingByToken(ctx, tx, token); err != nil {
			return err
		}
		if member, err = s.join(ctx, tx, invitation); err != nil {
			return err
		}
		return tx.Invitations.Delete(ctx, invitation.ID)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: claims.WorkspaceID,
		Action:      "invitation.accepted",
		Resource:    model.ResourceInvitation,
		ResourceID:  invitation.ID,
		Details:     map[string]any{"role": string(member.Role), "invited_by": invitation.IssuedBy.String()},
	})
	return member, nil
}

// DeclineInvite lets the invitee discard their invite.
func (s *InvitationService) DeclineInvite(ctx context.Context, actor uuid.UUID, token string) error {
	claims, err := s.verify(token, model.GrantInvite)
	if err != nil {
		return err
	}
	if claims.UserID != actor {
		return apperr.Forbidden("this invitation was issued to another user")
	}

	var invitation *model.Invitation
	err = s.atomically(ctx, lock.WorkspaceKey(claims.WorkspaceID), func(tx *repository.Repositories) error {
		var err error
		if invitation, err = tx.Invitations.GetByToken(ctx, token); err != nil {
			return err
		}
		return tx.Invitations.Delete(ctx, invitation.ID)
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: claims.WorkspaceID,
		Action:      "invitation.declined",
		Resource:    model.ResourceInvitation,
		ResourceID:  invitation.ID,
	})
	s.notifyUser(ctx, invitation.IssuedBy, "Invitation declined", "Your invitation was declined.")
	return nil
}

// RevokeInvite deletes a pending invite before it is used.
func (s *InvitationService) RevokeInvite(ctx context.Context, actor, workspaceID, invitationID uuid.UUID) error {
	var invitation *model.Invitation
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		if _, err := membership.For(tx).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceInvite); err != nil {
			return err
		}
		var err error
		if invitation, err = s.recordInWorkspace(ctx, tx, model.GrantInvite, workspaceID, invitationID); err != nil {
			return err
		}
		return tx.Invitations.Delete(ctx, invitation.ID)
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "invitation.revoked",
		Resource:    model.ResourceInvitation,
		ResourceID:  invitationID,
		Details:     map[string]any{"user": invitation.UserID.String()},
	})
	return nil
}

func (s *InvitationService) ListInvitations(ctx context.Context, actor, workspaceID uuid.UUID) ([]model.Invitation, error) {
	return s.list(ctx, actor, workspaceID, model.GrantInvite, model.GrantPending)
}

// RequestJoin files a join request for a non-member and notifies the
// workspace's owner and admins.
func (s *InvitationService) RequestJoin(ctx context.Context, actor, workspaceID uuid.UUID, message string) (*model.Invitation, error) {
	var request *model.Invitation
	var workspace *model.Workspace
	var deciders []model.WorkspaceMember
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		var err error
		if workspace, err = tx.Workspaces.GetByID(ctx, workspaceID); err != nil {
			return err
		}
		if err := s.requireNotMember(ctx, membership.For(tx), workspaceID, actor); err != nil {
			return err
		}
		if err := s.clearExpired(ctx, tx, model.GrantJoinRequest, workspaceID, actor, "you already have a pending join request"); err != nil {
			return err
		}
		if request, err = s.issue(ctx, tx, model.GrantJoinRequest, workspaceID, actor, model.WorkspaceRoleMember, actor, strings.TrimSpace(message)); err != nil {
			return err
		}
		deciders, err = tx.Members.ListByRoles(ctx, workspaceID, model.WorkspaceRoleOwner, model.WorkspaceRoleAdmin)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "join_request.created",
		Resource:    model.ResourceJoinRequest,
		ResourceID:  request.ID,
	})
	for _, decider := range deciders {
		s.notifyUser(ctx, decider.UserID,
			fmt.Sprintf("New join request for %s", workspace.Name),
			joinRequestBody(workspace.Name, request.Message, request.Token),
		)
	}
	return request, nil
}

// AcceptJoinRequestToken admits the requester named by the token. The
// request record is removed.
func (s *InvitationService) AcceptJoinRequestToken(ctx context.Context, actor uuid.UUID, token string) (*model.WorkspaceMember, error) {
	claims, err := s.verify(token, model.GrantJoinRequest)
	if err != nil {
		return nil, err
	}
	return s.acceptJoin(ctx, actor, claims.WorkspaceID, claims.UserID, func(tx *repository.Repositories) (*model.Invitation, error) {
		return s.pendingByToken(ctx, tx, token)
	}, true)
}

// AcceptJoinRequest admits the requester by request id. The record stays
// with status accepted.
func (s *InvitationService) AcceptJoinRequest(ctx context.Context, actor, workspaceID, requestID uuid.UUID) (*model.WorkspaceMember, error) {
	return s.acceptJoin(ctx, actor, workspaceID, uuid.Nil, func(tx *repository.Repositories) (*model.Invitation, error) {
		request, err := s.recordInWorkspace(ctx, tx, model.GrantJoinRequest, workspaceID, requestID)
		if err != nil {
			return nil, err
		}
		return request, s.requireDecidable(request)
	}, false)
}

// acceptJoin checks membership of a known requester before touching the
// record, so a replayed token reports Conflict even after the record is gone.
func (s *InvitationService) acceptJoin(ctx context.Context, actor, workspaceID, requester uuid.UUID, find func(tx *repository.Repositories) (*model.Invitation, error), consume bool) (*model.WorkspaceMember, error) {
	var request *model.Invitation
	var member *model.WorkspaceMember
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		if _, err := tx.Workspaces.GetByID(ctx, workspaceID); err != nil {
			return err
		}
		guard := membership.For(tx)
		if _, err := guard.RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceInvite); err != nil {
			return err
		}
		if requester != uuid.Nil {
			if err := s.requireNotMember(ctx, guard, workspaceID, requester); err != nil {
				return err
			}
		}
		var err error
		if request, err = find(tx); err != nil {
			return err
		}
		if err := s.requireNotMember(ctx, guard, workspaceID, request.UserID); err != nil {
			return err
		}
		if member, err = s.join(ctx, tx, request); err != nil {
			return err
		}
		if consume {
			return tx.Invitations.Delete(ctx, request.ID)
		}
		s.resolve(request, model.GrantAccepted, actor, "")
		return tx.Invitations.Update(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       request.UserID,
		WorkspaceID: workspaceID,
		Action:      "join_request.joined",
		Resource:    model.ResourceJoinRequest,
		ResourceID:  request.ID,
		Details:     map[string]any{"accepted_by": actor.String()},
	})
	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "join_request.accepted",
		Resource:    model.ResourceJoinRequest,
		ResourceID:  request.ID,
		Details:     map[string]any{"user": request.UserID.String()},
	})
	s.notifyUser(ctx, request.UserID, "Join request accepted", "Your request to join the workspace was accepted.")
	return member, nil
}

// RejectJoinRequestToken deletes the request named by the token.
func (s *InvitationService) RejectJoinRequestToken(ctx context.Context, actor uuid.UUID, token, reason string) error {
	claims, err := s.verify(token, model.GrantJoinRequest)
	if err != nil {
		return err
	}
	return s.rejectJoin(ctx, actor, claims.WorkspaceID, reason, func(tx *repository.Repositories) (*model.Invitation, error) {
		return s.pendingByToken(ctx, tx, token)
	}, true)
}

// RejectJoinRequest marks the request rejected and keeps it with the reason.
func (s *InvitationService) RejectJoinRequest(ctx context.Context, actor, workspaceID, requestID uuid.UUID, reason string) error {
	return s.rejectJoin(ctx, actor, workspaceID, reason, func(tx *repository.Repositories) (*model.Invitation, error) {
		request, err := s.recordInWorkspace(ctx, tx, model.GrantJoinRequest, workspaceID, requestID)
		if err != nil {
			return nil, err
		}
		if request.Status != model.GrantPending {
			return nil, apperr.Conflict("join request was already %s", request.Status)
		}
		return request, nil
	}, false)
}

func (s *InvitationService) rejectJoin(ctx context.Context, actor, workspaceID uuid.UUID, reason string, find func(tx *repository.Repositories) (*model.Invitation, error), consume bool) error {
	reason = strings.TrimSpace(reason)
	var request *model.Invitation
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		if _, err := membership.For(tx).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceInvite); err != nil {
			return err
		}
		var err error
		if request, err = find(tx); err != nil {
			return err
		}
		if consume {
			return tx.Invitations.Delete(ctx, request.ID)
		}
		s.resolve(request, model.GrantRejected, actor, reason)
		return tx.Invitations.Update(ctx, request)
	})
	if err != nil {
		return err
	}

	details := map[string]any{"user": request.UserID.String()}
	if reason != "" {
		details["reason"] = reason
	}
	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "join_request.rejected",
		Resource:    model.ResourceJoinRequest,
		ResourceID:  request.ID,
		Details:     details,
	})
	body := "Your request to join the workspace was rejected."
	if reason != "" {
		body += "\n\nReason: " + reason
	}
	s.notifyUser(ctx, request.UserID, "Join request rejected", body)
	return nil
}

// ListJoinRequests lists the workspace's join requests, optionally by status.
func (s *InvitationService) ListJoinRequests(ctx context.Context, actor, workspaceID uuid.UUID, status model.GrantStatus) ([]model.Invitation, error) {
	switch status {
	case "", model.GrantPending, model.GrantAccepted, model.GrantRejected:
	default:
		return nil, apperr.Invalid("unknown join request status %q", status)
	}
	return s.list(ctx, actor, workspaceID, model.GrantJoinRequest, status)
}

func (s *InvitationService) list(ctx context.Context, actor, workspaceID uuid.UUID, kind model.GrantKind, status model.GrantStatus) ([]model.Invitation, error) {
	if _, err := s.Repos.Workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, storeErr(err, "get workspace")
	}
	if _, err := membership.For(s.Repos).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceInvite); err != nil {
		return nil, err
	}
	records, err := s.Repos.Invitations.List(ctx, kind, workspaceID, status)
	if err != nil {
		return nil, storeErr(err, "list "+string(kind))
	}
	return records, nil
}

func (s *InvitationService) resolveInvitee(ctx context.Context, in InviteInput) (*model.User, error) {
	if in.UserID != uuid.Nil {
		user, err := s.Repos.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return nil, storeErr(err, "get invitee")
		}
		return user, nil
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, apperr.Invalid("invitee email or user id is required")
	}
	user, err := s.Repos.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err, "find invitee")
	}
	if user == nil {
		return nil, apperr.NotFound("no user with email %s", email)
	}
	return user, nil
}

// verify checks the token and its kind. Expired tokens are a failed
// precondition, anything else unreadable is a bad argument.
func (s *InvitationService) verify(token string, kind model.GrantKind) (*auth.GrantClaims, error) {
	if token == "" {
		return nil, apperr.Invalid("token is required")
	}
	claims, err := s.Grants.Verify(token)
	if errors.Is(err, auth.ErrExpiredToken) {
		return nil, apperr.PreconditionFailed("this %s has expired", describe(kind))
	}
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindInvalid, Message: "invalid " + describe(kind) + " token", Err: err}
	}
	if claims.Kind != string(kind) {
		return nil, apperr.Invalid("token is not a %s token", describe(kind))
	}
	return claims, nil
}

func (s *InvitationService) requireNotMember(ctx context.Context, guard *membership.Guard, workspaceID, userID uuid.UUID) error {
	isMember, err := guard.IsWorkspaceMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if isMember {
		return apperr.Conflict("user is already a member of this workspace")
	}
	return nil
}

// clearExpired enforces one live record per (kind, workspace, user). An
// expired pending record is deleted so a new one can be issued.
func (s *InvitationService) clearExpired(ctx context.Context, tx *repository.Repositories, kind model.GrantKind, workspaceID, userID uuid.UUID, duplicate string) error {
	existing, err := tx.Invitations.FindPending(ctx, kind, workspaceID, userID)
	if repository.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Live(s.Now()) {
		return apperr.Conflict("%s", duplicate)
	}
	return tx.Invitations.Delete(ctx, existing.ID)
}

func (s *InvitationService) issue(ctx context.Context, tx *repository.Repositories, kind model.GrantKind, workspaceID, userID uuid.UUID, role model.WorkspaceRole, issuer uuid.UUID, message string) (*model.Invitation, error) {
	token, expiresAt, err := s.Grants.Sign(string(kind), userID, workspaceID, string(role))
	if err != nil {
		return nil, apperr.Internal(err, "sign "+string(kind))
	}
	record := &model.Invitation{
		Kind:        kind,
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		Status:      model.GrantPending,
		Token:       token,
		IssuedBy:    issuer,
		Message:     message,
		ExpiresAt:   expiresAt,
	}
	if err := tx.Invitations.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// pendingByToken loads a record that can still be acted on.
func (s *InvitationService) pendingByToken(ctx context.Context, tx *repository.Repositories, token string) (*model.Invitation, error) {
	record, err := tx.Invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return record, s.requireDecidable(record)
}

func (s *InvitationService) requireDecidable(record *model.Invitation) error {
	if record.Status != model.GrantPending {
		return apperr.Conflict("%s was already %s", describe(record.Kind), record.Status)
	}
	if record.Expired(s.Now()) {
		return apperr.PreconditionFailed("this %s has expired", describe(record.Kind))
	}
	return nil
}

func (s *InvitationService) recordInWorkspace(ctx context.Context, tx *repository.Repositories, kind model.GrantKind, workspaceID, id uuid.UUID) (*model.Invitation, error) {
	record, err := tx.Invitations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Kind != kind || record.WorkspaceID != workspaceID {
		return nil, apperr.NotFound("%s %s not found in this workspace", describe(kind), id)
	}
	return record, nil
}

func (s *InvitationService) join(ctx context.Context, tx *repository.Repositories, record *model.Invitation) (*model.WorkspaceMember, error) {
	member := &model.WorkspaceMember{
		WorkspaceID: record.WorkspaceID,
		UserID:      record.UserID,
		Role:        record.Role,
		JoinedAt:    s.Now(),
	}
	if err := tx.Members.Add(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *InvitationService) resolve(record *model.Invitation, status model.GrantStatus, by uuid.UUID, reason string) {
	now := s.Now()
	record.Status = status
	record.ResolvedBy = &by
	record.ResolvedAt = &now
	record.Reason = reason
}

func describe(kind model.GrantKind) string {
	if kind == model.GrantJoinRequest {
		return "join request"
	}
	return "invitation"
}

func inviteBody(workspace string, role model.WorkspaceRole, message, token string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You have been invited to join %s as %s.\n", workspace, role)
	if message != "" {
		fmt.Fprintf(&b, "\n%s\n", message)
	}
	fmt.Fprintf(&b, "\nAccept with this token (valid for 7 days):\n%s\n", token)
	return b.String()
}

func joinRequestBody(workspace, message, token string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A user asked to join %s.\n", workspace)
	if message != "" {
		fmt.Fprintf(&b, "\n%s\n", message)
	}
	fmt.Fprintf(&b, "\nAccept or reject with this token:\n%s\n", token)
	return b.String()
}
