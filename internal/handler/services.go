package handler

import (
	"context"

	"workhub/internal/model"
	"workhub/internal/service"

	"github.com/google/uuid"
)

type WorkspaceService interface {
	Create(ctx context.Context, actor uuid.UUID, in service.WorkspaceInput) (*model.Workspace, error)
	List(ctx context.Context, actor uuid.UUID) ([]model.Workspace, error)
	Get(ctx context.Context, actor, workspaceID uuid.UUID) (*model.Workspace, error)
	Update(ctx context.Context, actor, workspaceID uuid.UUID, in service.WorkspaceUpdate) (*model.Workspace, error)
	TransferOwnership(ctx context.Context, actor, workspaceID, newOwner uuid.UUID) error
	UpdateMemberRole(ctx context.Context, actor, workspaceID, userID uuid.UUID, role model.WorkspaceRole) error
	RemoveMember(ctx context.Context, actor, workspaceID, userID uuid.UUID) error
	Leave(ctx context.Context, actor, workspaceID uuid.UUID) error
	History(ctx context.Context, actor, workspaceID uuid.UUID, limit int) ([]model.HistoryLog, error)
}

type ProjectService interface {
	Create(ctx context.Context, actor, workspaceID uuid.UUID, in service.ProjectInput) (*model.Project, error)
	Get(ctx context.Context, actor, projectID uuid.UUID) (*model.Project, error)
	Update(ctx context.Context, actor, projectID uuid.UUID, in service.ProjectUpdate) (*model.Project, error)
	AddMember(ctx context.Context, actor, projectID, userID uuid.UUID, role model.ProjectRole) (*model.ProjectMember, error)
	RemoveMember(ctx context.Context, actor, projectID, userID uuid.UUID) error
	Backlog(ctx context.Context, actor, projectID uuid.UUID) (*model.Backlog, error)
}

type SchedulerService interface {
	CreateSprint(ctx context.Context, actor, projectID uuid.UUID, in service.SprintInput) (*model.Sprint, error)
	GetSprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error)
	AddActivityToSprint(ctx context.Context, actor, sprintID, activityID uuid.UUID) (*model.Activity, error)
	ReturnActivityToBacklog(ctx context.Context, actor, projectID, activityID uuid.UUID) (*model.Activity, error)
	StartSprint(ctx context.Context, actor, sprintID uuid.UUID, in service.SprintInput) (*model.Sprint, error)
	FinishSprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error)
	ArchiveEmptySprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error)
}

type ActivityService interface {
	Create(ctx context.Context, actor, projectID uuid.UUID, in service.ActivityInput) (*model.Activity, error)
	Get(ctx context.Context, actor, activityID uuid.UUID) (*model.Activity, error)
	Update(ctx context.Context, actor, activityID uuid.UUID, in service.ActivityUpdate) (*model.Activity, error)
	ToggleArchive(ctx context.Context, actor, activityID uuid.UUID) (*model.Activity, error)
	AddSubtask(ctx context.Context, actor, activityID uuid.UUID, title string) (*model.Activity, error)
	ToggleSubtask(ctx context.Context, actor, activityID uuid.UUID, index int) (*model.Activity, error)
	Delete(ctx context.Context, actor, activityID uuid.UUID) error
	AddComment(ctx context.Context, actor, activityID uuid.UUID, body string) (*model.Comment, error)
	DeleteComment(ctx context.Context, actor, activityID, commentID uuid.UUID) error
}

type CascadeService interface {
	DeleteProject(ctx context.Context, actor, projectID uuid.UUID) error
	DeleteWorkspace(ctx context.Context, actor, workspaceID uuid.UUID) error
}

type InvitationService interface {
	Invite(ctx context.Context, actor, workspaceID uuid.UUID, in service.InviteInput) (*model.Invitation, error)
	AcceptInvite(ctx context.Context, actor uuid.UUID, token string) (*model.WorkspaceMember, error)
	DeclineInvite(ctx context.Context, actor uuid.UUID, token string) error
	RevokeInvite(ctx context.Context, actor, workspaceID, invitationID uuid.UUID) error
	ListInvitations(ctx context.Context, actor, workspaceID uuid.UUID) ([]model.Invitation, error)
	RequestJoin(ctx context.Context, actor, workspaceID uuid.UUID, message string) (*model.Invitation, error)
	AcceptJoinRequestToken(ctx context.Context, actor uuid.UUID, token string) (*model.WorkspaceMember, error)
	AcceptJoinRequest(ctx context.Context, actor, workspaceID, requestID uuid.UUID) (*model.WorkspaceMember, error)
	RejectJoinRequestToken(ctx context.Context, actor uuid.UUID, token, reason string) error
	RejectJoinRequest(ctx context.Context, actor, workspaceID, requestID uuid.UUID, reason string) error
	ListJoinRequests(ctx context.Context, actor, workspaceID uuid.UUID, status model.GrantStatus) ([]model.Invitation, error)
}

type UserService interface {
	Me(ctx context.Context, actor uuid.UUID) (*service.Profile, error)
}
