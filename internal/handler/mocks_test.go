package handler_test

import (
	"context"

	"workhub/internal/model"
	"workhub/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockWorkspaceService struct {
	mock.Mock
}

func (m *MockWorkspaceService) Create(ctx context.Context, actor uuid.UUID, in service.WorkspaceInput) (*model.Workspace, error) {
	args := m.Called(ctx, actor, in)
	if w := args.Get(0); w != nil {
		return w.(*model.Workspace), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWorkspaceService) List(ctx context.Context, actor uuid.UUID) ([]model.Workspace, error) {
	args := m.Called(ctx, actor)
	list, _ := args.Get(0).([]model.Workspace)
	return list, args.Error(1)
}

func (m *MockWorkspaceService) Get(ctx context.Context, actor, workspaceID uuid.UUID) (*model.Workspace, error) {
	args := m.Called(ctx, actor, workspaceID)
	if w := args.Get(0); w != nil {
		return w.(*model.Workspace), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWorkspaceService) Update(ctx context.Context, actor, workspaceID uuid.UUID, in service.WorkspaceUpdate) (*model.Workspace, error) {
	args := m.Called(ctx, actor, workspaceID, in)
	if w := args.Get(0); w != nil {
		return w.(*model.Workspace), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWorkspaceService) TransferOwnership(ctx context.Context, actor, workspaceID, newOwner uuid.UUID) error {
	return m.Called(ctx, actor, workspaceID, newOwner).Error(0)
}

func (m *MockWorkspaceService) UpdateMemberRole(ctx context.Context, actor, workspaceID, userID uuid.UUID, role model.WorkspaceRole) error {
	return m.Called(ctx, actor, workspaceID, userID, role).Error(0)
}

func (m *MockWorkspaceService) RemoveMember(ctx context.Context, actor, workspaceID, userID uuid.UUID) error {
	return m.Called(ctx, actor, workspaceID, userID).Error(0)
}

func (m *MockWorkspaceService) Leave(ctx context.Context, actor, workspaceID uuid.UUID) error {
	return m.Called(ctx, actor, workspaceID).Error(0)
}

func (m *MockWorkspaceService) History(ctx context.Context, actor, workspaceID uuid.UUID, limit int) ([]model.HistoryLog, error) {
	args := m.Called(ctx, actor, workspaceID, limit)
	list, _ := args.Get(0).([]model.HistoryLog)
	return list, args.Error(1)
}

type MockCascade struct {
	mock.Mock
}

func (m *MockCascade) DeleteProject(ctx context.Context, actor, projectID uuid.UUID) error {
	return m.Called(ctx, actor, projectID).Error(0)
}

func (m *MockCascade) DeleteWorkspace(ctx context.Context, actor, workspaceID uuid.UUID) error {
	return m.Called(ctx, actor, workspaceID).Error(0)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) sprint(args mock.Arguments) (*model.Sprint, error) {
	if s := args.Get(0); s != nil {
		return s.(*model.Sprint), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockScheduler) activity(args mock.Arguments) (*model.Activity, error) {
	if a := args.Get(0); a != nil {
		return a.(*model.Activity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockScheduler) CreateSprint(ctx context.Context, actor, projectID uuid.UUID, in service.SprintInput) (*model.Sprint, error) {
	return m.sprint(m.Called(ctx, actor, projectID, in))
}

func (m *MockScheduler) GetSprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error) {
	return m.sprint(m.Called(ctx, actor, sprintID))
}

func (m *MockScheduler) AddActivityToSprint(ctx context.Context, actor, sprintID, activityID uuid.UUID) (*model.Activity, error) {
	return m.activity(m.Called(ctx, actor, sprintID, activityID))
}

func (m *MockScheduler) ReturnActivityToBacklog(ctx context.Context, actor, projectID, activityID uuid.UUID) (*model.Activity, error) {
	return m.activity(m.Called(ctx, actor, projectID, activityID))
}

func (m *MockScheduler) StartSprint(ctx context.Context, actor, sprintID uuid.UUID, in service.SprintInput) (*model.Sprint, error) {
	return m.sprint(m.Called(ctx, actor, sprintID, in))
}

func (m *MockScheduler) FinishSprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error) {
	return m.sprint(m.Called(ctx, actor, sprintID))
}

func (m *MockScheduler) ArchiveEmptySprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error) {
	return m.sprint(m.Called(ctx, actor, sprintID))
}

type MockInvitations struct {
	mock.Mock
}

func (m *MockInvitations) member(args mock.Arguments) (*model.WorkspaceMember, error) {
	if wm := args.Get(0); wm != nil {
		return wm.(*model.WorkspaceMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvitations) invitation(args mock.Arguments) (*model.Invitation, error) {
	if inv := args.Get(0); inv != nil {
		return inv.(*model.Invitation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvitations) Invite(ctx context.Context, actor, workspaceID uuid.UUID, in service.InviteInput) (*model.Invitation, error) {
	return m.invitation(m.Called(ctx, actor, workspaceID, in))
}

func (m *MockInvitations) AcceptInvite(ctx context.Context, actor uuid.UUID, token string) (*model.WorkspaceMember, error) {
	return m.member(m.Called(ctx, actor, token))
}

func (m *MockInvitations) DeclineInvite(ctx context.Context, actor uuid.UUID, token string) error {
	return m.Called(ctx, actor, token).Error(0)
}

func (m *MockInvitations) RevokeInvite(ctx context.Context, actor, workspaceID, invitationID uuid.UUID) error {
	return m.Called(ctx, actor, workspaceID, invitationID).Error(0)
}

func (m *MockInvitations) ListInvitations(ctx context.Context, actor, workspaceID uuid.UUID) ([]model.Invitation, error) {
	args := m.Called(ctx, actor, workspaceID)
	list, _ := args.Get(0).([]model.Invitation)
	return list, args.Error(1)
}

func (m *MockInvitations) RequestJoin(ctx context.Context, actor, workspaceID uuid.UUID, message string) (*model.Invitation, error) {
	return m.invitation(m.Called(ctx, actor, workspaceID, message))
}

func (m *MockInvitations) AcceptJoinRequestToken(ctx context.Context, actor uuid.UUID, token string) (*model.WorkspaceMember, error) {
	return m.member(m.Called(ctx, actor, token))
}

func (m *MockInvitations) AcceptJoinRequest(ctx context.Context, actor, workspaceID, requestID uuid.UUID) (*model.WorkspaceMember, error) {
	return m.member(m.Called(ctx, actor, workspaceID, requestID))
}

func (m *MockInvitations) RejectJoinRequestToken(ctx context.Context, actor uuid.UUID, token, reason string) error {
	return m.Called(ctx, actor, token, reason).Error(0)
}

func (m *MockInvitations) RejectJoinRequest(ctx context.Context, actor, workspaceID, requestID uuid.UUID, reason string) error {
	return m.Called(ctx, actor, workspaceID, requestID, reason).Error(0)
}

func (m *MockInvitations) ListJoinRequests(ctx context.Context, actor, workspaceID uuid.UUID, status model.GrantStatus) ([]model.Invitation, error) {
	args := m.Called(ctx, actor, workspaceID, status)
	list, _ := args.Get(0).([]model.Invitation)
	return list, args.Error(1)
}

type MockActivities struct {
	mock.Mock
}

func (m *MockActivities) activity(args mock.Arguments) (*model.Activity, error) {
	if a := args.Get(0); a != nil {
		return a.(*model.Activity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivities) Create(ctx context.Context, actor, projectID uuid.UUID, in service.ActivityInput) (*model.Activity, error) {
	return m.activity(m.Called(ctx, actor, projectID, in))
}

func (m *MockActivities) Get(ctx context.Context, actor, activityID uuid.UUID) (*model.Activity, error) {
	return m.activity(m.Called(ctx, actor, activityID))
}

func (m *MockActivities) Update(ctx context.Context, actor, activityID uuid.UUID, in service.ActivityUpdate) (*model.Activity, error) {
	return m.activity(m.Called(ctx, actor, activityID, in))
}

func (m *MockActivities) ToggleArchive(ctx context.Context, actor, activityID uuid.UUID) (*model.Activity, error) {
	return m.activity(m.Called(ctx, actor, activityID))
}

func (m *MockActivities) AddSubtask(ctx context.Context, actor, activityID uuid.UUID, title string) (*model.Activity, error) {
	return m.activity(m.Called(ctx, actor, activityID, title))
}

func (m *MockActivities) ToggleSubtask(ctx context.Context, actor, activityID uuid.UUID, index int) (*model.Activity, error) {
	return m.activity(m.Called(ctx, actor, activityID, index))
}

func (m *MockActivities) Delete(ctx context.Context, actor, activityID uuid.UUID) error {
	return m.Called(ctx, actor, activityID).Error(0)
}

func (m *MockActivities) AddComment(ctx context.Context, actor, activityID uuid.UUID, body string) (*model.Comment, error) {
	args := m.Called(ctx, actor, activityID, body)
	if c := args.Get(0); c != nil {
		return c.(*model.Comment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivities) DeleteComment(ctx context.Context, actor, activityID, commentID uuid.UUID) error {
	return m.Called(ctx, actor, activityID, commentID).Error(0)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Me(ctx context.Context, actor uuid.UUID) (*service.Profile, error) {
	args := m.Called(ctx, actor)
	if p := args.Get(0); p != nil {
		return p.(*service.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}
