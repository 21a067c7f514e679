package service

import (
	"context"
	"strings"

	"workhub/internal/apperr"
	"workhub/internal/audit"
	"workhub/internal/lock"
	"workhub/internal/membership"
	"workhub/internal/model"
	"workhub/internal/repository"

	"github.com/google/uuid"
)

const defaultHistoryLimit = 100

type WorkspaceInput struct {
	Name  string
	Color string
}

type WorkspaceUpdate struct {
	Name  *string
	Color *string
}

type WorkspaceService struct {
	base
}

func NewWorkspaceService(deps Deps) *WorkspaceService {
	return &WorkspaceService{base: newBase(deps)}
}

// Create makes the workspace and its single owner membership together.
func (s *WorkspaceService) Create(ctx context.Context, actor uuid.UUID, in WorkspaceInput) (*model.Workspace, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalid("workspace name is required")
	}

	workspace := &model.Workspace{
		Base:    model.Base{ID: uuid.New()},
		Name:    name,
		Color:   in.Color,
		OwnerID: actor,
	}
	err := s.atomically(ctx, lock.WorkspaceKey(workspace.ID), func(tx *repository.Repositories) error {
		if err := tx.Workspaces.Create(ctx, workspace); err != nil {
			return err
		}
		owner := model.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      actor,
			Role:        model.WorkspaceRoleOwner,
			JoinedAt:    s.Now(),
		}
		if err := tx.Members.Add(ctx, &owner); err != nil {
			return err
		}
		workspace.Members = []model.WorkspaceMember{owner}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspace.ID,
		Action:      "workspace.created",
		Resource:    model.ResourceWorkspace,
		ResourceID:  workspace.ID,
		Details:     map[string]any{"name": workspace.Name},
	})
	return workspace, nil
}

func (s *WorkspaceService) List(ctx context.Context, actor uuid.UUID) ([]model.Workspace, error) {
	workspaces, err := s.Repos.Workspaces.ListForUser(ctx, actor)
	if err != nil {
		return nil, storeErr(err, "list workspaces")
	}
	return workspaces, nil
}

// Get returns the workspace with members and projects. Members only.
func (s *WorkspaceService) Get(ctx context.Context, actor, workspaceID uuid.UUID) (*model.Workspace, error) {
	workspace, err := s.Repos.Workspaces.GetDetailed(ctx, workspaceID)
	if err != nil {
		return nil, storeErr(err, "get workspace")
	}
	if _, err := membership.For(s.Repos).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceView); err != nil {
		return nil, err
	}
	return workspace, nil
}

func (s *WorkspaceService) Update(ctx context.Context, actor, workspaceID uuid.UUID, in WorkspaceUpdate) (*model.Workspace, error) {
	var workspace *model.Workspace
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		var err error
		workspace, err = tx.Workspaces.GetByID(ctx, workspaceID)
		if err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceSettings); err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Invalid("workspace name cannot be empty")
			}
			workspace.Name = name
		}
		if in.Color != nil {
			workspace.Color = *in.Color
		}
		return tx.Workspaces.Update(ctx, workspace)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "workspace.updated",
		Resource:    model.ResourceWorkspace,
		ResourceID:  workspaceID,
		Details:     map[string]any{"name": workspace.Name, "color": workspace.Color},
	})
	return workspace, nil
}

// TransferOwnership hands the owner role to an existing member. The
// previous owner stays on as admin.
func (s *WorkspaceService) TransferOwnership(ctx context.Context, actor, workspaceID, newOwner uuid.UUID) error {
	if newOwner == actor {
		return apperr.Invalid("you already own this workspace")
	}
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		workspace, err := tx.Workspaces.GetByID(ctx, workspaceID)
		if err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceTransfer); err != nil {
			return err
		}
		if _, err := tx.Members.Get(ctx, workspaceID, newOwner); err != nil {
			if repository.IsNotFound(err) {
				return apperr.PreconditionFailed("the new owner must already be a workspace member")
			}
			return err
		}
		if err := tx.Members.UpdateRole(ctx, workspaceID, actor, model.WorkspaceRoleAdmin); err != nil {
			return err
		}
		if err := tx.Members.UpdateRole(ctx, workspaceID, newOwner, model.WorkspaceRoleOwner); err != nil {
			return err
		}
		workspace.OwnerID = newOwner
		return tx.Workspaces.Update(ctx, workspace)
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "workspace.ownership_transferred",
		Resource:    model.ResourceWorkspace,
		ResourceID:  workspaceID,
		Details:     map[string]any{"from": actor.String(), "to": newOwner.String()},
	})
	return nil
}

// UpdateMemberRole changes a non-owner member's role. The owner role only
// moves through TransferOwnership.
func (s *WorkspaceService) UpdateMemberRole(ctx context.Context, actor, workspaceID, userID uuid.UUID, role model.WorkspaceRole) error {
	if !role.Valid() {
		return apperr.Invalid("unknown workspace role %q", role)
	}
	if role == model.WorkspaceRoleOwner {
		return apperr.Invalid("use ownership transfer to assign the owner role")
	}
	var previous model.WorkspaceRole
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		if _, err := tx.Workspaces.GetByID(ctx, workspaceID); err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceManageMembers); err != nil {
			return err
		}
		target, err := tx.Members.Get(ctx, workspaceID, userID)
		if err != nil {
			return err
		}
		if target.Role == model.WorkspaceRoleOwner {
			return apperr.PreconditionFailed("the owner's role cannot be changed")
		}
		previous = target.Role
		return tx.Members.UpdateRole(ctx, workspaceID, userID, role)
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "workspace.member_role_changed",
		Resource:    model.ResourceWorkspace,
		ResourceID:  workspaceID,
		Details:     map[string]any{"user": userID.String(), "from": string(previous), "to": string(role)},
	})
	return nil
}

// RemoveMember drops a member and their project memberships in the workspace.
func (s *WorkspaceService) RemoveMember(ctx context.Context, actor, workspaceID, userID uuid.UUID) error {
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		if _, err := tx.Workspaces.GetByID(ctx, workspaceID); err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceManageMembers); err != nil {
			return err
		}
		return removeMember(ctx, tx, workspaceID, userID)
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "workspace.member_removed",
		Resource:    model.ResourceWorkspace,
		ResourceID:  workspaceID,
		Details:     map[string]any{"user": userID.String()},
	})
	return nil
}

func (s *WorkspaceService) Leave(ctx context.Context, actor, workspaceID uuid.UUID) error {
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		if _, err := tx.Workspaces.GetByID(ctx, workspaceID); err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceView); err != nil {
			return err
		}
		return removeMember(ctx, tx, workspaceID, actor)
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "workspace.left",
		Resource:    model.ResourceWorkspace,
		ResourceID:  workspaceID,
	})
	return nil
}

func removeMember(ctx context.Context, tx *repository.Repositories, workspaceID, userID uuid.UUID) error {
	target, err := tx.Members.Get(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if target.Role == model.WorkspaceRoleOwner {
		return apperr.PreconditionFailed("the owner cannot leave or be removed; transfer ownership first")
	}
	if err := tx.ProjectMembers.RemoveFromWorkspace(ctx, workspaceID, userID); err != nil {
		return err
	}
	return tx.Members.Remove(ctx, workspaceID, userID)
}

// History returns the newest audit entries of the workspace.
func (s *WorkspaceService) History(ctx context.Context, actor, workspaceID uuid.UUID, limit int) ([]model.HistoryLog, error) {
	if _, err := s.Repos.Workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, storeErr(err, "get workspace")
	}
	if _, err := membership.For(s.Repos).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceView); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}
	entries, err := s.Repos.History.ListByWorkspace(ctx, workspaceID, limit)
	if err != nil {
		return nil, storeErr(err, "list history")
	}
	return entries, nil
}
