// Package membership answers who belongs to a workspace or project and
// whether their role permits an action.
package membership

import (
	"context"
	"errors"

	"workhub/internal/apperr"
	"workhub/internal/model"
	"workhub/internal/repository"

	"github.com/google/uuid"
)

type WorkspaceMembers interface {
	Get(ctx context.Context, workspaceID, userID uuid.UUID) (*model.WorkspaceMember, error)
}

type ProjectMembers interface {
	Get(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error)
}

// Guard is a pure read over member lists. Build one per *repository.Repositories
// so checks inside a transaction read through that transaction.
type Guard struct {
	workspaces WorkspaceMembers
	projects   ProjectMembers
}

func NewGuard(workspaces WorkspaceMembers, projects ProjectMembers) *Guard {
	return &Guard{workspaces: workspaces, projects: projects}
}

func For(repos *repository.Repositories) *Guard {
	return NewGuard(repos.Members, repos.ProjectMembers)
}

// WorkspaceRole returns the actor's role, or "" when not a member.
func (g *Guard) WorkspaceRole(ctx context.Context, workspaceID, actor uuid.UUID) (model.WorkspaceRole, error) {
	member, err := g.workspaces.Get(ctx, workspaceID, actor)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (g *Guard) IsWorkspaceMember(ctx context.Context, workspaceID, actor uuid.UUID) (bool, error) {
	role, err := g.WorkspaceRole(ctx, workspaceID, actor)
	return role != "", err
}

// ProjectRole returns the actor's project role, or "" when not a member.
func (g *Guard) ProjectRole(ctx context.Context, projectID, actor uuid.UUID) (model.ProjectRole, error) {
	member, err := g.projects.Get(ctx, projectID, actor)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (g *Guard) IsProjectMember(ctx context.Context, projectID, actor uuid.UUID) (bool, error) {
	role, err := g.ProjectRole(ctx, projectID, actor)
	return role != "", err
}

// RequireWorkspace fails with Forbidden unless the actor is a member whose
// role permits action.
func (g *Guard) RequireWorkspace(ctx context.Context, workspaceID, actor uuid.UUID, action Action) (model.WorkspaceRole, error) {
	role, err := g.WorkspaceRole(ctx, workspaceID, actor)
	if err != nil {
		return "", apperr.Internal(err, "load workspace membership")
	}
	if role == "" {
		return "", apperr.Forbidden("you are not a member of this workspace")
	}
	if !CanWorkspace(role, action) {
		return role, apperr.Forbidden("role %q may not perform %s", role, action)
	}
	return role, nil
}

// RequireProject is RequireWorkspace for project roles.
func (g *Guard) RequireProject(ctx context.Context, projectID, actor uuid.UUID, action Action) (model.ProjectRole, error) {
	role, err := g.ProjectRole(ctx, projectID, actor)
	if err != nil {
		return "", apperr.Internal(err, "load project membership")
	}
	if role == "" {
		return "", apperr.Forbidden("you are not a member of this project")
	}
	if !CanProject(role, action) {
		return role, apperr.Forbidden("role %q may not perform %s", role, action)
	}
	return role, nil
}
