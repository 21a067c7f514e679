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

type ProjectInput struct {
	Name        string
	Description string
	Status      model.ProjectStatus
}

type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *model.ProjectStatus
}

type ProjectService struct {
	base
}

func NewProjectService(deps Deps) *ProjectService {
	return &ProjectService{base: newBase(deps)}
}

// Create makes the project, its backlog and the creator's manager
// membership in one transaction.
func (s *ProjectService) Create(ctx context.Context, actor, workspaceID uuid.UUID, in ProjectInput) (*model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalid("project name is required")
	}
	status := in.Status
	if status == "" {
		status = model.ProjectStatusPlanning
	}
	if !status.Valid() {
		return nil, apperr.Invalid("unknown project status %q", status)
	}

	project := &model.Project{
		Base:        model.Base{ID: uuid.New()},
		WorkspaceID: workspaceID,
		BacklogID:   uuid.New(),
		Name:        name,
		Description: in.Description,
		Status:      status,
		CreatedBy:   actor,
	}
	err := s.atomically(ctx, lock.WorkspaceKey(workspaceID), func(tx *repository.Repositories) error {
		if _, err := tx.Workspaces.GetByID(ctx, workspaceID); err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceCreateProject); err != nil {
			return err
		}
		if err := tx.Projects.Create(ctx, project); err != nil {
			return err
		}
		backlog := &model.Backlog{Base: model.Base{ID: project.BacklogID}, ProjectID: project.ID}
		if err := tx.Backlogs.Create(ctx, backlog); err != nil {
			return err
		}
		manager := model.ProjectMember{ProjectID: project.ID, UserID: actor, Role: model.ProjectRoleManager}
		if err := tx.ProjectMembers.Add(ctx, &manager); err != nil {
			return err
		}
		project.Members = []model.ProjectMember{manager}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "project.created",
		Resource:    model.ResourceProject,
		ResourceID:  project.ID,
		Details:     map[string]any{"name": project.Name, "backlog": project.BacklogID.String()},
	})
	return project, nil
}

func (s *ProjectService) Get(ctx context.Context, actor, projectID uuid.UUID) (*model.Project, error) {
	project, err := s.Repos.Projects.GetWithMembers(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "get project")
	}
	if err := requireProjectView(ctx, membership.For(s.Repos), project, actor); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, actor, projectID uuid.UUID, in ProjectUpdate) (*model.Project, error) {
	project, err := s.Repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "get project")
	}
	err = s.atomically(ctx, lock.BacklogKey(project.BacklogID), func(tx *repository.Repositories) error {
		if _, err := membership.For(tx).RequireProject(ctx, projectID, actor, membership.ProjectEdit); err != nil {
			return err
		}
		current, err := tx.Projects.GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Invalid("project name cannot be empty")
			}
			current.Name = name
		}
		if in.Description != nil {
			current.Description = *in.Description
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				return apperr.Invalid("unknown project status %q", *in.Status)
			}
			current.Status = *in.Status
		}
		project = current
		return tx.Projects.Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "project.updated",
		Resource:    model.ResourceProject,
		ResourceID:  project.ID,
		Details:     map[string]any{"name": project.Name, "status": string(project.Status)},
	})
	return project, nil
}

// AddMember adds an existing workspace member to the project.
func (s *ProjectService) AddMember(ctx context.Context, actor, projectID, userID uuid.UUID, role model.ProjectRole) (*model.ProjectMember, error) {
	if role == "" {
		role = model.ProjectRoleContributor
	}
	if !role.Valid() {
		return nil, apperr.Invalid("unknown project role %q", role)
	}
	project, err := s.Repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "get project")
	}

	member := &model.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	err = s.atomicallyAll(ctx, projectMemberKeys(project), func(tx *repository.Repositories) error {
		guard := membership.For(tx)
		if _, err := guard.RequireProject(ctx, projectID, actor, membership.ProjectManageMembers); err != nil {
			return err
		}
		inWorkspace, err := guard.IsWorkspaceMember(ctx, project.WorkspaceID, userID)
		if err != nil {
			return err
		}
		if !inWorkspace {
			return apperr.PreconditionFailed("user must be a workspace member before joining a project")
		}
		already, err := guard.IsProjectMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if already {
			return apperr.Conflict("user is already a project member")
		}
		return tx.ProjectMembers.Add(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "project.member_added",
		Resource:    model.ResourceProject,
		ResourceID:  projectID,
		Details:     map[string]any{"user": userID.String(), "role": string(role)},
	})
	return member, nil
}

// RemoveMember drops a project member. The last manager stays.
func (s *ProjectService) RemoveMember(ctx context.Context, actor, projectID, userID uuid.UUID) error {
	project, err := s.Repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return storeErr(err, "get project")
	}
	err = s.atomicallyAll(ctx, projectMemberKeys(project), func(tx *repository.Repositories) error {
		if _, err := membership.For(tx).RequireProject(ctx, projectID, actor, membership.ProjectManageMembers); err != nil {
			return err
		}
		target, err := tx.ProjectMembers.Get(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if target.Role == model.ProjectRoleManager {
			managers, err := tx.ProjectMembers.CountByRole(ctx, projectID, model.ProjectRoleManager)
			if err != nil {
				return err
			}
			if managers <= 1 {
				return apperr.PreconditionFailed("a project needs at least one manager")
			}
		}
		return tx.ProjectMembers.Remove(ctx, projectID, userID)
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "project.member_removed",
		Resource:    model.ResourceProject,
		ResourceID:  projectID,
		Details:     map[string]any{"user": userID.String()},
	})
	return nil
}

// projectMemberKeys covers the workspace member list, which workspace
// removals prune, as well as the project itself.
func projectMemberKeys(project *model.Project) []string {
	return []string{lock.WorkspaceKey(project.WorkspaceID), lock.BacklogKey(project.BacklogID)}
}

// Backlog returns the project's backlog with its unscheduled activities,
// active sprints and finished sprints, each sprint carrying its activities.
func (s *ProjectService) Backlog(ctx context.Context, actor, projectID uuid.UUID) (*model.Backlog, error) {
	project, err := s.Repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "get project")
	}
	if err := requireProjectView(ctx, membership.For(s.Repos), project, actor); err != nil {
		return nil, err
	}
	backlog, err := loadBacklog(ctx, s.Repos, project.BacklogID)
	if err != nil {
		return nil, storeErr(err, "load backlog")
	}
	return backlog, nil
}

func loadBacklog(ctx context.Context, repos *repository.Repositories, backlogID uuid.UUID) (*model.Backlog, error) {
	backlog, err := repos.Backlogs.GetByID(ctx, backlogID)
	if err != nil {
		return nil, err
	}
	backlog.Activities, err = repos.Activities.ListOnBacklog(ctx, backlogID)
	if err != nil {
		return nil, err
	}

	sprints, err := repos.Sprints.ListByBacklog(ctx, backlogID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(sprints))
	for _, sprint := range sprints {
		ids = append(ids, sprint.ID)
	}
	placed, err := repos.Activities.ListInSprints(ctx, ids)
	if err != nil {
		return nil, err
	}
	bySprint := make(map[uuid.UUID][]model.Activity, len(sprints))
	for _, activity := range placed {
		bySprint[*activity.SprintID] = append(bySprint[*activity.SprintID], activity)
	}

	backlog.Sprints = []model.Sprint{}
	backlog.FinishedSprints = []model.Sprint{}
	for _, sprint := range sprints {
		sprint.Activities = bySprint[sprint.ID]
		if sprint.Activities == nil {
			sprint.Activities = []model.Activity{}
		}
		switch sprint.State() {
		case model.SprintFinished:
			backlog.FinishedSprints = append(backlog.FinishedSprints, sprint)
		case model.SprintPlanned, model.SprintStarted:
			backlog.Sprints = append(backlog.Sprints, sprint)
		}
	}
	if backlog.Activities == nil {
		backlog.Activities = []model.Activity{}
	}
	return backlog, nil
}

// requireProjectView admits project members and members of the owning
// workspace.
func requireProjectView(ctx context.Context, guard *membership.Guard, project *model.Project, actor uuid.UUID) error {
	isMember, err := guard.IsProjectMember(ctx, project.ID, actor)
	if err != nil {
		return apperr.Internal(err, "load project membership")
	}
	if isMember {
		return nil
	}
	_, err = guard.RequireWorkspace(ctx, project.WorkspaceID, actor, membership.WorkspaceView)
	return err
}
