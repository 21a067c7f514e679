package membership

import "workhub/internal/model"

type Action string

const (
	WorkspaceView          Action = "workspace.view"
	WorkspaceSettings      Action = "workspace.settings"
	WorkspaceDelete        Action = "workspace.delete"
	WorkspaceTransfer      Action = "workspace.transfer"
	WorkspaceInvite        Action = "workspace.invite"
	WorkspaceManageMembers Action = "workspace.manage_members"
	WorkspaceCreateProject Action = "workspace.create_project"
	WorkspaceSprint        Action = "workspace.sprint"

	ProjectView          Action = "project.view"
	ProjectSchedule      Action = "project.schedule"
	ProjectEdit          Action = "project.edit"
	ProjectDelete        Action = "project.delete"
	ProjectManageMembers Action = "project.manage_members"
)

// CanWorkspace reports whether a workspace role may perform action.
func CanWorkspace(role model.WorkspaceRole, action Action) bool {
	if !role.Valid() {
		return false
	}
	switch action {
	case WorkspaceView, WorkspaceSprint:
		return true
	case WorkspaceSettings, WorkspaceInvite, WorkspaceManageMembers:
		return role == model.WorkspaceRoleOwner || role == model.WorkspaceRoleAdmin
	case WorkspaceDelete, WorkspaceTransfer:
		return role == model.WorkspaceRoleOwner
	case WorkspaceCreateProject:
		return role != model.WorkspaceRoleViewer
	default:
		return false
	}
}

// CanProject reports whether a project role may perform action.
func CanProject(role model.ProjectRole, action Action) bool {
	if !role.Valid() {
		return false
	}
	switch action {
	case ProjectView:
		return true
	case ProjectEdit, ProjectSchedule:
		return role == model.ProjectRoleManager || role == model.ProjectRoleContributor
	case ProjectDelete, ProjectManageMembers:
		return role == model.ProjectRoleManager
	default:
		return false
	}
}
