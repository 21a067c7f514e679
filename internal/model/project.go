package model

import "github.com/google/uuid"

type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "Planning"
	ProjectStatusInProgress ProjectStatus = "In Progress"
	ProjectStatusOnHold     ProjectStatus = "On Hold"
	ProjectStatusCompleted  ProjectStatus = "Completed"
	ProjectStatusCancelled  ProjectStatus = "Cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

type ProjectRole string

const (
	ProjectRoleManager     ProjectRole = "manager"
	ProjectRoleContributor ProjectRole = "contributor"
	ProjectRoleViewer      ProjectRole = "viewer"
)

func (r ProjectRole) Valid() bool {
	switch r {
	case ProjectRoleManager, ProjectRoleContributor, ProjectRoleViewer:
		return true
	}
	return false
}

// Project is created together with its backlog and never changes backlog.
type Project struct {
	Base
	WorkspaceID uuid.UUID     `gorm:"type:uuid;not null;index" json:"workspace_id"`
	BacklogID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"backlog_id"`
	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(32);not null" json:"status"`
	CreatedBy   uuid.UUID     `gorm:"type:uuid;not null" json:"created_by"`

	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

type ProjectMember struct {
	Base
	ProjectID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_project_member" json:"project_id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_project_member;index" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(16);not null" json:"role"`
}
