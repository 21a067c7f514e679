package model

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityEpic    ActivityType = "Epic"
	ActivityStory   ActivityType = "Story"
	ActivityTask    ActivityType = "Task"
	ActivitySubtask ActivityType = "Subtask"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityEpic, ActivityStory, ActivityTask, ActivitySubtask:
		return true
	}
	return false
}

type ActivityStatus string

const (
	ActivityToDo       ActivityStatus = "To Do"
	ActivityInProgress ActivityStatus = "In Progress"
	ActivityReview     ActivityStatus = "Review"
	ActivityDone       ActivityStatus = "Done"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityToDo, ActivityInProgress, ActivityReview, ActivityDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Activity always belongs to a backlog. Its placement is one of: on the
// backlog (IsOnBacklog), in SprintID (IsOnSprint), or nowhere while archived.
type Activity struct {
	Base
	BacklogID   uuid.UUID                      `gorm:"type:uuid;not null;index" json:"backlog_id"`
	ProjectID   uuid.UUID                      `gorm:"type:uuid;not null;index" json:"project_id"`
	SprintID    *uuid.UUID                     `gorm:"type:uuid;index" json:"sprint_id,omitempty"`
	Title       string                         `gorm:"not null" json:"title"`
	Description string                         `json:"description"`
	TypeOf      ActivityType                   `gorm:"type:varchar(16);not null" json:"type_of"`
	Status      ActivityStatus                 `gorm:"type:varchar(16);not null" json:"status"`
	Priority    Priority                       `gorm:"type:varchar(16);not null" json:"priority"`
	Assignees   datatypes.JSONSlice[uuid.UUID] `json:"assignees"`
	Watchers    datatypes.JSONSlice[uuid.UUID] `json:"watchers"`
	Subtasks    datatypes.JSONSlice[Subtask]   `json:"subtasks"`
	IsOnBacklog bool                           `gorm:"not null" json:"is_on_backlog"`
	IsOnSprint  bool                           `gorm:"not null" json:"is_on_sprint"`
	IsArchived  bool                           `gorm:"not null" json:"is_archived"`
	Position    int                            `gorm:"not null" json:"position"`
	CreatedBy   uuid.UUID                      `gorm:"type:uuid;not null" json:"created_by"`

	Comments []Comment `gorm:"-" json:"comments,omitempty"`
}

// PlaceOnBacklog puts the activity back into its backlog's unscheduled pool.
func (a *Activity) PlaceOnBacklog(position int) {
	a.SprintID = nil
	a.IsOnBacklog = true
	a.IsOnSprint = false
	a.Position = position
}

func (a *Activity) PlaceInSprint(sprintID uuid.UUID, position int) {
	a.SprintID = &sprintID
	a.IsOnBacklog = false
	a.IsOnSprint = true
	a.Position = position
}

// Unplace removes the activity from both the backlog and any sprint.
func (a *Activity) Unplace() {
	a.SprintID = nil
	a.IsOnBacklog = false
	a.IsOnSprint = false
}

func (a *Activity) IsAssignee(userID uuid.UUID) bool {
	for _, id := range a.Assignees {
		if id == userID {
			return true
		}
	}
	return false
}
