package model

import "github.com/google/uuid"

// Backlog is owned 1:1 by a project. Its activity and sprint lists are not
// stored columns; they are read from the placement fields of Activity and
// the state flags of Sprint.
type Backlog struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`

	Activities      []Activity `gorm:"-" json:"activities"`
	Sprints         []Sprint   `gorm:"-" json:"sprints"`
	FinishedSprints []Sprint   `gorm:"-" json:"finished_sprints"`
}
