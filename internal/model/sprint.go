package model

import (
	"time"

	"github.com/google/uuid"
)

type SprintDuration string

const (
	SprintDurationOneWeek    SprintDuration = "1 week"
	SprintDurationTwoWeeks   SprintDuration = "2 weeks"
	SprintDurationThreeWeeks SprintDuration = "3 weeks"
	SprintDurationFourWeeks  SprintDuration = "4 weeks"
	SprintDurationCustom     SprintDuration = "custom"
)

// Weeks reports the fixed length of the duration, or 0 for custom.
func (d SprintDuration) Weeks() int {
	switch d {
	case SprintDurationOneWeek:
		return 1
	case SprintDurationTwoWeeks:
		return 2
	case SprintDurationThreeWeeks:
		return 3
	case SprintDurationFourWeeks:
		return 4
	}
	return 0
}

func (d SprintDuration) Valid() bool {
	return d == SprintDurationCustom || d.Weeks() > 0
}

type SprintState string

const (
	SprintPlanned       SprintState = "planned"
	SprintStarted       SprintState = "started"
	SprintFinished      SprintState = "finished"
	SprintArchivedEmpty SprintState = "archived"
)

type Sprint struct {
	Base
	BacklogID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"backlog_id"`
	Name       string         `gorm:"not null" json:"name"`
	Duration   SprintDuration `gorm:"type:varchar(16)" json:"duration"`
	StartDay   *time.Time     `json:"start_day,omitempty"`
	FinishDay  *time.Time     `json:"finish_day,omitempty"`
	Goal       string         `json:"goal"`
	IsStarted  bool           `gorm:"not null" json:"is_started"`
	IsFinished bool           `gorm:"not null" json:"is_finished"`
	IsArchived bool           `gorm:"not null" json:"is_archived"`
	CreatedBy  uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	StartedBy  *uuid.UUID     `gorm:"type:uuid" json:"started_by,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`

	Activities []Activity `gorm:"-" json:"activities"`
}

func (s *Sprint) State() SprintState {
	switch {
	case s.IsFinished:
		return SprintFinished
	case s.IsArchived:
		return SprintArchivedEmpty
	case s.IsStarted:
		return SprintStarted
	}
	return SprintPlanned
}
