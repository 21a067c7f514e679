package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workhub/internal/apperr"
	"workhub/internal/audit"
	"workhub/internal/lock"
	"workhub/internal/membership"
	"workhub/internal/model"
	"workhub/internal/repository"

	"github.com/google/uuid"
)

// SprintInput carries the editable sprint fields. Nil pointers leave the
// current value in place.
type SprintInput struct {
	Name      *string
	Duration  *model.SprintDuration
	StartDay  *time.Time
	FinishDay *time.Time
	Goal      *string
}

// Scheduler owns activity placement between a backlog and its sprints and
// the sprint state machine. All writes for one backlog are serialized on
// the backlog's lock.
type Scheduler struct {
	base
}

func NewScheduler(deps Deps) *Scheduler {
	return &Scheduler{base: newBase(deps)}
}

// scope is what a sprint or activity operation needs to know about where
// it lives.
type scope struct {
	project *model.Project
	backlog uuid.UUID
}

func (s *Scheduler) projectScope(ctx context.Context, repos *repository.Repositories, backlogID uuid.UUID) (scope, error) {
	backlog, err := repos.Backlogs.GetByID(ctx, backlogID)
	if err != nil {
		return scope{}, err
	}
	project, err := repos.Projects.GetByID(ctx, backlog.ProjectID)
	if err != nil {
		return scope{}, err
	}
	return scope{project: project, backlog: backlogID}, nil
}

// CreateSprint adds an empty Planned sprint to the project's backlog. Any
// workspace member may plan a sprint.
func (s *Scheduler) CreateSprint(ctx context.Context, actor, projectID uuid.UUID, in SprintInput) (*model.Sprint, error) {
	project, err := s.Repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "get project")
	}

	sprint := &model.Sprint{
		BacklogID: project.BacklogID,
		Duration:  model.SprintDurationTwoWeeks,
		CreatedBy: actor,
	}
	if err := applySprintInput(sprint, in); err != nil {
		return nil, err
	}

	err = s.atomically(ctx, lock.BacklogKey(project.BacklogID), func(tx *repository.Repositories) error {
		if _, err := membership.For(tx).RequireWorkspace(ctx, project.WorkspaceID, actor, membership.WorkspaceSprint); err != nil {
			return err
		}
		if sprint.Name == "" {
			existing, err := tx.Sprints.ListByBacklog(ctx, project.BacklogID)
			if err != nil {
				return err
			}
			sprint.Name = fmt.Sprintf("Sprint %d", len(existing)+1)
		}
		return tx.Sprints.Create(ctx, sprint)
	})
	if err != nil {
		return nil, err
	}
	sprint.Activities = []model.Activity{}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "sprint.created",
		Resource:    model.ResourceSprint,
		ResourceID:  sprint.ID,
		Details:     map[string]any{"name": sprint.Name, "project": projectID.String()},
	})
	return sprint, nil
}

// GetSprint returns the sprint with its activities.
func (s *Scheduler) GetSprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error) {
	sprint, err := s.Repos.Sprints.GetByID(ctx, sprintID)
	if err != nil {
		return nil, storeErr(err, "get sprint")
	}
	sc, err := s.projectScope(ctx, s.Repos, sprint.BacklogID)
	if err != nil {
		return nil, storeErr(err, "resolve sprint project")
	}
	if err := requireProjectView(ctx, membership.For(s.Repos), sc.project, actor); err != nil {
		return nil, err
	}
	sprint.Activities, err = s.Repos.Activities.ListInSprints(ctx, []uuid.UUID{sprint.ID})
	if err != nil {
		return nil, storeErr(err, "list sprint activities")
	}
	return sprint, nil
}

// AddActivityToSprint moves an activity from the backlog into the sprint.
// The activity must be on the backlog the sprint belongs to.
func (s *Scheduler) AddActivityToSprint(ctx context.Context, actor, sprintID, activityID uuid.UUID) (*model.Activity, error) {
	sprint, err := s.Repos.Sprints.GetByID(ctx, sprintID)
	if err != nil {
		return nil, storeErr(err, "get sprint")
	}

	var activity *model.Activity
	var sc scope
	err = s.atomically(ctx, lock.BacklogKey(sprint.BacklogID), func(tx *repository.Repositories) error {
		var err error
		if sprint, err = tx.Sprints.GetByID(ctx, sprintID); err != nil {
			return err
		}
		if activity, err = tx.Activities.GetByID(ctx, activityID); err != nil {
			return err
		}
		if activity.BacklogID != sprint.BacklogID {
			return apperr.NotFound("activity %s is not in this sprint's backlog", activityID)
		}
		if sc, err = s.projectScope(ctx, tx, sprint.BacklogID); err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireProject(ctx, sc.project.ID, actor, membership.ProjectSchedule); err != nil {
			return err
		}
		if sprint.IsArchived {
			return apperr.PreconditionFailed("sprint %q is archived", sprint.Name)
		}
		if !activity.IsOnBacklog || activity.IsArchived {
			return apperr.PreconditionFailed("activity is not on the backlog")
		}
		position, err := tx.Activities.NextSprintPosition(ctx, sprint.ID)
		if err != nil {
			return err
		}
		activity.PlaceInSprint(sprint.ID, position)
		return tx.Activities.Update(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: sc.project.WorkspaceID,
		Action:      "activity.added_to_sprint",
		Resource:    model.ResourceActivity,
		ResourceID:  activity.ID,
		Details:     map[string]any{"sprint": sprint.ID.String(), "sprint_name": sprint.Name},
	})
	return activity, nil
}

// ReturnActivityToBacklog moves an activity out of whichever sprint its
// own sprint reference names and back onto the backlog.
func (s *Scheduler) ReturnActivityToBacklog(ctx context.Context, actor, projectID, activityID uuid.UUID) (*model.Activity, error) {
	project, err := s.Repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "get project")
	}

	var activity *model.Activity
	var fromSprint uuid.UUID
	err = s.atomically(ctx, lock.BacklogKey(project.BacklogID), func(tx *repository.Repositories) error {
		var err error
		if activity, err = tx.Activities.GetByID(ctx, activityID); err != nil {
			return err
		}
		if activity.BacklogID != project.BacklogID {
			return apperr.NotFound("activity %s is not in this project's backlog", activityID)
		}
		if _, err := membership.For(tx).RequireProject(ctx, projectID, actor, membership.ProjectSchedule); err != nil {
			return err
		}
		if !activity.IsOnSprint || activity.SprintID == nil {
			return apperr.PreconditionFailed("activity is not in a sprint")
		}
		fromSprint = *activity.SprintID
		position, err := tx.Activities.NextBacklogPosition(ctx, project.BacklogID)
		if err != nil {
			return err
		}
		activity.PlaceOnBacklog(position)
		return tx.Activities.Update(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "activity.returned_to_backlog",
		Resource:    model.ResourceActivity,
		ResourceID:  activity.ID,
		Details:     map[string]any{"sprint": fromSprint.String()},
	})
	return activity, nil
}

// StartSprint starts a Planned sprint, or edits the fields of a Started
// one. Starting needs at least one activity and no other started sprint on
// the backlog.
func (s *Scheduler) StartSprint(ctx context.Context, actor, sprintID uuid.UUID, in SprintInput) (*model.Sprint, error) {
	sprint, err := s.Repos.Sprints.GetByID(ctx, sprintID)
	if err != nil {
		return nil, storeErr(err, "get sprint")
	}

	var sc scope
	var started bool
	err = s.atomically(ctx, lock.BacklogKey(sprint.BacklogID), func(tx *repository.Repositories) error {
		var err error
		if sprint, err = tx.Sprints.GetByID(ctx, sprintID); err != nil {
			return err
		}
		if sc, err = s.projectScope(ctx, tx, sprint.BacklogID); err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireProject(ctx, sc.project.ID, actor, membership.ProjectEdit); err != nil {
			return err
		}

		switch sprint.State() {
		case model.SprintFinished, model.SprintArchivedEmpty:
			return apperr.PreconditionFailed("sprint %q can no longer be changed", sprint.Name)
		case model.SprintStarted:
			if err := applySprintInput(sprint, in); err != nil {
				return err
			}
			return tx.Sprints.Update(ctx, sprint)
		}

		count, err := tx.Activities.CountInSprint(ctx, sprint.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			return apperr.PreconditionFailed("cannot start a sprint with no activities")
		}
		running, err := tx.Sprints.CountStarted(ctx, sprint.BacklogID, sprint.ID)
		if err != nil {
			return err
		}
		if running > 0 {
			return apperr.PreconditionFailed("another sprint is already running on this backlog")
		}

		now := s.Now()
		if in.StartDay == nil && sprint.StartDay == nil {
			in.StartDay = &now
		}
		if err := applySprintInput(sprint, in); err != nil {
			return err
		}
		sprint.IsStarted = true
		sprint.StartedBy = &actor
		sprint.StartedAt = &now
		started = true
		return tx.Sprints.Update(ctx, sprint)
	})
	if err != nil {
		return nil, err
	}

	action := "sprint.updated"
	if started {
		action = "sprint.started"
	}
	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: sc.project.WorkspaceID,
		Action:      action,
		Resource:    model.ResourceSprint,
		ResourceID:  sprint.ID,
		Details:     map[string]any{"name": sprint.Name, "goal": sprint.Goal},
	})
	return sprint, nil
}

// FinishSprint closes a started sprint. Its activities stay attached.
func (s *Scheduler) FinishSprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error) {
	sprint, err := s.Repos.Sprints.GetByID(ctx, sprintID)
	if err != nil {
		return nil, storeErr(err, "get sprint")
	}

	var sc scope
	err = s.atomically(ctx, lock.BacklogKey(sprint.BacklogID), func(tx *repository.Repositories) error {
		var err error
		if sprint, err = tx.Sprints.GetByID(ctx, sprintID); err != nil {
			return err
		}
		if sc, err = s.projectScope(ctx, tx, sprint.BacklogID); err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireProject(ctx, sc.project.ID, actor, membership.ProjectEdit); err != nil {
			return err
		}
		if sprint.State() != model.SprintStarted {
			return apperr.PreconditionFailed("only a started sprint can be finished")
		}
		now := s.Now()
		sprint.IsStarted = false
		sprint.IsFinished = true
		sprint.IsArchived = true
		sprint.FinishedAt = &now
		return tx.Sprints.Update(ctx, sprint)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: sc.project.WorkspaceID,
		Action:      "sprint.finished",
		Resource:    model.ResourceSprint,
		ResourceID:  sprint.ID,
		Details:     map[string]any{"name": sprint.Name},
	})
	return sprint, nil
}

// ArchiveEmptySprint discards a never-started sprint that holds no
// activities. It does not count as finished.
func (s *Scheduler) ArchiveEmptySprint(ctx context.Context, actor, sprintID uuid.UUID) (*model.Sprint, error) {
	sprint, err := s.Repos.Sprints.GetByID(ctx, sprintID)
	if err != nil {
		return nil, storeErr(err, "get sprint")
	}

	var sc scope
	err = s.atomically(ctx, lock.BacklogKey(sprint.BacklogID), func(tx *repository.Repositories) error {
		var err error
		if sprint, err = tx.Sprints.GetByID(ctx, sprintID); err != nil {
			return err
		}
		if sc, err = s.projectScope(ctx, tx, sprint.BacklogID); err != nil {
			return err
		}
		if _, err := membership.For(tx).RequireProject(ctx, sc.project.ID, actor, membership.ProjectEdit); err != nil {
			return err
		}
		if sprint.State() != model.SprintPlanned {
			return apperr.PreconditionFailed("only a planned sprint can be archived")
		}
		count, err := tx.Activities.CountInSprint(ctx, sprint.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.PreconditionFailed("sprint still holds %d activities", count)
		}
		sprint.IsArchived = true
		return tx.Sprints.Update(ctx, sprint)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: sc.project.WorkspaceID,
		Action:      "sprint.archived",
		Resource:    model.ResourceSprint,
		ResourceID:  sprint.ID,
		Details:     map[string]any{"name": sprint.Name},
	})
	return sprint, nil
}

// applySprintInput copies the set fields and derives the finish day of a
// fixed-length sprint that has a start day but no finish day.
func applySprintInput(sprint *model.Sprint, in SprintInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Invalid("sprint name cannot be empty")
		}
		sprint.Name = name
	}
	if in.Duration != nil {
		if !in.Duration.Valid() {
			return apperr.Invalid("unknown sprint duration %q", *in.Duration)
		}
		sprint.Duration = *in.Duration
	}
	if in.Goal != nil {
		sprint.Goal = *in.Goal
	}
	if in.StartDay != nil {
		start := *in.StartDay
		sprint.StartDay = &start
	}
	if in.FinishDay != nil {
		finish := *in.FinishDay
		sprint.FinishDay = &finish
	} else if in.StartDay != nil || in.Duration != nil {
		if weeks := sprint.Duration.Weeks(); weeks > 0 && sprint.StartDay != nil {
			finish := sprint.StartDay.AddDate(0, 0, 7*weeks)
			sprint.FinishDay = &finish
		}
	}
	if sprint.StartDay != nil && sprint.FinishDay != nil && sprint.FinishDay.Before(*sprint.StartDay) {
		return apperr.Invalid("finish day must not be before start day")
	}
	return nil
}
