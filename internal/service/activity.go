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
	"gorm.io/datatypes"
)

type ActivityInput struct {
	Title       string
	Description string
	TypeOf      model.ActivityType
	Status      model.ActivityStatus
	Priority    model.Priority
	Assignees   []uuid.UUID
}

type ActivityUpdate struct {
	Title       *string
	Description *string
	TypeOf      *model.ActivityType
	Status      *model.ActivityStatus
	Priority    *model.Priority
	Assignees   *[]uuid.UUID
	Watchers    *[]uuid.UUID
}

// ActivityService covers the activity fields, comments and subtasks. It
// shares the backlog lock with the Scheduler.
type ActivityService struct {
	base
}

func NewActivityService(deps Deps) *ActivityService {
	return &ActivityService{base: newBase(deps)}
}

// Create adds an activity at the end of the project's backlog.
func (s *ActivityService) Create(ctx context.Context, actor, projectID uuid.UUID, in ActivityInput) (*model.Activity, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Invalid("activity title is required")
	}
	activity := &model.Activity{
		ProjectID:   projectID,
		Title:       title,
		Description: in.Description,
		TypeOf:      orDefault(in.TypeOf, model.ActivityTask),
		Status:      orDefault(in.Status, model.ActivityToDo),
		Priority:    orDefault(in.Priority, model.PriorityMedium),
		Assignees:   datatypes.JSONSlice[uuid.UUID](dedupe(in.Assignees)),
		Watchers:    datatypes.JSONSlice[uuid.UUID]{},
		Subtasks:    datatypes.JSONSlice[model.Subtask]{},
		CreatedBy:   actor,
	}
	if err := validateActivityEnums(activity); err != nil {
		return nil, err
	}

	project, err := s.Repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "get project")
	}
	activity.BacklogID = project.BacklogID

	err = s.atomically(ctx, lock.BacklogKey(project.BacklogID), func(tx *repository.Repositories) error {
		guard := membership.For(tx)
		if _, err := guard.RequireProject(ctx, projectID, actor, membership.ProjectEdit); err != nil {
			return err
		}
		if err := requireProjectMembers(ctx, guard, projectID, activity.Assignees, "assignee"); err != nil {
			return err
		}
		position, err := tx.Activities.NextBacklogPosition(ctx, project.BacklogID)
		if err != nil {
			return err
		}
		activity.PlaceOnBacklog(position)
		return tx.Activities.Create(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "activity.created",
		Resource:    model.ResourceActivity,
		ResourceID:  activity.ID,
		Details:     map[string]any{"title": activity.Title, "type": string(activity.TypeOf)},
	})
	return activity, nil
}

// Get returns the activity with its comments.
func (s *ActivityService) Get(ctx context.Context, actor, activityID uuid.UUID) (*model.Activity, error) {
	activity, project, err := s.load(ctx, s.Repos, activityID)
	if err != nil {
		return nil, err
	}
	if err := requireProjectView(ctx, membership.For(s.Repos), project, actor); err != nil {
		return nil, err
	}
	activity.Comments, err = s.Repos.Comments.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, storeErr(err, "list comments")
	}
	return activity, nil
}

func (s *ActivityService) Update(ctx context.Context, actor, activityID uuid.UUID, in ActivityUpdate) (*model.Activity, error) {
	return s.mutate(ctx, actor, activityID, membership.ProjectEdit, "activity.updated",
		func(ctx context.Context, tx *repository.Repositories, activity *model.Activity) (map[string]any, error) {
			if in.Title != nil {
				title := strings.TrimSpace(*in.Title)
				if title == "" {
					return nil, apperr.Invalid("activity title cannot be empty")
				}
				activity.Title = title
			}
			if in.Description != nil {
				activity.Description = *in.Description
			}
			if in.TypeOf != nil {
				activity.TypeOf = *in.TypeOf
			}
			if in.Status != nil {
				activity.Status = *in.Status
			}
			if in.Priority != nil {
				activity.Priority = *in.Priority
			}
			if err := validateActivityEnums(activity); err != nil {
				return nil, err
			}
			guard := membership.For(tx)
			if in.Assignees != nil {
				assignees := dedupe(*in.Assignees)
				if err := requireProjectMembers(ctx, guard, activity.ProjectID, assignees, "assignee"); err != nil {
					return nil, err
				}
				activity.Assignees = assignees
			}
			if in.Watchers != nil {
				watchers := dedupe(*in.Watchers)
				if err := requireProjectMembers(ctx, guard, activity.ProjectID, watchers, "watcher"); err != nil {
					return nil, err
				}
				activity.Watchers = watchers
			}
			return map[string]any{"title": activity.Title, "status": string(activity.Status)}, nil
		})
}

// ToggleArchive archives an activity, taking it off the backlog and out of
// any sprint, or restores an archived one to the end of its backlog.
func (s *ActivityService) ToggleArchive(ctx context.Context, actor, activityID uuid.UUID) (*model.Activity, error) {
	return s.mutate(ctx, actor, activityID, membership.ProjectEdit, "",
		func(ctx context.Context, tx *repository.Repositories, activity *model.Activity) (map[string]any, error) {
			if activity.IsArchived {
				position, err := tx.Activities.NextBacklogPosition(ctx, activity.BacklogID)
				if err != nil {
					return nil, err
				}
				activity.IsArchived = false
				activity.PlaceOnBacklog(position)
				return nil, nil
			}
			details := map[string]any{}
			if activity.SprintID != nil {
				details["sprint"] = activity.SprintID.String()
			}
			activity.IsArchived = true
			activity.Unplace()
			return details, nil
		})
}

func (s *ActivityService) AddSubtask(ctx context.Context, actor, activityID uuid.UUID, title string) (*model.Activity, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Invalid("subtask title is required")
	}
	return s.mutate(ctx, actor, activityID, membership.ProjectEdit, "activity.subtask_added",
		func(ctx context.Context, tx *repository.Repositories, activity *model.Activity) (map[string]any, error) {
			activity.Subtasks = append(activity.Subtasks, model.Subtask{Title: title})
			return map[string]any{"subtask": title}, nil
		})
}

func (s *ActivityService) ToggleSubtask(ctx context.Context, actor, activityID uuid.UUID, index int) (*model.Activity, error) {
	return s.mutate(ctx, actor, activityID, membership.ProjectEdit, "activity.subtask_toggled",
		func(ctx context.Context, tx *repository.Repositories, activity *model.Activity) (map[string]any, error) {
			if index < 0 || index >= len(activity.Subtasks) {
				return nil, apperr.NotFound("subtask %d does not exist", index)
			}
			activity.Subtasks[index].Completed = !activity.Subtasks[index].Completed
			return map[string]any{
				"subtask":   activity.Subtasks[index].Title,
				"completed": activity.Subtasks[index].Completed,
			}, nil
		})
}

// Delete removes the activity and its comments.
func (s *ActivityService) Delete(ctx context.Context, actor, activityID uuid.UUID) error {
	activity, project, err := s.load(ctx, s.Repos, activityID)
	if err != nil {
		return err
	}
	err = s.atomically(ctx, lock.BacklogKey(activity.BacklogID), func(tx *repository.Repositories) error {
		if _, err := membership.For(tx).RequireProject(ctx, project.ID, actor, membership.ProjectEdit); err != nil {
			return err
		}
		if err := tx.Comments.DeleteByActivity(ctx, activityID); err != nil {
			return err
		}
		return tx.Activities.Delete(ctx, activityID)
	})
	if err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "activity.deleted",
		Resource:    model.ResourceActivity,
		ResourceID:  activityID,
		Details:     map[string]any{"title": activity.Title},
	})
	return nil
}

// AddComment lets any project member comment.
func (s *ActivityService) AddComment(ctx context.Context, actor, activityID uuid.UUID, body string) (*model.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Invalid("comment body is required")
	}
	activity, project, err := s.load(ctx, s.Repos, activityID)
	if err != nil {
		return nil, err
	}
	if _, err := membership.For(s.Repos).RequireProject(ctx, project.ID, actor, membership.ProjectView); err != nil {
		return nil, err
	}

	comment := &model.Comment{ActivityID: activity.ID, AuthorID: actor, Body: body}
	if err := s.Repos.Comments.Create(ctx, comment); err != nil {
		return nil, storeErr(err, "create comment")
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "comment.created",
		Resource:    model.ResourceComment,
		ResourceID:  comment.ID,
		Details:     map[string]any{"activity": activity.ID.String()},
	})
	return comment, nil
}

// DeleteComment is allowed to the comment's author and project managers.
func (s *ActivityService) DeleteComment(ctx context.Context, actor, activityID, commentID uuid.UUID) error {
	_, project, err := s.load(ctx, s.Repos, activityID)
	if err != nil {
		return err
	}
	comment, err := s.Repos.Comments.GetByID(ctx, commentID)
	if err != nil {
		return storeErr(err, "get comment")
	}
	if comment.ActivityID != activityID {
		return apperr.NotFound("comment %s does not belong to activity %s", commentID, activityID)
	}
	if comment.AuthorID != actor {
		if _, err := membership.For(s.Repos).RequireProject(ctx, project.ID, actor, membership.ProjectManageMembers); err != nil {
			return apperr.Forbidden("only the author or a project manager can delete this comment")
		}
	}
	if err := s.Repos.Comments.Delete(ctx, commentID); err != nil {
		return storeErr(err, "delete comment")
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "comment.deleted",
		Resource:    model.ResourceComment,
		ResourceID:  commentID,
		Details:     map[string]any{"activity": activityID.String()},
	})
	return nil
}

type activityMutation func(ctx context.Context, tx *repository.Repositories, activity *model.Activity) (map[string]any, error)

// mutate runs fn on a freshly loaded activity under the backlog lock and
// saves the result. An empty action records archive or unarchive
// depending on the outcome.
func (s *ActivityService) mutate(ctx context.Context, actor, activityID uuid.UUID, perm membership.Action, action string, fn activityMutation) (*model.Activity, error) {
	activity, project, err := s.load(ctx, s.Repos, activityID)
	if err != nil {
		return nil, err
	}

	var details map[string]any
	err = s.atomically(ctx, lock.BacklogKey(activity.BacklogID), func(tx *repository.Repositories) error {
		if _, err := membership.For(tx).RequireProject(ctx, project.ID, actor, perm); err != nil {
			return err
		}
		current, err := tx.Activities.GetByID(ctx, activityID)
		if err != nil {
			return err
		}
		if details, err = fn(ctx, tx, current); err != nil {
			return err
		}
		activity = current
		return tx.Activities.Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	if action == "" {
		if activity.IsArchived {
			action = "activity.archived"
		} else {
			action = "activity.unarchived"
		}
	}
	s.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      action,
		Resource:    model.ResourceActivity,
		ResourceID:  activityID,
		Details:     details,
	})
	return activity, nil
}

func (s *ActivityService) load(ctx context.Context, repos *repository.Repositories, activityID uuid.UUID) (*model.Activity, *model.Project, error) {
	activity, err := repos.Activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, nil, storeErr(err, "get activity")
	}
	project, err := repos.Projects.GetByID(ctx, activity.ProjectID)
	if err != nil {
		return nil, nil, storeErr(err, "get project")
	}
	return activity, project, nil
}

func validateActivityEnums(a *model.Activity) error {
	if !a.TypeOf.Valid() {
		return apperr.Invalid("unknown activity type %q", a.TypeOf)
	}
	if !a.Status.Valid() {
		return apperr.Invalid("unknown activity status %q", a.Status)
	}
	if !a.Priority.Valid() {
		return apperr.Invalid("unknown priority %q", a.Priority)
	}
	return nil
}

func requireProjectMembers(ctx context.Context, guard *membership.Guard, projectID uuid.UUID, users []uuid.UUID, what string) error {
	for _, userID := range users {
		ok, err := guard.IsProjectMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Invalid("%s %s is not a project member", what, userID)
		}
	}
	return nil
}

func orDefault[T ~string](value, fallback T) T {
	if value == "" {
		return fallback
	}
	return value
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
