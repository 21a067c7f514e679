package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"workhub/internal/apperr"
	"workhub/internal/audit"
	"workhub/internal/lock"
	"workhub/internal/membership"
	"workhub/internal/model"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// deleteChunkSize bounds the id list of a single DELETE ... IN statement.
const deleteChunkSize = 500

type deletion struct {
	name string
	run  func(ctx context.Context) error
}

// tier holds deletions that may run concurrently. Tiers run leaf first.
type tier []deletion

// descendants is the id set owned by one or more projects.
type descendants struct {
	projects   []uuid.UUID
	backlogs   []uuid.UUID
	sprints    []uuid.UUID
	activities []uuid.UUID
	comments   []uuid.UUID
}

// Cascade removes a project or workspace and everything it owns. Tiers are
// not one transaction: a failing tier stops the run and leaves the
// remaining rows for a retry. History is never deleted.
type Cascade struct {
	base
}

func NewCascade(deps Deps) *Cascade {
	return &Cascade{base: newBase(deps)}
}

func (c *Cascade) DeleteProject(ctx context.Context, actor, projectID uuid.UUID) error {
	project, err := c.Repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return storeErr(err, "get project")
	}

	release, err := c.acquireAll(ctx, lock.WorkspaceKey(project.WorkspaceID), lock.BacklogKey(project.BacklogID))
	if err != nil {
		return err
	}
	defer release()

	if _, err := membership.For(c.Repos).RequireProject(ctx, projectID, actor, membership.ProjectDelete); err != nil {
		return err
	}

	d, err := c.resolve(ctx, []uuid.UUID{projectID})
	if err != nil {
		return storeErr(err, "resolve project descendants")
	}
	tiers := c.projectTiers(d)
	if err := c.run(ctx, tiers); err != nil {
		return err
	}

	c.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: project.WorkspaceID,
		Action:      "project.deleted",
		Resource:    model.ResourceProject,
		ResourceID:  projectID,
		Details:     d.counts(project.Name),
	})
	return nil
}

func (c *Cascade) DeleteWorkspace(ctx context.Context, actor, workspaceID uuid.UUID) error {
	workspace, err := c.Repos.Workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return storeErr(err, "get workspace")
	}

	releaseWorkspace, err := c.acquire(ctx, lock.WorkspaceKey(workspaceID))
	if err != nil {
		return err
	}
	defer releaseWorkspace()

	if _, err := membership.For(c.Repos).RequireWorkspace(ctx, workspaceID, actor, membership.WorkspaceDelete); err != nil {
		return err
	}

	// Project creation holds the workspace lock, so this list is final.
	projects, err := c.Repos.Projects.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return storeErr(err, "list workspace projects")
	}
	projectIDs, backlogKeys := backlogLockOrder(projects)
	releaseBacklogs, err := c.acquireAll(ctx, backlogKeys...)
	if err != nil {
		return err
	}
	defer releaseBacklogs()

	d, err := c.resolve(ctx, projectIDs)
	if err != nil {
		return storeErr(err, "resolve workspace descendants")
	}

	tiers := c.projectTiers(d)
	tiers = append(tiers,
		tier{
			{name: "invitations", run: func(ctx context.Context) error {
				return c.Repos.Invitations.DeleteByWorkspace(ctx, workspaceID)
			}},
			{name: "workspace_members", run: func(ctx context.Context) error {
				return c.Repos.Members.DeleteByWorkspace(ctx, workspaceID)
			}},
		},
		tier{
			{name: "workspace", run: func(ctx context.Context) error {
				return c.Repos.Workspaces.Delete(ctx, workspaceID)
			}},
		},
	)
	if err := c.run(ctx, tiers); err != nil {
		return err
	}

	c.record(ctx, audit.Entry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      "workspace.deleted",
		Resource:    model.ResourceWorkspace,
		ResourceID:  workspaceID,
		Details:     d.counts(workspace.Name),
	})
	return nil
}

// resolve walks the ownership chain bottom-up from the given projects.
func (c *Cascade) resolve(ctx context.Context, projectIDs []uuid.UUID) (descendants, error) {
	d := descendants{projects: projectIDs}
	var err error
	if d.backlogs, err = c.Repos.Backlogs.IDsByProjects(ctx, projectIDs); err != nil {
		return d, err
	}
	if d.sprints, err = c.Repos.Sprints.IDsByBacklogs(ctx, d.backlogs); err != nil {
		return d, err
	}
	if d.activities, err = c.Repos.Activities.IDsByBacklogs(ctx, d.backlogs); err != nil {
		return d, err
	}
	if d.comments, err = c.Repos.Comments.IDsByActivities(ctx, d.activities); err != nil {
		return d, err
	}
	return d, nil
}

func (c *Cascade) projectTiers(d descendants) []tier {
	return []tier{
		chunked("comments", d.comments, c.Repos.Comments.DeleteByIDs),
		chunked("activities", d.activities, c.Repos.Activities.DeleteByIDs),
		chunked("sprints", d.sprints, c.Repos.Sprints.DeleteByIDs),
		chunked("backlogs", d.backlogs, c.Repos.Backlogs.DeleteByIDs),
		chunked("project_members", d.projects, c.Repos.ProjectMembers.DeleteByProjects),
		chunked("projects", d.projects, c.Repos.Projects.DeleteByIDs),
	}
}

// run executes tiers in order. Deletions inside a tier run concurrently up
// to DeleteParallelism; every failure in the tier is collected before the
// run stops.
func (c *Cascade) run(ctx context.Context, tiers []tier) error {
	for i, t := range tiers {
		var (
			mu   sync.Mutex
			errs *multierror.Error
		)
		g := new(errgroup.Group)
		g.SetLimit(c.DeleteParallelism)
		for _, del := range t {
			del := del
			g.Go(func() error {
				if err := del.run(ctx); err != nil {
					mu.Lock()
					errs = multierror.Append(errs, fmt.Errorf("delete %s: %w", del.name, err))
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := errs.ErrorOrNil(); err != nil {
			c.Logger.ErrorContext(ctx, "cascade delete stopped; leaf records may remain",
				"tier", i,
				"tiers", len(tiers),
				"error", err,
			)
			return apperr.Internal(err, "cascade delete")
		}
	}
	return nil
}

func chunked(name string, ids []uuid.UUID, del func(ctx context.Context, ids []uuid.UUID) error) tier {
	var t tier
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := min(start+deleteChunkSize, len(ids))
		chunk := ids[start:end]
		t = append(t, deletion{name: name, run: func(ctx context.Context) error {
			return del(ctx, chunk)
		}})
	}
	return t
}

func (d descendants) counts(name string) map[string]any {
	return map[string]any{
		"name":       name,
		"projects":   len(d.projects),
		"sprints":    len(d.sprints),
		"activities": len(d.activities),
		"comments":   len(d.comments),
	}
}

// backlogLockOrder returns the project ids and their backlog lock keys,
// sorted by backlog id so concurrent callers lock in the same order.
func backlogLockOrder(projects []model.Project) ([]uuid.UUID, []string) {
	sorted := slices.Clone(projects)
	slices.SortFunc(sorted, func(a, b model.Project) int {
		return bytes.Compare(a.BacklogID[:], b.BacklogID[:])
	})
	ids := make([]uuid.UUID, 0, len(sorted))
	keys := make([]string, 0, len(sorted))
	for _, p := range sorted {
		ids = append(ids, p.ID)
		keys = append(keys, lock.BacklogKey(p.BacklogID))
	}
	return ids, keys
}
