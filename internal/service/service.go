// Package service implements the workspace, project, scheduling, cascade
// and membership-workflow operations. Every operation takes the acting
// user explicitly and returns *apperr.Error for business failures.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"workhub/internal/apperr"
	"workhub/internal/audit"
	"workhub/internal/auth"
	"workhub/internal/lock"
	"workhub/internal/repository"

	"github.com/google/uuid"
)

// Notifier delivers a message without blocking the caller.
type Notifier interface {
	Notify(to, subject, body string)
}

type Deps struct {
	Repos             *repository.Repositories
	Locker            lock.Locker
	Audit             *audit.Recorder
	Notifier          Notifier
	Grants            *auth.GrantSigner
	Logger            *slog.Logger
	Now               func() time.Time
	LockWait          time.Duration
	DeleteParallelism int
}

type base struct {
	Deps
}

func newBase(deps Deps) base {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DeleteParallelism < 1 {
		deps.DeleteParallelism = 1
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewRecorder(deps.Repos.History, deps.Logger)
	}
	return base{Deps: deps}
}

// acquire takes the lease on key, waiting at most LockWait when set.
func (b *base) acquire(ctx context.Context, key string) (func(), error) {
	waitCtx := ctx
	if b.LockWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.LockWait)
		defer cancel()
	}
	release, err := b.Locker.Acquire(waitCtx, key)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, apperr.Internal(err, "timed out waiting for "+key)
		}
		return nil, apperr.Internal(err, "acquire lock "+key)
	}
	return release, nil
}

// acquireAll takes the leases in the order given and releases them in
// reverse. Callers list workspace keys before backlog keys.
func (b *base) acquireAll(ctx context.Context, keys ...string) (func(), error) {
	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		release, err := b.acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// atomically serializes on key and runs fn in one transaction. Inside fn
// only tx may touch the store.
func (b *base) atomically(ctx context.Context, key string, fn func(tx *repository.Repositories) error) error {
	return b.atomicallyAll(ctx, []string{key}, fn)
}

func (b *base) atomicallyAll(ctx context.Context, keys []string, fn func(tx *repository.Repositories) error) error {
	release, err := b.acquireAll(ctx, keys...)
	if err != nil {
		return err
	}
	defer release()

	if err := b.Repos.Transaction(ctx, fn); err != nil {
		return storeErr(err, "transaction on "+strings.Join(keys, ","))
	}
	return nil
}

func (b *base) record(ctx context.Context, e audit.Entry) {
	b.Audit.Record(ctx, e)
}

// notifyUser resolves the user's address and hands the message to the
// notifier. Lookup failures are logged, never returned.
func (b *base) notifyUser(ctx context.Context, userID uuid.UUID, subject, body string) {
	if b.Notifier == nil {
		return
	}
	user, err := b.Repos.Users.GetByID(ctx, userID)
	if err != nil {
		b.Logger.Warn("notification skipped", "user_id", userID, "subject", subject, "error", err)
		return
	}
	b.Notifier.Notify(user.Email, subject, body)
}

// storeErr passes business errors through and classifies store errors.
func storeErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &apperr.Error{Kind: apperr.KindNotFound, Message: err.Error(), Err: err}
	}
	return apperr.Internal(err, op)
}
