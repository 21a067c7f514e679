// Package lock serializes read-modify-write sequences on shared roots
// (a backlog's placement lists, a workspace's member list).
package lock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrTimeout = errors.New("lock: timed out waiting for lock")

// Locker hands out exclusive leases keyed by root id. The returned release
// func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func BacklogKey(id uuid.UUID) string {
	return "backlog:" + id.String()
}

func WorkspaceKey(id uuid.UUID) string {
	return "workspace:" + id.String()
}
