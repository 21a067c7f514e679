// Package audit appends HistoryLog entries for state-changing operations.
package audit

import (
	"context"
	"log/slog"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Store is the append-only sink for history entries.
type Store interface {
	Append(ctx context.Context, entry *model.HistoryLog) error
}

type Entry struct {
	Actor       uuid.UUID
	WorkspaceID uuid.UUID
	Action      string
	Resource    model.ResourceType
	ResourceID  uuid.UUID
	Details     map[string]any
}

type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record is best-effort: a failed write is logged and never reaches the
// caller, whose mutation has already committed.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	entry := &model.HistoryLog{
		UserID:       e.Actor,
		Action:       e.Action,
		ResourceType: e.Resource,
		ResourceID:   e.ResourceID,
	}
	if e.WorkspaceID != uuid.Nil {
		ws := e.WorkspaceID
		entry.WorkspaceID = &ws
	}
	if len(e.Details) > 0 {
		entry.Details = datatypes.JSONMap(e.Details)
	}

	if err := r.store.Append(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Error("audit write failed",
			"action", e.Action,
			"resource_type", e.Resource,
			"resource_id", e.ResourceID,
			"error", err,
		)
	}
}
