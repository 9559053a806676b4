package worker

import (
	"context"
	"fmt"
	"log/slog"

	"claimdesk/internal/amqp"
	"claimdesk/internal/core"
	"claimdesk/internal/sheets"
)

// ActivityStore persists audit records delivered over AMQP.
type ActivityStore interface {
	InsertActivity(ctx context.Context, rec core.ActivityRecord) error
}

// AuditWorker drains the audit queue into the database and optionally
// mirrors each record to an external archive sheet. The database write is
// the source of truth; archive failures are logged and the message is still
// acknowledged.
type AuditWorker struct {
	store   ActivityStore
	archive sheets.ActivityAppender
}

func NewAuditWorker(store ActivityStore, archive sheets.ActivityAppender) *AuditWorker {
	return &AuditWorker{
		store:   store,
		archive: archive,
	}
}

// HandleActivityMessage processes a single audit message from AMQP.
func (w *AuditWorker) HandleActivityMessage(ctx context.Context, msg *amqp.ActivityMessage) error {
	rec := msg.Record()

	slog.InfoContext(ctx, "Processing activity message",
		"action", rec.Action,
		"actor_id", rec.ActorID,
		"entity_type", rec.EntityType)

	if err := w.store.InsertActivity(ctx, rec); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	if w.archive == nil {
		return nil
	}

	ref, err := w.archive.Append(ctx, rec)
	if err != nil {
		slog.WarnContext(ctx, "Failed to mirror activity to archive",
			"action", rec.Action,
			"actor_id", rec.ActorID,
			"error", err)
		return nil
	}

	slog.DebugContext(ctx, "Mirrored activity to archive",
		"action", rec.Action,
		"archive_ref", ref)

	return nil
}
