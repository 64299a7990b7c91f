package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lysyi3m/listing-comb/app/feed"
)

// SyncListingsTask fetches a feed and reconciles its listings.
type SyncListingsTask struct {
	Task
	syncer ListingSyncer
}

func NewSyncListingsTask(feedName string, syncer ListingSyncer) *SyncListingsTask {
	return &SyncListingsTask{
		Task:   NewTask(TaskTypeSyncListings, feedName),
		syncer: syncer,
	}
}

func (t *SyncListingsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result := t.syncer.Sync(ctx, t.FeedName)
	return finish("SyncListings", &t.Task, result)
}

// finish logs a sync result and converts it into the task outcome. A run
// rejected by the per-feed lock is not an error: another run is already
// doing the work.
func finish(taskName string, t *Task, result feed.SyncResult) error {
	switch {
	case result.Status == feed.StatusInactive:
		slog.Debug("Feed inactive, nothing to do", "type", taskName, "feed", t.FeedName)
		return nil
	case errors.Is(result.Err, feed.ErrSyncInProgress):
		slog.Info("Task skipped, feed busy", "type", taskName, "feed", t.FeedName)
		return nil
	case result.Status == feed.StatusError:
		return result.Err
	}

	slog.Info("Task completed",
		"type", taskName,
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"document_type", result.DocumentType)

	return nil
}
