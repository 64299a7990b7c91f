package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/listing-comb/app/database"
	"github.com/lysyi3m/listing-comb/app/feed"
)

// SyncFeedConfigTask registers a YAML feed definition in the database.
// When the feed is enabled, a listings sync is queued once the row exists.
type SyncFeedConfigTask struct {
	Task
	FeedConfig *feed.Config
	feedRepo   database.FeedRepository
	syncer     ListingSyncer
	enqueue    func(TaskInterface) error
}

func NewSyncFeedConfigTask(feedConfig *feed.Config, feedRepo database.FeedRepository, syncer ListingSyncer, enqueue func(TaskInterface) error) *SyncFeedConfigTask {
	return &SyncFeedConfigTask{
		Task:       NewTask(TaskTypeSyncFeedConfig, feedConfig.Name),
		FeedConfig: feedConfig,
		feedRepo:   feedRepo,
		syncer:     syncer,
		enqueue:    enqueue,
	}
}

func (t *SyncFeedConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	settings := t.FeedConfig.Settings
	feedID, err := t.feedRepo.UpsertFeed(database.FeedDefinition{
		Name:            t.FeedConfig.Name,
		URL:             t.FeedConfig.URL,
		Format:          t.FeedConfig.Format,
		Mapping:         t.FeedConfig.Mapping,
		IsActive:        settings.Enabled,
		RefreshInterval: settings.RefreshInterval,
		Timeout:         settings.Timeout,
		DefaultCurrency: settings.DefaultCurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to sync feed config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncFeedConfig",
		"feed", t.FeedName,
		"id", feedID,
		"enabled", settings.Enabled,
		"duration", t.GetDuration())

	if !settings.Enabled || t.enqueue == nil {
		return nil
	}

	if err := t.enqueue(NewSyncListingsTask(t.FeedName, t.syncer)); err != nil {
		slog.Warn("Failed to enqueue SyncListingsTask", "feed", t.FeedName, "error", err)
	}

	return nil
}
