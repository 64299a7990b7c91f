package tasks

import (
	"context"

	"github.com/lysyi3m/listing-comb/app/feed"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to queue background work.
// Example usage:
//
//	scheduler := NewScheduler(configCache, feedRepo, syncer, interval, workers)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRemapListingsTask(name, syncer))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// ListingSyncer runs the sync and remap passes for one feed.
type ListingSyncer interface {
	Sync(ctx context.Context, feedName string) feed.SyncResult
	Remap(feedName string) feed.SyncResult
}

var _ ListingSyncer = (*feed.Syncer)(nil)
