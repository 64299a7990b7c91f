package tasks

import (
	"context"
)

// RemapListingsTask re-applies the stored mapping of a feed to the source
// records already persisted for it.
type RemapListingsTask struct {
	Task
	syncer ListingSyncer
}

func NewRemapListingsTask(feedName string, syncer ListingSyncer) *RemapListingsTask {
	return &RemapListingsTask{
		Task:   NewTask(TaskTypeRemapListings, feedName),
		syncer: syncer,
	}
}

func (t *RemapListingsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result := t.syncer.Remap(t.FeedName)
	return finish("RemapListings", &t.Task, result)
}
