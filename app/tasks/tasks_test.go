package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lysyi3m/listing-comb/app/feed"
)

func TestSyncListingsTaskOutcome(t *testing.T) {
	tests := []struct {
		name    string
		result  feed.SyncResult
		wantErr bool
	}{
		{"ok", feed.SyncResult{Status: feed.StatusOK, Total: 2, Created: 2}, false},
		{"inactive", feed.SyncResult{Status: feed.StatusInactive}, false},
		{"busy", feed.SyncResult{Status: feed.StatusError, Err: feed.ErrSyncInProgress}, false},
		{"failed", feed.SyncResult{Status: feed.StatusError, Err: errors.New("failed to fetch feed")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &mockSyncer{result: tt.result}
			task := NewSyncListingsTask("agency", syncer)
			task.Start()

			err := task.Execute(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
			if len(syncer.synced) != 1 || syncer.synced[0] != "agency" {
				t.Errorf("Expected one sync for 'agency', got %v", syncer.synced)
			}
		})
	}
}

func TestSyncListingsTaskCancelled(t *testing.T) {
	syncer := &mockSyncer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewSyncListingsTask("agency", syncer).Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(syncer.synced) != 0 {
		t.Error("Expected no sync for a cancelled task")
	}
}

func TestRemapListingsTask(t *testing.T) {
	syncer := &mockSyncer{result: feed.SyncResult{Status: feed.StatusOK, Updated: 1}}

	if err := NewRemapListingsTask("agency", syncer).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(syncer.remaps) != 1 {
		t.Errorf("Expected one remap, got %d", len(syncer.remaps))
	}
}

func TestSyncFeedConfigTaskEnqueuesSync(t *testing.T) {
	repo := &mockFeedRepository{}
	var queued []TaskInterface
	enqueue := func(task TaskInterface) error {
		queued = append(queued, task)
		return nil
	}

	config := &feed.Config{
		Name:     "agency",
		URL:      "http://example.com/a.xml",
		Format:   feed.FormatGeneric,
		Settings: feed.ConfigSettings{Enabled: true, RefreshInterval: 60, Timeout: 5, DefaultCurrency: "GBP"},
	}

	task := NewSyncFeedConfigTask(config, repo, &mockSyncer{}, enqueue)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	defs := repo.definitions()
	if len(defs) != 1 {
		t.Fatalf("Expected 1 upsert, got %d", len(defs))
	}
	if defs[0].RefreshInterval != 60 || defs[0].DefaultCurrency != "GBP" || !defs[0].IsActive {
		t.Errorf("Unexpected definition: %+v", defs[0])
	}
	if len(queued) != 1 || queued[0].GetType() != TaskTypeSyncListings {
		t.Errorf("Expected a queued sync task, got %v", queued)
	}
}

func TestSyncFeedConfigTaskRepositoryError(t *testing.T) {
	repo := &mockFeedRepository{err: errors.New("constraint failed")}
	config := &feed.Config{Name: "agency", URL: "http://example.com/a.xml", Settings: feed.ConfigSettings{Enabled: true}}

	called := false
	task := NewSyncFeedConfigTask(config, repo, &mockSyncer{}, func(TaskInterface) error {
		called = true
		return nil
	})

	err := task.Execute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to sync feed config") {
		t.Errorf("Expected wrapped repository error, got %v", err)
	}
	if called {
		t.Error("Expected no sync to be queued when registration fails")
	}
}

func TestNewTaskIDsAreUnique(t *testing.T) {
	a := NewTask(TaskTypeSyncListings, "agency")
	b := NewTask(TaskTypeSyncListings, "agency")

	if a.ID == b.ID {
		t.Error("Expected distinct task ids")
	}
	if a.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, a.MaxRetries)
	}
}
