package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/listing-comb/app/database"
	"github.com/lysyi3m/listing-comb/app/feed"
	"github.com/lysyi3m/listing-comb/app/mapping"
)

type mockFeedRepository struct {
	mu      sync.Mutex
	feeds   []database.Feed
	upserts []database.FeedDefinition
	err     error
}

var _ database.FeedRepository = (*mockFeedRepository)(nil)

func (m *mockFeedRepository) GetFeed(feedName string) (*database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.feeds {
		if m.feeds[i].Name == feedName {
			f := m.feeds[i]
			return &f, nil
		}
	}
	return nil, nil
}

func (m *mockFeedRepository) GetFeeds() ([]database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]database.Feed(nil), m.feeds...), nil
}

func (m *mockFeedRepository) GetFeedCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feeds), nil
}

func (m *mockFeedRepository) UpsertFeed(def database.FeedDefinition) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.upserts = append(m.upserts, def)
	return "id-" + def.Name, nil
}

func (m *mockFeedRepository) UpdateMapping(feedName string, cfg *mapping.Config) error {
	return nil
}

func (m *mockFeedRepository) SetFeedActive(feedName string, active bool) error {
	return nil
}

func (m *mockFeedRepository) UpdateLastSync(feedID string, syncedAt time.Time) error {
	return nil
}

func (m *mockFeedRepository) definitions() []database.FeedDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.FeedDefinition(nil), m.upserts...)
}

type mockSyncer struct {
	mu     sync.Mutex
	synced []string
	remaps []string
	result feed.SyncResult
}

func (m *mockSyncer) Sync(ctx context.Context, feedName string) feed.SyncResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = append(m.synced, feedName)
	r := m.result
	r.Feed = feedName
	return r
}

func (m *mockSyncer) Remap(feedName string) feed.SyncResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaps = append(m.remaps, feedName)
	r := m.result
	r.Feed = feedName
	return r
}

func (m *mockSyncer) syncedFeeds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.synced...)
}

type failingTask struct {
	Task
	calls int
}

func (f *failingTask) Execute(ctx context.Context) error {
	f.calls++
	return errors.New("boom")
}

func writeFeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write feed file: %v", err)
	}
}

func TestNewScheduler(t *testing.T) {
	scheduler := NewScheduler(feed.NewConfigCache(t.TempDir()), &mockFeedRepository{}, &mockSyncer{}, time.Second, 2)

	if scheduler.workerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", scheduler.workerCount)
	}
	if scheduler.interval != time.Second {
		t.Errorf("Expected interval 1s, got %v", scheduler.interval)
	}
	if cap(scheduler.taskQueue) != taskQueueSize {
		t.Errorf("Expected queue capacity %d, got %d", taskQueueSize, cap(scheduler.taskQueue))
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{40, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := RetryDelay(tt.retry); got != tt.expected {
			t.Errorf("RetryDelay(%d): expected %v, got %v", tt.retry, tt.expected, got)
		}
	}
}

func TestStartupRegistersAndSyncsEnabledFeeds(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "agency", "url: http://example.com/a.xml\nsettings:\n  enabled: true\n")
	writeFeedFile(t, dir, "paused", "url: http://example.com/b.xml\nsettings:\n  enabled: false\n")

	configCache := feed.NewConfigCache(dir)
	if err := configCache.Run(); err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}

	repo := &mockFeedRepository{}
	syncer := &mockSyncer{result: feed.SyncResult{Status: feed.StatusOK}}
	scheduler := NewScheduler(configCache, repo, syncer, time.Hour, 2)
	scheduler.Start()

	deadline := time.Now().Add(3 * time.Second)
	for (len(syncer.syncedFeeds()) == 0 || len(repo.definitions()) < 2) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	scheduler.Stop()

	defs := repo.definitions()
	if len(defs) != 2 {
		t.Fatalf("Expected 2 registered feeds, got %d", len(defs))
	}
	for _, def := range defs {
		if def.Name == "paused" && def.IsActive {
			t.Error("Expected disabled feed to be registered inactive")
		}
		if def.Name == "agency" && def.DefaultCurrency != "EUR" {
			t.Errorf("Expected default currency EUR, got '%s'", def.DefaultCurrency)
		}
	}

	synced := syncer.syncedFeeds()
	if len(synced) != 1 || synced[0] != "agency" {
		t.Errorf("Expected only the enabled feed to sync, got %v", synced)
	}
}

func TestEnqueueTasksQueuesDueFeedsOnce(t *testing.T) {
	recent := time.Now().UTC()
	stale := recent.Add(-2 * time.Hour)

	repo := &mockFeedRepository{feeds: []database.Feed{
		{ID: "1", Name: "never-synced", IsActive: true, RefreshInterval: 3600},
		{ID: "2", Name: "stale", IsActive: true, RefreshInterval: 3600, LastSyncAt: &stale},
		{ID: "3", Name: "fresh", IsActive: true, RefreshInterval: 3600, LastSyncAt: &recent},
		{ID: "4", Name: "inactive", IsActive: false, RefreshInterval: 3600},
	}}

	scheduler := NewScheduler(feed.NewConfigCache(t.TempDir()), repo, &mockSyncer{}, time.Hour, 1)
	defer scheduler.Stop()

	scheduler.enqueueTasks()
	scheduler.enqueueTasks()

	if len(scheduler.taskQueue) != 2 {
		t.Fatalf("Expected 2 queued tasks, got %d", len(scheduler.taskQueue))
	}

	queued := map[string]bool{}
	for len(scheduler.taskQueue) > 0 {
		task := <-scheduler.taskQueue
		if task.GetType() != TaskTypeSyncListings {
			t.Errorf("Expected sync task, got %s", task.GetType())
		}
		queued[task.GetFeedName()] = true
	}
	if !queued["never-synced"] || !queued["stale"] {
		t.Errorf("Expected due feeds to be queued, got %v", queued)
	}
}

func TestEnqueueTasksRepositoryError(t *testing.T) {
	repo := &mockFeedRepository{err: errors.New("database down")}
	scheduler := NewScheduler(feed.NewConfigCache(t.TempDir()), repo, &mockSyncer{}, time.Hour, 1)
	defer scheduler.Stop()

	scheduler.enqueueTasks()

	if len(scheduler.taskQueue) != 0 {
		t.Errorf("Expected nothing queued, got %d", len(scheduler.taskQueue))
	}
}

func TestEnqueueTaskAfterStop(t *testing.T) {
	scheduler := NewScheduler(feed.NewConfigCache(t.TempDir()), &mockFeedRepository{}, &mockSyncer{}, time.Hour, 1)
	scheduler.Stop()

	if err := scheduler.EnqueueTask(NewSyncListingsTask("x", &mockSyncer{})); err == nil {
		t.Error("Expected error when enqueueing on a stopped scheduler")
	}
}

func TestExecuteTaskSchedulesRetry(t *testing.T) {
	scheduler := NewScheduler(feed.NewConfigCache(t.TempDir()), &mockFeedRepository{}, &mockSyncer{}, time.Hour, 1)
	defer scheduler.Stop()

	task := &failingTask{Task: NewTask(TaskTypeSyncListings, "flaky")}
	scheduler.executeTask(0, task)

	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry count 1, got %d", task.GetRetryCount())
	}

	select {
	case retried := <-scheduler.taskQueue:
		if retried.GetID() != task.GetID() {
			t.Errorf("Expected the same task to be re-enqueued, got %s", retried.GetID())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected task to be re-enqueued after the retry delay")
	}
}

func TestExecuteTaskGivesUpAfterMaxRetries(t *testing.T) {
	scheduler := NewScheduler(feed.NewConfigCache(t.TempDir()), &mockFeedRepository{}, &mockSyncer{}, time.Hour, 1)
	defer scheduler.Stop()

	task := &failingTask{Task: NewTask(TaskTypeSyncListings, "broken")}
	task.RetryCount = task.MaxRetries
	scheduler.pending["broken"] = struct{}{}

	scheduler.executeTask(0, task)

	if len(scheduler.taskQueue) != 0 {
		t.Error("Expected no retry once retries are exhausted")
	}
	if _, ok := scheduler.pending["broken"]; ok {
		t.Error("Expected pending marker to be released")
	}
}
