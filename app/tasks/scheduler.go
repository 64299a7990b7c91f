package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/listing-comb/app/database"
	"github.com/lysyi3m/listing-comb/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskQueueSize = 300
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

type Scheduler struct {
	feedRepo    database.FeedRepository
	configCache *feed.ConfigCache
	syncer      ListingSyncer
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu      sync.Mutex
	pending map[string]struct{} // feeds with a queued or running sync
}

func NewScheduler(configCache *feed.ConfigCache, feedRepo database.FeedRepository, syncer ListingSyncer,
	interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		feedRepo:    feedRepo,
		configCache: configCache,
		syncer:      syncer,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
		pending:     make(map[string]struct{}),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	feedConfigs := s.configCache.GetConfigs()
	if len(feedConfigs) == 0 {
		slog.Debug("No feed configurations found")
		return
	}

	slog.Debug("Processing feed configurations", "count", len(feedConfigs))

	for _, feedConfig := range feedConfigs {
		syncTask := NewSyncFeedConfigTask(feedConfig, s.feedRepo, s.syncer, s.enqueueSync)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncFeedConfigTask", "feed", feedConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	feeds, err := s.feedRepo.GetFeeds()
	if err != nil {
		slog.Warn("Failed to get feeds from database", "error", err)
		return
	}

	now := time.Now().UTC()
	for i := range feeds {
		f := &feeds[i]
		if !f.IsDue(now) {
			slog.Debug("Feed not due for refresh yet", "feed", f.Name, "last_sync_at", f.LastSyncAt)
			continue
		}
		if err := s.enqueueSync(NewSyncListingsTask(f.Name, s.syncer)); err != nil {
			slog.Warn("Failed to enqueue SyncListingsTask", "feed", f.Name, "error", err)
		}
	}
}

// enqueueSync queues a listings sync unless one is already waiting or
// running for the same feed.
func (s *Scheduler) enqueueSync(task TaskInterface) error {
	name := task.GetFeedName()

	s.mu.Lock()
	if _, busy := s.pending[name]; busy {
		s.mu.Unlock()
		slog.Debug("Sync already pending, skipping", "feed", name)
		return nil
	}
	s.pending[name] = struct{}{}
	s.mu.Unlock()

	if err := s.EnqueueTask(task); err != nil {
		s.release(task)
		return err
	}
	return nil
}

func (s *Scheduler) release(task TaskInterface) {
	if task.GetType() != TaskTypeSyncListings {
		return
	}
	s.mu.Lock()
	delete(s.pending, task.GetFeedName())
	s.mu.Unlock()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.release(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "feed", task.GetFeedName(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.release(task)
		return
	}

	task.IncrementRetryCount()
	retryDelay := RetryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.release(task)
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				s.release(task)
			}
		}
	}()
}

// RetryDelay is the backoff before the given retry attempt: 1s, 2s, 4s and
// so on, capped at 30s.
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > 6 {
		return maxRetryDelay
	}
	return min(time.Duration(1<<uint(retryCount-1))*time.Second, maxRetryDelay)
}
