package media

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vidshare/backend/internal/metrics"
)

const reaperDeleteTimeout = 30 * time.Second

// ReaperConfig controls the concurrency characteristics of the reaper.
type ReaperConfig struct {
	QueueSize int
	Workers   int
}

// Reaper deletes orphaned blobs on a background worker pool.
type Reaper struct {
	storage ObjectStorage
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan string
	wg     sync.WaitGroup
}

// NewReaper starts cfg.Workers goroutines draining the deletion queue.
func NewReaper(storage ObjectStorage, m *metrics.Metrics, cfg ReaperConfig, logger *slog.Logger) *Reaper {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Reaper{
		storage: storage,
		metrics: m,
		logger:  logger,
		jobs:    make(chan string, cfg.QueueSize),
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Enqueue schedules the locations for deletion. It blocks while the queue is
// full unless ctx ends first.
func (r *Reaper) Enqueue(ctx context.Context, locations ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrReaperClosed
	}

	for _, location := range locations {
		if location == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r.jobs <- location:
		}
	}
	return nil
}

// Shutdown stops accepting work and waits for queued deletions to finish.
func (r *Reaper) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Reaper) worker() {
	defer r.wg.Done()

	for location := range r.jobs {
		r.remove(location)
	}
}

func (r *Reaper) remove(location string) {
	if r.storage == nil {
		r.logger.Error("blob reaper missing storage", "location", location)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reaperDeleteTimeout)
	defer cancel()

	err := r.storage.Delete(ctx, location)
	if r.metrics != nil {
		r.metrics.BlobDeletions.WithLabelValues(metrics.Result(err)).Inc()
	}
	if err != nil {
		r.logger.Error("blob deletion failed", "location", location, "error", err)
		return
	}
	r.logger.Debug("blob deleted", "location", location)
}
