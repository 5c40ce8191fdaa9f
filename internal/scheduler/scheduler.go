package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/stocklink/stocklink/internal/logger"
)

// Task is one unit of recurring background work.
type Task func(ctx context.Context) error

// Scheduler runs maintenance tasks at fixed intervals. Tasks run inline in
// the ticker goroutine; a slow task delays only its own next tick.
type Scheduler struct {
	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		quit: make(chan struct{}),
	}
}

// Schedule registers a task to run every interval until Stop. Task errors
// are logged, never fatal: the next tick retries.
func (s *Scheduler) Schedule(name string, interval time.Duration, task Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx := context.Background()
				if err := task(ctx); err != nil {
					logger.FromContext(ctx).Error("scheduled task failed", "task", name, "error", err)
				}
			case <-s.quit:
				return
			}
		}
	}()
}

// Stop cancels all scheduled tasks and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	close(s.quit)
	s.wg.Wait()
}
