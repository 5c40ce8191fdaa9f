package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/repository"
)

// Pool runs a fixed number of executors against the shared job queue.
// Dequeue claims a job exclusively, so executors never contend on one job
// and multiple pool instances can share a database.
type Pool struct {
	queue      repository.Queue
	executor   *Executor
	workers    int
	pollPeriod time.Duration

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewPool creates a worker pool. Zero values fall back to one worker and
// the default poll period.
func NewPool(queue repository.Queue, executor *Executor, workers int, pollPeriod time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if pollPeriod <= 0 {
		pollPeriod = defaultPollPeriod
	}
	return &Pool{
		queue:      queue,
		executor:   executor,
		workers:    workers,
		pollPeriod: pollPeriod,
		quit:       make(chan struct{}),
	}
}

// Start launches the executor goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker polls the queue until Stop. An empty queue is the idle state, not
// an error; anything else dequeue-related is logged and retried after one
// poll period.
func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		default:
		}

		ctx := context.Background()
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrQueueEmpty) {
				logger.FromContext(ctx).Error("failed to dequeue sync job", "error", err)
			}
			p.sleep()
			continue
		}
		p.executor.Execute(ctx, job)
	}
}

// sleep waits one poll period but wakes immediately on Stop.
func (p *Pool) sleep() {
	select {
	case <-p.quit:
	case <-time.After(p.pollPeriod):
	}
}

// Stop signals the executors and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}
