// Package worker runs submitted checks on a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/clearcast/clearcast/internal/config"
)

// Job is one unit of background work, keyed by the check it serves
type Job struct {
	CheckID string
	Run     func(ctx context.Context)
}

// ErrQueueFull is returned when the submission queue has no room; the
// caller should surface backpressure rather than block a request handler.
var ErrQueueFull = fmt.Errorf("worker queue full")

// Pool executes jobs on a fixed number of long-running workers. Jobs are
// processed in submission order; Shutdown drains nothing, it cancels the
// shared context and waits for in-flight jobs to notice.
type Pool struct {
	workers   int
	jobs      chan Job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewPool(cfg config.WorkerConfig) *Pool {
	workers := cfg.Count
	if workers <= 0 {
		workers = 1
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = workers * 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, queue),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			log.Printf("worker %d: starting check %s", id, job.CheckID)
			job.Run(p.ctx)
		}
	}
}

// Submit enqueues a job. It never blocks: a full queue returns
// ErrQueueFull and a stopped pool rejects the job.
func (p *Pool) Submit(job Job) error {
	select {
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool stopped")
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs, cancels the running ones' context, and
// waits for the workers to exit
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.cancel()
		close(p.jobs)
	})
	p.wg.Wait()
}
