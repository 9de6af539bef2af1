package dispatch

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ProcessFunc handles one queued job to completion.
type ProcessFunc func(ctx context.Context, jobID string)

// Dispatcher runs queued jobs on a fixed pool of workers. A job id can be in
// flight at most once; re-enqueueing an active job is refused rather than
// queued behind itself.
type Dispatcher struct {
	workers int
	queue   chan string
	process ProcessFunc

	mu     sync.Mutex
	active map[string]struct{}

	wg      sync.WaitGroup
	started bool
	stopped bool
}

func NewDispatcher(workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		workers: workers,
		queue:   make(chan string, queueSize),
		active:  make(map[string]struct{}),
	}
}

// Start launches the worker pool. The given context bounds every job run;
// cancelling it makes in-flight work wind down.
func (d *Dispatcher) Start(ctx context.Context, process ProcessFunc) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.process = process
	d.mu.Unlock()

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for jobID := range d.queue {
		d.runOne(ctx, jobID)
	}
}

func (d *Dispatcher) runOne(ctx context.Context, jobID string) {
	// The job leaves the active set whatever happens inside process.
	defer d.release(jobID)
	defer func() {
		if r := recover(); r != nil {
			logutil.GetLogger(ctx).Error("job processor panicked",
				zap.String("job_id", jobID), zap.Any("panic", r))
		}
	}()
	d.process(ctx, jobID)
}

func (d *Dispatcher) release(jobID string) {
	d.mu.Lock()
	delete(d.active, jobID)
	d.mu.Unlock()
}

// Enqueue submits a job for processing. It reports false when the job is
// already queued or running, or when the queue is full.
func (d *Dispatcher) Enqueue(jobID string) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	if _, dup := d.active[jobID]; dup {
		d.mu.Unlock()
		return false
	}
	d.active[jobID] = struct{}{}
	d.mu.Unlock()

	select {
	case d.queue <- jobID:
		return true
	default:
		d.release(jobID)
		return false
	}
}

// Active reports whether a job is currently queued or running.
func (d *Dispatcher) Active(jobID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[jobID]
	return ok
}

// Stop refuses new work and waits for in-flight jobs, up to the context
// deadline.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()
	close(d.queue)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
