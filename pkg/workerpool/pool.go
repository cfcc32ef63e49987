package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goclaw/slotbus/pkg/logger"
)

// Config holds the configuration for a Pool.
type Config struct {
	// MinWorkers is the number of workers kept alive even when idle.
	MinWorkers int

	// MaxWorkers is the upper bound on concurrently running workers.
	MaxWorkers int

	// IdleTimeout is how long a worker above MinWorkers waits for work
	// before retiring.
	IdleTimeout time.Duration

	// QueueCapacity bounds the number of queued tasks. Zero means unbounded.
	QueueCapacity int

	// DrainOnShutdown runs already queued tasks during Shutdown instead of
	// discarding them.
	DrainOnShutdown bool
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		MinWorkers:      5,
		MaxWorkers:      10,
		IdleTimeout:     500 * time.Millisecond,
		QueueCapacity:   0,
		DrainOnShutdown: true,
	}
}

// Validate validates the pool configuration.
func (c Config) Validate() error {
	if c.MinWorkers < 0 {
		return fmt.Errorf("min workers cannot be negative, got %d", c.MinWorkers)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive, got %d", c.MaxWorkers)
	}
	if c.MinWorkers > c.MaxWorkers {
		return fmt.Errorf("min workers (%d) cannot exceed max workers (%d)", c.MinWorkers, c.MaxWorkers)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %s", c.IdleTimeout)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("queue capacity cannot be negative, got %d", c.QueueCapacity)
	}
	return nil
}

// ErrorHandler is called with every task error and recovered panic.
type ErrorHandler func(task Task, err error)

// Option is a functional option for configuring a Pool.
type Option func(*Pool)

// WithMetrics sets the metrics recorder for the pool.
func WithMetrics(m MetricsRecorder) Option {
	return func(p *Pool) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithErrorHandler sets the handler that observes failed tasks.
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Pool) {
		if h != nil {
			p.onError = h
		}
	}
}

// WithLogger sets the logger used by the pool.
func WithLogger(log logger.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}

// Stats holds a point-in-time view of a Pool.
type Stats struct {
	Workers    int   `json:"workers"`
	Idle       int   `json:"idle"`
	Queued     int   `json:"queued"`
	MinWorkers int   `json:"min_workers"`
	MaxWorkers int   `json:"max_workers"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Discarded  int64 `json:"discarded"`
	Closed     bool  `json:"closed"`
}

// Pool is a bounded, elastic worker pool fed by a priority queue.
type Pool struct {
	cfg     Config
	log     logger.Logger
	metrics MetricsRecorder
	onError ErrorHandler

	mu      sync.Mutex
	queue   *queue
	workers int
	idle    int
	nextID  int
	closed  bool

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	completed atomic.Int64
	failed    atomic.Int64
	discarded atomic.Int64
}

// New creates a Pool and starts its minimum set of workers.
func New(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:     cfg,
		log:     logger.Named(nil, "workerpool"),
		metrics: nopMetrics{},
		queue:   newQueue(),
		wake:    make(chan struct{}, cfg.MaxWorkers),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.onError == nil {
		p.onError = p.logTaskError
	}

	p.mu.Lock()
	for i := 0; i < cfg.MinWorkers; i++ {
		p.spawnLocked()
	}
	p.mu.Unlock()

	return p, nil
}

// Submit enqueues a task. It never blocks on task execution.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return &PoolClosedError{}
	}
	if p.cfg.QueueCapacity > 0 && p.queue.len() >= p.cfg.QueueCapacity {
		p.mu.Unlock()
		return &QueueFullError{Capacity: p.cfg.QueueCapacity}
	}

	p.queue.push(task, time.Now())
	depth := p.queue.len()
	if depth > p.idle && p.workers < p.cfg.MaxWorkers {
		p.spawnLocked()
	}
	p.mu.Unlock()

	p.metrics.SetPoolQueueDepth(depth)
	p.notify()
	return nil
}

// notify wakes one waiting worker. A full wake buffer means every worker
// already has a pending wake-up, so dropping the token is safe.
func (p *Pool) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// spawnLocked starts a worker. p.mu must be held.
func (p *Pool) spawnLocked() {
	p.workers++
	id := p.nextID
	p.nextID++
	p.wg.Add(1)
	go p.worker(id)
	p.metrics.SetPoolWorkers(p.workers)
}

// retireLocked accounts for an exiting worker. p.mu must be held.
func (p *Pool) retireLocked() {
	p.workers--
	p.metrics.SetPoolWorkers(p.workers)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	idleTimer := time.NewTimer(p.cfg.IdleTimeout)
	idleTimer.Stop()

	for {
		p.mu.Lock()
		if item := p.queue.pop(); item != nil {
			depth := p.queue.len()
			p.mu.Unlock()
			p.metrics.SetPoolQueueDepth(depth)
			p.run(item)
			continue
		}
		if p.closed {
			p.retireLocked()
			p.mu.Unlock()
			return
		}
		p.idle++
		p.mu.Unlock()

		idleTimer.Reset(p.cfg.IdleTimeout)
		select {
		case <-p.wake:
		case <-p.stopCh:
		case <-idleTimer.C:
			p.mu.Lock()
			p.idle--
			if p.workers > p.cfg.MinWorkers && p.queue.len() == 0 && !p.closed {
				p.retireLocked()
				p.mu.Unlock()
				p.log.Debug("worker retired after idle timeout", "worker", id)
				return
			}
			p.mu.Unlock()
			continue
		}
		idleTimer.Stop()

		p.mu.Lock()
		p.idle--
		p.mu.Unlock()
	}
}

func (p *Pool) run(item *queueItem) {
	p.metrics.RecordPoolWait(time.Since(item.enqueuedAt))

	err, panicked := p.execute(item.task)
	switch {
	case err == nil:
		p.completed.Add(1)
		p.metrics.RecordPoolTask(taskStatusCompleted)
		return
	case panicked:
		p.metrics.RecordPoolTask(taskStatusPanicked)
	default:
		p.metrics.RecordPoolTask(taskStatusFailed)
	}
	p.failed.Add(1)
	p.report(item.task, err)
}

// execute runs a task, converting a panic into a TaskPanicError so the
// worker goroutine survives.
func (p *Pool) execute(task Task) (err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskPanicError{TaskID: task.ID(), Value: r}
			panicked = true
		}
	}()
	return task.Run(context.Background()), false
}

func (p *Pool) report(task Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("task error handler panicked", "task", task.ID(), "panic", r)
		}
	}()
	p.onError(task, err)
}

func (p *Pool) logTaskError(task Task, err error) {
	p.log.Warn("task failed", "task", task.ID(), "priority", task.Priority().String(), "error", err)
}

// Shutdown stops accepting tasks, drains or discards the queue according to
// DrainOnShutdown, and waits for workers to exit or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		dropped := 0
		if !p.cfg.DrainOnShutdown {
			dropped = p.queue.clear()
		}
		p.mu.Unlock()

		if dropped > 0 {
			p.discarded.Add(int64(dropped))
			for i := 0; i < dropped; i++ {
				p.metrics.RecordPoolTask(taskStatusDiscarded)
			}
			p.metrics.SetPoolQueueDepth(0)
			p.log.Info("discarded queued tasks on shutdown", "count", dropped)
		}
		close(p.stopCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsClosed returns true once Shutdown has been called.
func (p *Pool) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Workers:    p.workers,
		Idle:       p.idle,
		Queued:     p.queue.len(),
		MinWorkers: p.cfg.MinWorkers,
		MaxWorkers: p.cfg.MaxWorkers,
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		Discarded:  p.discarded.Load(),
		Closed:     p.closed,
	}
}

// Config returns the pool configuration.
func (p *Pool) Config() Config {
	return p.cfg
}
