package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/slotbus/pkg/logger"
)

func newTestPool(t *testing.T, cfg Config, opts ...Option) *Pool {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	pool, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	return pool
}

// blocker occupies a worker until released.
type blocker struct {
	started chan struct{}
	release chan struct{}
}

func newBlocker() *blocker {
	return &blocker{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blocker) task(id string) Task {
	return NewTaskFunc(id, PriorityOf(1000), func(ctx context.Context) error {
		close(b.started)
		<-b.release
		return nil
	})
}

func (b *blocker) wait(t *testing.T) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(2 * time.Second):
		t.Fatal("blocking task did not start")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero min workers", func(c *Config) { c.MinWorkers = 0 }, false},
		{"negative min workers", func(c *Config) { c.MinWorkers = -1 }, true},
		{"zero max workers", func(c *Config) { c.MaxWorkers = 0 }, true},
		{"min above max", func(c *Config) { c.MinWorkers = 11 }, true},
		{"zero idle timeout", func(c *Config) { c.IdleTimeout = 0 }, true},
		{"negative queue capacity", func(c *Config) { c.QueueCapacity = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.MinWorkers)
	assert.Equal(t, 10, cfg.MaxWorkers)
	assert.Equal(t, 500*time.Millisecond, cfg.IdleTimeout)
	assert.Equal(t, 0, cfg.QueueCapacity)
	assert.True(t, cfg.DrainOnShutdown)
}

func TestNew_StartsMinWorkers(t *testing.T) {
	pool := newTestPool(t, Config{MinWorkers: 3, MaxWorkers: 5, IdleTimeout: time.Second})
	assert.Equal(t, 3, pool.Stats().Workers)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{MinWorkers: 2, MaxWorkers: 1, IdleTimeout: time.Second})
	assert.Error(t, err)
}

func TestPool_SubmitRunsTask(t *testing.T) {
	pool := newTestPool(t, DefaultConfig())

	done := make(chan struct{})
	require.NoError(t, pool.Submit(NewTaskFunc("t1", Unset, func(ctx context.Context) error {
		close(done)
		return nil
	})))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	assert.Eventually(t, func() bool { return pool.Stats().Completed == 1 }, time.Second, 5*time.Millisecond)
}

func TestPool_SubmitNil(t *testing.T) {
	pool := newTestPool(t, DefaultConfig())
	assert.Error(t, pool.Submit(nil))
}

func TestPool_PriorityOrder(t *testing.T) {
	pool := newTestPool(t, Config{MinWorkers: 1, MaxWorkers: 1, IdleTimeout: time.Second})

	b := newBlocker()
	require.NoError(t, pool.Submit(b.task("blocker")))
	b.wait(t)

	var (
		mu    sync.Mutex
		order []string
		wg    sync.WaitGroup
	)
	record := func(id string, p Priority) Task {
		wg.Add(1)
		return NewTaskFunc(id, p, func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		})
	}

	require.NoError(t, pool.Submit(record("unset-1", Unset)))
	require.NoError(t, pool.Submit(record("low", PriorityOf(1))))
	require.NoError(t, pool.Submit(record("high-1", PriorityOf(10))))
	require.NoError(t, pool.Submit(record("unset-2", Unset)))
	require.NoError(t, pool.Submit(record("high-2", PriorityOf(10))))
	require.NoError(t, pool.Submit(record("negative", PriorityOf(-5))))

	close(b.release)
	wg.Wait()

	assert.Equal(t, []string{"high-1", "high-2", "low", "negative", "unset-1", "unset-2"}, order)
}

func TestPool_ScalesUpToMaxAndRetires(t *testing.T) {
	pool := newTestPool(t, Config{MinWorkers: 1, MaxWorkers: 3, IdleTimeout: 50 * time.Millisecond})

	release := make(chan struct{})
	var running atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(NewTaskFunc(fmt.Sprintf("t%d", i), Unset, func(ctx context.Context) error {
			running.Add(1)
			defer running.Add(-1)
			<-release
			return nil
		})))
	}

	assert.Eventually(t, func() bool { return running.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	stats := pool.Stats()
	assert.Equal(t, 3, stats.Workers)
	assert.Equal(t, 2, stats.Queued)

	close(release)

	assert.Eventually(t, func() bool {
		s := pool.Stats()
		return s.Completed == 5 && s.Workers == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPool_NeverExceedsMaxWorkers(t *testing.T) {
	pool := newTestPool(t, Config{MinWorkers: 0, MaxWorkers: 2, IdleTimeout: time.Second})

	var (
		current atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(NewTaskFunc(fmt.Sprintf("t%d", i), Unset, func(ctx context.Context) error {
			defer wg.Done()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			current.Add(-1)
			return nil
		})))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.LessOrEqual(t, pool.Stats().Workers, 2)
}

func TestPool_QueueFull(t *testing.T) {
	pool := newTestPool(t, Config{MinWorkers: 1, MaxWorkers: 1, IdleTimeout: time.Second, QueueCapacity: 1})

	b := newBlocker()
	require.NoError(t, pool.Submit(b.task("blocker")))
	b.wait(t)
	defer close(b.release)

	noop := func(ctx context.Context) error { return nil }
	require.NoError(t, pool.Submit(NewTaskFunc("queued", Unset, noop)))

	err := pool.Submit(NewTaskFunc("rejected", Unset, noop))
	require.Error(t, err)
	assert.True(t, IsQueueFullError(err))

	var qf *QueueFullError
	require.True(t, errors.As(err, &qf))
	assert.Equal(t, 1, qf.Capacity)
}

func TestPool_ErrorHandlerReceivesFailuresAndPanics(t *testing.T) {
	var (
		mu     sync.Mutex
		errs   = map[string]error{}
		boom   = errors.New("boom")
		report = make(chan struct{}, 2)
	)
	pool := newTestPool(t, Config{MinWorkers: 1, MaxWorkers: 1, IdleTimeout: time.Second},
		WithErrorHandler(func(task Task, err error) {
			mu.Lock()
			errs[task.ID()] = err
			mu.Unlock()
			report <- struct{}{}
		}),
	)

	require.NoError(t, pool.Submit(NewTaskFunc("fails", Unset, func(ctx context.Context) error {
		return boom
	})))
	require.NoError(t, pool.Submit(NewTaskFunc("panics", Unset, func(ctx context.Context) error {
		panic("kaboom")
	})))

	for i := 0; i < 2; i++ {
		select {
		case <-report:
		case <-time.After(2 * time.Second):
			t.Fatal("error handler not called")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, errs["fails"], boom)

	var pe *TaskPanicError
	require.True(t, errors.As(errs["panics"], &pe))
	assert.Equal(t, "panics", pe.TaskID)
	assert.Equal(t, "kaboom", pe.Value)

	// The worker survives a panic.
	done := make(chan struct{})
	require.NoError(t, pool.Submit(NewTaskFunc("after", Unset, func(ctx context.Context) error {
		close(done)
		return nil
	})))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	assert.Equal(t, int64(2), pool.Stats().Failed)
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	pool := newTestPool(t, Config{MinWorkers: 1, MaxWorkers: 1, IdleTimeout: time.Second, DrainOnShutdown: true})

	b := newBlocker()
	require.NoError(t, pool.Submit(b.task("blocker")))
	b.wait(t)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(NewTaskFunc(fmt.Sprintf("t%d", i), Unset, func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})))
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(b.release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	assert.Equal(t, int32(5), ran.Load())
	stats := pool.Stats()
	assert.True(t, stats.Closed)
	assert.Equal(t, 0, stats.Workers)
}

func TestPool_ShutdownDiscardsQueue(t *testing.T) {
	pool := newTestPool(t, Config{MinWorkers: 1, MaxWorkers: 1, IdleTimeout: time.Second, DrainOnShutdown: false})

	b := newBlocker()
	require.NoError(t, pool.Submit(b.task("blocker")))
	b.wait(t)

	var ran atomic.Int32
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(NewTaskFunc(fmt.Sprintf("t%d", i), Unset, func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})))
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(b.release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	assert.Equal(t, int32(0), ran.Load())
	assert.Equal(t, int64(4), pool.Stats().Discarded)
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := newTestPool(t, DefaultConfig())
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.True(t, pool.IsClosed())

	err := pool.Submit(NewTaskFunc("late", Unset, func(ctx context.Context) error { return nil }))
	assert.True(t, IsPoolClosedError(err))

	// Shutdown is idempotent.
	assert.NoError(t, pool.Shutdown(context.Background()))
}

func TestPool_ShutdownRespectsContext(t *testing.T) {
	pool, err := New(Config{MinWorkers: 1, MaxWorkers: 1, IdleTimeout: time.Second}, WithLogger(logger.Nop()))
	require.NoError(t, err)

	b := newBlocker()
	require.NoError(t, pool.Submit(b.task("blocker")))
	b.wait(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)

	close(b.release)
	assert.NoError(t, pool.Shutdown(context.Background()))
}

type recordingMetrics struct {
	mu       sync.Mutex
	statuses map[string]int
	waits    int
	workers  int
}

func (m *recordingMetrics) SetPoolQueueDepth(int) {}

func (m *recordingMetrics) SetPoolWorkers(n int) {
	m.mu.Lock()
	m.workers = n
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordPoolWait(time.Duration) {
	m.mu.Lock()
	m.waits++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordPoolTask(status string) {
	m.mu.Lock()
	m.statuses[status]++
	m.mu.Unlock()
}

func TestPool_RecordsMetrics(t *testing.T) {
	m := &recordingMetrics{statuses: map[string]int{}}
	pool := newTestPool(t, Config{MinWorkers: 2, MaxWorkers: 2, IdleTimeout: time.Second}, WithMetrics(m))

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, pool.Submit(NewTaskFunc("ok", Unset, func(ctx context.Context) error {
		defer wg.Done()
		return nil
	})))
	require.NoError(t, pool.Submit(NewTaskFunc("bad", Unset, func(ctx context.Context) error {
		defer wg.Done()
		return errors.New("bad")
	})))
	wg.Wait()

	assert.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.statuses[taskStatusCompleted] == 1 && m.statuses[taskStatusFailed] == 1
	}, time.Second, 5*time.Millisecond)

	m.mu.Lock()
	assert.Equal(t, 2, m.waits)
	assert.Equal(t, 2, m.workers)
	m.mu.Unlock()
}
