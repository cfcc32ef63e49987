package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goclaw/slotbus/pkg/logger"
)

// DefaultRedisChannel is the pub/sub channel reports are published on.
const DefaultRedisChannel = "slotbus:diagnostics"

const (
	defaultPublishTimeout = 2 * time.Second
	defaultPublishBuffer  = 256
)

type queuedReport struct {
	ctx    context.Context
	report Report
}

// RedisSink publishes reports as JSON on a Redis pub/sub channel so that
// processes outside this one can watch slot failures. Reports are queued and
// published by a background goroutine; when the queue is full they are
// dropped.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
	timeout time.Duration
	buffer  int
	log     logger.Logger
	drops   DropRecorder

	mu     sync.RWMutex
	closed bool
	queue  chan queuedReport
	done   chan struct{}
}

// RedisSinkOption configures a RedisSink.
type RedisSinkOption func(*RedisSink)

// WithRedisLogger sets the logger used for publish failures.
func WithRedisLogger(log logger.Logger) RedisSinkOption {
	return func(s *RedisSink) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRedisDropRecorder counts reports that could not be published.
func WithRedisDropRecorder(r DropRecorder) RedisSinkOption {
	return func(s *RedisSink) {
		if r != nil {
			s.drops = r
		}
	}
}

// WithPublishTimeout bounds each publish call.
func WithPublishTimeout(d time.Duration) RedisSinkOption {
	return func(s *RedisSink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPublishBuffer sets how many reports may wait for publishing.
func WithPublishBuffer(n int) RedisSinkOption {
	return func(s *RedisSink) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// NewRedisSink creates a RedisSink and starts its publisher. Call Close to
// stop it.
func NewRedisSink(client redis.UniversalClient, channel string, opts ...RedisSinkOption) (*RedisSink, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	s := &RedisSink{
		client:  client,
		channel: channel,
		timeout: defaultPublishTimeout,
		buffer:  defaultPublishBuffer,
		log:     logger.Named(nil, "diagnostics.redis"),
		drops:   nopDrops{},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan queuedReport, s.buffer)
	go s.run()
	return s, nil
}

// Channel returns the pub/sub channel name.
func (s *RedisSink) Channel() string {
	return s.channel
}

// Report implements Sink. It never blocks: the report is queued for the
// publisher, or dropped and counted when the queue is full or the sink is
// closed.
func (s *RedisSink) Report(ctx context.Context, r Report) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drops.RecordDiagnosticsDropped("redis")
		return
	}
	select {
	case s.queue <- queuedReport{ctx: context.WithoutCancel(ctx), report: r}:
	default:
		s.drops.RecordDiagnosticsDropped("redis")
		s.log.DebugContext(ctx, "diagnostics publish queue full, report dropped", "report_id", r.ID)
	}
}

func (s *RedisSink) run() {
	defer close(s.done)
	for q := range s.queue {
		if err := s.Publish(q.ctx, q.report); err != nil {
			s.drops.RecordDiagnosticsDropped("redis")
			s.log.WarnContext(q.ctx, "failed to publish diagnostics report", "report_id", q.report.ID, "error", err)
		}
	}
}

// Close stops accepting reports and waits until queued ones are published
// or ctx is done.
func (s *RedisSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends a single report and returns any error.
func (s *RedisSink) Publish(ctx context.Context, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	return nil
}

// Subscribe listens on the report channel and returns decoded reports until
// ctx is cancelled. Malformed payloads are skipped.
func (s *RedisSink) Subscribe(ctx context.Context, buffer int) (<-chan Report, error) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}

	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	out := make(chan Report, buffer)
	go func() {
		defer close(out)
		defer func() {
			_ = pubsub.Close()
		}()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var r Report
				if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
					s.log.Debug("skipping malformed diagnostics payload", "error", err)
					continue
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
