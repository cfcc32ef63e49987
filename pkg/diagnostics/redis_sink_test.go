package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/slotbus/pkg/logger"
)

type publishCall struct {
	channel string
	payload []byte
}

type mockPublisher struct {
	redis.UniversalClient

	mu    sync.Mutex
	calls []publishCall
	err   error
	block chan struct{}
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	m.calls = append(m.calls, publishCall{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (m *mockPublisher) published() []publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishCall(nil), m.calls...)
}

func closeSink(t *testing.T, s *RedisSink) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func TestNewRedisSink_NilClient(t *testing.T) {
	_, err := NewRedisSink(nil, "")
	assert.Error(t, err)
}

func TestRedisSink_PublishesJSON(t *testing.T) {
	client := &mockPublisher{}
	sink, err := NewRedisSink(client, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultRedisChannel, sink.Channel())

	want := NewReport("order.created", "slot-1", "async", "invocation_failure", errors.New("boom"))
	sink.Report(context.Background(), want)
	closeSink(t, sink)

	calls := client.published()
	require.Len(t, calls, 1)
	assert.Equal(t, DefaultRedisChannel, calls[0].channel)

	var got Report
	require.NoError(t, json.Unmarshal(calls[0].payload, &got))
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Signal, got.Signal)
	assert.Equal(t, want.Error, got.Error)
}

func TestRedisSink_PublishFailureIsCounted(t *testing.T) {
	drops := newCountingDrops()
	client := &mockPublisher{err: errors.New("connection refused")}
	sink, err := NewRedisSink(client, "diag",
		WithRedisDropRecorder(drops),
		WithRedisLogger(logger.Nop()),
		WithPublishTimeout(100*time.Millisecond),
	)
	require.NoError(t, err)

	sink.Report(context.Background(), NewReport("s", "slot", "async", "", nil))
	closeSink(t, sink)
	assert.Equal(t, 1, drops.count("redis"))

	err = sink.Publish(context.Background(), NewReport("s", "slot", "async", "", nil))
	assert.ErrorContains(t, err, "connection refused")
}

func TestRedisSink_ReportDoesNotBlockOnSlowRedis(t *testing.T) {
	drops := newCountingDrops()
	client := &mockPublisher{block: make(chan struct{})}
	sink, err := NewRedisSink(client, "diag",
		WithRedisDropRecorder(drops),
		WithRedisLogger(logger.Nop()),
		WithPublishBuffer(2),
	)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			sink.Report(context.Background(), NewReport("s", "slot", "sync", "invocation_failure", errors.New("boom")))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Report blocked while redis was stalled")
	}

	// One report is held by the stalled publisher, two are queued.
	assert.GreaterOrEqual(t, drops.count("redis"), 7)

	close(client.block)
	closeSink(t, sink)
	assert.Equal(t, 10, drops.count("redis")+len(client.published()))
}

func TestRedisSink_ReportAfterCloseIsDropped(t *testing.T) {
	drops := newCountingDrops()
	client := &mockPublisher{}
	sink, err := NewRedisSink(client, "diag", WithRedisDropRecorder(drops))
	require.NoError(t, err)

	closeSink(t, sink)
	closeSink(t, sink)

	sink.Report(context.Background(), NewReport("s", "slot", "async", "", nil))
	assert.Equal(t, 1, drops.count("redis"))
	assert.Empty(t, client.published())
}

func TestRedisSink_CloseHonoursContext(t *testing.T) {
	client := &mockPublisher{block: make(chan struct{})}
	sink, err := NewRedisSink(client, "diag", WithRedisLogger(logger.Nop()))
	require.NoError(t, err)
	defer close(client.block)

	sink.Report(context.Background(), NewReport("s", "slot", "async", "", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sink.Close(ctx), context.DeadlineExceeded)
}

func requireRedisClient(tb testing.TB) redis.UniversalClient {
	tb.Helper()

	addr := os.Getenv("SLOTBUS_TEST_REDIS_ADDR")
	if addr == "" {
		tb.Skip("SLOTBUS_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  500 * time.Millisecond,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		tb.Skipf("redis is not available at %s: %v", addr, err)
	}

	tb.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRedisSink_RoundTrip(t *testing.T) {
	client := requireRedisClient(t)
	channel := fmt.Sprintf("slotbus:test:diagnostics:%d", time.Now().UnixNano())

	sink, err := NewRedisSink(client, channel, WithRedisLogger(logger.Nop()))
	require.NoError(t, err)
	defer closeSink(t, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	reports, err := sink.Subscribe(ctx, 4)
	require.NoError(t, err)

	want := NewReport("order.created", "slot-1", "async", "invocation_failure", errors.New("boom"))
	require.NoError(t, sink.Publish(ctx, want))

	select {
	case got := <-reports:
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Reason, got.Reason)
	case <-ctx.Done():
		t.Fatal("timeout waiting for diagnostics report")
	}
}
