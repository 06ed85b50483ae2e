package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Order", uuid.New())}
}

type testHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
	delay   time.Duration
}

func (h *testHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, ev)
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.types }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_SyncBeforeStart(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	paid := &testHandler{types: []string{"OrderPaid"}}
	all := &testHandler{}
	other := &testHandler{types: []string{"TicketOpened"}}
	bus.Subscribe(paid)
	bus.Subscribe(all)
	bus.Subscribe(other)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderPaid"), newTestEvent("OrderShipped")))

	assert.Equal(t, 1, paid.count())
	assert.Equal(t, 2, all.count(), "wildcard handler sees every event")
	assert.Equal(t, 0, other.count())
}

func TestInMemoryEventBus_FailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := &testHandler{types: []string{"OrderPaid"}, err: errors.New("smtp down")}
	panicking := &testHandler{types: []string{"OrderPaid"}, panics: true}
	healthy := &testHandler{types: []string{"OrderPaid"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderPaid")))

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, 1, logs.FilterMessage("Event handler failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Event handler panicked").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &testHandler{types: []string{"OrderPaid"}}
	bus.Subscribe(h)

	_ = bus.Publish(context.Background(), newTestEvent("OrderPaid"))
	bus.Unsubscribe(h)
	_ = bus.Publish(context.Background(), newTestEvent("OrderPaid"))

	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_AsyncAfterStart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := NewInMemoryEventBus(zap.NewNop(), WithWorkers(2), WithQueueSize(8))
	slow := &testHandler{types: []string{"OrderShipped"}, delay: 20 * time.Millisecond}
	bus.Subscribe(slow)
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Start(context.Background()))

	reqCtx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	require.NoError(t, bus.Publish(reqCtx, newTestEvent("OrderShipped"), newTestEvent("OrderShipped")))
	cancel()
	assert.Less(t, time.Since(start), 20*time.Millisecond, "publish must not wait for handlers")

	stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, bus.Stop(stopCtx))
	assert.Equal(t, 2, slow.count(), "queued deliveries drain on stop even after the request ended")

	require.NoError(t, bus.Stop(stopCtx))
}

func TestInMemoryEventBus_PublishHonoursContextWhenQueueFull(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithWorkers(1), WithQueueSize(1))
	blocker := &testHandler{types: []string{"OrderPaid"}, delay: 100 * time.Millisecond}
	bus.Subscribe(blocker)
	require.NoError(t, bus.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Stop(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := bus.Publish(ctx, newTestEvent("OrderPaid"), newTestEvent("OrderPaid"), newTestEvent("OrderPaid"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
