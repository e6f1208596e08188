package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
)

func TestMemoryBus_DeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	got := make(chan *Envelope, 8)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventPlayerJoined}}, func(ctx context.Context, ev *Envelope) {
		got <- ev
	})
	require.NoError(t, err)

	pub := NewPublisher(bus, "test")
	ctx := context.Background()
	require.NoError(t, pub.ChunksSaved(ctx, []vec.Vec3{vec.New(1, 2, 3)}))
	require.NoError(t, pub.PlayerJoined(ctx, 1, "a", mgl64.Vec3{0, 10, 0}))
	require.NoError(t, pub.PlayerJoined(ctx, 2, "b", mgl64.Vec3{0, 10, 0}))

	for _, want := range []uint64{1, 2} {
		select {
		case ev := <-got:
			assert.Equal(t, EventPlayerJoined, ev.EventType)
			assert.NotEmpty(t, ev.ID)
			var pe PlayerEvent
			require.NoError(t, ev.Decode(&pe))
			assert.Equal(t, want, pe.PlayerID)
		case <-time.After(2 * time.Second):
			t.Fatal("событие не доставлено")
		}
	}

	assert.Eventually(t, func() bool { return bus.Metrics().Consumed == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(3), bus.Metrics().Published)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	calls := make(chan struct{}, 4)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		calls <- struct{}{}
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, NewPublisher(bus, "test").PlayerLeft(context.Background(), 1, mgl64.Vec3{}))
	select {
	case <-calls:
		t.Fatal("отписанный обработчик вызван")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := &MemoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, 1),
		done:        make(chan struct{}),
	}
	// dispatchLoop не запущен, буфер заполняется сразу
	ev, err := NewEnvelope("test", EventChunkSaved, PriorityLow, ChunkSavedEvent{})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Publish(context.Background(), ev))

	s := bus.Metrics()
	assert.Equal(t, uint64(1), s.Published)
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Equal(t, 1, s.InFlight)

	high, err := NewEnvelope("test", EventPlayerLeft, PriorityHigh, PlayerEvent{})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(ctx, high), context.DeadlineExceeded)
}

func TestPublisher_NilBus(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.PlayerJoined(context.Background(), 1, "x", mgl64.Vec3{}))
	assert.NoError(t, NewPublisher(nil, "x").ChunksSaved(context.Background(), []vec.Vec3{{}}))
}

func TestMetricsExporter_Collect(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	require.NoError(t, NewPublisher(bus, "t").PlayerJoined(context.Background(), 1, "a", mgl64.Vec3{}))
	prev := me.collect(Stats{})
	assert.Equal(t, 1.0, testutil.ToFloat64(me.published))

	// повторный опрос без новых событий не меняет счётчик
	me.collect(prev)
	assert.Equal(t, 1.0, testutil.ToFloat64(me.published))
}
