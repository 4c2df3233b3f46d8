package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Handle(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func swap(input uint64) *SwapExecutedEvent {
	return &SwapExecutedEvent{
		BaseEvent:   NewBaseEvent(SwapExecuted, time.Now()),
		Operation:   OpBuy,
		Market:      solana.WrappedSol,
		InputAmount: input,
	}
}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 64)
	all := &recorder{}
	swaps := &recorder{}
	bus.SubscribeAll(all)
	bus.Subscribe(SwapExecuted, swaps)

	for i := uint64(1); i <= 20; i++ {
		require.NoError(t, bus.Publish(swap(i)))
	}
	require.NoError(t, bus.Publish(&ConfigUpdatedEvent{BaseEvent: NewBaseEvent(ConfigUpdated, time.Now()), Field: "swap_fee_bps"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	got := all.snapshot()
	require.Len(t, got, 21)
	for i, e := range got[:20] {
		assert.Equal(t, uint64(i+1), e.(*SwapExecutedEvent).InputAmount)
	}
	assert.Equal(t, ConfigUpdated, got[20].Type())
	assert.Len(t, swaps.snapshot(), 20)

	assert.ErrorIs(t, bus.Publish(swap(99)), ErrBusClosed)

	stats := bus.Stats()
	assert.Equal(t, uint64(20), stats.PerType[SwapExecuted])
	assert.Equal(t, uint64(1), stats.PerType[ConfigUpdated])
	assert.Equal(t, 2, stats.Subscribers)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	block := make(chan struct{})
	bus.SubscribeFunc(SwapExecuted, func(context.Context, Event) error {
		<-block
		return nil
	})

	var dropped int
	for i := 0; i < 10; i++ {
		if err := bus.Publish(swap(uint64(i))); err != nil {
			assert.ErrorIs(t, err, ErrBusFull)
			dropped++
		}
	}
	assert.Greater(t, dropped, 0, "publishing must not block on a slow handler")
	close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))
	stats := bus.Stats()
	assert.Equal(t, uint64(dropped), stats.Dropped)
	assert.Equal(t, stats.Published, stats.Delivered)
}

func TestSubscription_Unsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	r := &recorder{}
	sub := bus.Subscribe(SwapExecuted, r)
	sub.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), swap(1)))
	assert.Empty(t, r.snapshot())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))
}

func TestBus_SubscriberOrderAndErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	var order []string
	bus.SubscribeFunc(SwapExecuted, func(context.Context, Event) error {
		order = append(order, "first")
		return errors.New("boom")
	})
	bus.SubscribeAll(HandlerFunc(func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	}))

	err := bus.PublishSync(context.Background(), swap(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, uint64(1), bus.Stats().Failed)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))
	require.NoError(t, bus.Shutdown(ctx))
}

func TestBus_ShutdownRacingPublishers(t *testing.T) {
	for round := 0; round < 50; round++ {
		bus := NewBus(zap.NewNop(), 1024)
		r := &recorder{}
		bus.SubscribeAll(r)

		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := uint64(0); i < 100; i++ {
					if err := bus.Publish(swap(i)); err != nil {
						return
					}
				}
			}()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		require.NoError(t, bus.Shutdown(ctx))
		cancel()
		wg.Wait()

		stats := bus.Stats()
		assert.Equal(t, stats.Published, stats.Delivered)
		assert.Len(t, r.snapshot(), int(stats.Published))
	}
}
