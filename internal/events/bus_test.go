package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInSubscriptionOrder(t *testing.T) {
	var bus Bus[int]
	var got []string

	bus.Subscribe(func(context.Context, int) error { got = append(got, "first"); return nil })
	bus.Subscribe(func(context.Context, int) error { got = append(got, "second"); return nil })
	require.NoError(t, bus.Publish(context.Background(), 1))

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestPublishJoinsErrors(t *testing.T) {
	var bus Bus[string]
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	reached := false

	bus.Subscribe(func(context.Context, string) error { return errA })
	bus.Subscribe(func(context.Context, string) error { return errB })
	bus.Subscribe(func(context.Context, string) error { reached = true; return nil })

	err := bus.Publish(context.Background(), "x")
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.True(t, reached)
}

func TestPublishPassesContext(t *testing.T) {
	type key struct{}
	var bus Bus[int]
	var seen any

	bus.Subscribe(func(ctx context.Context, _ int) error { seen = ctx.Value(key{}); return nil })
	ctx := context.WithValue(context.Background(), key{}, "session-1")
	require.NoError(t, bus.Publish(ctx, 0))

	assert.Equal(t, "session-1", seen)
}

func TestUnsubscribe(t *testing.T) {
	var bus Bus[string]
	calls := 0

	unsub := bus.Subscribe(func(context.Context, string) error { calls++; return nil })
	bus.Publish(context.Background(), "a")
	unsub()
	unsub()
	bus.Publish(context.Background(), "b")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Len())
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	var bus Bus[int]
	calls := 0

	var unsub func()
	unsub = bus.Subscribe(func(context.Context, int) error {
		calls++
		unsub()
		return nil
	})

	bus.Publish(context.Background(), 1)
	bus.Publish(context.Background(), 2)
	assert.Equal(t, 1, calls)
}

func TestSignal(t *testing.T) {
	var s Signal
	var a, b int

	s.Notify(func() { a++ })
	stopB := s.Notify(func() { b++ })
	s.Emit()
	stopB()
	s.Emit()

	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}
