package bus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_ Event, handlers int, err error, _ time.Duration) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got Event
	_, err := b.Subscribe("monkey.captured", func(e Event) error {
		got = e
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent("monkey.captured", "run-1", "Jimi")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.Data != "Jimi" || got.Source != "run-1" {
		t.Fatalf("handler got %+v", got)
	}
	assert.False(t, got.Time.IsZero())
}

func TestDeliveryOrderAndWildcard(t *testing.T) {
	b := New()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		_, err := b.Subscribe("session.state", func(Event) error {
			order = append(order, name)
			return nil
		})
		require.NoError(t, err)
	}
	_, err := b.Subscribe(Wildcard, func(e Event) error {
		order = append(order, "*"+e.Type)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("session.state", "", nil)))
	require.NoError(t, b.Publish(NewEvent("hunter.mode", "", nil)))
	assert.Equal(t, []string{"a", "b", "c", "*session.state", "*hunter.mode"}, order)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("ev", func(Event) error { count++; return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, "ev", sub.EventType())

	require.NoError(t, b.Publish(NewEvent("ev", "", nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel(), "second cancel is safe")
	require.NoError(t, b.Unsubscribe(nil))
	require.NoError(t, b.Publish(NewEvent("ev", "", nil)))

	assert.Equal(t, 1, count)
	assert.False(t, sub.IsActive())
}

func TestErrorsAreJoined(t *testing.T) {
	b := New()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return nil })
	_, _ = b.Subscribe("y", func(Event) error { return errB })

	err := b.PublishBatch(NewEvent("x", "", nil), NewEvent("y", "", nil), NewEvent("z", "", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestInvalidArguments(t *testing.T) {
	b := New()
	_, err := b.Subscribe("", func(Event) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyEventType)
	_, err = b.Subscribe("ev", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
	assert.ErrorIs(t, b.Publish(Event{}), ErrEmptyEventType)
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	// without observer, metrics should remain zero despite activity
	_, _ = b.Subscribe("e", func(e Event) error { return nil })
	_ = b.Publish(NewEvent("e", "s", nil))
	m := b.GetMetrics()
	if m.Published != 0 || m.DeliveredHandlers != 0 {
		t.Fatalf("metrics should be zero without observers: %+v", m)
	}

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil))
	m2 := b.GetMetrics()
	assert.Equal(t, uint64(1), m2.Published)
	assert.Equal(t, uint64(1), m2.DeliveredHandlers)
	assert.Equal(t, uint64(1), m2.SubscribersActive)
	assert.Equal(t, 1, obs.publishCount)
	assert.Equal(t, 1, obs.deliveredCount)

	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil))
	assert.Equal(t, 1, obs.publishCount)
}
