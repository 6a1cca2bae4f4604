package studio

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelEventSinkPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []EventType

	sink := NewChannelEventSink(4, nil, ProcessorFunc(func(event Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.GetType())
		return nil
	}), ProcessorFunc(func(event Event) error {
		return errors.New("ignored")
	}))

	e := &emitter{sink: sink, batchID: "b1", logger: sink.logger}
	e.batchStarted(1)
	e.slot(Slot{ID: 0, Status: StatusGenerating})
	e.tick(1)
	e.batchSettled(1, 1, 0)

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	assert.Equal(t, []EventType{EventBatchStarted, EventSlotUpdated, EventTick, EventBatchSettled}, seen)
	assert.ErrorIs(t, sink.Send(&TickEvent{}), ErrSinkClosed)
}

func TestEmitterWithoutSink(t *testing.T) {
	e := &emitter{}
	assert.NotPanics(t, func() {
		e.batchStarted(2)
		e.tick(3)
	})
}
