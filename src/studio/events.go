package studio

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// EventType represents the type of studio event
type EventType string

const (
	EventBatchStarted EventType = "batch_started"
	EventSlotUpdated  EventType = "slot_updated"
	EventTick         EventType = "tick"
	EventBatchSettled EventType = "batch_settled"
)

// Event is the base interface for all studio events
type Event interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetBatchID() string
}

// BaseEvent contains common fields for all events
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	BatchID   string    `json:"batch_id"`
}

func (e BaseEvent) GetType() EventType      { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetBatchID() string      { return e.BatchID }

// BatchStartedEvent is sent once the slots of a batch are allocated
type BatchStartedEvent struct {
	BaseEvent
	Total int `json:"total"`
}

// SlotEvent is sent whenever a slot changes status
type SlotEvent struct {
	BaseEvent
	Slot Slot `json:"slot"`
}

// TickEvent is sent every tick while a batch is running
type TickEvent struct {
	BaseEvent
	Elapsed int `json:"elapsed"`
}

// BatchEvent is sent when every slot of a batch has settled
type BatchEvent struct {
	BaseEvent
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ErrSinkClosed is returned when sending to a closed sink
var ErrSinkClosed = errors.New("event sink is closed")

// EventSink receives studio events
type EventSink interface {
	// Send sends an event to the sink
	Send(event Event) error

	// Close closes the event sink
	Close() error
}

// EventProcessor processes studio events
type EventProcessor interface {
	Process(event Event) error
}

// ProcessorFunc adapts a function to EventProcessor
type ProcessorFunc func(event Event) error

func (f ProcessorFunc) Process(event Event) error { return f(event) }

// ChannelEventSink delivers events to processors from a single goroutine,
// preserving send order.
type ChannelEventSink struct {
	events     chan Event
	processors []EventProcessor
	done       chan struct{}
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewChannelEventSink creates a new channel-based event sink
func NewChannelEventSink(bufferSize int, logger *slog.Logger, processors ...EventProcessor) *ChannelEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	sink := &ChannelEventSink{
		events:     make(chan Event, bufferSize),
		processors: processors,
		done:       make(chan struct{}),
		logger:     logger.With("component", "event_sink"),
	}

	go sink.processEvents()

	return sink
}

// Send queues an event. It blocks while the buffer is full.
func (s *ChannelEventSink) Send(event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.events <- event
	return nil
}

// Close drains pending events and stops the sink.
func (s *ChannelEventSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *ChannelEventSink) processEvents() {
	defer close(s.done)

	for event := range s.events {
		for _, processor := range s.processors {
			if err := processor.Process(event); err != nil {
				s.logger.Warn("failed to process event", "type", event.GetType(), "error", err)
			}
		}
	}
}

// emitter stamps events with the current batch and forwards them to a sink
type emitter struct {
	sink    EventSink
	batchID string
	logger  *slog.Logger
}

func (e *emitter) base(t EventType) BaseEvent {
	return BaseEvent{Type: t, Timestamp: time.Now(), BatchID: e.batchID}
}

func (e *emitter) send(event Event) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Send(event); err != nil {
		e.logger.Debug("dropped event", "type", event.GetType(), "error", err)
	}
}

func (e *emitter) batchStarted(total int) {
	e.send(&BatchStartedEvent{BaseEvent: e.base(EventBatchStarted), Total: total})
}

func (e *emitter) slot(slot Slot) {
	slot.Parts = cloneParts(slot.Parts)
	e.send(&SlotEvent{BaseEvent: e.base(EventSlotUpdated), Slot: slot})
}

func (e *emitter) tick(elapsed int) {
	e.send(&TickEvent{BaseEvent: e.base(EventTick), Elapsed: elapsed})
}

func (e *emitter) batchSettled(total, succeeded, failed int) {
	e.send(&BatchEvent{BaseEvent: e.base(EventBatchSettled), Total: total, Succeeded: succeeded, Failed: failed})
}
