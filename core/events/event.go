package events

import (
	"sync"

	"solpay/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can render themselves into the wire
// representation served over RPC and stored by the indexer.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Wrap lifts a raw wire event into an Emitter-compatible value.
func Wrap(evt *types.Event) Event {
	if evt == nil {
		return nil
	}
	return wireEvent{evt: evt}
}

type wireEvent struct {
	evt *types.Event
}

func (w wireEvent) EventType() string   { return w.evt.Type }
func (w wireEvent) Event() *types.Event { return w.evt }

// ToWire renders evt into its wire form, returning nil for events that carry
// no payload.
func ToWire(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	if p, ok := evt.(Payload); ok {
		return p.Event()
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}

// Buffer collects events in memory. Transactions stage their events in a
// Buffer and only forward them once state is committed.
type Buffer struct {
	mu     sync.Mutex
	events []*types.Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	wire := ToWire(evt)
	if wire == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, wire)
	b.mu.Unlock()
}

// Events returns a snapshot of the buffered events.
func (b *Buffer) Events() []*types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*types.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Reset drops all buffered events.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Fanout forwards each event to every non-nil emitter in order.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(evt)
		}
	}
}
