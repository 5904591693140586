package mailbox

import (
	"sync"

	"github.com/mosaicnetworks/trustflood/src/event"
)

// EventMailbox is the FIFO queue of externally injected events destined for a
// single node. Any number of goroutines may call Add concurrently, while a
// single consumer calls TryTake.
type EventMailbox struct {
	sync.Mutex
	queue   []event.Event
	readyCh chan struct{}
}

// NewEventMailbox ...
func NewEventMailbox() *EventMailbox {
	return &EventMailbox{
		queue:   []event.Event{},
		readyCh: make(chan struct{}, 1),
	}
}

// Add enqueues an event. It never blocks.
func (m *EventMailbox) Add(ev event.Event) {
	m.Lock()
	m.queue = append(m.queue, ev)
	m.Unlock()

	signal(m.readyCh)
}

// TryTake dequeues the oldest event. The boolean is false when the mailbox is
// empty.
func (m *EventMailbox) TryTake() (event.Event, bool) {
	m.Lock()
	defer m.Unlock()

	if len(m.queue) == 0 {
		return event.Event{}, false
	}

	ev := m.queue[0]
	m.queue[0] = event.Event{}
	m.queue = m.queue[1:]

	return ev, true
}

// HasPending returns true if at least one event is waiting in the mailbox.
func (m *EventMailbox) HasPending() bool {
	return m.Len() > 0
}

// Len returns the number of queued events.
func (m *EventMailbox) Len() int {
	m.Lock()
	defer m.Unlock()

	return len(m.queue)
}

// Ready returns a channel that receives a value after an Add. The channel is
// buffered with a single slot, so a consumer that finds the mailbox empty and
// then waits on Ready never misses an Add that happened in between.
func (m *EventMailbox) Ready() <-chan struct{} {
	return m.readyCh
}

// signal performs a non-blocking send on a 1-buffered wake-up channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
