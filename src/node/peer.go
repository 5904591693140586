package node

import (
	"github.com/mosaicnetworks/trustflood/src/event"
)

// Peer is the side of a node that its peers see: something events can be
// forwarded to. *Node implements Peer.
type Peer interface {
	ID() uint32
	Forward(origin uint32, ev event.Event)
}

// Consumer is notified of every event a node processes, before the node
// broadcasts it.
type Consumer interface {
	Receive(r event.PeerReport)
}

// LinkFilter inspects an event travelling over a link. It returns the event to
// deliver, possibly rewritten, and false if the event must be dropped.
type LinkFilter func(origin uint32, ev event.Event) (event.Event, bool)

// FilteredPeer is a Peer whose incoming forwards go through a LinkFilter
// before reaching the underlying Peer. It is used to simulate faulty or
// malicious nodes.
type FilteredPeer struct {
	peer   Peer
	filter LinkFilter
}

// NewFilteredPeer wraps p so that every forward to it goes through f. A nil
// filter delivers everything unchanged.
func NewFilteredPeer(p Peer, f LinkFilter) *FilteredPeer {
	return &FilteredPeer{
		peer:   p,
		filter: f,
	}
}

// ID returns the ID of the underlying peer.
func (fp *FilteredPeer) ID() uint32 {
	return fp.peer.ID()
}

// Forward implements the Peer interface.
func (fp *FilteredPeer) Forward(origin uint32, ev event.Event) {
	if fp.filter != nil {
		var ok bool
		if ev, ok = fp.filter(origin, ev); !ok {
			return
		}
	}
	fp.peer.Forward(origin, ev)
}

// CorruptPayload replaces the payload of every event with payload.
func CorruptPayload(payload string) LinkFilter {
	return func(origin uint32, ev event.Event) (event.Event, bool) {
		return event.NewEvent(ev.ID, payload), true
	}
}

// DropEvents drops the events with the given IDs and lets the others through.
func DropEvents(ids ...int) LinkFilter {
	dropped := make(map[int]bool, len(ids))
	for _, id := range ids {
		dropped[id] = true
	}
	return func(origin uint32, ev event.Event) (event.Event, bool) {
		return ev, !dropped[ev.ID]
	}
}

// DropAll drops every event.
func DropAll() LinkFilter {
	return func(origin uint32, ev event.Event) (event.Event, bool) {
		return ev, false
	}
}
