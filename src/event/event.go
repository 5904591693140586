package event

import (
	"bytes"
	"fmt"

	"github.com/ugorji/go/codec"
)

// Event is a discrete piece of information flooded through the network. The ID
// is assigned by whoever injects the event and is the key used to correlate
// the copies of the same event forwarded by different peers.
type Event struct {
	ID      int
	Payload string
}

// NewEvent ...
func NewEvent(id int, payload string) Event {
	return Event{
		ID:      id,
		Payload: payload,
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%d | %s", e.ID, e.Payload)
}

// PeerReport is an Event tagged with the ID of the node that relayed it. Nodes
// produce PeerReports when they forward an event to a peer, and when they
// notify their consumers of an event they have processed.
type PeerReport struct {
	Event
	Origin uint32
}

// NewPeerReport ...
func NewPeerReport(origin uint32, ev Event) PeerReport {
	return PeerReport{
		Event:  ev,
		Origin: origin,
	}
}

func (r PeerReport) String() string {
	return fmt.Sprintf("%d | %s | from %d", r.ID, r.Payload, r.Origin)
}

// Agrees returns true if the report carries the same event as ev.
func (r PeerReport) Agrees(ev Event) bool {
	return r.ID == ev.ID && r.Payload == ev.Payload
}

// Marshal encodes the report in canonical JSON.
func (r *PeerReport) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes a report produced by Marshal.
func (r *PeerReport) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(r)
}
