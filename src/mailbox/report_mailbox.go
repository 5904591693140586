package mailbox

import (
	"sync"

	"github.com/mosaicnetworks/trustflood/src/event"
)

// ReportMailbox receives the events forwarded by a node's peers. Reports are
// first appended to an ingress queue by the producing peers, and moved into a
// buffer by the consumer when it looks for the reports of a given event. The
// buffer retains reports for other events so they can be matched later.
type ReportMailbox struct {
	sync.Mutex
	ingress []event.PeerReport
	buffer  []event.PeerReport
	readyCh chan struct{}
}

// NewReportMailbox ...
func NewReportMailbox() *ReportMailbox {
	return &ReportMailbox{
		ingress: []event.PeerReport{},
		buffer:  []event.PeerReport{},
		readyCh: make(chan struct{}, 1),
	}
}

// Add wraps ev with the ID of the peer that forwarded it and enqueues the
// result. Safe for concurrent use by any number of peers.
func (m *ReportMailbox) Add(origin uint32, ev event.Event) {
	m.Lock()
	m.ingress = append(m.ingress, event.NewPeerReport(origin, ev))
	m.Unlock()

	signal(m.readyCh)
}

// TakeMatching drains the ingress queue into the buffer and returns a copy of
// every buffered report for the given event, in arrival order. The returned
// reports remain in the buffer until DiscardMatching is called.
func (m *ReportMailbox) TakeMatching(eventID int) []event.PeerReport {
	m.Lock()
	defer m.Unlock()

	m.buffer = append(m.buffer, m.ingress...)
	m.ingress = m.ingress[:0]

	res := []event.PeerReport{}
	for _, r := range m.buffer {
		if r.ID == eventID {
			res = append(res, r)
		}
	}

	return res
}

// DiscardMatching removes the buffered reports for the given event. Reports
// that are still in the ingress queue are not affected.
func (m *ReportMailbox) DiscardMatching(eventID int) {
	m.Lock()
	defer m.Unlock()

	kept := m.buffer[:0]
	for _, r := range m.buffer {
		if r.ID != eventID {
			kept = append(kept, r)
		}
	}

	// clear the tail so discarded reports can be collected
	for i := len(kept); i < len(m.buffer); i++ {
		m.buffer[i] = event.PeerReport{}
	}

	m.buffer = kept
}

// Pending returns the number of reports in the ingress queue.
func (m *ReportMailbox) Pending() int {
	m.Lock()
	defer m.Unlock()

	return len(m.ingress)
}

// Buffered returns the number of reports that have been drained from the
// ingress queue but not yet discarded.
func (m *ReportMailbox) Buffered() int {
	m.Lock()
	defer m.Unlock()

	return len(m.buffer)
}

// Ready returns a channel that receives a value after an Add.
func (m *ReportMailbox) Ready() <-chan struct{} {
	return m.readyCh
}
