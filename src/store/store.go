package store

import (
	"github.com/mosaicnetworks/trustflood/src/event"
)

// Store is the ledger of what happened during a simulation. Nodes append a
// Verdict after every round and consumers append the notifications they
// receive. Nothing is ever read back into a node; the ledger is only there to
// be inspected.
type Store interface {
	CacheSize() int
	AddVerdict(*Verdict) error
	GetVerdict(nodeID uint32, index int) (*Verdict, error)
	GetVerdicts(nodeID uint32, skipIndex int) ([]*Verdict, error)
	LastVerdictIndex(nodeID uint32) int
	AddNotification(event.PeerReport) error
	GetNotifications(eventID int) ([]event.PeerReport, error)
	StorePath() string
	Close() error
}
