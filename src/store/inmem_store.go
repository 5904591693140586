package store

import (
	"strconv"
	"sync"

	cm "github.com/mosaicnetworks/trustflood/src/common"
	"github.com/mosaicnetworks/trustflood/src/event"
)

// InmemStore keeps the most recent verdicts of every node, and the
// notifications of the most recent events, in memory. The number of items
// retained is bounded by the cache size.
type InmemStore struct {
	sync.RWMutex

	cacheSize int

	verdictsByNode *cm.RollingIndexMap[*Verdict]

	notifications map[int][]event.PeerReport
	eventOrder    []int

	closed bool
}

// NewInmemStore ...
func NewInmemStore(cacheSize int) *InmemStore {
	return &InmemStore{
		cacheSize:      cacheSize,
		verdictsByNode: cm.NewRollingIndexMap[*Verdict]("Verdict", cacheSize),
		notifications:  make(map[int][]event.PeerReport),
		eventOrder:     []int{},
	}
}

// CacheSize implements the Store interface.
func (s *InmemStore) CacheSize() int {
	return s.cacheSize
}

// AddVerdict implements the Store interface. Verdicts of a node must be added
// with consecutive indexes.
func (s *InmemStore) AddVerdict(v *Verdict) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return cm.NewStoreErr("Verdict", cm.Closed, strconv.Itoa(v.Index))
	}

	return s.verdictsByNode.Set(v.NodeID, v, v.Index)
}

// GetVerdict implements the Store interface.
func (s *InmemStore) GetVerdict(nodeID uint32, index int) (*Verdict, error) {
	s.RLock()
	defer s.RUnlock()

	return s.verdictsByNode.GetItem(nodeID, index)
}

// GetVerdicts implements the Store interface. It returns the cached verdicts
// of a node with an index greater than skipIndex.
func (s *InmemStore) GetVerdicts(nodeID uint32, skipIndex int) ([]*Verdict, error) {
	s.RLock()
	defer s.RUnlock()

	return s.verdictsByNode.Get(nodeID, skipIndex)
}

// LastVerdictIndex implements the Store interface. It returns -1 if the node
// has no verdict.
func (s *InmemStore) LastVerdictIndex(nodeID uint32) int {
	s.RLock()
	defer s.RUnlock()

	last, ok := s.verdictsByNode.Known()[nodeID]
	if !ok {
		return -1
	}

	return last
}

// AddNotification implements the Store interface. Once notifications for more
// than cacheSize distinct events are held, those of the oldest event are
// dropped.
func (s *InmemStore) AddNotification(n event.PeerReport) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return cm.NewStoreErr("Notification", cm.Closed, strconv.Itoa(n.ID))
	}

	if _, ok := s.notifications[n.ID]; !ok {
		s.eventOrder = append(s.eventOrder, n.ID)
		if s.cacheSize > 0 && len(s.eventOrder) > s.cacheSize {
			delete(s.notifications, s.eventOrder[0])
			s.eventOrder = s.eventOrder[1:]
		}
	}

	s.notifications[n.ID] = append(s.notifications[n.ID], n)

	return nil
}

// GetNotifications implements the Store interface.
func (s *InmemStore) GetNotifications(eventID int) ([]event.PeerReport, error) {
	s.RLock()
	defer s.RUnlock()

	ns, ok := s.notifications[eventID]
	if !ok {
		return nil, cm.NewStoreErr("Notification", cm.KeyNotFound, strconv.Itoa(eventID))
	}

	res := make([]event.PeerReport, len(ns))
	copy(res, ns)

	return res, nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}

// Close implements the Store interface. Reads still work after Close.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()

	s.closed = true

	return nil
}
