package store

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/trustflood/src/common"
	"github.com/mosaicnetworks/trustflood/src/event"
	"github.com/sirupsen/logrus"
)

const (
	verdictPrefix      = "verdict"
	notificationPrefix = "notification"
)

// BadgerStore writes every verdict and notification to a Badger database, in
// addition to caching them in an InmemStore. Reads are served from the cache
// when possible, and from the database otherwise.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string
	seq        uint64
	logger     *logrus.Entry
}

// NewBadgerStore opens the Badger database in path, creating it if necessary.
// Records written by a previous run with the same node IDs and indexes are
// overwritten.
func NewBadgerStore(cacheSize int, path string, logger *logrus.Entry) (*BadgerStore, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true).
		WithLogger(logger.WithField("ns", "badger"))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(cacheSize),
		db:         handle,
		path:       path,
		logger:     logger,
	}

	return store, nil
}

/*******************************************************************************
Keys
*******************************************************************************/

func verdictKey(nodeID uint32, index int) []byte {
	return []byte(fmt.Sprintf("%s_%d_%09d", verdictPrefix, nodeID, index))
}

func notificationEventPrefix(eventID int) []byte {
	return []byte(fmt.Sprintf("%s_%d_", notificationPrefix, eventID))
}

func notificationKey(eventID int, seq uint64) []byte {
	return append(notificationEventPrefix(eventID), []byte(fmt.Sprintf("%012d", seq))...)
}

/*******************************************************************************
Store interface
*******************************************************************************/

// CacheSize implements the Store interface.
func (s *BadgerStore) CacheSize() int {
	return s.inmemStore.CacheSize()
}

// AddVerdict implements the Store interface.
func (s *BadgerStore) AddVerdict(v *Verdict) error {
	if err := s.inmemStore.AddVerdict(v); err != nil {
		return err
	}
	return s.dbSetVerdict(v)
}

// GetVerdict implements the Store interface. Verdicts that have rolled out of
// the cache are read from the database.
func (s *BadgerStore) GetVerdict(nodeID uint32, index int) (*Verdict, error) {
	v, err := s.inmemStore.GetVerdict(nodeID, index)
	if err == nil {
		return v, nil
	}
	if !cm.IsStore(err, cm.TooLate) && !cm.IsStore(err, cm.KeyNotFound) {
		return nil, err
	}
	return s.dbGetVerdict(nodeID, index)
}

// GetVerdicts implements the Store interface.
func (s *BadgerStore) GetVerdicts(nodeID uint32, skipIndex int) ([]*Verdict, error) {
	res, err := s.inmemStore.GetVerdicts(nodeID, skipIndex)
	if err == nil {
		return res, nil
	}
	if !cm.IsStore(err, cm.TooLate) {
		return nil, err
	}

	last := s.inmemStore.LastVerdictIndex(nodeID)
	res = []*Verdict{}
	for i := skipIndex + 1; i <= last; i++ {
		v, err := s.GetVerdict(nodeID, i)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}

	return res, nil
}

// LastVerdictIndex implements the Store interface.
func (s *BadgerStore) LastVerdictIndex(nodeID uint32) int {
	return s.inmemStore.LastVerdictIndex(nodeID)
}

// AddNotification implements the Store interface.
func (s *BadgerStore) AddNotification(n event.PeerReport) error {
	if err := s.inmemStore.AddNotification(n); err != nil {
		return err
	}
	return s.dbAddNotification(n)
}

// GetNotifications implements the Store interface. Notifications for events
// that have rolled out of the cache are read from the database.
func (s *BadgerStore) GetNotifications(eventID int) ([]event.PeerReport, error) {
	res, err := s.inmemStore.GetNotifications(eventID)
	if err == nil {
		return res, nil
	}
	if !cm.IsStore(err, cm.KeyNotFound) {
		return nil, err
	}
	return s.dbGetNotifications(eventID)
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

/*******************************************************************************
DB Methods
*******************************************************************************/

func (s *BadgerStore) dbSetVerdict(v *Verdict) error {
	val, err := v.Marshal()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(verdictKey(v.NodeID, v.Index), val); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbGetVerdict(nodeID uint32, index int) (*Verdict, error) {
	var data []byte

	key := verdictKey(nodeID, index)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, "Verdict", string(key))
	}

	v := new(Verdict)
	if err := v.Unmarshal(data); err != nil {
		return nil, err
	}

	return v, nil
}

func (s *BadgerStore) dbAddNotification(n event.PeerReport) error {
	val, err := n.Marshal()
	if err != nil {
		return err
	}

	key := notificationKey(n.ID, atomic.AddUint64(&s.seq, 1))

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func (s *BadgerStore) dbGetNotifications(eventID int) ([]event.PeerReport, error) {
	res := []event.PeerReport{}

	prefix := notificationEventPrefix(eventID)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(data []byte) error {
				var n event.PeerReport
				if err := n.Unmarshal(data); err != nil {
					return err
				}
				res = append(res, n)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, cm.NewStoreErr("Notification", cm.KeyNotFound, string(prefix))
	}

	return res, nil
}

func mapError(err error, name, key string) error {
	if err == badger.ErrKeyNotFound {
		return cm.NewStoreErr(name, cm.KeyNotFound, key)
	}
	return err
}
