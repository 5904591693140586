// Package consumer implements a sink that is notified of every event processed
// by the nodes it is connected to.
package consumer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/trustflood/src/event"
	"github.com/mosaicnetworks/trustflood/src/metrics"
	"github.com/mosaicnetworks/trustflood/src/node"
	"github.com/mosaicnetworks/trustflood/src/peers"
	"github.com/mosaicnetworks/trustflood/src/store"
	"github.com/sirupsen/logrus"
)

// Source is a node a Consumer can subscribe to.
type Source interface {
	ID() uint32
	AddConsumer(c node.Consumer)
}

// Consumer receives a notification from every node it is connected to, each
// time one of them processes an event. It keeps a performance score per node,
// initialised to Default; nothing updates the scores yet.
type Consumer struct {
	id     uint32
	conf   *node.Config
	logger *logrus.Entry

	store   store.Store
	metrics *metrics.Metrics

	scoreLock  sync.RWMutex
	perfScores map[uint32]peers.Score

	received uint64

	runLock    sync.Mutex
	running    bool
	shutdownCh chan struct{}
	doneCh     chan struct{}
}

// NewConsumer ...
func NewConsumer(id uint32, conf *node.Config, s store.Store) *Consumer {
	if conf == nil {
		conf = node.DefaultConfig()
	}

	return &Consumer{
		id:         id,
		conf:       conf,
		logger:     conf.Logger.WithField("consumer_id", id),
		store:      s,
		metrics:    conf.Metrics,
		perfScores: make(map[uint32]peers.Score),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Connect subscribes the consumer to every source and gives each one the
// Default performance score.
func (c *Consumer) Connect(sources []Source) {
	c.scoreLock.Lock()
	for _, s := range sources {
		c.perfScores[s.ID()] = peers.Default
	}
	c.scoreLock.Unlock()

	for _, s := range sources {
		s.AddConsumer(c)
	}

	c.logger.WithField("sources", len(sources)).Debug("Connected")
}

// Receive implements node.Consumer. It sleeps for the transmission delay,
// then records the notification.
func (c *Consumer) Receive(r event.PeerReport) {
	time.Sleep(c.conf.TransmissionDelay)

	atomic.AddUint64(&c.received, 1)
	c.metrics.IncNotifications()

	c.logger.WithFields(logrus.Fields{
		"event":  r.ID,
		"origin": r.Origin,
	}).Debug("Notification")

	if c.store == nil {
		return
	}

	if err := c.store.AddNotification(r); err != nil {
		c.logger.WithError(err).Error("Recording notification")
	}
}

// Start runs the consumer loop in its own goroutine. Calling Start on a
// running or terminated consumer does nothing.
func (c *Consumer) Start() {
	c.runLock.Lock()
	defer c.runLock.Unlock()

	if c.running {
		return
	}
	select {
	case <-c.shutdownCh:
		return
	default:
	}

	c.running = true
	go c.run()
}

// run blocks until the consumer is terminated. Notifications are handled on
// the caller's goroutine by Receive.
func (c *Consumer) run() {
	defer close(c.doneCh)

	c.logger.Debug("Start")

	<-c.shutdownCh

	c.logger.Debug("Stopped")
}

// Terminate stops the consumer loop. It is safe to call more than once.
func (c *Consumer) Terminate() {
	c.runLock.Lock()
	defer c.runLock.Unlock()

	select {
	case <-c.shutdownCh:
	default:
		close(c.shutdownCh)
	}
}

// Join waits for the consumer loop to exit. It returns immediately if the
// consumer was never started.
func (c *Consumer) Join() {
	c.runLock.Lock()
	running := c.running
	c.runLock.Unlock()

	if running {
		<-c.doneCh
	}
}

// PerfScores returns a copy of the performance scores.
func (c *Consumer) PerfScores() map[uint32]peers.Score {
	c.scoreLock.RLock()
	defer c.scoreLock.RUnlock()

	res := make(map[uint32]peers.Score, len(c.perfScores))
	for id, s := range c.perfScores {
		res[id] = s
	}
	return res
}

// Received returns the number of notifications received so far.
func (c *Consumer) Received() uint64 {
	return atomic.LoadUint64(&c.received)
}

// ID ...
func (c *Consumer) ID() uint32 {
	return c.id
}
