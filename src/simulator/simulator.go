package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/trustflood/src/config"
	"github.com/mosaicnetworks/trustflood/src/consumer"
	"github.com/mosaicnetworks/trustflood/src/event"
	"github.com/mosaicnetworks/trustflood/src/metrics"
	"github.com/mosaicnetworks/trustflood/src/node"
	"github.com/mosaicnetworks/trustflood/src/peers"
	"github.com/mosaicnetworks/trustflood/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Simulator builds a fully connected network of nodes with a consumer
// subscribed to all of them, and feeds it one event per round.
type Simulator struct {
	conf   *config.Config
	logger *logrus.Entry

	runID uuid.UUID
	seed  int64
	rnd   *rand.Rand

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store    store.Store
	nodes    []*node.Node
	consumer *consumer.Consumer

	statsLock sync.Mutex
	injected  int
	started   time.Time

	stopOnce sync.Once
	stopErr  error
}

// NewSimulator validates the configuration and wires the network. Nothing
// runs until Run is called.
func NewSimulator(conf *config.Config) (*Simulator, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runID := uuid.New()

	registry := prometheus.NewRegistry()

	sim := &Simulator{
		conf:     conf,
		logger:   conf.Logger().WithField("run_id", runID.String()),
		runID:    runID,
		seed:     seed,
		rnd:      rand.New(rand.NewSource(seed)),
		registry: registry,
		metrics:  metrics.New(registry),
	}

	if err := sim.initStore(); err != nil {
		return nil, err
	}

	if err := sim.initNodes(); err != nil {
		sim.store.Close()
		return nil, err
	}

	sim.initConsumer()

	sim.logger.WithFields(logrus.Fields{
		"nodes":   conf.Nodes,
		"events":  conf.Events,
		"seed":    seed,
		"corrupt": conf.Corrupt,
		"silent":  conf.Silent,
		"store":   conf.Store,
	}).Debug("Simulator created")

	return sim, nil
}

func (s *Simulator) initStore() error {
	if !s.conf.Store {
		s.store = store.NewInmemStore(s.conf.CacheSize)

		s.logger.Debug("created new in-mem store")

		return nil
	}

	s.logger.WithField("path", s.conf.DatabaseDir).Debug("Attempting to create database")

	badgerStore, err := store.NewBadgerStore(
		s.conf.CacheSize,
		s.conf.DatabaseDir,
		s.logger.WithField("component", "badger"),
	)
	if err != nil {
		return fmt.Errorf("opening store: %v", err)
	}

	s.store = badgerStore

	return nil
}

func (s *Simulator) initNodes() error {
	nodeConf := s.conf.NodeConfig(s.metrics)

	s.nodes = make([]*node.Node, s.conf.Nodes)
	for i := 0; i < s.conf.Nodes; i++ {
		s.nodes[i] = node.NewNode(uint32(i), nodeConf, s.store)
	}

	faults := newFaultPlan(s.conf.Corrupt, s.conf.Silent)

	ids := make([]uint32, len(s.nodes))
	for i, n := range s.nodes {
		ids[i] = n.ID()
	}

	for _, n := range s.nodes {
		_, otherIDs := peers.ExcludePeer(ids, n.ID())

		others := make([]*node.Node, len(otherIDs))
		for i, id := range otherIDs {
			others[i] = s.nodes[id]
		}

		if err := n.Connect(faults.links(n.ID(), others)); err != nil {
			return fmt.Errorf("connecting node %d: %v", n.ID(), err)
		}
	}

	return nil
}

func (s *Simulator) initConsumer() {
	s.consumer = consumer.NewConsumer(0, s.conf.NodeConfig(s.metrics), s.store)

	sources := make([]consumer.Source, len(s.nodes))
	for i, n := range s.nodes {
		sources[i] = n
	}

	s.consumer.Connect(sources)
}

// Run starts the nodes and the consumer, then injects one event per round into
// every node, in a random order, pausing for the configured interval between
// rounds. It returns when all events have been injected or ctx is cancelled.
// It does not stop the network; call Stop for that.
func (s *Simulator) Run(ctx context.Context) error {
	for _, n := range s.nodes {
		if err := n.Start(); err != nil {
			return fmt.Errorf("starting node %d: %v", n.ID(), err)
		}
	}

	s.consumer.Start()

	s.statsLock.Lock()
	s.started = time.Now()
	s.statsLock.Unlock()

	s.logger.Info("Simulation started")

	order := make([]*node.Node, len(s.nodes))
	copy(order, s.nodes)

	for i := 0; i < s.conf.Events; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.rnd.Shuffle(len(order), func(a, b int) {
			order[a], order[b] = order[b], order[a]
		})

		ev := event.NewEvent(i, fmt.Sprintf("event_%d", i))
		for _, n := range order {
			n.Receive(ev)
		}

		s.statsLock.Lock()
		s.injected++
		s.statsLock.Unlock()

		select {
		case <-time.After(s.conf.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		s.logRound(i, order)
	}

	s.logger.Info("All events injected")

	return nil
}

func (s *Simulator) logRound(i int, order []*node.Node) {
	ids := make([]uint32, len(order))
	for j, n := range order {
		ids[j] = n.ID()
	}

	s.logger.WithFields(logrus.Fields{
		"round": i,
		"order": ids,
	}).Info("Injection order")

	for _, n := range s.nodes {
		s.logger.WithFields(logrus.Fields{
			"round":  i,
			"node":   n.ID(),
			"scores": formatScores(n.PeerScores()),
		}).Info("Peer scores")
	}
}

func formatScores(scores map[uint32]peers.Score) string {
	ids := make([]uint32, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	ids = peers.NewPeerSet(ids).SortedIDs()

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d:%v", id, float64(scores[id]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Stop terminates and joins every node, then the consumer, and closes the
// store. Subsequent calls return the result of the first one.
func (s *Simulator) Stop() error {
	s.stopOnce.Do(func() {
		for _, n := range s.nodes {
			n.Terminate()
			n.Join()
		}

		s.consumer.Terminate()
		s.consumer.Join()

		s.logStats()

		s.stopErr = s.store.Close()

		s.logger.Info("Simulation stopped")
	})

	return s.stopErr
}

/*******************************************************************************
Getters
*******************************************************************************/

// Nodes returns the nodes ordered by ID.
func (s *Simulator) Nodes() []*node.Node {
	res := make([]*node.Node, len(s.nodes))
	copy(res, s.nodes)
	return res
}

// Node returns the node with the given ID.
func (s *Simulator) Node(id uint32) (*node.Node, bool) {
	if int(id) >= len(s.nodes) {
		return nil, false
	}
	return s.nodes[id], true
}

// Consumer ...
func (s *Simulator) Consumer() *consumer.Consumer {
	return s.consumer
}

// Store ...
func (s *Simulator) Store() store.Store {
	return s.store
}

// Gatherer returns the registry holding the simulation's metrics.
func (s *Simulator) Gatherer() prometheus.Gatherer {
	return s.registry
}

// RunID uniquely identifies this simulation in logs.
func (s *Simulator) RunID() string {
	return s.runID.String()
}

// Seed returns the seed used to shuffle the injection order.
func (s *Simulator) Seed() int64 {
	return s.seed
}
