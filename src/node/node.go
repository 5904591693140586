package node

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/trustflood/src/event"
	"github.com/mosaicnetworks/trustflood/src/mailbox"
	"github.com/mosaicnetworks/trustflood/src/metrics"
	"github.com/mosaicnetworks/trustflood/src/peers"
	"github.com/mosaicnetworks/trustflood/src/store"
	"github.com/sirupsen/logrus"
)

// ErrInvalidState is returned when a lifecycle operation is called in a state
// that does not allow it, like connecting a node twice.
var ErrInvalidState = errors.New("invalid node state")

// Node is an actor that processes injected events one at a time, floods them
// to its peers, and scores each peer on whether the copy it forwards back
// agrees with its own.
type Node struct {
	state

	id     uint32
	conf   *Config
	logger *logrus.Entry

	store   store.Store
	metrics *metrics.Metrics

	// connLock guards the lifecycle transitions that touch the peer list.
	connLock sync.Mutex
	links    []Peer
	peerSet  *peers.PeerSet
	scores   *peers.ScoreTable

	consumerLock sync.RWMutex
	consumers    []Consumer

	events  *mailbox.EventMailbox
	reports *mailbox.ReportMailbox

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	start        time.Time
	roundIndex   int
	rounds       uint64
	ignored      uint64
	storeErrors  uint64
	lastDuration int64
}

// NewNode is a factory method that returns a Node instance. The store may be
// nil, in which case rounds are not recorded.
func NewNode(id uint32, conf *Config, s store.Store) *Node {
	if conf == nil {
		conf = DefaultConfig()
	}

	emptySet := peers.NewPeerSet(nil)

	node := Node{
		id:         id,
		conf:       conf,
		logger:     conf.Logger.WithField("node_id", id),
		store:      s,
		metrics:    conf.Metrics,
		links:      []Peer{},
		peerSet:    emptySet,
		scores:     peers.NewScoreTable(emptySet),
		consumers:  []Consumer{},
		events:     mailbox.NewEventMailbox(),
		reports:    mailbox.NewReportMailbox(),
		shutdownCh: make(chan struct{}),
	}

	return &node
}

/*******************************************************************************
Lifecycle
*******************************************************************************/

// Connect records the peers of the node, in order, and sets all their scores
// to Default. The node itself and duplicate IDs are skipped. It can only be
// called once, before Start; other calls return ErrInvalidState and change
// nothing.
func (n *Node) Connect(links []Peer) error {
	n.connLock.Lock()
	defer n.connLock.Unlock()

	if s := n.getState(); s != Created {
		n.logger.WithField("state", s.String()).Warn("Connect refused")
		return ErrInvalidState
	}

	accepted := []Peer{}
	peerSet := peers.NewPeerSet(nil)

	for _, l := range links {
		id := l.ID()
		if id == n.id {
			n.logger.Warn("Skipping link to self")
			continue
		}
		if peerSet.Contains(id) {
			n.logger.WithField("peer", id).Warn("Skipping duplicate peer")
			continue
		}
		accepted = append(accepted, l)
		peerSet = peerSet.WithNewPeer(id)
	}

	n.links = accepted
	n.peerSet = peerSet
	n.scores = peers.NewScoreTable(n.peerSet)

	n.setState(Connected)

	n.logger.WithField("peers", peerSet.IDs()).Debug("Connected")

	return nil
}

// AddConsumer registers a sink that is notified of every processed event.
func (n *Node) AddConsumer(c Consumer) {
	n.consumerLock.Lock()
	defer n.consumerLock.Unlock()

	n.consumers = append(n.consumers, c)
}

// Start launches the processing loop in its own goroutine. A node can be
// started without peers.
func (n *Node) Start() error {
	n.connLock.Lock()
	defer n.connLock.Unlock()

	if !n.casState(Connected, Running) && !n.casState(Created, Running) {
		n.logger.WithField("state", n.getState().String()).Warn("Start refused")
		return ErrInvalidState
	}

	n.start = time.Now()

	n.logger.Debug("Start")

	n.goFunc(n.run)

	return nil
}

// Terminate asks the processing loop to exit. It does not wait; use Join for
// that. A node that was never started goes straight to Stopped. Calling
// Terminate more than once is harmless.
func (n *Node) Terminate() {
	for {
		switch s := n.getState(); s {
		case Running:
			if n.casState(Running, Stopping) {
				n.logger.Debug("Terminate")
				n.closeShutdown()
				return
			}
		case Created, Connected:
			if n.casState(s, Stopped) {
				n.logger.Debug("Terminate before start")
				n.closeShutdown()
				return
			}
		default:
			return
		}
	}
}

// Join blocks until the processing loop has exited. It returns immediately if
// the node was never started.
func (n *Node) Join() {
	n.waitRoutines()
}

func (n *Node) closeShutdown() {
	n.shutdownOnce.Do(func() {
		close(n.shutdownCh)
	})
}

/*******************************************************************************
Inbound
*******************************************************************************/

// Receive injects an event into the node. It sleeps for the transmission delay
// before queueing the event. Events received after termination are queued but
// never processed.
func (n *Node) Receive(ev event.Event) {
	time.Sleep(n.conf.TransmissionDelay)
	n.events.Add(ev)
}

// Forward implements the Peer interface. It is called by a peer relaying an
// event the peer has processed.
func (n *Node) Forward(origin uint32, ev event.Event) {
	time.Sleep(n.conf.TransmissionDelay)
	n.reports.Add(origin, ev)
}

/*******************************************************************************
Processing loop
*******************************************************************************/

func (n *Node) run() {
	defer func() {
		n.setState(Stopped)
		n.logger.Debug("Stopped")
	}()

	for {
		if n.getState() != Running {
			return
		}

		ev, ok := n.events.TryTake()
		if !ok {
			select {
			case <-n.events.Ready():
			case <-n.shutdownCh:
			}
			continue
		}

		n.process(ev)
	}
}

// process runs one round for ev: notify consumers, broadcast to peers, reset
// scores, collect and score the peers' reports, and purge them.
func (n *Node) process(ev event.Event) {
	start := time.Now()

	n.logger.WithField("event", ev.String()).Debug("Processing event")

	n.notify(ev)

	n.broadcast(ev)

	n.scores.Reset()

	reports := n.collect(ev)

	ignored := n.assign(ev, reports)

	n.reports.DiscardMatching(ev.ID)

	n.record(ev, len(reports), ignored, time.Since(start))
}

func (n *Node) notify(ev event.Event) {
	n.consumerLock.RLock()
	consumers := make([]Consumer, len(n.consumers))
	copy(consumers, n.consumers)
	n.consumerLock.RUnlock()

	r := event.NewPeerReport(n.id, ev)
	for _, c := range consumers {
		c.Receive(r)
	}
}

// broadcast forwards ev to every peer in connection order. Each forward pays
// the transmission delay synchronously.
func (n *Node) broadcast(ev event.Event) {
	for _, l := range n.links {
		l.Forward(n.id, ev)
	}
	n.metrics.IncForwards(len(n.links))
}

// collect returns the reports received for ev. With a CollectTimeout, it waits
// until every peer has reported, the timeout expires, or the node is
// terminated.
func (n *Node) collect(ev event.Event) []event.PeerReport {
	reports := n.reports.TakeMatching(ev.ID)

	if n.conf.CollectTimeout <= 0 || n.peerSet.Len() == 0 {
		return reports
	}

	timer := time.NewTimer(n.conf.CollectTimeout)
	defer timer.Stop()

	for !n.allReported(reports) {
		select {
		case <-n.reports.Ready():
			reports = n.reports.TakeMatching(ev.ID)
		case <-timer.C:
			n.logger.WithFields(logrus.Fields{
				"event":   ev.ID,
				"reports": len(reports),
			}).Debug("Collect timeout")
			return reports
		case <-n.shutdownCh:
			return reports
		}
	}

	return reports
}

func (n *Node) allReported(reports []event.PeerReport) bool {
	seen := make(map[uint32]bool, n.peerSet.Len())
	for _, r := range reports {
		if n.peerSet.Contains(r.Origin) {
			seen[r.Origin] = true
		}
	}
	return len(seen) == n.peerSet.Len()
}

// assign scores every peer that reported on ev, in arrival order, so the last
// report of a peer wins. It returns the number of reports from unknown nodes.
func (n *Node) assign(ev event.Event, reports []event.PeerReport) int {
	ignored := 0

	for _, r := range reports {
		if !n.scores.Set(r.Origin, peers.Verdict(r.Agrees(ev))) {
			n.logger.WithFields(logrus.Fields{
				"event":  ev.ID,
				"origin": r.Origin,
			}).Debug("Ignoring report from unknown node")
			ignored++
		}
	}

	return ignored
}

func (n *Node) record(ev event.Event, reports int, ignored int, d time.Duration) {
	scores := n.scores.Snapshot()

	atomic.AddUint64(&n.rounds, 1)
	atomic.AddUint64(&n.ignored, uint64(ignored))
	atomic.StoreInt64(&n.lastDuration, int64(d))

	n.metrics.ObserveRound(n.id, d)
	n.metrics.IncIgnored(ignored)
	for p, s := range scores {
		n.metrics.ObserveVerdict(n.id, p, float64(s), s.String())
	}

	n.logger.WithFields(logrus.Fields{
		"event":    ev.ID,
		"reports":  reports,
		"ignored":  ignored,
		"duration": d,
	}).Debug("Processed event")

	if n.store == nil {
		return
	}

	v := store.NewVerdict(n.id, n.roundIndex, ev.ID, ev.Payload, scores)
	v.Reports = reports
	v.Ignored = ignored

	if err := n.store.AddVerdict(v); err != nil {
		atomic.AddUint64(&n.storeErrors, 1)
		n.logger.WithError(err).Error("Recording verdict")
		return
	}

	n.roundIndex++
}

/*******************************************************************************
Getters
*******************************************************************************/

// ID ...
func (n *Node) ID() uint32 {
	return n.id
}

// State ...
func (n *Node) State() State {
	return n.getState()
}

// Peers returns the IDs of the peers in connection order.
func (n *Node) Peers() []uint32 {
	n.connLock.Lock()
	defer n.connLock.Unlock()

	return n.peerSet.IDs()
}

// PeerScores returns a copy of the current score table.
func (n *Node) PeerScores() map[uint32]peers.Score {
	n.connLock.Lock()
	scores := n.scores
	n.connLock.Unlock()

	return scores.Snapshot()
}

// Rounds returns the number of events processed so far.
func (n *Node) Rounds() uint64 {
	return atomic.LoadUint64(&n.rounds)
}

// LastRoundDuration returns how long the last round took.
func (n *Node) LastRoundDuration() time.Duration {
	return time.Duration(atomic.LoadInt64(&n.lastDuration))
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	n.connLock.Lock()
	start := n.start
	n.connLock.Unlock()

	var uptime time.Duration
	if !start.IsZero() {
		uptime = time.Since(start)
	}

	scores := n.PeerScores()
	positive, negative := 0, 0
	for _, s := range scores {
		switch s {
		case peers.Positive:
			positive++
		case peers.Negative:
			negative++
		}
	}

	s := map[string]string{
		"id":               fmt.Sprint(n.id),
		"state":            n.getState().String(),
		"num_peers":        strconv.Itoa(len(scores)),
		"positive_peers":   strconv.Itoa(positive),
		"negative_peers":   strconv.Itoa(negative),
		"rounds":           strconv.FormatUint(atomic.LoadUint64(&n.rounds), 10),
		"ignored_reports":  strconv.FormatUint(atomic.LoadUint64(&n.ignored), 10),
		"store_errors":     strconv.FormatUint(atomic.LoadUint64(&n.storeErrors), 10),
		"pending_events":   strconv.Itoa(n.events.Len()),
		"pending_reports":  strconv.Itoa(n.reports.Pending()),
		"buffered_reports": strconv.Itoa(n.reports.Buffered()),
		"last_round":       n.LastRoundDuration().String(),
		"uptime":           uptime.String(),
	}
	return s
}
