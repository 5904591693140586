package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	cm "github.com/mosaicnetworks/trustflood/src/common"
	"github.com/mosaicnetworks/trustflood/src/consumer"
	"github.com/mosaicnetworks/trustflood/src/node"
	"github.com/mosaicnetworks/trustflood/src/peers"
	"github.com/mosaicnetworks/trustflood/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Backend is what the service exposes. *simulator.Simulator implements it.
type Backend interface {
	GetStats() map[string]string
	Nodes() []*node.Node
	Node(id uint32) (*node.Node, bool)
	Consumer() *consumer.Consumer
	Store() store.Store
	Gatherer() prometheus.Gatherer
}

// NodeInfo is the JSON view of a node.
type NodeInfo struct {
	ID     uint32                 `json:"id"`
	State  string                 `json:"state"`
	Peers  []uint32               `json:"peers"`
	Rounds uint64                 `json:"rounds"`
	Scores map[uint32]peers.Score `json:"scores"`
}

// ConsumerInfo is the JSON view of the consumer.
type ConsumerInfo struct {
	ID         uint32                 `json:"id"`
	Received   uint64                 `json:"received"`
	PerfScores map[uint32]peers.Score `json:"perf_scores"`
}

// Service serves a read-only HTTP API over a running simulation.
type Service struct {
	bindAddress string
	backend     Backend
	logger      *logrus.Entry
	server      *http.Server
}

// NewService ...
func NewService(bindAddress string, backend Backend, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		backend:     backend,
		logger:      logger,
	}

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.Handler(),
	}

	return &service
}

// Handler returns the chi router with all routes mounted.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/stats", s.GetStats)
	r.Get("/nodes", s.GetNodes)
	r.Route("/nodes/{id}", func(r chi.Router) {
		r.Get("/", s.GetNode)
		r.Get("/scores", s.GetScores)
		r.Get("/verdicts/{index}", s.GetVerdict)
	})
	r.Get("/notifications/{event}", s.GetNotifications)
	r.Get("/consumer", s.GetConsumer)
	r.Handle("/metrics", promhttp.HandlerFor(s.backend.Gatherer(), promhttp.HandlerOpts{}))

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving trustflood API")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

/*******************************************************************************
Handlers
*******************************************************************************/

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.GetStats())
}

// GetNodes ...
func (s *Service) GetNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.backend.Nodes()

	res := make([]NodeInfo, len(nodes))
	for i, n := range nodes {
		res[i] = nodeInfo(n)
	}

	writeJSON(w, http.StatusOK, res)
}

// GetNode ...
func (s *Service) GetNode(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNode(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, nodeInfo(n))
}

// GetScores ...
func (s *Service) GetScores(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNode(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, n.PeerScores())
}

// GetVerdict ...
func (s *Service) GetVerdict(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNode(w, r)
	if !ok {
		return
	}

	param := chi.URLParam(r, "index")

	index, err := strconv.Atoi(param)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing index parameter %s", param)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	v, err := s.backend.Store().GetVerdict(n.ID(), index)
	if err != nil {
		s.logger.WithError(err).Debugf("Retrieving verdict %d of node %d", index, n.ID())
		writeError(w, storeStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// GetNotifications ...
func (s *Service) GetNotifications(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, "event")

	eventID, err := strconv.Atoi(param)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing event parameter %s", param)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ns, err := s.backend.Store().GetNotifications(eventID)
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, ns)
}

// GetConsumer ...
func (s *Service) GetConsumer(w http.ResponseWriter, r *http.Request) {
	c := s.backend.Consumer()

	writeJSON(w, http.StatusOK, ConsumerInfo{
		ID:         c.ID(),
		Received:   c.Received(),
		PerfScores: c.PerfScores(),
	})
}

/*******************************************************************************
Helpers
*******************************************************************************/

func (s *Service) lookupNode(w http.ResponseWriter, r *http.Request) (*node.Node, bool) {
	param := chi.URLParam(r, "id")

	id, err := strconv.ParseUint(param, 10, 32)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing id parameter %s", param)
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}

	n, ok := s.backend.Node(uint32(id))
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return nil, false
	}

	return n, true
}

func nodeInfo(n *node.Node) NodeInfo {
	return NodeInfo{
		ID:     n.ID(),
		State:  n.State().String(),
		Peers:  n.Peers(),
		Rounds: n.Rounds(),
		Scores: n.PeerScores(),
	}
}

func storeStatus(err error) int {
	if cm.IsStore(err, cm.KeyNotFound) || cm.IsStore(err, cm.TooLate) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}
