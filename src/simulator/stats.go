package simulator

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mosaicnetworks/trustflood/src/common"
	"github.com/mosaicnetworks/trustflood/src/peers"
	"github.com/sirupsen/logrus"
)

// GetStats returns stats
func (s *Simulator) GetStats() map[string]string {
	s.statsLock.Lock()
	injected := s.injected
	started := s.started
	s.statsLock.Unlock()

	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = time.Since(started)
	}

	rounds := make([]int64, len(s.nodes))
	durations := make([]time.Duration, len(s.nodes))
	negative := 0
	for i, n := range s.nodes {
		rounds[i] = int64(n.Rounds())
		durations[i] = n.LastRoundDuration()
		for _, sc := range n.PeerScores() {
			if sc == peers.Negative {
				negative++
			}
		}
	}

	return map[string]string{
		"run_id":            s.runID.String(),
		"seed":              strconv.FormatInt(s.seed, 10),
		"nodes":             strconv.Itoa(len(s.nodes)),
		"events":            strconv.Itoa(s.conf.Events),
		"injected":          strconv.Itoa(injected),
		"median_rounds":     strconv.FormatInt(common.Median(rounds), 10),
		"median_round_time": common.MedianDuration(durations).String(),
		"negative_scores":   strconv.Itoa(negative),
		"notifications":     strconv.FormatUint(s.consumer.Received(), 10),
		"corrupt":           fmt.Sprint(s.conf.Corrupt),
		"silent":            fmt.Sprint(s.conf.Silent),
		"elapsed":           elapsed.String(),
	}
}

// NodeRoles returns the behaviour of every node: honest, corrupt or silent.
func (s *Simulator) NodeRoles() map[uint32]string {
	fp := newFaultPlan(s.conf.Corrupt, s.conf.Silent)

	res := make(map[uint32]string, len(s.nodes))
	for _, n := range s.nodes {
		res[n.ID()] = fp.role(n.ID())
	}
	return res
}

func (s *Simulator) logStats() {
	stats := s.GetStats()

	fields := logrus.Fields{}
	for k, v := range stats {
		fields[k] = v
	}

	s.logger.WithFields(fields).Info("Stats")
}
