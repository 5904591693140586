package store

import (
	"bytes"
	"time"

	"github.com/mosaicnetworks/trustflood/src/peers"
	"github.com/ugorji/go/codec"
)

// PeerScore is the score a node assigned to one peer.
type PeerScore struct {
	Peer  uint32
	Score peers.Score
}

// Verdict records the outcome of one round on one node: the event the node
// processed and the score it assigned to each of its peers as a result.
type Verdict struct {
	// NodeID is the ID of the node that produced the verdict.
	NodeID uint32

	// Index is the position of the round in the node's own sequence of
	// processed events, starting at 0.
	Index int

	EventID int
	Payload string

	// Scores is the node's score table at the end of the round, sorted by
	// peer ID.
	Scores []PeerScore

	// Reports is the number of peer reports matched for the event. Ignored is
	// how many of those came from nodes that are not peers.
	Reports int
	Ignored int

	Timestamp time.Time
}

// NewVerdict ...
func NewVerdict(nodeID uint32, index int, eventID int, payload string, scores map[uint32]peers.Score) *Verdict {
	return &Verdict{
		NodeID:    nodeID,
		Index:     index,
		EventID:   eventID,
		Payload:   payload,
		Scores:    sortedScores(scores),
		Timestamp: time.Now().UTC(),
	}
}

func sortedScores(scores map[uint32]peers.Score) []PeerScore {
	ids := make([]uint32, 0, len(scores))
	for p := range scores {
		ids = append(ids, p)
	}

	res := make([]PeerScore, 0, len(scores))
	for _, p := range peers.NewPeerSet(ids).SortedIDs() {
		res = append(res, PeerScore{Peer: p, Score: scores[p]})
	}
	return res
}

// ScoreMap returns the scores keyed by peer ID.
func (v *Verdict) ScoreMap() map[uint32]peers.Score {
	res := make(map[uint32]peers.Score, len(v.Scores))
	for _, ps := range v.Scores {
		res[ps.Peer] = ps.Score
	}
	return res
}

// Count returns the number of peers that ended the round with the given score.
func (v *Verdict) Count(score peers.Score) int {
	c := 0
	for _, ps := range v.Scores {
		if ps.Score == score {
			c++
		}
	}
	return c
}

// Marshal ...
func (v *Verdict) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (v *Verdict) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(v)
}
