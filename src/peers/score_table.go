package peers

import "sync"

// ScoreTable maps every peer of a PeerSet to a Score. Its key set is fixed
// when it is created and is always exactly the PeerSet.
type ScoreTable struct {
	sync.RWMutex
	peerSet *PeerSet
	scores  map[uint32]Score
}

// NewScoreTable returns a table with every peer of peerSet set to Default.
func NewScoreTable(peerSet *PeerSet) *ScoreTable {
	table := &ScoreTable{
		peerSet: peerSet,
		scores:  make(map[uint32]Score, peerSet.Len()),
	}

	for _, id := range peerSet.ids {
		table.scores[id] = Default
	}

	return table
}

// Reset sets every peer back to Default.
func (t *ScoreTable) Reset() {
	t.Lock()
	defer t.Unlock()

	for id := range t.scores {
		t.scores[id] = Default
	}
}

// Set overwrites the score of a peer. It returns false, and changes nothing,
// if the peer does not belong to the table.
func (t *ScoreTable) Set(id uint32, score Score) bool {
	t.Lock()
	defer t.Unlock()

	if _, ok := t.scores[id]; !ok {
		return false
	}

	t.scores[id] = score

	return true
}

// Get returns the score of a peer.
func (t *ScoreTable) Get(id uint32) (Score, bool) {
	t.RLock()
	defer t.RUnlock()

	s, ok := t.scores[id]

	return s, ok
}

// Snapshot returns a copy of the table that the caller is free to keep.
func (t *ScoreTable) Snapshot() map[uint32]Score {
	t.RLock()
	defer t.RUnlock()

	res := make(map[uint32]Score, len(t.scores))
	for id, s := range t.scores {
		res[id] = s
	}

	return res
}
