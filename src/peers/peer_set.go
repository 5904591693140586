package peers

import (
	"sort"
)

//PeerSet is an ordered set of peer IDs. The order is the order in which peers
//were added, which is the order in which a node broadcasts to them.
type PeerSet struct {
	ids  []uint32
	byID map[uint32]int
}

/* Constructors */

//NewPeerSet creates a new PeerSet from a list of IDs. Duplicates are ignored.
func NewPeerSet(ids []uint32) *PeerSet {
	peerSet := &PeerSet{
		ids:  []uint32{},
		byID: make(map[uint32]int),
	}

	for _, id := range ids {
		if _, ok := peerSet.byID[id]; ok {
			continue
		}
		peerSet.byID[id] = len(peerSet.ids)
		peerSet.ids = append(peerSet.ids, id)
	}

	return peerSet
}

//WithNewPeer returns a new PeerSet with a list of peers including the new one.
func (peerSet *PeerSet) WithNewPeer(id uint32) *PeerSet {
	return NewPeerSet(append(peerSet.IDs(), id))
}

/* ToSlice Methods */

//IDs returns a copy of the PeerSet's IDs in insertion order
func (peerSet *PeerSet) IDs() []uint32 {
	res := make([]uint32, len(peerSet.ids))
	copy(res, peerSet.ids)
	return res
}

//SortedIDs returns the PeerSet's IDs in ascending order
func (peerSet *PeerSet) SortedIDs() []uint32 {
	res := peerSet.IDs()
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

/* Utilities */

//Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.ids)
}

//Contains returns true if id belongs to the PeerSet
func (peerSet *PeerSet) Contains(id uint32) bool {
	_, ok := peerSet.byID[id]
	return ok
}

//ExcludePeer returns the IDs of ids without the given one, and the position at
//which it was found, or -1.
func ExcludePeer(ids []uint32, id uint32) (int, []uint32) {
	index := -1
	others := make([]uint32, 0, len(ids))
	for i, p := range ids {
		if p != id {
			others = append(others, p)
		} else {
			index = i
		}
	}
	return index, others
}
