package simulator

import (
	"fmt"

	"github.com/mosaicnetworks/trustflood/src/node"
)

// faultPlan decides how the outgoing links of each node behave. A corrupt node
// rewrites the payload of everything it forwards; a silent node forwards
// nothing.
type faultPlan struct {
	corrupt map[uint32]bool
	silent  map[uint32]bool
}

func newFaultPlan(corrupt, silent []uint32) *faultPlan {
	fp := &faultPlan{
		corrupt: make(map[uint32]bool, len(corrupt)),
		silent:  make(map[uint32]bool, len(silent)),
	}
	for _, id := range corrupt {
		fp.corrupt[id] = true
	}
	for _, id := range silent {
		fp.silent[id] = true
	}
	return fp
}

func (fp *faultPlan) filter(id uint32) node.LinkFilter {
	switch {
	case fp.silent[id]:
		return node.DropAll()
	case fp.corrupt[id]:
		return node.CorruptPayload(fmt.Sprintf("tampered_by_%d", id))
	default:
		return nil
	}
}

// links returns the peers of node id, wrapped with its filter if it is faulty.
func (fp *faultPlan) links(id uint32, others []*node.Node) []node.Peer {
	f := fp.filter(id)

	res := make([]node.Peer, len(others))
	for i, o := range others {
		if f == nil {
			res[i] = o
		} else {
			res[i] = node.NewFilteredPeer(o, f)
		}
	}
	return res
}

// role names the behaviour of a node for logs and stats.
func (fp *faultPlan) role(id uint32) string {
	switch {
	case fp.silent[id]:
		return "silent"
	case fp.corrupt[id]:
		return "corrupt"
	default:
		return "honest"
	}
}
