// Package peers holds what a node knows about the other nodes it is connected
// to.
//
// A PeerSet is the ordered list of a node's peers. A ScoreTable associates
// each peer of a PeerSet with a Score reflecting whether the peer's last
// forwarded report agreed with the node's own view of the corresponding event.
// Scores are overwritten every round and never accumulated, so a ScoreTable
// only ever reflects the most recent round.
package peers
