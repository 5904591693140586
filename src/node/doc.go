// Package node implements the actor at the heart of a trustflood network.
//
// A Node owns two mailboxes. The EventMailbox receives the events injected
// from outside the network, and the ReportMailbox receives the copies of those
// events relayed by the node's peers. The node runs a single goroutine that
// takes one event at a time and executes a round:
//
//	1. notify every registered Consumer of the event
//	2. forward the event to every peer, in connection order
//	3. reset every peer score to Default
//	4. collect the reports that carry the same event ID
//	5. score each reporting peer Positive or Negative depending on whether
//	   its copy matches the node's own
//	6. purge the matched reports
//
// Scores are overwritten every round; a peer that does not report on an event
// ends the round with the Default score. Reports for other events stay
// buffered until the node processes those events.
//
// Lifecycle
//
// A node moves through the states Created, Connected, Running, Stopping and
// Stopped. Connect records the peers and can only be called once. Start
// launches the processing loop. Terminate asks the loop to exit at the top of
// its next iteration and Join waits for it.
//
// Links
//
// Peers are reached through the Peer interface, which *Node implements.
// FilteredPeer wraps a Peer with a LinkFilter that can rewrite or drop the
// events travelling over the link; the simulator uses it to model tampering
// and silent nodes.
package node
