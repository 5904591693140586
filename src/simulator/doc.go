// Package simulator drives a trustflood network.
//
// A Simulator creates the nodes described by a config.Config, connects every
// node to every other node, and subscribes a single consumer to all of them.
// Nodes listed as corrupt or silent get their outgoing links wrapped with a
// node.LinkFilter that tampers with, or drops, everything they forward.
//
// Run injects one event per round into every node, in an order shuffled with
// a seeded random source, and logs the peer scores of every node after each
// round. Stop terminates the nodes and the consumer and closes the store.
package simulator
