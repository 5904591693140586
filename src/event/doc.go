// Package event defines the values flooded between nodes.
//
// An Event is injected into a node from outside the network. When a node
// processes an Event it relays it to each of its peers as a PeerReport, which
// is the same Event tagged with the relaying node's ID. The Event ID is the
// correlation key: a node matches the PeerReports it receives against its own
// copy of the Event with the same ID to decide whether each peer agreed with
// it.
package event
