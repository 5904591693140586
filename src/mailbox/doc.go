// Package mailbox implements the two queues through which a node is fed.
//
// EventMailbox holds events injected from outside the network. ReportMailbox
// holds the copies of events relayed by peers, and lets the owning node pull
// out the reports that correspond to the event it has just processed while
// leaving the others in place for later rounds.
//
// Both mailboxes are safe for many concurrent producers and a single consumer.
package mailbox
