// Package store keeps a ledger of the rounds processed by every node and of the
// notifications received by consumers.
//
// There are two implementations of the Store interface. InmemStore keeps the
// most recent items in rolling in-memory caches whose size is configurable.
// BadgerStore writes everything through to a Badger database and falls back to
// it when an item has rolled out of the cache.
//
// The ledger is write-only from the point of view of the nodes: scores are
// never restored from it.
package store
