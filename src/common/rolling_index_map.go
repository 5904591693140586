package common

import (
	"fmt"
)

// RollingIndexMap is a collection of RollingIndexes keyed by node ID.
type RollingIndexMap[T any] struct {
	name    string
	size    int
	mapping map[uint32]*RollingIndex[T]
}

// NewRollingIndexMap creates a new RollingIndexMap where each RollingIndex has
// the specified size.
func NewRollingIndexMap[T any](name string, size int) *RollingIndexMap[T] {
	return &RollingIndexMap[T]{
		name:    name,
		size:    size,
		mapping: make(map[uint32]*RollingIndex[T]),
	}
}

// Get returns all the items with index greater than skipIndex from the
// RollingIndex indentified by key.
func (rim *RollingIndexMap[T]) Get(key uint32, skipIndex int) ([]T, error) {
	items, ok := rim.mapping[key]
	if !ok {
		return nil, NewStoreErr(rim.name, KeyNotFound, fmt.Sprint(key))
	}

	return items.Get(skipIndex)
}

// GetItem returns  specific item from a specific RollingIndex.
func (rim *RollingIndexMap[T]) GetItem(key uint32, index int) (T, error) {
	items, ok := rim.mapping[key]
	if !ok {
		var zero T
		return zero, NewStoreErr(rim.name, KeyNotFound, fmt.Sprint(key))
	}
	return items.GetItem(index)
}

// Set inserts or updates an item into a RollingIndex identified by key.
func (rim *RollingIndexMap[T]) Set(key uint32, item T, index int) error {
	items, ok := rim.mapping[key]
	if !ok {
		items = NewRollingIndex[T](fmt.Sprintf("%s[%d]", rim.name, key), rim.size)
		rim.mapping[key] = items
	}
	return items.Set(item, index)
}

// Known returns a mapping of key to last known index.
func (rim *RollingIndexMap[T]) Known() map[uint32]int {
	known := make(map[uint32]int)
	for k, items := range rim.mapping {
		_, lastIndex := items.GetLastWindow()
		known[k] = lastIndex
	}
	return known
}
