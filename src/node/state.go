package node

import (
	"sync"
	"sync/atomic"
)

// State captures the lifecycle state of a node: Created, Connected, Running,
// Stopping, or Stopped.
type State uint32

const (
	// Created is the initial state of a node. It has no peers yet.
	Created State = iota
	// Connected means the peers have been recorded and scored.
	Connected
	// Running means the processing loop is active.
	Running
	// Stopping means termination was requested but the loop has not exited.
	Stopping
	// Stopped is final.
	Stopped
)

// String ...
func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Connected:
		return "Connected"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
	wg    sync.WaitGroup
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// casState moves from one state to another only if the current state is from.
func (b *state) casState(from, to State) bool {
	stateAddr := (*uint32)(&b.state)
	return atomic.CompareAndSwapUint32(stateAddr, uint32(from), uint32(to))
}

// Start a goroutine and add it to waitgroup
func (b *state) goFunc(f func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		f()
	}()
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
