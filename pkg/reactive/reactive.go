// Package reactive implements the fine-grained reactivity substrate that
// backs component rendering: listeners, subscriber sources, signals,
// effects, and the owner hierarchy that scopes their lifetimes.
//
// The package is deliberately free of transport and rendering concerns.
// A component runtime (see pkg/server) renders components under an Owner
// with a Listener installed; anything read through a Source during that
// window subscribes the listener and re-renders the component when the
// source notifies.
package reactive

import "sync/atomic"

// Listener receives change notifications from sources it is subscribed to.
// Components and effects implement Listener; the ID is used to deduplicate
// subscriptions when the same listener reads a source repeatedly.
type Listener interface {
	// MarkDirty signals that a subscribed source changed and the listener
	// should be re-run (re-rendered for components, re-executed for effects).
	MarkDirty()

	// ID returns a stable unique identifier for this listener.
	ID() uint64
}

// Cleanup is a function that releases resources held by an effect run.
type Cleanup func()

var globalIDCounter uint64

// NextID returns a process-unique monotonic identifier. Custom Listener
// implementations outside this package use it to satisfy ID; sharing
// one allocator keeps subscription deduplication sound across listener
// kinds.
func NextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// nextID is the internal spelling used by this package's own types.
func nextID() uint64 {
	return NextID()
}
