package reactive

import (
	"sync"
	"sync/atomic"
)

// Effect is a side effect that re-runs when any source it read during its
// last execution notifies. Effects run immediately when created and may
// return a Cleanup that runs before the next execution and on dispose.
type Effect struct {
	id uint64

	fn      func() Cleanup
	cleanup Cleanup

	// sources read during the last run; unsubscribed and re-tracked on
	// every execution so the dependency set follows the code path taken.
	sources   []*Source
	sourcesMu sync.Mutex

	owner *Owner

	pending  atomic.Bool
	disposed atomic.Bool
}

var _ SourceTracker = (*Effect)(nil)

// MarkDirty schedules the effect on its owner. Implements Listener.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}

	if e.pending.CompareAndSwap(false, true) {
		if e.owner != nil {
			e.owner.scheduleEffect(e)
		}
	}
}

// ID implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.Unsubscribe(e)
	}
	e.sources = e.sources[:0]
	e.sourcesMu.Unlock()

	// Run under the owner's scope so context values, the window among
	// them, resolve the same way on re-runs as on the first run.
	oldListener := setCurrentListener(e)
	if e.owner != nil {
		WithOwner(e.owner, func() { e.cleanup = e.fn() })
	} else {
		e.cleanup = e.fn()
	}
	setCurrentListener(oldListener)
}

// AddSource implements SourceTracker.
func (e *Effect) AddSource(source *Source) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == source {
			return
		}
	}
	e.sources = append(e.sources, source)
}

func (e *Effect) dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.Unsubscribe(e)
	}
	e.sources = nil
	e.sourcesMu.Unlock()
}

// CreateEffect creates an effect owned by the current owner and runs it
// immediately. The effect re-runs whenever a source it read notifies.
//
// Inside a component render the call site keeps its effect across
// re-renders instead of mounting a duplicate; the effect re-runs only
// when its own dependencies notify. Do not call Use* hooks from the
// effect body; read tracked values directly.
//
// Example:
//
//	reactive.CreateEffect(func() reactive.Cleanup {
//	    log.Printf("narrow=%v", narrow.Get())
//	    return nil
//	})
func CreateEffect(fn func() Cleanup) *Effect {
	owner := CurrentOwner()

	if owner != nil {
		owner.TrackHook(HookEffect)

		if owner.InRender() {
			if prev, ok := owner.UseHookSlot().(*Effect); ok && prev != nil {
				return prev
			}
			e := &Effect{id: nextID(), fn: fn, owner: owner}
			owner.SetHookSlot(e)
			owner.registerEffect(e)
			e.run()
			return e
		}
	}

	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: owner,
	}

	if owner != nil {
		owner.registerEffect(e)
	}

	e.run()

	return e
}

// OnMount runs fn once when the component mounts.
func OnMount(fn func()) {
	CreateEffect(func() Cleanup {
		fn()
		return nil
	})
}

// OnUnmount registers fn to run when the current owner is disposed.
func OnUnmount(fn func()) {
	owner := CurrentOwner()
	if owner != nil {
		owner.OnCleanup(fn)
	}
}
