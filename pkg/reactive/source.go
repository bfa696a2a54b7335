package reactive

import (
	"sync"
	"sync/atomic"
)

// Source is the subscriber-management core shared by everything that can
// notify listeners. Signals own one; external stores whose value lives
// outside the reactive graph (for example a media query list that derives
// its boolean from the client's viewport) embed one so they can participate
// in dependency tracking without caching a value.
type Source struct {
	id uint64

	subs  []Listener
	subMu sync.RWMutex
}

// NewSource creates an empty source.
func NewSource() *Source {
	return &Source{id: nextID()}
}

// ID returns the unique identifier for this source.
func (s *Source) ID() uint64 {
	return s.id
}

// Subscribe adds a listener, deduplicating by listener ID so that a
// component re-reading the same source during re-render does not
// accumulate registrations.
func (s *Source) Subscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return
		}
	}

	s.subs = append(s.subs, l)
}

// Unsubscribe removes a listener. Removing a listener that is not
// subscribed is a no-op.
func (s *Source) Unsubscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			// Swap-remove; subscriber order carries no meaning.
			s.subs[i] = s.subs[len(s.subs)-1]
			s.subs = s.subs[:len(s.subs)-1]
			return
		}
	}
}

// SourceTracker is a Listener that records the sources it subscribed
// to, so it can release them when it re-tracks or goes away. Effects
// implement it, as does anything else whose lifetime is shorter than
// the sources it reads. A subscriber that only implements Listener
// stays registered until the source itself is dropped.
type SourceTracker interface {
	Listener

	// AddSource records a source the listener was subscribed to.
	AddSource(*Source)
}

// Track subscribes the current listener, if any, and hands this source
// to the listener's dependency record when it keeps one. Call it from
// the read path of whatever embeds the source.
func (s *Source) Track() {
	listener := getCurrentListener()
	if listener == nil {
		return
	}

	s.Subscribe(listener)

	if tracker, ok := listener.(SourceTracker); ok {
		tracker.AddSource(s)
	}
}

// Notify marks every subscriber dirty. Subscribers are copied out under the
// read lock first so that listener code (which may subscribe or unsubscribe)
// never runs while the lock is held. Inside a batch, notifications are
// queued and delivered once when the outermost batch completes.
func (s *Source) Notify() {
	s.subMu.RLock()
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	if getBatchDepth() > 0 {
		for _, sub := range subs {
			queuePendingUpdate(sub)
		}
		return
	}

	for _, sub := range subs {
		sub.MarkDirty()
	}
}

// SubscriberCount returns the number of registered listeners.
func (s *Source) SubscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subs)
}

// funcListener adapts a plain callback to the Listener interface for
// Listen. The stopped flag makes cancellation exact: once it is set, the
// callback never runs again even if a notification already copied the
// subscriber list.
type funcListener struct {
	id      uint64
	fn      func()
	stopped atomic.Bool
}

func (f *funcListener) MarkDirty() {
	if f.stopped.Load() {
		return
	}
	f.fn()
}

func (f *funcListener) ID() uint64 {
	return f.id
}

// Listen registers fn to run on every notification and returns a cancel
// function. The cancel deregisters everything this call registered, is
// safe to invoke more than once, and guarantees fn is not invoked after
// the first cancel returns.
func (s *Source) Listen(fn func()) func() {
	if fn == nil {
		return func() {}
	}

	l := &funcListener{id: nextID(), fn: fn}
	s.Subscribe(l)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.stopped.Store(true)
			s.Unsubscribe(l)
		})
	}
}
