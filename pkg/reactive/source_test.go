package reactive

import (
	"sync"
	"testing"
)

func TestSourceSubscribeDedup(t *testing.T) {
	src := NewSource()
	listener := newTestListener()

	src.Subscribe(listener)
	src.Subscribe(listener)
	src.Subscribe(listener)

	if src.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber after duplicate subscribes, got %d", src.SubscriberCount())
	}

	src.Notify()
	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", listener.getDirtyCount())
	}
}

func TestSourceUnsubscribe(t *testing.T) {
	src := NewSource()
	l1 := newTestListener()
	l2 := newTestListener()

	src.Subscribe(l1)
	src.Subscribe(l2)
	src.Unsubscribe(l1)

	src.Notify()

	if l1.getDirtyCount() != 0 {
		t.Errorf("unsubscribed listener notified %d times", l1.getDirtyCount())
	}
	if l2.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification for remaining listener, got %d", l2.getDirtyCount())
	}

	// Unsubscribing again must be harmless.
	src.Unsubscribe(l1)
	src.Unsubscribe(nil)
}

func TestSourceTrackSubscribesCurrentListener(t *testing.T) {
	src := NewSource()
	listener := newTestListener()

	WithListener(listener, func() {
		src.Track()
	})

	src.Notify()
	if listener.getDirtyCount() != 1 {
		t.Errorf("expected tracked listener to be notified once, got %d", listener.getDirtyCount())
	}

	// Outside a tracked context, Track registers nothing.
	src2 := NewSource()
	src2.Track()
	if src2.SubscriberCount() != 0 {
		t.Errorf("expected no subscribers without a current listener, got %d", src2.SubscriberCount())
	}
}

func TestSourceListenCancelIdempotent(t *testing.T) {
	src := NewSource()

	calls := 0
	cancel := src.Listen(func() { calls++ })

	src.Notify()
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	cancel()
	cancel()
	cancel()

	if src.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", src.SubscriberCount())
	}

	src.Notify()
	if calls != 1 {
		t.Errorf("callback fired after cancel: %d calls", calls)
	}
}

func TestSourceListenNeverFiresAfterCancel(t *testing.T) {
	src := NewSource()

	var mu sync.Mutex
	calls := 0
	cancel := src.Listen(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	// Cancel before any notification: the callback must never run, even if
	// the subscriber list was already snapshotted by a concurrent notify.
	cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.Notify()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("canceled callback fired %d times", calls)
	}
}

func TestSourceListenCancelDuringNotify(t *testing.T) {
	src := NewSource()

	var cancel func()
	calls := 0
	cancel = src.Listen(func() {
		calls++
		cancel()
	})

	// First notify runs the callback, which cancels itself.
	src.Notify()
	// Second notify must not reach it.
	src.Notify()

	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestSourceNotifyInsideBatch(t *testing.T) {
	src := NewSource()
	listener := newTestListener()
	src.Subscribe(listener)

	Batch(func() {
		src.Notify()
		src.Notify()
		src.Notify()

		if listener.getDirtyCount() != 0 {
			t.Errorf("expected no notifications inside batch, got %d", listener.getDirtyCount())
		}
	})

	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 deduplicated notification after batch, got %d", listener.getDirtyCount())
	}
}

func TestSourceMultipleListenersIndependent(t *testing.T) {
	src := NewSource()

	aCalls, bCalls := 0, 0
	cancelA := src.Listen(func() { aCalls++ })
	cancelB := src.Listen(func() { bCalls++ })

	src.Notify()
	cancelA()
	src.Notify()
	cancelB()
	src.Notify()

	if aCalls != 1 {
		t.Errorf("expected a to fire once, got %d", aCalls)
	}
	if bCalls != 2 {
		t.Errorf("expected b to fire twice, got %d", bCalls)
	}
}
