package reactive

import "testing"

func TestBatchCoalescesNotifications(t *testing.T) {
	a := NewSignal(0)
	b := NewSignal(0)
	listener := newTestListener()

	WithListener(listener, func() {
		_ = a.Get()
		_ = b.Get()
	})

	Batch(func() {
		a.Set(1)
		b.Set(1)

		if listener.getDirtyCount() != 0 {
			t.Errorf("expected no notifications inside batch, got %d", listener.getDirtyCount())
		}
	})

	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 deduplicated notification, got %d", listener.getDirtyCount())
	}
}

func TestBatchNested(t *testing.T) {
	sig := NewSignal(0)
	listener := newTestListener()

	WithListener(listener, func() {
		_ = sig.Get()
	})

	Batch(func() {
		sig.Set(1)
		Batch(func() {
			sig.Set(2)
		})

		// Inner batch completion must not flush while the outer is open.
		if listener.getDirtyCount() != 0 {
			t.Errorf("inner batch flushed early, got %d notifications", listener.getDirtyCount())
		}
	})

	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification after outermost batch, got %d", listener.getDirtyCount())
	}
}

func TestBatchNoUpdates(t *testing.T) {
	// A batch with no writes must complete without side effects.
	Batch(func() {})
}
