package window

import (
	"sync"
	"testing"
)

func TestListen_CancelIdempotent(t *testing.T) {
	w := New()
	mql := w.MatchMedia("(max-width: 768px)")

	calls := 0
	cancel := mql.Listen(func() { calls++ })

	other := 0
	cancelOther := mql.Listen(func() { other++ })
	defer cancelOther()

	cancel()
	cancel()
	cancel()

	w.ApplyResize(500, 768)

	if calls != 0 {
		t.Errorf("cancelled listener ran %d times, want 0", calls)
	}
	if other != 1 {
		t.Errorf("surviving listener ran %d times, want 1; repeated cancel must not touch other registrations", other)
	}
}

func TestListen_NeverFiresAfterCancel(t *testing.T) {
	w := New()
	mql := w.MatchMedia("(max-width: 768px)")

	var mu sync.Mutex
	fired := false
	cancel := mql.Listen(func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	cancel()

	// Hammer the window from several goroutines after the cancel has
	// returned. The callback must stay silent.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				w.ApplyResize(400, 768)
			} else {
				w.ApplyResize(1200, 768)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Error("listener fired after cancel returned")
	}
}

func TestListen_CancelInsideCallback(t *testing.T) {
	w := New()
	mql := w.MatchMedia("(max-width: 768px)")

	calls := 0
	var cancel func()
	cancel = mql.Listen(func() {
		calls++
		cancel()
	})

	w.ApplyResize(500, 768)  // flip, fires, self-cancels
	w.ApplyResize(1200, 768) // flip back, must not fire

	if calls != 1 {
		t.Errorf("self-cancelling listener ran %d times, want 1", calls)
	}
}

func TestListen_IndependentListeners(t *testing.T) {
	w := New()
	mql := w.MatchMedia("(max-width: 768px)")

	counts := make([]int, 3)
	cancels := make([]func(), 3)
	for i := range counts {
		i := i
		cancels[i] = mql.Listen(func() { counts[i]++ })
	}

	w.ApplyResize(500, 768)
	cancels[1]()
	w.ApplyResize(1200, 768)

	if counts[0] != 2 || counts[1] != 1 || counts[2] != 2 {
		t.Errorf("counts = %v, want [2 1 2]", counts)
	}
}

func TestListenerCount(t *testing.T) {
	w := New()
	mql := w.MatchMedia("(max-width: 768px)")

	if mql.ListenerCount() != 0 {
		t.Fatalf("fresh list has %d listeners, want 0", mql.ListenerCount())
	}

	c1 := mql.Listen(func() {})
	c2 := mql.Listen(func() {})
	if mql.ListenerCount() != 2 {
		t.Errorf("ListenerCount = %d, want 2", mql.ListenerCount())
	}

	c1()
	if mql.ListenerCount() != 1 {
		t.Errorf("ListenerCount after cancel = %d, want 1", mql.ListenerCount())
	}
	c2()
	if mql.ListenerCount() != 0 {
		t.Errorf("ListenerCount after both cancels = %d, want 0", mql.ListenerCount())
	}
}

func TestTwoConsumersShareOneList(t *testing.T) {
	w := New()

	// Two components watching the same expression land on the same
	// list; each keeps its own registration.
	a := w.MatchMedia("(orientation: landscape)")
	b := w.MatchMedia("(orientation: landscape)")
	if a != b {
		t.Fatal("consumers of one expression must share a list")
	}

	aCalls, bCalls := 0, 0
	cancelA := a.Listen(func() { aCalls++ })
	defer cancelA()
	cancelB := b.Listen(func() { bCalls++ })
	defer cancelB()

	if a.ListenerCount() != 2 {
		t.Errorf("shared list has %d listeners, want 2", a.ListenerCount())
	}

	w.ApplyOrientation(768, 1024)
	if aCalls != 1 || bCalls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", aCalls, bCalls)
	}

	cancelA()
	w.ApplyOrientation(1024, 768)
	if aCalls != 1 || bCalls != 2 {
		t.Errorf("after one consumer left: calls = %d/%d, want 1/2", aCalls, bCalls)
	}
}
