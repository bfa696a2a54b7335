package reactive

import (
	"sync"
	"testing"
)

// testListener is a simple Listener implementation for testing.
type testListener struct {
	id         uint64
	dirtyCount int
	mu         sync.Mutex
}

func newTestListener() *testListener {
	return &testListener{id: nextID()}
}

func (l *testListener) MarkDirty() {
	l.mu.Lock()
	l.dirtyCount++
	l.mu.Unlock()
}

func (l *testListener) ID() uint64 {
	return l.id
}

func (l *testListener) getDirtyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyCount
}

func TestTrackingContextPerGoroutine(t *testing.T) {
	ctx1 := getTrackingContext()
	ctx2 := getTrackingContext()

	if ctx1 != ctx2 {
		t.Error("same goroutine should reuse its tracking context")
	}
}

func TestTrackingContextIsolation(t *testing.T) {
	var wg sync.WaitGroup
	contexts := make(chan *trackingContext, 2)

	wg.Add(2)

	go func() {
		defer wg.Done()
		contexts <- getTrackingContext()
	}()

	go func() {
		defer wg.Done()
		contexts <- getTrackingContext()
	}()

	wg.Wait()
	close(contexts)

	var ctxList []*trackingContext
	for ctx := range contexts {
		ctxList = append(ctxList, ctx)
	}

	if len(ctxList) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(ctxList))
	}
	if ctxList[0] == ctxList[1] {
		t.Error("different goroutines should have different contexts")
	}
}

func TestWithListenerRestores(t *testing.T) {
	outer := newTestListener()
	inner := newTestListener()

	WithListener(outer, func() {
		if getCurrentListener() != outer {
			t.Error("expected outer listener to be current")
		}

		WithListener(inner, func() {
			if getCurrentListener() != inner {
				t.Error("expected inner listener to be current")
			}
		})

		if getCurrentListener() != outer {
			t.Error("expected outer listener to be restored")
		}
	})

	if getCurrentListener() != nil {
		t.Error("expected no listener after WithListener returns")
	}
}

func TestWithOwnerRestores(t *testing.T) {
	parent := NewOwner(nil)
	child := NewOwner(parent)

	WithOwner(parent, func() {
		if CurrentOwner() != parent {
			t.Error("expected parent to be current owner")
		}

		WithOwner(child, func() {
			if CurrentOwner() != child {
				t.Error("expected child to be current owner")
			}
		})

		if CurrentOwner() != parent {
			t.Error("expected parent to be restored")
		}
	})

	if CurrentOwner() != nil {
		t.Error("expected no owner after WithOwner returns")
	}
}

func TestWithRuntimeRestores(t *testing.T) {
	type fakeRuntime struct{ name string }

	rt := &fakeRuntime{name: "session"}

	WithRuntime(rt, func() {
		got, ok := CurrentRuntime().(*fakeRuntime)
		if !ok || got != rt {
			t.Errorf("expected runtime %v, got %v", rt, CurrentRuntime())
		}
	})

	if CurrentRuntime() != nil {
		t.Error("expected no runtime after WithRuntime returns")
	}
}
