package reactive

import "testing"

func TestOwnerHierarchy(t *testing.T) {
	root := NewOwner(nil)
	child := NewOwner(root)
	grandchild := NewOwner(child)

	if child.Parent() != root {
		t.Error("expected child parent to be root")
	}
	if grandchild.Parent() != child {
		t.Error("expected grandchild parent to be child")
	}
}

func TestOwnerDisposeRunsCleanupsInReverse(t *testing.T) {
	owner := NewOwner(nil)

	var order []int
	owner.OnCleanup(func() { order = append(order, 1) })
	owner.OnCleanup(func() { order = append(order, 2) })
	owner.OnCleanup(func() { order = append(order, 3) })

	owner.Dispose()

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("expected cleanups in reverse order [3 2 1], got %v", order)
	}
}

func TestOwnerDisposeChildren(t *testing.T) {
	root := NewOwner(nil)
	child := NewOwner(root)

	childCleaned := false
	child.OnCleanup(func() { childCleaned = true })

	root.Dispose()

	if !childCleaned {
		t.Error("expected child cleanup to run when root is disposed")
	}
	if !child.IsDisposed() {
		t.Error("expected child to be disposed")
	}
}

func TestOwnerDisposeIdempotent(t *testing.T) {
	owner := NewOwner(nil)

	runs := 0
	owner.OnCleanup(func() { runs++ })

	owner.Dispose()
	owner.Dispose()

	if runs != 1 {
		t.Errorf("expected cleanup to run once, got %d", runs)
	}
}

func TestOnCleanupAfterDisposeRunsImmediately(t *testing.T) {
	owner := NewOwner(nil)
	owner.Dispose()

	ran := false
	owner.OnCleanup(func() { ran = true })

	if !ran {
		t.Error("expected cleanup registered after dispose to run immediately")
	}
}

func TestOwnerValues(t *testing.T) {
	root := NewOwner(nil)
	child := NewOwner(root)

	type key struct{}
	root.SetValue(key{}, "root-value")

	if got := child.Value(key{}); got != "root-value" {
		t.Errorf("expected child to see root value, got %v", got)
	}

	// Child override shadows the parent.
	child.SetValue(key{}, "child-value")
	if got := child.Value(key{}); got != "child-value" {
		t.Errorf("expected child override, got %v", got)
	}
	if got := root.Value(key{}); got != "root-value" {
		t.Errorf("expected root value unchanged, got %v", got)
	}

	if got := root.Value("missing"); got != nil {
		t.Errorf("expected nil for missing key, got %v", got)
	}
}

func TestContextValue(t *testing.T) {
	type key struct{}

	if ContextValue(key{}) != nil {
		t.Error("expected nil outside any owner scope")
	}

	owner := NewOwner(nil)
	owner.SetValue(key{}, 42)

	WithOwner(owner, func() {
		if got := ContextValue(key{}); got != 42 {
			t.Errorf("expected 42, got %v", got)
		}
	})
}

func TestOwnerHookSlots(t *testing.T) {
	owner := NewOwner(nil)

	// First render: slot is empty, store a value.
	owner.StartRender()
	if slot := owner.UseHookSlot(); slot != nil {
		t.Errorf("expected nil slot on first render, got %v", slot)
	}
	owner.SetHookSlot("stored")
	owner.EndRender()

	// Second render: same slot comes back.
	owner.StartRender()
	if slot := owner.UseHookSlot(); slot != "stored" {
		t.Errorf("expected stored slot value, got %v", slot)
	}
	owner.EndRender()
}

func TestHookOrderValidation(t *testing.T) {
	DebugMode = true
	defer func() { DebugMode = false }()

	owner := NewOwner(nil)

	owner.StartRender()
	owner.TrackHook(HookMedia)
	owner.TrackHook(HookEffect)
	owner.EndRender()

	// Same order: fine.
	owner.StartRender()
	owner.TrackHook(HookMedia)
	owner.TrackHook(HookEffect)
	owner.EndRender()

	// Different order: panic.
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on hook order change")
		}
	}()
	owner.StartRender()
	owner.TrackHook(HookEffect)
}

func TestRunPendingEffects(t *testing.T) {
	owner := NewOwner(nil)

	runs := 0
	var e *Effect
	WithOwner(owner, func() {
		e = CreateEffect(func() Cleanup {
			runs++
			return nil
		})
	})

	if runs != 1 {
		t.Fatalf("expected effect to run immediately, got %d runs", runs)
	}

	e.MarkDirty()
	if !owner.HasPendingEffects() {
		t.Error("expected pending effects after MarkDirty")
	}

	owner.RunPendingEffects()
	if runs != 2 {
		t.Errorf("expected 2 runs after RunPendingEffects, got %d", runs)
	}
	if owner.HasPendingEffects() {
		t.Error("expected no pending effects after run")
	}
}

func TestRunPendingEffectsRecursesChildren(t *testing.T) {
	root := NewOwner(nil)
	child := NewOwner(root)

	runs := 0
	var e *Effect
	WithOwner(child, func() {
		e = CreateEffect(func() Cleanup {
			runs++
			return nil
		})
	})

	e.MarkDirty()
	root.RunPendingEffects()

	if runs != 2 {
		t.Errorf("expected child effect to run via root, got %d runs", runs)
	}
}
