package reactive

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// HookType identifies the kind of hook call for order validation.
type HookType uint8

const (
	HookEffect HookType = iota + 1
	HookMedia
	HookViewport
	HookContext
)

// String returns a human-readable name for the hook type.
func (h HookType) String() string {
	switch h {
	case HookEffect:
		return "Effect"
	case HookMedia:
		return "Media"
	case HookViewport:
		return "Viewport"
	case HookContext:
		return "Context"
	default:
		return "Unknown"
	}
}

type hookRecord struct {
	Type HookType
}

// Owner represents a component scope that owns reactive primitives. When an
// Owner is disposed, the effects, cleanups, and child owners it contains
// are disposed with it, which is how subscriptions established during a
// component's lifetime are released exactly once when it unmounts.
//
// Owners form a hierarchy mirroring the component tree; the root owner
// typically belongs to the session.
type Owner struct {
	id uint64

	// parent is nil for a root owner.
	parent *Owner

	children   []*Owner
	childrenMu sync.Mutex

	effects   []*Effect
	effectsMu sync.Mutex

	// cleanups registered via OnCleanup, run in reverse order on dispose.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// pendingEffects are effects scheduled to run after the current
	// render/dispatch completes.
	pendingEffects   []*Effect
	pendingEffectsMu sync.Mutex

	// values holds context values visible to this scope and its children.
	values   map[any]any
	valuesMu sync.RWMutex

	disposed atomic.Bool

	// Hook order tracking, validated only when DebugMode is set.
	hookOrder   []hookRecord
	hookIndex   int
	renderCount int

	// inRender is true between StartRender and EndRender. Hook slot
	// machinery engages only inside that bracket; reads from effects
	// and event handlers bypass it.
	inRender bool

	// Hook slot storage giving hooks stable identity across re-renders.
	// Always active; correctness of subscription reuse depends on it.
	hookSlots   []any
	hookSlotIdx int
}

// NewOwner creates an owner under parent, or a root owner when parent is
// nil.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(o)
	}

	return o
}

// ID returns the unique identifier for this owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed reports whether Dispose has run.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()

	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

func (o *Owner) registerEffect(e *Effect) {
	if o.disposed.Load() {
		return
	}

	o.effectsMu.Lock()
	defer o.effectsMu.Unlock()
	o.effects = append(o.effects, e)
}

// OnCleanup registers fn to run when this owner is disposed. If the owner
// is already disposed, fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}

	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

func (o *Owner) scheduleEffect(e *Effect) {
	if o.disposed.Load() {
		return
	}

	o.pendingEffectsMu.Lock()
	defer o.pendingEffectsMu.Unlock()
	o.pendingEffects = append(o.pendingEffects, e)
}

// SetValue stores a context value on this scope, visible to this owner and
// every descendant via Value.
func (o *Owner) SetValue(key, value any) {
	o.valuesMu.Lock()
	defer o.valuesMu.Unlock()

	if o.values == nil {
		o.values = make(map[any]any)
	}
	o.values[key] = value
}

// Value looks key up on this owner, walking up the parent chain. Returns
// nil when no scope provides it.
func (o *Owner) Value(key any) any {
	for cur := o; cur != nil; cur = cur.parent {
		cur.valuesMu.RLock()
		v, ok := cur.values[key]
		cur.valuesMu.RUnlock()
		if ok {
			return v
		}
	}
	return nil
}

// ContextValue resolves key against the current owner's scope chain.
// Returns nil outside of any owner context.
func ContextValue(key any) any {
	owner := CurrentOwner()
	if owner == nil {
		return nil
	}
	return owner.Value(key)
}

// RunPendingEffects executes effects scheduled on this owner and,
// recursively, on its children. The runtime calls this after dispatching
// an event and before re-rendering dirty components, which is what orders
// effect callbacks strictly before the next snapshot read.
func (o *Owner) RunPendingEffects() {
	if o.disposed.Load() {
		return
	}

	o.pendingEffectsMu.Lock()
	effects := o.pendingEffects
	o.pendingEffects = nil
	o.pendingEffectsMu.Unlock()

	for _, e := range effects {
		if e.pending.Load() {
			e.run()
		}
	}

	o.childrenMu.Lock()
	children := make([]*Owner, len(o.children))
	copy(children, o.children)
	o.childrenMu.Unlock()

	for _, child := range children {
		child.RunPendingEffects()
	}
}

// HasPendingEffects reports whether this owner or any child has effects
// waiting to run.
func (o *Owner) HasPendingEffects() bool {
	if o.disposed.Load() {
		return false
	}

	o.pendingEffectsMu.Lock()
	hasPending := len(o.pendingEffects) > 0
	o.pendingEffectsMu.Unlock()

	if hasPending {
		return true
	}

	o.childrenMu.Lock()
	children := make([]*Owner, len(o.children))
	copy(children, o.children)
	o.childrenMu.Unlock()

	for _, child := range children {
		if child.HasPendingEffects() {
			return true
		}
	}

	return false
}

// Dispose disposes this owner: children in reverse creation order, then
// effects, then cleanups in reverse registration order. Safe to call more
// than once.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := make([]*Owner, len(o.children))
	copy(children, o.children)
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.effectsMu.Lock()
	effects := o.effects
	o.effects = nil
	o.effectsMu.Unlock()

	for _, e := range effects {
		e.dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	o.pendingEffectsMu.Lock()
	o.pendingEffects = nil
	o.pendingEffectsMu.Unlock()
}

// =============================================================================
// Render bracketing and hook identity
// =============================================================================

// StartRender resets the hook slot cursor ahead of a component render. In
// debug mode it also resets the hook order validation index.
func (o *Owner) StartRender() {
	o.inRender = true
	o.hookSlotIdx = 0

	if DebugMode {
		o.hookIndex = 0
	}
}

// EndRender completes a component render. On the first render the observed
// hook order is locked in; later renders that called fewer hooks panic in
// debug mode.
func (o *Owner) EndRender() {
	o.inRender = false

	if !DebugMode {
		return
	}
	if o.renderCount == 0 {
		o.renderCount = 1
	} else if o.hookIndex < len(o.hookOrder) {
		panic(fmt.Sprintf("[MM E002] hook order changed: expected %d hooks, got %d",
			len(o.hookOrder), o.hookIndex))
	}
}

// InRender reports whether the owner is between StartRender and
// EndRender.
func (o *Owner) InRender() bool {
	return o.inRender
}

// TrackHook records a hook call for order validation. Hooks must be called
// unconditionally and in the same order on every render; debug mode turns
// violations into panics at the offending call. Calls outside a render
// bracket, from effects or event handlers, are exempt.
func (o *Owner) TrackHook(ht HookType) {
	if !DebugMode || !o.inRender {
		return
	}

	if o.renderCount == 0 {
		o.hookOrder = append(o.hookOrder, hookRecord{Type: ht})
	} else {
		if o.hookIndex >= len(o.hookOrder) {
			panic(fmt.Sprintf("[MM E002] hook order changed: extra %s hook at index %d",
				ht, o.hookIndex))
		}
		expected := o.hookOrder[o.hookIndex]
		if expected.Type != ht {
			panic(fmt.Sprintf("[MM E002] hook order changed at index %d: expected %s, got %s",
				o.hookIndex, expected.Type, ht))
		}
	}
	o.hookIndex++
}

// UseHookSlot returns the value stored in the current hook slot, or nil on
// the first render. Callers create their state on nil and store it with
// SetHookSlot, giving the hook stable identity across re-renders.
func (o *Owner) UseHookSlot() any {
	idx := o.hookSlotIdx
	o.hookSlotIdx++

	if idx < len(o.hookSlots) {
		return o.hookSlots[idx]
	}

	return nil
}

// SetHookSlot stores a value in the slot just consumed by UseHookSlot.
func (o *Owner) SetHookSlot(value any) {
	o.hookSlots = append(o.hookSlots, value)
}

// HookSlotCount returns how many hook slots the owner has allocated.
func (o *Owner) HookSlotCount() int {
	return len(o.hookSlots)
}
