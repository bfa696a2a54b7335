package reactive

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for one goroutine. Each
// goroutine gets its own so concurrent sessions can render components in
// parallel without interfering.
type trackingContext struct {
	// currentOwner owns newly created effects and receives hook slots.
	currentOwner *Owner

	// currentListener is subscribed by every tracked read. Nil means
	// reads do not create subscriptions.
	currentListener Listener

	// batchDepth counts nested Batch calls; while positive, source
	// notifications are queued instead of delivered.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when the outermost
	// batch completes. Deduplicated by ID before delivery.
	pendingUpdates []Listener

	// currentRuntime is the runtime handle (the session) made available to
	// hooks during render and dispatch. Stored as any to keep this package
	// independent of the server.
	currentRuntime any
}

var trackingContexts sync.Map

// goroutineID extracts the current goroutine's ID from the runtime stack
// header ("goroutine <id> ..."). Implementation detail; not exposed.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

func getTrackingContext() *trackingContext {
	gid := goroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

func getCurrentListener() Listener {
	return getTrackingContext().currentListener
}

func setCurrentListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

// CurrentOwner returns the owner for the current goroutine, or nil when no
// render or effect scope is active.
func CurrentOwner() *Owner {
	return getTrackingContext().currentOwner
}

func setCurrentOwner(o *Owner) *Owner {
	ctx := getTrackingContext()
	old := ctx.currentOwner
	ctx.currentOwner = o
	return old
}

func getBatchDepth() int {
	return getTrackingContext().batchDepth
}

func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth reports whether the outermost batch just completed.
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

func drainPendingUpdates() []Listener {
	ctx := getTrackingContext()
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	return updates
}

// WithOwner runs fn with owner installed as the current owner, restoring
// the previous owner afterwards. Used by the runtime when rendering a
// component and by code that spawns goroutines whose effects should belong
// to an existing scope.
func WithOwner(owner *Owner, fn func()) {
	old := setCurrentOwner(owner)
	defer setCurrentOwner(old)
	fn()
}

// WithListener runs fn with l installed for dependency tracking.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}

// CurrentRuntime returns the runtime handle installed by WithRuntime, or
// nil outside of render/dispatch. Callers type-assert to the concrete
// session type.
func CurrentRuntime() any {
	return getTrackingContext().currentRuntime
}

// WithRuntime runs fn with rt available via CurrentRuntime.
func WithRuntime(rt any, fn func()) {
	ctx := getTrackingContext()
	old := ctx.currentRuntime
	ctx.currentRuntime = rt
	defer func() { ctx.currentRuntime = old }()
	fn()
}

// ReleaseGoroutineState drops the tracking context for the current
// goroutine. Long-lived worker goroutines that used WithOwner or
// WithListener may call this before exiting; contexts are small, so this
// is an optimization rather than a requirement.
func ReleaseGoroutineState() {
	trackingContexts.Delete(goroutineID())
}
