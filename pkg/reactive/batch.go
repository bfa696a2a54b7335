package reactive

// DebugMode enables development-time validation throughout the package,
// most notably hook order checking. Set it at startup; it is not meant to
// be toggled while sessions are live.
var DebugMode bool

// Batch groups multiple source notifications into a single delivery phase.
// Listeners affected by updates inside fn are collected, deduplicated, and
// marked dirty once when the outermost batch completes.
//
// Example:
//
//	reactive.Batch(func() {
//	    width.Set(500)
//	    height.Set(900)
//	})
//	// subscribers notified once
func Batch(fn func()) {
	incrementBatchDepth()

	defer func() {
		if decrementBatchDepth() {
			processPendingUpdates()
		}
	}()

	fn()
}

func processPendingUpdates() {
	updates := drainPendingUpdates()
	if len(updates) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(updates))
	unique := make([]Listener, 0, len(updates))

	for _, listener := range updates {
		id := listener.ID()
		if !seen[id] {
			seen[id] = true
			unique = append(unique, listener)
		}
	}

	for _, listener := range unique {
		listener.MarkDirty()
	}
}

// Untracked runs fn without subscribing the current listener to anything
// it reads. For single signal reads, Peek is clearer.
func Untracked(fn func()) {
	old := setCurrentListener(nil)
	defer setCurrentListener(old)
	fn()
}
