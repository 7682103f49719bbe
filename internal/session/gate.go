// Package session implements the intrusive-session core: the mutual-exclusion
// gate, the sample buffers behind the live charts, the diagnostic polling
// session and the spectral scan protocol machine. Everything here is
// event-driven and runs on the UI loop; real timers and sockets stay outside,
// injected through the Scheduler and ScanChannel abstractions.
package session

// Gate answers "is an intrusive session active right now?". At most one of
// LiveSession/ScanSession is non-terminal at any time; the gate is the single
// source of truth for that rule. The push-notification handler consults
// IsHeld to decide whether a background refresh may run.
//
// The gate is confined to the UI event loop and needs no locking: every
// acquire/release happens inside an Update call or a scheduled callback, and
// those never interleave.
type Gate struct {
	held bool
}

// Acquire claims the gate. It returns false and does nothing if another
// session already holds it.
func (g *Gate) Acquire() bool {
	if g.held {
		return false
	}
	g.held = true
	return true
}

// Release frees the gate. Releasing an unheld gate is a no-op, so terminal
// paths that can fire more than once (countdown and expiry both ending the
// same session) converge safely.
func (g *Gate) Release() {
	g.held = false
}

// IsHeld reports whether an intrusive session is active.
func (g *Gate) IsHeld() bool {
	return g.held
}
