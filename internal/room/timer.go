package room

import (
	"sync"
	"time"
)

// ResettableTimer is a debounce timer: arming it always cancels any prior
// pending fire, so only the most recent Arm can run its callback. Used for
// dominant-speaker expiry and dial-out join timeouts, which both want
// "latest event wins" semantics.
type ResettableTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Arm schedules fn after d, cancelling any previously armed fire.
func (r *ResettableTimer) Arm(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(d, fn)
}

// Stop cancels the pending fire, if any.
func (r *ResettableTimer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
