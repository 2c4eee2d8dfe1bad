// Package timeout implements the round timer that drives skips (spec.md
// §4.4, "Arm the round timer for T_round"). It is a thin, re-armable
// wrapper over time.Timer exposing a channel the event loop selects on
// alongside inbound messages and host commands.
//
// Grounded on the teacher's SlotClock (consensus/state.go,
// consensus/slot_test.go: NewSlotClock/ResetClock/Chan), generalized from
// a logical-time slot clock to a plain per-round wall-clock timeout, since
// Solid's round coordinate is (height, skips) rather than a global slot
// counter.
package timeout

import "time"

// Timer is a one-shot, re-armable round timer. Not safe for concurrent
// use; the event loop is its only caller.
type Timer struct {
	timer *time.Timer
	c     chan struct{}
}

// New creates a Timer with no timeout armed. Call Reset before the first
// tick is expected.
func New() *Timer {
	return &Timer{c: make(chan struct{}, 1)}
}

// Chan returns the channel that receives a value each time the armed
// duration elapses without an intervening Reset or Stop.
func (t *Timer) Chan() <-chan struct{} {
	return t.c
}

// Reset (re)arms the timer for d, discarding any previously armed
// duration and any pending tick from it. Called on every round entry
// (spec.md §4.4, "On round entry (h, s): ... Arm the round timer for
// T_round") and whenever a skip advances the round.
func (t *Timer) Reset(d time.Duration) {
	t.Stop()
	t.timer = time.AfterFunc(d, func() {
		select {
		case t.c <- struct{}{}:
		default:
		}
	})
}

// Stop cancels any armed timeout and drains a pending tick, so a stale
// tick from a superseded round can never be observed after the round has
// moved on (spec.md §4.4, "Accepts arriving for a round already
// surpassed: discarded silently" — the same discipline applies to
// timeouts).
func (t *Timer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	select {
	case <-t.c:
	default:
	}
}
