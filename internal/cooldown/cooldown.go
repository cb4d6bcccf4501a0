package cooldown

import "time"

// DefaultWindow is the time after a collapse during which stress cannot accumulate.
const DefaultWindow = 10 * time.Second

// Timer is a temporal gate over the last collapse time. The zero value is unarmed
// and uses DefaultWindow.
type Timer struct {
	window time.Duration
	last   time.Time
	armed  bool
}

// New returns an unarmed timer. window <= 0 falls back to DefaultWindow.
func New(window time.Duration) *Timer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Timer{window: window}
}

// Arm starts a cooldown at now, replacing any earlier one.
func (t *Timer) Arm(now time.Time) {
	t.last = now
	t.armed = true
}

// Clear forgets the last collapse time.
func (t *Timer) Clear() {
	t.last = time.Time{}
	t.armed = false
}

// Active reports whether now falls inside the cooldown window.
func (t *Timer) Active(now time.Time) bool {
	return t.armed && now.Sub(t.last) < t.Window()
}

// Remaining returns how long the cooldown still runs, or 0 when inactive.
func (t *Timer) Remaining(now time.Time) time.Duration {
	if !t.Active(now) {
		return 0
	}
	return t.Window() - now.Sub(t.last)
}

// LastCollapse returns the arm time and whether the timer was ever armed.
func (t *Timer) LastCollapse() (time.Time, bool) {
	return t.last, t.armed
}

// Window returns the configured cooldown length.
func (t *Timer) Window() time.Duration {
	if t.window <= 0 {
		return DefaultWindow
	}
	return t.window
}
