package cooldown

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestUnarmedIsInactive(t *testing.T) {
	var c Timer
	if c.Active(t0) {
		t.Fatal("zero-value timer should be inactive")
	}
	if c.Remaining(t0) != 0 {
		t.Fatal("inactive timer should have no remaining time")
	}
	if _, ok := c.LastCollapse(); ok {
		t.Fatal("zero-value timer should not report a last collapse")
	}
}

func TestWindowBoundaries(t *testing.T) {
	c := New(DefaultWindow)
	c.Arm(t0)

	tests := []struct {
		offset time.Duration
		active bool
	}{
		{0, true},
		{5 * time.Second, true},
		{9999 * time.Millisecond, true},
		{10 * time.Second, false},
		{time.Minute, false},
	}
	for _, tt := range tests {
		if got := c.Active(t0.Add(tt.offset)); got != tt.active {
			t.Errorf("Active(+%v) = %v, want %v", tt.offset, got, tt.active)
		}
	}
}

func TestRemaining(t *testing.T) {
	c := New(0)
	c.Arm(t0)
	if got := c.Remaining(t0.Add(4 * time.Second)); got != 6*time.Second {
		t.Fatalf("expected 6s remaining, got %v", got)
	}
}

func TestClearAndRearm(t *testing.T) {
	c := New(time.Second)
	c.Arm(t0)
	c.Clear()
	if c.Active(t0) {
		t.Fatal("cleared timer should be inactive")
	}
	c.Arm(t0.Add(time.Hour))
	if !c.Active(t0.Add(time.Hour + 500*time.Millisecond)) {
		t.Fatal("re-armed timer should be active")
	}
}
