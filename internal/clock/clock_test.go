package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAdvanceFiresInOrder(t *testing.T) {
	c := NewFake(epoch)
	var order []string
	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })

	c.Advance(250 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected [a b], got %v", order)
	}
	if got := c.Now().Sub(epoch); got != 250*time.Millisecond {
		t.Fatalf("expected now=+250ms, got %v", got)
	}

	c.Advance(time.Second)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("expected c to fire last, got %v", order)
	}
}

func TestFakeNowDuringCallback(t *testing.T) {
	c := NewFake(epoch)
	var seen time.Duration
	c.AfterFunc(100*time.Millisecond, func() { seen = c.Now().Sub(epoch) })
	c.Advance(time.Second)
	if seen != 100*time.Millisecond {
		t.Fatalf("callback should observe its due time, got %v", seen)
	}
}

func TestFakeNestedScheduling(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	c.AfterFunc(100*time.Millisecond, func() {
		c.AfterFunc(2500*time.Millisecond, func() { fired = true })
	})

	c.Advance(2599 * time.Millisecond)
	if fired {
		t.Fatal("nested continuation fired early")
	}
	c.Advance(time.Millisecond)
	if !fired {
		t.Fatal("nested continuation should fire at +2600ms")
	}
}

func TestFakeStop(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("first Stop should report true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should report false")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Fatalf("expected 0 pending, got %d", c.Pending())
	}
}
