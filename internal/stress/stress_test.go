package stress

import (
	"math"
	"strings"
	"testing"
	"time"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w"
	}
	return strings.Join(parts, " ")
}

func TestEvaluate_EmptyText(t *testing.T) {
	r := Evaluate(Input{}, DefaultConfig())
	// one line * 0.3
	if math.Abs(r.Stress-0.3) > 1e-9 {
		t.Fatalf("expected stress 0.3 for empty text, got %f", r.Stress)
	}
	if r.Stability != 100-r.Stress {
		t.Fatalf("stability %f != 100 - stress %f", r.Stability, r.Stress)
	}
}

func TestEvaluate_FiftyWordsSaturates(t *testing.T) {
	r := Evaluate(Input{Text: words(50)}, DefaultConfig())
	if r.Stress != Ceiling {
		t.Fatalf("expected stress %v, got %f", Ceiling, r.Stress)
	}
	if r.Stability != 0 {
		t.Fatalf("expected stability 0, got %f", r.Stability)
	}
	if !r.AtCeiling() {
		t.Fatal("expected AtCeiling")
	}
}

func TestEvaluate_FortyNineWordsBelowCeiling(t *testing.T) {
	r := Evaluate(Input{Text: words(49)}, DefaultConfig())
	// 98 + 0.3
	if math.Abs(r.Stress-98.3) > 1e-9 {
		t.Fatalf("expected 98.3, got %f", r.Stress)
	}
	if r.AtCeiling() {
		t.Fatal("49 words should not reach the ceiling")
	}
}

func TestEvaluate_MinorTerms(t *testing.T) {
	in := Input{
		Text:       "if (a); {b}",
		Keystrokes: 20,
		Elapsed:    10 * time.Second,
	}
	r := Evaluate(in, DefaultConfig())
	// words: "if", "(a);", "{b}" = 3 -> 6
	// lines 1 -> 0.3, keystrokes 20 -> 1, elapsed 10s -> 1
	// brackets 4 -> 0.6, semicolons 1 -> 0.08, keywords 1 -> 0.25
	want := 6 + 0.3 + 1 + 1 + 0.6 + 0.08 + 0.25
	if math.Abs(r.Stress-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, r.Stress)
	}
	if r.Counts.Brackets != 4 || r.Counts.Keywords != 1 {
		t.Fatalf("unexpected counts %+v", r.Counts)
	}
}

func TestEvaluate_CooldownPinsFloor(t *testing.T) {
	for _, text := range []string{"", words(10), words(500)} {
		r := Evaluate(Input{Text: text, Keystrokes: 1000, Elapsed: time.Hour, CooldownActive: true}, DefaultConfig())
		if r.Stress != 0 || r.Stability != 100 {
			t.Fatalf("cooldown should pin (0,100), got (%f,%f)", r.Stress, r.Stability)
		}
		if !r.CooldownActive {
			t.Fatal("expected CooldownActive in result")
		}
	}
}

func TestEvaluate_InvariantHolds(t *testing.T) {
	cfg := DefaultConfig()
	for n := 0; n < 80; n += 7 {
		for _, ks := range []int{0, 13, 400} {
			r := Evaluate(Input{Text: words(n), Keystrokes: ks, Elapsed: time.Duration(n) * time.Second}, cfg)
			if r.Stress < 0 || r.Stress > 100 {
				t.Fatalf("stress out of range: %f", r.Stress)
			}
			if r.Stability != 100-r.Stress {
				t.Fatalf("stability %f != 100 - %f", r.Stability, r.Stress)
			}
		}
	}
}

func TestEvaluate_NegativeInputsTreatedAsZero(t *testing.T) {
	r := Evaluate(Input{Keystrokes: -5, Elapsed: -time.Minute}, DefaultConfig())
	if math.Abs(r.Stress-0.3) > 1e-9 {
		t.Fatalf("expected 0.3, got %f", r.Stress)
	}
}
