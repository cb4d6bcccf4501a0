package metrics

import (
	"fmt"
	"io"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danielpatrickdp/collapse-engine/internal/clock"
	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/mutate"
)

func newObservedEngine(t *testing.T, mut func(*engine.Config)) (*engine.Engine, *clock.Fake, *Collector) {
	t.Helper()
	cfg := engine.DefaultConfig()
	if mut != nil {
		mut(&cfg)
	}
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e, err := engine.New(cfg, clk, rand.New(rand.NewSource(5)), nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	c := NewCollector()
	e.Subscribe(c)
	return e, clk, c
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("v%d", i)
	}
	return strings.Join(parts, " ")
}

func TestCollectorCountsCollapses(t *testing.T) {
	e, clk, c := newObservedEngine(t, nil)

	e.Input(words(60))
	if v := testutil.ToFloat64(c.CollapsesTotal.WithLabelValues("auto")); v != 1 {
		t.Fatalf("collapses_total[auto] = %f, want 1", v)
	}
	if v := testutil.ToFloat64(c.IsColliding); v != 1 {
		t.Fatalf("colliding = %f, want 1", v)
	}

	clk.Advance(3 * time.Second)
	if v := testutil.ToFloat64(c.Generation); v != 1 {
		t.Fatalf("generation = %f, want 1", v)
	}
	if v := testutil.ToFloat64(c.Stability); v != 100 {
		t.Fatalf("stability = %f, want 100", v)
	}
	if v := testutil.ToFloat64(c.IsColliding); v != 0 {
		t.Fatalf("colliding = %f, want 0", v)
	}
}

func TestCollectorCountsRefusals(t *testing.T) {
	e, _, c := newObservedEngine(t, nil)

	e.ForceCollapse()
	e.ForceCollapse()

	if v := testutil.ToFloat64(c.CollapsesTotal.WithLabelValues("manual")); v != 1 {
		t.Fatalf("collapses_total[manual] = %f, want 1", v)
	}
	if v := testutil.ToFloat64(c.TriggersRefusedTotal.WithLabelValues("cooldown")); v != 1 {
		t.Fatalf("triggers_refused_total[cooldown] = %f, want 1", v)
	}
	if v := testutil.ToFloat64(c.TriggersRefusedTotal.WithLabelValues("colliding")); v != 1 {
		t.Fatalf("triggers_refused_total[colliding] = %f, want 1", v)
	}
}

func TestCollectorCountsStages(t *testing.T) {
	e, clk, c := newObservedEngine(t, func(cfg *engine.Config) {
		cfg.Mutate = mutate.Config{QuoteFlipChance: 1}
	})

	e.Input(words(59) + " 'x'")
	clk.Advance(200 * time.Millisecond)

	if v := testutil.ToFloat64(c.MutationStagesTotal.WithLabelValues(mutate.StageFlipQuotes)); v != 1 {
		t.Fatalf("mutation_stages_total[flip-quotes] = %f, want 1", v)
	}
	if n := testutil.CollectAndCount(c.MutatedChars); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestCollectorResets(t *testing.T) {
	e, _, c := newObservedEngine(t, nil)
	e.Reset()
	e.Reset()
	if v := testutil.ToFloat64(c.ResetsTotal); v != 2 {
		t.Fatalf("resets_total = %f, want 2", v)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	e, _, c := newObservedEngine(t, nil)
	e.Input("hello world")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{"collapse_engine_stress", "collapse_engine_stability", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
