package gate

import (
	"strings"
	"testing"
	"time"
)

func TestGateCollapseOnCeiling(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(Input{Source: SourceAuto, Stress: 100})

	if decision.Action != ActionCollapse {
		t.Fatalf("expected collapse, got %s: %s", decision.Action, decision.Reason)
	}
	if decision.Vetoed {
		t.Fatal("should not be vetoed")
	}
	if decision.Pressure != 1 {
		t.Fatalf("expected pressure 1, got %f", decision.Pressure)
	}
}

func TestGateRefuseBelowCeiling(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(Input{Source: SourceAuto, Stress: 99.9})

	if decision.Action != ActionRefuse {
		t.Fatalf("expected refuse, got %s", decision.Action)
	}
	if decision.VetoSignals[0].Type != VetoBelowCeiling {
		t.Fatalf("expected VetoBelowCeiling, got %s", decision.VetoSignals[0].Type)
	}
}

func TestGateManualIgnoresCeiling(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(Input{Source: SourceManual, Stress: 3})

	if decision.Action != ActionCollapse {
		t.Fatalf("expected manual collapse at low stress, got %s: %s", decision.Action, decision.Reason)
	}
}

func TestGateRefuseWhileColliding(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(Input{Source: SourceManual, Colliding: true})

	if decision.Action != ActionRefuse {
		t.Fatalf("expected refuse, got %s", decision.Action)
	}
	if !decision.Vetoed {
		t.Fatal("should be vetoed")
	}
	if decision.VetoSignals[0].Type != VetoColliding {
		t.Fatalf("expected VetoColliding, got %s", decision.VetoSignals[0].Type)
	}
}

func TestGateRefuseDuringCooldown(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(Input{
		Source:            SourceManual,
		CooldownActive:    true,
		CooldownRemaining: 4200 * time.Millisecond,
	})

	if decision.Action != ActionRefuse {
		t.Fatalf("expected refuse, got %s", decision.Action)
	}
	if !decision.Has(VetoCooldown) {
		t.Fatalf("expected cooldown veto, got %+v", decision.VetoSignals)
	}
	if !strings.Contains(decision.Reason, "4200ms") {
		t.Fatalf("reason should carry the remaining time, got %q", decision.Reason)
	}
}

func TestGateMultipleVetoes(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(Input{Source: SourceAuto, Stress: 10, Colliding: true, CooldownActive: true})

	if decision.Action != ActionRefuse {
		t.Fatalf("expected refuse, got %s", decision.Action)
	}
	if len(decision.VetoSignals) != 3 {
		t.Fatalf("expected 3 veto signals, got %d", len(decision.VetoSignals))
	}
	for _, v := range []VetoType{VetoColliding, VetoCooldown, VetoBelowCeiling} {
		if !decision.Has(v) {
			t.Errorf("missing veto %s", v)
		}
	}
}

func TestNewGateDefaultsCeiling(t *testing.T) {
	g := NewGate(GateConfig{})
	if g.Config().Ceiling != 100 {
		t.Fatalf("expected default ceiling 100, got %f", g.Config().Ceiling)
	}
}
