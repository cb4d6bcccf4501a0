package gate

import (
	"fmt"
)

// #region gate
// Gate evaluates whether a collapse trigger may fire.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration. A non-positive ceiling
// falls back to the default.
func NewGate(config GateConfig) *Gate {
	if config.Ceiling <= 0 {
		config.Ceiling = DefaultGateConfig().Ceiling
	}
	return &Gate{config: config}
}

// Config returns the gate's thresholds.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Evaluate collects every veto for in. Any veto refuses the trigger.
func (g *Gate) Evaluate(in Input) GateDecision {
	var vetoes []VetoSignal

	// 1. One collapse episode at a time
	if in.Colliding {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoColliding,
			Reason: "collapse already in progress",
		})
	}

	// 2. Cooldown window still open
	if in.CooldownActive {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoCooldown,
			Reason: fmt.Sprintf("cooldown active, %dms remaining", in.CooldownRemaining.Milliseconds()),
		})
	}

	// 3. Automatic triggers need stress at the ceiling; manual ones do not
	if in.Source == SourceAuto && in.Stress < g.config.Ceiling {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoBelowCeiling,
			Reason: fmt.Sprintf("stress %.2f below ceiling %.2f", in.Stress, g.config.Ceiling),
		})
	}

	pressure := in.Stress / g.config.Ceiling

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      ActionRefuse,
			Source:      in.Source,
			Reason:      fmt.Sprintf("refused: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			Pressure:    pressure,
		}
	}

	return GateDecision{
		Action:   ActionCollapse,
		Source:   in.Source,
		Reason:   fmt.Sprintf("%s trigger accepted: pressure=%.4f", in.Source, pressure),
		Pressure: pressure,
	}
}

// #endregion gate
