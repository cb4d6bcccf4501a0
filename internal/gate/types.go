package gate

import "time"

// #region source
// Source identifies what asked for a collapse.
type Source string

const (
	SourceAuto   Source = "auto"   // stress reached the ceiling
	SourceManual Source = "manual" // force-collapse request
)

// #endregion source

// #region veto-type
// VetoType enumerates the reasons a trigger is refused.
type VetoType string

const (
	VetoColliding    VetoType = "colliding"
	VetoCooldown     VetoType = "cooldown"
	VetoBelowCeiling VetoType = "below_ceiling"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents one detected refusal condition.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds the trigger threshold.
type GateConfig struct {
	Ceiling float64 // stress at which an automatic trigger may fire
}

// DefaultGateConfig returns the standard threshold.
func DefaultGateConfig() GateConfig {
	return GateConfig{Ceiling: 100}
}

// #endregion gate-config

// #region gate-input
// Input is the engine state the gate reads at trigger time.
type Input struct {
	Source            Source
	Stress            float64
	Colliding         bool
	CooldownActive    bool
	CooldownRemaining time.Duration
}

// #endregion gate-input

// #region gate-decision
// Decision actions.
const (
	ActionCollapse = "collapse"
	ActionRefuse   = "refuse"
)

// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string       `json:"action"` // "collapse" | "refuse"
	Source      Source       `json:"source"`
	Reason      string       `json:"reason"`
	Vetoed      bool         `json:"vetoed"`
	VetoSignals []VetoSignal `json:"vetoSignals,omitempty"` // non-empty if vetoed
	Pressure    float64      `json:"pressure"`              // stress relative to the ceiling, for logging
}

// Has reports whether the decision carries a veto of type v.
func (d GateDecision) Has(v VetoType) bool {
	for _, s := range d.VetoSignals {
		if s.Type == v {
			return true
		}
	}
	return false
}

// #endregion gate-decision
