package journal

import "time"

// #region mutation-entry
// Mutation phases.
const (
	PhaseComputed = "computed" // pipeline ran on the captured text
	PhaseApplied  = "applied"  // mutated text replaced the buffer
)

// MutationEntry is a single row in the mutation_log table.
type MutationEntry struct {
	ID         int64     `json:"id"`
	CollapseID string    `json:"collapseId"`
	SessionID  string    `json:"sessionId"`
	Phase      string    `json:"phase"` // "computed" | "applied"
	Applied    []string  `json:"applied"`
	Inserted   int       `json:"inserted"`
	Deleted    int       `json:"deleted"`
	Patch      string    `json:"patch"`
	CreatedAt  time.Time `json:"createdAt"`
}

// #endregion mutation-entry

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	ID         int64     `json:"id" yaml:"id"`
	SessionID  string    `json:"sessionId" yaml:"session_id"`
	CollapseID string    `json:"collapseId,omitempty" yaml:"collapse_id,omitempty"` // empty for refused triggers
	Source     string    `json:"source" yaml:"source"`                               // "auto" | "manual"
	Action     string    `json:"action" yaml:"action"`                               // "collapse" | "refuse"
	Reason     string    `json:"reason" yaml:"reason"`
	VetoesJSON string    `json:"vetoes,omitempty" yaml:"vetoes,omitempty"`
	Stress     float64   `json:"stress" yaml:"stress"`
	CreatedAt  time.Time `json:"createdAt" yaml:"created_at"`
}

// #endregion decision-entry

// #region session-summary
// SessionSummary aggregates one session's collapse records.
type SessionSummary struct {
	SessionID     string    `json:"sessionId" yaml:"session_id"`
	Collapses     int       `json:"collapses" yaml:"collapses"`
	MaxGeneration int       `json:"maxGeneration" yaml:"max_generation"`
	FirstAt       time.Time `json:"firstAt" yaml:"first_at"`
	LastAt        time.Time `json:"lastAt" yaml:"last_at"`
}

// #endregion session-summary
