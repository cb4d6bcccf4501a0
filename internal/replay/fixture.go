package replay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
)

// Step actions. A step with text and no action is an input.
const (
	ActionInput    = "input"
	ActionCollapse = "collapse"
	ActionReset    = "reset"
	ActionTick     = "tick"
)

// ErrInvalidTrace is wrapped by every Validate failure.
var ErrInvalidTrace = errors.New("invalid trace")

// #region fixture-types

// Trace is a recorded editing session. JSON traces parse too, JSON being valid YAML.
type Trace struct {
	Description string        `yaml:"description" json:"description"`
	Seed        int64         `yaml:"seed" json:"seed"`
	Start       time.Time     `yaml:"start,omitempty" json:"start,omitempty"` // zero means DefaultStart
	Config      TraceConfig   `yaml:"config,omitempty" json:"config,omitempty"`
	Steps       []Step        `yaml:"steps" json:"steps"`
	Tail        time.Duration `yaml:"tail,omitempty" json:"tail,omitempty"` // clock advance after the last step
	Expected    *Expected     `yaml:"expected,omitempty" json:"expected,omitempty"`
}

// TraceConfig overrides engine timings. Zero fields keep the engine default.
type TraceConfig struct {
	MutationDelay    time.Duration `yaml:"mutation_delay,omitempty" json:"mutation_delay,omitempty"`
	ReplaceDelay     time.Duration `yaml:"replace_delay,omitempty" json:"replace_delay,omitempty"`
	CollapseDuration time.Duration `yaml:"collapse_duration,omitempty" json:"collapse_duration,omitempty"`
	Cooldown         time.Duration `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`
}

// Step is one timed operation. At is the offset from the trace start and never decreases.
type Step struct {
	At     time.Duration `yaml:"at" json:"at"`
	Text   *string       `yaml:"text,omitempty" json:"text,omitempty"`
	Action string        `yaml:"action,omitempty" json:"action,omitempty"`
}

// Expected is the outcome a regression trace pins. Nil fields are not checked.
type Expected struct {
	Collapses  *int    `yaml:"collapses,omitempty" json:"collapses,omitempty"`
	Refused    *int    `yaml:"refused,omitempty" json:"refused,omitempty"`
	Generation *int    `yaml:"generation,omitempty" json:"generation,omitempty"`
	Resets     *int    `yaml:"resets,omitempty" json:"resets,omitempty"`
	FinalText  *string `yaml:"final_text,omitempty" json:"final_text,omitempty"`
}

// DefaultStart is the fake-clock origin of traces without a start time.
var DefaultStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// #endregion fixture-types

// #region fixture-loader

// LoadTrace reads and parses a YAML or JSON trace file.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", path, err)
	}
	t, err := ParseTrace(data)
	if err != nil {
		return nil, fmt.Errorf("parse trace %s: %w", path, err)
	}
	return t, nil
}

// ParseTrace decodes and validates a trace.
func ParseTrace(data []byte) (*Trace, error) {
	var t Trace
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks step ordering and that every step names exactly one operation.
func (t *Trace) Validate() error {
	var last time.Duration
	for i, s := range t.Steps {
		if s.At < 0 {
			return fmt.Errorf("%w: step %d: negative offset %s", ErrInvalidTrace, i, s.At)
		}
		if s.At < last {
			return fmt.Errorf("%w: step %d: offset %s before previous %s", ErrInvalidTrace, i, s.At, last)
		}
		last = s.At
		switch s.Action {
		case "":
			if s.Text == nil {
				return fmt.Errorf("%w: step %d: needs text or action", ErrInvalidTrace, i)
			}
		case ActionInput:
			if s.Text == nil {
				return fmt.Errorf("%w: step %d: input needs text", ErrInvalidTrace, i)
			}
		case ActionCollapse, ActionReset, ActionTick:
			if s.Text != nil {
				return fmt.Errorf("%w: step %d: %s takes no text", ErrInvalidTrace, i, s.Action)
			}
		default:
			return fmt.Errorf("%w: step %d: unknown action %q", ErrInvalidTrace, i, s.Action)
		}
	}
	if t.Tail < 0 {
		return fmt.Errorf("%w: negative tail %s", ErrInvalidTrace, t.Tail)
	}
	return nil
}

// Kind returns the step's operation, filling in input for text-only steps.
func (s Step) Kind() string {
	if s.Action == "" {
		return ActionInput
	}
	return s.Action
}

// EngineConfig applies the overrides to the engine defaults.
func (c TraceConfig) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	if c.MutationDelay > 0 {
		cfg.MutationDelay = c.MutationDelay
	}
	if c.ReplaceDelay > 0 {
		cfg.ReplaceDelay = c.ReplaceDelay
	}
	if c.CollapseDuration > 0 {
		cfg.CollapseDuration = c.CollapseDuration
	}
	if c.Cooldown > 0 {
		cfg.Cooldown = c.Cooldown
	}
	return cfg
}

// #endregion fixture-loader
