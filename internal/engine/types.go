package engine

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/danielpatrickdp/collapse-engine/internal/cooldown"
	"github.com/danielpatrickdp/collapse-engine/internal/gate"
	"github.com/danielpatrickdp/collapse-engine/internal/history"
	"github.com/danielpatrickdp/collapse-engine/internal/mutate"
	"github.com/danielpatrickdp/collapse-engine/internal/profile"
	"github.com/danielpatrickdp/collapse-engine/internal/signals"
	"github.com/danielpatrickdp/collapse-engine/internal/stress"
)

// #region config

// ErrInvalidConfig is returned by New and Config.Validate for impossible timings.
var ErrInvalidConfig = errors.New("invalid engine config")

// Config holds the collapse timings and the tunables of every collaborator.
type Config struct {
	MutationDelay    time.Duration // trigger -> pipeline run on the live text
	ReplaceDelay     time.Duration // pipeline run -> mutated text applied
	CollapseDuration time.Duration // trigger -> back to idle
	Cooldown         time.Duration // trigger -> stress may accumulate again
	HistoryCapacity  int

	Stress stress.Config
	Mutate mutate.Config
	Gate   gate.GateConfig
}

// DefaultConfig returns the standard timings: mutate at +100ms, apply at +2600ms,
// idle at +3000ms, cooldown for 10s.
func DefaultConfig() Config {
	return Config{
		MutationDelay:    100 * time.Millisecond,
		ReplaceDelay:     2500 * time.Millisecond,
		CollapseDuration: 3000 * time.Millisecond,
		Cooldown:         cooldown.DefaultWindow,
		HistoryCapacity:  history.DefaultCapacity,
		Stress:           stress.DefaultConfig(),
		Mutate:           mutate.DefaultConfig(),
		Gate:             gate.DefaultGateConfig(),
	}
}

// Validate checks that the mutated text is applied before the collapse ends.
func (c Config) Validate() error {
	switch {
	case c.MutationDelay < 0 || c.ReplaceDelay < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	case c.CollapseDuration <= 0:
		return fmt.Errorf("%w: collapse duration must be positive", ErrInvalidConfig)
	case c.MutationDelay+c.ReplaceDelay >= c.CollapseDuration:
		return fmt.Errorf("%w: mutation delay %s + replace delay %s must be shorter than collapse duration %s",
			ErrInvalidConfig, c.MutationDelay, c.ReplaceDelay, c.CollapseDuration)
	case c.Cooldown <= 0:
		return fmt.Errorf("%w: cooldown must be positive", ErrInvalidConfig)
	case c.HistoryCapacity < 1:
		return fmt.Errorf("%w: history capacity must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// #endregion config

// #region snapshot

// Snapshot is a consistent copy of the session, taken under the engine lock.
type Snapshot struct {
	SessionID           string             `json:"sessionId" yaml:"session_id"`
	Text                string             `json:"text" yaml:"text"`
	Language            signals.Language   `json:"language" yaml:"language"`
	Stress              float64            `json:"stress" yaml:"stress"`
	Stability           float64            `json:"stability" yaml:"stability"`
	Generation          int                `json:"generation" yaml:"generation"`
	CollapseCount       int                `json:"collapseCount" yaml:"collapse_count"`
	TotalKeystrokes     int                `json:"totalKeystrokes" yaml:"total_keystrokes"`
	StabilityHistory    []float64          `json:"stabilityHistory" yaml:"stability_history"`
	IsCrashing          bool               `json:"isCrashing" yaml:"is_crashing"`
	CrashIntensity      int                `json:"crashIntensity" yaml:"crash_intensity"`
	CurrentMutation     *profile.Profile   `json:"currentMutation" yaml:"current_mutation"`
	CurrentVisualEffect string             `json:"currentVisualEffect" yaml:"current_visual_effect"`
	BackgroundColor     string             `json:"backgroundColor" yaml:"background_color"`
	TextColor           string             `json:"textColor" yaml:"text_color"`
	FontSize            int                `json:"fontSize" yaml:"font_size"`
	IndentSize          int                `json:"indentSize" yaml:"indent_size"`
	EditorMode          profile.EditorMode `json:"editorMode" yaml:"editor_mode"`
	CollapseOnCooldown  bool               `json:"collapseOnCooldown" yaml:"collapse_on_cooldown"`
	CooldownRemainingMs int64              `json:"cooldownRemainingMs" yaml:"cooldown_remaining_ms"`
	SessionStartedAt    time.Time          `json:"sessionStartedAt" yaml:"session_started_at"`
	Warnings            []string           `json:"warnings" yaml:"warnings"`
	StabilityColor      string             `json:"stabilityColor" yaml:"stability_color"`
}

// ExportName is the file name the current text is saved under.
func (s Snapshot) ExportName() string {
	return "raptor-gen" + strconv.Itoa(s.Generation) + ".py"
}

// #endregion snapshot

// #region collapse-record

// CollapseRecord is the immutable history entry written when a trigger is accepted.
type CollapseRecord struct {
	ID         string             `json:"id" yaml:"id"`
	Text       string             `json:"text" yaml:"text"` // buffer at trigger time
	Timestamp  time.Time          `json:"timestamp" yaml:"timestamp"`
	Generation int                `json:"generation" yaml:"generation"`
	Stress     float64            `json:"stress" yaml:"stress"`
	Source     gate.Source        `json:"source" yaml:"source"`
	Profile    string             `json:"profile" yaml:"profile"`
	EditorMode profile.EditorMode `json:"editorMode" yaml:"editor_mode"`
}

// TriggerResult is returned by ForceCollapse.
type TriggerResult struct {
	Decision gate.GateDecision `json:"decision"`
	Record   *CollapseRecord   `json:"record,omitempty"` // nil when refused
	Snapshot Snapshot          `json:"snapshot"`
}

// #endregion collapse-record

// #region events

// EventKind names an engine event.
type EventKind string

const (
	EventEvaluated          EventKind = "evaluated"
	EventCollapseStarted    EventKind = "collapse-started"
	EventMutationComputed   EventKind = "mutation-computed"
	EventTextMutated        EventKind = "text-mutated"
	EventGenerationAdvanced EventKind = "generation-advanced"
	EventTriggerRefused     EventKind = "trigger-refused"
	EventReset              EventKind = "reset"
)

// Event is delivered to observers after the engine lock is released. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind       EventKind
	At         time.Time
	SessionID  string
	CollapseID string // collapse episode the event belongs to, if any
	Snapshot   Snapshot

	PreviousSessionID string // reset: the session that was discarded

	Stress   *stress.Result     // evaluated
	Decision *gate.GateDecision // collapse-started, trigger-refused
	Record   *CollapseRecord    // collapse-started
	Mutation *mutate.Result     // mutation-computed, text-mutated
}

// Observer receives engine events in the order they were produced, one event at a time.
// Implementations may call back into the engine; events raised that way are delivered
// after the current one.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// #endregion events
