package replay

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/collapse-engine/internal/clock"
	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/gate"
)

// #region types

// Options tune a replay run.
type Options struct {
	Observers []engine.Observer // subscribed before the first step
	Logger    *zap.Logger
}

// StepResult is the engine state right after one step.
type StepResult struct {
	Index    int                `json:"index" yaml:"index"`
	At       time.Duration      `json:"at" yaml:"at"`
	Kind     string             `json:"kind" yaml:"kind"`
	Decision *gate.GateDecision `json:"decision,omitempty" yaml:"decision,omitempty"` // collapse steps only
	Snapshot engine.Snapshot    `json:"snapshot" yaml:"snapshot"`
}

// Summary aggregates a run. Counts come from engine events, so automatic collapses
// and refusals are included.
type Summary struct {
	Steps         int                     `json:"steps" yaml:"steps"`
	Collapses     int                     `json:"collapses" yaml:"collapses"`
	Refused       int                     `json:"refused" yaml:"refused"`
	Generations   int                     `json:"generations" yaml:"generations"`
	Resets        int                     `json:"resets" yaml:"resets"`
	MaxStress     float64                 `json:"maxStress" yaml:"max_stress"`
	Duration      time.Duration           `json:"duration" yaml:"duration"`
	Records       []engine.CollapseRecord `json:"records" yaml:"records"`
	FinalSnapshot engine.Snapshot         `json:"finalSnapshot" yaml:"final_snapshot"`
}

// Report is a full run: per-step results plus the summary.
type Report struct {
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Results     []StepResult `json:"results" yaml:"results"`
	Summary     Summary      `json:"summary" yaml:"summary"`
}

// #endregion types

// #region replay

// counter tallies engine events during a run.
type counter struct {
	mu sync.Mutex
	s  Summary
}

func (c *counter) OnEvent(ev engine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Kind {
	case engine.EventCollapseStarted:
		c.s.Collapses++
	case engine.EventTriggerRefused:
		c.s.Refused++
	case engine.EventGenerationAdvanced:
		c.s.Generations++
	case engine.EventReset:
		c.s.Resets++
	case engine.EventEvaluated:
		if ev.Stress != nil && ev.Stress.Stress > c.s.MaxStress {
			c.s.MaxStress = ev.Stress.Stress
		}
	}
}

// Run drives trace through a fresh engine on a fake clock. The same trace and seed
// always produce the same report.
func Run(trace *Trace, opts Options) (*Report, error) {
	if err := trace.Validate(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	start := trace.Start
	if start.IsZero() {
		start = DefaultStart
	}
	clk := clock.NewFake(start)
	eng, err := engine.New(trace.Config.EngineConfig(), clk, rand.New(rand.NewSource(trace.Seed)), opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer eng.Close()

	tally := &counter{}
	eng.Subscribe(tally)
	for _, o := range opts.Observers {
		eng.Subscribe(o)
	}

	report := &Report{Description: trace.Description, Results: make([]StepResult, 0, len(trace.Steps))}
	var elapsed time.Duration
	for i, step := range trace.Steps {
		clk.Advance(step.At - elapsed)
		elapsed = step.At

		res := StepResult{Index: i, At: step.At, Kind: step.Kind()}
		switch res.Kind {
		case ActionInput:
			res.Snapshot = eng.Input(*step.Text)
		case ActionCollapse:
			tr := eng.ForceCollapse()
			res.Decision = &tr.Decision
			res.Snapshot = tr.Snapshot
		case ActionReset:
			res.Snapshot = eng.Reset()
		case ActionTick:
			res.Snapshot = eng.Tick()
		}
		report.Results = append(report.Results, res)
	}
	clk.Advance(trace.Tail)

	tally.mu.Lock()
	report.Summary = tally.s
	tally.mu.Unlock()
	report.Summary.Steps = len(trace.Steps)
	report.Summary.Duration = elapsed + trace.Tail
	report.Summary.Records = eng.Collapses()
	report.Summary.FinalSnapshot = eng.Snapshot()
	return report, nil
}

// Check compares the summary against the trace's expectations and returns one message
// per mismatch.
func Check(expected *Expected, s Summary) []string {
	if expected == nil {
		return nil
	}
	var out []string
	checkInt := func(name string, want *int, got int) {
		if want != nil && *want != got {
			out = append(out, fmt.Sprintf("%s: expected %d, got %d", name, *want, got))
		}
	}
	checkInt("collapses", expected.Collapses, s.Collapses)
	checkInt("refused", expected.Refused, s.Refused)
	checkInt("generation", expected.Generation, s.FinalSnapshot.Generation)
	checkInt("resets", expected.Resets, s.Resets)
	if expected.FinalText != nil && *expected.FinalText != s.FinalSnapshot.Text {
		out = append(out, fmt.Sprintf("final_text: expected %q, got %q", *expected.FinalText, s.FinalSnapshot.Text))
	}
	return out
}

// #endregion replay
