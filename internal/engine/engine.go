package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/collapse-engine/internal/clock"
	"github.com/danielpatrickdp/collapse-engine/internal/cooldown"
	"github.com/danielpatrickdp/collapse-engine/internal/gate"
	"github.com/danielpatrickdp/collapse-engine/internal/history"
	"github.com/danielpatrickdp/collapse-engine/internal/mutate"
	"github.com/danielpatrickdp/collapse-engine/internal/profile"
	"github.com/danielpatrickdp/collapse-engine/internal/signals"
	"github.com/danielpatrickdp/collapse-engine/internal/stress"
)

// #region engine

// Engine owns one editing session. Every operation and every scheduled continuation
// runs under mu, so at most one collapse episode is in flight.
type Engine struct {
	mu       sync.Mutex
	config   Config
	clock    clock.Clock
	rng      mutate.Rand
	logger   *zap.Logger
	gate     *gate.Gate
	pipeline *mutate.Pipeline
	cooldown *cooldown.Timer
	history  *history.Buffer

	sessionID          string
	text               string
	language           signals.Language
	stress             float64
	stability          float64
	generation         int
	totalKeystrokes    int
	collapseCount      int
	sessionStartedAt   time.Time
	colliding          bool
	collapseOnCooldown bool
	currentMutation    *profile.Profile
	presentation       profile.Presentation
	records            []CollapseRecord
	episode            *episode

	epoch     uint64
	timers    []clock.Timer
	observers []subscription
	nextSub   int
	closed    bool

	// queue holds produced events until delivered. One goroutine delivers at a time,
	// so observers see events in the order they were produced.
	queue      []Event
	delivering bool
}

type subscription struct {
	id int
	o  Observer
}

// ticket tags a scheduled continuation. A continuation whose epoch no longer matches
// the engine's is stale and is dropped.
type ticket struct {
	epoch      uint64
	collapseID string
}

// New creates an engine. A nil clock uses the real clock, a nil rng a time-seeded
// source and a nil logger a no-op logger. Only an invalid config is an error.
func New(config Config, clk clock.Clock, rng mutate.Rand, logger *zap.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if clk == nil {
		clk = clock.Real()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		config:   config,
		clock:    clk,
		rng:      rng,
		logger:   logger,
		gate:     gate.NewGate(config.Gate),
		pipeline: mutate.NewPipeline(config.Mutate),
		cooldown: cooldown.New(config.Cooldown),
		history:  history.New(config.HistoryCapacity),
	}
	e.resetLocked()
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// #endregion engine

// #region operations

// Input records a text-buffer update as one keystroke, then re-evaluates stress.
// Reaching the ceiling outside a cooldown triggers an automatic collapse.
func (e *Engine) Input(text string) Snapshot {
	lang, detected := signals.Detect(text)
	return e.run(func(events *[]Event) {
		e.text = text
		e.totalKeystrokes++
		if detected {
			e.language = lang
		}
		e.evaluate(events)
	})
}

// Tick re-evaluates stress without a keystroke, so elapsed time alone can reach the ceiling.
func (e *Engine) Tick() Snapshot {
	return e.run(func(events *[]Event) {
		e.evaluate(events)
	})
}

// ForceCollapse requests a manual collapse. A refused request changes nothing except
// the collapseOnCooldown flag.
func (e *Engine) ForceCollapse() TriggerResult {
	res := TriggerResult{Decision: gate.GateDecision{
		Action: gate.ActionRefuse,
		Source: gate.SourceManual,
		Reason: "refused: engine closed",
		Vetoed: true,
	}}
	res.Snapshot = e.run(func(events *[]Event) {
		res.Decision, res.Record = e.trigger(gate.SourceManual, events)
	})
	return res
}

// Reset restores the initial session and cancels any in-flight collapse.
func (e *Engine) Reset() Snapshot {
	return e.run(func(events *[]Event) {
		prev := e.sessionID
		e.cancelPendingLocked()
		e.resetLocked()
		e.logger.Info("session reset",
			zap.String("session_id", e.sessionID),
			zap.String("previous_session_id", prev),
		)
		ev := e.event(EventReset, "")
		ev.PreviousSessionID = prev
		*events = append(*events, ev)
	})
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Collapses returns a copy of the collapse records, oldest first.
func (e *Engine) Collapses() []CollapseRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]CollapseRecord, len(e.records))
	copy(out, e.records)
	return out
}

// Subscribe registers o for events. The returned function removes it.
func (e *Engine) Subscribe(o Observer) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	id := e.nextSub
	e.observers = append(e.observers, subscription{id: id, o: o})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.observers {
			if s.id == id {
				e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

// Close cancels pending continuations. Later operations return the last snapshot unchanged.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.cancelPendingLocked()
	e.closed = true
	return nil
}

// #endregion operations

// #region evaluate

// evaluate runs the stress model and appends the stability sample. Caller holds e.mu.
func (e *Engine) evaluate(events *[]Event) {
	now := e.clock.Now()
	active := e.cooldown.Active(now)
	res := stress.Evaluate(stress.Input{
		Text:           e.text,
		Keystrokes:     e.totalKeystrokes,
		Elapsed:        now.Sub(e.sessionStartedAt),
		CooldownActive: active,
	}, e.config.Stress)

	if active {
		e.collapseOnCooldown = true
	} else if e.collapseOnCooldown {
		e.collapseOnCooldown = false
	}
	e.stress = res.Stress
	e.stability = res.Stability
	e.history.Push(res.Stability)

	ev := e.event(EventEvaluated, "")
	ev.Stress = &res
	*events = append(*events, ev)

	if res.Stress >= e.gate.Config().Ceiling {
		e.trigger(gate.SourceAuto, events)
	}
}

// #endregion evaluate

// #region plumbing

// run executes fn under the lock, then delivers the produced events in order.
// Events produced while another call is delivering are delivered by that call.
func (e *Engine) run(fn func(events *[]Event)) Snapshot {
	e.mu.Lock()
	if e.closed {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	var events []Event
	fn(&events)
	e.queue = append(e.queue, events...)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.deliver()
	return snap
}

// schedule arms a continuation that runs fn under the lock unless t has gone stale.
// Caller holds e.mu.
func (e *Engine) schedule(d time.Duration, t ticket, fn func(events *[]Event)) {
	timer := e.clock.AfterFunc(d, func() {
		e.mu.Lock()
		if e.closed || t.epoch != e.epoch {
			e.mu.Unlock()
			e.logger.Debug("stale continuation dropped", zap.String("collapse_id", t.collapseID))
			return
		}
		var events []Event
		fn(&events)
		e.queue = append(e.queue, events...)
		e.mu.Unlock()

		e.deliver()
	})
	e.timers = append(e.timers, timer)
}

// cancelPendingLocked invalidates every outstanding ticket and stops its timer.
func (e *Engine) cancelPendingLocked() {
	e.epoch++
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = nil
}

// deliver drains the queue to the observers unless another goroutine already is.
func (e *Engine) deliver() {
	e.mu.Lock()
	if e.delivering {
		e.mu.Unlock()
		return
	}
	e.delivering = true
	for len(e.queue) > 0 {
		batch := e.queue
		e.queue = nil
		observers := e.observersLocked()
		e.mu.Unlock()

		notify(observers, batch)
		e.mu.Lock()
	}
	e.delivering = false
	e.mu.Unlock()
}

func (e *Engine) observersLocked() []Observer {
	out := make([]Observer, len(e.observers))
	for i, s := range e.observers {
		out[i] = s.o
	}
	return out
}

func notify(observers []Observer, events []Event) {
	for _, ev := range events {
		for _, o := range observers {
			o.OnEvent(ev)
		}
	}
}

// event builds an event carrying the current snapshot. Caller holds e.mu.
func (e *Engine) event(kind EventKind, collapseID string) Event {
	snap := e.snapshotLocked()
	return Event{
		Kind:       kind,
		At:         e.clock.Now(),
		SessionID:  e.sessionID,
		CollapseID: collapseID,
		Snapshot:   snap,
	}
}

// resetLocked restores the initial session under a fresh session id.
func (e *Engine) resetLocked() {
	e.sessionID = uuid.NewString()
	e.text = ""
	e.language = signals.LanguagePython
	e.stress = stress.Floor
	e.stability = stress.Ceiling - stress.Floor
	e.generation = 0
	e.totalKeystrokes = 0
	e.collapseCount = 0
	e.sessionStartedAt = e.clock.Now()
	e.colliding = false
	e.collapseOnCooldown = false
	e.currentMutation = nil
	e.presentation = profile.DefaultPresentation()
	e.records = nil
	e.episode = nil
	e.cooldown.Clear()
	e.history.Reset(e.stability)
}

func (e *Engine) snapshotLocked() Snapshot {
	now := e.clock.Now()
	intensity := 0
	if e.colliding {
		intensity = 100
	}
	var current *profile.Profile
	if e.currentMutation != nil {
		p := *e.currentMutation
		current = &p
	}
	return Snapshot{
		SessionID:           e.sessionID,
		Text:                e.text,
		Language:            e.language,
		Stress:              e.stress,
		Stability:           e.stability,
		Generation:          e.generation,
		CollapseCount:       e.collapseCount,
		TotalKeystrokes:     e.totalKeystrokes,
		StabilityHistory:    e.history.Values(),
		IsCrashing:          e.colliding,
		CrashIntensity:      intensity,
		CurrentMutation:     current,
		CurrentVisualEffect: e.presentation.VisualEffect,
		BackgroundColor:     e.presentation.BackgroundColor,
		TextColor:           e.presentation.TextColor,
		FontSize:            e.presentation.FontSize,
		IndentSize:          e.presentation.IndentSize,
		EditorMode:          e.presentation.EditorMode,
		CollapseOnCooldown:  e.collapseOnCooldown,
		CooldownRemainingMs: e.cooldown.Remaining(now).Milliseconds(),
		SessionStartedAt:    e.sessionStartedAt,
		Warnings:            stress.Warnings(e.stability),
		StabilityColor:      stress.StabilityColor(e.stability),
	}
}

// #endregion plumbing
