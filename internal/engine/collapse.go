package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/collapse-engine/internal/gate"
	"github.com/danielpatrickdp/collapse-engine/internal/mutate"
	"github.com/danielpatrickdp/collapse-engine/internal/profile"
	"github.com/danielpatrickdp/collapse-engine/internal/signals"
	"github.com/danielpatrickdp/collapse-engine/internal/stress"
)

// #region trigger

// trigger asks the gate for a collapse and, if accepted, starts the episode:
// record, cooldown, presentation, then the scheduled mutation and settle steps.
// Caller holds e.mu.
func (e *Engine) trigger(source gate.Source, events *[]Event) (gate.GateDecision, *CollapseRecord) {
	now := e.clock.Now()
	decision := e.gate.Evaluate(gate.Input{
		Source:            source,
		Stress:            e.stress,
		Colliding:         e.colliding,
		CooldownActive:    e.cooldown.Active(now),
		CooldownRemaining: e.cooldown.Remaining(now),
	})

	if decision.Vetoed {
		if decision.Has(gate.VetoCooldown) {
			e.collapseOnCooldown = true
		}
		e.logger.Debug("trigger refused",
			zap.String("session_id", e.sessionID),
			zap.String("source", string(source)),
			zap.String("reason", decision.Reason),
		)
		ev := e.event(EventTriggerRefused, "")
		ev.Decision = &decision
		*events = append(*events, ev)
		return decision, nil
	}

	prof := profile.Select(e.rng)
	mode := profile.SelectMode(e.rng)
	rec := CollapseRecord{
		ID:         uuid.NewString(),
		Text:       e.text,
		Timestamp:  now,
		Generation: e.generation,
		Stress:     e.stress,
		Source:     source,
		Profile:    prof.Name,
		EditorMode: mode,
	}
	e.records = append(e.records, rec)
	e.collapseCount++
	e.cooldown.Arm(now)
	e.collapseOnCooldown = true
	e.colliding = true
	e.currentMutation = &prof
	e.presentation = prof.Apply(mode)
	e.episode = &episode{id: rec.ID, startedAt: now, auto: source == gate.SourceAuto}

	t := ticket{epoch: e.epoch, collapseID: rec.ID}
	if source == gate.SourceAuto {
		e.schedule(e.config.MutationDelay, t, func(events *[]Event) { e.computeMutation(t, events) })
	}
	e.schedule(e.config.CollapseDuration, t, func(events *[]Event) { e.settle(t, events) })

	e.logger.Info("collapse triggered",
		zap.String("session_id", e.sessionID),
		zap.String("collapse_id", rec.ID),
		zap.String("source", string(source)),
		zap.Float64("stress", rec.Stress),
		zap.Int("generation", rec.Generation),
		zap.String("profile", prof.Name),
		zap.String("editor_mode", string(mode)),
	)

	out := rec
	ev := e.event(EventCollapseStarted, rec.ID)
	ev.Decision = &decision
	ev.Record = &out
	*events = append(*events, ev)
	return decision, &out
}

// #endregion trigger

// #region continuations

// episode tracks the in-flight collapse between trigger and settle.
type episode struct {
	id        string
	startedAt time.Time
	auto      bool
	captured  bool
	pending   *mutate.Result
}

// activeEpisode returns the episode t belongs to, or nil once it has settled.
func (e *Engine) activeEpisode(t ticket) *episode {
	if e.episode == nil || e.episode.id != t.collapseID {
		return nil
	}
	return e.episode
}

// computeMutation captures the text and schedules the replacement relative to the
// trigger time, so a late capture does not push the replacement back.
func (e *Engine) computeMutation(t ticket, events *[]Event) {
	ep := e.activeEpisode(t)
	if ep == nil || ep.captured {
		return
	}
	e.capture(ep, events)

	due := ep.startedAt.Add(e.config.MutationDelay + e.config.ReplaceDelay)
	remaining := due.Sub(e.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	e.schedule(remaining, t, func(events *[]Event) { e.applyMutation(t, events) })
}

// capture runs the pipeline on the text as it is now and holds the result until applied.
func (e *Engine) capture(ep *episode, events *[]Event) {
	res := e.pipeline.Mutate(e.text, e.currentMutation, e.rng)
	ep.captured = true
	ep.pending = &res
	e.logger.Debug("mutation computed",
		zap.String("collapse_id", ep.id),
		zap.Strings("applied", res.Applied),
		zap.Int("inserted", res.Diff.Inserted),
		zap.Int("deleted", res.Diff.Deleted),
	)
	ev := e.event(EventMutationComputed, ep.id)
	ev.Mutation = &res
	*events = append(*events, ev)
}

func (e *Engine) applyMutation(t ticket, events *[]Event) {
	ep := e.activeEpisode(t)
	if ep == nil || ep.pending == nil {
		return
	}
	e.apply(ep, events)
}

// apply replaces the buffer with the pending result. Edits made since the capture are
// overwritten.
func (e *Engine) apply(ep *episode, events *[]Event) {
	res := *ep.pending
	ep.pending = nil
	e.text = res.Text
	e.language = signals.DetectLanguage(res.Text, e.language)
	ev := e.event(EventTextMutated, ep.id)
	ev.Mutation = &res
	*events = append(*events, ev)
}

// settle ends the episode and starts the next generation. A capture or replacement
// still outstanding runs first; its timer is stopped. The cooldown keeps running.
func (e *Engine) settle(t ticket, events *[]Event) {
	if ep := e.activeEpisode(t); ep != nil {
		if ep.auto && !ep.captured {
			e.capture(ep, events)
		}
		if ep.pending != nil {
			e.apply(ep, events)
		}
	}
	for _, timer := range e.timers {
		timer.Stop()
	}
	e.timers = nil
	e.episode = nil

	e.colliding = false
	e.stress = stress.Floor
	e.stability = stress.Ceiling - stress.Floor
	e.generation++
	e.totalKeystrokes = 0
	e.sessionStartedAt = e.clock.Now()
	e.history.Reset(e.stability)

	e.logger.Info("generation advanced",
		zap.String("session_id", e.sessionID),
		zap.String("collapse_id", t.collapseID),
		zap.Int("generation", e.generation),
	)
	*events = append(*events, e.event(EventGenerationAdvanced, t.collapseID))
}

// #endregion continuations
