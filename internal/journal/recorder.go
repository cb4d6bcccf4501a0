package journal

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/gate"
	"github.com/danielpatrickdp/collapse-engine/internal/mutate"
)

// #region recorder
// Recorder is an engine observer that writes collapse records, mutation results and gate
// decisions to a Store. A reset deletes the discarded session's rows.
type Recorder struct {
	store  *Store
	logger *zap.Logger

	mu       sync.Mutex
	failures int
}

// NewRecorder creates a recorder writing to store. A nil logger means no logging.
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// OnEvent persists ev. Write failures are logged and counted, never returned to the engine.
func (r *Recorder) OnEvent(ev engine.Event) {
	var err error
	switch ev.Kind {
	case engine.EventCollapseStarted:
		if ev.Record != nil {
			err = r.store.AppendCollapse(ev.SessionID, *ev.Record)
		}
		if err == nil && ev.Decision != nil {
			err = r.store.LogDecision(decisionEntry(ev, *ev.Decision))
		}
	case engine.EventTriggerRefused:
		if ev.Decision != nil {
			err = r.store.LogDecision(decisionEntry(ev, *ev.Decision))
		}
	case engine.EventMutationComputed:
		err = r.logMutation(ev, PhaseComputed)
	case engine.EventTextMutated:
		err = r.logMutation(ev, PhaseApplied)
	case engine.EventReset:
		if ev.PreviousSessionID != "" {
			err = r.store.ClearSession(ev.PreviousSessionID)
		}
	default:
		return
	}

	if err != nil {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
		r.logger.Warn("journal write failed",
			zap.String("event", string(ev.Kind)),
			zap.String("session_id", ev.SessionID),
			zap.Error(err),
		)
	}
}

// Failures reports how many writes have failed.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

func (r *Recorder) logMutation(ev engine.Event, phase string) error {
	if ev.Mutation == nil {
		return nil
	}
	return r.store.LogMutation(mutationEntry(ev, phase, *ev.Mutation))
}

// #endregion recorder

// #region mapping
func decisionEntry(ev engine.Event, d gate.GateDecision) DecisionEntry {
	entry := DecisionEntry{
		SessionID:  ev.SessionID,
		CollapseID: ev.CollapseID,
		Source:     string(d.Source),
		Action:     d.Action,
		Reason:     d.Reason,
		Stress:     ev.Snapshot.Stress,
		CreatedAt:  ev.At,
	}
	if len(d.VetoSignals) > 0 {
		if raw, err := json.Marshal(d.VetoSignals); err == nil {
			entry.VetoesJSON = string(raw)
		}
	}
	return entry
}

func mutationEntry(ev engine.Event, phase string, res mutate.Result) MutationEntry {
	return MutationEntry{
		CollapseID: ev.CollapseID,
		SessionID:  ev.SessionID,
		Phase:      phase,
		Applied:    res.Applied,
		Inserted:   res.Diff.Inserted,
		Deleted:    res.Diff.Deleted,
		Patch:      res.Diff.Patch,
		CreatedAt:  ev.At,
	}
}

// #endregion mapping
