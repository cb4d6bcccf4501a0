package stress

import (
	"github.com/danielpatrickdp/collapse-engine/internal/signals"
)

// #region evaluate
// Evaluate computes stress and stability for in. During a cooldown scoring is skipped and the
// result is pinned to the floor.
func Evaluate(in Input, config Config) Result {
	if in.CooldownActive {
		return Result{
			Stress:         Floor,
			Stability:      Ceiling - Floor,
			CooldownActive: true,
		}
	}

	c := signals.Count(in.Text)
	elapsed := in.Elapsed.Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	keystrokes := in.Keystrokes
	if keystrokes < 0 {
		keystrokes = 0
	}

	s := config.WordWeight*float64(c.Words) +
		config.LineWeight*float64(c.Lines) +
		config.KeystrokeWeight*float64(keystrokes) +
		config.SecondWeight*elapsed +
		config.BracketWeight*float64(c.Brackets) +
		config.SemicolonWeight*float64(c.Semicolons) +
		config.KeywordWeight*float64(c.Keywords)
	s = clamp(s)

	return Result{
		Stress:    s,
		Stability: Ceiling - s,
		Counts:    c,
	}
}

// AtCeiling reports whether stress has reached the automatic collapse threshold.
func (r Result) AtCeiling() bool {
	return r.Stress >= Ceiling
}

// #endregion evaluate

// #region helpers
// clamp restricts v to [Floor, Ceiling].
func clamp(v float64) float64 {
	if v < Floor {
		return Floor
	}
	if v > Ceiling {
		return Ceiling
	}
	return v
}

// #endregion helpers
