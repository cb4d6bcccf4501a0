package stress

import (
	"time"

	"github.com/danielpatrickdp/collapse-engine/internal/signals"
)

// #region bounds
const (
	// Ceiling is the stress value at which an automatic collapse fires.
	Ceiling = 100.0
	// Floor is the lowest stress value and the value forced during cooldown.
	Floor = 0.0
)

// #endregion bounds

// #region input
// Input carries everything the stress model reads. The model has no hidden state.
type Input struct {
	Text           string
	Keystrokes     int
	Elapsed        time.Duration // time since the session (or generation) started
	CooldownActive bool
}

// #endregion input

// #region result
// Result is the output of one evaluation. Stability is always 100 - Stress.
type Result struct {
	Stress         float64
	Stability      float64
	CooldownActive bool
	Counts         signals.Counts // zero when the cooldown short-circuits scoring
}

// #endregion result

// #region config
// Config holds the per-factor weights of the stress formula.
type Config struct {
	WordWeight      float64 // dominant term: 50 words alone saturate the ceiling
	LineWeight      float64
	KeystrokeWeight float64
	SecondWeight    float64 // per elapsed second
	BracketWeight   float64
	SemicolonWeight float64
	KeywordWeight   float64
}

// DefaultConfig returns the standard weights.
func DefaultConfig() Config {
	return Config{
		WordWeight:      2,
		LineWeight:      0.3,
		KeystrokeWeight: 0.05,
		SecondWeight:    0.1,
		BracketWeight:   0.15,
		SemicolonWeight: 0.08,
		KeywordWeight:   0.25,
	}
}

// #endregion config
