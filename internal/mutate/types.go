package mutate

// #region rand
// Rand is the random source every stage draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// #endregion rand

// #region stage
// StageFunc is one text-to-text transform. It must only draw randomness from r.
type StageFunc func(text string, r Rand, config Config) string

// Stage pairs a transform with its name for reporting.
type Stage struct {
	Name  string
	Apply StageFunc
}

// Stage names, in pipeline order.
const (
	StageFoldConditionals = "fold-conditionals"
	StageCorruptIdents    = "corrupt-identifiers"
	StageInjectComments   = "inject-comments"
	StageSubstituteLoops  = "substitute-loops"
	StageFlipQuotes       = "flip-quotes"
	StageJitterIndent     = "jitter-indentation"
	StageJitterOperators  = "jitter-operators"
	StageInsertBlankLines = "insert-blank-lines"
)

// #endregion stage

// #region config
// Config holds the probability of every stage decision. Per-occurrence chances apply to
// each candidate independently; session-wide chances decide once per Mutate call.
type Config struct {
	FoldChance            float64 // per if/else pair
	CorruptChance         float64 // per distinct identifier
	CapitalizeChance      float64 // per character, random-capitalization strategy
	FunctionCommentChance float64 // per def line
	ClassCommentChance    float64 // per class line
	LoopChance            float64 // per range loop
	QuoteFlipChance       float64 // session-wide
	IndentJitterChance    float64 // per indented line
	OperatorChance        float64 // session-wide
	BlankLineChance       float64 // session-wide
	BlankLinePerLine      float64 // per non-empty line once active
}

// DefaultConfig returns the standard mutation probabilities.
func DefaultConfig() Config {
	return Config{
		FoldChance:            0.5,
		CorruptChance:         0.4,
		CapitalizeChance:      0.4,
		FunctionCommentChance: 0.6,
		ClassCommentChance:    0.4,
		LoopChance:            0.3,
		QuoteFlipChance:       0.4,
		IndentJitterChance:    0.3,
		OperatorChance:        0.35,
		BlankLineChance:       0.2,
		BlankLinePerLine:      0.15,
	}
}

// #endregion config

// #region result
// Result is the outcome of a pipeline run.
type Result struct {
	Original string
	Text     string
	Applied  []string // stages that changed the text, in order
	Diff     Diff
}

// Changed reports whether any stage altered the text.
func (r Result) Changed() bool {
	return r.Text != r.Original
}

// Diff summarizes the change between Original and Text.
type Diff struct {
	Inserted int    // runes inserted
	Deleted  int    // runes deleted
	Patch    string // unidiff-style patch text
}

// #endregion result
