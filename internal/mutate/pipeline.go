package mutate

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/danielpatrickdp/collapse-engine/internal/profile"
)

// #region stages
// DefaultStages returns the eight stages in their fixed order. Later stages see the
// output of earlier ones.
func DefaultStages() []Stage {
	return []Stage{
		{Name: StageFoldConditionals, Apply: FoldConditionals},
		{Name: StageCorruptIdents, Apply: CorruptIdentifiers},
		{Name: StageInjectComments, Apply: InjectComments},
		{Name: StageSubstituteLoops, Apply: SubstituteLoops},
		{Name: StageFlipQuotes, Apply: FlipQuotes},
		{Name: StageJitterIndent, Apply: JitterIndentation},
		{Name: StageJitterOperators, Apply: JitterOperators},
		{Name: StageInsertBlankLines, Apply: InsertBlankLines},
	}
}

// #endregion stages

// #region pipeline
// Pipeline runs an ordered list of stages over a text buffer.
type Pipeline struct {
	config Config
	stages []Stage
}

// NewPipeline creates a pipeline with the default stages.
func NewPipeline(config Config) *Pipeline {
	return &Pipeline{config: config, stages: DefaultStages()}
}

// NewPipelineWithStages creates a pipeline running only the given stages.
func NewPipelineWithStages(config Config, stages []Stage) *Pipeline {
	return &Pipeline{config: config, stages: stages}
}

// Config returns the pipeline's probabilities.
func (p *Pipeline) Config() Config {
	return p.config
}

// Mutate runs every stage over text. Without a profile there is no active mutation and
// the text is returned unchanged.
func (p *Pipeline) Mutate(text string, prof *profile.Profile, r Rand) Result {
	res := Result{Original: text, Text: text}
	if prof == nil {
		return res
	}

	current := text
	for _, s := range p.stages {
		next := s.Apply(current, r, p.config)
		if next != current {
			res.Applied = append(res.Applied, s.Name)
		}
		current = next
	}
	res.Text = current
	res.Diff = diffTexts(text, current)
	return res
}

// #endregion pipeline

// #region diff
func diffTexts(before, after string) Diff {
	if before == after {
		return Diff{}
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var d Diff
	for _, df := range diffs {
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			d.Inserted += utf8.RuneCountInString(df.Text)
		case diffmatchpatch.DiffDelete:
			d.Deleted += utf8.RuneCountInString(df.Text)
		}
	}
	d.Patch = dmp.PatchToText(dmp.PatchMake(before, diffs))
	return d
}

// #endregion diff
