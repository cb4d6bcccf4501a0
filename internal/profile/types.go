package profile

// #region profile
// Profile is a named bundle of presentation parameters applied on collapse.
// It carries no behavior; the stress model and mutation pipeline ignore it.
type Profile struct {
	Name            string `json:"name" yaml:"name"`
	BackgroundColor string `json:"backgroundColor" yaml:"background_color"`
	TextColor       string `json:"textColor" yaml:"text_color"`
	FontSize        int    `json:"fontSize" yaml:"font_size"`
	IndentSize      int    `json:"indentSize" yaml:"indent_size"`
	VisualEffect    string `json:"visualEffect" yaml:"visual_effect"`
}

// #endregion profile

// #region editor-mode
// EditorMode identifies an editor skin.
type EditorMode string

const (
	ModeVSCode   EditorMode = "vscode"
	ModeTerminal EditorMode = "terminal"
	ModeRetro    EditorMode = "retro"
	ModeNano     EditorMode = "nano"
	ModeNotepad  EditorMode = "notepad"
)

// #endregion editor-mode

// #region presentation
// Presentation is the set of visual fields a skin renders.
type Presentation struct {
	EditorMode      EditorMode
	BackgroundColor string
	TextColor       string
	FontSize        int
	IndentSize      int
	VisualEffect    string // empty when no profile is active
}

// #endregion presentation

// #region source
// Source is the random draw used for selection. *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// #endregion source
