package profile

// #region catalog
var catalog = [...]Profile{
	{Name: "NEON_PULSE", BackgroundColor: "#0a0e14", TextColor: "#00f5ff", FontSize: 14, IndentSize: 2, VisualEffect: "chromatic-aberration"},
	{Name: "DARK_MATTER", BackgroundColor: "#000000", TextColor: "#a0a0a0", FontSize: 13, IndentSize: 4, VisualEffect: "blur-wave"},
	{Name: "BLOOD_MOON", BackgroundColor: "#1a0000", TextColor: "#ff6b6b", FontSize: 14, IndentSize: 3, VisualEffect: "red-tint"},
	{Name: "MATRIX_RAIN", BackgroundColor: "#0d1b0d", TextColor: "#00ff41", FontSize: 13, IndentSize: 2, VisualEffect: "scanlines"},
	{Name: "SYNTHWAVE", BackgroundColor: "#1a1a2e", TextColor: "#ff00ff", FontSize: 14, IndentSize: 4, VisualEffect: "glow"},
	{Name: "ARCTIC_FOG", BackgroundColor: "#0a1a1a", TextColor: "#a8dadc", FontSize: 15, IndentSize: 2, VisualEffect: "blur-subtle"},
	{Name: "VOID_WALKER", BackgroundColor: "#050505", TextColor: "#6a6a6a", FontSize: 13, IndentSize: 3, VisualEffect: "vignette"},
	{Name: "CYBER_GOLD", BackgroundColor: "#0f0f0f", TextColor: "#ffd700", FontSize: 14, IndentSize: 4, VisualEffect: "text-shadow"},
}

var modes = [...]EditorMode{ModeVSCode, ModeTerminal, ModeRetro, ModeNano, ModeNotepad}

// Catalog returns a copy of all profiles in catalog order.
func Catalog() []Profile {
	out := make([]Profile, len(catalog))
	copy(out, catalog[:])
	return out
}

// Modes returns all editor modes.
func Modes() []EditorMode {
	out := make([]EditorMode, len(modes))
	copy(out, modes[:])
	return out
}

// Lookup finds a profile by name.
func Lookup(name string) (Profile, bool) {
	for _, p := range catalog {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// #endregion catalog

// #region select
// Select picks a profile uniformly. It is a pure function of the draw.
func Select(src Source) Profile {
	return catalog[src.Intn(len(catalog))]
}

// SelectMode picks an editor mode uniformly, independent of Select.
func SelectMode(src Source) EditorMode {
	return modes[src.Intn(len(modes))]
}

// #endregion select

// #region presentation
// DefaultPresentation is the look of a fresh session.
func DefaultPresentation() Presentation {
	return Presentation{
		EditorMode:      ModeVSCode,
		BackgroundColor: "#0a0e14",
		TextColor:       "#c9d1d9",
		FontSize:        14,
		IndentSize:      4,
	}
}

// Apply returns the presentation for p shown in mode.
func (p Profile) Apply(mode EditorMode) Presentation {
	return Presentation{
		EditorMode:      mode,
		BackgroundColor: p.BackgroundColor,
		TextColor:       p.TextColor,
		FontSize:        p.FontSize,
		IndentSize:      p.IndentSize,
		VisualEffect:    p.VisualEffect,
	}
}

// #endregion presentation
