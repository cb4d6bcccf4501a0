package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
)

// #region status
// renderStatus draws the one-line session status in the current profile's colours.
func renderStatus(s engine.Snapshot) string {
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.TextColor)).
		Background(lipgloss.Color(s.BackgroundColor)).
		Bold(true).
		Padding(0, 1)
	gauge := lipgloss.NewStyle().Foreground(lipgloss.Color(s.StabilityColor))

	name := "BASELINE"
	if s.CurrentMutation != nil {
		name = s.CurrentMutation.Name
	}
	state := "STABLE"
	if s.IsCrashing {
		state = "COLLAPSING"
	} else if s.CollapseOnCooldown {
		state = "COOLDOWN"
	}

	parts := []string{
		badge.Render(fmt.Sprintf("GEN %d", s.Generation)),
		gauge.Render(fmt.Sprintf("STABILITY %5.1f", s.Stability)),
		fmt.Sprintf("STRESS %5.1f", s.Stress),
		state,
		fmt.Sprintf("%s/%s", name, s.EditorMode),
	}
	if len(s.Warnings) > 0 {
		parts = append(parts, gauge.Render(strings.Join(s.Warnings, " | ")))
	}
	return strings.Join(parts, "  ")
}

// #endregion status
