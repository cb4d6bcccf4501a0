package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/journal"
)

type inspectFlags struct {
	journal string
	session string
	limit   int
	format  string
}

func newInspectCmd(a *app) *cobra.Command {
	f := &inspectFlags{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List journaled sessions, or one session's collapses and decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := f.journal
			if dsn == "" {
				dsn = a.cfg.JournalDSN
			}
			if dsn == "" || dsn == journal.MemoryDSN {
				return fmt.Errorf("inspect: an in-memory journal cannot be inspected; pass --journal or set COLLAPSE_JOURNAL to a file")
			}
			store, err := journal.NewStore(dsn)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			defer store.Close()
			if f.session == "" {
				return inspectSessions(cmd.OutOrStdout(), store, f.format)
			}
			return inspectSession(cmd.OutOrStdout(), store, f)
		},
	}
	cmd.Flags().StringVar(&f.journal, "journal", "", "journal DSN (defaults to COLLAPSE_JOURNAL)")
	cmd.Flags().StringVar(&f.session, "session", "", "session id to show in detail")
	cmd.Flags().IntVar(&f.limit, "limit", 50, "maximum rows per table")
	cmd.Flags().StringVar(&f.format, "format", "text", "output format: text, json or yaml")
	return cmd
}

// #region inspect
func inspectSessions(out io.Writer, store *journal.Store, format string) error {
	sessions, err := store.Sessions()
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	if format != "text" {
		return encode(out, format, sessions)
	}
	t := newTable("SESSION", "COLLAPSES", "MAX GEN", "FIRST", "LAST")
	for _, s := range sessions {
		t.Row(s.SessionID, strconv.Itoa(s.Collapses), strconv.Itoa(s.MaxGeneration), stamp(s.FirstAt), stamp(s.LastAt))
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func inspectSession(out io.Writer, store *journal.Store, f *inspectFlags) error {
	collapses, err := store.ListCollapses(f.session, f.limit)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	decisions, err := store.ListDecisions(f.session, f.limit)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	if f.format != "text" {
		return encode(out, f.format, struct {
			SessionID string                  `json:"sessionId" yaml:"session_id"`
			Collapses []engine.CollapseRecord `json:"collapses" yaml:"collapses"`
			Decisions []journal.DecisionEntry `json:"decisions" yaml:"decisions"`
		}{f.session, collapses, decisions})
	}

	ct := newTable("COLLAPSE", "GEN", "SOURCE", "PROFILE", "MODE", "STRESS", "AT")
	for _, c := range collapses {
		ct.Row(c.ID, strconv.Itoa(c.Generation), string(c.Source), c.Profile, string(c.EditorMode),
			strconv.FormatFloat(c.Stress, 'f', 1, 64), stamp(c.Timestamp))
	}
	dt := newTable("SOURCE", "ACTION", "REASON", "AT")
	for _, d := range decisions {
		dt.Row(d.Source, d.Action, d.Reason, stamp(d.CreatedAt))
	}
	fmt.Fprintf(out, "session %s\n%s\n%s\n", f.session, ct.Render(), dt.Render())
	return nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers(headers...)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// #endregion inspect

// encode writes v as json or yaml.
func encode(out io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		enc.SetIndent(2)
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
