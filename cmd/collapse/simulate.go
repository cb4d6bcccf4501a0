package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/journal"
	"github.com/danielpatrickdp/collapse-engine/internal/replay"
)

type simulateFlags struct {
	format  string
	export  string
	journal string
	seed    int64
}

func newSimulateCmd(a *app) *cobra.Command {
	f := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate TRACE",
		Short: "Replay a trace file on a virtual clock",
		Long: `simulate drives a fresh engine through the steps of a YAML or JSON trace.
Timers run on a virtual clock, so a trace spanning minutes finishes instantly.
When the trace pins expectations, a mismatch fails the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trace, err := replay.LoadTrace(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				trace.Seed = f.seed
			}
			return simulate(cmd.OutOrStdout(), a, trace, f)
		},
	}
	cmd.Flags().StringVar(&f.format, "format", "text", "output format: text, json or yaml")
	cmd.Flags().StringVar(&f.export, "export", "", "directory to save the final text in, as raptor-gen<N>.py")
	cmd.Flags().StringVar(&f.journal, "journal", "", "journal DSN to record the run into")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "override the trace seed")
	return cmd
}

// #region simulate
func simulate(out io.Writer, a *app, trace *replay.Trace, f *simulateFlags) error {
	opts := replay.Options{Logger: a.quietLogger()}
	if f.journal != "" {
		store, err := journal.NewStore(f.journal)
		if err != nil {
			return fmt.Errorf("simulate: %w", err)
		}
		defer store.Close()
		opts.Observers = append(opts.Observers, journal.NewRecorder(store, a.quietLogger()))
	}

	report, err := replay.Run(trace, opts)
	if err != nil {
		return err
	}

	switch f.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	case "text":
		writeTextReport(out, report)
	default:
		return fmt.Errorf("simulate: unknown format %q", f.format)
	}

	if f.export != "" {
		if err := exportText(f.export, report.Summary.FinalSnapshot); err != nil {
			return err
		}
	}

	if failures := replay.Check(trace.Expected, report.Summary); len(failures) > 0 {
		for _, msg := range failures {
			fmt.Fprintln(out, "FAIL", msg)
		}
		return fmt.Errorf("simulate: %d expectation(s) failed", len(failures))
	}
	return nil
}

func writeTextReport(out io.Writer, report *replay.Report) {
	dim := lipgloss.NewStyle().Faint(true)
	if report.Description != "" {
		fmt.Fprintln(out, dim.Render(report.Description))
	}
	for _, r := range report.Results {
		line := fmt.Sprintf("%8s  %-8s  %s", r.At, r.Kind, renderStatus(r.Snapshot))
		if r.Decision != nil {
			line += "  " + dim.Render(r.Decision.Reason)
		}
		fmt.Fprintln(out, line)
	}
	s := report.Summary
	fmt.Fprintf(out, "\nsteps=%d collapses=%d refused=%d generations=%d resets=%d max_stress=%.1f duration=%s\n",
		s.Steps, s.Collapses, s.Refused, s.Generations, s.Resets, s.MaxStress, s.Duration)
	fmt.Fprintln(out, renderStatus(s.FinalSnapshot))
}

// exportText writes the snapshot text to dir under the snapshot's export name.
func exportText(dir string, s engine.Snapshot) error {
	path := filepath.Join(dir, s.ExportName())
	if err := os.WriteFile(path, []byte(s.Text), 0o644); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

// #endregion simulate
