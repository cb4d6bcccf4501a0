package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/collapse-engine/internal/config"
	"github.com/danielpatrickdp/collapse-engine/internal/logging"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// #region app
// app is the state shared by every subcommand.
type app struct {
	configFile string
	envFile    string
	logLevel   string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

// quietLogger returns the app logger when --verbose is set and a no-op logger otherwise.
// Offline commands keep stderr clean by default.
func (a *app) quietLogger() *zap.Logger {
	if a.verbose {
		return a.logger
	}
	return zap.NewNop()
}

// #endregion app

// #region root
func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "collapse",
		Short: "Collapse engine: a code buffer that destabilises under pressure",
		Long: `collapse runs the collapse engine, a session that scores the code you type,
tears itself down when stress reaches 100, mutates the text and starts a new generation.

  collapse serve            run the HTTP/websocket API and the gRPC health service
  collapse simulate FILE    replay a YAML or JSON trace on a virtual clock
  collapse inspect          read a session journal
  collapse config           print the resolved configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{EnvFile: a.envFile, ConfigFile: a.configFile})
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			if a.verbose {
				cfg.LogLevel = "debug"
			}
			logger, err := logging.New(cfg.LogOptions())
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file, ignored when missing")
	flags.StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging, also for offline commands")

	root.AddCommand(
		newServeCmd(a),
		newSimulateCmd(a),
		newInspectCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// #endregion root

// #region main
func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree with args, writing to stdout and stderr.
func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// #endregion main
