package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LiboWorks/task-automator/internal/backend"
	"github.com/LiboWorks/task-automator/internal/config"
	"github.com/LiboWorks/task-automator/internal/logger"
)

var (
	cfgFile   string
	debug     bool
	logFormat string

	cfg      *config.Config
	log      = zap.NewNop()
	backends = backend.NewRegistry()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "automator",
	Short: "Turn task workflows into standalone Python scripts",
	Long: `automator turns an ordered list of automation steps into a standalone
Python script that only needs the Python standard library.

Features:
  - Draft steps from a plain-text task list
  - Load, filter and export CSV or JSON data, or call your own Python code
  - Per-step loops, retries, exception handlers, critical flags and e-mail alerts
  - Every script is checked against the Python grammar before it is written

Examples:
  automator parse -i tasks.txt -o workflow.yaml --draft
  automator edit workflow.yaml step_1 --retry 3 --delay 5
  automator compile -i workflow.yaml -o ./scripts
  automator check ./scripts/workflow.py`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if debug {
			loaded.Log.Debug = true
		}
		if logFormat != "" {
			loaded.Log.Format = logFormat
		}
		cfg = loaded

		l, err := logger.New(logger.FromConfig(cfg.Log))
		if err != nil {
			return err
		}
		log = l
		log.Debug("configuration loaded",
			zap.String("validator", cfg.Validator),
			zap.String("module", cfg.Module),
			zap.Bool("smtp", cfg.SMTP.Complete()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := backends.Close(); err != nil {
			log.Warn("failed to close backends", zap.Error(err))
		}
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./automator.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
