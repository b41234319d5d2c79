package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LiboWorks/task-automator/internal/compiler"
	"github.com/LiboWorks/task-automator/internal/pycheck"
)

// checkCmd validates existing Python files with the configured validator.
var checkCmd = &cobra.Command{
	Use:   "check <script.py>...",
	Short: "Check Python scripts against the grammar",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := compiler.NewValidator(cfg, backends)
		if err != nil {
			return err
		}

		failed := 0
		for _, path := range args {
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			err = v.CheckProgram(string(src))
			if se, ok := pycheck.AsSyntaxError(err); ok {
				failed++
				fmt.Printf("❌ %s: %v\n", path, se)
				continue
			}
			if err != nil {
				return fmt.Errorf("could not check %s: %w", path, err)
			}
			log.Debug("script checked", zap.String("path", path))
			fmt.Printf("✅ %s\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scripts have syntax errors", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
