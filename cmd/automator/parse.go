package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LiboWorks/task-automator/internal/backend"
	"github.com/LiboWorks/task-automator/internal/drafter"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

const openAIBackend = "openai"

var (
	tasksFile    string
	workflowOut  string
	workflowName string
	draft        bool
	useLLM       bool
)

// parseCmd turns a plain-text task list into a workflow file.
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Create a workflow from a plain-text task list",
	Long: `Parse reads one task per line (from a file or stdin) and writes a
workflow with one step per non-blank line. With --draft each step's kind and
parameters are guessed from its text; --llm asks the configured OpenAI model
and falls back to keyword matching.

Examples:
  automator parse -i tasks.txt -o workflow.yaml
  echo "Load orders.csv" | automator parse -o workflow.json --draft`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if tasksFile == "" || tasksFile == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(tasksFile)
		}
		if err != nil {
			return fmt.Errorf("failed to read tasks: %w", err)
		}

		wf := workflow.ParseTasks(string(data), time.Now())
		if workflowName != "" {
			wf = wf.Rename(workflowName)
		}
		fmt.Printf("📋 Parsed %d tasks into workflow %s\n", len(wf.Steps), wf.Name)

		if draft || useLLM {
			classifier, err := newClassifier()
			if err != nil {
				return err
			}

			drafted, warnings := drafter.Draft(context.Background(), wf, classifier)
			for _, w := range warnings {
				fmt.Printf("⚠️  %s\n", w)
			}
			wf = drafted
		}

		if err := workflow.Save(workflowOut, wf); err != nil {
			return fmt.Errorf("failed to save workflow: %w", err)
		}
		fmt.Printf("✅ Workflow saved to %s\n", workflowOut)
		return nil
	},
}

// newClassifier returns the keyword classifier, or the OpenAI one when --llm
// is set. The OpenAI backend is registered so it is closed with the others.
func newClassifier() (drafter.Classifier, error) {
	if !useLLM {
		return drafter.KeywordClassifier{}, nil
	}
	llm, ok := backends.GetLLM(openAIBackend)
	if !ok {
		oc := backend.FromConfig(cfg.OpenAI)
		oc.JSONResponses = true
		b, err := backend.NewOpenAIBackend(oc)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI backend: %w", err)
		}
		backends.RegisterLLM(openAIBackend, b)
		backends.SetDefaultLLM(openAIBackend)
		llm = b
	}
	log.Debug("drafting with llm",
		zap.String("backend", llm.Name()),
		zap.String("model", cfg.OpenAI.Model),
		zap.Strings("registered", backends.ListLLMBackends()))
	return &drafter.LLMClassifier{Backend: llm, Logger: log}, nil
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVarP(&tasksFile, "input", "i", "", "Task list file (default stdin)")
	parseCmd.Flags().StringVarP(&workflowOut, "output", "o", "workflow.yaml", "Workflow file to write (.yaml or .json)")
	parseCmd.Flags().StringVarP(&workflowName, "name", "n", "", "Workflow name (default workflow_<unix time>)")
	parseCmd.Flags().BoolVar(&draft, "draft", false, "Guess step kinds and parameters from the task text")
	parseCmd.Flags().BoolVar(&useLLM, "llm", false, "Draft with the configured OpenAI model")
}
