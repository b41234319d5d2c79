package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LiboWorks/task-automator/internal/workflow"
)

var (
	editWorkflow string
	addStep      bool
	removeStep   bool
	rename       string

	edit struct {
		title, kind, params, loop, loopExpr string
		handler, code, function, recipients string
		retry, delay                        int
		critical, alert                     bool
	}
)

// editCmd changes one step of a saved workflow.
var editCmd = &cobra.Command{
	Use:   "edit <workflow-file> [step-id]",
	Short: "Change a step of a saved workflow",
	Long: `Edit changes the given step in place. Only the flags you pass are
applied. --add appends a new step (the id defaults to the next step_<n>),
--remove deletes it. For files holding several workflows, pick one with
--workflow.

Examples:
  automator edit workflow.yaml step_2 --kind filter --params '{"condition": "row[\"ok\"]"}'
  automator edit workflow.yaml step_1 --retry 3 --delay 5 --handler "print('retrying')"
  automator edit workflow.yaml step_3 --loop for --loop-expr "range(3)"
  automator edit workflow.yaml step_4 --critical --alert --recipients ops@example.com
  automator edit workflow.yaml --add --title "Export to out.csv" --kind export`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		stepID := ""
		if len(args) > 1 {
			stepID = args[1]
		}

		wfs, err := workflow.LoadWorkflows(path)
		if err != nil {
			return fmt.Errorf("failed to load workflows: %w", err)
		}
		idx, err := selectWorkflow(wfs, editWorkflow)
		if err != nil {
			return err
		}
		wf := wfs[idx]

		switch {
		case removeStep:
			if stepID == "" {
				return fmt.Errorf("step id required with --remove")
			}
			if wf, err = wf.RemoveStep(stepID); err != nil {
				return err
			}
			fmt.Printf("🗑️  Removed %s\n", stepID)
		case addStep:
			if wf, err = wf.AddStep(workflow.Step{ID: stepID, Params: map[string]any{}}); err != nil {
				return err
			}
			stepID = wf.Steps[len(wf.Steps)-1].ID
			fmt.Printf("➕ Added %s\n", stepID)
		}

		if stepID != "" && !removeStep {
			var warnings []workflow.Warning
			wf, warnings, err = wf.UpdateStep(stepID, stepEdit(cmd))
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Printf("⚠️  %s\n", w)
			}
		}
		if rename != "" {
			wf = wf.Rename(rename)
		}

		if err := wf.Validate(); err != nil {
			return fmt.Errorf("workflow no longer valid: %w", err)
		}
		wfs[idx] = wf
		if err := workflow.SaveAll(path, wfs); err != nil {
			return fmt.Errorf("failed to save workflow: %w", err)
		}
		fmt.Printf("✅ Workflow %s saved to %s\n", wf.Name, path)
		return nil
	},
}

func selectWorkflow(wfs []workflow.Workflow, name string) (int, error) {
	if len(wfs) == 0 {
		return 0, fmt.Errorf("no workflows in file")
	}
	if name == "" {
		if len(wfs) > 1 {
			return 0, fmt.Errorf("file holds %d workflows: pick one with --workflow", len(wfs))
		}
		return 0, nil
	}
	for i, wf := range wfs {
		if wf.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("workflow %q not found", name)
}

// stepEdit maps the flags the user actually passed.
func stepEdit(cmd *cobra.Command) workflow.StepEdit {
	var e workflow.StepEdit
	flags := cmd.Flags()
	if flags.Changed("title") {
		e.Title = &edit.title
	}
	if flags.Changed("kind") {
		kind := workflow.StepKind(edit.kind)
		e.Kind = &kind
	}
	if flags.Changed("params") {
		e.ParamsJSON = &edit.params
	}
	if flags.Changed("loop") {
		e.LoopKind = &edit.loop
	}
	if flags.Changed("loop-expr") {
		e.LoopExpr = &edit.loopExpr
	}
	if flags.Changed("retry") {
		e.RetryCount = &edit.retry
	}
	if flags.Changed("delay") {
		e.RetryDelay = &edit.delay
	}
	if flags.Changed("handler") {
		e.ExceptionHandler = &edit.handler
	}
	if flags.Changed("code") {
		e.CustomCode = &edit.code
	}
	if flags.Changed("function") {
		e.CustomFunction = &edit.function
	}
	if flags.Changed("critical") {
		e.Critical = &edit.critical
	}
	if flags.Changed("alert") {
		e.AlertEnabled = &edit.alert
	}
	if flags.Changed("recipients") {
		e.Recipients = &edit.recipients
	}
	return e
}

func init() {
	rootCmd.AddCommand(editCmd)
	f := editCmd.Flags()
	f.StringVarP(&editWorkflow, "workflow", "w", "", "Workflow to edit when the file holds several")
	f.BoolVar(&addStep, "add", false, "Append a new step")
	f.BoolVar(&removeStep, "remove", false, "Remove the step")
	f.StringVar(&rename, "rename", "", "Rename the workflow")

	f.StringVar(&edit.title, "title", "", "Step title")
	f.StringVar(&edit.kind, "kind", "", "Step kind: load-data, filter, export, custom-code")
	f.StringVar(&edit.params, "params", "", "Step parameters as a JSON object")
	f.StringVar(&edit.loop, "loop", "", "Loop type: none, for, while")
	f.StringVar(&edit.loopExpr, "loop-expr", "", "Iterable (for) or condition (while)")
	f.IntVar(&edit.retry, "retry", 0, "Retry count")
	f.IntVar(&edit.delay, "delay", 0, "Seconds between retries")
	f.StringVar(&edit.handler, "handler", "", "Python code run when the step raises")
	f.StringVar(&edit.code, "code", "", "Python code replacing the step body")
	f.StringVar(&edit.function, "function", "", "Function of the custom module to call")
	f.BoolVar(&edit.critical, "critical", false, "Mark the step critical")
	f.BoolVar(&edit.alert, "alert", false, "Send an e-mail alert after the step")
	f.StringVar(&edit.recipients, "recipients", "", "Comma separated alert recipients")
}
