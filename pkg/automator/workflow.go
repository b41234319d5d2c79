package automator

import (
	"strings"

	"github.com/LiboWorks/task-automator/internal/workflow"
)

// StepKind selects the built-in template of a step.
type StepKind string

const (
	// KindLoadData reads params["file"] as CSV, or JSON when
	// params["format"] is "json".
	KindLoadData StepKind = "load-data"

	// KindFilter keeps the rows of a previous step matching
	// params["condition"].
	KindFilter StepKind = "filter"

	// KindExport writes the rows of a previous step to params["output"].
	KindExport StepKind = "export"

	// KindCustomCode runs the step's own Python code.
	KindCustomCode StepKind = "custom-code"
)

// LoopType selects how a step's body repeats.
type LoopType string

const (
	// LoopNone runs the body once.
	LoopNone LoopType = ""

	// LoopFor iterates over the loop expression.
	LoopFor LoopType = "for"

	// LoopWhile repeats while the loop expression is true.
	LoopWhile LoopType = "while"
)

// Workflow is a named, ordered list of steps.
type Workflow struct {
	// Name is the unique identifier for this workflow.
	Name string

	// Steps contains the ordered list of workflow steps.
	Steps []*Step
}

// Step represents a single step in a workflow.
type Step struct {
	// ID is the unique identifier for this step within the workflow. The
	// step's result is stored in the script's context under this key.
	ID string

	// Title is the human readable task description.
	Title string

	// Kind selects the built-in template.
	Kind StepKind

	// Params are passed to the template and to custom functions.
	Params map[string]any

	// LoopType and LoopExpr wrap the step in a for or while loop.
	LoopType LoopType
	LoopExpr string

	// RetryCount is the maximum number of attempts; 0 disables retrying.
	RetryCount int

	// RetryDelay is the pause in seconds between attempts.
	RetryDelay int

	// ExceptionHandler is Python code run whenever the step raises.
	ExceptionHandler string

	// CustomCode is the body of a custom-code step.
	CustomCode string

	// CustomFunction names a function of the external module to call with
	// the step params. It takes precedence over Kind.
	CustomFunction string

	// Critical logs an error-level notice after the step.
	Critical bool

	// AlertRecipients receive an e-mail after the step when non-empty and an
	// SMTP transport is configured.
	AlertRecipients []string
}

// NewWorkflow creates a new workflow with the given name.
func NewWorkflow(name string) *Workflow {
	return &Workflow{
		Name:  name,
		Steps: make([]*Step, 0),
	}
}

// AddStep appends a step to the workflow.
func (w *Workflow) AddStep(step *Step) *Workflow {
	w.Steps = append(w.Steps, step)
	return w
}

// StepBuilder provides a fluent API for constructing steps.
type StepBuilder struct {
	step *Step
}

func newStep(id, title string, kind StepKind) *StepBuilder {
	return &StepBuilder{step: &Step{ID: id, Title: title, Kind: kind, Params: map[string]any{}}}
}

// LoadDataStep creates a step that reads a CSV or JSON file.
func LoadDataStep(id, title, file string) *StepBuilder {
	return newStep(id, title, KindLoadData).WithParam("file", file)
}

// FilterStep creates a step that keeps the rows matching condition, a Python
// expression over the dict `row`.
func FilterStep(id, title, condition string) *StepBuilder {
	return newStep(id, title, KindFilter).WithParam("condition", condition)
}

// ExportStep creates a step that writes rows to a CSV or JSON file.
func ExportStep(id, title, output string) *StepBuilder {
	return newStep(id, title, KindExport).WithParam("output", output)
}

// CustomCodeStep creates a step running the given Python code.
func CustomCodeStep(id, title, code string) *StepBuilder {
	b := newStep(id, title, KindCustomCode)
	b.step.CustomCode = code
	return b
}

// CustomFunctionStep creates a step calling a function of the external
// module with the step params as keyword arguments.
func CustomFunctionStep(id, title, function string) *StepBuilder {
	b := newStep(id, title, "")
	b.step.CustomFunction = function
	return b
}

// WithParam sets one parameter.
func (b *StepBuilder) WithParam(key string, value any) *StepBuilder {
	b.step.Params[key] = value
	return b
}

// WithSource sets the step whose rows a filter or export step reads.
func (b *StepBuilder) WithSource(stepID string) *StepBuilder {
	return b.WithParam("source", stepID)
}

// WithFormat sets the file format ("csv" or "json").
func (b *StepBuilder) WithFormat(format string) *StepBuilder {
	return b.WithParam("format", format)
}

// WithRetry retries the step up to count times, pausing delay seconds.
func (b *StepBuilder) WithRetry(count, delay int) *StepBuilder {
	b.step.RetryCount = count
	b.step.RetryDelay = delay
	return b
}

// ForEach repeats the step for every item of the iterable expression.
func (b *StepBuilder) ForEach(expr string) *StepBuilder {
	b.step.LoopType, b.step.LoopExpr = LoopFor, expr
	return b
}

// While repeats the step while the condition holds.
func (b *StepBuilder) While(condition string) *StepBuilder {
	b.step.LoopType, b.step.LoopExpr = LoopWhile, condition
	return b
}

// WithHandler sets the exception handler code.
func (b *StepBuilder) WithHandler(code string) *StepBuilder {
	b.step.ExceptionHandler = code
	return b
}

// Critical marks the step critical.
func (b *StepBuilder) Critical() *StepBuilder {
	b.step.Critical = true
	return b
}

// WithAlert e-mails the recipients after the step.
func (b *StepBuilder) WithAlert(recipients ...string) *StepBuilder {
	b.step.AlertRecipients = append(b.step.AlertRecipients, recipients...)
	return b
}

// Build returns the constructed Step.
func (b *StepBuilder) Build() *Step {
	return b.step
}

// Conversion helpers

func (w *Workflow) toInternal() workflow.Workflow {
	steps := make([]workflow.Step, len(w.Steps))
	for i, s := range w.Steps {
		step := workflow.Step{
			ID:               s.ID,
			Title:            s.Title,
			Kind:             workflow.StepKind(s.Kind),
			Params:           s.Params,
			Retry:            workflow.Retry{Count: s.RetryCount, Delay: s.RetryDelay},
			ExceptionHandler: s.ExceptionHandler,
			CustomCode:       s.CustomCode,
			CustomFunction:   s.CustomFunction,
			Critical:         s.Critical,
			Alert: workflow.Alert{
				Enabled:    len(s.AlertRecipients) > 0,
				Recipients: s.AlertRecipients,
			},
		}
		if s.LoopType != LoopNone {
			step.Loop = &workflow.Loop{Kind: workflow.LoopKind(s.LoopType), Expr: s.LoopExpr}
		}
		steps[i] = step.Clone()
	}
	return workflow.Workflow{
		Name:  w.Name,
		Steps: steps,
	}
}

func fromInternalWorkflow(wf workflow.Workflow) *Workflow {
	steps := make([]*Step, len(wf.Steps))
	for i, src := range wf.Steps {
		s := src.Clone()
		step := &Step{
			ID:               s.ID,
			Title:            s.Title,
			Kind:             StepKind(s.Kind),
			Params:           s.Params,
			RetryCount:       s.Retry.Count,
			RetryDelay:       s.Retry.Delay,
			ExceptionHandler: s.ExceptionHandler,
			CustomCode:       s.CustomCode,
			CustomFunction:   s.CustomFunction,
			Critical:         s.Critical,
		}
		if s.Loop != nil {
			step.LoopType, step.LoopExpr = LoopType(s.Loop.Kind), s.Loop.Expr
		}
		if s.Alert.Enabled {
			for _, r := range s.Alert.Recipients {
				if r = strings.TrimSpace(r); r != "" {
					step.AlertRecipients = append(step.AlertRecipients, r)
				}
			}
		}
		steps[i] = step
	}
	return &Workflow{
		Name:  wf.Name,
		Steps: steps,
	}
}
