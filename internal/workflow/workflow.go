package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrStepNotFound is returned when an edit references an unknown step id.
	ErrStepNotFound = errors.New("step not found")

	// ErrDuplicateStep is returned when a step id is used more than once.
	ErrDuplicateStep = errors.New("duplicate step id")
)

type Workflow struct {
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

type StepKind string

const (
	KindLoadData   StepKind = "load-data"
	KindFilter     StepKind = "filter"
	KindExport     StepKind = "export"
	KindCustomCode StepKind = "custom-code"
)

// Known reports whether the kind has a built-in template.
func (k StepKind) Known() bool {
	switch k {
	case KindLoadData, KindFilter, KindExport, KindCustomCode:
		return true
	}
	return false
}

type LoopKind string

const (
	LoopFor   LoopKind = "for"
	LoopWhile LoopKind = "while"
)

// Loop wraps a step body. Expr is an iterable for LoopFor and a condition for
// LoopWhile; it is emitted verbatim.
type Loop struct {
	Kind LoopKind `yaml:"type" json:"type"`
	Expr string   `yaml:"expr,omitempty" json:"expr"`
}

// Retry bounds the number of attempts. Count 0 means the body runs once
// without a retry wrapper.
type Retry struct {
	Count int `yaml:"count" json:"count"`
	Delay int `yaml:"delay" json:"delay"` // seconds
}

type Alert struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	Recipients []string `yaml:"recipients,omitempty" json:"recipients"`
}

// Step describes one automation action plus its control-flow and alerting
// policy.
type Step struct {
	ID     string         `yaml:"id" json:"id"`
	Title  string         `yaml:"title" json:"title"`
	Kind   StepKind       `yaml:"kind,omitempty" json:"kind"`
	Params map[string]any `yaml:"params,omitempty" json:"params"`
	Loop   *Loop          `yaml:"loop,omitempty" json:"loop"`
	Retry  Retry          `yaml:"retry" json:"retry"`
	// ExceptionHandler is Python source run inside the except block.
	ExceptionHandler string `yaml:"exception_handler,omitempty" json:"exception_handler"`
	// CustomCode is Python source used as the body of a custom-code step.
	CustomCode string `yaml:"custom_code,omitempty" json:"custom_code,omitempty"`
	// CustomFunction names a function of the external module. When set it
	// takes precedence over the kind template.
	CustomFunction string `yaml:"custom_function,omitempty" json:"custom_function"`
	Critical       bool   `yaml:"critical,omitempty" json:"critical"`
	Alert          Alert  `yaml:"alert" json:"alert"`
}

// DisplayName returns the human readable step name, falling back to the id.
func (s Step) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}

// Warning is a non-fatal notice about one step. StepID is empty for
// workflow-level notices.
type Warning struct {
	StepID  string `json:"step_id,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.StepID == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.StepID, w.Message)
}

// Clone returns a deep copy so edits never alias the original value.
func (wf Workflow) Clone() Workflow {
	out := Workflow{Name: wf.Name}
	if wf.Steps != nil {
		out.Steps = make([]Step, len(wf.Steps))
		for i, s := range wf.Steps {
			out.Steps[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	if s.Params != nil {
		out.Params = cloneValue(s.Params).(map[string]any)
	}
	if s.Loop != nil {
		loop := *s.Loop
		out.Loop = &loop
	}
	if s.Alert.Recipients != nil {
		out.Alert.Recipients = append([]string(nil), s.Alert.Recipients...)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, val := range t {
			l[i] = cloneValue(val)
		}
		return l
	default:
		return v
	}
}
