package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTasks turns plain-English task lines into a workflow with one step per
// non-blank line. Steps start with defaults: no loop, no retry, no alert.
// now only feeds the default workflow name.
func ParseTasks(text string, now time.Time) Workflow {
	wf := Workflow{
		Name:  "workflow_" + strconv.FormatInt(now.Unix(), 10),
		Steps: []Step{},
	}
	i := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		i++
		wf.Steps = append(wf.Steps, Step{
			ID:     fmt.Sprintf("step_%d", i),
			Title:  line,
			Params: map[string]any{},
		})
	}
	return wf
}

// ParseParams decodes a JSON object of step parameters. Blank input yields an
// empty set. Numbers keep their literal text.
func ParseParams(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("invalid params JSON: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// Step returns the step with the given id.
func (wf Workflow) Step(id string) (Step, bool) {
	for _, s := range wf.Steps {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return Step{}, false
}

// Rename returns a copy of the workflow with a new name.
func (wf Workflow) Rename(name string) Workflow {
	out := wf.Clone()
	out.Name = name
	return out
}

// AddStep returns a copy of the workflow with step appended. An empty id is
// replaced with the next free step_<n> id.
func (wf Workflow) AddStep(step Step) (Workflow, error) {
	out := wf.Clone()
	if step.ID == "" {
		step.ID = out.nextStepID()
	}
	if _, exists := out.Step(step.ID); exists {
		return wf, fmt.Errorf("%w: %s", ErrDuplicateStep, step.ID)
	}
	out.Steps = append(out.Steps, step.Clone())
	return out, nil
}

// RemoveStep returns a copy of the workflow without the given step.
func (wf Workflow) RemoveStep(id string) (Workflow, error) {
	out := wf.Clone()
	for i, s := range out.Steps {
		if s.ID == id {
			out.Steps = append(out.Steps[:i], out.Steps[i+1:]...)
			return out, nil
		}
	}
	return wf, fmt.Errorf("%w: %s", ErrStepNotFound, id)
}

func (wf Workflow) nextStepID() string {
	for n := len(wf.Steps) + 1; ; n++ {
		id := fmt.Sprintf("step_%d", n)
		if _, exists := wf.Step(id); !exists {
			return id
		}
	}
}

// StepEdit carries the fields an editing surface changed. Nil fields are left
// untouched.
type StepEdit struct {
	Title *string
	Kind  *StepKind
	// ParamsJSON replaces the parameters. Malformed JSON resets them to an
	// empty set and produces a warning.
	ParamsJSON *string
	// LoopKind "none" or "" removes the loop.
	LoopKind         *string
	LoopExpr         *string
	RetryCount       *int
	RetryDelay       *int
	ExceptionHandler *string
	CustomCode       *string
	CustomFunction   *string
	Critical         *bool
	AlertEnabled     *bool
	// Recipients is a comma separated list.
	Recipients *string
}

// UpdateStep applies edit to the step with the given id and returns the new
// workflow. Problems with individual fields are reported as warnings; only an
// unknown step id is an error.
func (wf Workflow) UpdateStep(id string, edit StepEdit) (Workflow, []Warning, error) {
	out := wf.Clone()
	idx := -1
	for i, s := range out.Steps {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return wf, nil, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}

	var warnings []Warning
	step := &out.Steps[idx]

	if edit.Title != nil {
		step.Title = *edit.Title
	}
	if edit.Kind != nil {
		step.Kind = *edit.Kind
	}
	if edit.ParamsJSON != nil {
		params, err := ParseParams(*edit.ParamsJSON)
		if err != nil {
			warnings = append(warnings, Warning{StepID: id, Message: err.Error() + "; using empty params"})
			params = map[string]any{}
		}
		step.Params = params
	}
	if edit.LoopKind != nil {
		switch kind := strings.TrimSpace(*edit.LoopKind); kind {
		case "", "none":
			step.Loop = nil
		case string(LoopFor), string(LoopWhile):
			expr := ""
			if step.Loop != nil {
				expr = step.Loop.Expr
			}
			step.Loop = &Loop{Kind: LoopKind(kind), Expr: expr}
		default:
			warnings = append(warnings, Warning{StepID: id, Message: fmt.Sprintf("unknown loop type %q ignored", kind)})
		}
	}
	if edit.LoopExpr != nil {
		if step.Loop != nil {
			step.Loop.Expr = *edit.LoopExpr
		} else if strings.TrimSpace(*edit.LoopExpr) != "" {
			warnings = append(warnings, Warning{StepID: id, Message: "loop expression ignored: step has no loop"})
		}
	}
	if edit.RetryCount != nil {
		step.Retry.Count = clampNonNegative(*edit.RetryCount, id, "retry count", &warnings)
	}
	if edit.RetryDelay != nil {
		step.Retry.Delay = clampNonNegative(*edit.RetryDelay, id, "retry delay", &warnings)
	}
	if edit.ExceptionHandler != nil {
		step.ExceptionHandler = *edit.ExceptionHandler
	}
	if edit.CustomCode != nil {
		step.CustomCode = *edit.CustomCode
	}
	if edit.CustomFunction != nil {
		step.CustomFunction = strings.TrimSpace(*edit.CustomFunction)
	}
	if edit.Critical != nil {
		step.Critical = *edit.Critical
	}
	if edit.AlertEnabled != nil {
		step.Alert.Enabled = *edit.AlertEnabled
	}
	if edit.Recipients != nil {
		step.Alert.Recipients = SplitRecipients(*edit.Recipients)
	}

	return out, warnings, nil
}

func clampNonNegative(v int, id, field string, warnings *[]Warning) int {
	if v < 0 {
		*warnings = append(*warnings, Warning{StepID: id, Message: fmt.Sprintf("%s %d is negative; using 0", field, v)})
		return 0
	}
	return v
}

// SplitRecipients splits a comma separated recipient list, dropping blanks.
func SplitRecipients(text string) []string {
	var out []string
	for _, r := range strings.Split(text, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// History keeps JSON snapshots of successive workflow versions.
type History struct {
	versions [][]byte
}

// Record appends a snapshot of wf.
func (h *History) Record(wf Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("snapshot workflow: %w", err)
	}
	h.versions = append(h.versions, data)
	return nil
}

// Len returns the number of recorded versions.
func (h *History) Len() int {
	return len(h.versions)
}

// Versions lists the workflow name of every recorded version, oldest first.
func (h *History) Versions() []string {
	names := make([]string, len(h.versions))
	for i, data := range h.versions {
		var head struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &head); err == nil {
			names[i] = head.Name
		}
	}
	return names
}

// Restore decodes version i (0-based).
func (h *History) Restore(i int) (Workflow, error) {
	if i < 0 || i >= len(h.versions) {
		return Workflow{}, fmt.Errorf("history has no version %d", i+1)
	}
	var wf Workflow
	if err := json.Unmarshal(h.versions[i], &wf); err != nil {
		return Workflow{}, fmt.Errorf("decode version %d: %w", i+1, err)
	}
	return wf, nil
}
