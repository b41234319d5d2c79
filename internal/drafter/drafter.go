// Package drafter fills in step kinds and parameters from the plain-English
// task titles a workflow starts with.
package drafter

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/LiboWorks/task-automator/internal/workflow"
)

// Suggestion is a classifier's guess for one task title. An empty Kind means
// no guess.
type Suggestion struct {
	Kind   workflow.StepKind `json:"kind"`
	Params map[string]any    `json:"params,omitempty"`
}

// Classifier maps a task title to a step suggestion.
type Classifier interface {
	Classify(ctx context.Context, title string) (Suggestion, error)
}

// Draft classifies every step that has no kind and no custom code or
// function. Parameters already set on a step win over suggested ones. The
// input workflow is not modified.
func Draft(ctx context.Context, wf workflow.Workflow, c Classifier) (workflow.Workflow, []workflow.Warning) {
	out := wf.Clone()
	var warnings []workflow.Warning
	for i := range out.Steps {
		step := &out.Steps[i]
		if step.Kind != "" || step.CustomFunction != "" || strings.TrimSpace(step.CustomCode) != "" {
			continue
		}
		s, err := c.Classify(ctx, step.DisplayName())
		if err != nil {
			warnings = append(warnings, workflow.Warning{StepID: step.ID, Message: "classify: " + err.Error()})
			continue
		}
		if s.Kind == "" {
			warnings = append(warnings, workflow.Warning{StepID: step.ID, Message: "no step kind matches this task"})
			continue
		}
		step.Kind = s.Kind
		if step.Params == nil {
			step.Params = map[string]any{}
		}
		for k, v := range s.Params {
			if _, ok := step.Params[k]; !ok {
				step.Params[k] = v
			}
		}
	}
	return out, warnings
}

var keywords = map[string]workflow.StepKind{
	"load":     workflow.KindLoadData,
	"read":     workflow.KindLoadData,
	"import":   workflow.KindLoadData,
	"open":     workflow.KindLoadData,
	"fetch":    workflow.KindLoadData,
	"download": workflow.KindLoadData,
	"filter":   workflow.KindFilter,
	"where":    workflow.KindFilter,
	"select":   workflow.KindFilter,
	"keep":     workflow.KindFilter,
	"export":   workflow.KindExport,
	"save":     workflow.KindExport,
	"write":    workflow.KindExport,
	"upload":   workflow.KindExport,
	"store":    workflow.KindExport,
}

var (
	wordRe  = regexp.MustCompile(`[A-Za-z]+`)
	fileRe  = regexp.MustCompile(`(?i)[\w./\\-]+\.(csv|tsv|json)\b`)
	whereRe = regexp.MustCompile(`(?i)\bwhere\s+(\w+)\s*(==|=|!=|is not|is)\s*['"]?([\w.@-]+)['"]?`)
)

// KeywordClassifier picks the kind from the first action verb in the title.
type KeywordClassifier struct{}

// Classify implements Classifier.
func (KeywordClassifier) Classify(_ context.Context, title string) (Suggestion, error) {
	var s Suggestion
	for _, w := range wordRe.FindAllString(title, -1) {
		if k, ok := keywords[strings.ToLower(w)]; ok {
			s.Kind = k
			break
		}
	}
	if s.Kind == "" {
		return s, nil
	}

	params := map[string]any{}
	file := fileRe.FindString(title)
	switch s.Kind {
	case workflow.KindLoadData:
		if file != "" {
			params["file"] = file
		}
	case workflow.KindExport:
		if file != "" {
			params["output"] = file
		}
	}
	if file != "" && strings.EqualFold(fileRe.FindStringSubmatch(title)[1], "json") && s.Kind != workflow.KindFilter {
		params["format"] = "json"
	}
	if m := whereRe.FindStringSubmatch(title); m != nil && s.Kind == workflow.KindFilter {
		params["condition"] = condition(m[1], m[2], m[3])
	}
	if len(params) > 0 {
		s.Params = params
	}
	return s, nil
}

func condition(field, op, value string) string {
	switch strings.ToLower(op) {
	case "=", "is":
		op = "=="
	case "is not":
		op = "!="
	}
	return "row['" + field + "'] " + op + " '" + value + "'"
}

// kinds lists the kinds a classifier may suggest, sorted.
func kinds() []string {
	out := []string{string(workflow.KindLoadData), string(workflow.KindFilter), string(workflow.KindExport)}
	sort.Strings(out)
	return out
}
