package workflow

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of a workflow. All violations are
// reported together.
func (wf *Workflow) Validate() error {
	var errs []error
	if wf.Name == "" {
		errs = append(errs, fmt.Errorf("workflow name is required"))
	}

	seen := make(map[string]int, len(wf.Steps))
	for i, step := range wf.Steps {
		if step.ID == "" {
			errs = append(errs, fmt.Errorf("step %d is missing an id", i+1))
			continue
		}
		if first, dup := seen[step.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s (steps %d and %d)", ErrDuplicateStep, step.ID, first+1, i+1))
		} else {
			seen[step.ID] = i
		}

		if step.Retry.Count < 0 {
			errs = append(errs, fmt.Errorf("step %s: retry count must be >= 0, got %d", step.ID, step.Retry.Count))
		}
		if step.Retry.Delay < 0 {
			errs = append(errs, fmt.Errorf("step %s: retry delay must be >= 0, got %d", step.ID, step.Retry.Delay))
		}
		if step.Loop != nil {
			switch step.Loop.Kind {
			case LoopFor, LoopWhile:
			default:
				errs = append(errs, fmt.Errorf("step %s: unknown loop type %q", step.ID, step.Loop.Kind))
			}
		}
	}
	return errors.Join(errs...)
}
