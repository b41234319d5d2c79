package generator

import (
	"fmt"
	"strings"

	"github.com/LiboWorks/task-automator/internal/pyast"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

// weave wraps the core statements of a step with its control-flow policy.
// From the inside out: exception handling and retry around the core, then the
// announcement, critical and alert lines, then the loop around all of it.
func (a *assembler) weave(step workflow.Step, core []pyast.Stmt) []pyast.Stmt {
	body := []pyast.Stmt{logCall("info", "Executing: "+step.DisplayName())}
	body = append(body, a.guard(step, core)...)

	if step.Critical {
		body = append(body, logCall("error", fmt.Sprintf("Task %s marked critical - check results", step.ID)))
	}
	if step.Alert.Enabled {
		if a.alerts {
			recipients := make([]pyast.Expr, 0, len(step.Alert.Recipients))
			for _, r := range step.Alert.Recipients {
				if r = strings.TrimSpace(r); r != "" {
					recipients = append(recipients, pyast.S(r))
				}
			}
			if len(recipients) == 0 {
				a.warn(step, "alert enabled without recipients")
			}
			body = append(body, pyast.Do(pyast.CallOf(pyast.N("send_alert"),
				pyast.S("Alert: "+step.ID),
				pyast.S(fmt.Sprintf("Task %s reported issue", step.DisplayName())),
				&pyast.List{Elts: recipients},
			)))
		} else {
			a.warn(step, "alert requested but the alert transport is not configured")
		}
	}

	return a.loop(step, body)
}

// guard applies the retry and exception-handler policy to core.
//
// With retry.count k > 0 the core runs at most k times. A success breaks out
// of the attempt loop; a failure logs, runs the handler and sleeps before the
// next attempt. Running out of attempts is logged and never re-raised.
func (a *assembler) guard(step workflow.Step, core []pyast.Stmt) []pyast.Stmt {
	count, delay := step.Retry.Count, step.Retry.Delay
	if count < 0 {
		a.warn(step, "negative retry count %d treated as 0", count)
		count = 0
	}
	if delay < 0 {
		a.warn(step, "negative retry delay %d treated as 0", delay)
		delay = 0
	}
	handler := handlerBody(step.ExceptionHandler)

	if count == 0 {
		if handler == nil {
			return core
		}
		except := append([]pyast.Stmt{
			logCall("warning", fmt.Sprintf("Task %s failed: %%s", logf(step.ID)), pyast.N("e")),
		}, handler...)
		return []pyast.Stmt{&pyast.Try{
			Body:     core,
			Handlers: []pyast.ExceptHandler{{Type: pyast.N("Exception"), Name: "e", Body: except}},
		}}
	}

	attempt := pyast.N("attempt")
	except := []pyast.Stmt{
		logCall("warning", fmt.Sprintf("Task %s attempt %%d/%d failed: %%s", logf(step.ID), count),
			&pyast.BinOp{X: attempt, Op: "+", Y: pyast.I(1)}, pyast.N("e")),
	}
	except = append(except, handler...)
	except = append(except, &pyast.AugAssign{Target: attempt, Op: "+", Value: pyast.I(1)})
	if delay > 0 {
		except = append(except, &pyast.If{
			Cond: &pyast.Compare{X: attempt, Op: "<", Y: pyast.I(count)},
			Body: []pyast.Stmt{pyast.Do(pyast.CallOf(pyast.Dotted("time", "sleep"), pyast.I(delay)))},
		})
	}

	return []pyast.Stmt{
		&pyast.Assign{Target: attempt, Value: pyast.I(0)},
		&pyast.While{
			Cond: &pyast.Compare{X: attempt, Op: "<", Y: pyast.I(count)},
			Body: []pyast.Stmt{&pyast.Try{
				Body:     append(append([]pyast.Stmt{}, core...), &pyast.Break{}),
				Handlers: []pyast.ExceptHandler{{Type: pyast.N("Exception"), Name: "e", Body: except}},
			}},
			Else: []pyast.Stmt{
				logCall("error", fmt.Sprintf("Task %s failed after %d attempts", step.ID, count)),
			},
		},
	}
}

func handlerBody(src string) []pyast.Stmt {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	return []pyast.Stmt{&pyast.Raw{Src: src}}
}

// loop wraps body in the step's loop, logging each iteration. Missing
// expressions become an empty iterable or a false condition so the script
// still parses and the body is skipped.
func (a *assembler) loop(step workflow.Step, body []pyast.Stmt) []pyast.Stmt {
	if step.Loop == nil || step.Loop.Kind == "" {
		return body
	}
	iteration := logCall("info", fmt.Sprintf("Running %s iteration", step.ID))
	expr := strings.TrimSpace(step.Loop.Expr)
	if expr != "" {
		if err := a.validator.CheckExpression(expr); err != nil {
			a.warn(step, "loop expression does not parse: %v", err)
		}
	}

	switch step.Loop.Kind {
	case workflow.LoopFor:
		var iter pyast.Expr = &pyast.List{}
		if expr != "" {
			iter = pyast.Embed(expr)
		} else {
			a.warn(step, "for loop has no expression, body is skipped")
		}
		return []pyast.Stmt{&pyast.For{
			Target: "item",
			Iter:   iter,
			Body:   append([]pyast.Stmt{iteration}, body...),
		}}
	case workflow.LoopWhile:
		var cond pyast.Expr = &pyast.Bool{Value: false}
		if expr != "" {
			cond = pyast.Embed(expr)
		} else {
			a.warn(step, "while loop has no expression, body is skipped")
		}
		return []pyast.Stmt{&pyast.While{
			Cond: cond,
			Body: append([]pyast.Stmt{iteration}, body...),
		}}
	}

	a.warn(step, "unknown loop type %q ignored", step.Loop.Kind)
	return body
}
