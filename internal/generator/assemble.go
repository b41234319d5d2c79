package generator

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/LiboWorks/task-automator/internal/pycheck"
	"github.com/LiboWorks/task-automator/internal/pyast"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

const logFormat = "%(asctime)s %(levelname)s %(message)s"

type assembler struct {
	wf        workflow.Workflow
	opts      *Options
	validator pycheck.Validator
	log       *zap.Logger

	// alerts is true when send_alert really sends mail.
	alerts bool

	names    []string
	warnings []workflow.Warning

	needCSV      bool
	needJSON     bool
	needResolver bool
}

func newAssembler(wf workflow.Workflow, opts *Options, validator pycheck.Validator, log *zap.Logger) *assembler {
	ids := make([]string, len(wf.Steps))
	for i, s := range wf.Steps {
		ids[i] = s.ID
	}
	return &assembler{
		wf:        wf,
		opts:      opts,
		validator: validator,
		log:       log,
		alerts:    opts.Alert.Complete(),
		names:     functionNames(ids),
	}
}

func (a *assembler) warn(step workflow.Step, msg string, args ...any) {
	a.warnings = append(a.warnings, workflow.Warning{StepID: step.ID, Message: fmt.Sprintf(msg, args...)})
}

// assemble builds the whole program: preamble, one function per step and the
// driver that calls them in order. Step functions are compiled first because
// they decide which imports and helpers the preamble needs.
func (a *assembler) assemble() *pyast.Module {
	var steps []pyast.Stmt
	for i, step := range a.wf.Steps {
		steps = append(steps, a.stepFunc(i, step))
	}

	body := a.preamble()
	body = append(body, steps...)
	body = append(body, a.driver()...)
	return &pyast.Module{Body: body}
}

func (a *assembler) stepFunc(i int, step workflow.Step) *pyast.FuncDef {
	a.log.Debug("compiling step", zap.String("step", step.ID), zap.String("kind", string(step.Kind)))
	body := []pyast.Stmt{paramsAssign(step.Params)}
	body = append(body, a.weave(step, a.compileStep(i, step))...)
	return &pyast.FuncDef{Name: a.names[i], Params: []string{"context"}, Body: body}
}

func (a *assembler) preamble() []pyast.Stmt {
	var out []pyast.Stmt
	if a.wf.Name != "" {
		out = append(out, &pyast.Comment{Text: "Workflow: " + a.wf.Name}, &pyast.Blank{})
	}

	out = append(out, &pyast.Import{Names: []string{"logging"}})
	if a.needCSV {
		out = append(out, &pyast.Import{Names: []string{"csv"}})
	}
	if a.needJSON {
		out = append(out, &pyast.Import{Names: []string{"json"}})
	}
	out = append(out, &pyast.Import{Names: []string{"time"}})
	if a.alerts {
		out = append(out,
			&pyast.Import{Names: []string{"smtplib"}},
			&pyast.FromImport{Module: "email.message", Names: []string{"EmailMessage"}})
	}
	if a.opts.ModulePath != "" {
		out = append(out, &pyast.Import{Names: []string{"importlib.util"}})
	}
	out = append(out, &pyast.Blank{})

	if a.opts.ModulePath != "" {
		spec := pyast.N("_custom_spec")
		out = append(out,
			&pyast.Assign{Target: spec, Value: pyast.CallOf(
				pyast.Dotted("importlib", "util", "spec_from_file_location"),
				pyast.S("custom"), pyast.S(a.opts.ModulePath))},
			&pyast.Assign{Target: pyast.N("custom"), Value: pyast.CallOf(
				pyast.Dotted("importlib", "util", "module_from_spec"), spec)},
			pyast.Do(pyast.CallOf(pyast.Dotted("_custom_spec", "loader", "exec_module"), pyast.N("custom"))),
		)
	} else if a.needResolver {
		out = append(out, &pyast.Assign{Target: pyast.N("custom"), Value: &pyast.None{}})
	}

	out = append(out, pyast.Do(&pyast.Call{
		Func: pyast.Dotted("logging", "basicConfig"),
		Keywords: []pyast.Keyword{
			{Name: "level", Value: pyast.Dotted("logging", "INFO")},
			{Name: "format", Value: pyast.S(logFormat)},
		},
	}))

	out = append(out, a.sendAlert())
	if a.needResolver {
		out = append(out, resolveFunction())
	}
	return out
}

// sendAlert defines the alert helper. Without a complete transport it is a
// no-op and no step calls it.
func (a *assembler) sendAlert() *pyast.FuncDef {
	fn := &pyast.FuncDef{Name: "send_alert", Params: []string{"subject", "body", "recipients"}}
	if !a.alerts {
		fn.Body = []pyast.Stmt{&pyast.Return{}}
		return fn
	}
	t := a.opts.Alert
	msg := pyast.N("msg")
	fn.Body = []pyast.Stmt{
		&pyast.Assign{Target: msg, Value: pyast.CallOf(pyast.N("EmailMessage"))},
		&pyast.Assign{Target: pyast.Index(msg, "Subject"), Value: pyast.N("subject")},
		&pyast.Assign{Target: pyast.Index(msg, "From"), Value: pyast.S(t.Username)},
		&pyast.Assign{Target: pyast.Index(msg, "To"), Value: pyast.CallOf(
			&pyast.Attr{X: pyast.S(", "), Name: "join"}, pyast.N("recipients"))},
		pyast.Do(pyast.CallOf(pyast.Dotted("msg", "set_content"), pyast.N("body"))),
		&pyast.Try{
			Body: []pyast.Stmt{&pyast.With{
				Item: pyast.CallOf(pyast.Dotted("smtplib", "SMTP_SSL"), pyast.S(t.Host), pyast.I(t.Port)),
				As:   "server",
				Body: []pyast.Stmt{
					pyast.Do(pyast.CallOf(pyast.Dotted("server", "login"), pyast.S(t.Username), pyast.S(t.Password))),
					pyast.Do(pyast.CallOf(pyast.Dotted("server", "send_message"), msg)),
				},
			}},
			Handlers: []pyast.ExceptHandler{{
				Type: pyast.N("Exception"),
				Name: "e",
				Body: []pyast.Stmt{logCall("error", "Failed to send alert: %s", pyast.N("e"))},
			}},
		},
	}
	return fn
}

// resolveFunction looks a name up in the custom module first, then in the
// script's own globals.
func resolveFunction() *pyast.FuncDef {
	name := pyast.N("name")
	custom := pyast.N("custom")
	return &pyast.FuncDef{
		Name:   "resolve_function",
		Params: []string{"name"},
		Body: []pyast.Stmt{
			&pyast.If{
				Cond: &pyast.BinOp{
					X:  &pyast.Compare{X: custom, Op: "is not", Y: &pyast.None{}},
					Op: "and",
					Y:  pyast.CallOf(pyast.N("hasattr"), custom, name),
				},
				Body: []pyast.Stmt{&pyast.Return{Value: pyast.CallOf(pyast.N("getattr"), custom, name)}},
			},
			&pyast.Return{Value: &pyast.Subscript{X: pyast.CallOf(pyast.N("globals")), Index: name}},
		},
	}
}

// driver runs every step function once, in order, against a shared context.
// A step that raises is logged and the next step still runs.
func (a *assembler) driver() []pyast.Stmt {
	context := pyast.N("context")
	body := []pyast.Stmt{
		logCall("info", "Starting workflow "+a.wf.Name),
		&pyast.Assign{Target: context, Value: &pyast.Dict{}},
	}
	for i, step := range a.wf.Steps {
		body = append(body, &pyast.Try{
			Body: []pyast.Stmt{pyast.Do(pyast.CallOf(pyast.N(a.names[i]), context))},
			Handlers: []pyast.ExceptHandler{{
				Type: pyast.N("Exception"),
				Body: []pyast.Stmt{logCall("exception", "Task "+step.ID+" failed")},
			}},
		})
	}
	body = append(body,
		logCall("info", "Workflow "+a.wf.Name+" finished"),
		&pyast.Return{Value: context},
	)

	return []pyast.Stmt{
		&pyast.FuncDef{Name: "run_workflow", Body: body},
		&pyast.If{
			Cond: &pyast.Compare{X: pyast.N("__name__"), Op: "==", Y: pyast.S("__main__")},
			Body: []pyast.Stmt{pyast.Do(pyast.CallOf(pyast.N("run_workflow")))},
		},
	}
}
