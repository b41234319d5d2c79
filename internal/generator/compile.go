package generator

import (
	"fmt"
	"strings"

	"github.com/LiboWorks/task-automator/internal/pyast"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

// Shorthands used by the templates below.
var (
	ctx    = pyast.N("context")
	params = pyast.N("params")
)

func logCall(level, msg string, args ...pyast.Expr) pyast.Stmt {
	return pyast.Do(pyast.CallOf(pyast.Dotted("logging", level), append([]pyast.Expr{pyast.S(msg)}, args...)...))
}

// logf escapes an operator supplied value for use inside a %-style logging
// format.
func logf(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

func param(key string) pyast.Expr {
	return pyast.Index(params, key)
}

func paramOr(key string, def pyast.Expr) pyast.Expr {
	return pyast.CallOf(pyast.Dotted("params", "get"), pyast.S(key), def)
}

// stringParam returns a parameter as text. Non-string values are formatted.
func stringParam(p map[string]any, key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, s != ""
	}
	return fmt.Sprint(v), true
}

func openCall(mode string, newline bool, path pyast.Expr) *pyast.Call {
	c := pyast.CallOf(pyast.N("open"), path)
	if mode != "" {
		c.Args = append(c.Args, pyast.S(mode))
	}
	if newline {
		c.Keywords = append(c.Keywords, pyast.Keyword{Name: "newline", Value: pyast.S("")})
	}
	c.Keywords = append(c.Keywords, pyast.Keyword{Name: "encoding", Value: pyast.S("utf-8")})
	return c
}

// paramsAssign renders the step's parameters as a dict literal bound to
// `params` inside the step function.
func paramsAssign(p map[string]any) pyast.Stmt {
	if p == nil {
		p = map[string]any{}
	}
	return &pyast.Assign{Target: params, Value: pyast.Literal(p)}
}

// compileStep produces the core statements of one step: the work itself,
// without logging, loop, retry or alert wrappers.
func (a *assembler) compileStep(i int, step workflow.Step) []pyast.Stmt {
	result := pyast.Index(ctx, step.ID)

	if fn := strings.TrimSpace(step.CustomFunction); fn != "" {
		a.needResolver = true
		if strings.TrimSpace(step.CustomCode) != "" {
			a.warn(step, "custom code ignored: custom function %q takes precedence", fn)
		}
		call := &pyast.Call{
			Func:   pyast.CallOf(pyast.N("resolve_function"), pyast.S(fn)),
			Kwargs: params,
		}
		return []pyast.Stmt{&pyast.Assign{Target: result, Value: call}}
	}

	if strings.TrimSpace(step.CustomCode) != "" {
		if step.Kind != workflow.KindCustomCode && step.Kind != "" && step.Kind.Known() {
			a.warn(step, "custom code replaces the %s template", step.Kind)
		}
		return []pyast.Stmt{&pyast.Raw{Src: step.CustomCode}}
	}

	switch step.Kind {
	case workflow.KindLoadData:
		return a.loadData(step, result)
	case workflow.KindFilter:
		return a.filter(i, step, result)
	case workflow.KindExport:
		return a.export(i, step, result)
	case workflow.KindCustomCode:
		a.warn(step, "custom-code step has no code")
		return []pyast.Stmt{&pyast.Comment{Text: "no custom code provided"}, &pyast.Pass{}}
	}

	if step.Kind == "" {
		a.warn(step, "step has no kind")
	} else {
		a.warn(step, "unknown step kind %q", step.Kind)
	}
	return []pyast.Stmt{
		&pyast.Comment{Text: fmt.Sprintf("no template for step kind %q", string(step.Kind))},
		&pyast.Pass{},
	}
}

func dataFormat(p map[string]any) string {
	f, _ := stringParam(p, "format")
	return strings.ToLower(strings.TrimSpace(f))
}

// loadData reads params['file'] as CSV records or a JSON document.
func (a *assembler) loadData(step workflow.Step, result pyast.Expr) []pyast.Stmt {
	if _, ok := stringParam(step.Params, "file"); !ok {
		a.warn(step, "load-data step has no 'file' parameter")
	}

	var read []pyast.Stmt
	if dataFormat(step.Params) == "json" {
		a.needJSON = true
		read = []pyast.Stmt{&pyast.With{
			Item: openCall("", false, param("file")),
			As:   "handle",
			Body: []pyast.Stmt{&pyast.Assign{
				Target: result,
				Value:  pyast.CallOf(pyast.Dotted("json", "load"), pyast.N("handle")),
			}},
		}}
	} else {
		a.needCSV = true
		reader := &pyast.Call{
			Func:     pyast.Dotted("csv", "DictReader"),
			Args:     []pyast.Expr{pyast.N("handle")},
			Keywords: []pyast.Keyword{{Name: "delimiter", Value: paramOr("delimiter", pyast.S(","))}},
		}
		read = []pyast.Stmt{&pyast.With{
			Item: openCall("", true, param("file")),
			As:   "handle",
			Body: []pyast.Stmt{&pyast.Assign{
				Target: result,
				Value:  pyast.CallOf(pyast.N("list"), reader),
			}},
		}}
	}

	return append(read,
		logCall("info", "Loaded %d records from %s",
			pyast.CallOf(pyast.N("len"), result), param("file")))
}

// filter keeps the records of a source step that satisfy a condition over
// `row`. The source defaults to the previous step.
func (a *assembler) filter(i int, step workflow.Step, result pyast.Expr) []pyast.Stmt {
	source, ok := stringParam(step.Params, "source")
	if !ok {
		if i > 0 {
			source = a.wf.Steps[i-1].ID
		} else {
			source = fmt.Sprintf("step_%d", i)
			a.warn(step, "filter step has no source and no previous step")
		}
	}

	comp := &pyast.ListComp{
		Elt:    pyast.N("row"),
		Target: "row",
		Iter:   pyast.Index(ctx, source),
	}
	switch cond := step.Params["condition"].(type) {
	case string:
		if strings.TrimSpace(cond) != "" {
			comp.Cond = &pyast.Paren{X: &pyast.RawExpr{Src: strings.TrimSpace(cond)}}
			if err := a.validator.CheckExpression(cond); err != nil {
				a.warn(step, "filter condition does not parse: %v", err)
			}
		}
	case nil:
	default:
		comp.Cond = pyast.Literal(cond)
	}

	return []pyast.Stmt{
		&pyast.Assign{Target: result, Value: comp},
		logCall("info", "Kept %d of %d records",
			pyast.CallOf(pyast.N("len"), result),
			pyast.CallOf(pyast.N("len"), pyast.Index(ctx, source))),
	}
}

// export writes the records of a source step to params['output'] and stores
// the output path as the step result.
func (a *assembler) export(i int, step workflow.Step, result pyast.Expr) []pyast.Stmt {
	source, ok := stringParam(step.Params, "source")
	if !ok {
		if i > 0 {
			source = a.wf.Steps[i-1].ID
		} else {
			source = fmt.Sprintf("step_%d", i)
			a.warn(step, "export step has no source and no previous step")
		}
	}
	if _, ok := stringParam(step.Params, "output"); !ok {
		a.warn(step, "export step has no 'output' parameter")
	}

	rows := pyast.N("rows")
	var write []pyast.Stmt
	if dataFormat(step.Params) == "json" {
		a.needJSON = true
		write = []pyast.Stmt{pyast.Do(&pyast.Call{
			Func: pyast.Dotted("json", "dump"),
			Args: []pyast.Expr{rows, pyast.N("handle")},
			Keywords: []pyast.Keyword{
				{Name: "indent", Value: pyast.I(2)},
				{Name: "default", Value: pyast.N("str")},
			},
		})}
	} else {
		a.needCSV = true
		writer := pyast.N("writer")
		fields := pyast.CallOf(pyast.N("list"),
			pyast.CallOf(&pyast.Attr{X: &pyast.Subscript{X: rows, Index: pyast.I(0)}, Name: "keys"}))
		write = []pyast.Stmt{&pyast.If{
			Cond: rows,
			Body: []pyast.Stmt{
				&pyast.Assign{Target: writer, Value: &pyast.Call{
					Func:     pyast.Dotted("csv", "DictWriter"),
					Args:     []pyast.Expr{pyast.N("handle")},
					Keywords: []pyast.Keyword{{Name: "fieldnames", Value: fields}},
				}},
				pyast.Do(pyast.CallOf(pyast.Dotted("writer", "writeheader"))),
				pyast.Do(pyast.CallOf(pyast.Dotted("writer", "writerows"), rows)),
			},
		}}
	}

	return []pyast.Stmt{
		&pyast.Assign{Target: rows, Value: pyast.Index(ctx, source)},
		&pyast.With{
			Item: openCall("w", dataFormat(step.Params) != "json", param("output")),
			As:   "handle",
			Body: write,
		},
		logCall("info", "Exported %d records to %s", pyast.CallOf(pyast.N("len"), rows), param("output")),
		&pyast.Assign{Target: result, Value: param("output")},
	}
}
