// Package automator provides a public API for the task automator.
//
// This package turns workflow definitions (ordered steps with retry, loop,
// exception-handling and alert policies) into standalone Python scripts that
// only need the Python standard library. Every script is checked against the
// Python grammar before it is written.
//
// Basic usage:
//
//	result, err := automator.CompileFile("workflow.yaml", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Script:", result.Scripts[0].Path)
//
// Programmatic workflow construction:
//
//	wf := automator.NewWorkflow("orders")
//	wf.AddStep(automator.LoadDataStep("load", "Load orders", "orders.csv").WithRetry(3, 5).Build())
//	wf.AddStep(automator.FilterStep("active", "Keep active", "row['status'] == 'active'").Build())
//	wf.AddStep(automator.ExportStep("save", "Save", "active.csv").Critical().Build())
//
//	script, err := automator.Generate(wf, nil)
package automator

import (
	"context"
	"time"

	"github.com/LiboWorks/task-automator/internal/backend"
	"github.com/LiboWorks/task-automator/internal/compiler"
	"github.com/LiboWorks/task-automator/internal/drafter"
	"github.com/LiboWorks/task-automator/internal/generator"
	"github.com/LiboWorks/task-automator/internal/pycheck"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

// backends holds the shell the interpreter validator runs python with.
var backends = func() *backend.Registry {
	r := backend.NewRegistry()
	r.RegisterShell(backend.NewShellBackend(backend.ShellConfig{}))
	return r
}()

// ErrInvalidScript is wrapped by errors for scripts that fail the grammar
// check. Such scripts are returned for inspection but never written.
var ErrInvalidScript = generator.ErrInvalidScript

// Script is a generated program and its validation outcome.
type Script struct {
	// Workflow is the name of the source workflow.
	Workflow string

	// Text is the Python source.
	Text string

	// Path is where the script was written; empty when it was not.
	Path string

	// Valid reports whether Text passed the grammar check.
	Valid bool

	// SyntaxError describes the grammar problem when Valid is false.
	SyntaxError string

	// ErrorLine is the 1-based line of the grammar problem, 0 when unknown.
	ErrorLine int

	// Warnings are per-step notices, formatted as "<step id>: <message>".
	Warnings []string
}

// CompileResult contains the results of a compilation.
type CompileResult struct {
	// Scripts has one entry per workflow, in input order.
	Scripts []*Script

	// Workflows contains the compiled workflow definitions.
	Workflows []*Workflow
}

// CompileFile compiles a YAML or JSON workflow file into Python scripts.
//
// The input file can contain single or multiple workflow definitions
// separated by YAML document markers (---).
//
// When some scripts fail the grammar check the result is still returned
// together with an error wrapping ErrInvalidScript.
func CompileFile(inputPath string, opts *CompileOptions) (*CompileResult, error) {
	internalOpts := toInternalOptions(opts)

	result, err := compiler.CompileFile(inputPath, internalOpts)
	if result == nil {
		return nil, err
	}
	return fromInternalResult(result), err
}

// Compile compiles workflow definitions into Python scripts.
//
// Use this for programmatically constructed workflows. For YAML files,
// use CompileFile instead.
func Compile(workflows []*Workflow, opts *CompileOptions) (*CompileResult, error) {
	internalOpts := toInternalOptions(opts)

	internalWfs := make([]workflow.Workflow, len(workflows))
	for i, wf := range workflows {
		internalWfs[i] = wf.toInternal()
	}

	result, err := compiler.Compile(internalWfs, internalOpts)
	if result == nil {
		return nil, err
	}
	return fromInternalResult(result), err
}

// Generate synthesizes the script for one workflow without writing it. The
// workflow is not validated first; generation never fails, but the error is
// non-nil when the text does not pass the grammar check.
func Generate(wf *Workflow, opts *CompileOptions) (*Script, error) {
	internalOpts := toInternalOptions(opts)
	internal := wf.toInternal()
	s, err := generator.Generate(internal, &generator.Options{
		ModulePath: internalOpts.ModulePath,
		Alert:      internalOpts.Alert,
		Validator:  internalOpts.Validator,
	})
	return fromInternalScript(compiler.Artifact{Workflow: internal, Script: s}), err
}

// LoadWorkflows loads and parses workflow definitions from a YAML or JSON
// file without compiling them.
func LoadWorkflows(inputPath string) ([]*Workflow, error) {
	wfs, err := workflow.LoadWorkflows(inputPath)
	if err != nil {
		return nil, err
	}

	result := make([]*Workflow, len(wfs))
	for i, wf := range wfs {
		result[i] = fromInternalWorkflow(wf)
	}
	return result, nil
}

// SaveWorkflow writes a workflow as JSON or YAML, chosen by file extension.
func SaveWorkflow(path string, wf *Workflow) error {
	return workflow.Save(path, wf.toInternal())
}

// Validate checks a workflow for errors without compiling it.
func Validate(wf *Workflow) error {
	internal := wf.toInternal()
	return internal.Validate()
}

// ParseTasks turns plain text, one task per line, into a workflow of
// untyped steps named step_1, step_2, ...
func ParseTasks(text string) *Workflow {
	return fromInternalWorkflow(workflow.ParseTasks(text, time.Now()))
}

// Draft assigns step kinds and parameters to untyped steps from their titles
// using keyword matching. It returns a new workflow and a notice for every
// step it could not classify.
func Draft(ctx context.Context, wf *Workflow) (*Workflow, []string) {
	drafted, warnings := drafter.Draft(ctx, wf.toInternal(), drafter.KeywordClassifier{})
	return fromInternalWorkflow(drafted), warningStrings(warnings)
}

// Helper functions for conversion

func toInternalOptions(opts *CompileOptions) *compiler.Options {
	if opts == nil {
		opts = DefaultOptions()
	}
	var v pycheck.Validator
	if opts.Python != "" {
		v = pycheck.NewInterpreterValidator(backends.GetShell(), opts.Python)
	}
	out := &compiler.Options{
		OutputDir:    opts.OutputDir,
		OutputName:   opts.OutputName,
		ModulePath:   opts.ModulePath,
		Validator:    v,
		SkipWrite:    opts.SkipWrite,
		SaveTemplate: opts.SaveTemplate,
	}
	if opts.SMTP != nil {
		out.Alert = &generator.AlertTransport{
			Host:     opts.SMTP.Host,
			Port:     opts.SMTP.Port,
			Username: opts.SMTP.Username,
			Password: opts.SMTP.Password,
		}
	}
	return out
}

func fromInternalResult(r *compiler.Result) *CompileResult {
	out := &CompileResult{
		Workflows: make([]*Workflow, len(r.Workflows)),
	}
	for i, wf := range r.Workflows {
		out.Workflows[i] = fromInternalWorkflow(wf)
	}
	for _, a := range r.Artifacts {
		out.Scripts = append(out.Scripts, fromInternalScript(a))
	}
	return out
}

func fromInternalScript(a compiler.Artifact) *Script {
	s := &Script{Workflow: a.Workflow.Name, Path: a.ScriptFile}
	if a.Script == nil {
		return s
	}
	s.Text = a.Script.Text
	s.Valid = a.Script.Valid
	if se := a.Script.SyntaxError; se != nil {
		s.SyntaxError = se.Error()
		s.ErrorLine = se.Line
	}
	s.Warnings = warningStrings(a.Script.Warnings)
	return s
}

func warningStrings(ws []workflow.Warning) []string {
	if len(ws) == 0 {
		return nil
	}
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}
