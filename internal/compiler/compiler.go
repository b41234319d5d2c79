// Package compiler provides the core compilation pipeline of the task
// automator: load workflows, validate them, generate scripts and save the
// ones that pass the grammar check.
package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/LiboWorks/task-automator/internal/backend"
	"github.com/LiboWorks/task-automator/internal/config"
	"github.com/LiboWorks/task-automator/internal/generator"
	"github.com/LiboWorks/task-automator/internal/logger"
	"github.com/LiboWorks/task-automator/internal/pycheck"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

// Options configures the compilation process.
type Options struct {
	// OutputDir is the directory where scripts are written.
	OutputDir string

	// OutputName overrides the script name (without extension) when a single
	// workflow is compiled. Otherwise each script is named after its workflow.
	OutputName string

	// ModulePath is the external Python module custom steps may call.
	ModulePath string

	// Alert is the SMTP transport for step alerts. Incomplete transports
	// disable alerting.
	Alert *generator.AlertTransport

	// Validator defaults to the in-memory grammar check.
	Validator pycheck.Validator

	// SkipWrite generates and validates scripts without writing files.
	SkipWrite bool

	// SaveTemplate also writes the workflow as <name>_template.json.
	SaveTemplate bool

	Logger *zap.Logger
}

// Artifact is the outcome for one workflow.
type Artifact struct {
	Workflow workflow.Workflow
	Script   *generator.Script

	// ScriptFile is set when the script was written.
	ScriptFile string

	// TemplateFile is set when the workflow template was written.
	TemplateFile string
}

// Result contains one artifact per compiled workflow, in input order.
type Result struct {
	Artifacts []Artifact

	// Workflows contains the parsed workflow definitions.
	Workflows []workflow.Workflow
}

// Warnings returns the generation warnings of all artifacts.
func (r *Result) Warnings() []workflow.Warning {
	var out []workflow.Warning
	for _, a := range r.Artifacts {
		if a.Script != nil {
			out = append(out, a.Script.Warnings...)
		}
	}
	return out
}

// CompileFile compiles a YAML or JSON workflow file into Python scripts.
func CompileFile(inputPath string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}

	// Check file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("workflow file not found: %s", inputPath)
	}

	wfs, err := workflow.LoadWorkflows(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}
	if len(wfs) == 0 {
		return nil, fmt.Errorf("no workflows in %s", inputPath)
	}

	return Compile(wfs, opts)
}

// Compile generates one script per workflow. Invalid scripts are reported
// through the returned error and never written; the other workflows are
// still compiled.
func Compile(wfs []workflow.Workflow, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = config.DefaultOutputDir
	}
	log := logger.OrNop(opts.Logger)

	// Validate workflows
	for _, wf := range wfs {
		if err := wf.Validate(); err != nil {
			return nil, fmt.Errorf("validation error in %s: %w", wf.Name, err)
		}
	}

	result := &Result{Workflows: wfs}
	var errs []error
	for _, wf := range wfs {
		name := scriptName(wf, len(wfs), opts.OutputName)
		script, err := generator.Generate(wf, &generator.Options{
			ModulePath: opts.ModulePath,
			Alert:      opts.Alert,
			Validator:  opts.Validator,
			Logger:     log,
		})
		artifact := Artifact{Workflow: wf, Script: script}
		if err != nil {
			errs = append(errs, fmt.Errorf("workflow %s: %w", wf.Name, err))
		}

		if !opts.SkipWrite {
			if script.Exportable() {
				path := filepath.Join(outputDir, name+".py")
				if err := generator.SaveToFile(path, script); err != nil {
					return nil, fmt.Errorf("failed to save generated file: %w", err)
				}
				artifact.ScriptFile = path
				log.Info("wrote script", zap.String("workflow", wf.Name), zap.String("path", path))
			}
			if opts.SaveTemplate {
				path := filepath.Join(outputDir, name+"_template.json")
				if err := workflow.SaveJSON(path, wf); err != nil {
					return nil, fmt.Errorf("failed to save template: %w", err)
				}
				artifact.TemplateFile = path
			}
		}
		result.Artifacts = append(result.Artifacts, artifact)
	}
	return result, errors.Join(errs...)
}

// scriptName picks the file name for a workflow's script. Path separators
// and spaces in workflow names become underscores.
func scriptName(wf workflow.Workflow, total int, override string) string {
	if override != "" && total == 1 {
		return override
	}
	name := wf.Name
	if override != "" {
		name = override + "_" + name
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, name)
}

// NewValidator returns the validator named by cfg. The interpreter runs
// through the registry's shell; a nil registry uses a fresh one.
func NewValidator(cfg *config.Config, backends *backend.Registry) (pycheck.Validator, error) {
	if backends == nil {
		backends = backend.NewRegistry()
	}
	switch cfg.Validator {
	case "", config.ValidatorAuto:
		return pycheck.Default(backends.GetShell(), cfg.Python), nil
	case config.ValidatorGPython:
		return pycheck.New(), nil
	case config.ValidatorPython:
		return pycheck.NewInterpreterValidator(backends.GetShell(), cfg.Python), nil
	}
	return nil, fmt.Errorf("unknown validator %q", cfg.Validator)
}

// AlertTransport maps the SMTP settings, or returns nil when none are set.
func AlertTransport(c config.SMTPConfig) *generator.AlertTransport {
	if c == (config.SMTPConfig{}) {
		return nil
	}
	return &generator.AlertTransport{Host: c.Host, Port: c.Port, Username: c.Username, Password: c.Password}
}

// OptionsFromConfig builds compile options from the application settings.
func OptionsFromConfig(cfg *config.Config, backends *backend.Registry, log *zap.Logger) (*Options, error) {
	v, err := NewValidator(cfg, backends)
	if err != nil {
		return nil, err
	}
	return &Options{
		OutputDir:  cfg.OutputDir,
		ModulePath: cfg.Module,
		Alert:      AlertTransport(cfg.SMTP),
		Validator:  v,
		Logger:     log,
	}, nil
}
