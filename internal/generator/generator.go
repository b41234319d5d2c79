package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/LiboWorks/task-automator/internal/logger"
	"github.com/LiboWorks/task-automator/internal/pycheck"
	"github.com/LiboWorks/task-automator/internal/pyast"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

// ErrInvalidScript marks generated text that failed the grammar check. The
// text is still returned for editing but must not be exported.
var ErrInvalidScript = errors.New("generated script is not valid Python")

// AlertTransport holds the SMTP settings alert e-mails are sent with.
type AlertTransport struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Complete reports whether every setting is present. Incomplete transports
// disable alerting.
func (a *AlertTransport) Complete() bool {
	return a != nil && a.Host != "" && a.Port > 0 && a.Username != "" && a.Password != ""
}

// Options configures script generation.
type Options struct {
	// ModulePath is a Python file loaded as `custom`; custom-function steps
	// resolve their function there first.
	ModulePath string

	// Alert enables per-step alert calls when complete.
	Alert *AlertTransport

	// Validator checks the assembled text. Defaults to pycheck.Default.
	Validator pycheck.Validator

	Logger *zap.Logger
}

// Script is the generated program together with its validation outcome.
type Script struct {
	Text string

	// Valid is true when Text passed the grammar check.
	Valid bool

	// SyntaxError is set when the grammar check rejected Text.
	SyntaxError *pycheck.SyntaxError

	// Functions lists the step function names in driver call order.
	Functions []string

	// Warnings are per-step notices that did not stop generation.
	Warnings []workflow.Warning
}

// Exportable reports whether the script may be saved or offered for download.
func (s *Script) Exportable() bool {
	return s != nil && s.Valid
}

// Generate synthesizes a standalone Python script for wf. Generation itself
// never fails: the returned Script always carries text. The error is non-nil
// when the text does not validate; it wraps ErrInvalidScript and, for
// grammar problems, a *pycheck.SyntaxError.
func Generate(wf workflow.Workflow, opts *Options) (*Script, error) {
	if opts == nil {
		opts = &Options{}
	}
	validator := opts.Validator
	if validator == nil {
		validator = pycheck.Default(nil, "")
	}
	log := logger.OrNop(opts.Logger).With(zap.String("workflow", wf.Name))

	a := newAssembler(wf, opts, validator, log)
	module := a.assemble()

	script := &Script{
		Text:      pyast.Render(module),
		Functions: a.names,
		Warnings:  a.warnings,
	}
	for _, w := range script.Warnings {
		log.Debug("generation warning", zap.String("step", w.StepID), zap.String("message", w.Message))
	}

	if err := validator.CheckProgram(script.Text); err != nil {
		if se, ok := pycheck.AsSyntaxError(err); ok {
			script.SyntaxError = se
			log.Info("generated script failed validation", zap.Int("line", se.Line), zap.String("error", se.Message))
			return script, fmt.Errorf("%w: %w", ErrInvalidScript, se)
		}
		return script, fmt.Errorf("%w: validation did not run: %w", ErrInvalidScript, err)
	}

	script.Valid = true
	log.Debug("generated script", zap.Int("steps", len(wf.Steps)), zap.Int("bytes", len(script.Text)))
	return script, nil
}

// SaveToFile writes a generated script. Scripts that did not validate are
// refused.
func SaveToFile(path string, script *Script) error {
	if !script.Exportable() {
		return fmt.Errorf("%w: refusing to save %s", ErrInvalidScript, path)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, []byte(script.Text), 0644)
}
