// Package testing provides helpers for tests that compile workflows and run
// the generated scripts with a real Python interpreter.
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LiboWorks/task-automator/internal/backend"
	"github.com/LiboWorks/task-automator/internal/compiler"
	"github.com/LiboWorks/task-automator/internal/pycheck"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

// DefaultPython is the interpreter generated scripts are run with.
const DefaultPython = "python3"

// TestFixture represents a test workflow fixture
type TestFixture struct {
	Name string
	Path string
}

// TestResult holds the results of running a generated script
type TestResult struct {
	ExitCode int
	// Output is the combined stdout and stderr; script logging goes to
	// stderr.
	Output   string
	Duration time.Duration
	// WorkDir is where the script ran and wrote its files.
	WorkDir string
}

// TestRunner provides utilities for running workflow tests
type TestRunner struct {
	RepoRoot    string
	FixturesDir string
	// WorkDir holds generated scripts, staged inputs and script outputs.
	WorkDir string
	Python  string

	// Options are the compile options; OutputDir is always WorkDir.
	Options compiler.Options

	// Backends provides the shell scripts run with. Its default shell
	// works in WorkDir.
	Backends *backend.Registry

	t *testing.T
}

// NewTestRunner creates a runner with an isolated work directory. The test
// is skipped when no Python interpreter is installed.
func NewTestRunner(t *testing.T) (*TestRunner, error) {
	t.Helper()

	if _, err := exec.LookPath(DefaultPython); err != nil {
		t.Skipf("%s not installed", DefaultPython)
	}

	repoRoot, err := FindRepoRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find repo root: %w", err)
	}

	workDir := t.TempDir()
	backends := backend.NewRegistry()
	backends.RegisterShell(backend.NewShellBackend(backend.ShellConfig{Dir: workDir}))
	t.Cleanup(func() { _ = backends.Close() })

	return &TestRunner{
		RepoRoot:    repoRoot,
		FixturesDir: filepath.Join(repoRoot, "testdata", "fixtures"),
		WorkDir:     workDir,
		Python:      DefaultPython,
		Options:     compiler.Options{Validator: pycheck.Default(backends.GetShell(), DefaultPython)},
		Backends:    backends,
		t:           t,
	}, nil
}

// FindRepoRoot finds the repository root by looking for go.mod
func FindRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}

// GetFixture returns a fixture by file name, e.g. "csv_pipeline.yaml".
func (r *TestRunner) GetFixture(file string) TestFixture {
	return TestFixture{
		Name: strings.TrimSuffix(file, filepath.Ext(file)),
		Path: filepath.Join(r.FixturesDir, file),
	}
}

// ListFixtures returns all available fixtures
func (r *TestRunner) ListFixtures() ([]TestFixture, error) {
	var fixtures []TestFixture
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		files, err := filepath.Glob(filepath.Join(r.FixturesDir, pattern))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			fixtures = append(fixtures, r.GetFixture(filepath.Base(f)))
		}
	}
	return fixtures, nil
}

// Stage writes an input file into the work directory.
func (r *TestRunner) Stage(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.WorkDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.t.Fatalf("stage %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.t.Fatalf("stage %s: %v", name, err)
	}
}

// CompileFixture compiles a fixture into the work directory and returns the
// written script paths, one per workflow.
func (r *TestRunner) CompileFixture(fixture TestFixture) ([]string, error) {
	r.t.Helper()
	opts := r.Options
	opts.OutputDir = r.WorkDir
	result, err := compiler.CompileFile(fixture.Path, &opts)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", fixture.Name, err)
	}
	return scriptFiles(result), nil
}

// CompileWorkflows compiles in-memory workflows into the work directory.
func (r *TestRunner) CompileWorkflows(wfs ...workflow.Workflow) ([]string, error) {
	r.t.Helper()
	opts := r.Options
	opts.OutputDir = r.WorkDir
	result, err := compiler.Compile(wfs, &opts)
	if err != nil {
		return nil, err
	}
	return scriptFiles(result), nil
}

func scriptFiles(result *compiler.Result) []string {
	files := make([]string, 0, len(result.Artifacts))
	for _, a := range result.Artifacts {
		files = append(files, a.ScriptFile)
	}
	return files
}

// RunScript runs a generated script from the work directory.
func (r *TestRunner) RunScript(script string, timeout time.Duration) (*TestResult, error) {
	r.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	out, err := r.Backends.GetShell().Run(ctx, r.Python+" "+quote(script))
	result := &TestResult{
		Output:   out,
		Duration: time.Since(start),
		WorkDir:  r.WorkDir,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// CompileAndRun compiles a single-workflow fixture and runs its script.
func (r *TestRunner) CompileAndRun(fixture TestFixture, timeout time.Duration) (*TestResult, error) {
	r.t.Helper()

	scripts, err := r.CompileFixture(fixture)
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, fmt.Errorf("fixture %s produced no script", fixture.Name)
	}
	return r.RunScript(scripts[0], timeout)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Assertions provides test assertion helpers
type Assertions struct {
	t      *testing.T
	result *TestResult
}

// NewAssertions creates a new assertions helper
func NewAssertions(t *testing.T, result *TestResult) *Assertions {
	return &Assertions{t: t, result: result}
}

// Finished asserts the workflow driver reached its end.
func (a *Assertions) Finished(workflowName string) *Assertions {
	a.t.Helper()
	return a.OutputContains("Workflow " + workflowName + " finished")
}

// ExitCode asserts the exit code
func (a *Assertions) ExitCode(expected int) *Assertions {
	a.t.Helper()
	if a.result.ExitCode != expected {
		a.t.Errorf("expected exit code %d, got %d\noutput:\n%s", expected, a.result.ExitCode, a.result.Output)
	}
	return a
}

// OutputContains asserts the script output contains a string
func (a *Assertions) OutputContains(expected string) *Assertions {
	a.t.Helper()
	if !strings.Contains(a.result.Output, expected) {
		a.t.Errorf("output does not contain %q, got:\n%s", expected, a.result.Output)
	}
	return a
}

// OutputNotContains asserts the script output does not contain a string
func (a *Assertions) OutputNotContains(unexpected string) *Assertions {
	a.t.Helper()
	if strings.Contains(a.result.Output, unexpected) {
		a.t.Errorf("output should not contain %q, got:\n%s", unexpected, a.result.Output)
	}
	return a
}

// OutputCount asserts how often a string occurs in the output.
func (a *Assertions) OutputCount(s string, expected int) *Assertions {
	a.t.Helper()
	if n := strings.Count(a.result.Output, s); n != expected {
		a.t.Errorf("output contains %q %d times, expected %d\noutput:\n%s", s, n, expected, a.result.Output)
	}
	return a
}

// FileContains asserts a file the script wrote contains a string.
func (a *Assertions) FileContains(name, expected string) *Assertions {
	a.t.Helper()
	data, err := os.ReadFile(filepath.Join(a.result.WorkDir, name))
	if err != nil {
		a.t.Errorf("read %s: %v", name, err)
		return a
	}
	if !strings.Contains(string(data), expected) {
		a.t.Errorf("%s does not contain %q, got:\n%s", name, expected, data)
	}
	return a
}

// FileNotContains asserts a file the script wrote lacks a string.
func (a *Assertions) FileNotContains(name, unexpected string) *Assertions {
	a.t.Helper()
	data, err := os.ReadFile(filepath.Join(a.result.WorkDir, name))
	if err != nil {
		a.t.Errorf("read %s: %v", name, err)
		return a
	}
	if strings.Contains(string(data), unexpected) {
		a.t.Errorf("%s should not contain %q", name, unexpected)
	}
	return a
}

// DurationLessThan asserts the execution took less than the specified duration
func (a *Assertions) DurationLessThan(d time.Duration) *Assertions {
	a.t.Helper()
	if a.result.Duration >= d {
		a.t.Errorf("execution took %v, expected less than %v", a.result.Duration, d)
	}
	return a
}
