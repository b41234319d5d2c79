package compiler

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiboWorks/task-automator/internal/backend"
	"github.com/LiboWorks/task-automator/internal/config"
	"github.com/LiboWorks/task-automator/internal/generator"
	"github.com/LiboWorks/task-automator/internal/pycheck"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

func getFixturePath(name string) string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return filepath.Join(dir, "testdata", "fixtures", name)
}

func TestCompileFileWritesScript(t *testing.T) {
	out := t.TempDir()
	result, err := CompileFile(getFixturePath("csv_pipeline.yaml"), &Options{OutputDir: out})
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)

	a := result.Artifacts[0]
	assert.Equal(t, filepath.Join(out, "csv_pipeline.py"), a.ScriptFile)
	assert.Empty(t, a.TemplateFile)

	data, err := os.ReadFile(a.ScriptFile)
	require.NoError(t, err)
	assert.Equal(t, a.Script.Text, string(data))
}

func TestCompileFileMultiDocument(t *testing.T) {
	out := t.TempDir()
	result, err := CompileFile(getFixturePath("control_flow.yaml"), &Options{OutputDir: out, SaveTemplate: true})
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 2)

	for _, name := range []string{"control_flow.py", "second_document.py", "control_flow_template.json"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	reloaded, err := workflow.LoadWorkflows(result.Artifacts[1].TemplateFile)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.Equal(t, "second_document", reloaded[0].Name)

	assert.NotEmpty(t, result.Warnings(), "unknown kind and empty while loop are reported")
}

func TestCompileOutputName(t *testing.T) {
	out := t.TempDir()
	wf := workflow.Workflow{Name: "nightly run", Steps: []workflow.Step{{ID: "a", Kind: workflow.KindCustomCode, CustomCode: "pass"}}}

	result, err := Compile([]workflow.Workflow{wf}, &Options{OutputDir: out, OutputName: "job"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "job.py"), result.Artifacts[0].ScriptFile)

	result, err = Compile([]workflow.Workflow{wf}, &Options{OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "nightly_run.py"), result.Artifacts[0].ScriptFile)
}

func TestCompileInvalidScriptIsNotWritten(t *testing.T) {
	out := t.TempDir()
	bad := workflow.Workflow{Name: "bad", Steps: []workflow.Step{{
		ID: "step_1", Kind: workflow.KindCustomCode, CustomCode: "if True\n    pass",
	}}}
	good := workflow.Workflow{Name: "good", Steps: []workflow.Step{{
		ID: "step_1", Kind: workflow.KindCustomCode, CustomCode: "pass",
	}}}

	result, err := Compile([]workflow.Workflow{bad, good}, &Options{OutputDir: out})
	require.Error(t, err)
	assert.True(t, errors.Is(err, generator.ErrInvalidScript))
	require.NotNil(t, result)
	require.Len(t, result.Artifacts, 2)

	assert.Empty(t, result.Artifacts[0].ScriptFile)
	assert.False(t, result.Artifacts[0].Script.Valid)
	assert.Contains(t, result.Artifacts[0].Script.Text, "if True\n")
	_, statErr := os.Stat(filepath.Join(out, "bad.py"))
	assert.True(t, os.IsNotExist(statErr))

	assert.Equal(t, filepath.Join(out, "good.py"), result.Artifacts[1].ScriptFile)
}

func TestCompileSkipWrite(t *testing.T) {
	out := t.TempDir()
	result, err := CompileFile(getFixturePath("csv_pipeline.yaml"), &Options{OutputDir: out, SkipWrite: true, SaveTemplate: true})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Artifacts[0].Script.Text)
	assert.Empty(t, result.Artifacts[0].ScriptFile)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompileRejectsInvalidWorkflow(t *testing.T) {
	wf := workflow.Workflow{Name: "dup", Steps: []workflow.Step{{ID: "a"}, {ID: "a"}}}
	_, err := Compile([]workflow.Workflow{wf}, &Options{SkipWrite: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrDuplicateStep)
}

func TestCompileFileNotFound(t *testing.T) {
	_, err := CompileFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestNewValidator(t *testing.T) {
	cfg := config.NewConfig().WithValidator(config.ValidatorGPython, "")
	v, err := NewValidator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &pycheck.GrammarValidator{}, v)

	v, err = NewValidator(config.NewConfig().WithValidator(config.ValidatorPython, ""), nil)
	require.NoError(t, err)
	assert.IsType(t, &pycheck.InterpreterValidator{}, v)

	cfg = config.NewConfig()
	cfg.Validator = "pylint"
	_, err = NewValidator(cfg, nil)
	assert.Error(t, err)
}

func TestNewValidatorAuto(t *testing.T) {
	cfg := config.NewConfig().WithValidator(config.ValidatorAuto, "python-not-installed-here")
	v, err := NewValidator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &pycheck.GrammarValidator{}, v, "no interpreter: in-memory check only")

	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	v, err = NewValidator(config.NewConfig(), nil)
	require.NoError(t, err)
	assert.IsType(t, &pycheck.CrossChecked{}, v)
}

type recordingShell struct {
	commands []string
}

func (s *recordingShell) Run(_ context.Context, command string) (string, error) {
	s.commands = append(s.commands, command)
	return "", nil
}

func (s *recordingShell) RunWithEnv(ctx context.Context, command string, _ map[string]string) (string, error) {
	return s.Run(ctx, command)
}

func TestNewValidatorUsesRegistryShell(t *testing.T) {
	shell := &recordingShell{}
	backends := backend.NewRegistry()
	backends.RegisterShell(shell)

	v, err := NewValidator(config.NewConfig().WithValidator(config.ValidatorPython, "py"), backends)
	require.NoError(t, err)
	require.NoError(t, v.CheckProgram("x = 1\n"))
	require.Len(t, shell.commands, 1)
	assert.Contains(t, shell.commands[0], "'py' ")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewConfig().WithModule("helpers.py")
	opts, err := OptionsFromConfig(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "helpers.py", opts.ModulePath)
	assert.Nil(t, opts.Alert)

	cfg.WithSMTP("smtp.example.com", 465, "bot", "pw")
	opts, err = OptionsFromConfig(cfg, nil, nil)
	require.NoError(t, err)
	assert.True(t, opts.Alert.Complete())
}
