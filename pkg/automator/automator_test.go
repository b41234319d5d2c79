package automator_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiboWorks/task-automator/pkg/automator"
)

// findRepoRoot finds the repository root by looking for go.mod
func findRepoRoot() (string, error) {
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
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

func ordersWorkflow() *automator.Workflow {
	wf := automator.NewWorkflow("orders")
	wf.AddStep(automator.LoadDataStep("load", "Load orders", "orders.csv").WithRetry(3, 5).Build())
	wf.AddStep(automator.FilterStep("active", "Keep active", "row['status'] == 'active'").Build())
	wf.AddStep(automator.ExportStep("save", "Save", "active.json").WithFormat("json").Critical().Build())
	return wf
}

func TestLoadWorkflows(t *testing.T) {
	repoRoot, err := findRepoRoot()
	require.NoError(t, err)

	t.Run("converts internal types to public types", func(t *testing.T) {
		workflows, err := automator.LoadWorkflows(filepath.Join(repoRoot, "testdata", "fixtures", "csv_pipeline.yaml"))
		require.NoError(t, err)
		require.Len(t, workflows, 1)

		wf := workflows[0]
		assert.Equal(t, "csv_pipeline", wf.Name)
		require.Len(t, wf.Steps, 3)
		assert.Equal(t, automator.KindLoadData, wf.Steps[0].Kind)
		assert.Equal(t, 2, wf.Steps[0].RetryCount)
		assert.True(t, wf.Steps[2].Critical)
	})

	t.Run("template with loop and alert", func(t *testing.T) {
		workflows, err := automator.LoadWorkflows(filepath.Join(repoRoot, "testdata", "fixtures", "template.json"))
		require.NoError(t, err)
		step := workflows[0].Steps[0]
		assert.Equal(t, "download", step.CustomFunction)
		assert.Equal(t, []string{"ops@example.com"}, step.AlertRecipients)
	})

	t.Run("multi workflow YAML", func(t *testing.T) {
		workflows, err := automator.LoadWorkflows(filepath.Join(repoRoot, "testdata", "fixtures", "control_flow.yaml"))
		require.NoError(t, err)
		assert.Len(t, workflows, 2)
		assert.Equal(t, automator.LoopFor, workflows[0].Steps[0].LoopType)
	})

	t.Run("error propagation", func(t *testing.T) {
		_, err := automator.LoadWorkflows("/nonexistent/file.yaml")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, automator.Validate(ordersWorkflow()))

	unnamed := ordersWorkflow()
	unnamed.Name = ""
	assert.Error(t, automator.Validate(unnamed))

	dup := automator.NewWorkflow("dup")
	dup.AddStep(automator.CustomCodeStep("a", "A", "pass").Build())
	dup.AddStep(automator.CustomCodeStep("a", "B", "pass").Build())
	assert.Error(t, automator.Validate(dup))
}

func TestGenerate(t *testing.T) {
	script, err := automator.Generate(ordersWorkflow(), nil)
	require.NoError(t, err)
	assert.True(t, script.Valid)
	assert.Empty(t, script.Path)
	assert.Equal(t, "orders", script.Workflow)

	assert.Contains(t, script.Text, "def load(context):")
	assert.Contains(t, script.Text, "    while attempt < 3:\n")
	assert.Contains(t, script.Text, "time.sleep(5)")
	assert.Contains(t, script.Text, "context['active'] = [row for row in context['load'] if (row['status'] == 'active')]")
	assert.Contains(t, script.Text, "json.dump(rows, handle, indent=2, default=str)")
	assert.Contains(t, script.Text, "logging.error('Task save marked critical - check results')")
}

func TestGenerateInvalid(t *testing.T) {
	wf := automator.NewWorkflow("broken")
	wf.AddStep(automator.CustomCodeStep("a", "A", "pass").WithHandler("except:").Build())

	script, err := automator.Generate(wf, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, automator.ErrInvalidScript))
	require.NotNil(t, script)
	assert.False(t, script.Valid)
	assert.NotEmpty(t, script.SyntaxError)
}

func TestCompileWith(t *testing.T) {
	out := t.TempDir()
	result, err := automator.CompileWith([]*automator.Workflow{ordersWorkflow()},
		automator.WithOutputDir(out),
		automator.WithOutputName("orders_job"),
		automator.WithTemplate(),
	)
	require.NoError(t, err)
	require.Len(t, result.Scripts, 1)
	assert.Equal(t, filepath.Join(out, "orders_job.py"), result.Scripts[0].Path)

	_, err = os.Stat(filepath.Join(out, "orders_job_template.json"))
	assert.NoError(t, err)

	reloaded, err := automator.LoadWorkflows(filepath.Join(out, "orders_job_template.json"))
	require.NoError(t, err)
	assert.Equal(t, "orders", reloaded[0].Name)
	assert.Equal(t, 5, reloaded[0].Steps[0].RetryDelay)
}

func TestCompileKeepsInvalidScriptsOutOfOutput(t *testing.T) {
	out := t.TempDir()
	wf := automator.NewWorkflow("broken")
	wf.AddStep(automator.CustomCodeStep("a", "A", "for x in\n    pass").Build())

	result, err := automator.Compile([]*automator.Workflow{wf}, &automator.CompileOptions{OutputDir: out})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Scripts[0].Path)
	assert.NotEmpty(t, result.Scripts[0].SyntaxError)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompileWithSMTPAndModule(t *testing.T) {
	wf := automator.NewWorkflow("alerts")
	wf.AddStep(automator.CustomFunctionStep("fetch", "Fetch", "download").
		WithParam("host", "sftp.example.com").
		WithAlert("ops@example.com").
		Build())

	result, err := automator.CompileWith([]*automator.Workflow{wf},
		automator.WithSkipWrite(),
		automator.WithModule("helpers.py"),
		automator.WithSMTP("smtp.example.com", 465, "bot", "pw"),
	)
	require.NoError(t, err)
	text := result.Scripts[0].Text
	assert.Contains(t, text, "spec_from_file_location('custom', 'helpers.py')")
	assert.Contains(t, text, "send_alert('Alert: fetch', 'Task Fetch reported issue', ['ops@example.com'])")
	assert.Empty(t, result.Scripts[0].Warnings)
}

func TestParseTasksAndDraft(t *testing.T) {
	wf := automator.ParseTasks("Load orders.csv\n\nExport to report.csv\nPraise the team")
	require.Len(t, wf.Steps, 3)
	assert.True(t, strings.HasPrefix(wf.Name, "workflow_"))

	drafted, warnings := automator.Draft(context.Background(), wf)
	assert.Equal(t, automator.KindLoadData, drafted.Steps[0].Kind)
	assert.Equal(t, "orders.csv", drafted.Steps[0].Params["file"])
	assert.Equal(t, automator.KindExport, drafted.Steps[1].Kind)
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "step_3: "))
	assert.Equal(t, automator.StepKind(""), wf.Steps[0].Kind)
}

func TestSaveWorkflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, automator.SaveWorkflow(path, ordersWorkflow()))

	loaded, err := automator.LoadWorkflows(path)
	require.NoError(t, err)
	assert.Equal(t, "row['status'] == 'active'", loaded[0].Steps[1].Params["condition"])
}

func TestGenerateWithInterpreter(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	script, err := automator.Generate(ordersWorkflow(), automator.ApplyOptions(automator.WithInterpreter("python3")))
	require.NoError(t, err)
	assert.True(t, script.Valid)
}

func TestCompileFileErrorHandling(t *testing.T) {
	_, err := automator.CompileFile("/nonexistent/file.yaml", nil)
	assert.Error(t, err)
}
