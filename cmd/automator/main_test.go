package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiboWorks/task-automator/internal/workflow"
)

func TestParseEditCompile(t *testing.T) {
	dir := t.TempDir()
	tasks := filepath.Join(dir, "tasks.txt")
	require.NoError(t, os.WriteFile(tasks, []byte("Load orders.csv\nKeep rows where status = active\n\nExport to out.csv\n"), 0644))
	wfFile := filepath.Join(dir, "workflow.yaml")

	rootCmd.SetArgs([]string{"parse", "-i", tasks, "-o", wfFile, "-n", "nightly", "--draft"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"edit", wfFile, "step_1", "--retry", "2", "--delay", "1", "--critical"})
	require.NoError(t, rootCmd.Execute())

	wfs, err := workflow.LoadWorkflows(wfFile)
	require.NoError(t, err)
	require.Len(t, wfs, 1)
	assert.Equal(t, "nightly", wfs[0].Name)
	require.Len(t, wfs[0].Steps, 3)
	assert.Equal(t, workflow.KindFilter, wfs[0].Steps[1].Kind)
	assert.Equal(t, 2, wfs[0].Steps[0].Retry.Count)
	assert.True(t, wfs[0].Steps[0].Critical)

	out := filepath.Join(dir, "scripts")
	rootCmd.SetArgs([]string{"compile", "-i", wfFile, "-o", out})
	require.NoError(t, rootCmd.Execute())

	script := filepath.Join(out, "nightly.py")
	rootCmd.SetArgs([]string{"check", script})
	require.NoError(t, rootCmd.Execute())
}

func TestSelectWorkflow(t *testing.T) {
	wfs := []workflow.Workflow{{Name: "a"}, {Name: "b"}}

	_, err := selectWorkflow(wfs, "")
	assert.Error(t, err)

	i, err := selectWorkflow(wfs, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = selectWorkflow(wfs, "c")
	assert.Error(t, err)

	i, err = selectWorkflow(wfs[:1], "")
	require.NoError(t, err)
	assert.Equal(t, 0, i)
}
