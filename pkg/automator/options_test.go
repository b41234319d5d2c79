package automator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LiboWorks/task-automator/pkg/automator"
)

func TestDefaultOptions(t *testing.T) {
	opts := automator.DefaultOptions()

	if opts.OutputDir != "." {
		t.Errorf("expected default OutputDir '.', got %s", opts.OutputDir)
	}
	if opts.OutputName != "" {
		t.Errorf("expected empty OutputName, got %s", opts.OutputName)
	}
	if opts.SkipWrite {
		t.Error("SkipWrite should be false by default")
	}
	if opts.SMTP != nil {
		t.Error("SMTP should be unset by default")
	}
}

func TestApplyOptionsChaining(t *testing.T) {
	opts := automator.ApplyOptions(
		automator.WithOutputDir("./dist"),
		automator.WithOutputName("job"),
		automator.WithModule("helpers.py"),
		automator.WithSMTP("smtp.example.com", 465, "bot", "pw"),
		automator.WithInterpreter("python3"),
		automator.WithSkipWrite(),
		automator.WithTemplate(),
	)

	assert.Equal(t, "./dist", opts.OutputDir)
	assert.Equal(t, "job", opts.OutputName)
	assert.Equal(t, "helpers.py", opts.ModulePath)
	assert.Equal(t, &automator.SMTPSettings{Host: "smtp.example.com", Port: 465, Username: "bot", Password: "pw"}, opts.SMTP)
	assert.Equal(t, "python3", opts.Python)
	assert.True(t, opts.SkipWrite)
	assert.True(t, opts.SaveTemplate)
}

func TestStepBuilder(t *testing.T) {
	step := automator.FilterStep("keep", "Keep", "row['n'] > 1").
		WithSource("load").
		ForEach("range(2)").
		WithRetry(2, 0).
		WithHandler("pass").
		WithAlert("a@example.com", "b@example.com").
		Build()

	assert.Equal(t, automator.KindFilter, step.Kind)
	assert.Equal(t, "load", step.Params["source"])
	assert.Equal(t, automator.LoopFor, step.LoopType)
	assert.Equal(t, "range(2)", step.LoopExpr)
	assert.Equal(t, 2, step.RetryCount)
	assert.Equal(t, "pass", step.ExceptionHandler)
	assert.Len(t, step.AlertRecipients, 2)

	w := automator.CustomCodeStep("w", "Wait", "pass").While("False").Build()
	assert.Equal(t, automator.LoopWhile, w.LoopType)
}
