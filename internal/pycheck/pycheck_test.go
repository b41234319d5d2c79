package pycheck

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiboWorks/task-automator/internal/backend"
)

func TestGrammarValidatorProgram(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		valid bool
	}{
		{"pass", "pass\n", true},
		{"retry loop", "attempt = 0\nwhile attempt < 2:\n    try:\n        run()\n        break\n    except Exception as e:\n        attempt += 1\nelse:\n    pass\n", true},
		{"undefined names", "context['x'] = never_defined()\n", true},
		{"unclosed call", "raise ValueError(\n", false},
		{"bad indent", "def f():\nreturn 1\n", false},
		{"keyword as name", "class = 1\n", false},
	}
	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckProgram(tt.src)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			_, ok := AsSyntaxError(err)
			assert.True(t, ok, "want *SyntaxError, got %T", err)
		})
	}
}

func TestGrammarValidatorExpression(t *testing.T) {
	v := New()
	assert.NoError(t, v.CheckExpression("range(3)"))
	assert.NoError(t, v.CheckExpression("  row['status'] == 'active'  "))
	assert.Error(t, v.CheckExpression("x = 1"))
	assert.Error(t, v.CheckExpression("range(3"))
}

func TestSyntaxErrorPosition(t *testing.T) {
	err := New().CheckProgram("x = 1\ny = (\n")
	se, ok := AsSyntaxError(err)
	require.True(t, ok)
	assert.NotEmpty(t, se.Message)
	assert.Contains(t, se.Error(), "syntax error")
}

func TestSyntaxErrorString(t *testing.T) {
	se := &SyntaxError{Message: "invalid syntax", Line: 3, Column: 5, Text: "  x = = 1"}
	assert.Equal(t, "syntax error at line 3, column 5: invalid syntax (x = = 1)", se.Error())
	assert.Equal(t, "syntax error: bad", (&SyntaxError{Message: "bad"}).Error())

	wrapped := fmt.Errorf("compile: %w", se)
	got, ok := AsSyntaxError(wrapped)
	require.True(t, ok)
	assert.Same(t, se, got)

	_, ok = AsSyntaxError(errors.New("other"))
	assert.False(t, ok)
}

func TestParseCheckerOutput(t *testing.T) {
	se, ok := parseCheckerOutput("noise\n4\t7\tinvalid syntax\n")
	require.True(t, ok)
	assert.Equal(t, 4, se.Line)
	assert.Equal(t, 7, se.Column)
	assert.Equal(t, "invalid syntax", se.Message)

	_, ok = parseCheckerOutput("Traceback (most recent call last):\n")
	assert.False(t, ok)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

type fakeShell struct {
	out string
	err error
	cmd string
}

func (f *fakeShell) Run(_ context.Context, command string) (string, error) {
	f.cmd = command
	return f.out, f.err
}

func (f *fakeShell) RunWithEnv(ctx context.Context, command string, _ map[string]string) (string, error) {
	return f.Run(ctx, command)
}

func TestInterpreterValidatorNonSyntaxFailure(t *testing.T) {
	shell := &fakeShell{out: "sh: python9: not found", err: errors.New("exit status 127")}
	v := NewInterpreterValidator(shell, "python9")

	err := v.CheckProgram("x = 1\n")
	require.Error(t, err)
	_, ok := AsSyntaxError(err)
	assert.False(t, ok)
	assert.Contains(t, shell.cmd, "'python9'")
	assert.Contains(t, shell.cmd, " exec")
}

func TestInterpreterValidator(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	v := NewInterpreterValidator(backend.NewShellBackend(backend.ShellConfig{}), "")

	assert.NoError(t, v.CheckProgram("def f(context):\n    return context\n"))
	assert.NoError(t, v.CheckExpression("range(3)"))

	err := v.CheckProgram("x = 1\ndef f(:\n    pass\n")
	se, ok := AsSyntaxError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 2, se.Line)
	assert.Equal(t, "def f(:", se.Text)
}

type fixedValidator struct {
	err   error
	calls int
}

func (f *fixedValidator) CheckProgram(string) error    { f.calls++; return f.err }
func (f *fixedValidator) CheckExpression(string) error { f.calls++; return f.err }

func TestCrossChecked(t *testing.T) {
	grammarErr := &SyntaxError{Message: "invalid syntax", Line: 1, Column: 7}
	interpErr := &SyntaxError{Message: "unterminated string", Line: 1, Column: 3}

	tests := []struct {
		name        string
		grammar     error
		interpreter Validator
		want        error
		asked       int
	}{
		{"grammar accepts", nil, &fixedValidator{err: interpErr}, nil, 0},
		{"interpreter overrides", grammarErr, &fixedValidator{}, nil, 1},
		{"interpreter confirms", grammarErr, &fixedValidator{err: interpErr}, interpErr, 1},
		{"interpreter unavailable", grammarErr, &fixedValidator{err: errors.New("exit status 127")}, grammarErr, 1},
		{"no interpreter", grammarErr, nil, grammarErr, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &CrossChecked{Grammar: &fixedValidator{err: tt.grammar}, Interpreter: tt.interpreter}
			assert.Equal(t, tt.want, v.CheckProgram("print(f'{x}')"))
			assert.Equal(t, tt.want, v.CheckExpression("f'{x}'"))
			if f, ok := tt.interpreter.(*fixedValidator); ok {
				assert.Equal(t, 2*tt.asked, f.calls)
			}
		})
	}
}

func TestCrossCheckedNonSyntaxGrammarError(t *testing.T) {
	boom := errors.New("boom")
	interp := &fixedValidator{}
	v := &CrossChecked{Grammar: &fixedValidator{err: boom}, Interpreter: interp}
	assert.Equal(t, boom, v.CheckProgram("x = 1"))
	assert.Zero(t, interp.calls)
}

func TestCrossCheckedModernSyntax(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	v, ok := Default(nil, "").(*CrossChecked)
	require.True(t, ok)

	assert.NoError(t, v.CheckProgram("name = 'x'\nprint(f\"hello {name}\")\n"))
	assert.NoError(t, v.CheckProgram("if (n := 3) > 2:\n    print(n)\n"))
	assert.NoError(t, v.CheckExpression("1_000 + 1"))

	err := v.CheckProgram("print(f\"{x\")\n")
	_, isSyntax := AsSyntaxError(err)
	assert.True(t, isSyntax, "got %v", err)
}

func TestDefaultWithoutInterpreter(t *testing.T) {
	_, ok := Default(nil, "python-not-installed-here").(*GrammarValidator)
	assert.True(t, ok)
}

var (
	_ Validator = (*GrammarValidator)(nil)
	_ Validator = (*InterpreterValidator)(nil)
	_ Validator = (*CrossChecked)(nil)
)
