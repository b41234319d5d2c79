package pycheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/LiboWorks/task-automator/internal/backend"
)

// checkerScript reports a SyntaxError as "line<TAB>offset<TAB>message".
const checkerScript = `import ast
import sys

try:
    with open(sys.argv[1], encoding='utf-8') as handle:
        ast.parse(handle.read(), sys.argv[1], sys.argv[2])
except SyntaxError as e:
    print('%s\t%s\t%s' % (e.lineno or 0, e.offset or 0, e.msg))
    sys.exit(3)
`

// syntaxExit is the exit status checkerScript uses for grammar errors.
const syntaxExit = 3

// InterpreterValidator asks a real Python interpreter to parse the source.
// It is slower than GrammarValidator but follows the installed Python's
// grammar exactly.
type InterpreterValidator struct {
	shell   backend.ShellBackend
	python  string
	timeout time.Duration
}

// NewInterpreterValidator runs python (default "python3") through shell.
func NewInterpreterValidator(shell backend.ShellBackend, python string) *InterpreterValidator {
	if python == "" {
		python = "python3"
	}
	return &InterpreterValidator{shell: shell, python: python, timeout: 30 * time.Second}
}

// CheckProgram implements Validator.
func (v *InterpreterValidator) CheckProgram(src string) error {
	return v.check(src, "exec")
}

// CheckExpression implements Validator.
func (v *InterpreterValidator) CheckExpression(src string) error {
	return v.check(strings.TrimSpace(src), "eval")
}

func (v *InterpreterValidator) check(src, mode string) error {
	dir, err := os.MkdirTemp("", "pycheck-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	checker := filepath.Join(dir, "check.py")
	source := filepath.Join(dir, "source.py")
	if err := os.WriteFile(checker, []byte(checkerScript), 0644); err != nil {
		return fmt.Errorf("write checker: %w", err)
	}
	if err := os.WriteFile(source, []byte(src), 0644); err != nil {
		return fmt.Errorf("write source: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	command := strings.Join([]string{shellQuote(v.python), shellQuote(checker), shellQuote(source), mode}, " ")
	out, err := v.shell.Run(ctx, command)
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == syntaxExit {
		if se, ok := parseCheckerOutput(out); ok {
			if lines := strings.Split(src, "\n"); se.Line > 0 && se.Line <= len(lines) {
				se.Text = lines[se.Line-1]
			}
			return se
		}
	}
	return fmt.Errorf("run %s: %w", v.python, err)
}

// parseCheckerOutput reads the last tab separated report line, if any.
func parseCheckerOutput(out string) (*SyntaxError, bool) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		parts := strings.SplitN(lines[i], "\t", 3)
		if len(parts) != 3 {
			continue
		}
		line, err1 := strconv.Atoi(parts[0])
		col, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		return &SyntaxError{Message: parts[2], Line: line, Column: col}, true
	}
	return nil, false
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// CrossChecked accepts what Grammar accepts. A grammar rejection is confirmed
// with Interpreter, which follows the installed Python grammar such as
// f-strings and assignment expressions. When the interpreter
// cannot run, the rejection stands.
type CrossChecked struct {
	Grammar     Validator
	Interpreter Validator
}

// CheckProgram implements Validator.
func (v *CrossChecked) CheckProgram(src string) error {
	return v.check(src, Validator.CheckProgram)
}

// CheckExpression implements Validator.
func (v *CrossChecked) CheckExpression(src string) error {
	return v.check(src, Validator.CheckExpression)
}

func (v *CrossChecked) check(src string, run func(Validator, string) error) error {
	err := run(v.Grammar, src)
	if _, ok := AsSyntaxError(err); !ok || v.Interpreter == nil {
		return err
	}
	ierr := run(v.Interpreter, src)
	if ierr == nil {
		return nil
	}
	if _, ok := AsSyntaxError(ierr); ok {
		return ierr
	}
	return err
}

// Default returns the in-memory grammar check, cross-checked with python
// (default "python3") when that interpreter is installed. A nil shell runs
// it through sh.
func Default(shell backend.ShellBackend, python string) Validator {
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		return New()
	}
	if shell == nil {
		shell = backend.NewShellBackend(backend.ShellConfig{})
	}
	return &CrossChecked{Grammar: New(), Interpreter: NewInterpreterValidator(shell, python)}
}
