// Package pycheck validates generated Python source against the language
// grammar before it is offered as a runnable artifact.
package pycheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"
)

// Validator checks Python source text. Implementations return a
// *SyntaxError for grammar problems.
type Validator interface {
	// CheckProgram parses src as a module.
	CheckProgram(src string) error

	// CheckExpression parses src as a single expression.
	CheckExpression(src string) error
}

// SyntaxError describes a grammar error. Line and Column are 1-based and
// zero when unknown.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
	// Text is the offending source line, when known.
	Text string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	b.WriteString("syntax error")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if t := strings.TrimSpace(e.Text); t != "" {
		fmt.Fprintf(&b, " (%s)", t)
	}
	return b.String()
}

// AsSyntaxError extracts a *SyntaxError from err.
func AsSyntaxError(err error) (*SyntaxError, bool) {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// GrammarValidator parses source in memory with gpython's Python 3 parser.
type GrammarValidator struct{}

// New returns the default in-memory validator.
func New() *GrammarValidator {
	return &GrammarValidator{}
}

// CheckProgram implements Validator.
func (GrammarValidator) CheckProgram(src string) error {
	return parse(src, false)
}

// CheckExpression implements Validator.
func (GrammarValidator) CheckExpression(src string) error {
	return parse(strings.TrimSpace(src), true)
}

func parse(src string, expression bool) (err error) {
	defer func() {
		// the parser reports some lexer failures by panicking
		if r := recover(); r != nil {
			err = &SyntaxError{Message: fmt.Sprint(r)}
		}
	}()
	var perr error
	if expression {
		_, perr = parser.ParseString(src, "eval")
	} else {
		_, perr = parser.ParseString(src, "exec")
	}
	if perr != nil {
		return fromParserError(perr, src)
	}
	return nil
}

func fromParserError(err error, src string) *SyntaxError {
	se := &SyntaxError{Message: err.Error()}

	var exc *py.Exception
	if !errors.As(err, &exc) {
		return se
	}
	if args, ok := exc.Args.(py.Tuple); ok && len(args) > 0 {
		if msg, ok := args[0].(py.String); ok {
			se.Message = string(msg)
		}
	}
	if v, ok := exc.Dict["lineno"].(py.Int); ok {
		se.Line = int(v)
	}
	if v, ok := exc.Dict["offset"].(py.Int); ok {
		se.Column = int(v)
	}
	if v, ok := exc.Dict["line"].(py.String); ok {
		se.Text = string(v)
	}
	if se.Text == "" && se.Line > 0 {
		if lines := strings.Split(src, "\n"); se.Line <= len(lines) {
			se.Text = lines[se.Line-1]
		}
	}
	return se
}
