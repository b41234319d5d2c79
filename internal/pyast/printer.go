package pyast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const indentUnit = "    "

// Render prints the module as Python source. Empty blocks are filled with
// `pass`, so every tree renders to text with a valid block structure.
func Render(m *Module) string {
	p := &printer{}
	for i, s := range m.Body {
		if i > 0 && needsSeparation(m.Body[i-1], s) {
			p.buf.WriteString("\n\n")
		}
		p.stmt(s)
	}
	return p.buf.String()
}

// needsSeparation reports whether two top-level statements are separated by
// two blank lines (around definitions and the entry-point guard).
func needsSeparation(prev, next Stmt) bool {
	switch prev.(type) {
	case *FuncDef:
		return true
	case *Blank:
		return false
	}
	switch next.(type) {
	case *FuncDef, *If:
		return true
	}
	return false
}

type printer struct {
	buf   strings.Builder
	depth int
}

func (p *printer) line(text string) {
	if text == "" {
		p.buf.WriteByte('\n')
		return
	}
	p.buf.WriteString(strings.Repeat(indentUnit, p.depth))
	p.buf.WriteString(text)
	p.buf.WriteByte('\n')
}

func (p *printer) block(body []Stmt) {
	p.depth++
	defer func() { p.depth-- }()
	if !hasCode(body) {
		// keep comments, but a block needs at least one statement
		for _, s := range body {
			p.stmt(s)
		}
		p.line("pass")
		return
	}
	for _, s := range body {
		p.stmt(s)
	}
}

// hasCode reports whether body contains a statement Python counts as code.
func hasCode(body []Stmt) bool {
	for _, s := range body {
		switch n := s.(type) {
		case *Comment, *Blank:
			continue
		case *Raw:
			if rawHasCode(n.Src) {
				return true
			}
		default:
			return true
		}
	}
	return false
}

func rawHasCode(src string) bool {
	for _, l := range strings.Split(src, "\n") {
		l = strings.TrimSpace(l)
		if l != "" && !strings.HasPrefix(l, "#") {
			return true
		}
	}
	return false
}

func (p *printer) stmt(s Stmt) {
	switch n := s.(type) {
	case *Import:
		p.line("import " + strings.Join(n.Names, ", "))
	case *FromImport:
		p.line("from " + n.Module + " import " + strings.Join(n.Names, ", "))
	case *Assign:
		p.line(expr(n.Target) + " = " + expr(n.Value))
	case *AugAssign:
		p.line(expr(n.Target) + " " + n.Op + "= " + expr(n.Value))
	case *ExprStmt:
		p.line(expr(n.X))
	case *Pass:
		p.line("pass")
	case *Break:
		p.line("break")
	case *Return:
		if n.Value == nil {
			p.line("return")
		} else {
			p.line("return " + expr(n.Value))
		}
	case *If:
		p.line("if " + expr(n.Cond) + ":")
		p.block(n.Body)
		if len(n.Else) > 0 {
			p.line("else:")
			p.block(n.Else)
		}
	case *For:
		p.line("for " + n.Target + " in " + expr(n.Iter) + ":")
		p.block(n.Body)
	case *While:
		p.line("while " + expr(n.Cond) + ":")
		p.block(n.Body)
		if len(n.Else) > 0 {
			p.line("else:")
			p.block(n.Else)
		}
	case *Try:
		p.line("try:")
		p.block(n.Body)
		handlers := n.Handlers
		if len(handlers) == 0 {
			handlers = []ExceptHandler{{Type: N("Exception")}}
		}
		for _, h := range handlers {
			head := "except"
			if h.Type != nil {
				head += " " + expr(h.Type)
				if h.Name != "" {
					head += " as " + h.Name
				}
			}
			p.line(head + ":")
			p.block(h.Body)
		}
	case *With:
		head := "with " + expr(n.Item)
		if n.As != "" {
			head += " as " + n.As
		}
		p.line(head + ":")
		p.block(n.Body)
	case *FuncDef:
		p.line("def " + n.Name + "(" + strings.Join(n.Params, ", ") + "):")
		p.block(n.Body)
	case *Comment:
		for _, l := range strings.Split(n.Text, "\n") {
			p.line(strings.TrimRight("# "+l, " "))
		}
	case *Raw:
		for _, l := range dedentLines(n.Src) {
			if l.verbatim {
				p.buf.WriteString(l.text)
				p.buf.WriteByte('\n')
				continue
			}
			p.line(l.text)
		}
	case *Blank:
		p.line("")
	default:
		panic(fmt.Sprintf("pyast: unknown statement %T", s))
	}
}

// Dedent splits src into lines, drops leading and trailing blank lines and
// removes the whitespace prefix common to all non-blank lines. Blank lines
// inside the fragment come back empty. Lines that start inside a
// triple-quoted string are part of the string's value and come back
// untouched.
func Dedent(src string) []string {
	lines := dedentLines(src)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

type rawLine struct {
	text string
	// verbatim lines continue a string literal and must not be re-indented.
	verbatim bool
}

func dedentLines(src string) []rawLine {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.Split(src, "\n")
	inString := stringContinuations(lines)
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines, inString = lines[1:], inString[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" && !inString[len(lines)-1] {
		lines, inString = lines[:len(lines)-1], inString[:len(lines)-1]
	}

	prefix := ""
	first := true
	for i, l := range lines {
		if strings.TrimSpace(l) == "" || inString[i] {
			continue
		}
		lead := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if first {
			prefix, first = lead, false
			continue
		}
		prefix = commonPrefix(prefix, lead)
	}

	out := make([]rawLine, len(lines))
	for i, l := range lines {
		switch {
		case inString[i]:
			out[i] = rawLine{text: l, verbatim: true}
		case strings.TrimSpace(l) == "":
		default:
			out[i] = rawLine{text: strings.TrimRight(strings.TrimPrefix(l, prefix), " \t")}
		}
	}
	return out
}

// stringContinuations reports, per line, whether the line starts inside a
// triple-quoted string literal. Comments and single-line strings are skipped
// so quotes inside them do not count.
func stringContinuations(lines []string) []bool {
	out := make([]bool, len(lines))
	var triple string // closing delimiter of the open triple-quoted string
	for i, l := range lines {
		out[i] = triple != ""
		for j := 0; j < len(l); j++ {
			c := l[j]
			if triple != "" {
				switch {
				case c == '\\':
					j++
				case strings.HasPrefix(l[j:], triple):
					j += len(triple) - 1
					triple = ""
				}
				continue
			}
			switch c {
			case '#':
				j = len(l)
			case '\'', '"':
				if delim := l[j : j+1]; strings.HasPrefix(l[j:], strings.Repeat(delim, 3)) {
					triple = strings.Repeat(delim, 3)
					j += 2
					continue
				}
				// single-line string: skip to its closing quote
				for j++; j < len(l) && l[j] != c; j++ {
					if l[j] == '\\' {
						j++
					}
				}
			}
		}
	}
	return out
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

func expr(e Expr) string {
	switch n := e.(type) {
	case *Name:
		return n.ID
	case *Str:
		return Quote(n.Value)
	case *Int:
		return strconv.FormatInt(n.Value, 10)
	case *Number:
		return n.Text
	case *Bool:
		if n.Value {
			return "True"
		}
		return "False"
	case *None:
		return "None"
	case *Attr:
		return expr(n.X) + "." + n.Name
	case *Call:
		args := make([]string, 0, len(n.Args)+len(n.Keywords)+1)
		for _, a := range n.Args {
			args = append(args, expr(a))
		}
		for _, k := range n.Keywords {
			args = append(args, k.Name+"="+expr(k.Value))
		}
		if n.Kwargs != nil {
			args = append(args, "**"+expr(n.Kwargs))
		}
		return expr(n.Func) + "(" + strings.Join(args, ", ") + ")"
	case *List:
		elts := make([]string, len(n.Elts))
		for i, x := range n.Elts {
			elts[i] = expr(x)
		}
		return "[" + strings.Join(elts, ", ") + "]"
	case *Dict:
		items := make([]string, len(n.Keys))
		for i := range n.Keys {
			items[i] = expr(n.Keys[i]) + ": " + expr(n.Values[i])
		}
		return "{" + strings.Join(items, ", ") + "}"
	case *Subscript:
		return expr(n.X) + "[" + expr(n.Index) + "]"
	case *BinOp:
		return operand(n.X) + " " + n.Op + " " + operand(n.Y)
	case *Compare:
		return operand(n.X) + " " + n.Op + " " + operand(n.Y)
	case *ListComp:
		s := "[" + expr(n.Elt) + " for " + n.Target + " in " + expr(n.Iter)
		if n.Cond != nil {
			s += " if " + expr(n.Cond)
		}
		return s + "]"
	case *Paren:
		if r, ok := n.X.(*RawExpr); ok && ownLines(r.Src) {
			return "(\n" + r.Src + "\n)"
		}
		return "(" + expr(n.X) + ")"
	case *RawExpr:
		return n.Src
	default:
		panic(fmt.Sprintf("pyast: unknown expression %T", e))
	}
}

func operand(e Expr) string {
	switch e.(type) {
	case *BinOp, *Compare, *RawExpr:
		return expr(&Paren{X: e})
	}
	return expr(e)
}

// ownLines reports whether operator text has to sit on its own lines inside
// parentheses: a comment or a line continuation would otherwise swallow the
// closing token that follows it, and line breaks need the brackets.
func ownLines(src string) bool {
	return strings.ContainsAny(src, "#\n\\")
}

// Quote renders s as a Python string literal. Single quotes are preferred,
// as Python's repr does.
func Quote(s string) string {
	q := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.WriteRune(q)
	for _, r := range s {
		switch {
		case r == q || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case !unicode.IsPrint(r):
			switch {
			case r < 0x100:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r < 0x10000:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(q)
	return b.String()
}
