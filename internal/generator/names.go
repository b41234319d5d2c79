package generator

import (
	"fmt"
	"strings"
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
	"match": true, "case": true, "type": true,
}

// reservedNames are module-level names the generated script defines or uses.
// A step function with one of these names would shadow it.
var reservedNames = map[string]bool{
	"logging": true, "time": true, "csv": true, "json": true, "smtplib": true,
	"importlib": true, "EmailMessage": true, "custom": true,
	"send_alert": true, "resolve_function": true, "run_workflow": true,
	"context": true, "params": true, "attempt": true, "item": true,
	"open": true, "len": true, "list": true, "range": true, "globals": true,
	"getattr": true, "hasattr": true, "Exception": true, "print": true,
	"str": true, "int": true, "float": true, "dict": true,
}

// identifier maps a step id to a Python function name. index is the step's
// zero-based position, used when the id has no usable characters.
func identifier(id string, index int) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if strings.Trim(name, "_") == "" {
		return fmt.Sprintf("step_%d", index+1)
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "step_" + name
	}
	if pythonKeywords[name] || reservedNames[name] || isDunder(name) {
		name += "_step"
	}
	return name
}

// isDunder reports names like __name__ that Python gives a module-level
// meaning.
func isDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// functionNames returns one distinct function name per step id, in order.
// Collisions after sanitizing get a numeric suffix.
func functionNames(ids []string) []string {
	used := make(map[string]bool, len(ids))
	names := make([]string, len(ids))
	for i, id := range ids {
		base := identifier(id, i)
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
