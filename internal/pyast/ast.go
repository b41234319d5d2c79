// Package pyast builds Python programs as typed trees and renders them with a
// single printer. Generated scripts are assembled from these nodes instead of
// concatenated strings, so quoting and indentation live in one place.
package pyast

// Expr is a Python expression node.
type Expr interface {
	exprNode()
}

// Stmt is a Python statement node.
type Stmt interface {
	stmtNode()
}

// Module is a whole source file.
type Module struct {
	Body []Stmt
}

// Expressions

type (
	// Name is an identifier reference.
	Name struct{ ID string }

	// Str is a string literal.
	Str struct{ Value string }

	// Int is an integer literal.
	Int struct{ Value int64 }

	// Number is a numeric literal kept verbatim, e.g. from JSON input.
	Number struct{ Text string }

	Bool struct{ Value bool }

	None struct{}

	// Attr is X.Name.
	Attr struct {
		X    Expr
		Name string
	}

	// Call is Func(Args..., Keywords..., **Kwargs).
	Call struct {
		Func     Expr
		Args     []Expr
		Keywords []Keyword
		Kwargs   Expr
	}

	List struct{ Elts []Expr }

	// Dict keeps the key order it was built with.
	Dict struct {
		Keys   []Expr
		Values []Expr
	}

	// Subscript is X[Index].
	Subscript struct {
		X     Expr
		Index Expr
	}

	// BinOp is X Op Y for arithmetic operators.
	BinOp struct {
		X  Expr
		Op string
		Y  Expr
	}

	// Compare is X Op Y for comparison operators.
	Compare struct {
		X  Expr
		Op string
		Y  Expr
	}

	// ListComp is [Elt for Target in Iter if Cond]. Cond may be nil.
	ListComp struct {
		Elt    Expr
		Target string
		Iter   Expr
		Cond   Expr
	}

	// Paren groups an expression.
	Paren struct{ X Expr }

	// RawExpr is operator supplied expression text emitted verbatim.
	RawExpr struct{ Src string }
)

// Keyword is a name=value call argument.
type Keyword struct {
	Name  string
	Value Expr
}

func (*Name) exprNode()      {}
func (*Str) exprNode()       {}
func (*Int) exprNode()       {}
func (*Number) exprNode()    {}
func (*Bool) exprNode()      {}
func (*None) exprNode()      {}
func (*Attr) exprNode()      {}
func (*Call) exprNode()      {}
func (*List) exprNode()      {}
func (*Dict) exprNode()      {}
func (*Subscript) exprNode() {}
func (*BinOp) exprNode()     {}
func (*Compare) exprNode()   {}
func (*ListComp) exprNode()  {}
func (*Paren) exprNode()     {}
func (*RawExpr) exprNode()   {}

// Statements

type (
	// Import is `import a, b`.
	Import struct{ Names []string }

	// FromImport is `from Module import Names`.
	FromImport struct {
		Module string
		Names  []string
	}

	Assign struct {
		Target Expr
		Value  Expr
	}

	// AugAssign is Target Op= Value.
	AugAssign struct {
		Target Expr
		Op     string
		Value  Expr
	}

	ExprStmt struct{ X Expr }

	Pass struct{}

	Break struct{}

	// Return with a nil Value renders a bare return.
	Return struct{ Value Expr }

	If struct {
		Cond Expr
		Body []Stmt
		Else []Stmt
	}

	For struct {
		Target string
		Iter   Expr
		Body   []Stmt
	}

	// While renders an else block only when Else is non-empty.
	While struct {
		Cond Expr
		Body []Stmt
		Else []Stmt
	}

	Try struct {
		Body     []Stmt
		Handlers []ExceptHandler
	}

	// With is `with Item as As:`.
	With struct {
		Item Expr
		As   string
		Body []Stmt
	}

	FuncDef struct {
		Name   string
		Params []string
		Body   []Stmt
	}

	// Comment renders as a `#` line.
	Comment struct{ Text string }

	// Raw is an operator supplied block emitted line by line at the current
	// indentation after removing its common leading whitespace.
	Raw struct{ Src string }

	// Blank renders an empty line.
	Blank struct{}
)

// ExceptHandler is `except Type as Name:`. A nil Type catches everything.
type ExceptHandler struct {
	Type Expr
	Name string
	Body []Stmt
}

func (*Import) stmtNode()     {}
func (*FromImport) stmtNode() {}
func (*Assign) stmtNode()     {}
func (*AugAssign) stmtNode()  {}
func (*ExprStmt) stmtNode()   {}
func (*Pass) stmtNode()       {}
func (*Break) stmtNode()      {}
func (*Return) stmtNode()     {}
func (*If) stmtNode()         {}
func (*For) stmtNode()        {}
func (*While) stmtNode()      {}
func (*Try) stmtNode()        {}
func (*With) stmtNode()       {}
func (*FuncDef) stmtNode()    {}
func (*Comment) stmtNode()    {}
func (*Raw) stmtNode()        {}
func (*Blank) stmtNode()      {}

// Helpers for the common shapes.

func N(id string) *Name { return &Name{ID: id} }

func S(v string) *Str { return &Str{Value: v} }

func I(v int) *Int { return &Int{Value: int64(v)} }

// Dotted builds a chain of attribute accesses, e.g. Dotted("logging", "info").
func Dotted(root string, attrs ...string) Expr {
	var x Expr = N(root)
	for _, a := range attrs {
		x = &Attr{X: x, Name: a}
	}
	return x
}

// CallOf calls fn with positional args.
func CallOf(fn Expr, args ...Expr) *Call {
	return &Call{Func: fn, Args: args}
}

// Index is x[key] with a string key.
func Index(x Expr, key string) *Subscript {
	return &Subscript{X: x, Index: S(key)}
}

// Do wraps a call in an expression statement.
func Do(x Expr) *ExprStmt { return &ExprStmt{X: x} }

// Embed places operator supplied expression text. Text with a comment, a
// line continuation or a line break is parenthesized on its own lines so
// nothing after it in the statement is swallowed.
func Embed(src string) Expr {
	if ownLines(src) {
		return &Paren{X: &RawExpr{Src: src}}
	}
	return &RawExpr{Src: src}
}
