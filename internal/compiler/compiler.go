// Package compiler implements the compilation engine: a recursive-descent
// parser with one-token lookahead that drives the tokenizer, symbol
// table, and VM writer together and emits VM code inline, without ever
// building an explicit parse tree.
package compiler

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf16"

	"github.com/kirkdrichardson/jackc/internal/diag"
	"github.com/kirkdrichardson/jackc/internal/symtable"
	"github.com/kirkdrichardson/jackc/internal/token"
	"github.com/kirkdrichardson/jackc/internal/tokenizer"
	"github.com/kirkdrichardson/jackc/internal/vmwriter"
)

// Scanner is the subset of *tokenizer.Tokenizer the engine depends on,
// broken out as an interface purely so tests can substitute a scripted
// token sequence.
type Scanner interface {
	Scan() bool
	Token() token.Token
	Err() error
}

// Engine compiles one Jack class to VM code. It owns one tokenizer, one
// VM writer, the class- and subroutine-scope symbol tables, and the
// small amount of running context (current class/subroutine name, the
// label counter) the grammar productions share.
type Engine struct {
	scanner Scanner
	out     *vmwriter.Writer
	scopes  *symtable.Scopes

	className      string
	subroutineName string
	nextLabel      int

	file   string
	source string

	cur token.Token
}

// New creates an Engine reading tokens from scanner and writing VM
// instructions to out.
func New(scanner Scanner, out *vmwriter.Writer) *Engine {
	return &Engine{scanner: scanner, out: out, scopes: symtable.New()}
}

// WithContext attaches the originating file name and source text, used
// only to enrich diagnostics (file name and source line in error output).
func (e *Engine) WithContext(file, source string) *Engine {
	e.file = file
	e.source = source
	return e
}

// Compile compiles a single class declaration. It recovers internal
// *diag.Error panics (the engine's abort-on-first-error mechanism) and
// returns them as an ordinary error; any other panic is a programming
// bug and is allowed to propagate.
func (e *Engine) Compile() (err error) {
	defer func() {
		// The sink must be closed on every exit path, success or error.
		e.out.Close()

		if r := recover(); r != nil {
			if cerr, ok := r.(*diag.Error); ok {
				err = cerr
				return
			}
			panic(r)
		}
	}()

	e.advance()
	e.compileClass()
	return nil
}

// --- token cursor -----------------------------------------------------

func (e *Engine) advance() token.Token {
	if !e.scanner.Scan() {
		if scanErr := e.scanner.Err(); scanErr != nil {
			e.abort(&diag.Error{
				Category:   diag.Lexical,
				Message:    scanErr.Error(),
				Class:      e.className,
				Subroutine: e.subroutineName,
				Pos:        e.cur.Pos,
				File:       e.file,
				Source:     e.source,
			})
		}
		e.cur = token.Token{}
		return e.cur
	}
	e.cur = e.scanner.Token()
	return e.cur
}

func (e *Engine) abort(err *diag.Error) {
	panic(err)
}

// mustAdd declares a variable in table, panicking only on the
// genuinely unreachable "unknown kind" path (an internal bug, since
// every call site below passes a fixed, valid Kind constant).
func mustAdd(table *symtable.Table, name, typ string, kind symtable.Kind) symtable.Info {
	info, err := table.Add(name, typ, kind)
	if err != nil {
		panic(err)
	}
	return info
}

// expect verifies the current token equals terminal, then advances.
func (e *Engine) expect(terminal string) {
	if !e.cur.Is(terminal) {
		e.abort(diag.Expect(e.cur.Pos, e.className, e.subroutineName, terminal, e.cur.Text))
	}
	e.advance()
}

// expectKind verifies the current token has the given kind, then returns
// the token without advancing (callers call advance() themselves).
func (e *Engine) expectKind(kind token.Kind, what string) token.Token {
	if e.cur.Kind != kind {
		e.abort(&diag.Error{
			Category:   diag.AccessorMisuse,
			Message:    fmt.Sprintf("expected %s, got %q", what, e.cur.Text),
			Class:      e.className,
			Subroutine: e.subroutineName,
			Pos:        e.cur.Pos,
			File:       e.file,
			Source:     e.source,
		})
	}
	return e.cur
}

func (e *Engine) label() string {
	e.nextLabel++
	return strconv.Itoa(e.nextLabel)
}

// --- kind-to-segment mapping (single point of truth) -------------------

func segmentFor(kind symtable.Kind) vmwriter.Segment {
	switch kind {
	case symtable.Static:
		return vmwriter.Static
	case symtable.Field:
		return vmwriter.This
	case symtable.Arg:
		return vmwriter.Argument
	case symtable.Var:
		return vmwriter.Local
	default:
		panic(fmt.Sprintf("segmentFor: unknown kind %v", kind))
	}
}

// lookup resolves name against the subroutine then class table, aborting
// with a semantic error if it is undeclared.
func (e *Engine) lookup(name string) symtable.Info {
	info, ok := e.scopes.Find(name)
	if !ok {
		e.abort(diag.Undeclared(e.cur.Pos, e.className, e.subroutineName, name))
	}
	return info
}

// --- class ---------------------------------------------------------

func (e *Engine) compileClass() {
	e.expect("class")

	e.scopes.Class.Reset()

	nameTok := e.expectKind(token.Identifier, "class name")
	e.className = nameTok.Text
	e.advance()

	e.expect("{")

	for e.cur.IsAny("static", "field") {
		e.compileClassVarDec()
	}
	for e.cur.IsAny("constructor", "function", "method") {
		e.compileSubroutine()
	}

	if !e.cur.Is("}") {
		e.abort(diag.Expect(e.cur.Pos, e.className, "", "}", e.cur.Text))
	}
	// Do not consume past the trailing '}': EOF follows.
}

func (e *Engine) compileClassVarDec() {
	var kind symtable.Kind
	switch {
	case e.cur.Is("static"):
		kind = symtable.Static
	case e.cur.Is("field"):
		kind = symtable.Field
	default:
		e.abort(diag.Expect(e.cur.Pos, e.className, "", "static or field", e.cur.Text))
	}
	e.advance()

	typ := e.compileType()

	for {
		name := e.compileIdentifier()
		mustAdd(e.scopes.Class, name, typ, kind)
		if !e.cur.Is(",") {
			break
		}
		e.advance()
	}
	e.expect(";")
}

func (e *Engine) compileType() string {
	if e.cur.IsAny("int", "char", "boolean") {
		t := e.cur.Text
		e.advance()
		return t
	}
	return e.compileIdentifier()
}

func (e *Engine) compileIdentifier() string {
	tok := e.expectKind(token.Identifier, "identifier")
	e.advance()
	return tok.Text
}

// --- subroutines -----------------------------------------------------

type subroutineKind int

const (
	skConstructor subroutineKind = iota
	skFunction
	skMethod
)

func (e *Engine) compileSubroutine() {
	e.scopes.Subroutine.Reset()

	var sk subroutineKind
	switch {
	case e.cur.Is("constructor"):
		sk = skConstructor
	case e.cur.Is("function"):
		sk = skFunction
	case e.cur.Is("method"):
		sk = skMethod
	default:
		e.abort(diag.Expect(e.cur.Pos, e.className, "", "constructor, function, or method", e.cur.Text))
	}

	if sk == skMethod {
		// Synthetic zeroth argument: the receiver.
		mustAdd(e.scopes.Subroutine, "this", e.className, symtable.Arg)
	}
	e.advance()

	// Return type: 'void' or a type; not otherwise used by codegen.
	if e.cur.Is("void") {
		e.advance()
	} else {
		e.compileType()
	}

	name := e.compileIdentifier()
	e.subroutineName = name

	e.expect("(")
	if !e.cur.Is(")") {
		e.compileParameterList()
	}
	e.expect(")")

	e.expect("{")

	nLocals := 0
	for e.cur.Is("var") {
		nLocals += e.compileVarDec()
	}

	e.out.WriteFunction(e.className+"."+name, nLocals)

	switch sk {
	case skConstructor:
		nFields := e.scopes.Class.VarCount(symtable.Field)
		e.out.WritePush(vmwriter.Constant, nFields)
		e.out.WriteCall("Memory.alloc", 1)
		e.out.WritePop(vmwriter.Pointer, 0)
	case skMethod:
		e.out.WritePush(vmwriter.Argument, 0)
		e.out.WritePop(vmwriter.Pointer, 0)
	}

	e.compileStatements()
	e.expect("}")

	e.subroutineName = ""
}

func (e *Engine) compileParameterList() {
	for {
		typ := e.compileType()
		name := e.compileIdentifier()
		mustAdd(e.scopes.Subroutine, name, typ, symtable.Arg)
		if !e.cur.Is(",") {
			break
		}
		e.advance()
	}
}

// compileVarDec consumes one "var type name (, name)* ;" declaration and
// returns the count of names declared.
func (e *Engine) compileVarDec() int {
	e.expect("var")
	typ := e.compileType()

	count := 0
	for {
		name := e.compileIdentifier()
		mustAdd(e.scopes.Subroutine, name, typ, symtable.Var)
		count++
		if !e.cur.Is(",") {
			break
		}
		e.advance()
	}
	e.expect(";")
	return count
}

// --- statements ------------------------------------------------------

func (e *Engine) compileStatements() {
	for e.cur.IsAny("let", "if", "while", "do", "return") {
		switch {
		case e.cur.Is("let"):
			e.compileLet()
		case e.cur.Is("if"):
			e.compileIf()
		case e.cur.Is("while"):
			e.compileWhile()
		case e.cur.Is("do"):
			e.compileDo()
		case e.cur.Is("return"):
			e.compileReturn()
		}
	}
}

func (e *Engine) compileLet() {
	e.expect("let")
	name := e.compileIdentifier()

	if e.cur.Is("[") {
		info := e.lookup(name)
		e.out.WritePush(segmentFor(info.Kind), info.Index)
		e.advance()
		e.compileExpression()
		e.expect("]")
		e.out.WriteArithmetic(vmwriter.Add)

		e.expect("=")
		e.compileExpression()
		e.expect(";")

		e.out.WritePop(vmwriter.Temp, 0)
		e.out.WritePop(vmwriter.Pointer, 1)
		e.out.WritePush(vmwriter.Temp, 0)
		e.out.WritePop(vmwriter.That, 0)
		return
	}

	e.expect("=")
	e.compileExpression()
	e.expect(";")

	info := e.lookup(name)
	e.out.WritePop(segmentFor(info.Kind), info.Index)
}

func (e *Engine) compileIf() {
	e.expect("if")
	e.expect("(")
	e.compileExpression()
	e.expect(")")

	e.out.WriteArithmetic(vmwriter.Not)
	n := e.label()
	startLabel := "IF_START_" + n
	endLabel := "IF_END_" + n
	e.out.WriteIf(startLabel)

	e.expect("{")
	e.compileStatements()
	e.expect("}")

	e.out.WriteGoto(endLabel)
	e.out.WriteLabel(startLabel)

	if e.cur.Is("else") {
		e.advance()
		e.expect("{")
		e.compileStatements()
		e.expect("}")
	}

	e.out.WriteLabel(endLabel)
}

func (e *Engine) compileWhile() {
	n := e.label()
	startLabel := "WHILE_START_" + n
	endLabel := "WHILE_END_" + n

	e.expect("while")
	e.expect("(")
	e.out.WriteLabel(startLabel)

	e.compileExpression()
	e.expect(")")

	e.out.WriteArithmetic(vmwriter.Not)
	e.out.WriteIf(endLabel)

	e.expect("{")
	e.compileStatements()
	e.expect("}")

	e.out.WriteGoto(startLabel)
	e.out.WriteLabel(endLabel)
}

func (e *Engine) compileDo() {
	e.expect("do")
	name := e.compileIdentifier()
	e.compileSubroutineCall(name)
	e.out.WritePop(vmwriter.Temp, 0)
	e.expect(";")
}

func (e *Engine) compileReturn() {
	e.expect("return")
	if e.cur.Is(";") {
		e.out.WritePush(vmwriter.Constant, 0)
	} else {
		e.compileExpression()
	}
	e.out.WriteReturn()
	e.expect(";")
}

// --- expressions -------------------------------------------------------

var binaryOps = map[string]vmwriter.Op{
	"+": vmwriter.Add, "-": vmwriter.Sub, "&": vmwriter.And,
	"|": vmwriter.Or, "<": vmwriter.Lt, ">": vmwriter.Gt, "=": vmwriter.Eq,
}

func (e *Engine) compileExpression() {
	e.compileTerm()
	for {
		if op, ok := binaryOps[e.cur.Text]; ok && e.cur.Kind == token.Symbol {
			e.advance()
			e.compileTerm()
			e.out.WriteArithmetic(op)
			continue
		}
		if e.cur.Is("*") {
			e.advance()
			e.compileTerm()
			e.out.WriteCall("Math.multiply", 2)
			continue
		}
		if e.cur.Is("/") {
			e.advance()
			e.compileTerm()
			e.out.WriteCall("Math.divide", 2)
			continue
		}
		break
	}
}

// compileExpressionList compiles a comma-separated, possibly empty
// expression list and returns the count of expressions compiled.
func (e *Engine) compileExpressionList() int {
	if e.cur.Is(")") {
		return 0
	}
	count := 1
	e.compileExpression()
	for e.cur.Is(",") {
		e.advance()
		e.compileExpression()
		count++
	}
	return count
}

func (e *Engine) compileTerm() {
	switch {
	case e.cur.Kind == token.IntegerConstant:
		e.out.WritePush(vmwriter.Constant, e.cur.IntVal)
		e.advance()

	case e.cur.Kind == token.StringConstant:
		e.compileStringConstant(e.cur.Text)
		e.advance()

	case e.cur.Kind == token.Keyword:
		switch {
		case e.cur.Is("true"):
			e.out.WritePush(vmwriter.Constant, 1)
			e.out.WriteArithmetic(vmwriter.Neg)
		case e.cur.Is("false"), e.cur.Is("null"):
			e.out.WritePush(vmwriter.Constant, 0)
		case e.cur.Is("this"):
			e.out.WritePush(vmwriter.Pointer, 0)
		default:
			e.abort(&diag.Error{
				Category: diag.Semantic, Message: fmt.Sprintf("invalid keyword constant %q", e.cur.Text),
				Class: e.className, Subroutine: e.subroutineName, Pos: e.cur.Pos, File: e.file, Source: e.source,
			})
		}
		e.advance()

	case e.cur.Is("("):
		e.advance()
		e.compileExpression()
		e.expect(")")

	case e.cur.Is("-"):
		e.advance()
		e.compileTerm()
		e.out.WriteArithmetic(vmwriter.Neg)

	case e.cur.Is("~"):
		e.advance()
		e.compileTerm()
		e.out.WriteArithmetic(vmwriter.Not)

	case e.cur.Kind == token.Identifier:
		e.compileIdentifierTerm()

	default:
		e.abort(&diag.Error{
			Category: diag.Syntax, Message: fmt.Sprintf("unexpected token %q", e.cur.Text),
			Class: e.className, Subroutine: e.subroutineName, Pos: e.cur.Pos, File: e.file, Source: e.source,
		})
	}
}

// compileIdentifierTerm handles the three identifier-led term forms:
// array access, subroutine call, and plain variable read. It decides
// between them using one token of lookahead past the identifier.
func (e *Engine) compileIdentifierTerm() {
	name := e.cur.Text
	e.advance()

	switch {
	case e.cur.Is("["):
		info := e.lookup(name)
		e.out.WritePush(segmentFor(info.Kind), info.Index)
		e.advance()
		e.compileExpression()
		e.expect("]")
		e.out.WriteArithmetic(vmwriter.Add)
		e.out.WritePop(vmwriter.Pointer, 1)
		e.out.WritePush(vmwriter.That, 0)

	case e.cur.Is("("), e.cur.Is("."):
		e.compileSubroutineCall(name)

	default:
		info := e.lookup(name)
		e.out.WritePush(segmentFor(info.Kind), info.Index)
	}
}

// compileSubroutineCall compiles a call after its leading identifier
// "name" has already been consumed. It decides the call shape from
// whether name resolves in scope (object, baseline 1 arg, implicit
// push of the receiver) versus a bare class name (baseline 0 args) or
// an implicit method-on-self call (baseline 1 arg, push pointer 0).
func (e *Engine) compileSubroutineCall(name string) {
	callee := e.className
	baseline := 0

	switch {
	case e.cur.Is("."):
		if info, ok := e.scopes.Find(name); ok {
			e.out.WritePush(segmentFor(info.Kind), info.Index)
			callee = info.Type
			baseline = 1
		} else {
			callee = name
		}
		e.advance()
		method := e.compileIdentifier()
		callee = callee + "." + method

	case e.cur.Is("("):
		e.out.WritePush(vmwriter.Pointer, 0)
		callee = e.className + "." + name
		baseline = 1

	default:
		e.abort(diag.Expect(e.cur.Pos, e.className, e.subroutineName, "( or .", e.cur.Text))
	}

	e.expect("(")
	nArgs := baseline + e.compileExpressionList()
	e.expect(")")

	e.out.WriteCall(callee, nArgs)
}

// compileStringConstant emits the String.new/appendChar sequence for a
// string literal, one code unit at a time.
func (e *Engine) compileStringConstant(s string) {
	units := utf16.Encode([]rune(s))
	e.out.WritePush(vmwriter.Constant, len(units))
	e.out.WriteCall("String.new", 1)
	for _, c := range units {
		e.out.WritePush(vmwriter.Constant, int(c))
		e.out.WriteCall("String.appendChar", 2)
	}
}

// CompileFile reads all of src with a fresh tokenizer and writes VM
// instructions for the single class it contains to w. file is used only
// to enrich diagnostics.
func CompileFile(file, src string, w io.Writer) error {
	t := tokenizer.New(src)
	vw := vmwriter.New(w)
	eng := New(t, vw).WithContext(file, src)
	return eng.Compile()
}
