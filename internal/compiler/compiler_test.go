package compiler_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirkdrichardson/jackc/internal/compiler"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	var buf bytes.Buffer
	err := compiler.CompileFile("test.jack", src, &buf)
	require.NoError(t, err)
	return buf.String()
}

func compileErr(t *testing.T, src string) error {
	t.Helper()
	var buf bytes.Buffer
	return compiler.CompileFile("test.jack", src, &buf)
}

// S1: an empty-bodied void function returns after pushing a dummy 0.
func TestEmptyVoidFunction(t *testing.T) {
	src := `class Foo {
		function void bar() {
			return;
		}
	}`
	want := "function Foo.bar 0\n" +
		"push constant 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

// S2: reading a static class variable.
func TestStaticVariableRead(t *testing.T) {
	src := `class Foo {
		static int count;
		function int get() {
			return count;
		}
	}`
	want := "function Foo.get 0\n" +
		"push static 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

// S3: a two-field constructor allocates, fixes up pointer 0, and
// assigns both fields before returning the new object.
func TestConstructorAllocatesAndAssignsFields(t *testing.T) {
	src := `class Point {
		field int x, y;
		constructor Point new(int ax, int ay) {
			let x = ax;
			let y = 0;
			return this;
		}
	}`
	want := "function Point.new 0\n" +
		"push constant 2\n" +
		"call Memory.alloc 1\n" +
		"pop pointer 0\n" +
		"push argument 0\n" +
		"pop this 0\n" +
		"push constant 0\n" +
		"pop this 1\n" +
		"push pointer 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

// S4: if/else compiles the true literal as -1 and threads the method
// receiver through pointer 0.
func TestIfElseWithBooleanLiteralAndMethodReceiver(t *testing.T) {
	src := `class Foo {
		method void run() {
			if (true) {
				return;
			} else {
				return;
			}
			return;
		}
	}`
	want := "function Foo.run 0\n" +
		"push argument 0\n" +
		"pop pointer 0\n" +
		"push constant 1\n" +
		"neg\n" +
		"not\n" +
		"if-goto IF_START_1\n" +
		"push constant 0\n" +
		"return\n" +
		"goto IF_END_1\n" +
		"label IF_START_1\n" +
		"push constant 0\n" +
		"return\n" +
		"label IF_END_1\n" +
		"push constant 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

// S5: a while loop comparing a local and incrementing it.
func TestWhileLoopWithComparisonAndLocalIncrement(t *testing.T) {
	src := `class Foo {
		function void loop() {
			var int i;
			let i = 0;
			while (i < 10) {
				let i = i + 1;
			}
			return;
		}
	}`
	want := "function Foo.loop 1\n" +
		"push constant 0\n" +
		"pop local 0\n" +
		"label WHILE_START_1\n" +
		"push local 0\n" +
		"push constant 10\n" +
		"lt\n" +
		"not\n" +
		"if-goto WHILE_END_1\n" +
		"push local 0\n" +
		"push constant 1\n" +
		"add\n" +
		"pop local 0\n" +
		"goto WHILE_START_1\n" +
		"label WHILE_END_1\n" +
		"push constant 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

// S6: a do-statement calling an external class method with a string
// literal argument, discarding the ignored return value.
func TestDoStatementWithStringArgumentDiscardsReturn(t *testing.T) {
	src := `class Foo {
		function void greet() {
			do Output.printString("hi");
			return;
		}
	}`
	want := "function Foo.greet 0\n" +
		"push constant 2\n" +
		"call String.new 1\n" +
		"push constant 104\n" +
		"call String.appendChar 2\n" +
		"push constant 105\n" +
		"call String.appendChar 2\n" +
		"call Output.printString 1\n" +
		"pop temp 0\n" +
		"push constant 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

func TestArrayAssignmentUsesTempPointerThatScheme(t *testing.T) {
	src := `class Foo {
		function void set(Array a, int i, int v) {
			let a[i] = v;
			return;
		}
	}`
	want := "function Foo.set 0\n" +
		"push argument 0\n" +
		"push argument 1\n" +
		"add\n" +
		"push argument 2\n" +
		"pop temp 0\n" +
		"pop pointer 1\n" +
		"push temp 0\n" +
		"pop that 0\n" +
		"push constant 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

func TestArrayReadPushesFromThatSegment(t *testing.T) {
	src := `class Foo {
		function int get(Array a, int i) {
			return a[i];
		}
	}`
	want := "function Foo.get 0\n" +
		"push argument 0\n" +
		"push argument 1\n" +
		"add\n" +
		"pop pointer 1\n" +
		"push that 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

func TestMethodCallOnVariableReceiver(t *testing.T) {
	src := `class Foo {
		function void run(Point p) {
			do p.moveTo(0, 0);
			return;
		}
	}`
	want := "function Foo.run 0\n" +
		"push argument 0\n" +
		"push constant 0\n" +
		"push constant 0\n" +
		"call Point.moveTo 3\n" +
		"pop temp 0\n" +
		"push constant 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

func TestImplicitSelfCallPushesPointerZero(t *testing.T) {
	src := `class Foo {
		method void run() {
			do helper();
			return;
		}

		method void helper() {
			return;
		}
	}`
	want := "function Foo.run 0\n" +
		"push argument 0\n" +
		"pop pointer 0\n" +
		"push pointer 0\n" +
		"call Foo.helper 1\n" +
		"pop temp 0\n" +
		"push constant 0\n" +
		"return\n" +
		"function Foo.helper 0\n" +
		"push argument 0\n" +
		"pop pointer 0\n" +
		"push constant 0\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

func TestUnaryMinusAndBitwiseNot(t *testing.T) {
	src := `class Foo {
		function int calc(int x) {
			return -x + ~x;
		}
	}`
	want := "function Foo.calc 0\n" +
		"push argument 0\n" +
		"neg\n" +
		"push argument 0\n" +
		"not\n" +
		"add\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

func TestMultiplyAndDivideCallMathLibrary(t *testing.T) {
	src := `class Foo {
		function int calc(int x, int y) {
			return x * y / 2;
		}
	}`
	want := "function Foo.calc 0\n" +
		"push argument 0\n" +
		"push argument 1\n" +
		"call Math.multiply 2\n" +
		"push constant 2\n" +
		"call Math.divide 2\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

func TestExpectMismatchIsSyntaxError(t *testing.T) {
	err := compileErr(t, `class Foo {
		function void bar() {
			return 0
		}
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected ";", got "}"`)
}

func TestUndeclaredIdentifierIsSemanticError(t *testing.T) {
	err := compileErr(t, `class Foo {
		function void bar() {
			return missing;
		}
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undeclared identifier "missing"`)
}

func TestInvalidKeywordConstantIsSemanticError(t *testing.T) {
	err := compileErr(t, `class Foo {
		function void bar() {
			return static;
		}
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid keyword constant")
}

func TestDuplicateVarDeclOverwritesWithoutError(t *testing.T) {
	src := `class Foo {
		function int bar() {
			var int x;
			var int x;
			let x = 5;
			return x;
		}
	}`
	want := "function Foo.bar 2\n" +
		"push constant 5\n" +
		"pop local 1\n" +
		"push local 1\n" +
		"return\n"
	assert.Equal(t, want, compile(t, src))
}

func TestLexicalErrorPropagatesFromTokenizer(t *testing.T) {
	err := compileErr(t, `class Foo {
		function void bar() {
			let x = 99999;
			return;
		}
	}`)
	require.Error(t, err)
}
