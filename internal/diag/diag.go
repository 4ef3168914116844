// Package diag renders compiler errors with source context, in the style
// of a caret pointing at the offending column, plus the minimum taxonomy
// (category, expected/actual token, class/subroutine context) the front
// end is required to surface.
package diag

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/kirkdrichardson/jackc/internal/token"
)

// Category classifies a compile error per the taxonomy the front end
// must distinguish: lexical, syntax, semantic, accessor misuse, I/O.
type Category string

const (
	Lexical        Category = "lexical"
	Syntax         Category = "syntax"
	Semantic       Category = "semantic"
	AccessorMisuse Category = "accessor misuse"
	IO             Category = "I/O"
)

// Error is a single compile failure, carrying enough context to render
// a one-error-at-a-time diagnostic naming expected/actual token and the
// current class/subroutine.
type Error struct {
	Category   Category
	Message    string
	Expected   string
	Actual     string
	Class      string
	Subroutine string
	Pos        token.Position
	File       string
	Source     string
}

func (e *Error) Error() string {
	return e.Format()
}

// context returns " (in Class.sub)", " (in Class)", or "" depending on what is known.
func (e *Error) context() string {
	switch {
	case e.Class != "" && e.Subroutine != "":
		return fmt.Sprintf(" (in %s.%s)", e.Class, e.Subroutine)
	case e.Class != "":
		return fmt.Sprintf(" (in %s)", e.Class)
	default:
		return ""
	}
}

// Format renders the error as a file:line:col header, the offending
// source line with a caret under the error column (when source text is
// available), and the message with class/subroutine context and the
// error category (e.g. "[syntax error]") appended.
func (e *Error) Format() string {
	var sb strings.Builder

	category := ""
	if e.Category != "" {
		category = fmt.Sprintf(" [%s error]", e.Category)
	}

	loc := fmt.Sprintf("%d:%d", e.Pos.Line, e.Pos.Column)
	if e.File != "" {
		fmt.Fprintf(&sb, "%s:%s: %s%s%s\n", e.File, loc, e.Message, e.context(), category)
	} else {
		fmt.Fprintf(&sb, "%s: %s%s%s\n", loc, e.Message, e.context(), category)
	}

	if line := sourceLine(e.Source, e.Pos.Line); line != "" {
		lineNum := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(lineNum)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(lineNum)+col0(e.Pos.Column)))
		sb.WriteString("^")
	}

	return sb.String()
}

func col0(column int) int {
	if column < 1 {
		return 0
	}
	return column - 1
}

func sourceLine(source string, line int) string {
	if source == "" || line < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// Expect builds a syntax error for an expect() token mismatch.
func Expect(pos token.Position, class, subroutine, expected, actual string) *Error {
	return &Error{
		Category:   Syntax,
		Message:    fmt.Sprintf("expected %q, got %q", expected, actual),
		Expected:   expected,
		Actual:     actual,
		Class:      class,
		Subroutine: subroutine,
		Pos:        pos,
	}
}

// Undeclared builds a semantic error for an unresolved identifier reference.
func Undeclared(pos token.Position, class, subroutine, name string) *Error {
	return &Error{
		Category:   Semantic,
		Message:    fmt.Sprintf("undeclared identifier %q", name),
		Actual:     name,
		Class:      class,
		Subroutine: subroutine,
		Pos:        pos,
	}
}

// Wrap attaches a stack trace to a lower-level I/O error (os.Open,
// os.ReadFile, io.Writer failures) using github.com/pkg/errors, the way
// the retrieval pack's Forth VM wraps I/O failures.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
