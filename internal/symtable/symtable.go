// Package symtable implements the dual-scope symbol table: a class-scope
// table holding statics and fields, and a subroutine-scope table holding
// arguments and locals. Subroutine-table lookups shadow class-table
// lookups for the same name.
package symtable

import "fmt"

// Kind is a variable's storage class.
type Kind int

const (
	InvalidKind Kind = iota
	Static
	Field
	Arg
	Var
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Field:
		return "field"
	case Arg:
		return "arg"
	case Var:
		return "var"
	default:
		return "invalid"
	}
}

// Info is the full record for a declared variable.
type Info struct {
	Name  string
	Type  string
	Kind  Kind
	Index int
}

// Table is a single scope's name -> Info mapping plus its four kind
// counters. The class table only ever sees Static/Field kinds; the
// subroutine table only ever sees Arg/Var kinds.
type Table struct {
	vars     map[string]Info
	counters map[Kind]int
}

func newTable() *Table {
	return &Table{
		vars:     make(map[string]Info),
		counters: make(map[Kind]int),
	}
}

// Reset clears the table and zeros all four counters.
func (t *Table) Reset() {
	t.vars = make(map[string]Info)
	t.counters = make(map[Kind]int)
}

// Add assigns the variable the next index for its kind, then records it.
// A duplicate name within the scope overwrites the prior entry (newest
// wins); no error is raised, matching the tolerated source behavior.
func (t *Table) Add(name, typ string, kind Kind) (Info, error) {
	if kind == InvalidKind {
		return Info{}, fmt.Errorf("add %q: unknown variable kind", name)
	}
	info := Info{Name: name, Type: typ, Kind: kind, Index: t.counters[kind]}
	t.counters[kind]++
	t.vars[name] = info
	return info, nil
}

// Find looks up name in this table only.
func (t *Table) Find(name string) (Info, bool) {
	info, ok := t.vars[name]
	return info, ok
}

// VarCount returns the number of variables of the given kind declared
// in this table so far.
func (t *Table) VarCount(kind Kind) int {
	return t.counters[kind]
}

// Scopes holds the class-scope and subroutine-scope tables together and
// implements the shadowing lookup rule.
type Scopes struct {
	Class      *Table
	Subroutine *Table
}

// New creates an empty pair of scopes.
func New() *Scopes {
	return &Scopes{Class: newTable(), Subroutine: newTable()}
}

// Find looks up name in the subroutine scope first, then the class
// scope, matching the shadowing rule.
func (s *Scopes) Find(name string) (Info, bool) {
	if info, ok := s.Subroutine.Find(name); ok {
		return info, true
	}
	return s.Class.Find(name)
}
