package parser

import (
	"fmt"
	"strings"
)

type Suite struct {
	Path        string
	Name        string
	Description string
	Fixture     string
	Tags        []string
	Variables   []*Variable
	Tests       []*Test
}

type Variable struct {
	Name  string
	Value string
	Line  int
}

type Test struct {
	Name        string
	Description string
	Tags        []string
	Skip        string
	Only        bool

	// Fixture replaces the suite fixture when set.
	Fixture *string

	// Subject selection, highest precedence first: Value, Select, Element.
	Value    any
	HasValue bool
	Select   string
	Element  string

	// Snapshot compares the subject's markup with the stored snapshot.
	Snapshot bool

	// Captures store values from the fixture as variables for later tests.
	Captures []*Capture

	Expect []*Expectation
	Line   int
}

// SubjectKind reports how the test picks its subject.
func (t *Test) SubjectKind() SubjectKind {
	switch {
	case t.HasValue:
		return SubjectValue
	case t.Select != "":
		return SubjectSelectAll
	case t.Element != "":
		return SubjectSelectOne
	default:
		return SubjectFirstElement
	}
}

type SubjectKind int

const (
	SubjectFirstElement SubjectKind = iota
	SubjectSelectOne
	SubjectSelectAll
	SubjectValue
)

func (k SubjectKind) String() string {
	switch k {
	case SubjectSelectOne:
		return "element"
	case SubjectSelectAll:
		return "select"
	case SubjectValue:
		return "value"
	default:
		return "first element"
	}
}

// Expectation is one predicate call. Then continues the chain on the
// predicate's extracted value, or on the same subject.
type Expectation struct {
	Predicate string
	Args      []any
	Not       bool
	Fails     *string
	Then      *Expectation
	Line      int
}

// Operator is the chain of predicate names, e.g. "not attr -> equal".
func (e *Expectation) Operator() string {
	var parts []string
	for cur := e; cur != nil; cur = cur.Then {
		name := cur.Predicate
		if cur.Not {
			name = "not " + name
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " -> ")
}

func (e *Expectation) String() string {
	var parts []string
	for cur := e; cur != nil; cur = cur.Then {
		s := cur.Predicate
		if cur.Not {
			s = "not " + s
		}
		for _, a := range cur.Args {
			s += " " + fmt.Sprintf("%v", a)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " -> ")
}

// Steps flattens the chain.
func (e *Expectation) Steps() []*Expectation {
	var steps []*Expectation
	for cur := e; cur != nil; cur = cur.Then {
		steps = append(steps, cur)
	}
	return steps
}

// Capture reads one value from a test's document into a variable.
type Capture struct {
	Name    string
	Element string // first match; empty means the first element
	Source  CaptureSource
	Attr    string // attribute name for CaptureAttr
	Path    string // gjson path for CaptureJSON
	Line    int
}

type CaptureSource string

const (
	CaptureText      CaptureSource = "text"
	CaptureHTML      CaptureSource = "html"
	CaptureOuterHTML CaptureSource = "outerHTML"
	CaptureAttr      CaptureSource = "attr"
	CaptureValue     CaptureSource = "value"
	CaptureCount     CaptureSource = "count"
	CaptureJSON      CaptureSource = "json"
)

type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
