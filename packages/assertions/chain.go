package assertions

import (
	"github.com/abdul-hamid-achik/domspec/packages/dom"
)

// TestingT is the part of testing.TB a chain reports failures through.
type TestingT interface {
	Helper()
	Fatal(args ...any)
}

// Assertion is a fluent chain over a subject. Once a predicate fails the
// chain records the failure and skips every later predicate.
type Assertion struct {
	subject dom.Subject
	negated bool
	err     *AssertionError
	t       TestingT
}

// Expect starts a chain. Elements, node lists, goquery selections and
// html.Nodes become DOM subjects; anything else uses generic behaviour.
func Expect(v any) *Assertion {
	return &Assertion{subject: dom.SubjectOf(v)}
}

// ExpectSubject starts a chain over an already classified subject.
func ExpectSubject(s dom.Subject) *Assertion {
	return &Assertion{subject: s}
}

// Should starts a chain whose first failure is reported with t.Fatal.
func Should(t TestingT, v any) *Assertion {
	t.Helper()
	a := Expect(v)
	a.t = t
	return a
}

// Not negates every following predicate in the chain.
func (a *Assertion) Not() *Assertion {
	a.negated = true
	return a
}

// Subject returns the current subject. After Attr it is the attribute value.
func (a *Assertion) Subject() dom.Subject {
	return a.subject
}

// Negated reports whether the chain is negated.
func (a *Assertion) Negated() bool {
	return a.negated
}

// Passed reports whether every predicate so far has passed.
func (a *Assertion) Passed() bool {
	return a.err == nil
}

// Err returns the first failure as an *AssertionError, or nil.
func (a *Assertion) Err() error {
	if a.err == nil {
		return nil
	}
	return a.err
}

// Assert runs the named predicate from the registry.
func (a *Assertion) Assert(name string, args ...any) *Assertion {
	a.helper()
	if a.err != nil {
		return a
	}

	o := Apply(name, a.subject, a.negated, args...)
	if !o.Passed {
		a.err = &AssertionError{
			Message:   o.Message,
			Predicate: name,
			Negated:   a.negated,
			Actual:    o.Actual,
		}
		if a.t != nil {
			a.t.Fatal(a.err.Message)
		}
		return a
	}

	if o.Chains {
		a.subject = dom.SubjectOf(o.Value)
	}
	return a
}

func (a *Assertion) helper() {
	if a.t != nil {
		a.t.Helper()
	}
}

// Attr asserts the attribute is present, and equal to value when given.
// The chain continues on the attribute's value.
func (a *Assertion) Attr(name string, value ...string) *Assertion {
	a.helper()
	args := []any{name}
	if len(value) > 0 {
		args = append(args, value[0])
	}
	return a.Assert("attr", args...)
}

// Attribute is an alias of Attr.
func (a *Assertion) Attribute(name string, value ...string) *Assertion {
	a.helper()
	return a.Attr(name, value...)
}

func (a *Assertion) Class(name string) *Assertion {
	a.helper()
	return a.Assert("class", name)
}

func (a *Assertion) ID(id string) *Assertion {
	a.helper()
	return a.Assert("id", id)
}

func (a *Assertion) HTML(markup string) *Assertion {
	a.helper()
	return a.Assert("html", markup)
}

func (a *Assertion) Text(text string) *Assertion {
	a.helper()
	return a.Assert("text", text)
}

func (a *Assertion) Value(value string) *Assertion {
	a.helper()
	return a.Assert("value", value)
}

func (a *Assertion) Length(n int) *Assertion {
	a.helper()
	return a.Assert("length", n)
}

// Contain takes a selector, an element, or text. On non-DOM subjects it
// checks substring, slice membership or map keys.
func (a *Assertion) Contain(v any) *Assertion {
	a.helper()
	return a.Assert("contain", v)
}

// Include is an alias of Contain.
func (a *Assertion) Include(v any) *Assertion {
	a.helper()
	return a.Assert("contain", v)
}

// Match takes a selector for DOM subjects and a *regexp.Regexp or pattern
// otherwise.
func (a *Assertion) Match(v any) *Assertion {
	a.helper()
	return a.Assert("match", v)
}

func (a *Assertion) Exist() *Assertion {
	a.helper()
	return a.Assert("exist")
}

func (a *Assertion) Empty() *Assertion {
	a.helper()
	return a.Assert("empty")
}

func (a *Assertion) Descendants(selector string) *Assertion {
	a.helper()
	return a.Assert("descendants", selector)
}

func (a *Assertion) Equal(v any) *Assertion {
	a.helper()
	return a.Assert("equal", v)
}

func (a *Assertion) Keys(keys ...string) *Assertion {
	a.helper()
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return a.Assert("keys", args...)
}

// Fail expects the subject, a func() error, to fail with exactly message.
func (a *Assertion) Fail(message string) *Assertion {
	a.helper()
	return a.Assert("fail", message)
}
