package assertions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/domspec/packages/dom"
	"golang.org/x/net/html"
)

// perElement applies check to the element, or to every element of a list.
// The first failing element decides the outcome. An empty list never holds.
func perElement(s dom.Subject, negated bool, phrase string, check func(e *dom.Element) Outcome) Outcome {
	if s.Kind == dom.KindElement {
		return check(s.Element)
	}
	if s.List.Len() == 0 {
		return verdict(negated, false,
			"expected empty NodeList to "+phrase,
			"expected empty NodeList not to "+phrase)
	}

	var first Outcome
	for i, e := range s.List {
		o := check(e)
		if !o.Passed {
			return o
		}
		if i == 0 {
			first = o
		}
	}
	return first
}

// anyElement reports whether check holds for at least one element.
func anyElement(s dom.Subject, check func(e *dom.Element) bool) bool {
	for _, e := range s.Elements() {
		if check(e) {
			return true
		}
	}
	return false
}

func attrPredicate(s dom.Subject, negated bool, args ...any) Outcome {
	name, ok := stringArg(args, 0)
	if !ok {
		return invalid("attr requires an attribute name")
	}
	value, hasValue := stringArg(args, 1)
	phrase := "have an attribute " + quote(name)

	return perElement(s, negated, phrase, func(e *dom.Element) Outcome {
		actual, present := e.Attr(name)

		var o Outcome
		switch {
		case !hasValue:
			o = verdict(negated, present,
				expected(e, "to "+phrase),
				expected(e, "not to "+phrase))
		case !present:
			o = verdict(negated, false, expected(e, "to "+phrase), "")
		default:
			withValue := phrase + " with the value " + quote(value)
			o = verdict(negated, actual == value,
				expected(e, "to "+withValue+", but the value was "+quote(actual)),
				expected(e, "not to "+withValue))
			o.Actual = actual
		}

		o.Chains = true
		if present {
			o.Value = dom.AttrSubject(actual)
		}
		return o
	})
}

func classPredicate(s dom.Subject, negated bool, args ...any) Outcome {
	name, ok := stringArg(args, 0)
	if !ok {
		return invalid("class requires a class name")
	}
	phrase := "have class " + quote(name)

	return perElement(s, negated, phrase, func(e *dom.Element) Outcome {
		return verdict(negated, e.HasClass(name),
			expected(e, "to "+phrase),
			expected(e, "not to "+phrase))
	})
}

func idPredicate(s dom.Subject, negated bool, args ...any) Outcome {
	id, ok := stringArg(args, 0)
	if !ok {
		return invalid("id requires an id")
	}
	phrase := "have id " + quote(id)

	return perElement(s, negated, phrase, func(e *dom.Element) Outcome {
		o := verdict(negated, e.ID() == id,
			expected(e, "to "+phrase),
			expected(e, "not to "+phrase))
		o.Actual = e.ID()
		return o
	})
}

// contentPredicate backs html, text and value: exact equality with the
// actual content reported on mismatch.
func contentPredicate(label string, read func(e *dom.Element) (string, bool)) Predicate {
	return func(s dom.Subject, negated bool, args ...any) Outcome {
		want, ok := stringArg(args, 0)
		if !ok {
			return invalid("%s requires an expected %s", strings.ToLower(label), label)
		}
		phrase := "have " + label + " " + quote(want)

		return perElement(s, negated, phrase, func(e *dom.Element) Outcome {
			actual, has := read(e)
			if !has {
				return verdict(negated, false,
					expected(e, "to "+phrase+", but it has no "+label),
					"")
			}
			o := verdict(negated, actual == want,
				expected(e, "to "+phrase+", but the "+label+" was "+quote(actual)),
				expected(e, "not to "+phrase))
			o.Actual = actual
			return o
		})
	}
}

var (
	htmlPredicate = contentPredicate("HTML", func(e *dom.Element) (string, bool) {
		return e.InnerHTML(), true
	})
	textPredicate = contentPredicate("text", func(e *dom.Element) (string, bool) {
		return e.TextContent(), true
	})
	valuePredicate = contentPredicate("value", (*dom.Element).Value)
)

func lengthDOM(s dom.Subject, negated bool, args ...any) Outcome {
	n, ok := intArg(args, 0)
	if !ok {
		return invalid("length requires an integer, got %s", argDisplay(args, 0))
	}
	return lengthOutcome(s, negated, n, s.Len())
}

func lengthOutcome(s dom.Subject, negated bool, want, actual int) Outcome {
	o := verdict(negated, actual == want,
		expected(s, fmt.Sprintf("to have a length of %d but got %d", want, actual)),
		expected(s, fmt.Sprintf("to not have a length of %d", want)))
	o.Actual = actual
	return o
}

func containDOM(s dom.Subject, negated bool, args ...any) Outcome {
	if len(args) == 0 {
		return invalid("contain requires a selector, element or text")
	}

	if child := asElement(args[0]); child != nil {
		holds := anyElement(s, func(e *dom.Element) bool { return e.Contains(child) })
		return verdict(negated, holds,
			expected(s, "to contain "+child.String()),
			expected(s, "to not contain "+child.String()))
	}

	if _, ok := args[0].(*dom.Element); ok {
		return invalid("contain was passed an element without a node")
	}
	needle, ok := args[0].(string)
	if !ok {
		return invalid("invalid argument: cannot use a %T as a selector", args[0])
	}

	var holds bool
	if dom.ValidSelector(needle) {
		holds = anyElement(s, func(e *dom.Element) bool {
			found, err := e.QuerySelector(needle)
			return err == nil && found != nil
		})
	} else {
		holds = anyElement(s, func(e *dom.Element) bool {
			return strings.Contains(e.TextContent(), needle)
		})
	}
	return verdict(negated, holds,
		expected(s, "to contain "+quote(needle)),
		expected(s, "to not contain "+quote(needle)))
}

func matchDOM(s dom.Subject, negated bool, args ...any) Outcome {
	if len(args) > 0 {
		if re, ok := args[0].(*regexp.Regexp); ok {
			return invalid("invalid argument: cannot match %s against %s, use a selector", s, dom.Inspect(re))
		}
	}
	selector, ok := stringArg(args, 0)
	if !ok {
		return invalid("match requires a selector")
	}
	sel, err := dom.Compile(selector)
	if err != nil {
		return invalid("%v", err)
	}

	if s.Kind == dom.KindElement {
		return verdict(negated, sel.Match(s.Element.Node()),
			expected(s, "to match "+quote(selector)),
			expected(s, "to not match "+quote(selector)))
	}

	holds := s.List.Len() > 0
	for _, e := range s.List {
		if !sel.Match(e.Node()) {
			holds = false
			break
		}
	}
	return verdict(negated, holds,
		"expected all items in NodeList to match "+quote(selector),
		"expected all items in NodeList to not match "+quote(selector))
}

func existDOM(s dom.Subject, negated bool, _ ...any) Outcome {
	if s.Kind == dom.KindNodeList {
		return verdict(negated, s.List.Len() > 0,
			"expected items in NodeList to exist",
			"expected items in NodeList not to exist")
	}
	return verdict(negated, true, expected(s, "to exist"), expected(s, "to not exist"))
}

func emptyDOM(s dom.Subject, negated bool, _ ...any) Outcome {
	var holds bool
	if s.Kind == dom.KindElement {
		holds = s.Element.Children().Len() == 0
	} else {
		holds = s.List.Len() == 0
	}
	return verdict(negated, holds, expected(s, "to be empty"), expected(s, "to not be empty"))
}

func descendantsPredicate(s dom.Subject, negated bool, args ...any) Outcome {
	selector, ok := stringArg(args, 0)
	if !ok {
		return invalid("descendants requires a selector")
	}
	if _, err := dom.Compile(selector); err != nil {
		return invalid("%v", err)
	}

	holds := anyElement(s, func(e *dom.Element) bool {
		found, err := e.QuerySelector(selector)
		return err == nil && found != nil
	})
	return verdict(negated, holds,
		expected(s, "to have "+quote(selector)),
		expected(s, "not to have "+quote(selector)))
}

func asElement(v any) *dom.Element {
	switch x := v.(type) {
	case *dom.Element:
		if x == nil || x.Node() == nil {
			return nil
		}
		return x
	case *html.Node:
		return dom.ElementFromNode(x)
	case dom.Subject:
		if x.Kind == dom.KindElement {
			return x.Element
		}
	}
	return nil
}

func stringArg(args []any, i int) (string, bool) {
	if i >= len(args) || args[i] == nil {
		return "", false
	}
	switch v := args[i].(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func intArg(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	return toInt(args[i])
}

func argDisplay(args []any, i int) string {
	if i >= len(args) {
		return "nothing"
	}
	return dom.Inspect(args[i])
}
