package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// NodeList is an ordered, possibly empty sequence of elements.
type NodeList []*Element

// Len returns the number of elements.
func (l NodeList) Len() int {
	return len(l)
}

// maxListRepr is how many elements a rendered NodeList shows.
const maxListRepr = 5

// String renders up to five elements, then a "(+N more)" suffix.
func (l NodeList) String() string {
	if len(l) == 0 {
		return "empty NodeList"
	}
	n := len(l)
	if n > maxListRepr {
		n = maxListRepr
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = l[i].String()
	}
	desc := strings.Join(parts, ", ")
	if len(l) > maxListRepr {
		desc += fmt.Sprintf("... (+%d more)", len(l)-maxListRepr)
	}
	return desc
}

// Kind tags which variant a Subject holds.
type Kind int

const (
	// KindOther is any non-DOM value.
	KindOther Kind = iota
	// KindElement is a single element.
	KindElement
	// KindNodeList is a list of elements.
	KindNodeList
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindNodeList:
		return "NodeList"
	default:
		return "Other"
	}
}

// Subject is the value an assertion chain evaluates.
type Subject struct {
	Kind    Kind
	Element *Element
	List    NodeList
	Value   any

	// FromAttr marks Value as an attribute string, which equal may compare
	// against a number.
	FromAttr bool
}

// ElementSubject wraps a single element. A nil element is not DOM-shaped and
// becomes an Other subject holding nil.
func ElementSubject(e *Element) Subject {
	if e == nil || e.node == nil {
		return ValueSubject(nil)
	}
	return Subject{Kind: KindElement, Element: e}
}

// ListSubject wraps a node list. Nil entries and elements without a node
// are dropped.
func ListSubject(l NodeList) Subject {
	list := make(NodeList, 0, len(l))
	for _, e := range l {
		if e != nil && e.node != nil {
			list = append(list, e)
		}
	}
	return Subject{Kind: KindNodeList, List: list}
}

// AttrSubject wraps an attribute value read by a chained attr.
func AttrSubject(value string) Subject {
	return Subject{Kind: KindOther, Value: value, FromAttr: true}
}

// ValueSubject wraps a non-DOM value.
func ValueSubject(v any) Subject {
	return Subject{Kind: KindOther, Value: v}
}

// SubjectOf classifies v once at the API boundary.
func SubjectOf(v any) Subject {
	switch x := v.(type) {
	case Subject:
		return x
	case *Element:
		return ElementSubject(x)
	case NodeList:
		return ListSubject(x)
	case []*Element:
		return ListSubject(NodeList(x))
	case *html.Node:
		if e := ElementFromNode(x); e != nil {
			return ElementSubject(e)
		}
		return ValueSubject(v)
	case *goquery.Selection:
		if x == nil {
			return ValueSubject(nil)
		}
		return ListSubject(listFromSelection(x))
	case *goquery.Document:
		if x == nil {
			return ValueSubject(nil)
		}
		return ListSubject(listFromSelection(x.Selection))
	default:
		return ValueSubject(v)
	}
}

// IsDOM reports whether the subject is an element or a node list.
func (s Subject) IsDOM() bool {
	return s.Kind == KindElement || s.Kind == KindNodeList
}

// Elements returns the subject's elements: one for an Element, all for a
// NodeList, none otherwise.
func (s Subject) Elements() NodeList {
	switch s.Kind {
	case KindElement:
		return NodeList{s.Element}
	case KindNodeList:
		return s.List
	default:
		return nil
	}
}

// Len returns how many elements the subject holds.
func (s Subject) Len() int {
	return len(s.Elements())
}

// String renders the subject for assertion messages.
func (s Subject) String() string {
	switch s.Kind {
	case KindElement:
		return s.Element.String()
	case KindNodeList:
		return s.List.String()
	default:
		return Inspect(s.Value)
	}
}
