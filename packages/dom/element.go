package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element wraps a single element node.
type Element struct {
	node *html.Node
}

func newElement(n *html.Node) *Element {
	return &Element{node: n}
}

// ElementFromNode wraps n. It returns nil unless n is an element node.
func ElementFromNode(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	return newElement(n)
}

// Node returns the underlying node.
func (e *Element) Node() *html.Node {
	return e.node
}

func (e *Element) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}

// TagName returns the lowercase tag name.
func (e *Element) TagName() string {
	return strings.ToLower(e.node.Data)
}

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Attributes returns the attributes in source order.
func (e *Element) Attributes() []html.Attribute {
	return e.node.Attr
}

// SetAttr sets or replaces an attribute.
func (e *Element) SetAttr(name, value string) {
	for i := range e.node.Attr {
		if e.node.Attr[i].Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// ID returns the id attribute, or "" when absent.
func (e *Element) ID() string {
	id, _ := e.Attr("id")
	return id
}

// ClassName returns the raw class attribute.
func (e *Element) ClassName() string {
	c, _ := e.Attr("class")
	return c
}

// ClassList returns the whitespace separated classes.
func (e *Element) ClassList() []string {
	return strings.Fields(e.ClassName())
}

// HasClass reports whether name is in the class list.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.ClassList() {
		if c == name {
			return true
		}
	}
	return false
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() string {
	s, err := e.selection().Html()
	if err != nil {
		return ""
	}
	return s
}

// OuterHTML renders the element itself.
func (e *Element) OuterHTML() string {
	s, err := goquery.OuterHtml(e.selection())
	if err != nil {
		return ""
	}
	return s
}

// TextContent returns the concatenated text of all descendant text nodes.
func (e *Element) TextContent() string {
	return e.selection().Text()
}

// Value returns the element's value property. Elements without a value
// property report ok=false.
func (e *Element) Value() (string, bool) {
	switch e.TagName() {
	case "input", "button", "data", "param":
		v, _ := e.Attr("value")
		return v, true
	case "option":
		if v, ok := e.Attr("value"); ok {
			return v, true
		}
		return e.TextContent(), true
	case "textarea":
		return e.TextContent(), true
	case "select":
		options := e.querySelectorAll("option")
		for _, o := range options {
			if o.HasAttr("selected") {
				return o.Value()
			}
		}
		if options.Len() == 0 {
			return "", true
		}
		return options[0].Value()
	default:
		return "", false
	}
}

// Children returns the element children in order.
func (e *Element) Children() NodeList {
	var list NodeList
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			list = append(list, newElement(c))
		}
	}
	return list
}

// Parent returns the parent element, or nil.
func (e *Element) Parent() *Element {
	return ElementFromNode(e.node.Parent)
}

// Matches reports whether the element itself matches selector.
func (e *Element) Matches(selector string) (bool, error) {
	sel, err := Compile(selector)
	if err != nil {
		return false, err
	}
	return sel.Match(e.node), nil
}

// QuerySelector returns the first descendant matching selector, or nil.
func (e *Element) QuerySelector(selector string) (*Element, error) {
	list, err := e.QuerySelectorAll(selector)
	if err != nil || list.Len() == 0 {
		return nil, err
	}
	return list[0], nil
}

// QuerySelectorAll returns every descendant matching selector.
func (e *Element) QuerySelectorAll(selector string) (NodeList, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return listFromSelection(e.selection().FindMatcher(sel)), nil
}

func (e *Element) querySelectorAll(selector string) NodeList {
	list, _ := e.QuerySelectorAll(selector)
	return list
}

// Contains reports whether other is a descendant of e. An element does not
// contain itself.
func (e *Element) Contains(other *Element) bool {
	if e == nil || e.node == nil || other == nil || other.node == nil {
		return false
	}
	for p := other.node.Parent; p != nil; p = p.Parent {
		if p == e.node {
			return true
		}
	}
	return false
}

// Equal reports whether both wrap the same node.
func (e *Element) Equal(other *Element) bool {
	return e != nil && other != nil && e.node == other.node
}

// String renders the element the way assertion messages show it:
// tag, then #id, then .classes, then the remaining attributes.
func (e *Element) String() string {
	if e == nil || e.node == nil {
		return "null"
	}

	var b strings.Builder
	b.WriteString(e.TagName())
	if id := e.ID(); id != "" {
		b.WriteString("#")
		b.WriteString(id)
	}
	if classes := e.ClassList(); len(classes) > 0 {
		b.WriteString(".")
		b.WriteString(strings.Join(classes, "."))
	}
	for _, a := range e.node.Attr {
		if a.Key == "class" || a.Key == "id" {
			continue
		}
		b.WriteString("[")
		b.WriteString(a.Key)
		if a.Val != "" {
			b.WriteString(`="`)
			b.WriteString(a.Val)
			b.WriteString(`"`)
		}
		b.WriteString("]")
	}
	return b.String()
}
