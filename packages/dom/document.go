package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document.
type Document struct {
	doc *goquery.Document
}

// Parse parses a complete HTML document. Fragments are accepted as well; the
// HTML parser places them inside an implied <body>.
func Parse(src string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// MustParse is like Parse but panics on error. Intended for tests.
func MustParse(src string) *Document {
	d, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseFragment parses markup inside a detached <div> container and returns
// its first element child, or nil when the markup holds no element.
func ParseFragment(src string) (*Element, error) {
	container := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}

	nodes, err := html.ParseFragment(strings.NewReader(src), container)
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return newElement(c), nil
		}
	}
	return nil, nil
}

// MustParseFragment is like ParseFragment but panics on error.
func MustParseFragment(src string) *Element {
	e, err := ParseFragment(src)
	if err != nil {
		panic(err)
	}
	return e
}

// CreateElement returns a new detached element with the given tag name.
func CreateElement(tag string) *Element {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return newElement(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	})
}

// Body returns the document's <body> element.
func (d *Document) Body() *Element {
	body := d.doc.Find("body")
	if body.Length() == 0 {
		return nil
	}
	return newElement(body.Nodes[0])
}

// FirstElement returns the first element child of <body>, mirroring what
// parsing a fragment into a container yields.
func (d *Document) FirstElement() *Element {
	body := d.Body()
	if body == nil {
		return nil
	}
	children := body.Children()
	if children.Len() == 0 {
		return nil
	}
	return children[0]
}

// QuerySelector returns the first element matching selector, or nil.
func (d *Document) QuerySelector(selector string) (*Element, error) {
	list, err := d.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	if list.Len() == 0 {
		return nil, nil
	}
	return list[0], nil
}

// QuerySelectorAll returns every element matching selector in document order.
func (d *Document) QuerySelectorAll(selector string) (NodeList, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return listFromSelection(d.doc.FindMatcher(sel)), nil
}

// GetElementByID returns the element with the given id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	var found *Element
	d.doc.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, _ := s.Attr("id"); v == id {
			found = newElement(s.Nodes[0])
			return false
		}
		return true
	})
	return found
}

// HTML renders the whole document.
func (d *Document) HTML() (string, error) {
	return goquery.OuterHtml(d.doc.Selection)
}

// Compile parses a CSS selector.
func Compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel, nil
}

// ValidSelector reports whether selector parses as a CSS selector.
func ValidSelector(selector string) bool {
	if strings.TrimSpace(selector) == "" {
		return false
	}
	_, err := cascadia.Compile(selector)
	return err == nil
}

func listFromSelection(s *goquery.Selection) NodeList {
	list := make(NodeList, 0, s.Length())
	for _, n := range s.Nodes {
		if n.Type == html.ElementNode {
			list = append(list, newElement(n))
		}
	}
	return list
}
