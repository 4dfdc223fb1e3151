package capture

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/domspec/packages/core/parser"
	"github.com/abdul-hamid-achik/domspec/packages/dom"
	"github.com/tidwall/gjson"
)

// Extractor reads capture values from one document.
type Extractor struct {
	doc     *dom.Document
	resolve func(string) string
}

// NewExtractor creates an extractor over doc. resolve substitutes
// variables in selectors and paths; nil leaves them as written.
func NewExtractor(doc *dom.Document, resolve func(string) string) *Extractor {
	if resolve == nil {
		resolve = func(s string) string { return s }
	}
	return &Extractor{doc: doc, resolve: resolve}
}

// Extract returns the captured value. Missing elements, attributes and
// JSON paths are errors so a later test never runs with a stale variable.
func (e *Extractor) Extract(c *parser.Capture) (any, error) {
	selector := e.resolve(c.Element)

	if c.Source == parser.CaptureCount {
		if selector == "" {
			return nil, fmt.Errorf("capture %s: count needs an element selector", c.Name)
		}
		list, err := e.doc.QuerySelectorAll(selector)
		if err != nil {
			return nil, fmt.Errorf("capture %s: %w", c.Name, err)
		}
		return list.Len(), nil
	}

	el, err := e.element(selector)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", c.Name, err)
	}

	switch c.Source {
	case parser.CaptureText, "":
		return strings.TrimSpace(el.TextContent()), nil
	case parser.CaptureHTML:
		return el.InnerHTML(), nil
	case parser.CaptureOuterHTML:
		return el.OuterHTML(), nil
	case parser.CaptureAttr:
		v, ok := el.Attr(c.Attr)
		if !ok {
			return nil, fmt.Errorf("capture %s: %s has no attribute %q", c.Name, el, c.Attr)
		}
		return v, nil
	case parser.CaptureValue:
		v, ok := el.Value()
		if !ok {
			return nil, fmt.Errorf("capture %s: %s has no value", c.Name, el)
		}
		return v, nil
	case parser.CaptureJSON:
		return extractJSON(c, el.TextContent(), e.resolve(c.Path))
	default:
		return nil, fmt.Errorf("capture %s: unknown source %q", c.Name, c.Source)
	}
}

func (e *Extractor) element(selector string) (*dom.Element, error) {
	if selector == "" {
		el := e.doc.FirstElement()
		if el == nil {
			return nil, fmt.Errorf("fixture has no elements")
		}
		return el, nil
	}
	el, err := e.doc.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return el, nil
}

// extractJSON reads path from JSON embedded in an element, typically a
// <script type="application/ld+json"> block. An empty path captures the
// whole document.
func extractJSON(c *parser.Capture, text, path string) (any, error) {
	text = strings.TrimSpace(text)
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("capture %s: element does not contain valid JSON", c.Name)
	}
	if path == "" {
		return gjson.Parse(text).Value(), nil
	}
	result := gjson.Get(text, path)
	if !result.Exists() {
		return nil, fmt.Errorf("capture %s: no JSON value at %q", c.Name, path)
	}
	return result.Value(), nil
}

// ExtractAll runs every capture and returns the values by name. It stops at
// the first capture that fails.
func ExtractAll(doc *dom.Document, captures []*parser.Capture, resolve func(string) string) (map[string]any, error) {
	extractor := NewExtractor(doc, resolve)
	results := make(map[string]any, len(captures))

	for _, c := range captures {
		value, err := extractor.Extract(c)
		if err != nil {
			return results, err
		}
		results[c.Name] = value
	}

	return results, nil
}
