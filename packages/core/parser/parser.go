package parser

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Extensions are the file suffixes recognised as suite files.
var Extensions = []string{".domspec.yaml", ".domspec.yml", ".domspec"}

// IsSuiteFile reports whether path has a suite file extension.
func IsSuiteFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, ext := range Extensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

type rawSuite struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Fixture     string      `yaml:"fixture"`
	Tags        []string    `yaml:"tags"`
	Variables   yaml.Node   `yaml:"variables"`
	Tests       []yaml.Node `yaml:"tests"`
}

type rawTest struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Tags        []string    `yaml:"tags"`
	Skip        yaml.Node   `yaml:"skip"`
	Only        bool        `yaml:"only"`
	Fixture     *string     `yaml:"fixture"`
	Element     string      `yaml:"element"`
	Select      string      `yaml:"select"`
	Value       yaml.Node   `yaml:"value"`
	Snapshot    bool        `yaml:"snapshot"`
	Capture     []yaml.Node `yaml:"capture"`
	Expect      []yaml.Node `yaml:"expect"`
}

type rawCapture struct {
	Name    string `yaml:"name"`
	Element string `yaml:"element"`
	From    string `yaml:"from"`
	Attr    string `yaml:"attr"`
	Path    string `yaml:"path"`
}

type rawExpectation struct {
	Assert string    `yaml:"assert"`
	Args   []any     `yaml:"args"`
	Not    bool      `yaml:"not"`
	Fails  *string   `yaml:"fails"`
	Then   yaml.Node `yaml:"then"`
}

type Parser struct {
	file string
}

func ParseFile(path string) (*Suite, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), path)
}

func Parse(input, filename string) (*Suite, error) {
	p := &Parser{file: filename}
	return p.Parse(input)
}

func (p *Parser) Parse(input string) (*Suite, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(input), &root); err != nil {
		return nil, p.errorf(0, 0, "invalid YAML: %v", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, p.errorf(1, 1, "empty suite")
	}
	doc := root.Content[0]

	if err := p.validate(doc); err != nil {
		return nil, err
	}

	var raw rawSuite
	if err := doc.Decode(&raw); err != nil {
		return nil, p.errorf(doc.Line, doc.Column, "%v", err)
	}

	suite := &Suite{
		Path:        p.file,
		Name:        raw.Name,
		Description: raw.Description,
		Fixture:     raw.Fixture,
		Tags:        raw.Tags,
	}
	if suite.Name == "" && p.file != "" {
		suite.Name = suiteNameFromPath(p.file)
	}

	vars, err := p.parseVariables(&raw.Variables)
	if err != nil {
		return nil, err
	}
	suite.Variables = vars

	for i := range raw.Tests {
		test, err := p.parseTest(&raw.Tests[i])
		if err != nil {
			return nil, err
		}
		suite.Tests = append(suite.Tests, test)
	}

	return suite, nil
}

// validate checks the document against the embedded schema.
func (p *Parser) validate(doc *yaml.Node) error {
	var generic any
	if err := doc.Decode(&generic); err != nil {
		return p.errorf(doc.Line, doc.Column, "%v", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(generic))
	if err != nil {
		return p.errorf(doc.Line, doc.Column, "schema validation error: %v", err)
	}
	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return p.errorf(doc.Line, doc.Column, "schema validation failed: %s", strings.Join(errs, "; "))
}

func (p *Parser) parseVariables(node *yaml.Node) ([]*Variable, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, p.errorf(node.Line, node.Column, "variables must be a mapping")
	}

	vars := make([]*Variable, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, p.errorf(val.Line, val.Column, "variable %s must be a scalar", key.Value)
		}
		vars = append(vars, &Variable{Name: key.Value, Value: val.Value, Line: key.Line})
	}
	return vars, nil
}

func (p *Parser) parseTest(node *yaml.Node) (*Test, error) {
	var raw rawTest
	if err := node.Decode(&raw); err != nil {
		return nil, p.errorf(node.Line, node.Column, "%v", err)
	}

	test := &Test{
		Name:        raw.Name,
		Description: raw.Description,
		Tags:        raw.Tags,
		Only:        raw.Only,
		Fixture:     raw.Fixture,
		Element:     raw.Element,
		Select:      raw.Select,
		Snapshot:    raw.Snapshot,
		Line:        node.Line,
	}

	skip, err := p.parseSkip(&raw.Skip)
	if err != nil {
		return nil, err
	}
	test.Skip = skip

	if raw.Value.Kind != 0 {
		var v any
		if err := raw.Value.Decode(&v); err != nil {
			return nil, p.errorf(raw.Value.Line, raw.Value.Column, "invalid value: %v", err)
		}
		test.Value = v
		test.HasValue = true
	}

	for i := range raw.Capture {
		c, err := p.parseCapture(&raw.Capture[i])
		if err != nil {
			return nil, err
		}
		test.Captures = append(test.Captures, c)
	}

	for i := range raw.Expect {
		exp, err := p.parseExpectation(&raw.Expect[i])
		if err != nil {
			return nil, err
		}
		test.Expect = append(test.Expect, exp)
	}

	return test, nil
}

func (p *Parser) parseCapture(node *yaml.Node) (*Capture, error) {
	var raw rawCapture
	if err := node.Decode(&raw); err != nil {
		return nil, p.errorf(node.Line, node.Column, "%v", err)
	}

	c := &Capture{
		Name:    raw.Name,
		Element: raw.Element,
		Source:  CaptureSource(raw.From),
		Attr:    raw.Attr,
		Path:    raw.Path,
		Line:    node.Line,
	}
	if c.Source == "" {
		c.Source = CaptureText
		if c.Attr != "" {
			c.Source = CaptureAttr
		}
	}
	if c.Source == CaptureAttr && c.Attr == "" {
		return nil, p.errorf(node.Line, node.Column, "capture %s: from attr needs attr", c.Name)
	}
	return c, nil
}

func (p *Parser) parseSkip(node *yaml.Node) (string, error) {
	if node.Kind == 0 {
		return "", nil
	}
	if node.Kind != yaml.ScalarNode {
		return "", p.errorf(node.Line, node.Column, "skip must be a boolean or a reason")
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return "", p.errorf(node.Line, node.Column, "%v", err)
		}
		if b {
			return "skipped", nil
		}
		return "", nil
	}
	return node.Value, nil
}

func (p *Parser) parseExpectation(node *yaml.Node) (*Expectation, error) {
	var raw rawExpectation
	if err := node.Decode(&raw); err != nil {
		return nil, p.errorf(node.Line, node.Column, "%v", err)
	}
	if raw.Assert == "" {
		return nil, p.errorf(node.Line, node.Column, "expectation is missing assert")
	}

	exp := &Expectation{
		Predicate: raw.Assert,
		Args:      raw.Args,
		Not:       raw.Not,
		Fails:     raw.Fails,
		Line:      node.Line,
	}

	if raw.Then.Kind != 0 {
		if exp.Fails != nil {
			return nil, p.errorf(raw.Then.Line, raw.Then.Column, "then cannot follow an expectation that fails")
		}
		next, err := p.parseExpectation(&raw.Then)
		if err != nil {
			return nil, err
		}
		exp.Then = next
	}

	return exp, nil
}

// CheckPredicates reports the first expectation whose predicate known does
// not recognise.
func (s *Suite) CheckPredicates(known func(name string) bool) error {
	for _, t := range s.Tests {
		for _, e := range t.Expect {
			for _, step := range e.Steps() {
				if !known(step.Predicate) {
					return &ParseError{
						File:    s.Path,
						Line:    step.Line,
						Column:  1,
						Message: fmt.Sprintf("unknown predicate %q in test %q", step.Predicate, t.Name),
					}
				}
			}
		}
	}
	return nil
}

func (p *Parser) errorf(line, col int, format string, args ...any) *ParseError {
	return &ParseError{
		File:    p.file,
		Line:    line,
		Column:  col,
		Message: fmt.Sprintf(format, args...),
	}
}

func suiteNameFromPath(path string) string {
	base := filepath.Base(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
