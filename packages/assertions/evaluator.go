package assertions

import (
	"fmt"
	"regexp"

	"github.com/abdul-hamid-achik/domspec/packages/core/parser"
	"github.com/abdul-hamid-achik/domspec/packages/dom"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

// Evaluator runs parsed expectations against subjects drawn from one
// document.
type Evaluator struct {
	doc     *dom.Document
	resolve func(string) string
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithResolver substitutes variables in string arguments and fails messages.
func WithResolver(fn func(string) string) EvaluatorOption {
	return func(e *Evaluator) {
		e.resolve = fn
	}
}

func NewEvaluator(doc *dom.Document, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		doc:     doc,
		resolve: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one expectation and any predicates chained after it with
// then. Each step is negated only by its own not flag.
func (e *Evaluator) Evaluate(subject dom.Subject, exp *parser.Expectation) *Result {
	result := &Result{
		Subject:  subject.String(),
		Operator: exp.Operator(),
		Expected: exp.Args,
	}

	if exp.Fails != nil {
		return e.evaluateFails(subject, exp, result)
	}

	cur := subject
	for _, step := range exp.Steps() {
		args, err := e.ResolveArgs(step.Args)
		if err != nil {
			result.Message = err.Error()
			return result
		}
		result.Expected = args

		a := ExpectSubject(cur)
		if step.Not {
			a.Not()
		}
		a.Assert(step.Predicate, args...)
		if a.err != nil {
			result.Message = a.err.Message
			result.Actual = a.err.Actual
			return result
		}
		cur = a.Subject()
	}

	result.Passed = true
	if cur.Kind == dom.KindOther {
		result.Actual = cur.Value
	}
	return result
}

// evaluateFails checks that the predicate fails with exactly the expected
// message.
func (e *Evaluator) evaluateFails(subject dom.Subject, exp *parser.Expectation, result *Result) *Result {
	args, err := e.ResolveArgs(exp.Args)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	want := e.resolve(*exp.Fails)
	result.Expected = want

	run := func() error {
		a := ExpectSubject(subject)
		if exp.Not {
			a.Not()
		}
		return a.Assert(exp.Predicate, args...).Err()
	}

	meta := Expect(run).Fail(want)
	if meta.err != nil {
		result.Message = meta.err.Message
		result.Actual = meta.err.Actual
		return result
	}
	result.Passed = true
	result.Actual = want
	return result
}

func (e *Evaluator) EvaluateAll(subject dom.Subject, exps []*parser.Expectation) []*Result {
	results := make([]*Result, 0, len(exps))
	for _, exp := range exps {
		results = append(results, e.Evaluate(subject, exp))
	}
	return results
}

// ResolveArgs substitutes variables and turns argument maps into values:
// {element: sel} is the first match in the document, {create: tag} a
// detached element and {regexp: pattern} a compiled expression.
func (e *Evaluator) ResolveArgs(args []any) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		v, err := e.resolveArg(arg)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Evaluator) resolveArg(arg any) (any, error) {
	switch v := arg.(type) {
	case string:
		return e.resolve(v), nil
	case []any:
		return e.ResolveArgs(v)
	case map[string]any:
		return e.resolveArgMap(v)
	default:
		return arg, nil
	}
}

func (e *Evaluator) resolveArgMap(m map[string]any) (any, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("argument map must have exactly one key, got %d", len(m))
	}
	for key, raw := range m {
		val := e.resolve(fmt.Sprintf("%v", raw))
		switch key {
		case "element":
			if e.doc == nil {
				return nil, fmt.Errorf("no document to select %q from", val)
			}
			el, err := e.doc.QuerySelector(val)
			if err != nil {
				return nil, err
			}
			if el == nil {
				return nil, fmt.Errorf("no element matches %q", val)
			}
			return el, nil
		case "create":
			return dom.CreateElement(val), nil
		case "regexp":
			re, err := regexp.Compile(val)
			if err != nil {
				return nil, fmt.Errorf("invalid regexp %q: %w", val, err)
			}
			return re, nil
		default:
			return nil, fmt.Errorf("unknown argument type %q", key)
		}
	}
	return nil, nil
}
