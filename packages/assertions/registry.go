package assertions

import (
	"fmt"
	"sort"
	"sync"

	"github.com/abdul-hamid-achik/domspec/packages/dom"
)

// Predicate evaluates subject. negated inverts both the pass/fail polarity
// and the wording of the failure message.
type Predicate func(subject dom.Subject, negated bool, args ...any) Outcome

// Outcome is what a predicate reports back to the chain.
type Outcome struct {
	Passed  bool
	Message string
	Actual  any

	// Chains is set when the predicate extracts a value (attr) that becomes
	// the chain's subject for the following predicates.
	Chains bool
	Value  any
}

// Entry is a named predicate in the registry.
type Entry struct {
	Name        string
	Aliases     []string
	Usage       string
	Description string

	// DOM runs for Element and NodeList subjects.
	DOM Predicate
	// Generic runs for every other subject, and for DOM subjects when DOM is nil.
	Generic Predicate
}

// Apply dispatches on the subject's kind.
func (e *Entry) Apply(subject dom.Subject, negated bool, args ...any) Outcome {
	if subject.IsDOM() && e.DOM != nil {
		return e.DOM(subject, negated, args...)
	}
	if e.Generic != nil {
		return e.Generic(subject, negated, args...)
	}
	return invalid("expected %s to be an element or NodeList", subject)
}

type registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	names   []string
}

var defaultRegistry = &registry{entries: make(map[string]*Entry)}

func init() {
	registerDefaults()
}

// Register adds a predicate under its name and aliases.
func Register(e *Entry) error {
	return defaultRegistry.register(e)
}

func (r *registry) register(e *Entry) error {
	if e == nil || e.Name == "" {
		return fmt.Errorf("predicate must have a name")
	}
	if e.DOM == nil && e.Generic == nil {
		return fmt.Errorf("predicate %s has no implementation", e.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{e.Name}, e.Aliases...)
	for _, k := range keys {
		if _, exists := r.entries[k]; exists {
			return fmt.Errorf("predicate %s already registered", k)
		}
	}
	for _, k := range keys {
		r.entries[k] = e
	}
	r.names = append(r.names, e.Name)
	sort.Strings(r.names)
	return nil
}

func mustRegister(e *Entry) {
	if err := Register(e); err != nil {
		panic(err)
	}
}

// Lookup finds a predicate by name or alias.
func Lookup(name string) (*Entry, bool) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	e, ok := defaultRegistry.entries[name]
	return e, ok
}

// Names returns the primary predicate names, sorted.
func Names() []string {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	return append([]string(nil), defaultRegistry.names...)
}

// Apply runs the named predicate against subject.
func Apply(name string, subject dom.Subject, negated bool, args ...any) Outcome {
	e, ok := Lookup(name)
	if !ok {
		return invalid("unknown predicate: %s", name)
	}
	return e.Apply(subject, negated, args...)
}

func registerDefaults() {
	mustRegister(&Entry{
		Name:        "attr",
		Aliases:     []string{"attribute"},
		Usage:       "attr <name> [value]",
		Description: "element has the attribute, optionally with the given value; chains to the value",
		DOM:         attrPredicate,
	})
	mustRegister(&Entry{
		Name:        "class",
		Usage:       "class <name>",
		Description: "element's class list contains name",
		DOM:         classPredicate,
	})
	mustRegister(&Entry{
		Name:        "id",
		Usage:       "id <id>",
		Description: "element's id equals id",
		DOM:         idPredicate,
	})
	mustRegister(&Entry{
		Name:        "html",
		Usage:       "html <markup>",
		Description: "element's inner HTML equals markup exactly",
		DOM:         htmlPredicate,
	})
	mustRegister(&Entry{
		Name:        "text",
		Usage:       "text <text>",
		Description: "element's text content equals text exactly",
		DOM:         textPredicate,
	})
	mustRegister(&Entry{
		Name:        "value",
		Usage:       "value <value>",
		Description: "form element's value equals value",
		DOM:         valuePredicate,
	})
	mustRegister(&Entry{
		Name:        "length",
		Aliases:     []string{"lengthOf"},
		Usage:       "length <n>",
		Description: "number of elements (or length of a string, slice or map) equals n",
		DOM:         lengthDOM,
		Generic:     lengthGeneric,
	})
	mustRegister(&Entry{
		Name:        "contain",
		Aliases:     []string{"include", "contains"},
		Usage:       "contain <selector|element|text>",
		Description: "subject has a descendant matching selector, contains element, or includes a value",
		DOM:         containDOM,
		Generic:     containGeneric,
	})
	mustRegister(&Entry{
		Name:        "match",
		Usage:       "match <selector|/regexp/>",
		Description: "element (every element of a list) matches selector; strings match a regexp",
		DOM:         matchDOM,
		Generic:     matchGeneric,
	})
	mustRegister(&Entry{
		Name:        "exist",
		Aliases:     []string{"exists"},
		Usage:       "exist",
		Description: "element is present, list is non-empty, value is non-null",
		DOM:         existDOM,
		Generic:     existGeneric,
	})
	mustRegister(&Entry{
		Name:        "empty",
		Usage:       "empty",
		Description: "element has no child elements, list or value has zero length",
		DOM:         emptyDOM,
		Generic:     emptyGeneric,
	})
	mustRegister(&Entry{
		Name:        "descendants",
		Usage:       "descendants <selector>",
		Description: "subject has at least one descendant matching selector",
		DOM:         descendantsPredicate,
	})
	mustRegister(&Entry{
		Name:        "equal",
		Aliases:     []string{"equals", "eq"},
		Usage:       "equal <value>",
		Description: "subject equals value",
		Generic:     equalGeneric,
	})
	mustRegister(&Entry{
		Name:        "keys",
		Usage:       "keys <key>...",
		Description: "map subject contains every key",
		Generic:     keysGeneric,
	})
	mustRegister(&Entry{
		Name:        "fail",
		Usage:       "fail <message>",
		Description: "function subject fails with exactly message",
		Generic:     failGeneric,
	})
}

// verdict turns a raw check into an outcome, applying negation.
func verdict(negated, holds bool, msg, negMsg string) Outcome {
	if holds != negated {
		return Outcome{Passed: true}
	}
	if negated {
		return Outcome{Message: negMsg}
	}
	return Outcome{Message: msg}
}

// invalid fails regardless of negation.
func invalid(format string, args ...any) Outcome {
	return Outcome{Message: fmt.Sprintf(format, args...)}
}

func expected(subject fmt.Stringer, rest string) string {
	return "expected " + subject.String() + " " + rest
}

func quote(s string) string {
	return dom.Inspect(s)
}
