package assertions

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/domspec/packages/dom"
)

// subjectValue unwraps a subject into the plain value generic predicates see.
func subjectValue(s dom.Subject) any {
	switch s.Kind {
	case dom.KindElement:
		return s.Element
	case dom.KindNodeList:
		return s.List
	default:
		return s.Value
	}
}

func equalGeneric(s dom.Subject, negated bool, args ...any) Outcome {
	if len(args) == 0 {
		return invalid("equal requires a value")
	}
	actual := subjectValue(s)
	o := verdict(negated, equalValues(actual, args[0], s.FromAttr),
		expected(s, "to equal "+dom.Inspect(args[0])),
		expected(s, "to not equal "+dom.Inspect(args[0])))
	o.Actual = actual
	return o
}

func containGeneric(s dom.Subject, negated bool, args ...any) Outcome {
	if len(args) == 0 {
		return invalid("include requires a value")
	}
	needle := args[0]
	msg := expected(s, "to include "+dom.Inspect(needle))
	negMsg := expected(s, "to not include "+dom.Inspect(needle))

	actual := subjectValue(s)
	if str, ok := actual.(string); ok {
		return verdict(negated, strings.Contains(str, fmt.Sprintf("%v", needle)), msg, negMsg)
	}

	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equalValues(rv.Index(i).Interface(), needle, false) {
				return verdict(negated, true, msg, negMsg)
			}
		}
		return verdict(negated, false, msg, negMsg)
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if equalValues(k.Interface(), needle, false) {
				return verdict(negated, true, msg, negMsg)
			}
		}
		return verdict(negated, false, msg, negMsg)
	default:
		return invalid("expected %s to be a string, slice or map", s)
	}
}

func matchGeneric(s dom.Subject, negated bool, args ...any) Outcome {
	if len(args) == 0 {
		return invalid("match requires a regular expression")
	}

	var re *regexp.Regexp
	switch p := args[0].(type) {
	case *regexp.Regexp:
		re = p
	default:
		pattern := fmt.Sprintf("%v", p)
		pattern = strings.TrimPrefix(pattern, "/")
		pattern = strings.TrimSuffix(pattern, "/")
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return invalid("invalid regex pattern: %v", err)
		}
		re = compiled
	}

	actual := subjectValue(s)
	o := verdict(negated, re.MatchString(fmt.Sprintf("%v", actual)),
		expected(s, "to match "+dom.Inspect(re)),
		expected(s, "not to match "+dom.Inspect(re)))
	o.Actual = actual
	return o
}

func existGeneric(s dom.Subject, negated bool, _ ...any) Outcome {
	return verdict(negated, !isNil(subjectValue(s)),
		expected(s, "to exist"),
		expected(s, "to not exist"))
}

func emptyGeneric(s dom.Subject, negated bool, _ ...any) Outcome {
	actual := subjectValue(s)
	n := 0
	if !isNil(actual) {
		n = computeLength(actual)
	}
	if n == -1 {
		return invalid(".empty was passed a value without a length: %s", s)
	}
	o := verdict(negated, n == 0, expected(s, "to be empty"), expected(s, "to not be empty"))
	o.Actual = n
	return o
}

func lengthGeneric(s dom.Subject, negated bool, args ...any) Outcome {
	want, ok := intArg(args, 0)
	if !ok {
		return invalid("length requires an integer, got %s", argDisplay(args, 0))
	}
	actual := computeLength(subjectValue(s))
	if actual == -1 {
		return invalid("cannot get length of %T", subjectValue(s))
	}
	return lengthOutcome(s, negated, want, actual)
}

func keysGeneric(s dom.Subject, negated bool, args ...any) Outcome {
	if len(args) == 0 {
		return invalid("keys requires at least one key")
	}
	rv := reflect.ValueOf(subjectValue(s))
	if rv.Kind() != reflect.Map {
		return invalid("expected %s to be a map", s)
	}

	present := make(map[string]bool, rv.Len())
	for _, k := range rv.MapKeys() {
		present[fmt.Sprintf("%v", k.Interface())] = true
	}

	holds := true
	names := make([]string, len(args))
	for i, a := range args {
		key := fmt.Sprintf("%v", a)
		names[i] = quote(key)
		if !present[key] {
			holds = false
		}
	}

	noun := "key "
	if len(names) > 1 {
		noun = "keys "
	}
	list := strings.Join(names, ", ")
	return verdict(negated, holds,
		expected(s, "to contain "+noun+list),
		expected(s, "to not contain "+noun+list))
}

// failGeneric is the meta assertion: the subject is a func() error that must
// fail with exactly the given message.
func failGeneric(s dom.Subject, negated bool, args ...any) Outcome {
	want, ok := stringArg(args, 0)
	if !ok {
		return invalid("fail requires the expected failure message")
	}
	fn, ok := subjectValue(s).(func() error)
	if !ok {
		return invalid("expected %s to be a function", s)
	}

	err := fn()
	if err == nil {
		return verdict(negated, false, expected(s, "to fail"), "")
	}

	var assertErr *AssertionError
	if !errors.As(err, &assertErr) {
		return verdict(negated, false, expected(s, "to fail, but it threw "+dom.Inspect(err)), "")
	}

	o := verdict(negated, assertErr.Message == want,
		expected(s, "to fail with "+quote(want)+", but got "+quote(assertErr.Message)),
		expected(s, "not to fail with "+quote(want)))
	o.Actual = assertErr.Message
	return o
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// equalValues is strict except between numbers of different Go types. A
// string read from an attribute also equals the number it spells.
func equalValues(actual, expected any, fromAttr bool) bool {
	if a, ok := actual.(*dom.Element); ok {
		if b, ok := expected.(*dom.Element); ok {
			return a.Equal(b)
		}
	}
	if reflect.DeepEqual(actual, expected) {
		return true
	}

	expectedNum, eOk := toFloat64(expected)
	if !eOk {
		return false
	}
	if actualNum, ok := toFloat64(actual); ok {
		return actualNum == expectedNum
	}
	if str, ok := actual.(string); ok && fromAttr {
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		return err == nil && f == expectedNum
	}
	return false
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual any) int {
	switch v := actual.(type) {
	case string:
		return len(v)
	case dom.NodeList:
		return v.Len()
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	default:
		if actual == nil {
			return -1
		}
		rv := reflect.ValueOf(actual)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len()
		default:
			return -1
		}
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case float32:
		if float64(n) != math.Trunc(float64(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}
