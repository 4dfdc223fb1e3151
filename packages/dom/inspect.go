package dom

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// Inspect renders a value the way assertion messages display it: strings are
// single-quoted, nil is null, collections are spelled out and functions
// collapse to [Function].
func Inspect(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + x + "'"
	case *regexp.Regexp:
		if x == nil {
			return "null"
		}
		return "/" + x.String() + "/"
	case *Element:
		return x.String()
	case NodeList:
		return x.String()
	case Subject:
		return x.String()
	case error:
		return "[Error: " + x.Error() + "]"
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return "[Function]"
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "null"
		}
		return Inspect(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return "[]"
		}
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = Inspect(rv.Index(i).Interface())
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	case reflect.Map:
		if rv.Len() == 0 {
			return "{}"
		}
		keys := rv.MapKeys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%v: %s", k.Interface(), Inspect(rv.MapIndex(k).Interface())))
		}
		sort.Strings(parts)
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return fmt.Sprintf("%v", v)
	}
}
