package builtin

import (
	"encoding/base64"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

type Func func(args []string) any

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["uuid"] = funcUUID
	r.funcs["now"] = funcNow
	r.funcs["date"] = funcDate
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["upper"] = oneArg(strings.ToUpper)
	r.funcs["lower"] = oneArg(strings.ToLower)
	r.funcs["trim"] = oneArg(strings.TrimSpace)
	r.funcs["repeat"] = funcRepeat
	r.funcs["escapeHTML"] = oneArg(html.EscapeString)
	r.funcs["unescapeHTML"] = oneArg(html.UnescapeString)
	r.funcs["lorem"] = funcLorem
	r.funcs["base64"] = oneArg(func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	})
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var funcCallPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Call evaluates an expression such as repeat('li', 3). ok is false when the
// expression is not a call to a registered function.
func (r *Registry) Call(expr string) (any, bool) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return nil, false
	}

	fn, ok := r.funcs[matches[1]]
	if !ok {
		return nil, false
	}

	var args []string
	if matches[2] != "" {
		args = parseArgs(matches[2])
	}
	return fn(args), true
}

func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
		case inQuote && ch == quoteChar:
			inQuote = false
			quoteChar = 0
		case !inQuote && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}

func oneArg(fn func(string) string) Func {
	return func(args []string) any {
		if len(args) < 1 {
			return ""
		}
		return fn(args[0])
	}
}

func intArg(fn string, args []string, i, def int) int {
	if len(args) <= i {
		return def
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		logrus.Warnf("%s() argument %q is not a valid integer", fn, args[i])
		return def
	}
	return v
}

func funcUUID(_ []string) any {
	return uuid.New().String()
}

func funcNow(_ []string) any {
	return time.Now().UTC().Format(time.RFC3339)
}

func funcDate(args []string) any {
	layout := "2006-01-02"
	if len(args) >= 1 {
		layout = args[0]
	}
	return time.Now().UTC().Format(layout)
}

func funcTimestamp(_ []string) any {
	return time.Now().Unix()
}

func funcRandom(args []string) any {
	min := intArg("random", args, 0, 0)
	max := intArg("random", args, 1, 100)
	if max < min {
		min, max = max, min
	}
	return rand.Intn(max-min+1) + min
}

func funcRandomString(args []string) any {
	n := intArg("randomString", args, 0, 16)
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, n)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

func funcRepeat(args []string) any {
	if len(args) < 1 {
		return ""
	}
	n := intArg("repeat", args, 1, 1)
	if n < 0 {
		n = 0
	}
	return strings.Repeat(args[0], n)
}

var loremWords = strings.Fields("lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua")

func funcLorem(args []string) any {
	n := intArg("lorem", args, 0, 5)
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, loremWords[i%len(loremWords)])
	}
	return strings.Join(words, " ")
}
