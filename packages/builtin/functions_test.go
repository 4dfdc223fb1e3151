package builtin

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		expr string
		want any
	}{
		{"upper('div')", "DIV"},
		{"lower(SPAN)", "span"},
		{"trim('  x  ')", "x"},
		{"repeat('<li></li>', 3)", "<li></li><li></li><li></li>"},
		{"escapeHTML('<b>&</b>')", "&lt;b&gt;&amp;&lt;/b&gt;"},
		{"unescapeHTML('&lt;p&gt;')", "<p>"},
		{"lorem(3)", "lorem ipsum dolor"},
		{"base64('chai')", "Y2hhaQ=="},
		{"random(4, 4)", 4},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := r.Call(tt.expr)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_CallUnknown(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Call("nope()")
	assert.False(t, ok)

	_, ok = r.Call("not a call")
	assert.False(t, ok)
}

func TestRegistry_UUID(t *testing.T) {
	got, ok := NewRegistry().Call("uuid()")
	require.True(t, ok)
	_, err := uuid.Parse(got.(string))
	assert.NoError(t, err)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("answer", func([]string) any { return 42 })

	got, ok := r.Call("answer()")
	require.True(t, ok)
	assert.Equal(t, 42, got)
	assert.Contains(t, r.Names(), "answer")
	assert.IsIncreasing(t, r.Names())
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, []string{"a, b", "c"}, parseArgs(`"a, b", c`))
	assert.Equal(t, []string{"x"}, parseArgs("'x'"))
	assert.Nil(t, parseArgs(""))
}

func TestRandomString(t *testing.T) {
	s := funcRandomString([]string{"12"}).(string)
	assert.Len(t, s, 12)
	assert.Len(t, funcRandomString([]string{"bad"}).(string), 16)
}
