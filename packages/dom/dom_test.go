package dom

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html><html><head><meta charset="utf-8"></head><body>` +
	`<div id="foo" class="bar" foo="bar"><span>chai</span></div>` +
	`<ul><li class="item">one</li><li class="item">two</li></ul>` +
	`</body></html>`

func TestParse(t *testing.T) {
	doc, err := Parse(page)
	require.NoError(t, err)

	body := doc.Body()
	require.NotNil(t, body)
	assert.Equal(t, "body", body.TagName())

	first := doc.FirstElement()
	require.NotNil(t, first)
	assert.Equal(t, "div#foo.bar[foo=\"bar\"]", first.String())
}

func TestDocument_QuerySelectorAll(t *testing.T) {
	doc := MustParse(page)

	t.Run("matches in document order", func(t *testing.T) {
		items, err := doc.QuerySelectorAll("li.item")
		require.NoError(t, err)
		require.Equal(t, 2, items.Len())
		assert.Equal(t, "one", items[0].TextContent())
		assert.Equal(t, "two", items[1].TextContent())
	})

	t.Run("no match yields empty list", func(t *testing.T) {
		items, err := doc.QuerySelectorAll(".nonexistent")
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Equal(t, 0, items.Len())
	})

	t.Run("invalid selector", func(t *testing.T) {
		_, err := doc.QuerySelectorAll("div[")
		assert.Error(t, err)
	})
}

func TestDocument_QuerySelector(t *testing.T) {
	doc := MustParse(page)

	el, err := doc.QuerySelector("#foo span")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, "span", el.TagName())

	missing, err := doc.QuerySelector("aside")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocument_GetElementByID(t *testing.T) {
	doc := MustParse(page)

	el := doc.GetElementByID("foo")
	require.NotNil(t, el)
	assert.Equal(t, "div", el.TagName())
	assert.Nil(t, doc.GetElementByID("nope"))
}

func TestParseFragment(t *testing.T) {
	el, err := ParseFragment(`<section><span>span</span></section>`)
	require.NoError(t, err)
	require.NotNil(t, el)

	assert.Equal(t, "section", el.TagName())
	assert.Equal(t, "<span>span</span>", el.InnerHTML())
	assert.Equal(t, "span", el.TextContent())
	assert.Equal(t, "<section><span>span</span></section>", el.OuterHTML())

	none, err := ParseFragment("just text")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestElement_String(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"bare tag", `<div></div>`, "div"},
		{"attribute", `<div name="foo"></div>`, `div[name="foo"]`},
		{"classes", `<div class="foo shazam"></div>`, "div.foo.shazam"},
		{"extra whitespace in class", `<div class="  non   empty "></div>`, "div.non.empty"},
		{
			"id classes and attributes",
			`<div id="foo" class="yum" required disabled="disabled"></div>`,
			`div#foo.yum[required][disabled="disabled"]`,
		},
		{"input value", `<input value="foo">`, `input[value="foo"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := MustParseFragment(tt.html)
			require.NotNil(t, el)
			assert.Equal(t, tt.want, el.String())
		})
	}

	var nilEl *Element
	assert.Equal(t, "null", nilEl.String())
}

func TestElement_Accessors(t *testing.T) {
	el := MustParseFragment(`<div id="foo" class="a b" data-x="1"><p>one</p>text<p>two</p></div>`)

	assert.Equal(t, "foo", el.ID())
	assert.Equal(t, []string{"a", "b"}, el.ClassList())
	assert.True(t, el.HasClass("b"))
	assert.False(t, el.HasClass("c"))

	v, ok := el.Attr("data-x")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.False(t, el.HasAttr("data-y"))

	assert.Equal(t, 2, el.Children().Len())
	assert.Equal(t, "onetexttwo", el.TextContent())

	el.SetAttr("data-y", "2")
	assert.True(t, el.HasAttr("data-y"))
}

func TestElement_Value(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		want   string
		wantOK bool
	}{
		{"input", `<input value="foo">`, "foo", true},
		{"input without value", `<input>`, "", true},
		{"textarea", `<textarea>hello</textarea>`, "hello", true},
		{"option text", `<select><option>a</option></select>`, "a", true},
		{"selected option", `<select><option value="1">a</option><option value="2" selected>b</option></select>`, "2", true},
		{"div has no value", `<div value="x"></div>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := MustParseFragment(tt.html)
			require.NotNil(t, el)
			got, ok := el.Value()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElement_MatchesAndContains(t *testing.T) {
	el := MustParseFragment(`<div id="foo"><span class="blurb">example text</span><p>lorem</p></div>`)

	ok, err := el.Matches("#foo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = el.Matches("#bar")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = el.Matches("##")
	assert.Error(t, err)

	child, err := el.QuerySelector("span.blurb")
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.True(t, el.Contains(child))
	assert.False(t, el.Contains(el))
	assert.False(t, el.Contains(CreateElement("dd")))
	assert.True(t, child.Parent().Equal(el))

	assert.False(t, el.Contains(&Element{}))
	assert.False(t, el.Contains(nil))
	assert.False(t, (&Element{}).Contains(child))

	self, err := el.QuerySelector("div")
	require.NoError(t, err)
	assert.Nil(t, self, "query must not return the element itself")
}

func TestCreateElement(t *testing.T) {
	el := CreateElement("DD")
	assert.Equal(t, "dd", el.TagName())
	assert.Equal(t, "dd", el.String())
	assert.Equal(t, 0, el.Children().Len())
	assert.Nil(t, el.Parent())
}

func TestNodeList_String(t *testing.T) {
	assert.Equal(t, "empty NodeList", NodeList{}.String())

	doc := MustParse(`<p class="a"></p><p></p><p></p><p></p><p></p><p></p><p></p>`)
	all, err := doc.QuerySelectorAll("p")
	require.NoError(t, err)
	assert.Equal(t, "p.a, p, p, p, p... (+2 more)", all.String())
	assert.Equal(t, "p.a, p", all[:2].String())
}

func TestSubjectOf(t *testing.T) {
	doc := MustParse(page)
	el := doc.GetElementByID("foo")
	list, _ := doc.QuerySelectorAll("li")

	assert.Equal(t, KindElement, SubjectOf(el).Kind)
	assert.Equal(t, KindNodeList, SubjectOf(list).Kind)
	assert.Equal(t, KindNodeList, SubjectOf([]*Element{el}).Kind)
	assert.Equal(t, KindElement, SubjectOf(el.Node()).Kind)
	assert.Equal(t, KindOther, SubjectOf("text").Kind)

	var nilEl *Element
	s := SubjectOf(nilEl)
	assert.Equal(t, KindOther, s.Kind)
	assert.Nil(t, s.Value)

	withNils := SubjectOf(NodeList{nil, el, &Element{}})
	assert.Equal(t, KindNodeList, withNils.Kind)
	assert.Equal(t, NodeList{el}, withNils.List)
	assert.Equal(t, 0, SubjectOf([]*Element{nil}).Len())

	attr := AttrSubject("3")
	assert.Equal(t, KindOther, attr.Kind)
	assert.True(t, attr.FromAttr)
	assert.False(t, ValueSubject("3").FromAttr)

	assert.Equal(t, 1, SubjectOf(el).Len())
	assert.Equal(t, 2, SubjectOf(list).Len())
	assert.Equal(t, 0, SubjectOf(42).Len())
	assert.True(t, SubjectOf(list).IsDOM())
	assert.False(t, SubjectOf(42).IsDOM())
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"string", "foo", "'foo'"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"regexp", regexp.MustCompile("ello"), "/ello/"},
		{"slice", []any{1, "a"}, "[ 1, 'a' ]"},
		{"empty slice", []string{}, "[]"},
		{"map", map[string]int{"foo": 1, "bar": 2}, "{ bar: 2, foo: 1 }"},
		{"empty map", map[string]any{}, "{}"},
		{"func", func() {}, "[Function]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Inspect(tt.in))
		})
	}
}
