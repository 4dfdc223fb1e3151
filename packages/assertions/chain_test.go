package assertions

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/abdul-hamid-achik/domspec/packages/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failsWith checks that fn fails with exactly want, through the same
// meta assertion suite files use.
func failsWith(t *testing.T, want string, fn func() error) {
	t.Helper()
	require.NoError(t, Expect(fn).Fail(want).Err())
}

func passes(t *testing.T, a *Assertion) {
	t.Helper()
	require.NoError(t, a.Err())
}

func parse(src string) *dom.Element {
	return dom.MustParseFragment(src)
}

func TestAttr(t *testing.T) {
	subject := parse(`<div name="foo"></div>`)

	t.Run("name only", func(t *testing.T) {
		passes(t, Expect(subject).Attr("name"))
		passes(t, Expect(subject).Not().Attr("bar"))

		failsWith(t, `expected div[name="foo"] to have an attribute 'bar'`, func() error {
			return Expect(subject).Attr("bar").Err()
		})
		failsWith(t, `expected div[name="foo"] not to have an attribute 'name'`, func() error {
			return Expect(subject).Not().Attr("name").Err()
		})
	})

	t.Run("name and value", func(t *testing.T) {
		passes(t, Expect(subject).Attr("name", "foo"))
		passes(t, Expect(subject).Not().Attr("bar", "foo"))
		passes(t, Expect(subject).Not().Attr("name", "bar"))

		failsWith(t, `expected div[name="foo"] to have an attribute 'bar'`, func() error {
			return Expect(subject).Attr("bar", "foo").Err()
		})
		failsWith(t, `expected div[name="foo"] to have an attribute 'name' with the value 'bar', but the value was 'foo'`, func() error {
			return Expect(subject).Attr("name", "bar").Err()
		})
		failsWith(t, `expected div[name="foo"] not to have an attribute 'name' with the value 'foo'`, func() error {
			return Expect(subject).Not().Attr("name", "foo").Err()
		})
	})

	t.Run("chains to the attribute value", func(t *testing.T) {
		a := Expect(subject).Attr("name").Equal("foo")
		passes(t, a)
		assert.Equal(t, dom.KindOther, a.Subject().Kind)
		assert.Equal(t, "foo", a.Subject().Value)

		passes(t, Expect(subject).Attribute("name").Match(regexp.MustCompile("^fo")))
	})

	t.Run("missing attribute chains to nil", func(t *testing.T) {
		a := Expect(subject).Not().Attr("bar")
		passes(t, a)
		assert.Nil(t, a.Subject().Value)
		passes(t, a.Exist())
	})
}

func TestClass(t *testing.T) {
	subject := parse(`<div class="foo shazam"></div>`)

	passes(t, Expect(subject).Class("foo"))
	passes(t, Expect(subject).Not().Class("bar"))

	failsWith(t, `expected div.foo.shazam to have class 'bar'`, func() error {
		return Expect(subject).Class("bar").Err()
	})
	failsWith(t, `expected div.foo.shazam not to have class 'foo'`, func() error {
		return Expect(subject).Not().Class("foo").Err()
	})
}

func TestID(t *testing.T) {
	subject := parse(`<div id="foo" class="yum" required disabled="disabled"></div>`)

	passes(t, Expect(subject).ID("foo"))
	passes(t, Expect(subject).Not().ID("bar"))
	passes(t, Expect(dom.CreateElement("div")).Not().ID("bar"))

	failsWith(t, `expected div#foo.yum[required][disabled="disabled"] to have id 'bar'`, func() error {
		return Expect(subject).ID("bar").Err()
	})
	failsWith(t, `expected div#foo.yum[required][disabled="disabled"] not to have id 'foo'`, func() error {
		return Expect(subject).Not().ID("foo").Err()
	})
	failsWith(t, `expected div to have id 'foo'`, func() error {
		return Expect(parse(`<div></div>`)).ID("foo").Err()
	})
}

func TestHTML(t *testing.T) {
	subject := parse(`<section><span>span</span></section>`)

	passes(t, Expect(subject).HTML("<span>span</span>"))
	passes(t, Expect(subject).Not().HTML("<span>div</span>"))

	failsWith(t, `expected section to have HTML '<span>div</span>', but the HTML was '<span>span</span>'`, func() error {
		return Expect(subject).HTML("<span>div</span>").Err()
	})
	failsWith(t, `expected section not to have HTML '<span>span</span>'`, func() error {
		return Expect(subject).Not().HTML("<span>span</span>").Err()
	})
}

func TestText(t *testing.T) {
	subject := parse(`<div>foo</div>`)

	passes(t, Expect(subject).Text("foo"))
	passes(t, Expect(subject).Not().Text("bar"))

	failsWith(t, `expected div to have text 'bar', but the text was 'foo'`, func() error {
		return Expect(subject).Text("bar").Err()
	})
	failsWith(t, `expected div not to have text 'foo'`, func() error {
		return Expect(subject).Not().Text("foo").Err()
	})
}

func TestValue(t *testing.T) {
	subject := parse(`<input value="foo">`)

	passes(t, Expect(subject).Value("foo"))
	passes(t, Expect(subject).Not().Value("bar"))

	failsWith(t, `expected input[value="foo"] to have value 'bar', but the value was 'foo'`, func() error {
		return Expect(subject).Value("bar").Err()
	})
	failsWith(t, `expected input[value="foo"] not to have value 'foo'`, func() error {
		return Expect(subject).Not().Value("foo").Err()
	})
	failsWith(t, `expected div to have value 'x', but it has no value`, func() error {
		return Expect(parse(`<div></div>`)).Value("x").Err()
	})
}

func TestExist(t *testing.T) {
	doc := dom.MustParse(`<div id="mocha"></div>`)
	existent, err := doc.QuerySelectorAll("#mocha")
	require.NoError(t, err)
	nonexistent, err := doc.QuerySelectorAll(".nonexistent")
	require.NoError(t, err)

	t.Run("generic subjects", func(t *testing.T) {
		passes(t, Expect(map[string]any{}).Exist())
		passes(t, Expect(true).Exist())
		passes(t, Expect(nil).Not().Exist())
		failsWith(t, "expected null to exist", func() error {
			return Expect(nil).Exist().Err()
		})
	})

	passes(t, Expect(existent).Exist())
	passes(t, Expect(nonexistent).Not().Exist())

	failsWith(t, "expected items in NodeList to exist", func() error {
		return Expect(nonexistent).Exist().Err()
	})
	failsWith(t, "expected items in NodeList not to exist", func() error {
		return Expect(existent).Not().Exist().Err()
	})

	t.Run("nil element is not DOM-shaped", func(t *testing.T) {
		missing, err := doc.QuerySelector("aside")
		require.NoError(t, err)
		passes(t, Expect(missing).Not().Exist())
	})
}

func TestEmpty(t *testing.T) {
	passes(t, Expect(map[string]any{}).Empty())

	empty := dom.CreateElement("div")
	nonempty := parse(`<div class="non empty"><span></span></div>`)

	passes(t, Expect(empty).Empty())
	passes(t, Expect(nonempty).Not().Empty())

	failsWith(t, "expected div.non.empty to be empty", func() error {
		return Expect(nonempty).Empty().Err()
	})
	failsWith(t, "expected div to not be empty", func() error {
		return Expect(empty).Not().Empty().Err()
	})

	t.Run("text only is empty", func(t *testing.T) {
		passes(t, Expect(parse(`<p>words</p>`)).Empty())
	})

	t.Run("nil element falls back to generic", func(t *testing.T) {
		var missing *dom.Element
		passes(t, Expect(missing).Empty())
		passes(t, Expect(nil).Empty())

		failsWith(t, "expected null to not be empty", func() error {
			return Expect(missing).Not().Empty().Err()
		})
	})
}

func TestMatch(t *testing.T) {
	passes(t, Expect("hello").Match(regexp.MustCompile("ello")))
	passes(t, Expect("hello").Match("/ell/"))

	subject := parse(`<div id="foo"></div>`)
	doc := dom.MustParse(`<div id="foo"></div>`)
	subjectList, err := doc.QuerySelectorAll("body")
	require.NoError(t, err)
	none, err := doc.QuerySelectorAll(".nonexistent")
	require.NoError(t, err)

	passes(t, Expect(subject).Match("#foo"))
	passes(t, Expect(subjectList).Match("body"))

	passes(t, Expect(subject).Not().Match("#bar"))
	passes(t, Expect(subjectList).Not().Match("#bar"))
	passes(t, Expect(none).Not().Match(".foo"))

	failsWith(t, `expected div#foo to match '#bar'`, func() error {
		return Expect(subject).Match("#bar").Err()
	})
	failsWith(t, `expected all items in NodeList to match '#bar'`, func() error {
		return Expect(subjectList).Match("#bar").Err()
	})
	failsWith(t, `expected div#foo to not match '#foo'`, func() error {
		return Expect(subject).Not().Match("#foo").Err()
	})
	failsWith(t, `expected all items in NodeList to not match 'body'`, func() error {
		return Expect(subjectList).Not().Match("body").Err()
	})
	failsWith(t, `expected all items in NodeList to match '.foo'`, func() error {
		return Expect(none).Match(".foo").Err()
	})
}

func TestContain(t *testing.T) {
	t.Run("generic subjects", func(t *testing.T) {
		passes(t, Expect("example text").Contain("example"))
		passes(t, Expect("foo").Not().Contain("bar"))
		passes(t, Expect(map[string]int{"foo": 1, "bar": 2}).Keys("foo"))
		passes(t, Expect([]string{"a", "b"}).Include("b"))

		failsWith(t, "expected 'foo' to include 'bar'", func() error {
			return Expect("foo").Contain("bar").Err()
		})
		failsWith(t, "expected 'foo' to not include 'foo'", func() error {
			return Expect("foo").Not().Contain("bar").Not().Contain("foo").Err()
		})
	})

	t.Run("selector", func(t *testing.T) {
		subject := parse(`<div><span class="blurb">example text</span></div>`)

		passes(t, Expect(subject).Contain("span.blurb"))
		passes(t, Expect(subject).Not().Contain("example"))

		failsWith(t, "expected div to contain 'aside'", func() error {
			return Expect(subject).Contain("aside").Err()
		})
		failsWith(t, "expected div to not contain '.blurb'", func() error {
			return Expect(subject).Not().Contain(".blurb").Err()
		})
	})

	t.Run("text when not a selector", func(t *testing.T) {
		subject := parse(`<div><span class="blurb">example text</span></div>`)
		passes(t, Expect(subject).Contain("example text"))
		passes(t, Expect(subject).Not().Contain("other words"))
	})

	t.Run("element", func(t *testing.T) {
		subject := parse(`<div><span class="blurb">example text</span><p>lorem ipsum</p></div>`)
		child := subject.Children()[0]
		nonchild := dom.CreateElement("dd")

		passes(t, Expect(subject).Contain(child))
		passes(t, Expect(subject).Not().Contain(nonchild))

		failsWith(t, "expected div to contain dd", func() error {
			return Expect(subject).Contain(nonchild).Err()
		})
		failsWith(t, "expected div to not contain span.blurb", func() error {
			return Expect(subject).Not().Contain(child).Err()
		})
	})

	t.Run("element without a node", func(t *testing.T) {
		subject := parse(`<div><span></span></div>`)

		failsWith(t, "contain was passed an element without a node", func() error {
			return Expect(subject).Contain(&dom.Element{}).Err()
		})
		failsWith(t, "contain was passed an element without a node", func() error {
			return Expect(subject).Not().Contain(&dom.Element{}).Err()
		})
	})
}

func TestDescendants(t *testing.T) {
	subject := parse(`<div><span></span></div>`)

	passes(t, Expect(subject).Descendants("span"))
	passes(t, Expect(subject).Not().Descendants("div"))

	failsWith(t, "expected div to have 'div'", func() error {
		return Expect(subject).Descendants("div").Err()
	})
	failsWith(t, "expected div not to have 'span'", func() error {
		return Expect(subject).Not().Descendants("span").Err()
	})
}

func TestLength(t *testing.T) {
	doc := dom.MustParse(`<ul><li>a</li><li>b</li></ul>`)
	items, err := doc.QuerySelectorAll("li")
	require.NoError(t, err)

	passes(t, Expect(items).Length(2))
	passes(t, Expect(items[0]).Length(1))
	passes(t, Expect("abc").Length(3))
	passes(t, Expect(items).Not().Length(3))

	failsWith(t, "expected li, li to have a length of 3 but got 2", func() error {
		return Expect(items).Length(3).Err()
	})
	failsWith(t, "expected li, li to not have a length of 2", func() error {
		return Expect(items).Not().Length(2).Err()
	})
}

// The same assertions hold for a list holding the single element, as they
// would through document.querySelectorAll('#foo').
func TestNodeListSubject(t *testing.T) {
	doc := dom.MustParse(`<!doctype html><html><head><meta charset='utf-8'></head><body>` +
		`<div id='foo' class='bar' foo='bar'><span>chai</span></div></body></html>`)
	match, err := doc.QuerySelectorAll("#foo")
	require.NoError(t, err)

	passes(t, Expect(match).Class("bar"))
	passes(t, Expect(match).Attr("foo"))
	passes(t, Expect(match).Attr("foo", "bar"))
	passes(t, Expect(match).Attr("foo").Match(regexp.MustCompile("bar")))
	passes(t, Expect(match).Attribute("foo"))
	passes(t, Expect(match).Attribute("foo", "bar"))
	passes(t, Expect(match).ID("foo"))
	passes(t, Expect(match).HTML("<span>chai</span>"))
	passes(t, Expect(match).Text("chai"))
	passes(t, Expect(match).Not().Empty())
	passes(t, Expect(match).Length(1))
	passes(t, Expect(match).Exist())
	passes(t, Expect(match).Match("#foo"))
	passes(t, Expect(match).Contain("span"))
	passes(t, Expect(match).Descendants("span"))

	t.Run("every element must pass", func(t *testing.T) {
		doc := dom.MustParse(`<p class="a"></p><p class="b"></p>`)
		ps, err := doc.QuerySelectorAll("p")
		require.NoError(t, err)

		failsWith(t, "expected p.b to have class 'a'", func() error {
			return Expect(ps).Class("a").Err()
		})
		passes(t, Expect(ps).Not().Class("c"))
	})

	t.Run("empty list", func(t *testing.T) {
		none, err := doc.QuerySelectorAll(".nonexistent")
		require.NoError(t, err)

		failsWith(t, "expected empty NodeList to have class 'bar'", func() error {
			return Expect(none).Class("bar").Err()
		})
		passes(t, Expect(none).Not().Class("bar"))
		passes(t, Expect(none).Not().Contain("span"))
		passes(t, Expect(none).Not().Descendants("span"))
		passes(t, Expect(none).Empty())
		passes(t, Expect(none).Length(0))
	})

	t.Run("nil entries are dropped", func(t *testing.T) {
		list := dom.NodeList{nil, doc.GetElementByID("foo"), &dom.Element{}}

		passes(t, Expect(list).Class("bar"))
		passes(t, Expect(list).Length(1))
		passes(t, Expect(dom.NodeList{nil}).Not().Class("x"))
		failsWith(t, "expected empty NodeList to have class 'x'", func() error {
			return Expect([]*dom.Element{nil}).Class("x").Err()
		})
	})
}

func TestEqual(t *testing.T) {
	subject := parse(`<div data-count="3" data-ratio="1.50" data-name="foo"></div>`)

	t.Run("numbers of different types", func(t *testing.T) {
		passes(t, Expect(3).Equal(3.0))
		passes(t, Expect(int64(2)).Equal(2))
	})

	t.Run("attribute values compare against numbers", func(t *testing.T) {
		passes(t, Expect(subject).Attr("data-count").Equal(3))
		passes(t, Expect(subject).Attr("data-ratio").Equal(1.5))
		passes(t, Expect(subject).Attr("data-name").Not().Equal(0))
		passes(t, Expect(subject).Attr("data-count").Equal("3"))
	})

	t.Run("plain strings stay strict", func(t *testing.T) {
		failsWith(t, "expected '1.0' to equal 1", func() error {
			return Expect("1.0").Equal(1).Err()
		})
		passes(t, Expect("1").Not().Equal(1))
	})

	t.Run("no formatting fallback", func(t *testing.T) {
		passes(t, Expect([]int{1}).Not().Equal([]string{"1"}))
		passes(t, Expect([]int{1}).Equal([]int{1}))
	})

	t.Run("elements compare by node", func(t *testing.T) {
		passes(t, Expect(subject).Equal(dom.ElementFromNode(subject.Node())))
		passes(t, Expect(subject).Not().Equal(dom.CreateElement("div")))
	})
}

func TestLength_RejectsFractions(t *testing.T) {
	failsWith(t, "length requires an integer, got 1.5", func() error {
		return Expect([]int{1}).Assert("length", 1.5).Err()
	})
	failsWith(t, "length requires an integer, got 1.5", func() error {
		return Expect(parse(`<div></div>`)).Assert("length", 1.5).Err()
	})
	passes(t, Expect([]int{1}).Assert("length", 1.0))
}

func TestChain_FailFast(t *testing.T) {
	subject := parse(`<div class="a"></div>`)

	a := Expect(subject).Class("b").Class("a").ID("nope")
	require.Error(t, a.Err())
	assert.False(t, a.Passed())
	assert.Equal(t, "expected div.a to have class 'b'", a.Err().Error())

	var assertErr *AssertionError
	require.True(t, errors.As(a.Err(), &assertErr))
	assert.Equal(t, "class", assertErr.Predicate)
	assert.False(t, assertErr.Negated)
}

func TestChain_NegationPersists(t *testing.T) {
	subject := parse(`<div class="a"></div>`)

	a := Expect(subject).Not().Class("b")
	assert.True(t, a.Negated())
	passes(t, a.Class("c"))

	failsWith(t, "expected div.a not to have class 'a'", func() error {
		return Expect(subject).Not().Class("b").Class("a").Err()
	})
}

func TestChain_ErrIsUntypedNil(t *testing.T) {
	err := Expect("x").Equal("x").Err()
	assert.True(t, err == nil)
}

func TestChain_NonDOMSubject(t *testing.T) {
	failsWith(t, "expected 'text' to be an element or NodeList", func() error {
		return Expect("text").Class("a").Err()
	})
	failsWith(t, "expected 'text' to be an element or NodeList", func() error {
		return Expect("text").Not().Class("a").Err()
	})
	failsWith(t, "unknown predicate: nope", func() error {
		return Expect("text").Assert("nope").Err()
	})
}

func TestFail(t *testing.T) {
	t.Run("function that passes", func(t *testing.T) {
		a := Expect(func() error { return nil }).Fail("x")
		require.Error(t, a.Err())
		assert.Equal(t, "expected [Function] to fail", a.Err().Error())
	})

	t.Run("function that returns a plain error", func(t *testing.T) {
		a := Expect(func() error { return fmt.Errorf("boom") }).Fail("x")
		require.Error(t, a.Err())
		assert.Equal(t, "expected [Function] to fail, but it threw [Error: boom]", a.Err().Error())
	})

	t.Run("different message", func(t *testing.T) {
		a := Expect(func() error { return Expect("a").Equal("b").Err() }).Fail("x")
		require.Error(t, a.Err())
		assert.Equal(t, "expected [Function] to fail with 'x', but got 'expected 'a' to equal 'b''", a.Err().Error())
	})

	t.Run("subject is not a function", func(t *testing.T) {
		a := Expect(42).Fail("x")
		require.Error(t, a.Err())
		assert.Equal(t, "expected 42 to be a function", a.Err().Error())
	})
}

type recordingT struct {
	helpers int
	fatals  []string
}

func (r *recordingT) Helper() { r.helpers++ }

func (r *recordingT) Fatal(args ...any) {
	r.fatals = append(r.fatals, fmt.Sprint(args...))
}

func TestShould(t *testing.T) {
	rt := &recordingT{}
	Should(rt, parse(`<div name="foo"></div>`)).Attr("name").Equal("foo")
	assert.Empty(t, rt.fatals)
	assert.Greater(t, rt.helpers, 0)

	rt = &recordingT{}
	Should(rt, parse(`<div name="foo"></div>`)).Attr("bar").Attr("baz")
	require.Len(t, rt.fatals, 1)
	assert.Equal(t, `expected div[name="foo"] to have an attribute 'bar'`, rt.fatals[0])

	Should(t, parse(`<p class="x">hi</p>`)).Class("x").Text("hi")
}
