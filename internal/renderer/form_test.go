package renderer

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonview/internal/config"
	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/parser"
)

const (
	formPrefix = `<div class="collapser"></div><span class="ellipsis"></span>`
	submit     = `<li><input type="submit" value="Send"></li>`
)

// renderForm renders only the form synthesized for input.
func renderForm(t *testing.T, r *Renderer, input string) string {
	t.Helper()
	v, err := parser.ParseString(input)
	require.NoError(t, err)
	obj, ok := v.(*models.Object)
	require.True(t, ok)

	s := r.newState()
	s.writeForm(obj)
	return s.sb.String()
}

func field(name, element string) string {
	return `<li><div class="hoverable"><span class="property">` + name + `</span> ` + element + `</div></li>`
}

func TestForm_SelectOptionsInOrder(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "/search",
		"input": {"q": {"type": "select", "options": ["a", "b"]}}
	}`)

	expected := formPrefix + `<form action="/search" class="action collapsible">` +
		field("q", `<select name="q"><option value="a">a</option><option value="b">b</option></select>`) +
		submit + `</form>`
	assert.Equal(t, expected, html)
	assert.Equal(t, 2, strings.Count(html, "<option "))
}

func TestForm_Attributes(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "/upload?a=1&b=2",
		"method": "post",
		"type": "multipart/form-data"
	}`)

	assert.Equal(t,
		formPrefix+`<form action="/upload?a=1&amp;b=2" method="post" enctype="multipart/form-data" class="action collapsible">`+submit+`</form>`,
		html)
}

func TestForm_FalsyMethodAndTypeAreOmitted(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{"action": "/x", "method": "", "type": null}`)
	assert.Equal(t, formPrefix+`<form action="/x" class="action collapsible">`+submit+`</form>`, html)
}

func TestForm_FieldKinds(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "/f",
		"input": {
			"token": "abc<1>",
			"count": 0,
			"name": {"value": "Ada", "required": true},
			"bio": {"type": "textarea", "value": "<hi>", "required": 1},
			"files": {"type": "file", "multiple": true},
			"notes": {"type": "textarea"},
			"plain": {}
		}
	}`)

	expectedFields := []string{
		field("token", `<input name="token" type="hidden" value="abc&lt;1&gt;"><span class="type-hidden">abc&lt;1&gt;</span>`),
		field("count", `<input name="count" type="hidden"><span class="type-hidden">0</span>`),
		field("name", `<input name="name" type="text" value="Ada" required>`),
		field("bio", `<br><textarea name="bio" required>&lt;hi&gt;</textarea>`),
		field("files", `<input name="files" type="file" multiple>`),
		field("notes", `<br><textarea name="notes"></textarea>`),
		field("plain", `<input name="plain" type="text">`),
	}
	assert.Equal(t,
		formPrefix+`<form action="/f" class="action collapsible">`+strings.Join(expectedFields, "")+submit+`</form>`,
		html)
}

func TestForm_ArrayAndNullEntries(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "/f",
		"input": {
			"list": ["a", "b"],
			"empty": [],
			"none": null
		}
	}`)

	expectedFields := []string{
		field("list", `<input name="list" type="text">`),
		field("empty", `<input name="empty" type="text">`),
		field("none", `<input name="none" type="hidden"><span class="type-hidden">null</span>`),
	}
	assert.Equal(t,
		formPrefix+`<form action="/f" class="action collapsible">`+strings.Join(expectedFields, "")+submit+`</form>`,
		html)
}

func TestForm_FieldTitles(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "/f",
		"input": {
			"q": {"title": "Search <terms>"},
			"n": {"title": ""}
		},
		"schema": {"properties": {"ignored": {"title": "x"}}}
	}`)
	assert.Contains(t, html, `<li><div class="hoverable"><span class="property" title="Search &lt;terms&gt;">q</span> <input name="q" type="text"></div></li>`)
	assert.Contains(t, html, field("n", `<input name="n" type="text">`))

	html = renderForm(t, newTestRenderer(), `{
		"action": "/f",
		"schema": {"properties": {"age": {"type": "integer", "description": "Years"}}}
	}`)
	assert.Contains(t, html, `<li><div class="hoverable"><span class="property" title="Years">age</span> <input name="age" type="number"></div></li>`)
}

func TestForm_SelectOptionObjectsAndSelection(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "/f",
		"input": {
			"size": {
				"type": "select",
				"value": "m",
				"required": true,
				"options": [{"value": "s", "text": "Small"}, {"value": "m", "text": "Medium"}, {"value": "l"}]
			},
			"tags": {"type": "select", "multiple": true, "value": ["x", "z"], "options": ["x", "y", "z"]},
			"broken": {"type": "select", "options": "not a list"}
		}
	}`)

	assert.Contains(t, html, field("size",
		`<select name="size" required>`+
			`<option value="s">Small</option>`+
			`<option value="m" selected>Medium</option>`+
			`<option value="l">l</option>`+
			`</select>`))
	assert.Contains(t, html, field("tags",
		`<select name="tags" multiple>`+
			`<option value="x" selected>x</option>`+
			`<option value="y">y</option>`+
			`<option value="z" selected>z</option>`+
			`</select>`))
	assert.Contains(t, html, field("broken", `<select name="broken"></select>`))
}

func TestForm_JSONEnctypeMarker(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{"action": "/api", "method": "post", "type": "application/json"}`)
	assert.True(t, strings.HasSuffix(html, submit+`<li><span class="type-hidden">application/json</span></li></form>`))

	html = renderForm(t, newTestRenderer(), `{"action": "/api", "type": "application/json; charset=utf-8"}`)
	assert.NotContains(t, html, `<span class="type-hidden">application/json</span>`)
}

func TestForm_SubmitLabelFromConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Render.SubmitLabel = `Go "now"`
	html := renderForm(t, New(WithConfig(cfg)), `{"action": "/x"}`)
	assert.Contains(t, html, `<input type="submit" value="Go &quot;now&quot;">`)
}

func TestForm_FromSchema(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "/users",
		"method": "post",
		"schema": {
			"type": "object",
			"required": ["email"],
			"properties": {
				"email": {"type": "string", "format": "email"},
				"role": {"enum": ["admin", "user"], "default": "user"},
				"active": {"type": "boolean"},
				"kind": {"const": "person"}
			}
		}
	}`)

	expectedFields := []string{
		field("email", `<input name="email" type="email" required>`),
		field("role", `<select name="role"><option value="admin">admin</option><option value="user" selected>user</option></select>`),
		field("active", `<input name="active" type="checkbox">`),
		field("kind", `<input name="kind" type="hidden" value="person"><span class="type-hidden">person</span>`),
	}
	assert.Equal(t,
		formPrefix+`<form action="/users" method="post" class="action collapsible">`+strings.Join(expectedFields, "")+submit+`</form>`,
		html)
}

func TestForm_InputWinsOverSchema(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "/x",
		"input": {"a": "1"},
		"schema": {"properties": {"b": {"type": "string"}}}
	}`)
	assert.Contains(t, html, `name="a"`)
	assert.NotContains(t, html, `name="b"`)
}

func TestForm_NonObjectInputIsIgnored(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{"action": "/x", "input": ["a", "b"]}`)
	assert.Equal(t, formPrefix+`<form action="/x" class="action collapsible">`+submit+`</form>`, html)
}

func TestRenderValue_ActionObjectAppendsForm(t *testing.T) {
	v, err := parser.ParseString(`{"action": "/search", "input": {"q": ""}}`)
	require.NoError(t, err)
	res := newTestRenderer().RenderValue(v)

	expected := objOpen +
		`<li><div class="hoverable"><span class="property">action</span>: <span class="type-string">&quot;/search&quot;</span>,</div></li>` +
		`<li><div class="hoverable"><span class="property">input</span>: ` + objOpen +
		`<li><div class="hoverable"><span class="property">q</span>: <span class="type-string">&quot;&quot;</span></div></li></ul>}` +
		`</div></li>` +
		`<li><div class="hoverable">` + formPrefix + `<form action="/search" class="action collapsible">` +
		field("q", `<input name="q" type="hidden"><span class="type-hidden"></span>`) +
		submit + `</form></div></li>` +
		`</ul>}`
	assert.Equal(t, expected, res.HTML)
}

func TestRenderValue_FalsyActionRendersNoForm(t *testing.T) {
	for _, input := range []string{
		`{"action": ""}`,
		`{"action": false}`,
		`{"action": 0}`,
		`{"action": null}`,
	} {
		v, err := parser.ParseString(input)
		require.NoError(t, err)
		res := newTestRenderer().RenderValue(v)
		assert.NotContains(t, res.HTML, "<form", input)
	}
}

func TestForm_NoUnescapedMarkupFromInput(t *testing.T) {
	html := renderForm(t, newTestRenderer(), `{
		"action": "\"><script>alert(1)</script>",
		"method": "<m>",
		"input": {"<n>": {"type": "<t>", "value": "<v>", "options": ["<o>"]}}
	}`)
	assert.NotRegexp(t, regexp.MustCompile(`<(script|m|n|t|v|o)>`), html)
}
