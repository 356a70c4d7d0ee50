package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sample = `<div id="json"><div class="collapser"></div>[<span class="ellipsis"></span>` +
	`<ul class="array collapsible"><li><div class="hoverable"><span class="type-number">1</span></div></li></ul>]</div>`

func TestFormat_Empty(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "", f.Format(""))
	assert.Equal(t, "", f.Format("  \n\t"))
}

func TestFormat_IndentsMarkup(t *testing.T) {
	out := NewFormatter().Format(sample)

	assert.Greater(t, strings.Count(out, "\n"), 3)
	for _, want := range []string{
		`<div id="json">`,
		`<ul class="array collapsible">`,
		`<span class="type-number">`,
		`</ul>`,
	} {
		assert.Contains(t, out, want)
	}

	// Only whitespace is added.
	strip := func(s string) string { return strings.Join(strings.Fields(s), "") }
	assert.Equal(t, strip(sample), strip(out))
}

func TestFormat_LineNumbers(t *testing.T) {
	f := &Formatter{LineNumbers: true}
	out := f.Format(sample)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Greater(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "1"))
}
