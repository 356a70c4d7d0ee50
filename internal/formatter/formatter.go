package formatter

import (
	"strings"

	"github.com/yosssi/gohtml"
)

// Formatter indents rendered markup for people to read. Hosts must be given
// the unformatted markup.
type Formatter struct {
	// LineNumbers prefixes every output line with its number.
	LineNumbers bool
}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format returns html indented one element per line
func (f *Formatter) Format(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	if f.LineNumbers {
		return gohtml.FormatWithLineNo(html)
	}
	return gohtml.Format(html)
}
