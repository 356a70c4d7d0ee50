// Package encoder escapes text for safe embedding in HTML element content
// and double-quoted attribute values.
package encoder

import (
	"strings"

	"github.com/mcncl/jsonview/internal/models"
)

// Replacer output is never rescanned, so the entities it produces are not
// escaped a second time.
var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
)

// Encode escapes &, ", < and > in s.
func Encode(s string) string {
	return htmlReplacer.Replace(s)
}

// EncodeValue escapes the canonical text of v. Null (and a nil Value)
// encodes to the empty string.
func EncodeValue(v models.Value) string {
	return Encode(models.Text(v))
}
