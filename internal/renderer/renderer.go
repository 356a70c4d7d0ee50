// Package renderer turns a parsed JSON value into collapsible,
// syntax-highlighted HTML markup.
//
// The markup is a fixed contract with the presentation layer: the class
// names type-null, type-string, type-number, type-boolean, type-hidden,
// collapser, ellipsis, collapsible, array, obj, hoverable, property,
// callback-function, action and src are consumed by host stylesheets and
// scripts and must not change.
//
// Rendering is a pure function of the value, the optional callback name and
// the renderer configuration. Embedded JSON sources are not fetched; each one
// produces a LoadRequest that the caller is responsible for serving.
package renderer

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mcncl/jsonview/internal/config"
	"github.com/mcncl/jsonview/internal/encoder"
	"github.com/mcncl/jsonview/internal/models"
)

// urlPattern matches strings that render as hyperlinks. The excluded class is
// the full Unicode whitespace set, not just RE2's ASCII \s.
var urlPattern = regexp.MustCompile(`^(http|https)://[^\s\v\p{Z}\x{FEFF}]+$`)

// LoadRequest asks the host to fetch Src, render it and place the result in
// the element matching the selector SrcID.
type LoadRequest struct {
	SrcID string
	Src   string
}

// Result is the output of a single render call.
type Result struct {
	HTML  string
	Loads []LoadRequest
}

// IDGenerator returns a new placeholder element id.
type IDGenerator func() string

// LoadHandler is notified of each LoadRequest as soon as it is produced.
type LoadHandler func(LoadRequest)

// Renderer renders JSON values to markup. It holds no per-call state and is
// safe for concurrent use as long as its IDGenerator and LoadHandler are.
type Renderer struct {
	cfg    *config.Config
	newID  IDGenerator
	onLoad LoadHandler
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithConfig sets the configuration. A nil config keeps the defaults.
func WithConfig(cfg *config.Config) Option {
	return func(r *Renderer) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithIDGenerator replaces the placeholder id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Renderer) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithLoadHandler registers a callback for load requests. The renderer does
// not wait for the handler to do anything with the request.
func WithLoadHandler(h LoadHandler) Option {
	return func(r *Renderer) {
		r.onLoad = h
	}
}

// New creates a Renderer. Placeholder ids default to the configured prefix
// followed by a random UUID, so ids stay unique across sub-documents that
// end up in the same page.
func New(opts ...Option) *Renderer {
	r := &Renderer{cfg: config.NewConfig()}
	for _, opt := range opts {
		opt(r)
	}
	if r.newID == nil {
		r.newID = UUIDs(r.cfg.PlaceholderPrefix())
	}
	return r
}

// UUIDs generates "<prefix>-<uuid>" ids.
func UUIDs(prefix string) IDGenerator {
	return func() string {
		return prefix + "-" + uuid.NewString()
	}
}

// SequentialIDs generates "<prefix>-1", "<prefix>-2", ... It is safe for
// concurrent use.
func SequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// Render renders v inside the root element. A non-empty fnName frames the
// output as fnName( ... ), mirroring a JSONP payload.
func (r *Renderer) Render(v models.Value, fnName string) Result {
	s := r.newState()
	if fnName != "" {
		s.sb.WriteString(`<div class="callback-function">`)
		s.sb.WriteString(encoder.Encode(fnName))
		s.sb.WriteString(`(</div>`)
	}
	s.sb.WriteString(`<div id="`)
	s.sb.WriteString(encoder.Encode(r.cfg.Render.RootID))
	s.sb.WriteString(`">`)
	s.writeValue(v)
	s.sb.WriteString(`</div>`)
	if fnName != "" {
		s.sb.WriteString(`<div class="callback-function">)</div>`)
	}
	return s.result()
}

// RenderValue renders v without the root element or callback framing.
// Hosts use it to produce the markup spliced into a placeholder.
func (r *Renderer) RenderValue(v models.Value) Result {
	s := r.newState()
	s.writeValue(v)
	return s.result()
}

// state carries everything a single render call accumulates.
type state struct {
	r     *Renderer
	sb    strings.Builder
	loads []LoadRequest
}

func (r *Renderer) newState() *state {
	return &state{r: r}
}

func (s *state) result() Result {
	return Result{HTML: s.sb.String(), Loads: s.loads}
}

func (s *state) emit(req LoadRequest) {
	s.loads = append(s.loads, req)
	if s.r.onLoad != nil {
		s.r.onLoad(req)
	}
}

func (s *state) writeValue(v models.Value) {
	switch val := v.(type) {
	case nil, models.Null:
		s.writeSpan("null", "type-null")
	case models.Array:
		s.writeArray(val)
	case *models.Object:
		s.writeObject(val)
	case models.Number:
		s.writeSpan(s.numberText(val), "type-number")
	case models.String:
		if urlPattern.MatchString(string(val)) {
			s.writeHref(string(val))
		} else {
			s.writeSpan(`"`+string(val)+`"`, "type-string")
		}
	case models.Bool:
		s.writeSpan(models.Text(val), "type-boolean")
	}
}

func (s *state) numberText(n models.Number) string {
	if s.r.cfg.Render.PreserveNumberLiterals {
		return string(n)
	}
	return n.String()
}

// writeSpan escapes text and wraps it in a span tagged with class.
func (s *state) writeSpan(text, class string) {
	s.sb.WriteString(`<span class="`)
	s.sb.WriteString(class)
	s.sb.WriteString(`">`)
	s.sb.WriteString(encoder.Encode(text))
	s.sb.WriteString(`</span>`)
}

// writeHref renders a quoted hyperlink whose text and target are both url.
func (s *state) writeHref(url string) {
	escaped := encoder.Encode(url)
	s.writeSpan(`"`, "type-string")
	s.sb.WriteString(`<a href="`)
	s.sb.WriteString(escaped)
	s.sb.WriteString(`">`)
	s.sb.WriteString(escaped)
	s.sb.WriteString(`</a>`)
	s.writeSpan(`"`, "type-string")
}

func (s *state) writeArray(arr models.Array) {
	if len(arr) == 0 {
		s.sb.WriteString("[ ]")
		return
	}
	s.sb.WriteString(`<div class="collapser"></div>[<span class="ellipsis"></span><ul class="array collapsible">`)
	for i, elem := range arr {
		s.sb.WriteString(`<li><div class="hoverable">`)
		s.writeValue(elem)
		if i < len(arr)-1 {
			s.sb.WriteString(",")
		}
		s.sb.WriteString(`</div></li>`)
	}
	s.sb.WriteString(`</ul>]`)
}
