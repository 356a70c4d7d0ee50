package renderer

import (
	"strings"

	"github.com/mcncl/jsonview/internal/encoder"
	"github.com/mcncl/jsonview/internal/models"
)

func (s *state) writeObject(obj *models.Object) {
	if s.writeEmbeddedSource(obj) {
		return
	}
	if obj.Len() == 0 {
		s.sb.WriteString("{ }")
		return
	}

	s.sb.WriteString(`<div class="collapser"></div>{<span class="ellipsis"></span><ul class="obj collapsible">`)
	members := obj.Members()
	for i, m := range members {
		s.sb.WriteString(`<li><div class="hoverable"><span class="property">`)
		s.sb.WriteString(encoder.Encode(m.Key))
		s.sb.WriteString(`</span>: `)
		// href and src are always links, whatever they hold.
		if m.Key == "href" || m.Key == "src" {
			s.writeHref(models.Text(m.Value))
		} else {
			s.writeValue(m.Value)
		}
		if i < len(members)-1 {
			s.sb.WriteString(",")
		}
		s.sb.WriteString(`</div></li>`)
	}

	if action, ok := obj.Get("action"); ok && models.Truthy(action) {
		s.sb.WriteString(`<li><div class="hoverable">`)
		s.writeForm(obj)
		s.sb.WriteString(`</div></li>`)
	}
	s.sb.WriteString(`</ul>}`)
}

// writeEmbeddedSource handles objects of the form {"src": ..., "type": ...}
// whose type names JSON or an image. It reports whether it wrote anything.
//
// The object itself is kept in the page as hidden compact JSON. A JSON
// source gets an empty placeholder plus a LoadRequest; an image is inlined.
func (s *state) writeEmbeddedSource(obj *models.Object) bool {
	src, ok := obj.Get("src")
	if !ok {
		return false
	}
	kind, ok := models.StringField(obj, "type")
	if !ok {
		return false
	}
	isJSON := strings.Contains(kind, "json")
	if !isJSON && !strings.Contains(kind, "image") {
		return false
	}

	s.writeSpan(models.Compact(obj), "type-hidden")

	url := models.Text(src)
	if isJSON {
		id := s.r.newID()
		s.sb.WriteString(`<div class="src" id="`)
		s.sb.WriteString(encoder.Encode(id))
		s.sb.WriteString(`"></div>`)
		s.emit(LoadRequest{SrcID: "#" + id, Src: url})
		return true
	}

	s.sb.WriteString(`<img class="src" src="`)
	s.sb.WriteString(encoder.Encode(url))
	s.sb.WriteString(`">`)
	return true
}
