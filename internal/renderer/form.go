package renderer

import (
	"github.com/mcncl/jsonview/internal/encoder"
	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/schema"
)

// jsonEnctype marks forms whose submission the host must re-encode as JSON.
const jsonEnctype = "application/json"

// formField is one input of an action form.
type formField struct {
	Name     string
	Type     string
	Title    string
	Value    models.Value
	Options  models.Array
	Required bool
	Multiple bool
}

// newFormField reads an "input" entry. Objects are descriptors and an array
// is a descriptor with nothing set. Any other value, null included, is the
// value of a hidden field.
func newFormField(name string, v models.Value) formField {
	if _, ok := v.(models.Array); ok {
		return formField{Name: name, Type: "text"}
	}
	desc, ok := v.(*models.Object)
	if !ok {
		return formField{Name: name, Type: "hidden", Value: v}
	}

	f := formField{Name: name, Type: "text"}
	if t, ok := desc.Get("type"); ok && models.Truthy(t) {
		f.Type = models.Text(t)
	}
	f.Title, _ = models.StringField(desc, "title")
	f.Value, _ = desc.Get("value")
	if opts, ok := desc.Get("options"); ok {
		f.Options, _ = opts.(models.Array)
	}
	f.Required = truthyField(desc, "required")
	f.Multiple = truthyField(desc, "multiple")
	return f
}

func truthyField(obj *models.Object, key string) bool {
	v, ok := obj.Get(key)
	return ok && models.Truthy(v)
}

// formFields collects the fields from "input", or synthesizes them from
// "schema" when no input map is given.
func formFields(obj *models.Object) []formField {
	var inputs *models.Object
	if in, ok := obj.Get("input"); ok {
		inputs, _ = in.(*models.Object)
	} else if sch, ok := obj.Get("schema"); ok {
		inputs, _ = schema.Inputs(sch)
	}

	fields := make([]formField, 0, inputs.Len())
	for _, m := range inputs.Members() {
		fields = append(fields, newFormField(m.Key, m.Value))
	}
	return fields
}

func (s *state) writeForm(obj *models.Object) {
	action, _ := obj.Get("action")
	s.sb.WriteString(`<div class="collapser"></div><span class="ellipsis"></span><form action="`)
	s.sb.WriteString(encoder.EncodeValue(action))
	s.sb.WriteString(`"`)

	if method, ok := obj.Get("method"); ok && models.Truthy(method) {
		s.writeAttr("method", models.Text(method))
	}
	enctype := ""
	if t, ok := obj.Get("type"); ok && models.Truthy(t) {
		enctype = models.Text(t)
		s.writeAttr("enctype", enctype)
	}
	s.sb.WriteString(` class="action collapsible">`)

	for _, f := range formFields(obj) {
		s.writeField(f)
	}

	s.sb.WriteString(`<li><input type="submit" value="`)
	s.sb.WriteString(encoder.Encode(s.r.cfg.Render.SubmitLabel))
	s.sb.WriteString(`"></li>`)
	if enctype == jsonEnctype {
		s.sb.WriteString(`<li>`)
		s.writeSpan(jsonEnctype, "type-hidden")
		s.sb.WriteString(`</li>`)
	}
	s.sb.WriteString(`</form>`)
}

func (s *state) writeAttr(name, value string) {
	s.sb.WriteString(" ")
	s.sb.WriteString(name)
	s.sb.WriteString(`="`)
	s.sb.WriteString(encoder.Encode(value))
	s.sb.WriteString(`"`)
}

func (s *state) writeFlags(f formField, multiple bool) {
	if f.Required {
		s.sb.WriteString(" required")
	}
	if multiple && f.Multiple {
		s.sb.WriteString(" multiple")
	}
}

func (s *state) writeField(f formField) {
	name := encoder.Encode(f.Name)
	s.sb.WriteString(`<li><div class="hoverable"><span class="property"`)
	if f.Title != "" {
		s.writeAttr("title", f.Title)
	}
	s.sb.WriteString(`>`)
	s.sb.WriteString(name)
	s.sb.WriteString(`</span> `)

	switch f.Type {
	case "textarea":
		s.sb.WriteString(`<br><textarea name="`)
		s.sb.WriteString(name)
		s.sb.WriteString(`"`)
		s.writeFlags(f, false)
		s.sb.WriteString(`>`)
		if models.Truthy(f.Value) {
			s.sb.WriteString(encoder.EncodeValue(f.Value))
		}
		s.sb.WriteString(`</textarea>`)
	case "select":
		s.sb.WriteString(`<select name="`)
		s.sb.WriteString(name)
		s.sb.WriteString(`"`)
		s.writeFlags(f, true)
		s.sb.WriteString(`>`)
		for _, opt := range f.Options {
			s.writeOption(f, opt)
		}
		s.sb.WriteString(`</select>`)
	default:
		s.sb.WriteString(`<input name="`)
		s.sb.WriteString(name)
		s.sb.WriteString(`"`)
		s.writeAttr("type", f.Type)
		if models.Truthy(f.Value) {
			s.writeAttr("value", models.Text(f.Value))
		}
		s.writeFlags(f, true)
		s.sb.WriteString(`>`)
		if f.Type == "hidden" {
			s.writeSpan(models.Text(f.Value), "type-hidden")
		}
	}
	s.sb.WriteString(`</div></li>`)
}

// writeOption renders a select option. Objects carry distinct value and
// text; bare values are used for both.
func (s *state) writeOption(f formField, opt models.Value) {
	value, text := models.Text(opt), models.Text(opt)
	if o, ok := opt.(*models.Object); ok {
		v, _ := o.Get("value")
		value = models.Text(v)
		if t, ok := o.Get("text"); ok {
			text = models.Text(t)
		} else {
			text = value
		}
	}

	s.sb.WriteString(`<option`)
	s.writeAttr("value", value)
	if f.selects(value) {
		s.sb.WriteString(" selected")
	}
	s.sb.WriteString(`>`)
	s.sb.WriteString(encoder.Encode(text))
	s.sb.WriteString(`</option>`)
}

// selects reports whether the field's current value picks the option.
func (f formField) selects(option string) bool {
	switch v := f.Value.(type) {
	case nil, models.Null:
		return false
	case models.Array:
		for _, elem := range v {
			if models.Text(elem) == option {
				return true
			}
		}
		return false
	default:
		return models.Text(v) == option
	}
}
