package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Kind identifies which variant of the JSON value union a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a parsed JSON value. The concrete type is one of Null, Bool,
// Number, String, Array or *Object, decided once at parse time.
type Value interface {
	Kind() Kind
}

// Null is the JSON null literal.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number is a JSON number holding its literal source text.
type Number string

// String is a JSON string.
type String string

// Array is an ordered sequence of values.
type Array []Value

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Number) Kind() Kind { return KindNumber }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }

// Member is a single key/value entry of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is a JSON object that remembers the order in which its keys were
// declared.
type Object struct {
	members []Member
	index   map[string]int
}

// NewObject creates an Object from the given members. Later duplicates
// overwrite earlier values in place.
func NewObject(members ...Member) *Object {
	o := &Object{index: make(map[string]int, len(members))}
	for _, m := range members {
		o.Set(m.Key, m.Value)
	}
	return o
}

// Kind implements Value.
func (o *Object) Kind() Kind { return KindObject }

// Set stores value under key. A key that already exists keeps its original
// position and takes the new value.
func (o *Object) Set(key string, value Value) {
	if value == nil {
		value = Null{}
	}
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[key]; ok {
		o.members[i].Value = value
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, Member{Key: key, Value: value})
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.members[i].Value, true
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.members)
}

// Keys returns the keys in declaration order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	for _, m := range o.Members() {
		keys = append(keys, m.Key)
	}
	return keys
}

// Members returns the members in declaration order. The returned slice must
// not be modified.
func (o *Object) Members() []Member {
	if o == nil {
		return nil
	}
	return o.members
}

// MarshalJSON writes the object compactly, keeping key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return []byte(Compact(o)), nil
}

// MarshalJSON writes the array compactly.
func (a Array) MarshalJSON() ([]byte, error) {
	return []byte(Compact(a)), nil
}

// compactJSON is used for string quoting. HTML characters are left alone
// because callers escape the result themselves.
var compactJSON = jsoniter.Config{EscapeHTML: false}.Froze()

// Compact returns the compact JSON text of v in declaration order.
func Compact(v Value) string {
	var sb strings.Builder
	writeCompact(&sb, v)
	return sb.String()
}

func writeCompact(sb *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil, Null:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(val)))
	case Number:
		sb.WriteString(val.String())
	case String:
		sb.WriteString(quote(string(val)))
	case Array:
		sb.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCompact(sb, elem)
		}
		sb.WriteByte(']')
	case *Object:
		sb.WriteByte('{')
		for i, m := range val.Members() {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quote(m.Key))
			sb.WriteByte(':')
			writeCompact(sb, m.Value)
		}
		sb.WriteByte('}')
	}
}

func quote(s string) string {
	out, err := compactJSON.MarshalToString(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return out
}

// Float returns the numeric value of the literal. Literals that overflow
// become ±Inf.
func (n Number) Float() float64 {
	f, _ := strconv.ParseFloat(string(n), 64)
	return f
}

// String returns the number the way JavaScript's Number#toString prints it,
// so 1.0 becomes "1" and 1e-7 becomes "1e-7".
func (n Number) String() string {
	f, err := strconv.ParseFloat(string(n), 64)
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case err != nil:
		return string(n)
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truthy follows JavaScript truthiness: null, false, 0, NaN and the empty
// string are falsy; everything else, including empty containers, is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	case Number:
		f := val.Float()
		return f != 0 && !math.IsNaN(f)
	case String:
		return val != ""
	default:
		return true
	}
}

// Text returns the canonical textual form of v: raw string content,
// JavaScript number formatting, "true"/"false", "" for null and compact
// JSON for arrays and objects.
func Text(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case Bool:
		return strconv.FormatBool(bool(val))
	case Number:
		return val.String()
	case String:
		return string(val)
	default:
		return Compact(v)
	}
}

// StringField returns the member key of o when it holds a string.
func StringField(o *Object, key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// FromGo converts a tree produced by encoding/json (or built by hand) into a
// Value. Map keys have no order in Go, so they are sorted.
func FromGo(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Value:
		return val
	case bool:
		return Bool(val)
	case string:
		return String(val)
	case json.Number:
		return Number(val)
	case float64:
		return Number(strconv.FormatFloat(val, 'g', -1, 64))
	case float32:
		return Number(strconv.FormatFloat(float64(val), 'g', -1, 32))
	case int:
		return Number(strconv.Itoa(val))
	case int64:
		return Number(strconv.FormatInt(val, 10))
	case []interface{}:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = FromGo(elem)
		}
		return arr
	case []string:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = String(elem)
		}
		return arr
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, FromGo(val[k]))
		}
		return obj
	default:
		return String(fmt.Sprint(val))
	}
}
