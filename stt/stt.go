// Package stt implements the Douyu STT ("serialized text transfer") wire codec:
// a flat key/value text encoding where fields are joined as key@=value/ and
// nested structures are encoded recursively, escaped, and spliced in as values.
//
// The format is reverse-engineered and carries no type information: numbers and
// booleans serialize to their text form and come back as strings. That loss is
// intentional and must not be "fixed" here; downstream code parses field text
// as needed. Decoding is total: malformed segments are dropped, never reported.
package stt

import (
	"fmt"
	"strconv"
	"strings"
)

// A Record is a decoded STT message: string keys mapped to values, with key
// insertion order preserved for re-encoding. Values are strings, bools,
// numbers, nested *Records, or []any sequences.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores a value under key, keeping the key's first insertion position.
// It returns the receiver for chaining.
func (r *Record) Set(key string, v any) *Record {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
	return r
}

// Get returns the raw value for key.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Keys returns the record's keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return r.keys
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Str returns the scalar text of key, or "" when absent or non-scalar.
func (r *Record) Str(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case bool, int, int64, float64:
		return scalarText(v)
	default:
		return ""
	}
}

// Int parses the field text as an integer, returning 0 on absence or junk.
func (r *Record) Int(key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.Str(key)))
	if err != nil {
		return 0
	}
	return n
}

// Float parses the field text as a float, returning 0 on absence or junk.
func (r *Record) Float(key string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(r.Str(key)), 64)
	if err != nil {
		return 0
	}
	return f
}

// Record returns the nested Record under key, or nil when the value is not one.
// Some gateways deliver a nested record as a one-element sequence; that case
// flattens to its first record element.
func (r *Record) Record(key string) *Record {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case *Record:
		return n
	case []any:
		merged := NewRecord()
		for _, item := range n {
			nested, ok := item.(*Record)
			if !ok {
				continue
			}
			for _, k := range nested.Keys() {
				val, _ := nested.Get(k)
				merged.Set(k, val)
			}
		}
		if merged.Len() == 0 {
			return nil
		}
		return merged
	default:
		return nil
	}
}

// Escape replaces the wire delimiters in a scalar's text form: @ becomes @A
// and / becomes @S. The @ pass runs first so the @ introduced by @S survives.
func Escape(v any) string {
	s := scalarText(v)
	s = strings.ReplaceAll(s, "@", "@A")
	s = strings.ReplaceAll(s, "/", "@S")
	return s
}

// Unescape reverses Escape: @S back to / first, then @A back to @.
func Unescape(s string) string {
	s = strings.ReplaceAll(s, "@S", "/")
	s = strings.ReplaceAll(s, "@A", "@")
	return s
}

// Marshal encodes a value to STT text. Records emit key@=value/ per field in
// insertion order; sequences emit item/ per element; scalars emit their text
// form. Nested Records and sequences are marshalled recursively and the whole
// nested text escaped once, so the outer splitter never sees their delimiters.
func Marshal(v any) string {
	switch val := v.(type) {
	case *Record:
		var b strings.Builder
		for _, k := range val.keys {
			b.WriteString(k)
			b.WriteString("@=")
			b.WriteString(marshalValue(val.values[k]))
			b.WriteByte('/')
		}
		return b.String()
	case []any:
		var b strings.Builder
		for _, item := range val {
			b.WriteString(marshalValue(item))
			b.WriteByte('/')
		}
		return b.String()
	default:
		return scalarText(v)
	}
}

func marshalValue(v any) string {
	switch v.(type) {
	case *Record, []any:
		return Escape(Marshal(v))
	default:
		return Escape(v)
	}
}

// Unmarshal decodes STT text into a *Record, []any, or scalar string. It never
// fails: text that matches no structure comes back as an unescaped string, and
// record segments without a key@=value shape are silently dropped.
func Unmarshal(s string) any {
	if strings.Contains(s, "//") {
		parts := strings.Split(s, "//")
		list := make([]any, 0, len(parts))
		for _, p := range parts {
			if p == "" {
				continue
			}
			list = append(list, Unmarshal(p))
		}
		return list
	}
	if strings.Contains(s, "@=") {
		rec := NewRecord()
		for _, seg := range strings.Split(s, "/") {
			if seg == "" {
				continue
			}
			i := strings.Index(seg, "@=")
			if i < 0 {
				continue
			}
			rec.Set(seg[:i], unmarshalValue(Unescape(seg[i+2:])))
		}
		return rec
	}
	if strings.Contains(s, "@A=") {
		return Unmarshal(Unescape(s))
	}
	return Unescape(s)
}

// UnmarshalRecord decodes s and returns the resulting Record, or an empty one
// when the text decodes to something else. Callers that expect a framed
// gateway message use this to stay total.
func UnmarshalRecord(s string) *Record {
	if rec, ok := Unmarshal(s).(*Record); ok {
		return rec
	}
	return NewRecord()
}

// unmarshalValue re-parses an unescaped field value only when it visibly holds
// nested structure. Anything else stays a scalar string: inventing deeper
// nesting detection here corrupts legitimate text that happens to contain
// escape-like character runs.
func unmarshalValue(s string) any {
	if strings.Contains(s, "@=") || strings.Contains(s, "//") {
		return Unmarshal(s)
	}
	return s
}

func scalarText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
