package domain

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Document is an ordered set of named values. Fields keep the position in
// which they were first set. A Document is not safe for concurrent use.
type Document struct {
	keys   []string
	fields map[string]Value
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{fields: make(map[string]Value)}
}

// Set sets the value of key. Existing keys keep their position. Setting an
// undefined value removes the key.
func (d *Document) Set(key string, v Value) {
	if v.IsUndefined() {
		d.Unset(key)
		return
	}
	if d.fields == nil {
		d.fields = make(map[string]Value)
	}
	if _, ok := d.fields[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.fields[key] = v
}

// Get returns the value of key and whether it is present.
func (d *Document) Get(key string) (Value, bool) {
	if d == nil {
		return Undefined(), false
	}
	v, ok := d.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Unset removes key from the document.
func (d *Document) Unset(key string) {
	if _, ok := d.fields[key]; !ok {
		return
	}
	delete(d.fields, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
}

// Len returns the number of fields.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the field names in order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

// Iter iterates over fields in order.
func (d *Document) Iter() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if d == nil {
			return
		}
		for _, k := range d.keys {
			if !yield(k, d.fields[k]) {
				return
			}
		}
	}
}

// Lookup resolves a dotted path such as "alamat.kota" or "tags.0". Numeric
// segments index into lists. Missing steps yield an undefined value.
func (d *Document) Lookup(path string) Value {
	cur := Doc(d)
	for part := range strings.SplitSeq(path, ".") {
		switch cur.Kind() {
		case KindDocument:
			v, ok := cur.Document().Get(part)
			if !ok {
				return Undefined()
			}
			cur = v
		case KindList:
			n, err := strconv.Atoi(part)
			items := cur.Items()
			if err != nil || n < 0 || n >= len(items) {
				return Undefined()
			}
			cur = items[n]
		default:
			return Undefined()
		}
	}
	return cur
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{
		keys:   slices.Clone(d.keys),
		fields: make(map[string]Value, len(d.fields)),
	}
	for k, v := range d.fields {
		c.fields[k] = v.Clone()
	}
	return c
}

// Map converts d into a map[string]any using [Value.Interface].
func (d *Document) Map() map[string]any {
	m := make(map[string]any, d.Len())
	for k, v := range d.Iter() {
		m[k] = v.Interface()
	}
	return m
}

// MarshalJSON implements json.Marshaler, keeping field order.
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.AppendJSON(nil)
}

// AppendJSON appends the JSON encoding of d to b.
func (d *Document) AppendJSON(b []byte) ([]byte, error) {
	var err error
	b = append(b, '{')
	for n, k := range d.Keys() {
		if n > 0 {
			b = append(b, ',')
		}
		if b, err = String(k).AppendJSON(b); err != nil {
			return nil, err
		}
		b = append(b, ':')
		if b, err = d.fields[k].AppendJSON(b); err != nil {
			return nil, err
		}
	}
	return append(b, '}'), nil
}

func (d *Document) String() string {
	b, err := d.AppendJSON(nil)
	if err != nil {
		return "{}"
	}
	return string(b)
}
