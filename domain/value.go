package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the type held by a [Value]. Kinds are declared in the order
// used to sort values of different types.
type Kind uint8

const (
	// KindUndefined marks a missing field. It is never stored.
	KindUndefined Kind = iota
	KindNull
	KindNumber
	KindString
	KindBool
	KindList
	KindDocument
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindNumber:    "number",
	KindString:    "string",
	KindBool:      "bool",
	KindList:      "list",
	KindDocument:  "document",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged union holding any value that can be stored in a
// [Document]. The zero Value is undefined.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	list []Value
	doc  *Document
}

// Undefined returns the value used for missing fields.
func Undefined() Value { return Value{} }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list value holding the given elements. The slice is not
// copied.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Doc returns a value wrapping a nested document. A nil document becomes an
// empty one.
func Doc(d *Document) Value {
	if d == nil {
		d = NewDocument()
	}
	return Value{kind: KindDocument, doc: d}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v represents a missing field.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// Num returns the number held by v and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the string held by v and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Boolean returns the boolean held by v and whether v is a bool.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns the elements of a list value, or nil for other kinds. The
// returned slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Document returns the nested document held by v, or nil.
func (v Value) Document() *Document {
	if v.kind != KindDocument {
		return nil
	}
	return v.doc
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for n, item := range v.list {
			items[n] = item.Clone()
		}
		return Value{kind: KindList, list: items}
	case KindDocument:
		return Value{kind: KindDocument, doc: v.doc.Clone()}
	default:
		return v
	}
}

// Interface converts v into plain Go values: nil, float64, string, bool,
// []any and map[string]any. Undefined also becomes nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindList:
		l := make([]any, len(v.list))
		for n, item := range v.list {
			l[n] = item.Interface()
		}
		return l
	case KindDocument:
		return v.doc.Map()
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler. Undefined is written as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil)
}

// AppendJSON appends the JSON encoding of v to b.
func (v Value) AppendJSON(b []byte) ([]byte, error) {
	switch v.kind {
	case KindUndefined, KindNull:
		return append(b, "null"...), nil
	case KindNumber:
		return strconv.AppendFloat(b, v.num, 'g', -1, 64), nil
	case KindString:
		s, err := json.Marshal(v.str)
		if err != nil {
			return nil, err
		}
		return append(b, s...), nil
	case KindBool:
		return strconv.AppendBool(b, v.b), nil
	case KindList:
		var err error
		b = append(b, '[')
		for n, item := range v.list {
			if n > 0 {
				b = append(b, ',')
			}
			if b, err = item.AppendJSON(b); err != nil {
				return nil, err
			}
		}
		return append(b, ']'), nil
	case KindDocument:
		return v.doc.AppendJSON(b)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func (v Value) String() string {
	b, err := v.AppendJSON(nil)
	if err != nil {
		return v.kind.String()
	}
	return string(b)
}
