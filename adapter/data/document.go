// Package data converts Go values and JSON into [domain.Document] trees.
package data

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	goreflect "github.com/goccy/go-reflect"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// TagName is the struct tag read when converting structs.
const TagName = "docstore"

// maxSafeInteger is the largest integer a float64 holds without loss.
const maxSafeInteger = 1 << 53

var (
	timeTyp     = goreflect.TypeOf(*new(time.Time))
	valueTyp    = goreflect.TypeOf(*new(domain.Value))
	documentTyp = goreflect.TypeOf(*new(domain.Document))
)

// NewDocument converts a map with string keys or a struct into a
// [domain.Document]. Map keys are sorted so that the resulting field order is
// deterministic. Any other input, nil included, is
// [domain.ErrMalformedDocument].
func NewDocument(in any) (*domain.Document, error) {
	switch t := in.(type) {
	case *domain.Document:
		if t == nil {
			break
		}
		if err := CheckDocument(t); err != nil {
			return nil, err
		}
		return t.Clone(), nil
	case domain.Value:
		if d := t.Document(); d != nil {
			return NewDocument(d)
		}
	}

	v, err := NewValue(in)
	if err != nil {
		return nil, err
	}
	d := v.Document()
	if d == nil {
		return nil, fmt.Errorf("%w: expected map or struct, got %T", domain.ErrMalformedDocument, in)
	}
	return d, nil
}

// NewValue converts any supported Go value into a [domain.Value]. A nil
// input becomes null.
func NewValue(in any) (domain.Value, error) {
	switch t := in.(type) {
	case nil:
		return domain.Null(), nil
	case domain.Value:
		if err := checkValue(t); err != nil {
			return domain.Undefined(), err
		}
		return t.Clone(), nil
	case string:
		return text(t)
	case bool:
		return domain.Bool(t), nil
	case float64:
		return number(t)
	case int:
		return integer(int64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return domain.Undefined(), fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
		}
		return number(f)
	case time.Time:
		return domain.String(t.Format(time.RFC3339Nano)), nil
	case map[string]any:
		return parseMap(t)
	case []any:
		items := make([]domain.Value, len(t))
		for n, item := range t {
			v, err := NewValue(item)
			if err != nil {
				return domain.Undefined(), err
			}
			items[n] = v
		}
		return domain.List(items...), nil
	}
	return parseReflect(goreflect.ValueNoEscapeOf(in))
}

func text(s string) (domain.Value, error) {
	if !utf8.ValidString(s) {
		return domain.Undefined(), fmt.Errorf("%w: string %q is not valid UTF-8", domain.ErrMalformedDocument, s)
	}
	return domain.String(s), nil
}

func number(f float64) (domain.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return domain.Undefined(), fmt.Errorf("%w: %v is not a finite number", domain.ErrMalformedDocument, f)
	}
	return domain.Number(f), nil
}

func integer(i int64) (domain.Value, error) {
	if i > maxSafeInteger || i < -maxSafeInteger {
		return domain.Undefined(), fmt.Errorf("%w: integer %d cannot be represented exactly", domain.ErrMalformedDocument, i)
	}
	return domain.Number(float64(i)), nil
}

func parseMap(m map[string]any) (domain.Value, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	d := domain.NewDocument()
	for _, k := range keys {
		if err := CheckFieldName(k); err != nil {
			return domain.Undefined(), err
		}
		v, err := NewValue(m[k])
		if err != nil {
			return domain.Undefined(), err
		}
		d.Set(k, v)
	}
	return domain.Doc(d), nil
}

func parseReflect(r goreflect.Value) (domain.Value, error) {
	for r.Kind() == reflect.Pointer || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			return domain.Null(), nil
		}
		if d, ok := r.Interface().(*domain.Document); ok {
			return NewValue(domain.Doc(d))
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Invalid:
		return domain.Null(), nil
	case goreflect.Bool:
		return domain.Bool(r.Bool()), nil
	case goreflect.String:
		return text(r.String())
	case goreflect.Int, goreflect.Int8, goreflect.Int16, goreflect.Int32, goreflect.Int64:
		return integer(r.Int())
	case goreflect.Uint, goreflect.Uint8, goreflect.Uint16, goreflect.Uint32, goreflect.Uint64, goreflect.Uintptr:
		u := r.Uint()
		if u > maxSafeInteger {
			return domain.Undefined(), fmt.Errorf("%w: integer %d cannot be represented exactly", domain.ErrMalformedDocument, u)
		}
		return domain.Number(float64(u)), nil
	case goreflect.Float32, goreflect.Float64:
		return number(r.Float())
	case goreflect.Slice:
		if r.IsNil() {
			return domain.Null(), nil
		}
		fallthrough
	case goreflect.Array:
		return parseList(r)
	case goreflect.Struct:
		switch r.Type() {
		case timeTyp, valueTyp:
			return NewValue(r.Interface())
		case documentTyp:
			d := r.Interface().(domain.Document)
			return NewValue(domain.Doc(&d))
		}
		return parseStruct(r)
	case goreflect.Map:
		if r.IsNil() {
			return domain.Null(), nil
		}
		return parseMapReflect(r)
	}
	return domain.Undefined(), fmt.Errorf("%w: unsupported type %s", domain.ErrMalformedDocument, r.Type().String())
}

func parseStruct(r goreflect.Value) (domain.Value, error) {
	typ := r.Type()
	d := domain.NewDocument()

	for n := range r.NumField() {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		name, keep := fieldName(r.Field(n), field)
		if !keep {
			continue
		}
		if err := CheckFieldName(name); err != nil {
			return domain.Undefined(), err
		}
		value, err := parseReflect(r.Field(n))
		if err != nil {
			return domain.Undefined(), err
		}
		d.Set(name, value)
	}
	return domain.Doc(d), nil
}

func parseMapReflect(v goreflect.Value) (domain.Value, error) {
	if v.Type().Key().Kind() != goreflect.String {
		return domain.Undefined(), fmt.Errorf("%w: map keys must be strings, got %s", domain.ErrMalformedDocument, v.Type().Key().String())
	}
	keys := v.MapKeys()
	slices.SortFunc(keys, func(a, b goreflect.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	d := domain.NewDocument()
	for _, k := range keys {
		if err := CheckFieldName(k.String()); err != nil {
			return domain.Undefined(), err
		}
		value, err := parseReflect(v.MapIndex(k))
		if err != nil {
			return domain.Undefined(), err
		}
		d.Set(k.String(), value)
	}
	return domain.Doc(d), nil
}

func fieldName(r goreflect.Value, typ goreflect.StructField) (string, bool) {
	name := typ.Name
	var tagSegments []string
	if tag, ok := typ.Tag.Lookup(TagName); ok {
		if tag == "-" {
			return "", false
		}
		tagSegments = strings.Split(tag, ",")
		if tagSegments[0] != "" {
			name = tagSegments[0]
		}
		tagSegments = tagSegments[1:]
	}
	if slices.Contains(tagSegments, "omitempty") && isNullable(typ.Type) && r.IsNil() {
		return "", false
	}
	if slices.Contains(tagSegments, "omitzero") && r.IsZero() {
		return "", false
	}
	return name, true
}

func parseList(r goreflect.Value) (domain.Value, error) {
	length := r.Len()
	items := make([]domain.Value, length)
	for i := range length {
		v, err := parseReflect(r.Index(i))
		if err != nil {
			return domain.Undefined(), err
		}
		items[i] = v
	}
	return domain.List(items...), nil
}

func isNullable(t goreflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface
}

// CheckFieldName reports whether name can be stored as a field name.
func CheckFieldName(name string) error {
	switch {
	case name == "":
		return domain.ErrFieldName{Field: name, Reason: "cannot be empty"}
	case !utf8.ValidString(name):
		return domain.ErrFieldName{Field: name, Reason: "must be valid UTF-8"}
	case strings.HasPrefix(name, "$"):
		return domain.ErrFieldName{Field: name, Reason: "cannot start with '$'"}
	case strings.Contains(name, "."):
		return domain.ErrFieldName{Field: name, Reason: "cannot contain '.'"}
	}
	return nil
}

// CheckDocument validates every field name and number of d, recursively.
func CheckDocument(d *domain.Document) error {
	for k, v := range d.Iter() {
		if err := CheckFieldName(k); err != nil {
			return err
		}
		if err := checkValue(v); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(v domain.Value) error {
	switch v.Kind() {
	case domain.KindString:
		str, _ := v.Str()
		_, err := text(str)
		return err
	case domain.KindNumber:
		n, _ := v.Num()
		_, err := number(n)
		return err
	case domain.KindList:
		for _, item := range v.Items() {
			if err := checkValue(item); err != nil {
				return err
			}
		}
	case domain.KindDocument:
		return CheckDocument(v.Document())
	}
	return nil
}

// CheckCollectionName reports whether name can be used for a collection in
// every persistence backend: file names, key prefixes and table rows.
func CheckCollectionName(name string) error {
	switch {
	case name == "":
		return domain.ErrDatafileName{Name: name, Reason: "cannot be empty"}
	case len(name) > 128:
		return domain.ErrDatafileName{Name: name, Reason: "cannot be longer than 128 bytes"}
	case strings.HasPrefix(name, "$") || strings.HasPrefix(name, "."):
		return domain.ErrDatafileName{Name: name, Reason: "cannot start with '$' or '.'"}
	case strings.HasSuffix(name, "~"):
		return domain.ErrDatafileName{Name: name, Reason: "cannot end with '~', reserved for temporary files"}
	case strings.ContainsAny(name, "/\\:*?\"<>|\x00"):
		return domain.ErrDatafileName{Name: name, Reason: "cannot contain path separators or reserved characters"}
	}
	return nil
}
