package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

var (
	// ErrTrailingData is returned when there are unskippable bytes after
	// the JSON data structure in the content ends.
	ErrTrailingData = errors.New("trailing data after JSON")
	// ErrExpectedString is returned when a JSON object is started, but no
	// string is found for the key.
	ErrExpectedString = errors.New("expected string")
	// ErrUnterminatedString is returned when a string starts but is not
	// terminated before the end of the input.
	ErrUnterminatedString = errors.New("unterminated string")
	// ErrNoComma is returned when there is no comma between segments of
	// data in objects or arrays.
	ErrNoComma = errors.New("expected comma")
	// ErrNoColon is returned when there is no colon after the definition of
	// a key in a JSON object.
	ErrNoColon = errors.New("expected colon")
	// ErrInvalidNumber is returned when a non-null non-bool literal could
	// not be correctly read as a number.
	ErrInvalidNumber = errors.New("invalid JSON number")
	// ErrNotAnObject is returned by [ParseDocument] when the input is valid
	// JSON but not an object.
	ErrNotAnObject = errors.New("JSON value is not an object")
)

// ErrInvalidLiteral when a known token (either true, false or null) starts but
// is not correctly finished.
type ErrInvalidLiteral struct {
	Value string
}

// Error implements [error].
func (e ErrInvalidLiteral) Error() string {
	return fmt.Sprintf("invalid literal %q", e.Value)
}

// ParseDocument parses a JSON object keeping the order of its fields. Field
// names are validated the same way as in [NewDocument].
func ParseDocument(b []byte) (*domain.Document, error) {
	v, err := ParseValue(b)
	if err != nil {
		return nil, err
	}
	d := v.Document()
	if d == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedDocument, ErrNotAnObject)
	}
	return d, nil
}

// ParseValue parses any JSON value.
func ParseValue(b []byte) (domain.Value, error) {
	p := parser{data: b, n: len(b)}
	v, err := p.parse()
	if err != nil {
		var fe domain.ErrFieldName
		if errors.As(err, &fe) {
			return domain.Undefined(), err
		}
		return domain.Undefined(), fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
	}
	return v, nil
}

type parser struct {
	data []byte
	i    int
	n    int
}

func (p *parser) parse() (domain.Value, error) {
	p.skip()
	val, err := p.value()
	if err != nil {
		return domain.Undefined(), err
	}
	p.skip()
	if p.i != p.n {
		return domain.Undefined(), ErrTrailingData
	}
	return val, nil
}

func (p *parser) skip() {
	for p.i < p.n {
		switch p.data[p.i] {
		case ' ', '\t', '\n', '\r':
			p.i++
		default:
			return
		}
	}
}

func (p *parser) value() (domain.Value, error) {
	if p.i >= p.n {
		return domain.Undefined(), io.ErrUnexpectedEOF
	}
	switch p.data[p.i] {
	case '{':
		return p.obj()
	case '[':
		return p.arr()
	case '"':
		s, err := p.str()
		if err != nil {
			return domain.Undefined(), err
		}
		return domain.String(s), nil
	case 't':
		return p.expect("true", domain.Bool(true))
	case 'f':
		return p.expect("false", domain.Bool(false))
	case 'n':
		return p.expect("null", domain.Null())
	default:
		return p.num()
	}
}

func (p *parser) obj() (domain.Value, error) {
	p.i++ // skip '{'
	p.skip()
	d := domain.NewDocument()
	if p.i < p.n && p.data[p.i] == '}' {
		p.i++
		return domain.Doc(d), nil
	}
	for {
		p.skip()
		if p.i >= p.n {
			return domain.Undefined(), io.ErrUnexpectedEOF
		}
		key, err := p.str()
		if err != nil {
			return domain.Undefined(), err
		}
		if err := CheckFieldName(key); err != nil {
			return domain.Undefined(), err
		}
		p.skip()
		if p.i >= p.n || p.data[p.i] != ':' {
			return domain.Undefined(), ErrNoColon
		}
		p.i++
		p.skip()
		val, err := p.value()
		if err != nil {
			return domain.Undefined(), err
		}
		d.Set(key, val)
		p.skip()
		if p.i >= p.n {
			return domain.Undefined(), io.ErrUnexpectedEOF
		}
		if p.data[p.i] == '}' {
			p.i++
			break
		}
		if p.data[p.i] != ',' {
			return domain.Undefined(), ErrNoComma
		}
		p.i++
	}
	return domain.Doc(d), nil
}

func (p *parser) arr() (domain.Value, error) {
	p.i++ // skip '['
	p.skip()
	out := []domain.Value{}
	if p.i < p.n && p.data[p.i] == ']' {
		p.i++
		return domain.List(out...), nil
	}
	for {
		val, err := p.value()
		if err != nil {
			return domain.Undefined(), err
		}
		out = append(out, val)
		p.skip()
		if p.i >= p.n {
			return domain.Undefined(), io.ErrUnexpectedEOF
		}
		if p.data[p.i] == ']' {
			p.i++
			break
		}
		if p.data[p.i] != ',' {
			return domain.Undefined(), ErrNoComma
		}
		p.i++
		p.skip()
	}
	return domain.List(out...), nil
}

// str reads a quoted string. Escapes are decoded by encoding/json once the
// closing quote is found.
func (p *parser) str() (string, error) {
	if p.data[p.i] != '"' {
		return "", ErrExpectedString
	}
	for i := p.i + 1; i < p.n; i++ {
		switch p.data[i] {
		case '\\':
			i++
		case '"':
			var s string
			if err := json.Unmarshal(p.data[p.i:i+1], &s); err != nil {
				return "", err
			}
			p.i = i + 1
			return s, nil
		}
	}
	return "", ErrUnterminatedString
}

func (p *parser) num() (domain.Value, error) {
	start := p.i
	for p.i < p.n {
		c := p.data[p.i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.i++
		} else {
			break
		}
	}
	s := string(p.data[start:p.i])
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Undefined(), fmt.Errorf("%w: %w", ErrInvalidNumber, err)
	}
	return domain.Number(v), nil
}

func (p *parser) expect(lit string, val domain.Value) (domain.Value, error) {
	end := p.i + len(lit)
	if end > p.n || string(p.data[p.i:end]) != lit {
		limit := min(p.n, end)
		literal := p.data[p.i:limit]
		return domain.Undefined(), ErrInvalidLiteral{Value: string(literal)}
	}
	p.i = end
	return val, nil
}
