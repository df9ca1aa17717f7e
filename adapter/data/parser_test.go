package data

import (
	"io"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

type ParserTestSuite struct {
	suite.Suite
}

func (s *ParserTestSuite) TestKeepsOrder() {
	doc, err := ParseDocument([]byte(` {"z": 1, "a": {"y": [1, 2.5e1, -3], "b": null}, "m": "x\"é\n", "t": true, "f": false} `))
	s.NoError(err)
	s.Equal([]string{"z", "a", "m", "t", "f"}, doc.Keys())
	s.Equal([]string{"y", "b"}, doc.Lookup("a").Document().Keys())
	s.Equal("x\"é\n", doc.Lookup("m").Interface())
	s.Equal(25.0, doc.Lookup("a.y.1").Interface())
	s.Equal(-3.0, doc.Lookup("a.y.2").Interface())
}

func (s *ParserTestSuite) TestRoundTrip() {
	src := `{"nim":"12345","alamat":{"kota":"Jakarta","kode_pos":"12345"},"ipk":3.75,"tags":[],"empty":{},"n":null}`
	doc, err := ParseDocument([]byte(src))
	s.NoError(err)
	s.Equal(src, doc.String())
}

func (s *ParserTestSuite) TestDuplicateKeyKeepsFirstPosition() {
	doc, err := ParseDocument([]byte(`{"a":1,"b":2,"a":3}`))
	s.NoError(err)
	s.Equal(`{"a":3,"b":2}`, doc.String())
}

func (s *ParserTestSuite) TestErrors() {
	cases := map[string]struct {
		in  string
		err error
	}{
		"trailing":     {`{} x`, ErrTrailingData},
		"no colon":     {`{"a" 1}`, ErrNoColon},
		"no comma":     {`{"a":1 "b":2}`, ErrNoComma},
		"list comma":   {`[1 2]`, ErrNoComma},
		"key":          {`{1:2}`, ErrExpectedString},
		"unterminated": {`{"a`, ErrUnterminatedString},
		"number":       {`{"a":1e999}`, ErrInvalidNumber},
		"eof":          {`{"a":`, io.ErrUnexpectedEOF},
		"open list":    {`[1,`, io.ErrUnexpectedEOF},
		"not object":   {`[1]`, ErrNotAnObject},
		"field name":   {`{"$a":1}`, domain.ErrMalformedDocument},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			_, err := ParseDocument([]byte(tc.in))
			s.ErrorIs(err, tc.err)
			s.ErrorIs(err, domain.ErrMalformedDocument)
		})
	}

	_, err := ParseDocument([]byte(`{"a":tru}`))
	e := ErrInvalidLiteral{}
	s.ErrorAs(err, &e)
	s.Equal("tru}", e.Value)
}

func TestParserTestSuite(t *testing.T) {
	suite.Run(t, new(ParserTestSuite))
}
