package modifier

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

type ModifierTestSuite struct {
	suite.Suite
	m *Modifier
}

func (s *ModifierTestSuite) SetupTest() {
	s.m = NewModifier().(*Modifier)
}

func (s *ModifierTestSuite) parse(src string) *domain.Document {
	d, err := data.ParseDocument([]byte(src))
	s.Require().NoError(err)
	return d
}

func (s *ModifierTestSuite) TestShallowMerge() {
	doc := s.parse(`{"nim":"12345","nama":"Andi","alamat":{"jalan":"Jl. Merdeka No. 1","kota":"Jakarta"}}`)
	changes := s.parse(`{"ipk":3.75,"nama":"Andi S","alamat":{"kota":"Bogor"}}`)

	res, err := s.m.Modify(doc, changes)
	s.NoError(err)
	// nested documents are replaced, new keys are appended
	s.Equal(`{"nim":"12345","nama":"Andi S","alamat":{"kota":"Bogor"},"ipk":3.75}`, res.String())

	// inputs are untouched
	s.Equal(`{"nim":"12345","nama":"Andi","alamat":{"jalan":"Jl. Merdeka No. 1","kota":"Jakarta"}}`, doc.String())

	// the result does not alias the changes
	res.Lookup("alamat").Document().Set("kota", domain.String("Depok"))
	s.Equal("Bogor", changes.Lookup("alamat.kota").Interface())
}

func (s *ModifierTestSuite) TestNullIsKept() {
	res, err := s.m.Modify(s.parse(`{"a":1}`), s.parse(`{"a":null}`))
	s.NoError(err)
	s.Equal(`{"a":null}`, res.String())
}

func (s *ModifierTestSuite) TestInvalid() {
	_, err := s.m.Modify(s.parse(`{"a":1}`), domain.NewDocument())
	s.ErrorIs(err, ErrNoChanges)
	s.ErrorIs(err, domain.ErrMalformedDocument)

	bad := domain.NewDocument()
	bad.Set("$set", domain.Number(1))
	_, err = s.m.Modify(s.parse(`{"a":1}`), bad)
	s.ErrorIs(err, domain.ErrMalformedDocument)

	_, err = s.m.Modify(nil, bad)
	s.ErrorIs(err, domain.ErrMalformedDocument)

	s.m = NewModifier(WithAllowEmpty(true)).(*Modifier)
	res, err := s.m.Modify(s.parse(`{"a":1}`), domain.NewDocument())
	s.NoError(err)
	s.Equal(`{"a":1}`, res.String())
}

func TestModifierTestSuite(t *testing.T) {
	suite.Run(t, new(ModifierTestSuite))
}
