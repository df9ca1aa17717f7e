package matcher

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

type MatcherTestSuite struct {
	suite.Suite
	doc *domain.Document
}

func (s *MatcherTestSuite) SetupTest() {
	d, err := data.ParseDocument([]byte(`{
		"nim": "12345",
		"nama": "Andi",
		"ipk": 3.75,
		"aktif": true,
		"catatan": null,
		"alamat": {"kota": "Jakarta", "kode_pos": "12345"},
		"nilai": [80, 95, "A"]
	}`))
	s.Require().NoError(err)
	s.doc = d
}

func (s *MatcherTestSuite) match(f domain.Filter) bool {
	m, err := NewMatcher(f)
	s.Require().NoError(err)
	return m.Match(s.doc)
}

func cond(field string, op domain.Op, v domain.Value) domain.Condition {
	return domain.Condition{Field: field, Op: op, Value: v}
}

func (s *MatcherTestSuite) TestEmptyFilter() {
	s.True(s.match(nil))
}

func (s *MatcherTestSuite) TestEquality() {
	s.True(s.match(domain.Filter{cond("nim", domain.OpEq, domain.String("12345"))}))
	s.False(s.match(domain.Filter{cond("nim", domain.OpEq, domain.Number(12345))}))
	s.True(s.match(domain.Filter{cond("alamat.kota", domain.OpEq, domain.String("Jakarta"))}))
	s.True(s.match(domain.Filter{cond("ipk", domain.OpNe, domain.Number(3))}))
	s.False(s.match(domain.Filter{cond("ipk", domain.OpNe, domain.Number(3.75))}))

	// null matches null and missing fields
	s.True(s.match(domain.Filter{cond("catatan", domain.OpEq, domain.Null())}))
	s.True(s.match(domain.Filter{cond("missing", domain.OpEq, domain.Null())}))
	s.False(s.match(domain.Filter{cond("nim", domain.OpEq, domain.Null())}))

	// list elements and whole lists
	s.True(s.match(domain.Filter{cond("nilai", domain.OpEq, domain.Number(95))}))
	s.True(s.match(domain.Filter{cond("nilai", domain.OpEq, domain.List(domain.Number(80), domain.Number(95), domain.String("A")))}))
	s.True(s.match(domain.Filter{cond("nilai.2", domain.OpEq, domain.String("A"))}))
	s.False(s.match(domain.Filter{cond("nilai", domain.OpEq, domain.Number(70))}))

	// nested documents compare as a whole
	alamat := domain.NewDocument()
	alamat.Set("kota", domain.String("Jakarta"))
	alamat.Set("kode_pos", domain.String("12345"))
	s.True(s.match(domain.Filter{cond("alamat", domain.OpEq, domain.Doc(alamat))}))
}

func (s *MatcherTestSuite) TestRanges() {
	s.True(s.match(domain.Filter{cond("ipk", domain.OpGt, domain.Number(3.5))}))
	s.True(s.match(domain.Filter{cond("ipk", domain.OpGte, domain.Number(3.75))}))
	s.False(s.match(domain.Filter{cond("ipk", domain.OpGt, domain.Number(3.75))}))
	s.True(s.match(domain.Filter{cond("ipk", domain.OpLte, domain.Number(3.75))}))
	s.False(s.match(domain.Filter{cond("ipk", domain.OpLt, domain.Number(3.75))}))

	// ranges never cross kinds
	s.False(s.match(domain.Filter{cond("nim", domain.OpGt, domain.Number(0))}))
	s.False(s.match(domain.Filter{cond("aktif", domain.OpGt, domain.String(""))}))
	s.True(s.match(domain.Filter{cond("nama", domain.OpLt, domain.String("B"))}))

	// any element in range
	s.True(s.match(domain.Filter{cond("nilai", domain.OpGt, domain.Number(90))}))
	s.False(s.match(domain.Filter{cond("nilai", domain.OpGt, domain.Number(95))}))
}

func (s *MatcherTestSuite) TestInAndExists() {
	s.True(s.match(domain.Filter{cond("nama", domain.OpIn, domain.List(domain.String("Budi"), domain.String("Andi")))}))
	s.False(s.match(domain.Filter{cond("nama", domain.OpIn, domain.List())}))
	s.True(s.match(domain.Filter{cond("nama", domain.OpNin, domain.List(domain.String("Budi")))}))

	s.True(s.match(domain.Filter{cond("catatan", domain.OpExists, domain.Bool(true))}))
	s.True(s.match(domain.Filter{cond("missing", domain.OpExists, domain.Bool(false))}))
	s.False(s.match(domain.Filter{cond("alamat.kota", domain.OpExists, domain.Bool(false))}))
}

func (s *MatcherTestSuite) TestConjunction() {
	s.True(s.match(domain.Filter{
		cond("nim", domain.OpEq, domain.String("12345")),
		cond("ipk", domain.OpGte, domain.Number(3)),
	}))
	s.False(s.match(domain.Filter{
		cond("nim", domain.OpEq, domain.String("12345")),
		cond("ipk", domain.OpLt, domain.Number(3)),
	}))
}

func (s *MatcherTestSuite) TestInvalid() {
	cases := map[string]domain.Condition{
		"empty field":      cond("", domain.OpEq, domain.Null()),
		"dollar field":     cond("$where", domain.OpEq, domain.Null()),
		"empty segment":    cond("a..b", domain.OpEq, domain.Null()),
		"unknown operator": cond("a", "$regex", domain.String("x")),
		"no value":         cond("a", domain.OpEq, domain.Undefined()),
		"range on bool":    cond("a", domain.OpGt, domain.Bool(true)),
		"range on null":    cond("a", domain.OpLt, domain.Null()),
		"range on list":    cond("a", domain.OpLte, domain.List()),
		"in without list":  cond("a", domain.OpIn, domain.String("x")),
		"exists non bool":  cond("a", domain.OpExists, domain.Number(1)),
	}
	for name, c := range cases {
		s.Run(name, func() {
			_, err := NewMatcher(domain.Filter{c})
			s.ErrorIs(err, domain.ErrInvalidFilter)
		})
	}
}

func TestMatcherTestSuite(t *testing.T) {
	suite.Run(t, new(MatcherTestSuite))
}
