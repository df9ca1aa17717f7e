package querier

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/docstore"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/indexmanager"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

type indexManagerMock struct {
	mock.Mock
	domain.IndexManager
}

func (m *indexManagerMock) HasIndex(field string) bool {
	return m.Called(field).Bool(0)
}

func (m *indexManagerMock) Lookup(field string, value domain.Value) (*roaring.Bitmap, error) {
	call := m.Called(field, value)
	return call.Get(0).(*roaring.Bitmap), call.Error(1)
}

func (m *indexManagerMock) RangeLookup(field string, low, high *domain.Bound) ([]domain.ID, error) {
	call := m.Called(field, low, high)
	return call.Get(0).([]domain.ID), call.Error(1)
}

type QuerierTestSuite struct {
	suite.Suite
	store   domain.DocumentStore
	indexes domain.IndexManager
	q       domain.Querier
	ctx     context.Context
}

func (s *QuerierTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = docstore.NewStore()
	s.indexes = indexmanager.NewManager(s.store)
	s.q = NewQuerier(s.store, s.indexes)

	for _, src := range []string{
		`{"nim":"12345","nama":"Andi","jurusan":"Informatika","ipk":3.75}`,
		`{"nim":"12346","nama":"Budi","jurusan":"Sistem Informasi","ipk":3.5}`,
		`{"nim":"12347","nama":"Citra","jurusan":"Informatika"}`,
		`{"nim":"12348","nama":"Dewi","jurusan":"Informatika","ipk":3.9}`,
		`{"nim":"12349","nama":"Eko","jurusan":"Matematika","ipk":3.5}`,
	} {
		d, err := data.ParseDocument([]byte(src))
		s.Require().NoError(err)
		_, err = s.store.Insert(d)
		s.Require().NoError(err)
	}
	s.indexes.Sync()
}

func (s *QuerierTestSuite) names(res []domain.Entry) []string {
	out := make([]string, len(res))
	for n, e := range res {
		out[n] = e.Doc.Lookup("nama").Interface().(string)
	}
	return out
}

func (s *QuerierTestSuite) find(q domain.Query) []string {
	res, err := s.q.Query(s.ctx, q)
	s.Require().NoError(err)
	return s.names(res)
}

func (s *QuerierTestSuite) TestFilter() {
	s.Equal([]string{"Andi", "Citra", "Dewi"}, s.find(domain.Query{Filter: domain.Filter{
		{Field: "jurusan", Op: domain.OpEq, Value: domain.String("Informatika")},
	}}))
	s.Equal([]string{"Citra"}, s.find(domain.Query{Filter: domain.Filter{
		{Field: "ipk", Op: domain.OpExists, Value: domain.Bool(false)},
	}}))
	s.Empty(s.find(domain.Query{Filter: domain.Filter{
		{Field: "jurusan", Op: domain.OpEq, Value: domain.String("Hukum")},
	}}))
	s.Len(s.find(domain.Query{}), 5)
}

// Results with and without indexes are identical.
func (s *QuerierTestSuite) TestIndexScanEquivalence() {
	queries := []domain.Query{
		{Filter: domain.Filter{{Field: "jurusan", Op: domain.OpEq, Value: domain.String("Informatika")}}},
		{Filter: domain.Filter{{Field: "ipk", Op: domain.OpGte, Value: domain.Number(3.5)}}},
		{Filter: domain.Filter{{Field: "ipk", Op: domain.OpLt, Value: domain.Number(3.8)}}},
		{Filter: domain.Filter{{Field: "ipk", Op: domain.OpEq, Value: domain.Null()}}},
		{Filter: domain.Filter{
			{Field: "jurusan", Op: domain.OpIn, Value: domain.List(domain.String("Informatika"), domain.String("Matematika"))},
			{Field: "ipk", Op: domain.OpGt, Value: domain.Number(3.6)},
		}},
		{Filter: domain.Filter{{Field: "nim", Op: domain.OpGt, Value: domain.String("12346")}}, Sort: domain.Sort{{Field: "nim", Desc: true}}},
	}

	scan := make([][]string, len(queries))
	for n, q := range queries {
		scan[n] = s.find(q)
	}

	s.Require().NoError(s.indexes.CreateIndex("jurusan", false))
	s.Require().NoError(s.indexes.CreateIndex("ipk", false))
	s.Require().NoError(s.indexes.CreateIndex("nim", true))

	for n, q := range queries {
		s.Equal(scan[n], s.find(q), "query %d", n)
	}
	s.Equal([]string{"Andi", "Budi", "Dewi", "Eko"}, scan[1])
	s.Equal([]string{"Andi", "Dewi"}, scan[4])
	s.Equal([]string{"Eko", "Dewi", "Citra"}, scan[5])
}

func (s *QuerierTestSuite) TestPlanUsesIndexes() {
	im := new(indexManagerMock)
	q := NewQuerier(s.store, im)

	im.On("HasIndex", "jurusan").Return(true)
	im.On("HasIndex", "ipk").Return(true)
	im.On("Lookup", "jurusan", domain.String("Informatika")).Return(roaring.BitmapOf(1, 3, 4), nil).Once()

	res, err := q.Query(s.ctx, domain.Query{Filter: domain.Filter{
		{Field: "jurusan", Op: domain.OpEq, Value: domain.String("Informatika")},
		{Field: "ipk", Op: domain.OpGt, Value: domain.Number(3.6)},
	}})
	s.NoError(err)
	s.Equal([]string{"Andi", "Dewi"}, s.names(res))
	im.AssertNotCalled(s.T(), "RangeLookup", mock.Anything, mock.Anything, mock.Anything)
	im.AssertExpectations(s.T())

	im = new(indexManagerMock)
	q = NewQuerier(s.store, im)
	im.On("HasIndex", "ipk").Return(true)
	im.On("RangeLookup", "ipk", &domain.Bound{Value: domain.Number(3.6)}, (*domain.Bound)(nil)).
		Return([]domain.ID{1, 4}, nil).Once()

	res, err = q.Query(s.ctx, domain.Query{Filter: domain.Filter{
		{Field: "ipk", Op: domain.OpGt, Value: domain.Number(3.6)},
	}})
	s.NoError(err)
	s.Equal([]string{"Andi", "Dewi"}, s.names(res))
	im.AssertExpectations(s.T())
}

func (s *QuerierTestSuite) TestSort() {
	// missing values sort first and ties keep scan order
	s.Equal([]string{"Citra", "Budi", "Eko", "Andi", "Dewi"}, s.find(domain.Query{Sort: domain.Sort{{Field: "ipk"}}}))
	s.Equal([]string{"Dewi", "Andi", "Budi", "Eko", "Citra"}, s.find(domain.Query{Sort: domain.Sort{{Field: "ipk", Desc: true}}}))
	s.Equal([]string{"Dewi", "Andi", "Eko", "Budi", "Citra"}, s.find(domain.Query{Sort: domain.Sort{
		{Field: "ipk", Desc: true},
		{Field: "nama", Desc: true},
	}}))

	_, err := s.q.Query(s.ctx, domain.Query{Sort: domain.Sort{{Field: ""}}})
	s.ErrorIs(err, domain.ErrInvalidFilter)
}

func (s *QuerierTestSuite) TestSkipAndLimit() {
	q := domain.Query{Sort: domain.Sort{{Field: "nama"}}, Skip: 1, Limit: 2}
	s.Equal([]string{"Budi", "Citra"}, s.find(q))

	q.Skip = 10
	s.Empty(s.find(q))

	q.Skip, q.Limit = 3, 0
	s.Equal([]string{"Dewi", "Eko"}, s.find(q))

	_, err := s.q.Query(s.ctx, domain.Query{Limit: -1})
	s.ErrorIs(err, domain.ErrInvalidFilter)
}

func (s *QuerierTestSuite) TestResultsAreCopies() {
	res, err := s.q.Query(s.ctx, domain.Query{Limit: 1})
	s.Require().NoError(err)
	res[0].Doc.Set("nama", domain.String("changed"))

	stored, err := s.store.Get(res[0].ID)
	s.NoError(err)
	s.Equal("Andi", stored.Lookup("nama").Interface())
}

func (s *QuerierTestSuite) TestInvalidFilter() {
	_, err := s.q.Query(s.ctx, domain.Query{Filter: domain.Filter{
		{Field: "ipk", Op: domain.OpGt, Value: domain.Bool(true)},
	}})
	s.ErrorIs(err, domain.ErrInvalidFilter)
}

func (s *QuerierTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.q.Query(ctx, domain.Query{})
	s.ErrorIs(err, context.Canceled)
}

func TestQuerierTestSuite(t *testing.T) {
	suite.Run(t, new(QuerierTestSuite))
}
