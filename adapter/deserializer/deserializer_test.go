package deserializer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/serializer"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

var ctx = context.Background()

type DeserializerTestSuite struct {
	suite.Suite
	d *Deserializer
}

func (s *DeserializerTestSuite) SetupTest() {
	s.d = NewDeserializer().(*Deserializer)
}

func (s *DeserializerTestSuite) TestDocumentKeepsOrder() {
	r, err := s.d.Deserialize(ctx, []byte(`{"$$doc":{"z":1,"a":{"y":2,"b":[true]}},"$$id":12}`))
	s.NoError(err)
	s.Equal(domain.ID(12), r.ID)
	s.False(r.Deleted)
	s.Equal(`{"z":1,"a":{"y":2,"b":[true]}}`, r.Doc.String())
}

func (s *DeserializerTestSuite) TestOtherRecords() {
	r, err := s.d.Deserialize(ctx, []byte(`{"$$id":3,"$$deleted":true}`))
	s.NoError(err)
	s.Equal(domain.Record{ID: 3, Deleted: true}, r)

	r, err = s.d.Deserialize(ctx, []byte(`{"$$indexCreated":{"fieldName":"nim","unique":true}}`))
	s.NoError(err)
	s.Equal(domain.Record{IndexCreated: &domain.IndexDTO{FieldName: "nim", Unique: true}}, r)

	r, err = s.d.Deserialize(ctx, []byte(`{"$$indexRemoved":"nim"}`))
	s.NoError(err)
	s.Equal(domain.Record{IndexRemoved: "nim"}, r)
}

// Whatever the serializer writes is read back unchanged.
func (s *DeserializerTestSuite) TestRoundTrip() {
	doc := domain.NewDocument()
	doc.Set("nama", domain.String("Andi \"A\"\n"))
	doc.Set("ipk", domain.Number(3.75))
	doc.Set("tags", domain.List(domain.Null(), domain.Bool(false)))

	ser := serializer.NewSerializer()
	for _, rec := range []domain.Record{
		{ID: 1, Doc: doc},
		{ID: 4294967295, Deleted: true},
		{IndexCreated: &domain.IndexDTO{FieldName: "a.b"}},
		{IndexRemoved: "a.b"},
	} {
		b, err := ser.Serialize(ctx, rec)
		s.Require().NoError(err)
		got, err := s.d.Deserialize(ctx, b)
		s.Require().NoError(err)
		s.Equal(rec.ID, got.ID)
		s.Equal(rec.Deleted, got.Deleted)
		s.Equal(rec.IndexCreated, got.IndexCreated)
		s.Equal(rec.IndexRemoved, got.IndexRemoved)
		if rec.Doc != nil {
			s.Equal(rec.Doc.String(), got.Doc.String())
		}
	}
}

func (s *DeserializerTestSuite) TestInvalid() {
	for _, line := range []string{
		`{}`,
		`{"$$doc":{"a":1}}`,
		`{"$$id":1}`,
		`{"$$indexCreated":{}}`,
	} {
		_, err := s.d.Deserialize(ctx, []byte(line))
		s.ErrorIs(err, ErrUnknownRecord, line)
	}

	_, err := s.d.Deserialize(ctx, []byte(`{"$$id":1,"$$doc":{"$bad":1}}`))
	s.ErrorIs(err, domain.ErrMalformedDocument)

	_, err = s.d.Deserialize(ctx, []byte(`not json`))
	s.Error(err)

	_, err = s.d.Deserialize(ctx, []byte(`{"$$id":-1,"$$deleted":true}`))
	s.Error(err)
}

func TestDeserializerTestSuite(t *testing.T) {
	suite.Run(t, new(DeserializerTestSuite))
}
