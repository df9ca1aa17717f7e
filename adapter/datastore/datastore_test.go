package datastore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/badgerstore"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/collection"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/snapshot"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/sqlitestore"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/timegetter"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

var ctx = context.Background()

type mahasiswa struct {
	NIM     string  `docstore:"nim"`
	Nama    string  `docstore:"nama"`
	Jurusan string  `docstore:"jurusan"`
	IPK     float64 `docstore:"ipk"`
}

func eq(field string, v domain.Value) domain.Filter {
	return domain.Filter{{Field: field, Op: domain.OpEq, Value: v}}
}

type DatastoreTestSuite struct {
	suite.Suite
	dir string
}

func (s *DatastoreTestSuite) SetupTest() {
	s.dir = filepath.Join(s.T().TempDir(), uuid.NewString())
}

func (s *DatastoreTestSuite) open(opts ...Option) *Datastore {
	d, err := Open(ctx, append([]Option{WithDir(s.dir)}, opts...)...)
	s.Require().NoError(err)
	return d
}

func (s *DatastoreTestSuite) fill(d *Datastore, name string, docs ...any) *collection.Collection {
	c, err := d.Collection(ctx, name)
	s.Require().NoError(err)
	res, err := c.InsertMany(ctx, docs...)
	s.Require().NoError(err)
	for _, r := range res {
		s.Require().NoError(r.Err)
	}
	return c
}

func (s *DatastoreTestSuite) count(d *Datastore, name string) int {
	c, err := d.Collection(ctx, name)
	s.Require().NoError(err)
	n, err := c.Count(ctx, nil)
	s.Require().NoError(err)
	return n
}

func (s *DatastoreTestSuite) TestOpenRequiresDir() {
	_, err := Open(ctx)
	s.ErrorAs(err, &domain.ErrDatafileName{})

	d, err := Open(ctx, WithInMemoryOnly(true))
	s.Require().NoError(err)
	s.NoError(d.Close(ctx))
}

func (s *DatastoreTestSuite) TestReopen() {
	d := s.open()
	c := s.fill(d, "mahasiswa",
		mahasiswa{NIM: "12345", Nama: "Andi", Jurusan: "Informatika", IPK: 3.75},
		mahasiswa{NIM: "12346", Nama: "Budi", Jurusan: "Informatika", IPK: 3.50},
	)
	s.Require().NoError(c.CreateIndex(ctx, "nim", collection.WithUnique(true)))
	s.fill(d, "dosen", map[string]any{"nip": "1"})
	s.Require().NoError(d.Close(ctx))

	d = s.open(WithLoadConcurrency(1))
	defer d.Close(ctx)

	names, err := d.Collections(ctx)
	s.NoError(err)
	s.Equal([]string{"dosen", "mahasiswa"}, names)
	s.Equal(2, s.count(d, "mahasiswa"))
	s.Equal(1, s.count(d, "dosen"))

	c, err = d.Collection(ctx, "mahasiswa")
	s.Require().NoError(err)
	indexes, err := c.Indexes(ctx)
	s.NoError(err)
	s.Equal([]domain.IndexDTO{{FieldName: "nim", Unique: true}}, indexes)

	_, err = c.InsertOne(ctx, mahasiswa{NIM: "12345"})
	s.ErrorIs(err, domain.ErrConstraintViolated)
}

func (s *DatastoreTestSuite) TestCollectionIsShared() {
	d := s.open()
	defer d.Close(ctx)

	a, err := d.Collection(ctx, "mahasiswa")
	s.Require().NoError(err)
	b, err := d.Collection(ctx, "mahasiswa")
	s.Require().NoError(err)
	s.Same(a, b)

	s.Run("InvalidName", func() {
		for _, name := range []string{"", "$x", "a/b", "tmp~"} {
			_, err := d.Collection(ctx, name)
			s.ErrorAs(err, &domain.ErrDatafileName{}, name)
		}
	})
}

func (s *DatastoreTestSuite) TestDropCollection() {
	d := s.open()
	defer d.Close(ctx)

	c := s.fill(d, "mahasiswa", mahasiswa{NIM: "12345"})
	s.FileExists(filepath.Join(s.dir, "mahasiswa.db"))

	s.NoError(d.DropCollection(ctx, "mahasiswa"))
	s.NoFileExists(filepath.Join(s.dir, "mahasiswa.db"))

	_, err := c.Count(ctx, nil)
	s.ErrorIs(err, domain.ErrNotFound)
	s.ErrorIs(d.DropCollection(ctx, "mahasiswa"), domain.ErrNotFound)

	names, err := d.Collections(ctx)
	s.NoError(err)
	s.Empty(names)

	s.Equal(0, s.count(d, "mahasiswa"))
}

func (s *DatastoreTestSuite) TestCompact() {
	d := s.open()
	defer d.Close(ctx)

	c := s.fill(d, "mahasiswa",
		mahasiswa{NIM: "12345"},
		mahasiswa{NIM: "12346"},
	)
	deleted, err := c.DeleteOne(ctx, eq("nim", domain.String("12345")))
	s.Require().NoError(err)
	s.True(deleted)

	file := filepath.Join(s.dir, "mahasiswa.db")
	before, err := os.ReadFile(file)
	s.Require().NoError(err)
	s.Len(bytes.Split(bytes.TrimSpace(before), []byte("\n")), 3)

	s.NoError(d.Compact(ctx))

	after, err := os.ReadFile(file)
	s.Require().NoError(err)
	s.Len(bytes.Split(bytes.TrimSpace(after), []byte("\n")), 1)
	s.Contains(string(after), `"12346"`)
}

func (s *DatastoreTestSuite) TestBackupRestore() {
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for _, codec := range []snapshot.Codec{snapshot.CodecZstd, snapshot.CodecLZ4} {
		s.Run(string(codec), func() {
			s.dir = filepath.Join(s.T().TempDir(), uuid.NewString())
			d := s.open(
				WithSnapshotCodec(codec),
				WithTimeGetter(timegetter.Fixed(created)),
			)

			c := s.fill(d, "mahasiswa",
				mahasiswa{NIM: "12345", Nama: "Andi", Jurusan: "Informatika", IPK: 3.75},
				mahasiswa{NIM: "12346", Nama: "Budi", Jurusan: "Informatika", IPK: 3.50},
			)
			s.Require().NoError(c.CreateIndex(ctx, "nim", collection.WithUnique(true)))
			s.fill(d, "dosen", map[string]any{"nip": "1"})

			var buf bytes.Buffer
			info, err := d.Backup(ctx, &buf)
			s.Require().NoError(err)
			s.NotEmpty(info.ID)
			s.Equal(created, info.CreatedAt)
			s.Equal(2, info.Collections)
			s.Equal(3, info.Documents)
			s.Equal(string(codec), info.Codec)

			// diverge after the backup
			_, err = c.DeleteOne(ctx, eq("nim", domain.String("12345")))
			s.Require().NoError(err)
			s.Require().NoError(d.DropCollection(ctx, "dosen"))
			s.fill(d, "tmp", map[string]any{"x": 1})

			restored, err := d.Restore(ctx, &buf)
			s.Require().NoError(err)
			s.Equal(info, restored)

			names, err := d.Collections(ctx)
			s.NoError(err)
			s.Equal([]string{"dosen", "mahasiswa"}, names)
			s.Equal(2, s.count(d, "mahasiswa"))
			s.Equal(1, s.count(d, "dosen"))
			s.NoFileExists(filepath.Join(s.dir, "tmp.db"))

			c, err = d.Collection(ctx, "mahasiswa")
			s.Require().NoError(err)
			_, err = c.InsertOne(ctx, mahasiswa{NIM: "12346"})
			s.ErrorIs(err, domain.ErrConstraintViolated)

			// restored content is persisted
			s.Require().NoError(d.Close(ctx))
			d = s.open()
			s.Equal(2, s.count(d, "mahasiswa"))
			s.NoError(d.Close(ctx))
		})
	}
}

func (s *DatastoreTestSuite) TestRestoreCorrupt() {
	d := s.open()
	defer d.Close(ctx)
	s.fill(d, "mahasiswa", mahasiswa{NIM: "12345"})

	_, err := d.Restore(ctx, bytes.NewReader([]byte("not a snapshot")))
	s.ErrorIs(err, domain.ErrUnknownCodec)
	s.Equal(1, s.count(d, "mahasiswa"))
}

func (s *DatastoreTestSuite) TestRestoreInvalidLeavesDatabase() {
	doc := func(nim string) *domain.Document {
		d := domain.NewDocument()
		d.Set("nim", domain.String(nim))
		return d
	}
	valid := snapshot.Collection{Name: "dosen", Entries: []domain.Entry{{ID: 1, Doc: doc("1")}}}

	for name, tc := range map[string]struct {
		cols []snapshot.Collection
		err  error
	}{
		"duplicate id": {
			cols: []snapshot.Collection{valid, {
				Name:    "baru",
				Entries: []domain.Entry{{ID: 1, Doc: doc("2")}, {ID: 1, Doc: doc("3")}},
			}},
			err: domain.ErrConstraintViolated,
		},
		"unique index violated": {
			cols: []snapshot.Collection{valid, {
				Name:    "baru",
				Entries: []domain.Entry{{ID: 1, Doc: doc("2")}, {ID: 2, Doc: doc("2")}},
				Indexes: []domain.IndexDTO{{FieldName: "nim", Unique: true}},
			}},
			err: domain.ErrConstraintViolated,
		},
		"duplicate collection": {
			cols: []snapshot.Collection{valid, valid},
			err:  snapshot.ErrCorruptSnapshot,
		},
	} {
		s.Run(name, func() {
			s.dir = filepath.Join(s.T().TempDir(), uuid.NewString())
			d := s.open()
			defer d.Close(ctx)
			s.fill(d, "lama", mahasiswa{NIM: "12345"}, mahasiswa{NIM: "12346"})

			var buf bytes.Buffer
			_, err := snapshot.NewSnapshotter().Write(ctx, &buf, tc.cols)
			s.Require().NoError(err)

			_, err = d.Restore(ctx, &buf)
			s.ErrorIs(err, tc.err)

			names, err := d.Collections(ctx)
			s.NoError(err)
			s.Equal([]string{"lama"}, names)
			s.Equal(2, s.count(d, "lama"))
			s.NoFileExists(filepath.Join(s.dir, "dosen.db"))
		})
	}
}

func (s *DatastoreTestSuite) TestClose() {
	d := s.open()
	c := s.fill(d, "mahasiswa", mahasiswa{NIM: "12345"})
	s.NoError(d.Close(ctx))

	_, err := d.Collection(ctx, "mahasiswa")
	s.ErrorIs(err, domain.ErrClosed)
	_, err = d.Collections(ctx)
	s.ErrorIs(err, domain.ErrClosed)
	_, err = d.Backup(ctx, &bytes.Buffer{})
	s.ErrorIs(err, domain.ErrClosed)
	s.ErrorIs(d.Close(ctx), domain.ErrClosed)

	_, err = c.InsertOne(ctx, mahasiswa{NIM: "12346"})
	s.ErrorIs(err, domain.ErrClosed)
}

func (s *DatastoreTestSuite) TestCanceled() {
	d := s.open()
	defer d.Close(ctx)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	s.Require().NoError(d.mu.LockWithContext(ctx))
	_, err := d.Collection(canceled, "mahasiswa")
	d.mu.Unlock()
	s.ErrorIs(err, context.Canceled)
}

func (s *DatastoreTestSuite) TestBadgerProvider() {
	p, err := badgerstore.NewProvider("", badgerstore.WithInMemory(true))
	s.Require().NoError(err)

	d, err := Open(ctx, WithPersistenceProvider(p))
	s.Require().NoError(err)
	defer d.Close(ctx)

	s.fill(d, "mahasiswa", mahasiswa{NIM: "12345"}, mahasiswa{NIM: "12346"})

	var buf bytes.Buffer
	_, err = d.Backup(ctx, &buf)
	s.Require().NoError(err)
	s.Require().NoError(d.DropCollection(ctx, "mahasiswa"))

	_, err = d.Restore(ctx, &buf)
	s.Require().NoError(err)
	s.Equal(2, s.count(d, "mahasiswa"))
}

func (s *DatastoreTestSuite) TestSQLiteProvider() {
	path := filepath.Join(s.dir, "docstore.sqlite")
	p, err := sqlitestore.NewProvider(ctx, path)
	s.Require().NoError(err)
	d, err := Open(ctx, WithPersistenceProvider(p))
	s.Require().NoError(err)
	s.fill(d, "mahasiswa", mahasiswa{NIM: "12345"}, mahasiswa{NIM: "12346"})
	s.Require().NoError(d.Close(ctx))

	p, err = sqlitestore.NewProvider(ctx, path)
	s.Require().NoError(err)
	d, err = Open(ctx, WithPersistenceProvider(p))
	s.Require().NoError(err)
	defer d.Close(ctx)
	s.Equal(2, s.count(d, "mahasiswa"))
}

func TestDatastoreTestSuite(t *testing.T) {
	suite.Run(t, new(DatastoreTestSuite))
}
