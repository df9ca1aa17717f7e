package persistence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/storage"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

var ctx = context.Background()

type PersistenceTestSuite struct {
	suite.Suite
	testDbDir string
	filename  string
	p         *Persistence
}

func (s *PersistenceTestSuite) SetupTest() {
	s.testDbDir = s.T().TempDir()
	s.filename = filepath.Join(s.testDbDir, "sub", uuid.New().String()+Extension)
	p, err := NewPersistence(WithFilename(s.filename))
	s.Require().NoError(err)
	s.p = p.(*Persistence)
}

func student(nim, nama string) *domain.Document {
	d := domain.NewDocument()
	d.Set("nim", domain.String(nim))
	d.Set("nama", domain.String(nama))
	return d
}

func (s *PersistenceTestSuite) readLines() []string {
	b, err := os.ReadFile(s.filename)
	s.Require().NoError(err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func (s *PersistenceTestSuite) TestNewPersistence() {
	s.Run("EmptyFilename", func() {
		_, err := NewPersistence()
		s.ErrorAs(err, &domain.ErrDatafileName{})
	})
	s.Run("TempSuffix", func() {
		_, err := NewPersistence(WithFilename("students.db" + storage.TempSuffix))
		s.ErrorAs(err, &domain.ErrDatafileName{})
	})
	s.Run("InMemory", func() {
		p, err := NewPersistence(WithInMemoryOnly(true))
		s.NoError(err)
		entries, indexes, err := p.LoadCollection(ctx)
		s.NoError(err)
		s.Empty(entries)
		s.Empty(indexes)
		s.NoError(p.PersistNewState(ctx, domain.Record{ID: 1, Doc: student("1", "a")}))
		s.NoFileExists(s.filename)
	})
}

func (s *PersistenceTestSuite) TestLoadEmpty() {
	entries, indexes, err := s.p.LoadCollection(ctx)
	s.NoError(err)
	s.Empty(entries)
	s.Empty(indexes)
	s.FileExists(s.filename)
}

// Later records override earlier ones and the file is compacted on load.
func (s *PersistenceTestSuite) TestReplayAndCompact() {
	_, _, err := s.p.LoadCollection(ctx)
	s.Require().NoError(err)

	s.NoError(s.p.PersistNewState(ctx,
		domain.Record{ID: 2, Doc: student("12346", "Budi")},
		domain.Record{ID: 1, Doc: student("12345", "Andi")},
		domain.Record{IndexCreated: &domain.IndexDTO{FieldName: "nim", Unique: true}},
		domain.Record{IndexCreated: &domain.IndexDTO{FieldName: "jurusan"}},
	))
	s.NoError(s.p.PersistNewState(ctx,
		domain.Record{ID: 1, Doc: student("12345", "Andi Wijaya")},
		domain.Record{ID: 2, Deleted: true},
		domain.Record{ID: 3, Doc: student("12347", "Citra")},
		domain.Record{IndexRemoved: "jurusan"},
	))
	s.Len(s.readLines(), 8)

	entries, indexes, err := s.p.LoadCollection(ctx)
	s.NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(domain.ID(1), entries[0].ID)
	s.Equal(`{"nim":"12345","nama":"Andi Wijaya"}`, entries[0].Doc.String())
	s.Equal(domain.ID(3), entries[1].ID)
	s.Equal([]domain.IndexDTO{{FieldName: "nim", Unique: true}}, indexes)

	s.Equal([]string{
		`{"$$id":1,"$$doc":{"nim":"12345","nama":"Andi Wijaya"}}`,
		`{"$$id":3,"$$doc":{"nim":"12347","nama":"Citra"}}`,
		`{"$$indexCreated":{"fieldName":"nim","unique":true}}`,
	}, s.readLines())
}

func (s *PersistenceTestSuite) TestCorruption() {
	good := `{"$$id":1,"$$doc":{"a":1}}`

	s.Run("BelowThreshold", func() {
		lines := []string{"garbage"}
		for range 9 {
			lines = append(lines, good)
		}
		entries, _, err := s.p.TreatRawStream(ctx, strings.NewReader(strings.Join(lines, "\n")))
		s.NoError(err)
		s.Len(entries, 1)
	})

	s.Run("AboveThreshold", func() {
		raw := strings.Join([]string{good, "garbage", `{"$$id":`, good}, "\n")
		_, _, err := s.p.TreatRawStream(ctx, strings.NewReader(raw))
		var corrupt domain.ErrCorruptFiles
		s.Require().ErrorAs(err, &corrupt)
		s.Equal(2, corrupt.CorruptItems)
		s.Equal(4, corrupt.DataLength)
	})

	s.Run("CustomThreshold", func() {
		p, err := NewPersistence(WithInMemoryOnly(true), WithCorruptAlertThreshold(1))
		s.Require().NoError(err)
		raw := strings.Join([]string{"garbage", "garbage", good}, "\n")
		entries, _, err := p.(*Persistence).TreatRawStream(ctx, strings.NewReader(raw))
		s.NoError(err)
		s.Len(entries, 1)
	})

	s.Run("BlankLinesIgnored", func() {
		entries, _, err := s.p.TreatRawStream(ctx, strings.NewReader("\n\n"+good+"\n\n"))
		s.NoError(err)
		s.Len(entries, 1)
	})
}

// An interrupted compaction leaves only the temporary file behind.
func (s *PersistenceTestSuite) TestRecoverFromTempFile() {
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.filename), DefaultDirMode))
	tmp := s.filename + storage.TempSuffix
	s.Require().NoError(os.WriteFile(tmp, []byte(`{"$$id":7,"$$doc":{"nim":"x"}}`+"\n"), DefaultFileMode))

	entries, _, err := s.p.LoadCollection(ctx)
	s.NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(domain.ID(7), entries[0].ID)
	s.NoFileExists(tmp)
}

func (s *PersistenceTestSuite) TestWaitCompaction() {
	done := make(chan error, 1)
	go func() {
		done <- s.p.WaitCompaction(ctx)
	}()

	for s.p.compacted.WaiterCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	select {
	case <-done:
		s.Fail("returned before compaction")
	default:
	}

	s.NoError(s.p.PersistCachedCollection(ctx, nil, nil))
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("compaction never announced")
	}

	s.Run("Canceled", func() {
		c, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
		defer cancel()
		s.ErrorIs(s.p.WaitCompaction(c), context.DeadlineExceeded)
	})
}

func (s *PersistenceTestSuite) TestDropCollection() {
	_, _, err := s.p.LoadCollection(ctx)
	s.Require().NoError(err)
	s.NoError(s.p.PersistNewState(ctx, domain.Record{ID: 1, Doc: student("1", "a")}))
	s.FileExists(s.filename)

	s.NoError(s.p.DropCollection(ctx))
	s.NoFileExists(s.filename)
	s.NoError(s.p.DropCollection(ctx))
}

func (s *PersistenceTestSuite) TestCanceledContext() {
	c, cancel := context.WithCancel(ctx)
	cancel()

	_, _, err := s.p.LoadCollection(c)
	s.ErrorIs(err, context.Canceled)
	s.ErrorIs(s.p.PersistNewState(c, domain.Record{ID: 1, Doc: student("1", "a")}), context.Canceled)
	s.ErrorIs(s.p.PersistCachedCollection(c, nil, nil), context.Canceled)
	s.ErrorIs(s.p.DropCollection(c), context.Canceled)
	s.NoFileExists(s.filename)
}

func (s *PersistenceTestSuite) TestProvider() {
	dir := filepath.Join(s.testDbDir, "db")
	pr := NewProvider(dir)

	names, err := pr.Collections(ctx)
	s.NoError(err)
	s.Empty(names)

	for _, name := range []string{"mahasiswa", "dosen"} {
		p, err := pr.Persistence(ctx, name)
		s.Require().NoError(err)
		_, _, err = p.LoadCollection(ctx)
		s.Require().NoError(err)
	}
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "notes.txt"), nil, DefaultFileMode))

	names, err = pr.Collections(ctx)
	s.NoError(err)
	s.Equal([]string{"dosen", "mahasiswa"}, names)

	_, err = pr.Persistence(ctx, "../escape")
	s.ErrorAs(err, &domain.ErrDatafileName{})
	s.NoError(pr.Close())

	s.Run("InMemory", func() {
		pr := NewProvider("")
		names, err := pr.Collections(ctx)
		s.NoError(err)
		s.Empty(names)
		p, err := pr.Persistence(ctx, "mahasiswa")
		s.Require().NoError(err)
		s.True(p.(*Persistence).inMemoryOnly)
	})
}

func TestPersistenceTestSuite(t *testing.T) {
	suite.Run(t, new(PersistenceTestSuite))
}
