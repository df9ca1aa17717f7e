// Package persistence contains the default [domain.Persistence]
// implementation: an append-only datafile of JSON lines per collection.
//
// Every write appends records. Loading replays them, keeping the last state
// of each document and index, and then compacts the file so it holds one line
// per live document and index.
package persistence

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/dolmen-go/contextio"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/deserializer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/serializer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/storage"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
	"github.com/Budskyman/BigData-Praktikum-2025/pkg/ctxsync"
)

const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
	// DefaultCorruptAlertThreshold is the share of unreadable lines tolerated
	// when loading.
	DefaultCorruptAlertThreshold = 0.1
	// maxLineSize bounds the size of a single persisted record.
	maxLineSize = 64 << 20
)

// Persistence implements domain.Persistence.
type Persistence struct {
	inMemoryOnly          bool
	filename              string
	corruptAlertThreshold float64
	fileMode              os.FileMode
	dirMode               os.FileMode
	serializer            domain.Serializer
	deserializer          domain.Deserializer
	storage               domain.Storage
	logger                *slog.Logger

	mu          *ctxsync.Mutex
	compacted   *ctxsync.Cond
	compactions uint64
}

// NewPersistence returns a new implementation of domain.Persistence.
func NewPersistence(options ...Option) (domain.Persistence, error) {
	p := Persistence{
		corruptAlertThreshold: DefaultCorruptAlertThreshold,
		fileMode:              DefaultFileMode,
		dirMode:               DefaultDirMode,
		storage:               storage.NewStorage(),
		serializer:            serializer.NewSerializer(),
		deserializer:          deserializer.NewDeserializer(),
		logger:                slog.New(slog.DiscardHandler),
		mu:                    ctxsync.NewMutex(),
	}
	for _, option := range options {
		option(&p)
	}
	p.compacted = ctxsync.NewCond(p.mu)

	if !p.inMemoryOnly {
		if p.filename == "" {
			return nil, domain.ErrDatafileName{Name: p.filename, Reason: "cannot be empty"}
		}
		if strings.HasSuffix(p.filename, storage.TempSuffix) {
			return nil, domain.ErrDatafileName{Name: p.filename, Reason: "cannot end with '~', reserved for temporary files"}
		}
	}
	return &p, nil
}

// PersistNewState implements domain.Persistence.
func (p *Persistence) PersistNewState(ctx context.Context, records ...domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.inMemoryOnly {
		return nil
	}

	toPersist := new(bytes.Buffer)
	wr := contextio.NewWriter(ctx, toPersist)
	for _, r := range records {
		b, err := p.serializer.Serialize(ctx, r)
		if err != nil {
			return err
		}
		if _, err := wr.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	if toPersist.Len() == 0 {
		return nil
	}

	_, err := p.storage.AppendFile(p.filename, p.fileMode, toPersist.Bytes())
	return err
}

// TreatRawStream replays the records read from rawStream. Unreadable lines
// are skipped unless their share exceeds the corruption threshold.
func (p *Persistence) TreatRawStream(ctx context.Context, rawStream io.Reader) ([]domain.Entry, []domain.IndexDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	docs := make(map[domain.ID]*domain.Document)
	indexes := make(map[string]domain.IndexDTO)

	corruptItems := 0
	dataLength := 0

	lineStream := bufio.NewScanner(contextio.NewReader(ctx, rawStream))
	lineStream.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for lineStream.Scan() {
		line := lineStream.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		dataLength++

		r, err := p.deserializer.Deserialize(ctx, line)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			corruptItems++
			continue
		}
		switch {
		case r.IndexCreated != nil:
			indexes[r.IndexCreated.FieldName] = *r.IndexCreated
		case r.IndexRemoved != "":
			delete(indexes, r.IndexRemoved)
		case r.Deleted:
			delete(docs, r.ID)
		default:
			docs[r.ID] = r.Doc
		}
	}
	if err := lineStream.Err(); err != nil {
		return nil, nil, err
	}

	if dataLength > 0 {
		corruptionRate := float64(corruptItems) / float64(dataLength)
		if corruptionRate > p.corruptAlertThreshold {
			return nil, nil, domain.ErrCorruptFiles{
				CorruptionRate:        corruptionRate,
				CorruptItems:          corruptItems,
				DataLength:            dataLength,
				CorruptAlertThreshold: p.corruptAlertThreshold,
			}
		}
		if corruptItems > 0 {
			p.logger.Warn("skipped corrupt records",
				slog.String("file", p.filename),
				slog.Int("count", corruptItems),
				slog.Int("total", dataLength),
			)
		}
	}

	entries := make([]domain.Entry, 0, len(docs))
	for _, id := range slices.Sorted(maps.Keys(docs)) {
		entries = append(entries, domain.Entry{ID: id, Doc: docs[id]})
	}
	idx := slices.SortedFunc(maps.Values(indexes), func(a, b domain.IndexDTO) int {
		return cmp.Compare(a.FieldName, b.FieldName)
	})
	return entries, idx, nil
}

// LoadCollection implements domain.Persistence.
func (p *Persistence) LoadCollection(ctx context.Context) ([]domain.Entry, []domain.IndexDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if p.inMemoryOnly {
		return nil, nil, nil
	}

	if err := p.storage.EnsureParentDirectoryExists(p.filename, p.dirMode); err != nil {
		return nil, nil, err
	}
	if err := p.storage.EnsureDatafileIntegrity(p.filename, p.fileMode); err != nil {
		return nil, nil, err
	}

	fileStream, err := p.storage.ReadFileStream(p.filename, p.fileMode)
	if err != nil {
		return nil, nil, err
	}
	entries, indexes, err := p.TreatRawStream(ctx, fileStream)
	if cErr := fileStream.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return nil, nil, err
	}

	if err := p.PersistCachedCollection(ctx, entries, indexes); err != nil {
		return nil, nil, err
	}
	return entries, indexes, nil
}

// DropCollection implements domain.Persistence.
func (p *Persistence) DropCollection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.inMemoryOnly {
		return nil
	}

	var errs []error
	for _, name := range []string{p.filename, p.filename + storage.TempSuffix} {
		exists, err := p.storage.Exists(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if exists {
			errs = append(errs, p.storage.Remove(name))
		}
	}
	return errors.Join(errs...)
}

// PersistCachedCollection implements domain.Persistence. Waiters of
// WaitCompaction are released once the file is rewritten.
func (p *Persistence) PersistCachedCollection(ctx context.Context, entries []domain.Entry, indexes []domain.IndexDTO) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !p.inMemoryOnly {
		lines := make([][]byte, 0, len(entries)+len(indexes))
		for _, e := range entries {
			b, err := p.serializer.Serialize(ctx, domain.Record{ID: e.ID, Doc: e.Doc})
			if err != nil {
				return err
			}
			lines = append(lines, b)
		}
		for _, idx := range indexes {
			b, err := p.serializer.Serialize(ctx, domain.Record{IndexCreated: &idx})
			if err != nil {
				return err
			}
			lines = append(lines, b)
		}

		if err := p.storage.CrashSafeWriteFileLines(p.filename, lines, p.dirMode, p.fileMode); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.compactions++
	p.mu.Unlock()
	p.compacted.Broadcast()
	return nil
}

// WaitCompaction implements domain.Persistence.
func (p *Persistence) WaitCompaction(ctx context.Context) error {
	if err := p.mu.LockWithContext(ctx); err != nil {
		return err
	}
	defer p.mu.Unlock()

	seen := p.compactions
	for seen == p.compactions {
		if err := p.compacted.WaitWithContext(ctx); err != nil {
			return err
		}
	}
	return nil
}
