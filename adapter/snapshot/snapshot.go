// Package snapshot writes and reads compressed backups of whole databases.
//
// A snapshot is a compressed stream of JSON lines. The first line describes
// the snapshot, then every collection starts with a marker line followed by
// its records:
//
//	{"id":"...","createdAt":"...","collections":1,"documents":2,"codec":"zstd"}
//	{"$$collection":"mahasiswa"}
//	{"$$id":1,"$$doc":{"nim":"12345"}}
//	{"$$id":2,"$$doc":{"nim":"12346"}}
//	{"$$indexCreated":{"fieldName":"nim","unique":true}}
package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dolmen-go/contextio"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/deserializer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/serializer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/timegetter"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Codec names the compression of a snapshot.
type Codec string

const (
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

// ErrCorruptSnapshot is returned when a snapshot stream cannot be read back
// completely.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

const maxLineSize = 64 << 20

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}

	collectionMarker = []byte(`{"$$collection":`)
)

// Collection is the content of one collection inside a snapshot.
type Collection struct {
	Name    string
	Entries []domain.Entry
	Indexes []domain.IndexDTO
}

// Snapshotter writes and reads snapshots.
type Snapshotter struct {
	codec        Codec
	zstdLevel    zstd.EncoderLevel
	serializer   domain.Serializer
	deserializer domain.Deserializer
	timeGetter   domain.TimeGetter
}

// NewSnapshotter returns a Snapshotter writing zstd streams by default.
func NewSnapshotter(options ...Option) *Snapshotter {
	s := Snapshotter{
		codec:        CodecZstd,
		zstdLevel:    zstd.SpeedDefault,
		serializer:   serializer.NewSerializer(),
		deserializer: deserializer.NewDeserializer(),
		timeGetter:   timegetter.NewTimeGetter(),
	}
	for _, option := range options {
		option(&s)
	}
	return &s
}

func (s *Snapshotter) compressor(w io.Writer) (io.WriteCloser, error) {
	switch s.codec {
	case CodecZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(s.zstdLevel))
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCodec, s.codec)
	}
}

// Write writes cols to w. The collections are written in the given order.
func (s *Snapshotter) Write(ctx context.Context, w io.Writer, cols []Collection) (domain.SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.SnapshotInfo{}, err
	}

	info := domain.SnapshotInfo{
		ID:          uuid.NewString(),
		CreatedAt:   s.timeGetter.GetTime(),
		Collections: len(cols),
		Codec:       string(s.codec),
	}
	for _, c := range cols {
		info.Documents += len(c.Entries)
	}

	enc, err := s.compressor(contextio.NewWriter(ctx, w))
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	bw := bufio.NewWriter(enc)
	err = s.writeLines(ctx, bw, info, cols)
	if err == nil {
		err = bw.Flush()
	}
	if cErr := enc.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	return info, nil
}

func (s *Snapshotter) writeLines(ctx context.Context, bw *bufio.Writer, info domain.SnapshotInfo, cols []Collection) error {
	header, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := writeLine(bw, header); err != nil {
		return err
	}

	for _, c := range cols {
		marker, err := json.Marshal(struct {
			Name string `json:"$$collection"`
		}{c.Name})
		if err != nil {
			return err
		}
		if err := writeLine(bw, marker); err != nil {
			return err
		}
		for _, e := range c.Entries {
			b, err := s.serializer.Serialize(ctx, domain.Record{ID: e.ID, Doc: e.Doc})
			if err != nil {
				return err
			}
			if err := writeLine(bw, b); err != nil {
				return err
			}
		}
		for _, idx := range c.Indexes {
			b, err := s.serializer.Serialize(ctx, domain.Record{IndexCreated: &idx})
			if err != nil {
				return err
			}
			if err := writeLine(bw, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLine(bw *bufio.Writer, b []byte) error {
	if _, err := bw.Write(b); err != nil {
		return err
	}
	return bw.WriteByte('\n')
}

func (s *Snapshotter) decompressor(r *bufio.Reader) (io.Reader, func(), error) {
	magic, err := r.Peek(len(zstdMagic))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: stream too short", domain.ErrUnknownCodec)
		}
		return nil, nil, err
	}
	switch {
	case bytes.Equal(magic, zstdMagic):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case bytes.Equal(magic, lz4Magic):
		return lz4.NewReader(r), func() {}, nil
	default:
		return nil, nil, domain.ErrUnknownCodec
	}
}

// Read reads a snapshot written by [Snapshotter.Write] using any codec.
func (s *Snapshotter) Read(ctx context.Context, r io.Reader) (domain.SnapshotInfo, []Collection, error) {
	if err := ctx.Err(); err != nil {
		return domain.SnapshotInfo{}, nil, err
	}

	dec, closeDec, err := s.decompressor(bufio.NewReader(contextio.NewReader(ctx, r)))
	if err != nil {
		return domain.SnapshotInfo{}, nil, err
	}
	defer closeDec()

	lines := bufio.NewScanner(dec)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var info domain.SnapshotInfo
	if !lines.Scan() {
		return domain.SnapshotInfo{}, nil, s.scanErr(ctx, lines.Err(), "missing header")
	}
	if err := json.Unmarshal(lines.Bytes(), &info); err != nil || info.ID == "" {
		return domain.SnapshotInfo{}, nil, fmt.Errorf("%w: invalid header", ErrCorruptSnapshot)
	}

	var cols []Collection
	documents := 0
	for lines.Scan() {
		line := lines.Bytes()
		if bytes.HasPrefix(line, collectionMarker) {
			var marker struct {
				Name string `json:"$$collection"`
			}
			if err := json.Unmarshal(line, &marker); err != nil {
				return domain.SnapshotInfo{}, nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
			}
			cols = append(cols, Collection{Name: marker.Name})
			continue
		}
		if len(cols) == 0 {
			return domain.SnapshotInfo{}, nil, fmt.Errorf("%w: record outside of a collection", ErrCorruptSnapshot)
		}

		rec, err := s.deserializer.Deserialize(ctx, line)
		if err != nil {
			return domain.SnapshotInfo{}, nil, s.scanErr(ctx, err, "invalid record")
		}
		c := &cols[len(cols)-1]
		switch {
		case rec.IndexCreated != nil:
			c.Indexes = append(c.Indexes, *rec.IndexCreated)
		case rec.Doc != nil:
			c.Entries = append(c.Entries, domain.Entry{ID: rec.ID, Doc: rec.Doc})
			documents++
		default:
			return domain.SnapshotInfo{}, nil, fmt.Errorf("%w: unexpected record in collection %q", ErrCorruptSnapshot, c.Name)
		}
	}
	if err := lines.Err(); err != nil {
		return domain.SnapshotInfo{}, nil, s.scanErr(ctx, err, "unreadable stream")
	}

	if len(cols) != info.Collections || documents != info.Documents {
		return domain.SnapshotInfo{}, nil, fmt.Errorf("%w: truncated, expected %d collections and %d documents", ErrCorruptSnapshot, info.Collections, info.Documents)
	}
	return info, cols, nil
}

// scanErr prefers the context error over the failures it causes.
func (s *Snapshotter) scanErr(ctx context.Context, err error, reason string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil {
		return fmt.Errorf("%w: %s", ErrCorruptSnapshot, reason)
	}
	return fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, reason, err)
}
