// Package domain contains the value model, entities, errors and the
// interfaces implemented by adapters.
//
// Adapters depend only on this package, so any of them can be replaced
// through the functional options of the package that uses it.
package domain

import (
	"context"
	"io"
	"iter"
	"os"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Comparer defines the total order between values.
type Comparer interface {
	// Compare returns a negative number, zero or a positive number when a is
	// lower than, equal to or greater than b.
	Compare(a, b Value) int
}

// Hasher hashes values consistently with [Comparer] equality.
type Hasher interface {
	Hash(Value) uint64
}

// IDGenerator hands out collection-unique identifiers.
type IDGenerator interface {
	// GenerateID returns the next identifier or ErrResourceExhausted.
	GenerateID() (ID, error)
	// Observe makes sure id will never be generated again.
	Observe(id ID)
}

// Modifier applies changes to a document.
type Modifier interface {
	// Modify returns a new document with changes merged into doc. The input
	// documents are not modified.
	Modify(doc, changes *Document) (*Document, error)
}

// DocumentStore owns the documents of one collection.
type DocumentStore interface {
	Insert(doc *Document) (ID, error)
	Restore(id ID, doc *Document) error
	Get(id ID) (*Document, error)
	Update(id ID, changes *Document) (*Document, error)
	Replace(id ID, doc *Document) error
	Delete(id ID) bool
	Scan() iter.Seq2[ID, *Document]
	IDs() *roaring.Bitmap
	Len() int
	Version() uint64
}

// Index maps the values of one field to the documents holding them.
type Index interface {
	FieldName() string
	Unique() bool
	Insert(entries ...Entry) error
	Remove(entries ...Entry) error
	Update(id ID, oldDoc, newDoc *Document) error
	GetMatching(values ...Value) (*roaring.Bitmap, error)
	GetBetweenBounds(low, high *Bound) ([]ID, error)
	GetNumberOfKeys() int
}

// Bound limits one side of a range lookup.
type Bound struct {
	Value     Value
	Inclusive bool
}

// IndexManager keeps every index of a collection in sync with its
// [DocumentStore].
type IndexManager interface {
	CreateIndex(field string, unique bool) error
	DropIndex(field string) error
	Indexes() []IndexDTO
	HasIndex(field string) bool
	OnInsert(id ID, doc *Document) error
	OnUpdate(id ID, oldDoc, newDoc *Document) error
	OnDelete(id ID, doc *Document) error
	Lookup(field string, value Value) (*roaring.Bitmap, error)
	RangeLookup(field string, low, high *Bound) ([]ID, error)
	// Reset rebuilds every index from the current store content.
	Reset() error
	// Sync marks the indexes as matching the current store version. It is
	// used after a store change was undone because its index update failed.
	Sync()
}

// Matcher tests documents against a compiled filter.
type Matcher interface {
	Match(*Document) bool
}

// MatcherFactory compiles a filter into a [Matcher].
type MatcherFactory = func(Filter) (Matcher, error)

// Querier selects and orders documents.
type Querier interface {
	Query(ctx context.Context, q Query) ([]Entry, error)
	Candidates(f Filter) ([]Entry, error)
}

// Projector reshapes query results.
type Projector interface {
	Project(entries []Entry, proj map[string]uint8) ([]Entry, error)
}

// Aggregator runs pipelines.
type Aggregator interface {
	Aggregate(ctx context.Context, p Pipeline) ([]*Document, error)
}

// Cursor iterates over query results.
type Cursor interface {
	Next() bool
	ID() ID
	Document() *Document
	Scan(ctx context.Context, target any) error
	Err() error
	Close() error
}

// Decoder converts documents into user values.
type Decoder interface {
	Decode(source *Document, target any) error
}

// Serializer converts records to bytes for storage.
type Serializer interface {
	Serialize(context.Context, Record) ([]byte, error)
}

// Deserializer converts bytes back to records.
type Deserializer interface {
	Deserialize(context.Context, []byte) (Record, error)
}

// Storage provides low-level file operations with crash-safety guarantees.
type Storage interface {
	// AppendFile appends data to a file, creating it if necessary.
	AppendFile(string, os.FileMode, []byte) (int, error)
	// Exists checks if a file exists.
	Exists(string) (bool, error)
	// EnsureParentDirectoryExists creates parent directories if needed.
	EnsureParentDirectoryExists(string, os.FileMode) error
	// EnsureDatafileIntegrity verifies or repairs file integrity.
	EnsureDatafileIntegrity(string, os.FileMode) error
	// CrashSafeWriteFileLines atomically writes multiple lines to a file.
	CrashSafeWriteFileLines(string, [][]byte, os.FileMode, os.FileMode) error
	// ReadFileStream opens a file for streaming reads.
	ReadFileStream(string, os.FileMode) (io.ReadCloser, error)
	// ReadDir lists the names of the files in a directory.
	ReadDir(string) ([]string, error)
	// Remove deletes a file.
	Remove(string) error
}

// Persistence stores the change log of one collection.
type Persistence interface {
	// LoadCollection returns the live documents and indexes, compacting the
	// underlying storage on the way.
	LoadCollection(ctx context.Context) ([]Entry, []IndexDTO, error)
	// PersistNewState appends records to the log.
	PersistNewState(ctx context.Context, records ...Record) error
	// PersistCachedCollection replaces the log with the given state.
	PersistCachedCollection(ctx context.Context, entries []Entry, indexes []IndexDTO) error
	// DropCollection removes all persisted data.
	DropCollection(ctx context.Context) error
	// WaitCompaction blocks until the next compaction finishes.
	WaitCompaction(ctx context.Context) error
}

// PersistenceProvider hands out the [Persistence] of every collection of a
// database.
type PersistenceProvider interface {
	Collections(ctx context.Context) ([]string, error)
	Persistence(ctx context.Context, collection string) (Persistence, error)
	Close() error
}

// TimeGetter provides current time for timestamping operations.
type TimeGetter interface {
	GetTime() time.Time
}

// MetricsCollector receives operational metrics. Implementations must be
// safe for concurrent use.
type MetricsCollector interface {
	RecordInsert(duration time.Duration, err error)
	RecordBatchInsert(count, failed int, duration time.Duration)
	RecordFind(results int, duration time.Duration, err error)
	RecordUpdate(duration time.Duration, err error)
	RecordDelete(duration time.Duration, err error)
	RecordAggregate(stages int, duration time.Duration, err error)
}
