// Package docstore provides an embedded document database for golang.
//
// Documents are grouped in named collections, addressed by a numeric
// identifier assigned on insert and queried through filters, secondary
// indexes and aggregation pipelines.
//
// The basic usage starts with opening a [DB] by calling [Open] and obtaining a
// [Collection] with [DB.Collection].
package docstore

import (
	"context"
	"log/slog"
	"os"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/collection"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/datastore"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/snapshot"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

var (
	// ErrNotFound is returned when a document, index or collection does not
	// exist, including every call on a dropped collection.
	ErrNotFound = domain.ErrNotFound
	// ErrMalformedDocument is returned when an inserted or updated value
	// cannot be stored as a document.
	ErrMalformedDocument = domain.ErrMalformedDocument
	// ErrInvalidFilter is returned for conditions with unknown operators or
	// operands of the wrong kind.
	ErrInvalidFilter = domain.ErrInvalidFilter
	// ErrResourceExhausted is returned when a collection has no identifiers
	// left to assign.
	ErrResourceExhausted = domain.ErrResourceExhausted
	// ErrConstraintViolated is returned when a write would break a unique
	// index.
	ErrConstraintViolated = domain.ErrConstraintViolated
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrClosed is returned by every call made after [DB.Close].
	ErrClosed = domain.ErrClosed
	// ErrUnknownCodec is returned by [DB.Restore] when the stream is not a
	// known snapshot.
	ErrUnknownCodec = domain.ErrUnknownCodec
	// ErrCorruptSnapshot is returned by [DB.Restore] when a snapshot cannot
	// be read back completely.
	ErrCorruptSnapshot = snapshot.ErrCorruptSnapshot
)

// ErrTargetNil is returned when a nil target is given to [Cursor.Scan].
type ErrTargetNil = domain.ErrTargetNil

// ErrFieldName represents an invalid field name, usually for when a document is
// created with a reserved prefix or forbidden character.
type ErrFieldName = domain.ErrFieldName

// ErrDatafileName is returned when the user specifies an invalid collection
// name.
type ErrDatafileName = domain.ErrDatafileName

// ErrCorruptFiles is returned by [Open] when the db is unable to correctly load
// more data in a datafile than the threshold set by the user.
type ErrCorruptFiles = domain.ErrCorruptFiles

// ErrDecode is returned by [Cursor.Scan] to wrap third party decoding errors.
type ErrDecode = domain.ErrDecode

// DB is an open database. It is safe for concurrent use.
type DB = datastore.Datastore

// Collection is a named set of documents. It is safe for concurrent use:
// reads run in parallel and every write is observed entirely or not at all.
type Collection = collection.Collection

// Open opens the database and loads every collection it holds. Options:
//
// - [WithDir]: sets the directory holding one datafile per collection.
//
// - [WithInMemoryOnly]: disables persistence.
//
// - [WithPersistenceProvider]: stores collections in another backend.
//
// - [WithCorruptAlertThreshold]: sets the tolerated share of bad lines.
//
// - [WithFileMode] and [WithDirMode]: set file and directory permissions.
//
// - [WithLogger] and [WithMetrics]: observe the database.
//
// - [WithComparer], [WithHasher], [WithModifier] and [WithDecoder]: replace
// the default value order, group hashing, update merge and [Cursor.Scan]
// decoding.
//
// - [WithSnapshotCodec] and [WithTimeGetter]: configure [DB.Backup].
//
// - [WithLoadConcurrency]: limits how many collections load at once.
func Open(ctx context.Context, options ...Option) (*DB, error) {
	return datastore.Open(ctx, options...)
}

// ID identifies a document inside its collection.
type ID = domain.ID

// Document is an ordered set of fields.
type Document = domain.Document

// Value is a document field value.
type Value = domain.Value

// NewDocument converts a map with string keys or a struct into a [Document].
// Struct fields are named after their "docstore" tag.
func NewDocument(in any) (*Document, error) {
	return data.NewDocument(in)
}

// ValueOf converts a Go value into a [Value].
func ValueOf(in any) (Value, error) {
	return data.NewValue(in)
}

// Null returns the null value.
func Null() Value { return domain.Null() }

// Number returns a numeric value.
func Number(f float64) Value { return domain.Number(f) }

// String returns a string value.
func String(s string) Value { return domain.String(s) }

// Bool returns a boolean value.
func Bool(b bool) Value { return domain.Bool(b) }

// List returns a list value.
func List(items ...Value) Value { return domain.List(items...) }

// Cursor provides iteration over query results.
type Cursor = domain.Cursor

// Decoder converts documents into user values.
type Decoder = domain.Decoder

// Comparer provides ordering and comparison for different data types.
type Comparer = domain.Comparer

// Hasher generates hash values used to group documents.
type Hasher = domain.Hasher

// Modifier applies updates to documents.
type Modifier = domain.Modifier

// TimeGetter provides current time for timestamping backups.
type TimeGetter = domain.TimeGetter

// MetricsCollector observes collection operations.
type MetricsCollector = domain.MetricsCollector

// PersistenceProvider stores the collections of a database.
type PersistenceProvider = domain.PersistenceProvider

// Condition is a single field predicate.
type Condition = domain.Condition

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter = domain.Filter

// Eq matches documents whose field equals v.
func Eq(field string, v Value) Condition {
	return Condition{Field: field, Op: domain.OpEq, Value: v}
}

// Ne matches documents whose field differs from v or is missing.
func Ne(field string, v Value) Condition {
	return Condition{Field: field, Op: domain.OpNe, Value: v}
}

// Gt matches documents whose field is greater than v.
func Gt(field string, v Value) Condition {
	return Condition{Field: field, Op: domain.OpGt, Value: v}
}

// Gte matches documents whose field is greater than or equal to v.
func Gte(field string, v Value) Condition {
	return Condition{Field: field, Op: domain.OpGte, Value: v}
}

// Lt matches documents whose field is less than v.
func Lt(field string, v Value) Condition {
	return Condition{Field: field, Op: domain.OpLt, Value: v}
}

// Lte matches documents whose field is less than or equal to v.
func Lte(field string, v Value) Condition {
	return Condition{Field: field, Op: domain.OpLte, Value: v}
}

// In matches documents whose field equals one of vs.
func In(field string, vs ...Value) Condition {
	return Condition{Field: field, Op: domain.OpIn, Value: domain.List(vs...)}
}

// Nin matches documents whose field equals none of vs.
func Nin(field string, vs ...Value) Condition {
	return Condition{Field: field, Op: domain.OpNin, Value: domain.List(vs...)}
}

// Exists matches documents that have, or lack, field.
func Exists(field string, exists bool) Condition {
	return Condition{Field: field, Op: domain.OpExists, Value: domain.Bool(exists)}
}

// Query describes a find: filter, sort, skip and limit.
type Query = domain.Query

// Sort represents an ordered list of fields which should be used, respectively,
// to sort the results of a query.
type Sort = domain.Sort

// SortName represents a single field and its direction.
type SortName = domain.SortName

// Asc sorts by field in ascending order.
func Asc(field string) SortName { return SortName{Field: field} }

// Desc sorts by field in descending order.
func Desc(field string) SortName { return SortName{Field: field, Desc: true} }

// Pipeline is an ordered list of aggregation stages.
type Pipeline = domain.Pipeline

// Stage is one step of a [Pipeline].
type Stage = domain.Stage

// Accumulator computes a value for every group of a [GroupBy] stage.
type Accumulator = domain.Accumulator

// Match returns a stage filtering its input.
func Match(conds ...Condition) Stage { return domain.MatchStage(conds) }

// GroupBy returns a stage grouping its input by field.
func GroupBy(field string, accs ...Accumulator) Stage { return domain.GroupBy(field, accs...) }

// SortBy returns a stage sorting its input.
func SortBy(s ...SortName) Stage { return domain.SortStage(s...) }

// Skip returns a stage dropping the first n documents.
func Skip(n int) Stage { return domain.SkipStage(n) }

// Limit returns a stage keeping the first n documents.
func Limit(n int) Stage { return domain.LimitStage(n) }

// Count counts the documents of every group.
func Count(name string) Accumulator {
	return Accumulator{Name: name, Func: domain.AccCount}
}

// Avg averages the numeric values of field in every group.
func Avg(name, field string) Accumulator {
	return Accumulator{Name: name, Func: domain.AccAvg, Field: field}
}

// Sum adds the numeric values of field in every group.
func Sum(name, field string) Accumulator {
	return Accumulator{Name: name, Func: domain.AccSum, Field: field}
}

// Min keeps the smallest value of field in every group.
func Min(name, field string) Accumulator {
	return Accumulator{Name: name, Func: domain.AccMin, Field: field}
}

// Max keeps the largest value of field in every group.
func Max(name, field string) Accumulator {
	return Accumulator{Name: name, Func: domain.AccMax, Field: field}
}

// InsertResult reports the outcome of one document of
// [Collection.InsertMany].
type InsertResult = domain.InsertResult

// IndexDTO describes an index.
type IndexDTO = domain.IndexDTO

// SnapshotInfo describes a backup.
type SnapshotInfo = domain.SnapshotInfo

// IndexOption configures [Collection.CreateIndex].
type IndexOption = collection.IndexOption

// WithUnique creates a unique index that prevents duplicate values.
func WithUnique(u bool) IndexOption {
	return collection.WithUnique(u)
}

// Codec names the compression of backups.
type Codec = snapshot.Codec

const (
	CodecZstd = snapshot.CodecZstd
	CodecLZ4  = snapshot.CodecLZ4
)

// Option configures database behavior through the functional options
// pattern.
type Option = datastore.Option

// WithDir sets the directory holding one datafile per collection.
func WithDir(dir string) Option {
	return datastore.WithDir(dir)
}

// WithInMemoryOnly enables in-memory only mode without file persistence.
func WithInMemoryOnly(i bool) Option {
	return datastore.WithInMemoryOnly(i)
}

// WithPersistenceProvider stores collections in p instead of datafiles.
func WithPersistenceProvider(p PersistenceProvider) Option {
	return datastore.WithPersistenceProvider(p)
}

// WithCorruptAlertThreshold sets the threshold for corruption errors.
func WithCorruptAlertThreshold(c float64) Option {
	return datastore.WithCorruptAlertThreshold(c)
}

// WithFileMode sets the file permissions for datafiles.
func WithFileMode(f os.FileMode) Option {
	return datastore.WithFileMode(f)
}

// WithDirMode sets the directory permissions for database directories.
func WithDirMode(d os.FileMode) Option {
	return datastore.WithDirMode(d)
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return datastore.WithLogger(l)
}

// WithMetrics sets the collector notified of every operation.
func WithMetrics(m MetricsCollector) Option {
	return datastore.WithMetrics(m)
}

// WithComparer sets the comparer for value comparison operations.
func WithComparer(c Comparer) Option {
	return datastore.WithComparer(c)
}

// WithHasher sets the hasher for grouping documents.
func WithHasher(h Hasher) Option {
	return datastore.WithHasher(h)
}

// WithModifier sets the modifier implementation for document updates.
func WithModifier(m Modifier) Option {
	return datastore.WithModifier(m)
}

// WithDecoder sets the decoder used by [Cursor.Scan].
func WithDecoder(d Decoder) Option {
	return datastore.WithDecoder(d)
}

// WithSnapshotCodec sets the compression of backups.
func WithSnapshotCodec(c Codec) Option {
	return datastore.WithSnapshotCodec(c)
}

// WithTimeGetter sets the time getter for timestamping backups.
func WithTimeGetter(t TimeGetter) Option {
	return datastore.WithTimeGetter(t)
}

// WithLoadConcurrency limits how many collections load at once.
func WithLoadConcurrency(n int) Option {
	return datastore.WithLoadConcurrency(n)
}
