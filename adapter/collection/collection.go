// Package collection contains the write coordinator of a single collection.
//
// A [Collection] owns a document store, its indexes and its persistence.
// Writes hold an exclusive lock for their whole duration and update the
// store, then the indexes, then the persisted log; a failing step undoes
// the steps before it. Reads share a lock and never observe a write in
// progress. Waiting writers block new readers.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/aggregator"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/comparer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/cursor"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/decoder"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/docstore"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/hasher"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/idgenerator"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/indexmanager"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/metrics"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/modifier"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/persistence"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/projector"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/querier"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
	"github.com/Budskyman/BigData-Praktikum-2025/pkg/ctxsync"
)

// IDField cannot be indexed, identifiers are not document fields.
const IDField = "_id"

// state is everything that is swapped at once when the whole content of the
// collection is replaced.
type state struct {
	store      domain.DocumentStore
	indexes    domain.IndexManager
	querier    domain.Querier
	aggregator domain.Aggregator
}

// Collection coordinates reads and writes of one collection.
type Collection struct {
	name string
	mu   *ctxsync.RWMutex
	st   *state
	gone error

	persistence domain.Persistence
	logger      *slog.Logger
	metrics     domain.MetricsCollector
	comparer    domain.Comparer
	hasher      domain.Hasher
	modifier    domain.Modifier
	decoder     domain.Decoder
	projector   domain.Projector
	maxID       uint32
}

// NewCollection returns an empty collection. Call [Collection.Load] to read
// its persisted content.
func NewCollection(name string, opts ...Option) (*Collection, error) {
	c := Collection{
		name:      name,
		mu:        ctxsync.NewRWMutex(),
		logger:    slog.New(slog.DiscardHandler),
		metrics:   metrics.NewNoop(),
		comparer:  comparer.NewComparer(),
		hasher:    hasher.NewHasher(),
		modifier:  modifier.NewModifier(),
		decoder:   decoder.NewDecoder(),
		projector: projector.NewProjector(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.persistence == nil {
		p, err := persistence.NewPersistence(persistence.WithInMemoryOnly(true))
		if err != nil {
			return nil, err
		}
		c.persistence = p
	}
	c.logger = c.logger.With(slog.String("collection", name))

	st, err := c.build(nil, nil)
	if err != nil {
		return nil, err
	}
	c.st = st
	return &c, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// build creates a fresh state holding entries and indexes.
func (c *Collection) build(entries []domain.Entry, indexes []domain.IndexDTO) (*state, error) {
	idOpts := []idgenerator.Option{}
	if c.maxID > 0 {
		idOpts = append(idOpts, idgenerator.WithMax(c.maxID))
	}
	store := docstore.NewStore(
		docstore.WithIDGenerator(idgenerator.NewIDGenerator(idOpts...)),
		docstore.WithModifier(c.modifier),
	)
	for _, e := range entries {
		if err := store.Restore(e.ID, e.Doc); err != nil {
			return nil, fmt.Errorf("restoring document %d: %w", e.ID, err)
		}
	}

	manager := indexmanager.NewManager(store,
		indexmanager.WithComparer(c.comparer),
		indexmanager.WithLogger(c.logger),
	)
	for _, idx := range indexes {
		if err := manager.CreateIndex(idx.FieldName, idx.Unique); err != nil {
			return nil, fmt.Errorf("restoring index on %q: %w", idx.FieldName, err)
		}
	}

	q := querier.NewQuerier(store, manager, querier.WithComparer(c.comparer))
	return &state{
		store:   store,
		indexes: manager,
		querier: q,
		aggregator: aggregator.NewAggregator(q,
			aggregator.WithComparer(c.comparer),
			aggregator.WithHasher(c.hasher),
		),
	}, nil
}

// lock acquires the write lock. The returned context is no longer canceled
// with ctx: a write that got the lock runs to completion.
func (c *Collection) lock(ctx context.Context) (context.Context, error) {
	if err := c.mu.LockWithContext(ctx); err != nil {
		return nil, err
	}
	if c.gone != nil {
		c.mu.Unlock()
		return nil, c.gone
	}
	return context.WithoutCancel(ctx), nil
}

func (c *Collection) rlock(ctx context.Context) error {
	if err := c.mu.RLockWithContext(ctx); err != nil {
		return err
	}
	if c.gone != nil {
		c.mu.RUnlock()
		return c.gone
	}
	return nil
}

// Load replaces the content of the collection with what its persistence
// holds.
func (c *Collection) Load(ctx context.Context) error {
	ctx, err := c.lock(ctx)
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	start := time.Now()
	entries, indexes, err := c.persistence.LoadCollection(ctx)
	if err != nil {
		return err
	}
	st, err := c.build(entries, indexes)
	if err != nil {
		return err
	}
	c.st = st
	c.logger.Debug("collection loaded",
		slog.Int("count", len(entries)),
		slog.Int("indexes", len(indexes)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// InsertOne stores doc, a map with string keys, a struct or a
// [*domain.Document], and returns its identifier.
func (c *Collection) InsertOne(ctx context.Context, doc any) (id domain.ID, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordInsert(time.Since(start), err) }()

	d, err := data.NewDocument(doc)
	if err != nil {
		return 0, err
	}

	ctx, err = c.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer c.mu.Unlock()
	return c.insert(ctx, d)
}

// InsertMany inserts every document in order and reports the outcome of each
// by position. A malformed document does not stop the batch and documents
// before it stay inserted. Running out of identifiers aborts the batch: the
// results so far are returned with the error.
func (c *Collection) InsertMany(ctx context.Context, docs ...any) ([]domain.InsertResult, error) {
	start := time.Now()
	failed := 0
	res := make([]domain.InsertResult, 0, len(docs))
	defer func() { c.metrics.RecordBatchInsert(len(docs), failed, time.Since(start)) }()

	ctx, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	for n, doc := range docs {
		r := domain.InsertResult{Index: n}
		d, err := data.NewDocument(doc)
		if err == nil {
			r.ID, err = c.insert(ctx, d)
		}
		r.Err = err
		res = append(res, r)
		if err != nil {
			failed++
			if errors.Is(err, domain.ErrResourceExhausted) {
				return res, err
			}
		}
	}
	return res, nil
}

func (c *Collection) insert(ctx context.Context, d *domain.Document) (domain.ID, error) {
	st := c.st
	id, err := st.store.Insert(d)
	if err != nil {
		return 0, err
	}
	if err := st.indexes.OnInsert(id, d); err != nil {
		st.store.Delete(id)
		st.indexes.Sync()
		return 0, err
	}
	if err := c.persistence.PersistNewState(ctx, domain.Record{ID: id, Doc: d}); err != nil {
		st.store.Delete(id)
		err = errors.Join(err, st.indexes.OnDelete(id, d))
		c.logger.Error("insert rolled back", slog.Uint64("id", uint64(id)), slog.Any("err", err))
		return 0, err
	}
	return id, nil
}

// Get returns a copy of the document with the given identifier.
func (c *Collection) Get(ctx context.Context, id domain.ID) (*domain.Document, error) {
	if err := c.rlock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()
	return c.st.store.Get(id)
}

// Find runs q and returns a cursor over the matching documents. The result
// set is fixed when Find returns. The projection of q is applied after
// sorting, so sort fields need not be kept.
func (c *Collection) Find(ctx context.Context, q domain.Query) (cur domain.Cursor, err error) {
	start := time.Now()
	var entries []domain.Entry
	defer func() { c.metrics.RecordFind(len(entries), time.Since(start), err) }()

	if err := c.rlock(ctx); err != nil {
		return nil, err
	}
	entries, err = c.st.querier.Query(ctx, q)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if entries, err = c.projector.Project(entries, q.Projection); err != nil {
		return nil, err
	}
	return cursor.NewCursor(ctx, entries, cursor.WithDecoder(c.decoder))
}

// Count returns the number of documents matching f.
func (c *Collection) Count(ctx context.Context, f domain.Filter) (int, error) {
	if err := c.rlock(ctx); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()
	if len(f) == 0 {
		return c.st.store.Len(), nil
	}
	entries, err := c.st.querier.Candidates(f)
	return len(entries), err
}

// first returns the first document, in identifier order, matching f.
func (c *Collection) first(ctx context.Context, f domain.Filter) (domain.Entry, error) {
	entries, err := c.st.querier.Query(ctx, domain.Query{Filter: f, Limit: 1})
	if err != nil {
		return domain.Entry{}, err
	}
	if len(entries) == 0 {
		return domain.Entry{}, fmt.Errorf("%w: no document matches the filter", domain.ErrNotFound)
	}
	return entries[0], nil
}

// UpdateOne merges changes into the first document matching f and returns
// the updated document. Fields of changes replace stored fields, nested
// documents included.
func (c *Collection) UpdateOne(ctx context.Context, f domain.Filter, changes any) (updated *domain.Document, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordUpdate(time.Since(start), err) }()

	ch, err := data.NewDocument(changes)
	if err != nil {
		return nil, err
	}

	ctx, err = c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	target, err := c.first(ctx, f)
	if err != nil {
		return nil, err
	}
	st := c.st
	updated, err = st.store.Update(target.ID, ch)
	if err != nil {
		return nil, err
	}
	if err := st.indexes.OnUpdate(target.ID, target.Doc, updated); err != nil {
		err = errors.Join(err, st.store.Replace(target.ID, target.Doc))
		st.indexes.Sync()
		return nil, err
	}
	if err := c.persistence.PersistNewState(ctx, domain.Record{ID: target.ID, Doc: updated}); err != nil {
		err = errors.Join(err,
			st.store.Replace(target.ID, target.Doc),
			st.indexes.OnUpdate(target.ID, updated, target.Doc),
		)
		c.logger.Error("update rolled back", slog.Uint64("id", uint64(target.ID)), slog.Any("err", err))
		return nil, err
	}
	return updated, nil
}

// DeleteOne removes the first document matching f. It returns false and
// [domain.ErrNotFound] when nothing matches.
func (c *Collection) DeleteOne(ctx context.Context, f domain.Filter) (deleted bool, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordDelete(time.Since(start), err) }()

	ctx, err = c.lock(ctx)
	if err != nil {
		return false, err
	}
	defer c.mu.Unlock()

	target, err := c.first(ctx, f)
	if err != nil {
		return false, err
	}
	st := c.st
	st.store.Delete(target.ID)
	if err := st.indexes.OnDelete(target.ID, target.Doc); err != nil {
		err = errors.Join(err, st.store.Restore(target.ID, target.Doc), st.indexes.Reset())
		return false, err
	}
	if err := c.persistence.PersistNewState(ctx, domain.Record{ID: target.ID, Deleted: true}); err != nil {
		err = errors.Join(err,
			st.store.Restore(target.ID, target.Doc),
			st.indexes.OnInsert(target.ID, target.Doc),
		)
		c.logger.Error("delete rolled back", slog.Uint64("id", uint64(target.ID)), slog.Any("err", err))
		return false, err
	}
	return true, nil
}

// CreateIndex indexes field, a dotted path. Creating an existing index does
// nothing, whatever its options.
func (c *Collection) CreateIndex(ctx context.Context, field string, opts ...IndexOption) error {
	dto := domain.IndexDTO{FieldName: field}
	for _, opt := range opts {
		opt(&dto)
	}
	if field == IDField {
		return fmt.Errorf("%w: %q cannot be indexed", domain.ErrInvalidFilter, IDField)
	}

	ctx, err := c.lock(ctx)
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	st := c.st
	if st.indexes.HasIndex(field) {
		return nil
	}
	if err := st.indexes.CreateIndex(dto.FieldName, dto.Unique); err != nil {
		return err
	}
	if err := c.persistence.PersistNewState(ctx, domain.Record{IndexCreated: &dto}); err != nil {
		return errors.Join(err, st.indexes.DropIndex(field))
	}
	c.logger.Info("index created", slog.String("field", field), slog.Bool("unique", dto.Unique))
	return nil
}

// DropIndex removes the index on field. Dropping a missing index is
// [domain.ErrNotFound].
func (c *Collection) DropIndex(ctx context.Context, field string) error {
	ctx, err := c.lock(ctx)
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	st := c.st
	var dropped domain.IndexDTO
	for _, idx := range st.indexes.Indexes() {
		if idx.FieldName == field {
			dropped = idx
		}
	}
	if err := st.indexes.DropIndex(field); err != nil {
		return err
	}
	if err := c.persistence.PersistNewState(ctx, domain.Record{IndexRemoved: field}); err != nil {
		return errors.Join(err, st.indexes.CreateIndex(dropped.FieldName, dropped.Unique))
	}
	c.logger.Info("index dropped", slog.String("field", field))
	return nil
}

// Indexes lists the indexes of the collection sorted by field.
func (c *Collection) Indexes(ctx context.Context) ([]domain.IndexDTO, error) {
	if err := c.rlock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()
	return c.st.indexes.Indexes(), nil
}

// Aggregate runs p over the collection.
func (c *Collection) Aggregate(ctx context.Context, p domain.Pipeline) (res []*domain.Document, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordAggregate(len(p), time.Since(start), err) }()

	if err := c.rlock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()
	return c.st.aggregator.Aggregate(ctx, p)
}

// Dump returns a copy of every document, in identifier order, and every
// index of the collection.
func (c *Collection) Dump(ctx context.Context) ([]domain.Entry, []domain.IndexDTO, error) {
	if err := c.rlock(ctx); err != nil {
		return nil, nil, err
	}
	defer c.mu.RUnlock()
	return c.dump(), c.st.indexes.Indexes(), nil
}

func (c *Collection) dump() []domain.Entry {
	entries := make([]domain.Entry, 0, c.st.store.Len())
	for id, doc := range c.st.store.Scan() {
		entries = append(entries, domain.Entry{ID: id, Doc: doc.Clone()})
	}
	return entries
}

// Compact rewrites the persisted log so it holds only the current state.
func (c *Collection) Compact(ctx context.Context) error {
	ctx, err := c.lock(ctx)
	if err != nil {
		return err
	}
	defer c.mu.Unlock()
	return c.persistence.PersistCachedCollection(ctx, c.dump(), c.st.indexes.Indexes())
}

// Validate reports whether Replace would accept entries and indexes. Only
// persistence can still make such a Replace fail.
func (c *Collection) Validate(entries []domain.Entry, indexes []domain.IndexDTO) error {
	_, err := c.build(entries, indexes)
	return err
}

// Replace swaps the whole content of the collection, persisting it first.
// On failure the collection keeps its previous content.
func (c *Collection) Replace(ctx context.Context, entries []domain.Entry, indexes []domain.IndexDTO) error {
	ctx, err := c.lock(ctx)
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	st, err := c.build(entries, indexes)
	if err != nil {
		return err
	}
	if err := c.persistence.PersistCachedCollection(ctx, entries, indexes); err != nil {
		return err
	}
	c.st = st
	c.logger.Info("collection replaced", slog.Int("count", len(entries)))
	return nil
}

// Drop removes the persisted data of the collection. Every later call on
// this handle returns [domain.ErrNotFound].
func (c *Collection) Drop(ctx context.Context) error {
	ctx, err := c.lock(ctx)
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	if err := c.persistence.DropCollection(ctx); err != nil {
		return err
	}
	c.gone = fmt.Errorf("%w: collection %q was dropped", domain.ErrNotFound, c.name)
	c.logger.Info("collection dropped")
	return nil
}

// Close makes every later call on this handle return [domain.ErrClosed]. It
// waits for running operations to finish.
func (c *Collection) Close(ctx context.Context) error {
	if err := c.mu.LockWithContext(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if c.gone == nil {
		c.gone = domain.ErrClosed
	}
	return nil
}

// WaitCompaction blocks until the next compaction of the persisted log.
func (c *Collection) WaitCompaction(ctx context.Context) error {
	return c.persistence.WaitCompaction(ctx)
}
