// Package indexmanager contains the default [domain.IndexManager]
// implementation. It keeps every index of a collection consistent with the
// collection's [domain.DocumentStore] and answers lookups, falling back to a
// full scan when a field has no index or the indexes lag behind the store.
package indexmanager

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/comparer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/index"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// IndexFactory builds an empty index for a field.
type IndexFactory = func(field string, unique bool) (domain.Index, error)

// Manager implements [domain.IndexManager]. It is not safe for concurrent
// use; the collection serializes access.
type Manager struct {
	store        domain.DocumentStore
	indexes      map[string]domain.Index
	indexFactory IndexFactory
	comparer     domain.Comparer
	logger       *slog.Logger
	synced       uint64
}

// NewManager returns a new implementation of [domain.IndexManager] bound to
// store.
func NewManager(store domain.DocumentStore, opts ...Option) domain.IndexManager {
	m := Manager{
		store:    store,
		indexes:  make(map[string]domain.Index),
		comparer: comparer.NewComparer(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.indexFactory == nil {
		c := m.comparer
		m.indexFactory = func(field string, unique bool) (domain.Index, error) {
			return index.NewIndex(
				index.WithFieldName(field),
				index.WithUnique(unique),
				index.WithComparer(c),
			)
		}
	}
	m.synced = store.Version()
	return &m
}

// CreateIndex implements [domain.IndexManager]. The index is built from every
// document currently stored. Creating an existing index does nothing.
func (m *Manager) CreateIndex(field string, unique bool) error {
	if _, ok := m.indexes[field]; ok {
		return nil
	}
	idx, err := m.indexFactory(field, unique)
	if err != nil {
		return err
	}
	if err := idx.Insert(m.entries()...); err != nil {
		return err
	}
	m.indexes[field] = idx
	m.logger.Debug("index created", slog.String("field", field), slog.Bool("unique", unique), slog.Int("keys", idx.GetNumberOfKeys()))
	return nil
}

func (m *Manager) entries() []domain.Entry {
	entries := make([]domain.Entry, 0, m.store.Len())
	for id, doc := range m.store.Scan() {
		entries = append(entries, domain.Entry{ID: id, Doc: doc})
	}
	return entries
}

// DropIndex implements [domain.IndexManager].
func (m *Manager) DropIndex(field string) error {
	if _, ok := m.indexes[field]; !ok {
		return fmt.Errorf("%w: index on %q", domain.ErrNotFound, field)
	}
	delete(m.indexes, field)
	m.logger.Debug("index dropped", slog.String("field", field))
	return nil
}

// Indexes implements [domain.IndexManager]. Indexes are sorted by field.
func (m *Manager) Indexes() []domain.IndexDTO {
	res := make([]domain.IndexDTO, 0, len(m.indexes))
	for field, idx := range m.indexes {
		res = append(res, domain.IndexDTO{FieldName: field, Unique: idx.Unique()})
	}
	slices.SortFunc(res, func(a, b domain.IndexDTO) int {
		return cmp.Compare(a.FieldName, b.FieldName)
	})
	return res
}

// HasIndex implements [domain.IndexManager].
func (m *Manager) HasIndex(field string) bool {
	_, ok := m.indexes[field]
	return ok
}

func (m *Manager) sorted() []domain.Index {
	res := make([]domain.Index, 0, len(m.indexes))
	for _, dto := range m.Indexes() {
		res = append(res, m.indexes[dto.FieldName])
	}
	return res
}

// OnInsert implements [domain.IndexManager]. If any index rejects the
// document, the indexes already updated are rolled back.
func (m *Manager) OnInsert(id domain.ID, doc *domain.Document) error {
	entry := domain.Entry{ID: id, Doc: doc}
	indexes := m.sorted()
	for n, idx := range indexes {
		if err := idx.Insert(entry); err != nil {
			errs := []error{err}
			for _, done := range indexes[:n] {
				if rErr := done.Remove(entry); rErr != nil {
					errs = append(errs, rErr)
				}
			}
			return errors.Join(errs...)
		}
	}
	m.Sync()
	return nil
}

// OnUpdate implements [domain.IndexManager].
func (m *Manager) OnUpdate(id domain.ID, oldDoc, newDoc *domain.Document) error {
	indexes := m.sorted()
	for n, idx := range indexes {
		if err := idx.Update(id, oldDoc, newDoc); err != nil {
			errs := []error{err}
			for _, done := range indexes[:n] {
				if rErr := done.Update(id, newDoc, oldDoc); rErr != nil {
					errs = append(errs, rErr)
				}
			}
			return errors.Join(errs...)
		}
	}
	m.Sync()
	return nil
}

// OnDelete implements [domain.IndexManager].
func (m *Manager) OnDelete(id domain.ID, doc *domain.Document) error {
	entry := domain.Entry{ID: id, Doc: doc}
	errs := make([]error, 0)
	for _, idx := range m.sorted() {
		if err := idx.Remove(entry); err != nil {
			errs = append(errs, err)
		}
	}
	m.Sync()
	return errors.Join(errs...)
}

// Sync implements [domain.IndexManager].
func (m *Manager) Sync() {
	m.synced = m.store.Version()
}

// Reset implements [domain.IndexManager].
func (m *Manager) Reset() error {
	entries := m.entries()
	for field, idx := range m.indexes {
		fresh, err := m.indexFactory(field, idx.Unique())
		if err != nil {
			return err
		}
		if err := fresh.Insert(entries...); err != nil {
			return err
		}
		m.indexes[field] = fresh
	}
	m.Sync()
	return nil
}

// index returns the index of field when it can be trusted.
func (m *Manager) index(field string) (domain.Index, bool) {
	idx, ok := m.indexes[field]
	if !ok {
		return nil, false
	}
	if v := m.store.Version(); v != m.synced {
		m.logger.Warn("indexes are stale, falling back to a full scan",
			slog.String("field", field),
			slog.Uint64("indexed_version", m.synced),
			slog.Uint64("store_version", v),
		)
		return nil, false
	}
	return idx, true
}

// Lookup implements [domain.IndexManager].
func (m *Manager) Lookup(field string, value domain.Value) (*roaring.Bitmap, error) {
	if idx, ok := m.index(field); ok {
		return idx.GetMatching(value)
	}
	res := roaring.New()
	for id, doc := range m.store.Scan() {
		for _, k := range index.Keys(m.comparer, doc, field) {
			if m.comparer.Compare(k, value) == 0 {
				res.Add(uint32(id))
				break
			}
		}
	}
	return res, nil
}

// RangeLookup implements [domain.IndexManager]. Identifiers are ordered by
// field value.
func (m *Manager) RangeLookup(field string, low, high *domain.Bound) ([]domain.ID, error) {
	if idx, ok := m.index(field); ok {
		return idx.GetBetweenBounds(low, high)
	}

	low, high, err := index.Bracket(low, high)
	if err != nil {
		return nil, err
	}

	type kv struct {
		key domain.Value
		id  domain.ID
	}
	var found []kv
	for id, doc := range m.store.Scan() {
		for _, k := range index.Keys(m.comparer, doc, field) {
			if index.InBounds(m.comparer, k, low, high) {
				found = append(found, kv{key: k, id: id})
			}
		}
	}
	slices.SortStableFunc(found, func(a, b kv) int {
		return m.comparer.Compare(a.key, b.key)
	})

	seen := roaring.New()
	res := make([]domain.ID, 0, len(found))
	for _, f := range found {
		if seen.CheckedAdd(uint32(f.id)) {
			res = append(res, f.id)
		}
	}
	return res, nil
}
