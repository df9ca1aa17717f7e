// Package docstore contains the default [domain.DocumentStore]
// implementation. Documents live in a map keyed by identifier and the set of
// live identifiers is kept in a roaring bitmap, so scans run in ascending
// identifier order, which is insertion order.
package docstore

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/idgenerator"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/modifier"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Store implements [domain.DocumentStore]. It is not safe for concurrent
// use; callers serialize access.
type Store struct {
	docs        map[domain.ID]*domain.Document
	ids         *roaring.Bitmap
	version     uint64
	idGenerator domain.IDGenerator
	modifier    domain.Modifier
}

// NewStore returns a new implementation of [domain.DocumentStore].
func NewStore(opts ...Option) domain.DocumentStore {
	s := Store{
		docs: make(map[domain.ID]*domain.Document),
		ids:  roaring.New(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.idGenerator == nil {
		s.idGenerator = idgenerator.NewIDGenerator()
	}
	if s.modifier == nil {
		s.modifier = modifier.NewModifier()
	}
	return &s
}

// Insert implements [domain.DocumentStore].
func (s *Store) Insert(doc *domain.Document) (domain.ID, error) {
	stored, err := data.NewDocument(doc)
	if err != nil {
		return 0, err
	}
	id, err := s.idGenerator.GenerateID()
	if err != nil {
		return 0, err
	}
	s.put(id, stored)
	return id, nil
}

// Restore implements [domain.DocumentStore]. It stores doc under a known
// identifier, used when loading persisted data and when undoing a delete.
func (s *Store) Restore(id domain.ID, doc *domain.Document) error {
	if s.ids.Contains(uint32(id)) {
		return fmt.Errorf("%w: id %d already in use", domain.ErrConstraintViolated, id)
	}
	stored, err := data.NewDocument(doc)
	if err != nil {
		return err
	}
	s.idGenerator.Observe(id)
	s.put(id, stored)
	return nil
}

func (s *Store) put(id domain.ID, doc *domain.Document) {
	s.docs[id] = doc
	s.ids.Add(uint32(id))
	s.version++
}

// Get implements [domain.DocumentStore]. The returned document is a copy.
func (s *Store) Get(id domain.ID) (*domain.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return doc.Clone(), nil
}

// Update implements [domain.DocumentStore]. It returns a copy of the new
// document.
func (s *Store) Update(id domain.ID, changes *domain.Document) (*domain.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	updated, err := s.modifier.Modify(doc, changes)
	if err != nil {
		return nil, err
	}
	s.docs[id] = updated
	s.version++
	return updated.Clone(), nil
}

// Replace implements [domain.DocumentStore]. It swaps the whole document and
// is used to undo updates.
func (s *Store) Replace(id domain.ID, doc *domain.Document) error {
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	stored, err := data.NewDocument(doc)
	if err != nil {
		return err
	}
	s.docs[id] = stored
	s.version++
	return nil
}

// Delete implements [domain.DocumentStore].
func (s *Store) Delete(id domain.ID) bool {
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	s.ids.Remove(uint32(id))
	s.version++
	return true
}

// Scan implements [domain.DocumentStore]. Every call starts a new scan over
// the current state. Yielded documents are shared with the store and must
// not be modified.
func (s *Store) Scan() iter.Seq2[domain.ID, *domain.Document] {
	return func(yield func(domain.ID, *domain.Document) bool) {
		it := s.ids.Iterator()
		for it.HasNext() {
			id := domain.ID(it.Next())
			if !yield(id, s.docs[id]) {
				return
			}
		}
	}
}

// IDs implements [domain.DocumentStore]. The bitmap is a copy.
func (s *Store) IDs() *roaring.Bitmap {
	return s.ids.Clone()
}

// Len implements [domain.DocumentStore].
func (s *Store) Len() int {
	return len(s.docs)
}

// Version implements [domain.DocumentStore]. It changes on every write.
func (s *Store) Version() uint64 {
	return s.version
}
