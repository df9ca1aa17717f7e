// Package modifier contains the default [domain.Modifier] implementation: a
// shallow merge where every top-level key of the changes replaces the stored
// value. Nested documents are replaced wholesale, never deep-merged.
package modifier

import (
	"errors"
	"fmt"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// ErrNoChanges is returned when an update carries no field at all.
var ErrNoChanges = errors.New("update has no fields")

// Modifier implements [domain.Modifier].
type Modifier struct {
	allowEmpty bool
}

// NewModifier returns a new implementation of domain.Modifier.
func NewModifier(opts ...Option) domain.Modifier {
	m := Modifier{}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

// Modify implements [domain.Modifier].
func (m *Modifier) Modify(doc, changes *domain.Document) (*domain.Document, error) {
	if doc == nil || changes == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrMalformedDocument)
	}
	if changes.Len() == 0 && !m.allowEmpty {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedDocument, ErrNoChanges)
	}
	if err := data.CheckDocument(changes); err != nil {
		return nil, err
	}

	res := doc.Clone()
	for k, v := range changes.Iter() {
		res.Set(k, v.Clone())
	}
	return res, nil
}
