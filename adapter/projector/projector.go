// Package projector contains the default [domain.Projector] implementation.
package projector

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// ErrMixOmitType is returned when user provides a projection with mixed
// "keep" and "omit" values.
var ErrMixOmitType = fmt.Errorf("%w: can't both keep and omit fields", domain.ErrInvalidFilter)

// Projector implements [domain.Projector].
type Projector struct{}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector() domain.Projector {
	return &Projector{}
}

// Project implements [domain.Projector]. A projection either keeps only the
// fields set to 1 or drops the fields set to 0. Fields are dotted paths;
// kept paths recreate their parent documents, in field name order. Entries are never modified in
// place.
func (p *Projector) Project(entries []domain.Entry, proj map[string]uint8) ([]domain.Entry, error) {
	if len(proj) == 0 {
		return entries, nil
	}

	paths := make([][]string, 0, len(proj))
	keep := 0
	for _, field := range slices.Sorted(maps.Keys(proj)) {
		value := proj[field]
		if field == "" {
			return nil, fmt.Errorf("%w: empty projection field", domain.ErrInvalidFilter)
		}
		if value > 0 {
			keep++
		}
		paths = append(paths, strings.Split(field, "."))
	}
	if keep > 0 && keep != len(paths) {
		return nil, ErrMixOmitType
	}

	res := make([]domain.Entry, len(entries))
	for n, e := range entries {
		if keep > 0 {
			res[n] = domain.Entry{ID: e.ID, Doc: positive(e.Doc, paths)}
		} else {
			res[n] = domain.Entry{ID: e.ID, Doc: negative(e.Doc, paths)}
		}
	}
	return res, nil
}

func positive(doc *domain.Document, paths [][]string) *domain.Document {
	res := domain.NewDocument()
	for _, path := range paths {
		v := doc.Lookup(strings.Join(path, "."))
		if v.IsUndefined() {
			continue
		}
		parent := res
		for _, part := range path[:len(path)-1] {
			sub, ok := parent.Get(part)
			if !ok || sub.Kind() != domain.KindDocument {
				sub = domain.Doc(domain.NewDocument())
				parent.Set(part, sub)
			}
			parent = sub.Document()
		}
		parent.Set(path[len(path)-1], v.Clone())
	}
	return res
}

func negative(doc *domain.Document, paths [][]string) *domain.Document {
	res := doc.Clone()
	for _, path := range paths {
		parent := res
		for _, part := range path[:len(path)-1] {
			sub, ok := parent.Get(part)
			if !ok || sub.Kind() != domain.KindDocument {
				parent = nil
				break
			}
			parent = sub.Document()
		}
		if parent != nil {
			parent.Unset(path[len(path)-1])
		}
	}
	return res
}
