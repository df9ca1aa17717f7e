// Package index contains the default [domain.Index] implementation, an AVL
// tree from field values to document identifiers.
package index

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/comparer"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Index implements [domain.Index].
type Index struct {
	fieldName string
	unique    bool
	// Exported to allow testing. Should not be a problem because Index is
	// used as interface.
	Tree        bst.BST[domain.Value, domain.ID]
	comparer    domain.Comparer
	bstComparer bst.Comparer[domain.Value, domain.ID]
}

// NewIndex returns a new implementation of domain.Index.
func NewIndex(options ...Option) (domain.Index, error) {
	i := Index{
		comparer: comparer.NewComparer(),
	}
	for _, option := range options {
		option(&i)
	}

	if err := CheckFieldPath(i.fieldName); err != nil {
		return nil, err
	}

	i.bstComparer = NewBSTComparer(i.comparer)
	i.Tree = avl.NewBST(i.unique, 8, i.bstComparer)
	return &i, nil
}

// CheckFieldPath validates a dotted field path.
func CheckFieldPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty field name", domain.ErrInvalidFilter)
	}
	for part := range strings.SplitSeq(path, ".") {
		if part == "" || strings.HasPrefix(part, "$") {
			return fmt.Errorf("%w: invalid field path %q", domain.ErrInvalidFilter, path)
		}
	}
	return nil
}

// FieldName implements [domain.Index].
func (i *Index) FieldName() string {
	return i.fieldName
}

// Unique implements [domain.Index].
func (i *Index) Unique() bool {
	return i.unique
}

// Keys returns the distinct index keys of doc.
func (i *Index) Keys(doc *domain.Document) []domain.Value {
	return Keys(i.comparer, doc, i.fieldName)
}

// Keys returns the distinct keys under which doc is indexed for field.
// Missing fields are indexed as null. A list is indexed as a whole and
// through each of its elements.
func Keys(c domain.Comparer, doc *domain.Document, field string) []domain.Value {
	v := doc.Lookup(field)
	switch v.Kind() {
	case domain.KindUndefined:
		return []domain.Value{domain.Null()}
	case domain.KindList:
		keys := append([]domain.Value{v}, v.Items()...)
		slices.SortFunc(keys, c.Compare)
		return slices.CompactFunc(keys, func(a, b domain.Value) bool {
			return c.Compare(a, b) == 0
		})
	default:
		return []domain.Value{v}
	}
}

// Insert implements [domain.Index]. Either every entry is indexed or, on
// error, none is.
func (i *Index) Insert(entries ...domain.Entry) error {
	type kv struct {
		key domain.Value
		id  domain.ID
	}

	inserted := make([]kv, 0, len(entries))

	var err error
DocInsertion:
	for _, e := range entries {
		for _, k := range i.Keys(e.Doc) {
			if err = i.Tree.Insert(k, e.ID); err != nil {
				if u := new(bst.ErrUniqueViolated); errors.As(err, u) {
					err = fmt.Errorf("%w: field %q: %w", domain.ErrConstraintViolated, i.fieldName, err)
				}
				break DocInsertion
			}
			inserted = append(inserted, kv{key: k, id: e.ID})
		}
	}
	if err != nil {
		nErrs := make([]error, 1, len(inserted)+1)
		nErrs[0] = err
		for _, v := range inserted {
			if err := i.Tree.Delete(v.key, &v.id); err != nil {
				nErrs = append(nErrs, err)
			}
		}
		if len(nErrs) > 1 {
			return errors.Join(nErrs...)
		}
		return err
	}
	return nil
}

// Remove implements [domain.Index].
func (i *Index) Remove(entries ...domain.Entry) error {
	errs := make([]error, 0, len(entries))
	for _, e := range entries {
		for _, k := range i.Keys(e.Doc) {
			if err := i.Tree.Delete(k, &e.ID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Update implements [domain.Index]. On failure the old keys are restored.
func (i *Index) Update(id domain.ID, oldDoc, newDoc *domain.Document) error {
	oldEntry := domain.Entry{ID: id, Doc: oldDoc}
	if err := i.Remove(oldEntry); err != nil {
		return err
	}
	if err := i.Insert(domain.Entry{ID: id, Doc: newDoc}); err != nil {
		if rErr := i.Insert(oldEntry); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return nil
}

// GetMatching implements [domain.Index].
func (i *Index) GetMatching(values ...domain.Value) (*roaring.Bitmap, error) {
	res := roaring.New()
	for _, v := range values {
		found, err := i.Tree.Search(v)
		if err != nil {
			return nil, err
		}
		if found == nil {
			continue
		}
		for _, id := range found.Values() {
			res.Add(uint32(id))
		}
	}
	return res, nil
}

// GetBetweenBounds implements [domain.Index]. Bounds must be numbers or
// strings and the result never crosses into another kind: a numeric range
// returns no strings and the other way round. Identifiers come ordered by
// key, each one once.
func (i *Index) GetBetweenBounds(low, high *domain.Bound) ([]domain.ID, error) {
	low, high, err := Bracket(low, high)
	if err != nil {
		return nil, err
	}

	qry := bst.Query[domain.Value]{
		GreaterThan: &bst.Bound[domain.Value]{Value: low.Value, IncludeEqual: low.Inclusive},
		LowerThan:   &bst.Bound[domain.Value]{Value: high.Value, IncludeEqual: high.Inclusive},
	}

	seen := roaring.New()
	var res []domain.ID
	for id, err := range i.Tree.Query(qry) {
		if err != nil {
			return nil, err
		}
		if seen.CheckedAdd(uint32(id)) {
			res = append(res, id)
		}
	}
	return res, nil
}

// Bracket fills missing range bounds so that the range covers exactly one
// kind, numbers or strings, depending on the bound given.
func Bracket(low, high *domain.Bound) (*domain.Bound, *domain.Bound, error) {
	kind, err := boundsKind(low, high)
	if err != nil {
		return nil, nil, err
	}
	if low == nil {
		low = &domain.Bound{Value: domain.String(""), Inclusive: true}
		if kind == domain.KindNumber {
			low.Value = domain.Number(math.Inf(-1))
		}
	}
	if high == nil {
		// booleans are the kind right after strings
		high = &domain.Bound{Value: domain.Bool(false), Inclusive: false}
		if kind == domain.KindNumber {
			high = &domain.Bound{Value: domain.Number(math.Inf(1)), Inclusive: true}
		}
	}
	return low, high, nil
}

// InBounds reports whether v lies between bounds already completed by
// [Bracket].
func InBounds(c domain.Comparer, v domain.Value, low, high *domain.Bound) bool {
	lc := c.Compare(v, low.Value)
	if lc < 0 || (lc == 0 && !low.Inclusive) {
		return false
	}
	hc := c.Compare(v, high.Value)
	return hc < 0 || (hc == 0 && high.Inclusive)
}

func boundsKind(low, high *domain.Bound) (domain.Kind, error) {
	var kind domain.Kind
	for _, b := range []*domain.Bound{low, high} {
		if b == nil {
			continue
		}
		k := b.Value.Kind()
		if k != domain.KindNumber && k != domain.KindString {
			return 0, fmt.Errorf("%w: range bound must be a number or a string, got %s", domain.ErrInvalidFilter, k)
		}
		if kind != domain.KindUndefined && kind != k {
			return 0, fmt.Errorf("%w: range bounds of different kinds", domain.ErrInvalidFilter)
		}
		kind = k
	}
	if kind == domain.KindUndefined {
		return 0, fmt.Errorf("%w: range without bounds", domain.ErrInvalidFilter)
	}
	return kind, nil
}

// GetNumberOfKeys implements [domain.Index].
func (i *Index) GetNumberOfKeys() int {
	return i.Tree.GetNumberOfKeys()
}
