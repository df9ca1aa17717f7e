package index

import (
	"github.com/vinicius-lino-figueiredo/bst"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

type bstComparer struct {
	comparer domain.Comparer
}

// NewBSTComparer adapts a [domain.Comparer] to the tree used by [Index]. Keys
// are field values and tree values are document identifiers.
func NewBSTComparer(comparer domain.Comparer) bst.Comparer[domain.Value, domain.ID] {
	return &bstComparer{
		comparer: comparer,
	}
}

// CompareKeys implements bst.Comparer.
func (bc *bstComparer) CompareKeys(a domain.Value, b domain.Value) (int, error) {
	return bc.comparer.Compare(a, b), nil
}

// CompareValues implements bst.Comparer.
func (bc *bstComparer) CompareValues(a domain.ID, b domain.ID) (bool, error) {
	return a == b, nil
}
