// Package serializer contains the default [domain.Serializer] implementation.
//
// Every record becomes a single line of JSON:
//
//	{"$$id":1,"$$doc":{"nim":"12345"}}
//	{"$$id":1,"$$deleted":true}
//	{"$$indexCreated":{"fieldName":"nim","unique":true}}
//	{"$$indexRemoved":"nim"}
package serializer

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// ErrEmptyRecord is returned for records carrying nothing to persist.
var ErrEmptyRecord = errors.New("record has no content")

// ErrAmbiguousRecord is returned for records carrying more than one change.
var ErrAmbiguousRecord = errors.New("record has more than one content")

// Serializer implements domain.Serializer.
type Serializer struct{}

// NewSerializer returns a new implementation of domain.Serializer.
func NewSerializer() domain.Serializer {
	return &Serializer{}
}

// Serialize implements domain.Serializer.
func (s *Serializer) Serialize(ctx context.Context, r domain.Record) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := 0
	for _, ok := range []bool{r.Doc != nil, r.Deleted, r.IndexCreated != nil, r.IndexRemoved != ""} {
		if ok {
			set++
		}
	}
	switch set {
	case 0:
		return nil, ErrEmptyRecord
	case 1:
	default:
		return nil, ErrAmbiguousRecord
	}

	switch {
	case r.IndexCreated != nil:
		return json.Marshal(struct {
			IndexCreated *domain.IndexDTO `json:"$$indexCreated"`
		}{r.IndexCreated})
	case r.IndexRemoved != "":
		return json.Marshal(struct {
			IndexRemoved string `json:"$$indexRemoved"`
		}{r.IndexRemoved})
	}

	b := make([]byte, 0, 64)
	b = append(b, `{"$$id":`...)
	b = strconv.AppendUint(b, uint64(r.ID), 10)
	if r.Deleted {
		return append(b, `,"$$deleted":true}`...), nil
	}

	if err := data.CheckDocument(r.Doc); err != nil {
		return nil, err
	}
	b = append(b, `,"$$doc":`...)
	b, err := r.Doc.AppendJSON(b)
	if err != nil {
		return nil, err
	}
	return append(b, '}'), nil
}
