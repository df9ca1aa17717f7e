// Package deserializer contains the default [domain.Deserializer]
// implementation, reading the lines written by package serializer.
package deserializer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// ErrUnknownRecord is returned for lines that hold no known record.
var ErrUnknownRecord = errors.New("unknown record")

// NewDeserializer returns a new instance of domain.Deserializer.
func NewDeserializer() domain.Deserializer {
	return &Deserializer{}
}

// Deserializer implements [domain.Deserializer].
type Deserializer struct{}

type envelope struct {
	ID           *domain.ID       `json:"$$id"`
	Doc          json.RawMessage  `json:"$$doc"`
	Deleted      bool             `json:"$$deleted"`
	IndexCreated *domain.IndexDTO `json:"$$indexCreated"`
	IndexRemoved string           `json:"$$indexRemoved"`
}

// Deserialize implements [domain.Deserializer].
func (d *Deserializer) Deserialize(ctx context.Context, b []byte) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return domain.Record{}, err
	}

	switch {
	case env.IndexCreated != nil:
		if env.IndexCreated.FieldName == "" {
			return domain.Record{}, fmt.Errorf("%w: index without field name", ErrUnknownRecord)
		}
		return domain.Record{IndexCreated: env.IndexCreated}, nil
	case env.IndexRemoved != "":
		return domain.Record{IndexRemoved: env.IndexRemoved}, nil
	case env.ID == nil:
		return domain.Record{}, ErrUnknownRecord
	case env.Deleted:
		return domain.Record{ID: *env.ID, Deleted: true}, nil
	case len(env.Doc) == 0:
		return domain.Record{}, fmt.Errorf("%w: id %d has no document", ErrUnknownRecord, *env.ID)
	}

	doc, err := data.ParseDocument(env.Doc)
	if err != nil {
		return domain.Record{}, err
	}
	return domain.Record{ID: *env.ID, Doc: doc}, nil
}
