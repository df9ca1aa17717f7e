// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"fmt"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

var docReflectType = reflect.TypeOf((*domain.Document)(nil))

// Decoder implements domain.Decoder.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder. Struct fields are matched by the
// "docstore" tag or, without it, by a case insensitive field name. Strings
// holding RFC 3339 timestamps decode into time.Time. Decoding into a
// *domain.Document stores a copy of source.
func (d *Decoder) Decode(source *domain.Document, target any) error {
	if target == nil {
		return &domain.ErrTargetNil{}
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}
	if value.IsNil() {
		return &domain.ErrTargetNil{}
	}

	if value.Type().Elem() == docReflectType {
		value.Elem().Set(reflect.ValueOf(source.Clone()))
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: data.TagName,
		Result:  target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source.Map()); err != nil {
		errDec := domain.ErrDecode{Source: source, Target: target}
		return fmt.Errorf("%w: %w", errDec, err)
	}
	return nil
}
