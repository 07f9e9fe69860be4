package domain

import (
	"bytes"
	"encoding/json"
)

// Optional is a patch field that records whether the client sent it at all.
//
//	absent      -> Present=false
//	"key": null -> Present=true, Null=true
//	"key": v    -> Present=true, Value=v
type Optional[T any] struct {
	Value   T
	Present bool
	Null    bool
}

// Some returns a present, non-null field.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Present: true}
}

// Null returns a present field explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Present: true, Null: true}
}

// HasValue reports a present, non-null field.
func (o Optional[T]) HasValue() bool {
	return o.Present && !o.Null
}

// Ptr returns nil for null (used as a SQL argument), else a pointer to the value.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// UnmarshalJSON is only invoked by encoding/json when the key exists.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}
