// Package optional distinguishes a field that was omitted from one that was
// explicitly set, possibly to null.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a possibly-null value together with whether it was supplied.
type Value[T any] struct {
	Set   bool
	Value *T
}

// Of returns a supplied, non-null value.
func Of[T any](v T) Value[T] {
	return Value[T]{Set: true, Value: &v}
}

// Null returns a supplied null value.
func Null[T any]() Value[T] {
	return Value[T]{Set: true}
}

// IsNull reports whether the value was supplied as null.
func (v Value[T]) IsNull() bool {
	return v.Set && v.Value == nil
}

// Or returns the value when supplied and non-null, otherwise fallback.
func (v Value[T]) Or(fallback T) T {
	if v.Set && v.Value != nil {
		return *v.Value
	}
	return fallback
}

// Apply overwrites dst when the value was supplied.
func (v Value[T]) Apply(dst **T) {
	if !v.Set {
		return
	}
	if v.Value == nil {
		*dst = nil
		return
	}
	val := *v.Value
	*dst = &val
}

// UnmarshalJSON marks the value as supplied; `null` leaves Value nil.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Value = nil
		return nil
	}
	var val T
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	v.Value = &val
	return nil
}
