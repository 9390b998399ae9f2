package database

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a field that was left out of a request from one
// that was sent as null. encoding/json only calls UnmarshalJSON for keys
// that are present, so a missing key leaves Set false.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a provided, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a provided Optional that clears the column.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Arg returns the value to bind in SQL: nil for an explicit null.
func (o Optional[T]) Arg() any {
	if o.Null {
		return nil
	}
	return o.Value
}

// Ptr returns nil for an explicit null and a pointer to the value otherwise.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}
