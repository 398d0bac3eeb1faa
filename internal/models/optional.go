package models

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a JSON field was present in a request body.
// An explicit null counts as present, sets Null and leaves Value at its zero value.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON is only invoked for keys present in the document.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	var zero T
	o.Value = zero
	if string(bytes.TrimSpace(data)) == "null" {
		o.Null = true
		return nil
	}
	o.Null = false
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(&o.Value)
}

// MarshalJSON writes the value, or null when absent.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// OrElse returns the value when present and non-null, else def.
func (o Optional[T]) OrElse(def T) T {
	if !o.Set || o.Null {
		return def
	}
	return o.Value
}
