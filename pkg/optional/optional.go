// Package optional provides presence-tracked values for partial input schemas:
// a Field that was never set is distinct from one set to its zero value.
package optional

import (
	"bytes"
	"encoding/json"
)

// Field holds a value of T together with whether the caller set it.
type Field[T any] struct {
	value T
	set   bool
}

// Of returns a set field.
func Of[T any](v T) Field[T] { return Field[T]{value: v, set: true} }

// None returns an unset field.
func None[T any]() Field[T] { return Field[T]{} }

func (f Field[T]) IsSet() bool { return f.set }

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) { return f.value, f.set }

// Value returns the value, or T's zero value when unset.
func (f Field[T]) Value() T { return f.value }

// Or returns the value when set and def otherwise.
func (f Field[T]) Or(def T) T {
	if f.set {
		return f.value
	}
	return def
}

// UnmarshalJSON is only invoked for keys present in the payload; an explicit null
// leaves the field unset.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Of(v)
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// Put stores the field's value under key when it is set.
func Put[T any](m map[string]any, key string, f Field[T]) {
	if v, ok := f.Get(); ok {
		m[key] = v
	}
}

// Require appends key to missing when the field is unset.
func Require[T any](missing []string, key string, f Field[T]) []string {
	if !f.set {
		return append(missing, key)
	}
	return missing
}
