// Package schema decodes and validates tool arguments.
//
// Decoding is strict: unknown keys are rejected. Optional inputs use Field,
// which keeps "absent", "null" and "value" apart so partial updates can
// tell "leave alone" from "clear".
package schema

import (
	"bytes"
	"encoding/json"
)

// State is the presence state of a Field.
type State int

const (
	// Unset means the key was absent.
	Unset State = iota
	// Clear means the key was present with a JSON null.
	Clear
	// Set means the key carried a value.
	Set
)

func (s State) String() string {
	switch s {
	case Clear:
		return "clear"
	case Set:
		return "set"
	default:
		return "unset"
	}
}

// Field is an optional, possibly-null input value.
type Field[T any] struct {
	state State
	value T
}

// Value returns a Field holding v.
func Value[T any](v T) Field[T] {
	return Field[T]{state: Set, value: v}
}

// Null returns a Field in the Clear state.
func Null[T any]() Field[T] {
	return Field[T]{state: Clear}
}

// UnmarshalJSON is only called for keys present in the input.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.state, f.value = Clear, zero
		return nil
	}
	var v T
	if err := strictUnmarshal(data, &v); err != nil {
		return err
	}
	f.state, f.value = Set, v
	return nil
}

// State reports whether the field was absent, null, or set.
func (f Field[T]) State() State { return f.state }

// Present reports whether the key appeared in the input, null or not.
func (f Field[T]) Present() bool { return f.state != Unset }

// IsNull reports whether the key was an explicit null.
func (f Field[T]) IsNull() bool { return f.state == Clear }

// Get returns the value and whether one was set.
func (f Field[T]) Get() (T, bool) { return f.value, f.state == Set }

// Or returns the value if set, else fallback.
func (f Field[T]) Or(fallback T) T {
	if f.state == Set {
		return f.value
	}
	return fallback
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
