package domain

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes three states of a field in a partial-update payload:
// absent (leave unchanged), present with null (clear the stored value) and
// present with a value. A plain pointer cannot express the first two
// separately, which is exactly what update endpoints need.
type Optional[T any] struct {
	set   bool
	valid bool
	value T
}

// Some wraps a concrete value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{set: true, valid: true, value: v}
}

// Null marks the field as explicitly cleared.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true}
}

// IsSet reports whether the field appeared in the payload at all.
func (o Optional[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was explicitly set to null.
func (o Optional[T]) IsNull() bool { return o.set && !o.valid }

// Get returns the value and whether it is present and non-null.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set && o.valid
}

// UnmarshalJSON is only invoked for keys present in the payload, so any call
// marks the field as set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(data, []byte("null")) {
		o.valid = false
		return nil
	}
	if err := json.Unmarshal(data, &o.value); err != nil {
		return err
	}
	o.valid = true
	return nil
}

// MarshalJSON renders null for absent or cleared fields.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || !o.valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
