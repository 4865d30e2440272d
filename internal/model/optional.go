package model

import "encoding/json"

// Optional records whether a JSON field was present in a request and, if so,
// its value. A present null leaves Value nil with Set true, which lets update
// endpoints tell "clear this field" apart from "leave it alone".
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

// Null returns a present Optional holding JSON null.
func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// IsNull reports a field that was sent as JSON null.
func (o Optional[T]) IsNull() bool { return o.Set && o.Value == nil }
