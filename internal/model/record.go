package model

import (
	"encoding/json"
	"fmt"
)

// Reserved record keys. The store owns id; the record service owns createdAt.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
)

// Fields is the wire form of a record value: every field except the id,
// which lives in the store key.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge applies patch on top of f and returns the result. Keys absent from
// patch are kept; a nil value removes the key.
func (f Fields) Merge(patch Fields) Fields {
	out := f.Clone()
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Without returns a copy of f minus the given keys.
func (f Fields) Without(keys ...string) Fields {
	out := f.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// FieldsOf converts a typed record into Fields, dropping id and createdAt.
func FieldsOf(v any) (Fields, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("record is not an object")
	}
	return f.Without(FieldID, FieldCreatedAt), nil
}

// decodeValue unmarshals a child value into dst. The value must be a JSON object.
func decodeValue(raw json.RawMessage, dst any) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("value is not an object: %w", err)
	}
	if probe == nil {
		return fmt.Errorf("value is null")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	return nil
}
