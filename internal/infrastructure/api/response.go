package api

import (
	"encoding/json"
	"fmt"
)

// DecodeList unmarshals a collection payload into a slice of T. The backend
// answers list endpoints in three shapes depending on the route: a bare
// array, an object with a "data" array, or an object with an "items" array.
// All three normalize to the same slice; a nil or empty payload decodes to
// an empty slice.
func DecodeList[T any](payload []byte) ([]T, error) {
	if len(payload) == 0 {
		return []T{}, nil
	}

	var bare []T
	if err := json.Unmarshal(payload, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Data  []T `json:"data"`
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode list payload: %w", err)
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	if wrapped.Items != nil {
		return wrapped.Items, nil
	}
	return []T{}, nil
}

// DecodeOne unmarshals a single-object payload into T.
func DecodeOne[T any](payload []byte) (T, error) {
	var out T
	if len(payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("failed to decode payload: %w", err)
	}
	return out, nil
}
