// Package kv provides the key-value stores that back the kvproxy API.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/leg100/kvproxy/internal"
)

// Store implementations provide a key-value store. Get returns
// internal.ErrKeyNotFound if the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Pair is a key and its value.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts either a string or a number for the key and the
// value. A number is kept in its JSON text form, e.g. 42 becomes "42".
func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key   json.RawMessage `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	key, err := scalarToString("key", raw.Key)
	if err != nil {
		return err
	}
	value, err := scalarToString("value", raw.Value)
	if err != nil {
		return err
	}
	p.Key, p.Value = key, value
	return nil
}

// Validate checks both key and value are present. Empty strings count as
// missing.
func (p Pair) Validate() error {
	if p.Key == "" || p.Value == "" {
		return internal.ErrKeyValueRequired
	}
	return nil
}

// scalarToString returns the text of a JSON string or number. A missing or
// null field is the empty string.
func scalarToString(field string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%s must be a string or a number", field)
	}
}
