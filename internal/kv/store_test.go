package kv

import (
	"encoding/json"
	"testing"

	"github.com/leg100/kvproxy/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Pair
	}{
		{"strings", `{"key":"color","value":"blue"}`, Pair{Key: "color", Value: "blue"}},
		{"integer value", `{"key":"count","value":42}`, Pair{Key: "count", Value: "42"}},
		{"float value", `{"key":"ratio","value":4.5}`, Pair{Key: "ratio", Value: "4.5"}},
		{"numeric key", `{"key":7,"value":"seven"}`, Pair{Key: "7", Value: "seven"}},
		{"zero", `{"key":"n","value":0}`, Pair{Key: "n", Value: "0"}},
		{"missing value", `{"key":"color"}`, Pair{Key: "color"}},
		{"null value", `{"key":"color","value":null}`, Pair{Key: "color"}},
		{"null", `null`, Pair{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Pair
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPair_UnmarshalJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"bool value", `{"key":"color","value":true}`, "value must be a string or a number"},
		{"object value", `{"key":"color","value":{"a":1}}`, "value must be a string or a number"},
		{"array key", `{"key":["a"],"value":"blue"}`, "key must be a string or a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Pair
			assert.EqualError(t, json.Unmarshal([]byte(tt.json), &got), tt.want)
		})
	}

	var got Pair
	assert.Error(t, json.Unmarshal([]byte(`["color","blue"]`), &got))
}

func TestPair_Validate(t *testing.T) {
	assert.NoError(t, Pair{Key: "color", Value: "blue"}.Validate())
	assert.ErrorIs(t, Pair{Value: "blue"}.Validate(), internal.ErrKeyValueRequired)
	assert.ErrorIs(t, Pair{Key: "color"}.Validate(), internal.ErrKeyValueRequired)
	assert.ErrorIs(t, Pair{}.Validate(), internal.ErrKeyValueRequired)
}
