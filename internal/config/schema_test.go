// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, SchemaID, schema["$id"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{
		"library", "shadow-dir", "symbol", "backend", "strategy", "poll-interval",
		"debounce", "watch-pattern", "log-format", "log-level", "metrics-addr", "startup-retries",
	} {
		assert.Contains(t, props, key)
	}

	debounce, ok := props["debounce"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", debounce["type"])

	backend, ok := props["backend"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"native", "process"}, backend["enum"])

	assert.NotContains(t, schema, "required", "every key is optional in the file")
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"empty document", "", false},
		{"comments only", "# nothing here\n", false},
		{"valid", "library: /x.so\nstrategy: poll\npoll-interval: 2s\nstartup-retries: 2\n", false},
		{"unknown key", "libary: /x.so\n", true},
		{"wrong type", "startup-retries: many\n", true},
		{"bad enum", "strategy: sometimes\n", true},
		{"not a mapping", "- library\n", true},
		{"bad yaml", "library: [\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
