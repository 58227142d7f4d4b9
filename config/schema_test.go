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

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok, "schema should have properties")
	for _, key := range []string{"defaults", "paths", "background", "executors", "executionModes", "presets", "logging"} {
		assert.Contains(t, props, key)
	}
	assert.Equal(t, false, schema["additionalProperties"])
}

func TestSchemaValidator(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	valid := map[string]interface{}{
		"defaults":   map[string]interface{}{"executor": "claude"},
		"background": map[string]interface{}{"pollIntervalMs": 250},
	}
	assert.NoError(t, v.Validate(valid))

	wrongType := map[string]interface{}{
		"background": map[string]interface{}{"pollIntervalMs": "fast"},
	}
	err = v.Validate(wrongType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pollIntervalMs")
}
