package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeepMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     map[string]interface{}
		override map[string]interface{}
		want     map[string]interface{}
	}{
		{
			name:     "nil override keeps base",
			base:     map[string]interface{}{"model": "sonnet"},
			override: nil,
			want:     map[string]interface{}{"model": "sonnet"},
		},
		{
			name:     "nil base",
			base:     nil,
			override: map[string]interface{}{"model": "opus"},
			want:     map[string]interface{}{"model": "opus"},
		},
		{
			name:     "scalar replaces",
			base:     map[string]interface{}{"model": "sonnet", "binary": "claude"},
			override: map[string]interface{}{"model": "opus"},
			want:     map[string]interface{}{"model": "opus", "binary": "claude"},
		},
		{
			name: "nested maps merge",
			base: map[string]interface{}{
				"exec": map[string]interface{}{"model": "gpt-5-codex", "sandbox": "workspace-write"},
			},
			override: map[string]interface{}{
				"exec": map[string]interface{}{"sandbox": "danger-full-access"},
			},
			want: map[string]interface{}{
				"exec": map[string]interface{}{"model": "gpt-5-codex", "sandbox": "danger-full-access"},
			},
		},
		{
			name: "arrays replace wholesale",
			base: map[string]interface{}{
				"exec": map[string]interface{}{"additionalArgs": []interface{}{"--a", "--b"}},
			},
			override: map[string]interface{}{
				"exec": map[string]interface{}{"additionalArgs": []interface{}{"--c"}},
			},
			want: map[string]interface{}{
				"exec": map[string]interface{}{"additionalArgs": []interface{}{"--c"}},
			},
		},
		{
			name:     "empty array still replaces",
			base:     map[string]interface{}{"allowedTools": []interface{}{"Read"}},
			override: map[string]interface{}{"allowedTools": []interface{}{}},
			want:     map[string]interface{}{"allowedTools": []interface{}{}},
		},
		{
			name:     "nil value is a no-op",
			base:     map[string]interface{}{"profile": "work"},
			override: map[string]interface{}{"profile": nil},
			want:     map[string]interface{}{"profile": "work"},
		},
		{
			name:     "map replaces scalar",
			base:     map[string]interface{}{"exec": "none"},
			override: map[string]interface{}{"exec": map[string]interface{}{"model": "o3"}},
			want:     map[string]interface{}{"exec": map[string]interface{}{"model": "o3"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeepMerge(tt.base, tt.override))
		})
	}
}

func TestDeepMergeDoesNotMutateInputs(t *testing.T) {
	base := map[string]interface{}{
		"exec": map[string]interface{}{"images": []interface{}{"a.png"}},
	}
	override := map[string]interface{}{
		"exec": map[string]interface{}{"model": "o3"},
	}

	merged := DeepMerge(base, override)
	merged["exec"].(map[string]interface{})["images"].([]interface{})[0] = "changed.png"
	merged["exec"].(map[string]interface{})["sandbox"] = "read-only"

	assert.Equal(t, "a.png", base["exec"].(map[string]interface{})["images"].([]interface{})[0])
	assert.NotContains(t, base["exec"].(map[string]interface{}), "model")
	assert.NotContains(t, override["exec"].(map[string]interface{}), "sandbox")
}

func TestDeepMergeNormalizesInterfaceKeyedMaps(t *testing.T) {
	base := map[string]interface{}{
		"exec": map[interface{}]interface{}{"model": "a", "search": false},
	}
	override := map[string]interface{}{
		"exec": map[string]interface{}{"search": true},
	}

	merged := DeepMerge(base, override)
	assert.Equal(t, map[string]interface{}{"model": "a", "search": true}, merged["exec"])
}
