package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRequiredContext(t *testing.T) {
	tests := []struct {
		name         string
		required     map[string]any
		actual       map[string]any
		allowMissing bool
		want         bool
	}{
		{"equal", map[string]any{"area": "kitchen"}, map[string]any{"area": "kitchen"}, false, true},
		{"different", map[string]any{"area": "kitchen"}, map[string]any{"area": "hall"}, false, false},
		{"missing", map[string]any{"area": "kitchen"}, map[string]any{}, false, false},
		{"missing allowed", map[string]any{"area": "kitchen"}, map[string]any{}, true, true},
		{"any value", map[string]any{"area": nil}, map[string]any{"area": "hall"}, false, true},
		{"any value unset", map[string]any{"area": nil}, map[string]any{"area": nil}, false, false},
		{"one of", map[string]any{"domain": []any{"light", "fan"}}, map[string]any{"domain": "fan"}, false, true},
		{"none of", map[string]any{"domain": []any{"light", "fan"}}, map[string]any{"domain": "lock"}, false, false},
		{"mapping value", map[string]any{"area": "kitchen"}, map[string]any{"area": map[string]any{"value": "kitchen", "text": "Kitchen"}}, false, true},
		{"numbers", map[string]any{"floor": 1}, map[string]any{"floor": 1.0}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckRequiredContext(tt.required, tt.actual, tt.allowMissing))
		})
	}
}

func TestCheckExcludedContext(t *testing.T) {
	excluded := map[string]any{"domain": []any{"cover", "lock"}, "area": "garage"}

	assert.True(t, CheckExcludedContext(excluded, map[string]any{}))
	assert.True(t, CheckExcludedContext(excluded, map[string]any{"domain": "light"}))
	assert.False(t, CheckExcludedContext(excluded, map[string]any{"domain": "lock"}))
	assert.False(t, CheckExcludedContext(excluded, map[string]any{"area": map[string]any{"value": "garage"}}))
}

func TestMergeContextCopies(t *testing.T) {
	base := map[string]any{"a": 1}
	merged := mergeContext(base, map[string]any{"b": 2})

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, merged)
	assert.Equal(t, map[string]any{"a": 1}, base)
	assert.Equal(t, base, mergeContext(base, nil))
}

func TestRequiredContextSlots(t *testing.T) {
	required := map[string]any{
		"area":   map[string]any{"slot": true},
		"domain": map[string]any{"value": "light", "slot": "kind"},
		"floor":  nil,
	}
	actual := map[string]any{
		"area":   map[string]any{"value": "area.kitchen", "text": "Kitchen", "metadata": map[string]any{"id": 7}},
		"domain": "light",
		"floor":  2,
	}

	got, ok := RequiredContextSlots(required, actual)
	require.True(t, ok)
	assert.Equal(t, []Entity{
		{Name: "area", Value: "area.kitchen", Text: "Kitchen", Metadata: map[string]any{"id": 7}},
		{Name: "kind", Value: "light"},
	}, got)

	_, ok = RequiredContextSlots(required, map[string]any{"area": "hall", "domain": "fan", "floor": 1})
	assert.False(t, ok)

	_, ok = RequiredContextSlots(required, map[string]any{"domain": "light", "floor": 1})
	assert.False(t, ok, "area must be set")
}
