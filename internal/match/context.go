package match

import (
	"maps"
	"reflect"
	"slices"
)

// Context values may be plain values or {"value": ..., "text": ...}
// mappings; both compare on the value.
func contextValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		return m["value"]
	}
	return v
}

// collection returns v's items when v is a list of allowed values.
func collection(v any) ([]any, bool) {
	switch c := v.(type) {
	case []any:
		return c, true
	case []string:
		out := make([]any, len(c))
		for i, s := range c {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// ValuesEqual compares context values, treating numbers of different types
// as equal when they have the same value.
func ValuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// satisfies reports whether actual meets one required value. A nil
// requirement is met by anything that is set; a list is met by any member.
func satisfies(required, actual any) bool {
	required = contextValue(required)
	actual = contextValue(actual)
	if required == nil {
		return actual != nil
	}
	if items, ok := collection(required); ok {
		for _, item := range items {
			if ValuesEqual(item, actual) {
				return true
			}
		}
		return false
	}
	return ValuesEqual(required, actual)
}

// CheckRequiredContext reports whether actual satisfies every requirement.
// With allowMissing, keys absent from actual are not held against it.
func CheckRequiredContext(required, actual map[string]any, allowMissing bool) bool {
	for key, want := range required {
		got, ok := actual[key]
		if !ok {
			if allowMissing {
				continue
			}
			return false
		}
		if !satisfies(want, got) {
			return false
		}
	}
	return true
}

// CheckExcludedContext reports whether actual avoids every excluded value.
func CheckExcludedContext(excluded, actual map[string]any) bool {
	for key, avoid := range excluded {
		got, ok := actual[key]
		if !ok {
			continue
		}
		got = contextValue(got)
		if items, ok := collection(avoid); ok {
			for _, item := range items {
				if ValuesEqual(item, got) {
					return false
				}
			}
			continue
		}
		if ValuesEqual(avoid, got) {
			return false
		}
	}
	return true
}

// mergeContext returns base with extra laid over it. Neither input is
// modified.
func mergeContext(base, extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return base
	}
	out := make(map[string]any, len(base)+len(extra))
	maps.Copy(out, base)
	maps.Copy(out, extra)
	return out
}

// RequiredContextSlots checks required against actual like
// CheckRequiredContext and also returns the entities requested by
// requirements of the form {value: ..., slot: true|"name"}. Copied entities
// take the actual value, with text and metadata when actual holds a
// mapping.
func RequiredContextSlots(required, actual map[string]any) ([]Entity, bool) {
	var out []Entity
	for _, key := range slices.Sorted(maps.Keys(required)) {
		want := required[key]
		got, ok := actual[key]
		if !ok || !satisfies(want, got) {
			return nil, false
		}
		slot := copyToSlot(key, want)
		if slot == "" {
			continue
		}
		entity := Entity{Name: slot, Value: contextValue(got)}
		if m, ok := got.(map[string]any); ok {
			entity.Text, _ = m["text"].(string)
			entity.Metadata, _ = m["metadata"].(map[string]any)
		}
		out = append(out, entity)
	}
	return out, true
}

func copyToSlot(key string, want any) string {
	m, ok := want.(map[string]any)
	if !ok {
		return ""
	}
	switch slot := m["slot"].(type) {
	case string:
		return slot
	case bool:
		if slot {
			return key
		}
	}
	return ""
}
